package harness

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/roach88/pipeq/internal/engine"
	"github.com/roach88/pipeq/internal/value"
)

// AssertionError is returned when an expectation fails.
type AssertionError struct {
	Field    string
	Expected string
	Actual   string
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "expectation failed: %s\n", e.Field)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s", e.Actual)
	return buf.String()
}

// CheckExpectation compares result against expect and returns one
// message per mismatch.
func CheckExpectation(result *Result, expect Expectation) []string {
	var errs []string
	add := func(err error) {
		if err != nil {
			errs = append(errs, err.Error())
		}
	}

	if expect.ExpectsError() {
		add(checkError(result.Err, expect))
	} else {
		if result.Err != nil {
			add(&AssertionError{Field: "error", Expected: "no error", Actual: result.Err.Error()})
			return errs
		}
		add(checkValue(result.Value, expect.Value))
	}

	if expect.Model != "" && result.Model != expect.Model {
		add(&AssertionError{Field: "model", Expected: expect.Model, Actual: result.Model})
	}
	if expect.SQL != "" && result.SQL != expect.SQL {
		add(&AssertionError{Field: "sql", Expected: expect.SQL, Actual: result.SQL})
	}
	return errs
}

func checkError(err error, expect Expectation) error {
	if err == nil {
		return &AssertionError{Field: "error", Expected: describeError(expect), Actual: "no error"}
	}
	if expect.Code != "" {
		if code := engine.ErrorCode(err); string(code) != expect.Code {
			return &AssertionError{Field: "code", Expected: expect.Code, Actual: fmt.Sprintf("%q (%v)", code, err)}
		}
	}
	if expect.Error != "" && !strings.Contains(err.Error(), expect.Error) {
		return &AssertionError{Field: "error", Expected: describeError(expect), Actual: err.Error()}
	}
	return nil
}

func describeError(expect Expectation) string {
	var parts []string
	if expect.Code != "" {
		parts = append(parts, "code "+expect.Code)
	}
	if expect.Error != "" {
		parts = append(parts, fmt.Sprintf("message containing %q", expect.Error))
	}
	return strings.Join(parts, " and ")
}

// checkValue compares by canonical JSON so integral floats, YAML ints
// and SQLite integers agree.
func checkValue(actual, expected any) error {
	want, err := value.MarshalCanonical(expected)
	if err != nil {
		return fmt.Errorf("expectation value: %w", err)
	}
	got, err := value.MarshalCanonical(actual)
	if err != nil {
		return fmt.Errorf("result value: %w", err)
	}
	if !bytes.Equal(want, got) {
		return &AssertionError{Field: "value", Expected: string(want), Actual: string(got)}
	}
	return nil
}
