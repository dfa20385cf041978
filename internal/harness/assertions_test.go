package harness

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckExpectation(t *testing.T) {
	tests := []struct {
		name   string
		result *Result
		expect Expectation
		errs   []string
	}{
		{
			name:   "int and integral float agree",
			result: &Result{Value: []any{int64(3), 2.0}},
			expect: Expectation{Value: []any{3, 2}},
		},
		{
			name:   "null value",
			result: &Result{},
			expect: Expectation{},
		},
		{
			name:   "value mismatch",
			result: &Result{Value: int64(1)},
			expect: Expectation{Value: 2},
			errs:   []string{"expectation failed: value\n  Expected: 2\n  Actual: 1"},
		},
		{
			name:   "unexpected error",
			result: &Result{Err: errors.New("boom")},
			expect: Expectation{Value: 1},
			errs:   []string{"expectation failed: error\n  Expected: no error\n  Actual: boom"},
		},
		{
			name:   "missing error",
			result: &Result{Value: int64(1)},
			expect: Expectation{Error: "boom"},
			errs:   []string{"expectation failed: error\n  Expected: message containing \"boom\"\n  Actual: no error"},
		},
		{
			name:   "error fragment",
			result: &Result{Err: fmt.Errorf("wrapped: %w", errors.New("boom"))},
			expect: Expectation{Error: "boom"},
		},
		{
			name:   "code mismatch on plain error",
			result: &Result{Err: errors.New("boom")},
			expect: Expectation{Code: "COMPILE_FAILED"},
			errs:   []string{"expectation failed: code\n  Expected: COMPILE_FAILED\n  Actual: \"\" (boom)"},
		},
		{
			name:   "sql and model",
			result: &Result{Model: "m", SQL: "s"},
			expect: Expectation{Model: "m2", SQL: "s"},
			errs:   []string{"expectation failed: model\n  Expected: m2\n  Actual: m"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := CheckExpectation(tt.result, tt.expect)
			if tt.errs == nil {
				assert.Empty(t, errs)
			} else {
				assert.Equal(t, tt.errs, errs)
			}
		})
	}
}
