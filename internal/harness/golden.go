package harness

import (
	"context"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/pipeq/internal/engine"
	"github.com/roach88/pipeq/internal/value"
)

// Snapshot captures what a scenario produced. It is serialized as
// canonical JSON for deterministic comparison.
type Snapshot struct {
	ScenarioName string
	Token        string
	Model        string
	SQL          string
	Args         []any
	Value        any
	Error        string
	Code         string
}

// NewSnapshot builds the snapshot of a result.
func NewSnapshot(r *Result) Snapshot {
	s := Snapshot{
		ScenarioName: r.Name,
		Token:        r.Token,
		Model:        r.Model,
		SQL:          r.SQL,
		Args:         r.Args,
		Value:        r.Value,
	}
	if r.Err != nil {
		s.Error = r.Err.Error()
		s.Code = string(engine.ErrorCode(r.Err))
	}
	return s
}

// toCanonicalMap converts the snapshot to the map form MarshalCanonical
// accepts. Empty fields are omitted; value is always present.
func (s Snapshot) toCanonicalMap() map[string]any {
	m := map[string]any{
		"scenario_name": s.ScenarioName,
		"value":         s.Value,
	}
	for k, v := range map[string]string{
		"token": s.Token,
		"model": s.Model,
		"sql":   s.SQL,
		"error": s.Error,
		"code":  s.Code,
	} {
		if v != "" {
			m[k] = v
		}
	}
	if len(s.Args) > 0 {
		args := make([]any, len(s.Args))
		copy(args, s.Args)
		m["args"] = args
	}
	return m
}

// MarshalCanonical renders the snapshot as canonical JSON.
func (s Snapshot) MarshalCanonical() ([]byte, error) {
	return value.MarshalCanonical(s.toCanonicalMap())
}

// RunWithGolden executes a scenario and compares its snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(context.Background(), scenario)
	if err != nil {
		return nil, err
	}
	return result, AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares an existing result against its golden file
// without re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := NewSnapshot(result).MarshalCanonical()
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)
	return nil
}
