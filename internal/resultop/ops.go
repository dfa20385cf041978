package resultop

import (
	"fmt"

	"github.com/roach88/pipeq/internal/expr"
	"github.com/roach88/pipeq/internal/model"
	"github.com/roach88/pipeq/internal/value"
)

// Any tests whether the sequence has at least one item. A predicate given
// to the pipeline operator becomes a where clause ahead of it.
type Any struct{}

// Name implements model.ResultOperator.
func (*Any) Name() string { return "Any" }

// Clone implements model.ResultOperator.
func (*Any) Clone(*model.CloneContext) model.ResultOperator { return &Any{} }

// ExecuteInMemory implements model.ResultOperator.
func (*Any) ExecuteInMemory(items []any) (any, error) { return len(items) > 0, nil }

// OutputDataInfo implements model.ResultOperator.
func (a *Any) OutputDataInfo(in model.DataInfo) (model.DataInfo, error) {
	if _, err := model.RequireSequence(a.Name(), in); err != nil {
		return nil, err
	}
	return model.ScalarInfo{Type: expr.TypeBool}, nil
}

// TransformExpressions implements model.ResultOperator.
func (*Any) TransformExpressions(func(expr.Expr) expr.Expr) {}

func (*Any) String() string { return "Any()" }

// Count counts the items of the sequence.
type Count struct{}

// Name implements model.ResultOperator.
func (*Count) Name() string { return "Count" }

// Clone implements model.ResultOperator.
func (*Count) Clone(*model.CloneContext) model.ResultOperator { return &Count{} }

// ExecuteInMemory implements model.ResultOperator.
func (*Count) ExecuteInMemory(items []any) (any, error) { return int64(len(items)), nil }

// OutputDataInfo implements model.ResultOperator.
func (c *Count) OutputDataInfo(in model.DataInfo) (model.DataInfo, error) {
	if _, err := model.RequireSequence(c.Name(), in); err != nil {
		return nil, err
	}
	return model.ScalarInfo{Type: expr.TypeInt}, nil
}

// TransformExpressions implements model.ResultOperator.
func (*Count) TransformExpressions(func(expr.Expr) expr.Expr) {}

func (*Count) String() string { return "Count()" }

// Distinct removes duplicate items, keeping the first occurrence of each.
// Items are compared by their canonical value.
type Distinct struct{}

// Name implements model.ResultOperator.
func (*Distinct) Name() string { return "Distinct" }

// Clone implements model.ResultOperator.
func (*Distinct) Clone(*model.CloneContext) model.ResultOperator { return &Distinct{} }

// ExecuteInMemory implements model.ResultOperator.
func (*Distinct) ExecuteInMemory(items []any) (any, error) {
	seen := make(map[string]bool, len(items))
	out := make([]any, 0, len(items))
	for i, item := range items {
		k, err := value.Key(item)
		if err != nil {
			return nil, fmt.Errorf("Distinct: item %d: %w", i, err)
		}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, item)
	}
	return out, nil
}

// OutputDataInfo implements model.ResultOperator.
func (d *Distinct) OutputDataInfo(in model.DataInfo) (model.DataInfo, error) {
	return model.RequireSequence(d.Name(), in)
}

// TransformExpressions implements model.ResultOperator.
func (*Distinct) TransformExpressions(func(expr.Expr) expr.Expr) {}

func (*Distinct) String() string { return "Distinct()" }

// First returns the first item. On an empty sequence it returns nil when
// OrDefault is set and ErrEmptySequence otherwise.
type First struct {
	OrDefault bool
}

// Name implements model.ResultOperator.
func (f *First) Name() string {
	if f.OrDefault {
		return "FirstOrDefault"
	}
	return "First"
}

// Clone implements model.ResultOperator.
func (f *First) Clone(*model.CloneContext) model.ResultOperator { return &First{OrDefault: f.OrDefault} }

// ExecuteInMemory implements model.ResultOperator.
func (f *First) ExecuteInMemory(items []any) (any, error) {
	if len(items) == 0 {
		if f.OrDefault {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", f.Name(), ErrEmptySequence)
	}
	return items[0], nil
}

// OutputDataInfo implements model.ResultOperator.
func (f *First) OutputDataInfo(in model.DataInfo) (model.DataInfo, error) {
	seq, err := model.RequireSequence(f.Name(), in)
	if err != nil {
		return nil, err
	}
	return model.SingleInfo{Type: seq.ItemType, ReturnDefaultWhenEmpty: f.OrDefault}, nil
}

// TransformExpressions implements model.ResultOperator.
func (*First) TransformExpressions(func(expr.Expr) expr.Expr) {}

func (f *First) String() string { return f.Name() + "()" }

// Take keeps the first Count items.
type Take struct {
	Count int
}

// Name implements model.ResultOperator.
func (*Take) Name() string { return "Take" }

// Clone implements model.ResultOperator.
func (t *Take) Clone(*model.CloneContext) model.ResultOperator { return &Take{Count: t.Count} }

// ExecuteInMemory implements model.ResultOperator.
func (t *Take) ExecuteInMemory(items []any) (any, error) {
	n := min(max(t.Count, 0), len(items))
	out := make([]any, n)
	copy(out, items[:n])
	return out, nil
}

// OutputDataInfo implements model.ResultOperator.
func (t *Take) OutputDataInfo(in model.DataInfo) (model.DataInfo, error) {
	return model.RequireSequence(t.Name(), in)
}

// TransformExpressions implements model.ResultOperator.
func (*Take) TransformExpressions(func(expr.Expr) expr.Expr) {}

func (t *Take) String() string { return fmt.Sprintf("Take(%d)", t.Count) }

// Skip drops the first Count items.
type Skip struct {
	Count int
}

// Name implements model.ResultOperator.
func (*Skip) Name() string { return "Skip" }

// Clone implements model.ResultOperator.
func (s *Skip) Clone(*model.CloneContext) model.ResultOperator { return &Skip{Count: s.Count} }

// ExecuteInMemory implements model.ResultOperator.
func (s *Skip) ExecuteInMemory(items []any) (any, error) {
	n := min(max(s.Count, 0), len(items))
	out := make([]any, len(items)-n)
	copy(out, items[n:])
	return out, nil
}

// OutputDataInfo implements model.ResultOperator.
func (s *Skip) OutputDataInfo(in model.DataInfo) (model.DataInfo, error) {
	return model.RequireSequence(s.Name(), in)
}

// TransformExpressions implements model.ResultOperator.
func (*Skip) TransformExpressions(func(expr.Expr) expr.Expr) {}

func (s *Skip) String() string { return fmt.Sprintf("Skip(%d)", s.Count) }
