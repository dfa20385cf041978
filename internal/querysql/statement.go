package querysql

import (
	"errors"

	"github.com/roach88/pipeq/internal/expr"
	"github.com/roach88/pipeq/internal/model"
)

// ErrUnsupported is returned for models or expressions that have no SQL
// translation.
var ErrUnsupported = errors.New("not expressible in SQL")

// ProjectionKind says how a result row maps to an item.
type ProjectionKind string

// Projection kinds.
const (
	// ProjectRow: the item is the whole row, one entry per column.
	ProjectRow ProjectionKind = "row"
	// ProjectValue: the item is the single "value" column.
	ProjectValue ProjectionKind = "value"
	// ProjectObject: the item is an object built from Fields.
	ProjectObject ProjectionKind = "object"
)

// valueColumn names the column of scalar projections and aggregates.
const valueColumn = "value"

// Projection maps result rows to items.
type Projection struct {
	Kind   ProjectionKind
	Fields []string
}

// Item converts one result row.
func (p Projection) Item(row map[string]any) any {
	switch p.Kind {
	case ProjectValue:
		return row[valueColumn]
	case ProjectObject:
		out := make(map[string]any, len(p.Fields))
		for _, f := range p.Fields {
			out[f] = row[f]
		}
		return out
	default:
		return row
	}
}

// Terminal is the result operator folded into the SQL as the final stage.
type Terminal string

// Terminals.
const (
	TerminalNone           Terminal = ""
	TerminalCount          Terminal = "count"
	TerminalAny            Terminal = "any"
	TerminalAll            Terminal = "all"
	TerminalFirst          Terminal = "first"
	TerminalFirstOrDefault Terminal = "firstOrDefault"
)

// Statement is a compiled query model.
type Statement struct {
	SQL  string
	Args []any

	// Projection maps rows to items. For count, any and all the single
	// row carries the result in the "value" column.
	Projection Projection
	Terminal   Terminal

	// Residual are the result operators left for in-memory execution, in
	// order, over the items the statement produces.
	Residual []model.ResultOperator

	// Selector is the model's projection, against which residual
	// operators are localized.
	Selector expr.Expr
}
