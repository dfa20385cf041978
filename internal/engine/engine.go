package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/pipeq/internal/model"
	"github.com/roach88/pipeq/internal/node"
	"github.com/roach88/pipeq/internal/querysql"
	"github.com/roach88/pipeq/internal/resultop"
	"github.com/roach88/pipeq/internal/store"
)

// DefaultMaxRows is the default row quota per statement.
const DefaultMaxRows = 100_000

// Engine runs query models against a store.
//
// An Engine holds no per-query state and is safe for concurrent use as
// long as the store is.
type Engine struct {
	store  *store.Store
	tokens node.TokenGenerator
	quota  RowQuota
	logger *slog.Logger
}

// EngineOption allows configuration of engine parameters.
type EngineOption func(*Engine)

// WithMaxRows sets the row quota per statement. Zero disables it.
func WithMaxRows(maxRows int) EngineOption {
	return func(e *Engine) {
		e.quota = NewRowQuota(maxRows)
	}
}

// WithTokenGenerator sets the generator for pass tokens used by Run.
func WithTokenGenerator(g node.TokenGenerator) EngineOption {
	return func(e *Engine) {
		e.tokens = g
	}
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = l
	}
}

// New creates an Engine over s.
func New(s *store.Store, opts ...EngineOption) *Engine {
	e := &Engine{
		store:  s,
		tokens: node.UUIDv7Generator{},
		quota:  NewRowQuota(DefaultMaxRows),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Result is the outcome of one execution.
type Result struct {
	// Value is []any for sequence results, otherwise the single value.
	Value any

	Model     string
	Token     string
	Statement *querysql.Statement

	// Seq is the query log sequence number.
	Seq int64
}

// Run generates the model for chain and executes it.
func (e *Engine) Run(ctx context.Context, chain *node.Chain) (*Result, error) {
	qm, gctx, err := node.Generate(chain, node.WithTokenGenerator(e.tokens), node.WithLogger(e.logger))
	if err != nil {
		return nil, newRuntimeError(ErrCodeGenerate, "", "generate query model", err)
	}
	return e.Execute(ctx, gctx.Token, qm)
}

// Execute compiles qm, runs it and applies residual result operators.
func (e *Engine) Execute(ctx context.Context, token string, qm *model.QueryModel) (*Result, error) {
	rendered := qm.String()
	stmt, err := querysql.Compile(qm)
	if err != nil {
		return nil, newRuntimeError(ErrCodeCompile, token, "compile query model", err)
	}
	e.logger.Debug("statement compiled",
		"token", token,
		"model", rendered,
		"sql", stmt.SQL,
		"terminal", string(stmt.Terminal),
		"residual", len(stmt.Residual),
	)

	rows, err := e.store.Query(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		return nil, newRuntimeError(ErrCodeQuery, token, "run statement", err)
	}
	if err := e.quota.Check(token, len(rows)); err != nil {
		return nil, newRuntimeError(ErrCodeRowLimit, token, "row quota exceeded", err)
	}

	val, err := e.evaluate(token, stmt, rows)
	if err != nil {
		return nil, err
	}

	residual := make([]string, len(stmt.Residual))
	for i, op := range stmt.Residual {
		residual[i] = op.String()
	}
	seq, err := e.store.LogQuery(ctx, store.QueryEntry{
		Token:     token,
		Model:     rendered,
		Statement: stmt.SQL,
		Args:      stmt.Args,
		Terminal:  string(stmt.Terminal),
		Residual:  residual,
		RowCount:  len(rows),
	})
	if err != nil {
		return nil, newRuntimeError(ErrCodeQuery, token, "log statement", err)
	}

	e.logger.Info("query executed",
		"token", token,
		"seq", seq,
		"rows", len(rows),
	)

	return &Result{Value: val, Model: rendered, Token: token, Statement: stmt, Seq: seq}, nil
}

// evaluate turns result rows into the query's value.
func (e *Engine) evaluate(token string, stmt *querysql.Statement, rows []map[string]any) (any, error) {
	items := make([]any, len(rows))
	for i, r := range rows {
		items[i] = stmt.Projection.Item(r)
	}

	switch stmt.Terminal {
	case querysql.TerminalCount:
		return scalarValue(items), nil
	case querysql.TerminalAny, querysql.TerminalAll:
		return truthy(scalarValue(items)), nil
	case querysql.TerminalFirst, querysql.TerminalFirstOrDefault:
		if len(items) > 0 {
			return items[0], nil
		}
		if stmt.Terminal == querysql.TerminalFirstOrDefault {
			return nil, nil
		}
		return nil, newRuntimeError(ErrCodeInMemory, token, "First()", resultop.ErrEmptySequence)
	}

	var cur any = items
	for i, op := range stmt.Residual {
		seq, ok := cur.([]any)
		if !ok {
			return nil, newRuntimeError(ErrCodeInMemory, token, op.String(),
				fmt.Errorf("operator %d expects a sequence, got %T", i, cur))
		}
		local, err := resultop.Localize(op, stmt.Selector)
		if err != nil {
			return nil, newRuntimeError(ErrCodeInMemory, token, op.String(), err)
		}
		cur, err = local.ExecuteInMemory(seq)
		if err != nil {
			return nil, newRuntimeError(ErrCodeInMemory, token, op.String(), err)
		}
		e.logger.Debug("operator executed in memory", "token", token, "operator", local.String())
	}
	return cur, nil
}

func scalarValue(items []any) any {
	if len(items) == 0 {
		return nil
	}
	return items[0]
}

func truthy(v any) bool {
	switch v := v.(type) {
	case bool:
		return v
	case int64:
		return v != 0
	case float64:
		return v != 0
	default:
		return false
	}
}
