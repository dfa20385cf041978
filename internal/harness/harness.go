package harness

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/pipeq/internal/compiler"
	"github.com/roach88/pipeq/internal/engine"
	"github.com/roach88/pipeq/internal/store"
	"github.com/roach88/pipeq/internal/testutil"
)

// Harness holds the per-scenario execution state.
type Harness struct {
	store  *store.Store
	engine *engine.Engine
	logger *slog.Logger
}

// Run executes a scenario and checks its expectations.
//
// Execution:
// 1. Create a fresh in-memory database
// 2. Seed the scenario tables
// 3. Compile the pipelines and build the query's node chain
// 4. Run the chain through the engine with a fixed pass token
// 5. Compare the outcome against the expectation
//
// The returned error reports harness failures (unreadable pipelines,
// bad seed data). Pipeline and query failures are recorded on the
// result and matched against the expectation.
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	st, err := store.Open(store.MemoryPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	logger := testutil.DiscardLogger()
	opts := []engine.EngineOption{
		engine.WithTokenGenerator(testutil.NewFixedTokenGenerator(scenario.Token)),
		engine.WithLogger(logger),
	}
	if scenario.MaxRows > 0 {
		opts = append(opts, engine.WithMaxRows(scenario.MaxRows))
	}

	h := &Harness{
		store:  st,
		engine: engine.New(st, opts...),
		logger: logger,
	}

	if err := h.seed(ctx, scenario.Tables); err != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}

	result := NewResult(scenario.Name)
	h.execute(ctx, scenario, result)
	for _, msg := range CheckExpectation(result, scenario.Expect) {
		result.AddError(msg)
	}
	return result, nil
}

// RunAll runs scenarios concurrently, at most limit at a time (limit <= 0
// means no limit). Results are returned in scenario order. The first
// harness failure cancels the remaining scenarios.
func RunAll(ctx context.Context, scenarios []*Scenario, limit int) ([]*Result, error) {
	results := make([]*Result, len(scenarios))
	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, s := range scenarios {
		g.Go(func() error {
			r, err := Run(gctx, s)
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// seed creates the scenario tables in name order.
func (h *Harness) seed(ctx context.Context, tables map[string][]map[string]any) error {
	names := make([]string, 0, len(tables))
	for name := range tables {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := h.store.CreateTable(ctx, store.Table{Name: name, Rows: tables[name]}); err != nil {
			return fmt.Errorf("seed table %s: %w", name, err)
		}
	}
	return nil
}

// execute compiles and runs the scenario query, recording the outcome on
// result.
func (h *Harness) execute(ctx context.Context, scenario *Scenario, result *Result) {
	prog, err := loadProgram(scenario)
	if err != nil {
		result.Err = err
		return
	}
	chain, err := prog.Chain(scenario.Query)
	if err != nil {
		result.Err = err
		return
	}

	res, err := h.engine.Run(ctx, chain)
	if err != nil {
		result.Err = err
		return
	}
	result.Model = res.Model
	result.Token = res.Token
	result.Value = res.Value
	if res.Statement != nil {
		result.SQL = res.Statement.SQL
		result.Args = res.Statement.Args
	}
	h.logger.Debug("scenario executed", "scenario", scenario.Name, "token", res.Token, "seq", res.Seq)
}

func loadProgram(s *Scenario) (*compiler.Program, error) {
	if s.Source != "" {
		return compiler.CompileSource(s.Name+".cue", s.Source)
	}
	return compiler.LoadPath(s.Pipelines)
}
