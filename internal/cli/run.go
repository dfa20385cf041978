package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/pipeq/internal/engine"
	"github.com/roach88/pipeq/internal/node"
	"github.com/roach88/pipeq/internal/store"
	"github.com/roach88/pipeq/internal/value"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database string
	Data     string
	MaxRows  int

	// Tokens allows overriding the pass token generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	Tokens node.TokenGenerator
}

// RunResult is the outcome of the run command.
type RunResult struct {
	Pipeline string `json:"pipeline"`
	Token    string `json:"token"`
	Model    string `json:"model"`
	SQL      string `json:"sql"`
	Seq      int64  `json:"seq"`
	Value    any    `json:"value"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <pipelines> <pipeline>",
		Short: "Run a pipeline against SQLite",
		Long: `Run a pipeline and print its result.

Rows come from a SQLite database (--db), from a YAML seed file mapping
table names to rows (--data), or both: seed tables are created in the
database before the query runs. Without --db an in-memory database is
used.

Example:
  pipeq run ./pipelines bigOrders --data ./seed.yaml
  pipeq run ./pipelines topBig --db ./shop.db --format json`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database")
	cmd.Flags().StringVar(&opts.Data, "data", "", "YAML seed file (table name -> rows)")
	cmd.Flags().IntVar(&opts.MaxRows, "max-rows", engine.DefaultMaxRows, "row quota per statement (0 disables)")

	return cmd
}

func runPipeline(opts *RunOptions, path, name string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := slog.Default().With("trace_id", formatter.TraceID)

	prog, err := LoadPipelines(path)
	if err != nil {
		return outputLoadError(formatter, err)
	}
	chain, err := prog.Chain(name)
	if err != nil {
		return outputModelError(formatter, prog, name, err)
	}

	var tables []store.Table
	if opts.Data != "" {
		if tables, err = LoadSeed(opts.Data); err != nil {
			return outputLoadError(formatter, err)
		}
	}

	dbPath := opts.Database
	if dbPath == "" {
		dbPath = store.MemoryPath
	}
	logger.Debug("opening database", "path", dbPath)
	st, err := store.Open(dbPath)
	if err != nil {
		_ = formatter.Error(ErrCodeGeneric, fmt.Sprintf("failed to open database: %v", err), nil)
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			logger.Error("error closing database", "error", closeErr)
		}
	}()

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	for _, t := range tables {
		logger.Debug("seeding table", "table", t.Name, "rows", len(t.Rows))
		if err := st.CreateTable(ctx, t); err != nil {
			_ = formatter.Error(ErrCodeSeedInvalid, err.Error(), map[string]string{"table": t.Name})
			return WrapExitError(ExitCommandError, "failed to seed database", err)
		}
	}

	engOpts := []engine.EngineOption{
		engine.WithMaxRows(opts.MaxRows),
		engine.WithLogger(logger),
	}
	if opts.Tokens != nil {
		engOpts = append(engOpts, engine.WithTokenGenerator(opts.Tokens))
	}
	eng := engine.New(st, engOpts...)

	res, err := eng.Run(ctx, chain)
	if err != nil {
		code := string(engine.ErrorCode(err))
		if code == "" {
			code = ErrCodeGeneric
		}
		_ = formatter.Error(code, err.Error(), map[string]string{"pipeline": name})
		return WrapExitError(ExitCommandError, code, err)
	}

	result := RunResult{
		Pipeline: name,
		Token:    res.Token,
		Model:    res.Model,
		SQL:      res.Statement.SQL,
		Seq:      res.Seq,
		Value:    res.Value,
	}
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	out, err := value.MarshalCanonical(res.Value)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to render result", err)
	}
	formatter.VerboseLog("model: %s", res.Model)
	formatter.VerboseLog("sql: %s", res.Statement.SQL)
	fmt.Fprintln(formatter.Writer, string(out))
	return nil
}
