package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/pipeq/internal/engine"
	"github.com/roach88/pipeq/internal/querysql"
	"github.com/roach88/pipeq/internal/value"
)

// StatementResult describes a compiled statement.
type StatementResult struct {
	Pipeline string   `json:"pipeline"`
	Model    string   `json:"model"`
	SQL      string   `json:"sql"`
	Args     []any    `json:"args"`
	Terminal string   `json:"terminal,omitempty"`
	Residual []string `json:"residual,omitempty"`
}

// NewSQLCommand creates the sql command.
func NewSQLCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sql <pipelines> <pipeline>",
		Short: "Show the SQL statement for a pipeline",
		Long: `Compile a pipeline's query model to SQLite SQL without running it.

Result operators that cannot be folded into the statement are listed as
residual; they run in memory over the statement's rows.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSQL(rootOpts, args[0], args[1], cmd)
		},
	}

	return cmd
}

func runSQL(opts *RootOptions, path, name string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	prog, err := LoadPipelines(path)
	if err != nil {
		return outputLoadError(formatter, err)
	}
	qm, _, err := buildModel(prog, name, nil)
	if err != nil {
		return outputModelError(formatter, prog, name, err)
	}

	stmt, err := querysql.Compile(qm)
	if err != nil {
		code := string(engine.ErrCodeCompile)
		_ = formatter.Error(code, err.Error(), map[string]string{"model": qm.String()})
		return WrapExitError(ExitCommandError, code, err)
	}

	result := StatementResult{
		Pipeline: name,
		Model:    qm.String(),
		SQL:      stmt.SQL,
		Args:     stmt.Args,
		Terminal: string(stmt.Terminal),
	}
	if result.Args == nil {
		result.Args = []any{}
	}
	for _, op := range stmt.Residual {
		result.Residual = append(result.Residual, op.String())
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	fmt.Fprintln(formatter.Writer, result.SQL)
	if len(result.Args) > 0 {
		args, err := value.MarshalCanonical(result.Args)
		if err != nil {
			return err
		}
		fmt.Fprintf(formatter.Writer, "-- args: %s\n", args)
	}
	for _, r := range result.Residual {
		fmt.Fprintf(formatter.Writer, "-- in memory: %s\n", r)
	}
	return nil
}
