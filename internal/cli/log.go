package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/pipeq/internal/store"
)

// LogOptions holds flags for the log command.
type LogOptions struct {
	*RootOptions
	Database string
}

// LogEntry is one executed statement in the query log.
type LogEntry struct {
	Seq      int64           `json:"seq"`
	Token    string          `json:"token"`
	Model    string          `json:"model"`
	SQL      string          `json:"sql"`
	Args     json.RawMessage `json:"args"`
	Terminal string          `json:"terminal,omitempty"`
	Residual json.RawMessage `json:"residual"`
	RowCount int             `json:"row_count"`
}

// LogResult holds the log command output.
type LogResult struct {
	Token   string     `json:"token,omitempty"`
	Entries []LogEntry `json:"entries"`
	Total   int        `json:"total"`
}

// NewLogCommand creates the log command.
func NewLogCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LogOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "log [token]",
		Short: "Show executed queries",
		Long: `Show the statements recorded in a database's query log.

Every pipeline run against --db appends its statement under the pass
token. Without a token all entries are listed in execution order.

Examples:
  pipeq log --db ./shop.db
  pipeq log 01932f6e-7c1a-7b52-9d3e-5f1a2b3c4d5e --db ./shop.db
  pipeq log --db ./shop.db --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			token := ""
			if len(args) == 1 {
				token = args[0]
			}
			return runLog(opts, token, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runLog(opts *LogOptions, token string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	// Opening a missing path would create an empty database.
	if _, err := os.Stat(opts.Database); os.IsNotExist(err) {
		msg := fmt.Sprintf("database not found: %s", opts.Database)
		_ = formatter.Error(ErrCodeNotFound, msg, nil)
		return NewExitError(ExitCommandError, msg)
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		_ = formatter.Error(ErrCodeGeneric, fmt.Sprintf("failed to open database: %v", err), nil)
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	records, err := st.ReadQueryLog(ctx, token)
	if err != nil {
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to read query log", err)
	}

	result := LogResult{Token: token, Entries: make([]LogEntry, 0, len(records)), Total: len(records)}
	for _, r := range records {
		result.Entries = append(result.Entries, LogEntry{
			Seq:      r.Seq,
			Token:    r.Token,
			Model:    r.Model,
			SQL:      r.Statement,
			Args:     json.RawMessage(r.Args),
			Terminal: r.Terminal,
			Residual: json.RawMessage(r.Residual),
			RowCount: r.RowCount,
		})
	}
	formatter.VerboseLog("Read %d query log entries from %s", len(records), opts.Database)

	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	w := formatter.Writer
	if len(records) == 0 {
		if token != "" {
			fmt.Fprintf(w, "No queries found for token: %s\n", token)
		} else {
			fmt.Fprintln(w, "No queries found.")
		}
		return nil
	}
	for _, e := range result.Entries {
		terminal := e.Terminal
		if terminal == "" {
			terminal = "-"
		}
		fmt.Fprintf(w, "%d %s %s %d %s\n", e.Seq, e.Token, terminal, e.RowCount, e.SQL)
		formatter.VerboseLog("  model: %s", e.Model)
		formatter.VerboseLog("  args: %s", e.Args)
	}
	return nil
}
