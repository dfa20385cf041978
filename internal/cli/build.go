package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/pipeq/internal/compiler"
	"github.com/roach88/pipeq/internal/model"
	"github.com/roach88/pipeq/internal/node"
)

// BuildOptions holds flags for the build command.
type BuildOptions struct {
	*RootOptions
	Output string // output file path

	// Tokens overrides the pass token generator (for testing).
	Tokens node.TokenGenerator
}

// BuiltModel is one rendered query model.
type BuiltModel struct {
	Pipeline string `json:"pipeline"`
	Token    string `json:"token"`
	Model    string `json:"model"`
}

// NewBuildCommand creates the build command.
func NewBuildCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &BuildOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "build <pipelines> [pipeline...]",
		Short: "Build and render query models",
		Long: `Build the query model of each named pipeline (all pipelines by default)
and render it in query-expression form.

Example:
  pipeq build ./pipelines
  pipeq build ./pipelines/orders.cue bigOrders --format json`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(opts, args[0], args[1:], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write the models as JSON to this file")

	return cmd
}

func runBuild(opts *BuildOptions, path string, names []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	prog, err := LoadPipelines(path)
	if err != nil {
		return outputLoadError(formatter, err)
	}
	if len(names) == 0 {
		names = prog.Names()
	}

	built := make([]BuiltModel, 0, len(names))
	for _, name := range names {
		formatter.VerboseLog("Building pipeline: %s", name)
		qm, token, err := buildModel(prog, name, opts.Tokens)
		if err != nil {
			return outputModelError(formatter, prog, name, err)
		}
		built = append(built, BuiltModel{Pipeline: name, Token: token, Model: qm.String()})
	}

	if opts.Output != "" {
		if err := writeModels(built, opts.Output); err != nil {
			_ = formatter.Error(ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err), nil)
			return WrapExitError(ExitCommandError, ErrCodeWriteFailed, err)
		}
	}

	if formatter.Format == "json" {
		return formatter.Success(built)
	}
	for _, b := range built {
		fmt.Fprintf(formatter.Writer, "%s: %s\n", b.Pipeline, b.Model)
	}
	if opts.Output != "" {
		fmt.Fprintf(formatter.Writer, "\nWrote %d model(s) to %s\n", len(built), opts.Output)
	}
	return nil
}

// buildModel generates the named pipeline's model. A nil generator keeps
// the default UUIDv7 tokens.
func buildModel(prog *compiler.Program, name string, tokens node.TokenGenerator) (*model.QueryModel, string, error) {
	var opts []node.Option
	if tokens != nil {
		opts = append(opts, node.WithTokenGenerator(tokens))
	}
	qm, ctx, err := prog.Model(name, opts...)
	if err != nil {
		return nil, "", err
	}
	return qm, ctx.Token, nil
}

// outputModelError reports a failure to build the named pipeline.
func outputModelError(formatter *OutputFormatter, prog *compiler.Program, name string, err error) error {
	code := ErrCodeBuildFailed
	if _, ok := prog.Pipeline(name); !ok {
		code = ErrCodeNoPipeline
	}
	_ = formatter.Error(code, err.Error(), map[string]string{"pipeline": name})
	return WrapExitError(ExitCommandError, code, err)
}

func writeModels(built []BuiltModel, filename string) error {
	data, err := json.MarshalIndent(built, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling models: %w", err)
	}
	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}
	return nil
}
