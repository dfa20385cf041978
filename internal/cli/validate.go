package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/pipeq/internal/compiler"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid     bool                       `json:"valid"`
	Pipelines []string                   `json:"pipelines,omitempty"`
	Errors    []compiler.ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <pipelines>",
		Short: "Validate pipeline definitions",
		Long: `Validate CUE pipeline definitions without building any query model.

Checks the schema, lambda syntax and arity, call ordering, and references
between pipelines (unknown names and cycles).`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	prog, err := LoadPipelines(path)
	if err != nil {
		return outputLoadError(formatter, err)
	}

	names := prog.Names()
	formatter.VerboseLog("Validated %d pipeline(s) in %s", len(names), path)

	if formatter.Format == "json" {
		return formatter.Success(ValidationResult{Valid: true, Pipelines: names})
	}
	fmt.Fprintf(formatter.Writer, "✓ %d pipeline(s) valid\n", len(names))
	return nil
}

// outputValidationErrors outputs multiple validation errors.
func outputValidationErrors(formatter *OutputFormatter, errs []compiler.ValidationError) error {
	if formatter.Format == "json" {
		response := CLIResponse{
			Status: "error",
			Data:   ValidationResult{Valid: false, Errors: errs},
			Error: &CLIError{
				Code:    errs[0].Code,
				Message: errs[0].Message,
			},
		}
		if err := formatter.JSON(response); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		if err.Line > 0 {
			fmt.Fprintf(formatter.Writer, "line %d\n", err.Line)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s.%s: %s\n\n", err.Code, err.Pipeline, err.Field, err.Message)
	}

	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}
