package cli

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"sort"

	"cuelang.org/go/cue/token"
	"gopkg.in/yaml.v3"

	"github.com/roach88/pipeq/internal/compiler"
	"github.com/roach88/pipeq/internal/store"
)

// Error code constants - unified across all CLI commands. Validation
// failures use the compiler's E1xx codes; runtime failures use the
// engine's error codes.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE build or schema check failed
	ErrCodeWriteFailed = "E007" // File write error
	ErrCodeSeedInvalid = "E008" // Seed data file is malformed
	ErrCodeNoPipeline  = "E009" // Query names no pipeline
)

// LoadError represents an error that occurred while loading pipelines or
// seed data.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available

	// Validation holds every semantic error when Code is a validation code.
	Validation []compiler.ValidationError
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadPipelines compiles the pipeline file or directory at path.
func LoadPipelines(path string) (*compiler.Program, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("pipeline path not found: %s", path)}
	}
	prog, err := compiler.LoadPath(path)
	if err != nil {
		return nil, classifyLoadError(err)
	}
	return prog, nil
}

// classifyLoadError maps compiler errors to CLI error codes.
func classifyLoadError(err error) *LoadError {
	var verrs compiler.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return &LoadError{
			Code:       verrs[0].Code,
			Message:    fmt.Sprintf("validation failed with %d error(s)", len(verrs)),
			Validation: verrs,
		}
	}
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{Code: ErrCodeBuildFailed, Message: compileErr.Message, Pos: compileErr.Pos}
	}
	return &LoadError{Code: ErrCodeGeneric, Message: err.Error()}
}

// LoadSeed reads a YAML seed file mapping table names to rows. Tables
// are returned sorted by name.
func LoadSeed(path string) ([]store.Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("seed file not found: %s", path)}
		}
		return nil, &LoadError{Code: ErrCodeGeneric, Message: err.Error()}
	}

	var seed map[string][]map[string]any
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	if err := decoder.Decode(&seed); err != nil {
		return nil, &LoadError{Code: ErrCodeSeedInvalid, Message: fmt.Sprintf("failed to parse seed YAML: %v", err)}
	}

	names := make([]string, 0, len(seed))
	for name := range seed {
		names = append(names, name)
	}
	sort.Strings(names)

	tables := make([]store.Table, 0, len(names))
	for _, name := range names {
		if len(seed[name]) == 0 {
			return nil, &LoadError{Code: ErrCodeSeedInvalid, Message: fmt.Sprintf("table %s has no rows", name)}
		}
		tables = append(tables, store.Table{Name: name, Rows: seed[name]})
	}
	return tables, nil
}

// outputLoadError reports a load error and returns the matching exit
// error.
func outputLoadError(formatter *OutputFormatter, err error) error {
	var loadErr *LoadError
	if !errors.As(err, &loadErr) {
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, ErrCodeGeneric, err)
	}
	if len(loadErr.Validation) > 0 {
		return outputValidationErrors(formatter, loadErr.Validation)
	}

	var details any
	if loadErr.Pos.IsValid() {
		details = fmt.Sprintf("%s:%d:%d", loadErr.Pos.Filename(), loadErr.Pos.Line(), loadErr.Pos.Column())
	}
	_ = formatter.Error(loadErr.Code, loadErr.Message, details)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", loadErr.Code, loadErr.Message))
}
