package engine

import (
	"errors"
	"fmt"
)

// RuntimeError represents an error detected while executing a query.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// Token identifies the generation pass of the failing model.
	Token string

	// Err is the underlying cause.
	Err error
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeGenerate indicates the node chain could not be turned into a model.
	ErrCodeGenerate RuntimeErrorCode = "GENERATE_FAILED"

	// ErrCodeCompile indicates the model has no SQL translation.
	ErrCodeCompile RuntimeErrorCode = "COMPILE_FAILED"

	// ErrCodeQuery indicates the statement failed in the store.
	ErrCodeQuery RuntimeErrorCode = "QUERY_FAILED"

	// ErrCodeRowLimit indicates the statement returned too many rows.
	ErrCodeRowLimit RuntimeErrorCode = "ROW_LIMIT_EXCEEDED"

	// ErrCodeInMemory indicates a residual result operator failed.
	ErrCodeInMemory RuntimeErrorCode = "IN_MEMORY_FAILED"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Token != "" {
		msg += fmt.Sprintf(" (token=%s)", e.Token)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// IsRowLimitError returns true if the error is a row limit error.
// Matches both RuntimeError with ErrCodeRowLimit and RowsExceededError.
func IsRowLimitError(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) && re.Code == ErrCodeRowLimit {
		return true
	}
	var rx *RowsExceededError
	return errors.As(err, &rx)
}

// ErrorCode returns the code of the outermost RuntimeError in err's chain,
// or "" when there is none.
func ErrorCode(err error) RuntimeErrorCode {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code
	}
	return ""
}

func newRuntimeError(code RuntimeErrorCode, token, message string, err error) *RuntimeError {
	return &RuntimeError{Code: code, Message: message, Token: token, Err: err}
}
