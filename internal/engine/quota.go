package engine

import (
	"errors"
	"fmt"
)

// RowQuota bounds the number of rows a single statement may return.
//
// It guards the in-memory stage, which holds every returned item at once.
// A limit of zero or less disables the check.
type RowQuota struct {
	maxRows int
}

// NewRowQuota creates a quota with the given limit.
func NewRowQuota(maxRows int) RowQuota {
	return RowQuota{maxRows: maxRows}
}

// Check validates a statement's row count against the limit.
func (q RowQuota) Check(token string, rows int) error {
	if q.maxRows > 0 && rows > q.maxRows {
		return &RowsExceededError{Token: token, Rows: rows, Limit: q.maxRows}
	}
	return nil
}

// MaxRows returns the limit.
func (q RowQuota) MaxRows() int {
	return q.maxRows
}

// RowsExceededError is returned when a statement returns more rows than
// the quota allows.
type RowsExceededError struct {
	Token string
	Rows  int
	Limit int
}

// Error implements the error interface.
func (e *RowsExceededError) Error() string {
	return fmt.Sprintf("query %s exceeded row quota: %d rows > %d limit", e.Token, e.Rows, e.Limit)
}

// IsRowsExceededError returns true if the error is a RowsExceededError.
func IsRowsExceededError(err error) bool {
	var rx *RowsExceededError
	return errors.As(err, &rx)
}
