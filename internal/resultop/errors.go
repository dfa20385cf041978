package resultop

import (
	"errors"
	"fmt"
)

// ErrNotLocallyEvaluable is matched by every NotLocallyEvaluableError.
var ErrNotLocallyEvaluable = errors.New("result operator is not locally evaluable")

// ErrEmptySequence is returned by First on an empty input.
var ErrEmptySequence = errors.New("sequence contains no elements")

// NotLocallyEvaluableError reports that an operator's expression still
// depends on a query source and can only run as part of a translated
// query.
type NotLocallyEvaluableError struct {
	// Operator is the rendered operator, e.g. "All(i => (i > [x]))".
	Operator string
	// Field names the expression that cannot be evaluated.
	Field string
	Err   error
}

func (e *NotLocallyEvaluableError) Error() string {
	return fmt.Sprintf("cannot execute the result operator '%s' in memory because the %s cannot be evaluated",
		e.Operator, e.Field)
}

func (e *NotLocallyEvaluableError) Unwrap() error {
	return e.Err
}

// Is matches ErrNotLocallyEvaluable.
func (e *NotLocallyEvaluableError) Is(target error) bool {
	return target == ErrNotLocallyEvaluable
}
