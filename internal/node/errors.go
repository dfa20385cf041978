package node

import (
	"errors"
	"fmt"
)

// ErrChainReused is returned when a chain is generated a second time.
var ErrChainReused = errors.New("node chain has already been generated")

// ErrEmptyChain is returned when generating a chain without nodes.
var ErrEmptyChain = errors.New("node chain is empty")

// ArgumentError reports an invalid constructor argument.
type ArgumentError struct {
	// Param is the name of the offending argument, e.g. "resultSelector".
	Param string
	// Message states the expectation, e.g. "must have exactly two parameters".
	Message string
}

func (e *ArgumentError) Error() string {
	return e.Param + ": " + e.Message
}

// ResolutionError reports a mis-wired chain: a parameter that no node owns,
// a node whose clause has not been generated, a broken link. It indicates
// a front-end defect, not bad user input.
type ResolutionError struct {
	Node    ID
	Method  string
	Message string
}

func (e *ResolutionError) Error() string {
	if e.Method == "" {
		return fmt.Sprintf("resolution failed at node %d: %s", e.Node, e.Message)
	}
	return fmt.Sprintf("resolution failed at node %d (%s): %s", e.Node, e.Method, e.Message)
}

// IsResolutionError reports whether err is or wraps a ResolutionError.
func IsResolutionError(err error) bool {
	var re *ResolutionError
	return errors.As(err, &re)
}
