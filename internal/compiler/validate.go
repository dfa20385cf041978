package compiler

import (
	"fmt"

	"github.com/roach88/pipeq/internal/expr"
)

// Validation error codes (E100-E199)
const (
	ErrUnknownPipeline = "E101" // source or join refers to an undefined pipeline
	ErrPipelineCycle   = "E102" // pipelines reference each other in a cycle
	ErrInvalidLambda   = "E103" // lambda text does not parse
	ErrLambdaArity     = "E104" // lambda has the wrong number of parameters
	ErrThenByOrder     = "E105" // thenBy without a preceding ordering
	ErrMissingArgument = "E106" // call lacks a required argument
	ErrUnknownOp       = "E107" // call op is not a known operator
)

// ValidationError represents a semantic error in a pipeline.
type ValidationError struct {
	Pipeline string `json:"pipeline"`
	Field    string `json:"field"`
	Message  string `json:"message"`
	Code     string `json:"code"`
	Line     int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s.%s: %s", e.Code, e.Line, e.Pipeline, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s.%s: %s", e.Code, e.Pipeline, e.Field, e.Message)
}

// Validate checks every pipeline of the set. Returns all errors found
// (does not fail-fast), ordered by pipeline name.
func Validate(pipelines map[string]*Pipeline) []ValidationError {
	var errs []ValidationError
	for _, name := range sortedNames(pipelines) {
		errs = append(errs, validatePipeline(pipelines[name], pipelines)...)
	}
	for _, c := range FindCycles(pipelines) {
		errs = append(errs, ValidationError{
			Pipeline: c.Path[0],
			Field:    "from",
			Message:  c.Message,
			Code:     ErrPipelineCycle,
		})
	}
	return errs
}

func validatePipeline(p *Pipeline, all map[string]*Pipeline) []ValidationError {
	var errs []ValidationError
	add := func(field, code, msg string, line int) {
		errs = append(errs, ValidationError{Pipeline: p.Name, Field: field, Message: msg, Code: code, Line: line})
	}
	checkSource := func(field string, s *Source) {
		if s.Pipeline != "" && all[s.Pipeline] == nil {
			add(field, ErrUnknownPipeline, fmt.Sprintf("unknown pipeline %q", s.Pipeline), s.Pos.Line())
		}
	}
	checkLambda := func(field, text string, arity, line int) {
		if text == "" {
			add(field, ErrMissingArgument, "lambda is required", line)
			return
		}
		l, err := expr.ParseLambda(text)
		if err != nil {
			add(field, ErrInvalidLambda, err.Error(), line)
			return
		}
		if len(l.Params) != arity {
			add(field, ErrLambdaArity, fmt.Sprintf("expected %d parameter(s), got %d", arity, len(l.Params)), line)
		}
	}

	checkSource("from", &p.From)
	ordered := false
	for i, c := range p.Calls {
		field := fmt.Sprintf("calls[%d]", i)
		line := c.Pos.Line()
		switch c.Op {
		case OpWhere, OpSelect, OpAll:
			checkLambda(field+".fn", c.Fn, 1, line)
		case OpOrderBy, OpOrderByDescending:
			checkLambda(field+".fn", c.Fn, 1, line)
		case OpThenBy, OpThenByDescending:
			checkLambda(field+".fn", c.Fn, 1, line)
			if !ordered {
				add(field+".op", ErrThenByOrder, fmt.Sprintf("%s must follow orderBy or thenBy", c.Op), line)
			}
		case OpAny, OpCount, OpFirst, OpFirstOrDefault:
			if c.Fn != "" {
				checkLambda(field+".fn", c.Fn, 1, line)
			}
		case OpDistinct, OpTake, OpSkip:
		case OpJoin, OpGroupJoin:
			if c.Inner == nil {
				add(field+".inner", ErrMissingArgument, "inner source is required", line)
			} else {
				checkSource(field+".inner", c.Inner)
			}
			checkLambda(field+".outerKey", c.OuterKey, 1, line)
			checkLambda(field+".innerKey", c.InnerKey, 1, line)
			checkLambda(field+".result", c.Result, 2, line)
		default:
			add(field+".op", ErrUnknownOp, fmt.Sprintf("unknown op %q", c.Op), line)
		}
		ordered = c.Op == OpOrderBy || c.Op == OpOrderByDescending ||
			c.Op == OpThenBy || c.Op == OpThenByDescending
	}
	return errs
}
