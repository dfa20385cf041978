package compiler

import (
	_ "embed"
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/token"
	"golang.org/x/text/unicode/norm"
)

//go:embed schema.cue
var schemaCUE string

// Call operations.
const (
	OpWhere             = "where"
	OpSelect            = "select"
	OpOrderBy           = "orderBy"
	OpOrderByDescending = "orderByDescending"
	OpThenBy            = "thenBy"
	OpThenByDescending  = "thenByDescending"
	OpJoin              = "join"
	OpGroupJoin         = "groupJoin"
	OpAll               = "all"
	OpAny               = "any"
	OpCount             = "count"
	OpFirst             = "first"
	OpFirstOrDefault    = "firstOrDefault"
	OpDistinct          = "distinct"
	OpTake              = "take"
	OpSkip              = "skip"
)

// Source is the start of a pipeline or the inner side of a join: either a
// table or another pipeline.
type Source struct {
	Table    string `json:"table,omitempty"`
	Pipeline string `json:"pipeline,omitempty"`
	As       string `json:"as,omitempty"`
	Type     string `json:"type,omitempty"`

	Pos token.Pos `json:"-"`
}

// Call is one operator call of a pipeline.
type Call struct {
	Op       string  `json:"op"`
	Fn       string  `json:"fn,omitempty"`
	Count    int     `json:"count,omitempty"`
	Inner    *Source `json:"inner,omitempty"`
	OuterKey string  `json:"outerKey,omitempty"`
	InnerKey string  `json:"innerKey,omitempty"`
	Result   string  `json:"result,omitempty"`

	Pos token.Pos `json:"-"`
}

// Pipeline is a named source followed by operator calls.
type Pipeline struct {
	Name  string `json:"-"`
	From  Source `json:"from"`
	Calls []Call `json:"calls"`

	Pos token.Pos `json:"-"`
}

// CheckSchema validates v, a file's root value, against the pipeline
// schema.
func CheckSchema(v cue.Value) error {
	if err := v.Err(); err != nil {
		return formatCUEError(err)
	}
	schema := v.Context().CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("pipeline schema: %w", err)
	}
	if err := schema.Unify(v).Validate(cue.Concrete(true)); err != nil {
		return formatCUEError(err)
	}
	return nil
}

// CompilePipeline decodes one pipeline value, e.g. the value at
// "pipeline.bigOrders". The pipeline's name is the last path selector.
func CompilePipeline(v cue.Value) (*Pipeline, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	p := &Pipeline{Pos: v.Pos()}
	labels := v.Path().Selectors()
	if len(labels) > 0 {
		p.Name = norm.NFC.String(labels[len(labels)-1].Unquoted())
	}

	fromVal := v.LookupPath(cue.ParsePath("from"))
	if !fromVal.Exists() {
		return nil, &CompileError{Field: "from", Message: "from is required", Pos: v.Pos()}
	}
	from, err := decodeSource(fromVal)
	if err != nil {
		return nil, err
	}
	p.From = *from

	callsVal := v.LookupPath(cue.ParsePath("calls"))
	if callsVal.Exists() {
		iter, err := callsVal.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for iter.Next() {
			call, err := decodeCall(iter.Value())
			if err != nil {
				return nil, err
			}
			p.Calls = append(p.Calls, *call)
		}
	}

	return p, nil
}

func decodeSource(v cue.Value) (*Source, error) {
	s := &Source{Pos: v.Pos()}
	var err error
	if s.Table, err = optString(v, "table"); err != nil {
		return nil, err
	}
	if s.Pipeline, err = optString(v, "pipeline"); err != nil {
		return nil, err
	}
	if s.As, err = optString(v, "as"); err != nil {
		return nil, err
	}
	if s.Type, err = optString(v, "type"); err != nil {
		return nil, err
	}
	if s.Table == "" && s.Pipeline == "" {
		return nil, &CompileError{Field: "source", Message: "either table or pipeline is required", Pos: s.Pos}
	}
	if s.Table != "" && s.Pipeline != "" {
		return nil, &CompileError{Field: "source", Message: "table and pipeline are mutually exclusive", Pos: s.Pos}
	}
	return s, nil
}

func decodeCall(v cue.Value) (*Call, error) {
	c := &Call{Pos: v.Pos()}
	var err error
	if c.Op, err = optString(v, "op"); err != nil {
		return nil, err
	}
	if c.Op == "" {
		return nil, &CompileError{Field: "op", Message: "op is required", Pos: c.Pos}
	}
	for field, dst := range map[string]*string{
		"fn":       &c.Fn,
		"outerKey": &c.OuterKey,
		"innerKey": &c.InnerKey,
		"result":   &c.Result,
	} {
		if *dst, err = optString(v, field); err != nil {
			return nil, err
		}
	}
	if cv := v.LookupPath(cue.ParsePath("count")); cv.Exists() {
		n, err := cv.Int64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		c.Count = int(n)
	}
	if iv := v.LookupPath(cue.ParsePath("inner")); iv.Exists() {
		if c.Inner, err = decodeSource(iv); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// optString returns the NFC-normalized string at field, or "" when the
// field is absent.
func optString(v cue.Value, field string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return "", nil
	}
	s, err := fv.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return norm.NFC.String(s), nil
}
