package compiler

import (
	"fmt"
	"slices"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/token"

	"github.com/roach88/pipeq/internal/expr"
	"github.com/roach88/pipeq/internal/model"
	"github.com/roach88/pipeq/internal/node"
)

// Program is a validated set of pipelines.
type Program struct {
	pipelines map[string]*Pipeline
}

// ValidationErrors is returned by Compile when semantic validation fails.
type ValidationErrors []ValidationError

func (errs ValidationErrors) Error() string {
	msgs := make([]string, len(errs))
	for i, e := range errs {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "; ")
}

// Compile checks root against the schema, decodes every pipeline under
// "pipeline" and validates the set.
func Compile(root cue.Value) (*Program, error) {
	if err := CheckSchema(root); err != nil {
		return nil, err
	}

	pipelines := make(map[string]*Pipeline)
	pv := root.LookupPath(cue.ParsePath("pipeline"))
	if pv.Exists() {
		iter, err := pv.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for iter.Next() {
			p, err := CompilePipeline(iter.Value())
			if err != nil {
				return nil, err
			}
			if _, dup := pipelines[p.Name]; dup {
				return nil, &CompileError{
					Field:   "pipeline." + p.Name,
					Message: "duplicate pipeline name after normalization",
					Pos:     p.Pos,
				}
			}
			pipelines[p.Name] = p
		}
	}
	if len(pipelines) == 0 {
		return nil, &CompileError{Field: "pipeline", Message: "no pipelines defined", Pos: root.Pos()}
	}

	if errs := Validate(pipelines); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}
	return &Program{pipelines: pipelines}, nil
}

// Names returns the pipeline names, sorted.
func (p *Program) Names() []string {
	return sortedNames(p.pipelines)
}

// Pipeline returns the named pipeline.
func (p *Program) Pipeline(name string) (*Pipeline, bool) {
	pl, ok := p.pipelines[name]
	return pl, ok
}

// Model builds the named pipeline's chain and generates its query model.
func (p *Program) Model(name string, opts ...node.Option) (*model.QueryModel, *node.Context, error) {
	chain, err := p.Chain(name, opts...)
	if err != nil {
		return nil, nil, err
	}
	return node.Generate(chain, opts...)
}

// Chain builds a fresh node chain for the named pipeline. Referenced
// pipelines are generated into subqueries with opts.
func (p *Program) Chain(name string, opts ...node.Option) (*node.Chain, error) {
	pl, ok := p.pipelines[name]
	if !ok {
		return nil, fmt.Errorf("unknown pipeline %q", name)
	}

	b := &chainBuilder{prog: p, pipeline: pl, chain: node.NewChain(), opts: opts}
	src, err := b.sourceExpr(&pl.From)
	if err != nil {
		return nil, err
	}
	info := b.info("from", 0, pl.From.Pos)
	info.AssociatedIdentifier = associatedIdentifier(pl)
	n, err := node.NewMainSourceNode(info, pl.From.As, expr.Type(pl.From.Type), src)
	if err := b.append(n, err, "from", pl.From.Pos); err != nil {
		return nil, err
	}

	for i, c := range pl.Calls {
		field := fmt.Sprintf("calls[%d]", i)
		n, err := b.callNode(i+1, c)
		if err := b.append(n, err, field, c.Pos); err != nil {
			return nil, err
		}
	}
	return b.chain, nil
}

type chainBuilder struct {
	prog     *Program
	pipeline *Pipeline
	chain    *node.Chain
	opts     []node.Option
}

func (b *chainBuilder) info(method string, position int, pos token.Pos) node.ParseInfo {
	info := node.ParseInfo{Method: method, Position: position}
	if pos.IsValid() {
		info.Source = pos.String()
	}
	return info
}

func (b *chainBuilder) append(n node.Node, err error, field string, pos token.Pos) error {
	if err == nil {
		_, err = b.chain.Append(n)
	}
	if err != nil {
		return &CompileError{Field: b.pipeline.Name + "." + field, Message: err.Error(), Pos: pos, Err: err}
	}
	return nil
}

func (b *chainBuilder) sourceExpr(s *Source) (expr.Expr, error) {
	if s.Table != "" {
		return expr.NewTableRef(s.Table, expr.Type(s.Type)), nil
	}
	qm, _, err := b.prog.Model(s.Pipeline, b.opts...)
	if err != nil {
		return nil, fmt.Errorf("pipeline %s: source %s: %w", b.pipeline.Name, s.Pipeline, err)
	}
	return expr.NewSubQuery(qm), nil
}

func (b *chainBuilder) callNode(position int, c Call) (node.Node, error) {
	info := b.info(c.Op, position, c.Pos)
	last := b.chain.Last()

	lambda := func(text string) (*expr.Lambda, error) {
		if text == "" {
			return nil, nil
		}
		return expr.ParseLambda(text)
	}
	fn, err := lambda(c.Fn)
	if err != nil {
		return nil, err
	}

	switch c.Op {
	case OpWhere:
		return node.NewWhereNode(info, last, fn)
	case OpSelect:
		return node.NewSelectNode(info, last, fn)
	case OpOrderBy:
		return node.NewOrderByNode(info, last, fn, model.Ascending, false)
	case OpOrderByDescending:
		return node.NewOrderByNode(info, last, fn, model.Descending, false)
	case OpThenBy:
		return node.NewOrderByNode(info, last, fn, model.Ascending, true)
	case OpThenByDescending:
		return node.NewOrderByNode(info, last, fn, model.Descending, true)
	case OpAll:
		return node.NewAllNode(info, last, fn)
	case OpAny:
		return node.NewAnyNode(info, last, fn)
	case OpCount:
		return node.NewCountNode(info, last, fn)
	case OpFirst:
		return node.NewFirstNode(info, last, fn, false)
	case OpFirstOrDefault:
		return node.NewFirstNode(info, last, fn, true)
	case OpDistinct:
		return node.NewDistinctNode(info, last)
	case OpTake:
		return node.NewTakeNode(info, last, c.Count)
	case OpSkip:
		return node.NewSkipNode(info, last, c.Count)
	case OpJoin, OpGroupJoin:
		if c.Inner == nil {
			return nil, fmt.Errorf("%s: inner source is required", c.Op)
		}
		inner, err := b.sourceExpr(c.Inner)
		if err != nil {
			return nil, err
		}
		var keys [3]*expr.Lambda
		for i, text := range []string{c.OuterKey, c.InnerKey, c.Result} {
			if keys[i], err = lambda(text); err != nil {
				return nil, err
			}
		}
		if c.Op == OpJoin {
			return node.NewJoinNode(info, last, inner, keys[0], keys[1], keys[2])
		}
		return node.NewGroupJoinNode(info, last, inner, keys[0], keys[1], keys[2])
	default:
		return nil, fmt.Errorf("unknown op %q", c.Op)
	}
}

// associatedIdentifier names the source items after the first lambda
// parameter that consumes them, falling back to the source name.
func associatedIdentifier(p *Pipeline) string {
	for _, c := range p.Calls {
		text := c.Fn
		if c.Op == OpJoin || c.Op == OpGroupJoin {
			text = c.OuterKey
		}
		if text == "" {
			continue
		}
		if l, err := expr.ParseLambda(text); err == nil && len(l.Params) > 0 {
			return l.Params[0].Name
		}
		break
	}
	if p.From.Table != "" {
		return p.From.Table
	}
	return p.From.Pipeline
}

func sortedNames(pipelines map[string]*Pipeline) []string {
	names := make([]string, 0, len(pipelines))
	for name := range pipelines {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
