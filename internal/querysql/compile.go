package querysql

import (
	"fmt"
	"math"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/roach88/pipeq/internal/expr"
	"github.com/roach88/pipeq/internal/model"
	"github.com/roach88/pipeq/internal/resultop"
)

// Compile translates qm into a SQLite statement.
func Compile(qm *model.QueryModel) (*Statement, error) {
	if qm == nil {
		return nil, fmt.Errorf("cannot compile nil query model")
	}
	c := &compiler{sources: make(map[expr.QuerySource]Projection)}
	p, err := c.compileQuery(qm)
	if err != nil {
		return nil, err
	}

	st := &Statement{Projection: p.proj, Selector: qm.SelectClause.Selector}
	qb := p.builder()
	rest := p.rest
	if len(rest) > 0 {
		switch op := rest[0].(type) {
		case *resultop.Count:
			qb = sq.Select(`COUNT(*) AS "value"`).FromSelect(qb, `"_q"`)
			st.Terminal, rest = TerminalCount, rest[1:]
		case *resultop.Any:
			qb, err = existsQuery(qb, false)
			st.Terminal, rest = TerminalAny, rest[1:]
		case *resultop.All:
			if next, ok := c.allQuery(p, op); ok {
				qb = next
				st.Terminal, rest = TerminalAll, rest[1:]
			}
		case *resultop.First:
			if !p.limited || p.limitN > 1 {
				p.limitN = 1
			}
			p.limited = true
			qb = p.builder()
			st.Terminal, rest = TerminalFirst, rest[1:]
			if op.OrDefault {
				st.Terminal = TerminalFirstOrDefault
			}
		}
		if err != nil {
			return nil, err
		}
	}
	if st.Terminal != TerminalNone && len(rest) > 0 {
		return nil, fmt.Errorf("%w: %s after %s", ErrUnsupported, rest[0], st.Terminal)
	}
	st.Residual = rest
	if st.Terminal == TerminalCount || st.Terminal == TerminalAny || st.Terminal == TerminalAll {
		st.Projection = Projection{Kind: ProjectValue}
	}

	st.SQL, st.Args, err = qb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("render SQL: %w", err)
	}
	return st, nil
}

type compiler struct {
	// sources records how each query source's rows are shaped.
	sources map[expr.QuerySource]Projection
}

// plan is a compiled SELECT with its paging stages held apart so that
// later result operators can still adjust them.
type plan struct {
	qb       sq.SelectBuilder
	proj     Projection
	distinct bool
	limited  bool
	limitN   uint64
	offset   uint64
	rest     []model.ResultOperator
}

func (p *plan) paged() bool {
	return p.distinct || p.limited || p.offset > 0
}

func (p *plan) builder() sq.SelectBuilder {
	qb := p.qb
	if p.distinct {
		qb = qb.Distinct()
	}
	switch {
	case p.limited:
		qb = qb.Limit(p.limitN)
	case p.offset > 0:
		// SQLite only accepts OFFSET after LIMIT.
		qb = qb.Limit(math.MaxInt64)
	}
	if p.offset > 0 {
		qb = qb.Offset(p.offset)
	}
	return qb
}

func (c *compiler) compileQuery(qm *model.QueryModel) (*plan, error) {
	from, err := c.compileFrom(qm.MainFromClause)
	if err != nil {
		return nil, err
	}
	qb := sq.Select().PlaceholderFormat(sq.Question)
	qb, err = from(qb)
	if err != nil {
		return nil, err
	}

	var orderings [][]model.Ordering
	for _, bc := range qm.BodyClauses {
		switch bc := bc.(type) {
		case *model.WhereClause:
			sqlText, args, err := c.scalar(bc.Predicate)
			if err != nil {
				return nil, fmt.Errorf("where: %w", err)
			}
			qb = qb.Where(sq.Expr(sqlText, args...))
		case *model.JoinClause:
			qb, err = c.compileJoin(qb, bc)
			if err != nil {
				return nil, err
			}
		case *model.GroupJoinClause:
			return nil, fmt.Errorf("%w: group join %q", ErrUnsupported, bc.Name)
		case *model.OrderByClause:
			orderings = append(orderings, bc.Orderings)
		default:
			return nil, fmt.Errorf("%w: body clause %T", ErrUnsupported, bc)
		}
	}

	// A later order by is the major sort; earlier ones break ties.
	for i := len(orderings) - 1; i >= 0; i-- {
		for _, o := range orderings[i] {
			sqlText, args, err := c.scalar(o.Expression)
			if err != nil {
				return nil, fmt.Errorf("order by: %w", err)
			}
			qb = qb.OrderByClause(sqlText+" "+strings.ToUpper(string(o.Direction)), args...)
		}
	}

	qb, proj, err := c.compileSelect(qb, qm.SelectClause.Selector)
	if err != nil {
		return nil, err
	}
	p := &plan{qb: qb, proj: proj}
	p.rest = p.absorbStages(qm.ResultOperators)
	return p, nil
}

// absorbStages folds leading Distinct, Skip and Take operators into p and
// returns the operators it could not fold.
func (p *plan) absorbStages(ops []model.ResultOperator) []model.ResultOperator {
	for i, op := range ops {
		switch op := op.(type) {
		case *resultop.Distinct:
			if p.paged() {
				return ops[i:]
			}
			p.distinct = true
		case *resultop.Skip:
			n := uint64(max(op.Count, 0))
			if p.limited {
				p.limitN -= min(n, p.limitN)
			}
			p.offset += n
		case *resultop.Take:
			n := uint64(max(op.Count, 0))
			if !p.limited || n < p.limitN {
				p.limitN = n
			}
			p.limited = true
		default:
			return ops[i:]
		}
	}
	return nil
}

type fromFunc func(sq.SelectBuilder) (sq.SelectBuilder, error)

func (c *compiler) compileFrom(from *model.MainFromClause) (fromFunc, error) {
	alias := quoteIdent(from.Name)
	switch src := from.FromExpression.(type) {
	case *expr.TableRef:
		c.sources[from] = Projection{Kind: ProjectRow}
		return func(qb sq.SelectBuilder) (sq.SelectBuilder, error) {
			return qb.From(quoteIdent(src.Name) + " AS " + alias), nil
		}, nil
	case *expr.SubQuery:
		inner, err := c.subquery(src)
		if err != nil {
			return nil, err
		}
		c.sources[from] = inner.proj
		return func(qb sq.SelectBuilder) (sq.SelectBuilder, error) {
			return qb.FromSelect(inner.builder(), alias), nil
		}, nil
	default:
		return nil, fmt.Errorf("%w: from %s", ErrUnsupported, expr.Format(from.FromExpression))
	}
}

func (c *compiler) compileJoin(qb sq.SelectBuilder, jc *model.JoinClause) (sq.SelectBuilder, error) {
	outer, outerArgs, err := c.scalar(jc.OuterKeySelector)
	if err != nil {
		return qb, fmt.Errorf("join %s outer key: %w", jc.Name, err)
	}

	var target string
	var args []any
	switch src := jc.InnerSequence.(type) {
	case *expr.TableRef:
		target = quoteIdent(src.Name)
		c.sources[jc] = Projection{Kind: ProjectRow}
	case *expr.SubQuery:
		inner, err := c.subquery(src)
		if err != nil {
			return qb, err
		}
		innerSQL, innerArgs, err := inner.builder().ToSql()
		if err != nil {
			return qb, fmt.Errorf("join %s: %w", jc.Name, err)
		}
		target, args = "("+innerSQL+")", innerArgs
		c.sources[jc] = inner.proj
	default:
		return qb, fmt.Errorf("%w: join over %s", ErrUnsupported, expr.Format(jc.InnerSequence))
	}

	innerKey, innerArgs, err := c.scalar(jc.InnerKeySelector)
	if err != nil {
		return qb, fmt.Errorf("join %s inner key: %w", jc.Name, err)
	}
	args = append(append(args, outerArgs...), innerArgs...)
	return qb.Join(fmt.Sprintf("%s AS %s ON %s = %s", target, quoteIdent(jc.Name), outer, innerKey), args...), nil
}

func (c *compiler) subquery(sub *expr.SubQuery) (*plan, error) {
	qm, ok := sub.Query.(*model.QueryModel)
	if !ok {
		return nil, fmt.Errorf("%w: subquery of type %T", ErrUnsupported, sub.Query)
	}
	p, err := c.compileQuery(qm)
	if err != nil {
		return nil, err
	}
	if len(p.rest) > 0 {
		return nil, fmt.Errorf("%w: subquery ending in %s", ErrUnsupported, p.rest[0])
	}
	return p, nil
}

func (c *compiler) compileSelect(qb sq.SelectBuilder, selector expr.Expr) (sq.SelectBuilder, Projection, error) {
	selector = reduceMembers(selector)
	switch sel := selector.(type) {
	case *expr.QuerySourceRef:
		proj, ok := c.sources[sel.Source]
		if !ok {
			return qb, Projection{}, fmt.Errorf("%w: unknown source [%s]", ErrUnsupported, sel.Source.ItemName())
		}
		if proj.Kind == ProjectValue {
			return qb.Column(quoteIdent(sel.Source.ItemName()) + "." + quoteIdent(valueColumn) + ` AS "value"`), proj, nil
		}
		return qb.Column(quoteIdent(sel.Source.ItemName()) + ".*"), proj, nil
	case *expr.New:
		fields := make([]string, 0, len(sel.Fields))
		for _, f := range sel.Fields {
			sqlText, args, err := c.scalar(f.Value)
			if err != nil {
				return qb, Projection{}, fmt.Errorf("select %s: %w", f.Name, err)
			}
			qb = qb.Column(sqlText+" AS "+quoteIdent(f.Name), args...)
			fields = append(fields, f.Name)
		}
		return qb, Projection{Kind: ProjectObject, Fields: fields}, nil
	default:
		sqlText, args, err := c.scalar(sel)
		if err != nil {
			return qb, Projection{}, fmt.Errorf("select: %w", err)
		}
		return qb.Column(sqlText+` AS "value"`, args...), Projection{Kind: ProjectValue}, nil
	}
}

func existsQuery(qb sq.SelectBuilder, negate bool) (sq.SelectBuilder, error) {
	innerSQL, args, err := qb.ToSql()
	if err != nil {
		return qb, err
	}
	op := "EXISTS"
	if negate {
		op = "NOT EXISTS"
	}
	return sq.Select().Column(sq.Alias(sq.Expr(op+" ("+innerSQL+")", args...), `"value"`)), nil
}

// allQuery renders All as NOT EXISTS over the items failing the predicate.
// A predicate that evaluates to NULL counts as failing.
// It reports false when the operator has to run in memory instead.
func (c *compiler) allQuery(p *plan, op *resultop.All) (sq.SelectBuilder, bool) {
	if p.paged() {
		return p.qb, false
	}
	if _, ok := op.Predicate.(*expr.Lambda); ok {
		return p.qb, false
	}
	pred, args, err := c.scalar(op.Predicate)
	if err != nil {
		return p.qb, false
	}
	qb, err := existsQuery(p.qb.Where(sq.Expr("NOT COALESCE("+pred+", 0)", args...)), true)
	if err != nil {
		return p.qb, false
	}
	return qb, true
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
