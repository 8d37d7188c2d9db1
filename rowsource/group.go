package rowsource

import (
	"io"
	"strconv"
	"strings"

	"github.com/sparqlgo/engine/algebra"
	"github.com/sparqlgo/engine/engine"
	"github.com/sparqlgo/engine/expr"
	"github.com/sparqlgo/engine/scope"
	"github.com/sparqlgo/engine/term"
)

// groupBucket accumulates one GROUP BY bucket: a representative row (the
// first seen, which already carries every ordinary column including any
// plain-variable group key's bound value) plus the per-aggregate running
// state.
type groupBucket struct {
	rep   *Row
	count int
	state []aggState
}

// aggState is one AggregateCall's accumulator. Exactly the fields its
// Function needs are meaningful; seen is shared by every function that
// needs to distinguish "no input row yet" from "input row was Unbound".
type aggState struct {
	seen      bool
	sum       float64
	count     int
	min, max  term.Term
	sample    term.Term
	parts     []string
	distinct  map[string]bool
}

// Group implements spec §4.5's Group: materializes Inner, buckets by
// GroupKeys (evaluated per row, joined into a string key — term.Term's
// exported accessors make every term unambiguously serializable), and
// computes COUNT/SUM/AVG/MIN/MAX/SAMPLE/GROUP_CONCAT over each bucket. A
// query with no GROUP BY clause but an aggregate select list is the
// single-bucket case: the planner hands Group an empty GroupKeys and this
// still produces exactly one output row (ensured by seeding one empty-key
// bucket up front when Inner produces no rows at all would otherwise
// suppress it — SPARQL's COUNT(*) over zero matching rows is 0, not "no
// rows").
type Group struct {
	GroupKeys  []algebra.Expr
	Aggregates []algebra.AggregateCall
	Inner      RowSource

	table   *scope.Table
	buckets []*groupBucket
	byKey   map[string]*groupBucket
	pos     int
}

func NewGroup(keys []algebra.Expr, aggs []algebra.AggregateCall, inner RowSource) *Group {
	return &Group{GroupKeys: keys, Aggregates: aggs, Inner: inner}
}

func (g *Group) EnsureVariables() *scope.Table { return g.Inner.EnsureVariables() }

func (g *Group) Init(ctx *engine.Context) error {
	if err := g.Inner.Init(ctx); err != nil {
		return err
	}
	g.table = g.Inner.EnsureVariables()
	g.buckets = nil
	g.byKey = make(map[string]*groupBucket)

	for {
		row, err := g.Inner.ReadRow(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		key := g.keyFor(ctx, row)
		b, ok := g.byKey[key]
		if !ok {
			b = &groupBucket{rep: row, state: make([]aggState, len(g.Aggregates))}
			for i := range b.state {
				b.state[i].distinct = make(map[string]bool)
			}
			g.byKey[key] = b
			g.buckets = append(g.buckets, b)
		}
		b.count++
		for i, agg := range g.Aggregates {
			g.accumulate(ctx, &b.state[i], agg, row)
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	if err := g.Inner.Finish(ctx); err != nil {
		return err
	}

	if len(g.buckets) == 0 && len(g.GroupKeys) == 0 {
		rep := scope.NewRow(g.table.Width(), 0)
		b := &groupBucket{rep: rep, state: make([]aggState, len(g.Aggregates))}
		for i := range b.state {
			b.state[i].distinct = make(map[string]bool)
		}
		g.buckets = append(g.buckets, b)
	}

	for _, b := range g.buckets {
		for i, agg := range g.Aggregates {
			b.rep.Set(agg.Out.Offset, g.finalize(&b.state[i], agg))
		}
	}
	g.pos = 0
	return nil
}

func (g *Group) keyFor(ctx *engine.Context, row *Row) string {
	if len(g.GroupKeys) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, k := range g.GroupKeys {
		v, ok := g.evalKey(ctx, k, row)
		sb.WriteByte(0)
		if !ok {
			sb.WriteString("#unbound")
			continue
		}
		sb.WriteString(v.String())
	}
	return sb.String()
}

func (g *Group) evalKey(ctx *engine.Context, e algebra.Expr, row *Row) (term.Term, bool) {
	ee, ok := e.(*expr.Expr)
	if !ok || ee == nil {
		return term.Unbound, false
	}
	v, err := expr.Eval(newExprContext(ctx, row, g.table), ee)
	if err != nil || v.IsUnbound() {
		return term.Unbound, false
	}
	return v, true
}

func (g *Group) accumulate(ctx *engine.Context, st *aggState, agg algebra.AggregateCall, row *Row) {
	var v term.Term
	ok := true
	if agg.Arg != nil {
		v, ok = g.evalKey(ctx, agg.Arg, row)
	}
	if agg.Function != "COUNT" && !ok {
		return
	}
	if agg.Distinct {
		key := "*"
		if agg.Arg != nil {
			key = v.String()
		} else {
			key = rowKey(row)
		}
		if st.distinct[key] {
			return
		}
		st.distinct[key] = true
	}

	switch agg.Function {
	case "COUNT":
		if agg.Arg == nil || ok {
			st.count++
		}
	case "SUM", "AVG":
		dv, derr := term.ToDouble(v)
		if derr != nil {
			return
		}
		fv, ferr := strconv.ParseFloat(dv.Lexical(), 64)
		if ferr == nil {
			st.sum += fv
			st.count++
		}
	case "MIN":
		if !st.seen {
			st.min = v
			st.seen = true
		} else if c, err := term.Compare(v, st.min, term.ModeXQuery); err == nil && c < 0 {
			st.min = v
		}
	case "MAX":
		if !st.seen {
			st.max = v
			st.seen = true
		} else if c, err := term.Compare(v, st.max, term.ModeXQuery); err == nil && c > 0 {
			st.max = v
		}
	case "SAMPLE":
		if !st.seen {
			st.sample = v
			st.seen = true
		}
	case "GROUP_CONCAT":
		st.parts = append(st.parts, v.Lexical())
	}
}

func rowKey(row *Row) string {
	var sb strings.Builder
	for _, v := range row.Values {
		sb.WriteByte(0)
		sb.WriteString(v.String())
	}
	return sb.String()
}

func (g *Group) finalize(st *aggState, agg algebra.AggregateCall) term.Term {
	switch agg.Function {
	case "COUNT":
		return term.NewLiteral(strconv.Itoa(st.count), "", term.XSDInteger)
	case "SUM":
		if st.count == 0 {
			return term.NewLiteral("0", "", term.XSDInteger)
		}
		return term.NewLiteral(strconv.FormatFloat(st.sum, 'g', -1, 64), "", term.XSDDecimal)
	case "AVG":
		if st.count == 0 {
			return term.NewLiteral("0", "", term.XSDInteger)
		}
		return term.NewLiteral(strconv.FormatFloat(st.sum/float64(st.count), 'g', -1, 64), "", term.XSDDecimal)
	case "MIN":
		if !st.seen {
			return term.Unbound
		}
		return st.min
	case "MAX":
		if !st.seen {
			return term.Unbound
		}
		return st.max
	case "SAMPLE":
		if !st.seen {
			return term.Unbound
		}
		return st.sample
	case "GROUP_CONCAT":
		sep := agg.Separator
		if sep == "" {
			sep = " "
		}
		return term.NewSimpleLiteral(strings.Join(st.parts, sep))
	default:
		return term.Unbound
	}
}

func (g *Group) Finish(ctx *engine.Context) error { return nil }

func (g *Group) ReadRow(ctx *engine.Context) (*Row, error) {
	if g.pos >= len(g.buckets) {
		return nil, io.EOF
	}
	row := g.buckets[g.pos].rep
	g.pos++
	return row, nil
}

func (g *Group) Reset(ctx *engine.Context) error {
	g.pos = 0
	return nil
}

func (g *Group) HasAnyRow(ctx *engine.Context) (bool, error) { return len(g.buckets) > 0, nil }

// SetOrigin forwards to Inner when it is an OriginSetter.
func (g *Group) SetOrigin(origin term.Term) { forwardOrigin(g.Inner, origin) }
