package rowsource

import (
	"io"
	"sort"

	"github.com/sparqlgo/engine/algebra"
	"github.com/sparqlgo/engine/engine"
	"github.com/sparqlgo/engine/expr"
	"github.com/sparqlgo/engine/scope"
	"github.com/sparqlgo/engine/term"
)

// OrderBy implements spec §4.5's OrderBy: materializes every child row
// (sorting is inherently non-streaming), sorts by Keys in order, and
// reassigns each surviving row's Seq to its new position so a later
// Distinct/Slice still sees a stable, monotonically increasing sequence
// (spec §4.4: "row identity... OrderBy reassigns offsets after sorting").
// Ties keep their original relative order (sort.SliceStable) — the
// testable property spec §4.5 calls "stable tie-break by original row
// Seq".
type OrderBy struct {
	Keys  []algebra.OrderKey
	Inner RowSource

	rows []*Row
	pos  int
}

func NewOrderBy(keys []algebra.OrderKey, inner RowSource) *OrderBy {
	return &OrderBy{Keys: keys, Inner: inner}
}

func (o *OrderBy) EnsureVariables() *scope.Table { return o.Inner.EnsureVariables() }

func (o *OrderBy) Init(ctx *engine.Context) error {
	if err := o.Inner.Init(ctx); err != nil {
		return err
	}
	table := o.Inner.EnsureVariables()
	o.rows = o.rows[:0]
	for {
		row, err := o.Inner.ReadRow(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		o.rows = append(o.rows, row)
	}
	if err := o.Inner.Finish(ctx); err != nil {
		return err
	}
	sort.SliceStable(o.rows, func(i, j int) bool {
		return o.less(ctx, table, o.rows[i], o.rows[j])
	})
	for i, row := range o.rows {
		row.Seq = i
	}
	o.pos = 0
	return nil
}

// less compares two rows key by key; an unbound or errored key sorts as
// the ORDER BY minimum (unbound < every term, spec §4.1's sort ordering),
// consistent across both rows compared the same way.
func (o *OrderBy) less(ctx *engine.Context, table *scope.Table, a, b *Row) bool {
	for _, key := range o.Keys {
		av, aok := o.evalKey(ctx, table, key.Expr, a)
		bv, bok := o.evalKey(ctx, table, key.Expr, b)
		switch {
		case !aok && !bok:
			continue
		case !aok:
			return key.Ascending
		case !bok:
			return !key.Ascending
		}
		c, err := term.Compare(av, bv, term.ModeXQuery)
		if err != nil || c == 0 {
			continue
		}
		if key.Ascending {
			return c < 0
		}
		return c > 0
	}
	return false
}

func (o *OrderBy) evalKey(ctx *engine.Context, table *scope.Table, e algebra.Expr, row *Row) (term.Term, bool) {
	ee, ok := e.(*expr.Expr)
	if !ok || ee == nil {
		return term.Unbound, false
	}
	v, err := expr.Eval(newExprContext(ctx, row, table), ee)
	if err != nil || v.IsUnbound() {
		return term.Unbound, false
	}
	return v, true
}

func (o *OrderBy) ReadRow(ctx *engine.Context) (*Row, error) {
	if o.pos >= len(o.rows) {
		return nil, io.EOF
	}
	row := o.rows[o.pos]
	o.pos++
	return row, nil
}

func (o *OrderBy) Finish(ctx *engine.Context) error { return nil }

func (o *OrderBy) Reset(ctx *engine.Context) error {
	o.pos = 0
	return nil
}

func (o *OrderBy) HasAnyRow(ctx *engine.Context) (bool, error) { return hasAnyRow(ctx, o) }

// SetOrigin forwards to Inner when it is an OriginSetter.
func (o *OrderBy) SetOrigin(origin term.Term) { forwardOrigin(o.Inner, origin) }
