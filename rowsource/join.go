package rowsource

import (
	"io"

	"github.com/sparqlgo/engine/algebra"
	"github.com/sparqlgo/engine/engine"
	"github.com/sparqlgo/engine/scope"
	"github.com/sparqlgo/engine/term"
)

// mergeRows attempts to combine l and r into one row: every position r
// binds is copied onto a clone of l, failing if a position both sides bind
// disagrees (SPARQL join compatibility). Offsets are shared process-wide
// (scope.Table.Copy preserves Variable identity across the whole scope
// tree), so no table-indirected translation is needed between l's and r's
// schemas.
func mergeRows(l, r *Row) (*Row, bool) {
	compatible, _ := rowCompatible(l, r)
	if !compatible {
		return nil, false
	}
	out := l.Clone()
	for offset, rv := range r.Values {
		if !rv.IsUnbound() && out.Get(offset).IsUnbound() {
			out.Set(offset, rv)
		}
	}
	return out, true
}

// bufferRight materializes a non-Resettable RowSource once and replays it
// from memory on every Reset, the automatic wrapping spec §4.5 calls for
// when a Join's right-hand side cannot rewind itself.
type bufferRight struct {
	Inner RowSource
	rows  []*Row
	pos   int
}

func asResettable(rs RowSource) RowSource {
	if _, ok := rs.(Resettable); ok {
		return rs
	}
	return &bufferRight{Inner: rs}
}

func (b *bufferRight) Init(ctx *engine.Context) error {
	if err := b.Inner.Init(ctx); err != nil {
		return err
	}
	for {
		row, err := b.Inner.ReadRow(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		b.rows = append(b.rows, row)
	}
	return b.Inner.Finish(ctx)
}

func (b *bufferRight) EnsureVariables() *scope.Table { return b.Inner.EnsureVariables() }

func (b *bufferRight) Finish(ctx *engine.Context) error { return nil }

func (b *bufferRight) Reset(ctx *engine.Context) error {
	b.pos = 0
	return nil
}

func (b *bufferRight) ReadRow(ctx *engine.Context) (*Row, error) {
	if b.pos >= len(b.rows) {
		return nil, io.EOF
	}
	row := b.rows[b.pos]
	b.pos++
	return row, nil
}

// reinitRight is the Reset a correlated Diff/EXISTS right-hand side needs:
// Seed changes what the next scan should constrain on, so a cached replay
// buffer (bufferRight) would serve stale rows. Reset here tears the whole
// subtree down and brings it back up fresh, regardless of whether Inner
// itself implements a cheaper native Reset.
type reinitRight struct {
	Inner RowSource
}

func asReinitResettable(rs RowSource) *reinitRight {
	return &reinitRight{Inner: rs}
}

func (r *reinitRight) Init(ctx *engine.Context) error        { return r.Inner.Init(ctx) }
func (r *reinitRight) EnsureVariables() *scope.Table         { return r.Inner.EnsureVariables() }
func (r *reinitRight) Finish(ctx *engine.Context) error       { return r.Inner.Finish(ctx) }
func (r *reinitRight) ReadRow(ctx *engine.Context) (*Row, error) { return r.Inner.ReadRow(ctx) }

func (r *reinitRight) Reset(ctx *engine.Context) error {
	if err := r.Inner.Finish(ctx); err != nil {
		return err
	}
	return r.Inner.Init(ctx)
}

func (r *reinitRight) Seed(vars []*scope.Variable, values *Row) {
	if s, ok := r.Inner.(Seedable); ok {
		s.Seed(vars, values)
	}
}

// Join implements spec §4.5's nested-loop Join: for each left row, reset
// the (possibly auto-buffered) right rowsource and stream every
// join-compatible merged row.
type Join struct {
	Left, Right RowSource

	right   RowSource
	lrow    *Row
	started bool
}

func NewJoin(left, right RowSource) *Join {
	return &Join{Left: left, Right: right}
}

func (j *Join) Init(ctx *engine.Context) error {
	j.right = asResettable(j.Right)
	if err := j.Left.Init(ctx); err != nil {
		return err
	}
	return j.right.Init(ctx)
}

func (j *Join) EnsureVariables() *scope.Table {
	return j.Left.EnsureVariables().Merge(j.Right.EnsureVariables())
}

func (j *Join) Finish(ctx *engine.Context) error {
	err1 := j.Left.Finish(ctx)
	err2 := j.right.Finish(ctx)
	if err1 != nil {
		return err1
	}
	return err2
}

func (j *Join) ReadRow(ctx *engine.Context) (*Row, error) {
	for {
		if !j.started {
			row, err := j.Left.ReadRow(ctx)
			if err != nil {
				return nil, err
			}
			j.lrow = row
			if err := j.right.(Resettable).Reset(ctx); err != nil {
				return nil, err
			}
			j.started = true
		}

		rrow, err := j.right.ReadRow(ctx)
		if err == io.EOF {
			j.started = false
			continue
		}
		if err != nil {
			return nil, err
		}
		if merged, ok := mergeRows(j.lrow, rrow); ok {
			return merged, nil
		}
	}
}

func (j *Join) HasAnyRow(ctx *engine.Context) (bool, error) { return hasAnyRow(ctx, j) }

// Seed forwards to Left and Right when they are Seedable.
func (j *Join) Seed(vars []*scope.Variable, values *Row) {
	if s, ok := j.Left.(Seedable); ok {
		s.Seed(vars, values)
	}
	if s, ok := j.Right.(Seedable); ok {
		s.Seed(vars, values)
	}
}

// SetOrigin forwards to Left and Right when they are OriginSetters.
func (j *Join) SetOrigin(origin term.Term) {
	forwardOrigin(j.Left, origin)
	forwardOrigin(j.Right, origin)
}

// LeftJoin implements spec §4.5's LeftJoin (OPTIONAL): for each left row,
// every right row that is join-compatible and passes the attached filter F
// (if any) is emitted merged; if none qualify, the left row alone is
// emitted, its right-side columns left unbound.
type LeftJoin struct {
	Left, Right RowSource
	Filter      algebra.Expr

	right      RowSource
	lrow       *Row
	started    bool
	matchedAny bool
}

func NewLeftJoin(left, right RowSource, filter algebra.Expr) *LeftJoin {
	return &LeftJoin{Left: left, Right: right, Filter: filter}
}

func (lj *LeftJoin) Init(ctx *engine.Context) error {
	lj.right = asResettable(lj.Right)
	if err := lj.Left.Init(ctx); err != nil {
		return err
	}
	return lj.right.Init(ctx)
}

func (lj *LeftJoin) EnsureVariables() *scope.Table {
	return lj.Left.EnsureVariables().Merge(lj.Right.EnsureVariables())
}

func (lj *LeftJoin) Finish(ctx *engine.Context) error {
	err1 := lj.Left.Finish(ctx)
	err2 := lj.right.Finish(ctx)
	if err1 != nil {
		return err1
	}
	return err2
}

func (lj *LeftJoin) ReadRow(ctx *engine.Context) (*Row, error) {
	table := lj.EnsureVariables()
	for {
		if !lj.started {
			row, err := lj.Left.ReadRow(ctx)
			if err != nil {
				return nil, err
			}
			lj.lrow = row
			if err := lj.right.(Resettable).Reset(ctx); err != nil {
				return nil, err
			}
			lj.started = true
			lj.matchedAny = false
		}

		rrow, err := lj.right.ReadRow(ctx)
		if err == io.EOF {
			lj.started = false
			if !lj.matchedAny {
				return lj.lrow, nil
			}
			continue
		}
		if err != nil {
			return nil, err
		}
		merged, ok := mergeRows(lj.lrow, rrow)
		if !ok {
			continue
		}
		if lj.Filter != nil && !evalBool(ctx, lj.Filter, merged, table) {
			continue
		}
		lj.matchedAny = true
		return merged, nil
	}
}

func (lj *LeftJoin) HasAnyRow(ctx *engine.Context) (bool, error) { return hasAnyRow(ctx, lj) }

// Seed forwards to Left and Right when they are Seedable.
func (lj *LeftJoin) Seed(vars []*scope.Variable, values *Row) {
	if s, ok := lj.Left.(Seedable); ok {
		s.Seed(vars, values)
	}
	if s, ok := lj.Right.(Seedable); ok {
		s.Seed(vars, values)
	}
}

// SetOrigin forwards to Left and Right when they are OriginSetters.
func (lj *LeftJoin) SetOrigin(origin term.Term) {
	forwardOrigin(lj.Left, origin)
	forwardOrigin(lj.Right, origin)
}
