package rowsource

import (
	"io"

	"github.com/sparqlgo/engine/algebra"
	"github.com/sparqlgo/engine/engine"
	"github.com/sparqlgo/engine/scope"
	"github.com/sparqlgo/engine/term"
	"github.com/sparqlgo/engine/triplesource"
)

// tripleColumn is the per-pattern (per-column) state of spec §4.6: which
// positions this column is responsible for first-binding (as opposed to
// constraining from an earlier column's binding), the currently active
// iterator, and the variables this column itself bound (so backtracking
// past it knows exactly what to unbind — this slice is one row of the
// column-variable binding matrix spec §4.6 calls for; a full matrix would
// be wasted space here since a column only ever owns up to 4 positions).
type tripleColumn struct {
	pattern algebra.Pattern
	toBind  triplesource.Parts

	iter        triplesource.TriplesMatch
	needAdvance bool
	boundVars   []*scope.Variable
}

// Triples implements §4.6's constraint-aware backtracking join over N
// contiguous triple patterns against a single triplesource.TripleSource.
type Triples struct {
	columns []tripleColumn
	table   *scope.Table
	source  triplesource.TripleSource

	row     *Row
	current int
	seq     int

	seedVars []*scope.Variable
	seedRow  *Row

	forcedOrigin *term.Term
}

// NewTriples builds a Triples rowsource over patterns, which must all
// reference variables already registered in table.
func NewTriples(patterns []algebra.Pattern, table *scope.Table, source triplesource.TripleSource) *Triples {
	rs := &Triples{table: table, source: source}
	seen := map[*scope.Variable]bool{}
	rs.columns = make([]tripleColumn, len(patterns))
	for i, p := range patterns {
		col := tripleColumn{pattern: p}
		mark := func(tv algebra.TermOrVar, part triplesource.Parts) {
			if !tv.IsVar {
				return
			}
			if !seen[tv.Var] {
				col.toBind |= part
				seen[tv.Var] = true
			}
		}
		mark(p.Subject, triplesource.PartSubject)
		mark(p.Predicate, triplesource.PartPredicate)
		mark(p.Object, triplesource.PartObject)
		if p.HasOrigin {
			mark(p.Origin, triplesource.PartOrigin)
		}
		rs.columns[i] = col
	}
	return rs
}

func (rs *Triples) Init(ctx *engine.Context) error {
	rs.row = scope.NewRow(rs.table.Width(), 0)
	for _, v := range rs.seedVars {
		rs.row.Set(v.Offset, rs.seedRow.Get(v.Offset))
	}
	rs.current = 0
	return nil
}

// SetOrigin implements rowsource.OriginSetter: every column's pattern that
// does not itself carry an explicit origin position (i.e. was not written
// inside an explicit GRAPH <iri>/?g block of its own) is additionally
// constrained to origin for the next Init/Reset, the mechanism the Graph
// operator (graph.go) uses to scope an enclosing GRAPH clause's plain
// triple patterns to one graph at a time.
func (rs *Triples) SetOrigin(origin term.Term) {
	rs.forcedOrigin = &origin
}

// Seed implements rowsource.Seedable: values is consulted (for vars'
// offsets only) the next time Init runs, turning those positions from
// wildcards into real triplesource constraints for every column that
// references them.
func (rs *Triples) Seed(vars []*scope.Variable, values *Row) {
	rs.seedVars = vars
	rs.seedRow = values
}

// Reset implements rowsource.Resettable: tears down every column's
// iterator and starts over, re-applying whatever Seed last set. A plain
// Join/LeftJoin right-hand side that happens to be a bare Triples can be
// rewound this way directly, without the generic buffering wrapper
// (bufferRight, join.go) materializing its rows.
func (rs *Triples) Reset(ctx *engine.Context) error {
	if err := rs.Finish(ctx); err != nil {
		return err
	}
	return rs.Init(ctx)
}

func (rs *Triples) EnsureVariables() *scope.Table { return rs.table }

func (rs *Triples) Finish(ctx *engine.Context) error {
	var firstErr error
	for i := range rs.columns {
		if rs.columns[i].iter != nil {
			if err := rs.columns[i].iter.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
			rs.columns[i].iter = nil
		}
	}
	return firstErr
}

// resolveConst returns the concrete term a (non-variable) pattern position
// carries.
func resolveConst(tv algebra.TermOrVar) *term.Term {
	t := tv.Term
	return &t
}

// resolveBound returns the row's current value for a variable position,
// or nil if the row has no value yet (should not happen for a constraint
// position, since those reference a variable first bound in an earlier
// column).
func resolveBound(tv algebra.TermOrVar, row *Row) *term.Term {
	v := row.Get(tv.Var.Offset)
	if v.IsUnbound() {
		return nil
	}
	return &v
}

// buildPattern constructs the triplesource.Pattern for columns[col]: a
// constant position always filters. A variable position filters on
// whatever value the row already carries for it (a cross-column
// constraint, or a value pushed in by Seed ahead of Init for correlated
// MINUS/EXISTS evaluation, spec §4.8) and is a wildcard only when the row
// genuinely has nothing for it yet — which, for a toBind position, is
// always true unless Seed got there first.
func (rs *Triples) buildPattern(col int) triplesource.Pattern {
	c := &rs.columns[col]
	resolve := func(tv algebra.TermOrVar) *term.Term {
		if !tv.IsVar {
			return resolveConst(tv)
		}
		return resolveBound(tv, rs.row)
	}
	p := triplesource.Pattern{
		Subject:   resolve(c.pattern.Subject),
		Predicate: resolve(c.pattern.Predicate),
		Object:    resolve(c.pattern.Object),
	}
	if c.pattern.HasOrigin {
		p.Origin = resolve(c.pattern.Origin)
	} else if rs.forcedOrigin != nil {
		p.Origin = rs.forcedOrigin
	}
	return p
}

// tryBind reads columns[col].iter.Current() and attempts to write its
// variable positions into rs.row, checking every position (whether a
// cross-column constraint already filtered at the source, or a same-column
// repeated variable the source could not filter) against any value the row
// already carries for that variable. Returns false on a mismatch, having
// rolled back anything this call itself bound.
func (rs *Triples) tryBind(col int) bool {
	c := &rs.columns[col]
	s, p, o, g := c.iter.Current()

	type step struct {
		tv algebra.TermOrVar
		v  term.Term
	}
	steps := []step{{c.pattern.Subject, s}, {c.pattern.Predicate, p}, {c.pattern.Object, o}}
	if c.pattern.HasOrigin {
		steps = append(steps, step{c.pattern.Origin, g})
	}

	var newlyBound []*scope.Variable
	for _, st := range steps {
		if !st.tv.IsVar {
			continue
		}
		existing := rs.row.Get(st.tv.Var.Offset)
		if existing.IsUnbound() {
			rs.row.Set(st.tv.Var.Offset, st.v)
			newlyBound = append(newlyBound, st.tv.Var)
			continue
		}
		ok, err := term.Equal(existing, st.v, term.ModeTermEquality)
		if err != nil || !ok {
			for _, v := range newlyBound {
				rs.row.Set(v.Offset, term.Unbound)
			}
			return false
		}
	}
	c.boundVars = append(c.boundVars, newlyBound...)
	return true
}

// unbindColumn clears every variable columns[col] bound and releases its
// iterator, the backtracking-discipline step of spec §4.6: every column
// past the one we backtrack into must be reset so its stale constraints
// cannot leak into the next attempt.
func (rs *Triples) unbindColumn(col int) {
	c := &rs.columns[col]
	for _, v := range c.boundVars {
		rs.row.Set(v.Offset, term.Unbound)
	}
	c.boundVars = nil
	if c.iter != nil {
		c.iter.Close()
		c.iter = nil
	}
	c.needAdvance = false
}

func (rs *Triples) HasAnyRow(ctx *engine.Context) (bool, error) { return hasAnyRow(ctx, rs) }

func (rs *Triples) ReadRow(ctx *engine.Context) (*Row, error) {
	for {
		if rs.current >= len(rs.columns) {
			// A full row was already bound by the loop below; re-apply
			// bind_match on every column so an outer rowsource sharing this
			// same variable state between our calls cannot have corrupted
			// it, then snapshot and advance the innermost column.
			for i := range rs.columns {
				rs.tryBind(i)
			}
			out := rs.row.Clone()
			out.Seq = rs.seq
			rs.seq++

			last := len(rs.columns) - 1
			rs.columns[last].needAdvance = true
			rs.current = last
			return out, nil
		}

		col := rs.current
		c := &rs.columns[col]

		if c.iter == nil {
			pat := rs.buildPattern(col)
			iter, err := rs.source.NewTriplesMatch(pat, c.toBind)
			if err != nil {
				return nil, err
			}
			c.iter = iter
			c.needAdvance = true
		}

		if c.needAdvance {
			ok, err := c.iter.NextMatch()
			c.needAdvance = false
			if err != nil {
				return nil, err
			}
			if !ok {
				rs.unbindColumn(col)
				if col == 0 {
					return nil, io.EOF
				}
				rs.current = col - 1
				rs.columns[rs.current].needAdvance = true
				continue
			}
		}

		if !rs.tryBind(col) {
			c.needAdvance = true
			continue
		}
		rs.current++
	}
}
