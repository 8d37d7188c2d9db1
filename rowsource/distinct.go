package rowsource

import (
	"github.com/mitchellh/hashstructure"

	"github.com/sparqlgo/engine/engine"
	"github.com/sparqlgo/engine/scope"
	"github.com/sparqlgo/engine/term"
)

// Distinct implements spec §4.5's Distinct (and, per NewReduced's doc
// comment, Reduced, which this package treats identically since dropping
// a subset of the possible duplicates is a valid REDUCED implementation).
// Seen rows are deduplicated by a structural hash
// (github.com/mitchellh/hashstructure) of their Values, with every
// candidate's full Values slice kept alongside its hash so an exact
// comparison resolves a collision rather than a bucket silently admitting
// two distinct rows that happened to hash alike.
type Distinct struct {
	Inner RowSource

	seen map[uint64][]*Row
}

func NewDistinct(inner RowSource) *Distinct { return &Distinct{Inner: inner} }

// NewReduced builds the same deduplicating rowsource for a REDUCED query.
func NewReduced(inner RowSource) *Distinct { return &Distinct{Inner: inner} }

func (d *Distinct) Init(ctx *engine.Context) error {
	d.seen = make(map[uint64][]*Row)
	return d.Inner.Init(ctx)
}

func (d *Distinct) EnsureVariables() *scope.Table { return d.Inner.EnsureVariables() }

func (d *Distinct) Finish(ctx *engine.Context) error { return d.Inner.Finish(ctx) }

func (d *Distinct) ReadRow(ctx *engine.Context) (*Row, error) {
	for {
		row, err := d.Inner.ReadRow(ctx)
		if err != nil {
			return nil, err
		}
		h, err := hashstructure.Hash(row.Values, nil)
		if err != nil {
			// An unhashable row's Values (should not happen for term.Term,
			// which is plain comparable data) degrades to "always distinct"
			// rather than failing the whole query.
			return row, nil
		}
		bucket := d.seen[h]
		dup := false
		for _, prior := range bucket {
			if rowValuesEqual(prior, row) {
				dup = true
				break
			}
		}
		if dup {
			continue
		}
		d.seen[h] = append(bucket, row)
		return row, nil
	}
}

func rowValuesEqual(a, b *Row) bool {
	if len(a.Values) != len(b.Values) {
		return false
	}
	for i := range a.Values {
		if a.Values[i] != b.Values[i] {
			return false
		}
	}
	return true
}

func (d *Distinct) HasAnyRow(ctx *engine.Context) (bool, error) { return hasAnyRow(ctx, d) }

func (d *Distinct) Reset(ctx *engine.Context) error {
	d.seen = make(map[uint64][]*Row)
	if r, ok := d.Inner.(Resettable); ok {
		return r.Reset(ctx)
	}
	if err := d.Inner.Finish(ctx); err != nil {
		return err
	}
	return d.Inner.Init(ctx)
}

// Seed forwards to Inner when it is Seedable.
func (d *Distinct) Seed(vars []*scope.Variable, values *Row) {
	if s, ok := d.Inner.(Seedable); ok {
		s.Seed(vars, values)
	}
}

// SetOrigin forwards to Inner when it is an OriginSetter.
func (d *Distinct) SetOrigin(origin term.Term) { forwardOrigin(d.Inner, origin) }
