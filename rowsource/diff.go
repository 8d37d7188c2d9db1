package rowsource

import (
	"io"

	"github.com/sparqlgo/engine/engine"
	"github.com/sparqlgo/engine/scope"
	"github.com/sparqlgo/engine/term"
)

// Diff implements spec §4.5's Diff (MINUS): a left row is dropped iff some
// right row is compatible with it and shares at least one bound variable
// (spec §4.9/§4.8's correlation analysis exists precisely to identify that
// shared-variable set; see rowCompatible's doc comment for why this
// rowsource does not need to consult it directly to be correct). Seeded
// vars, when the planner supplies them (a correlated MINUS, spec §4.8),
// are pushed into Right once per left row via Seedable so Right's own
// triplesource scan is constrained rather than exhaustive.
type Diff struct {
	Left, Right RowSource
	// CorrelatedVars is the spec §4.8 correlation set for this MINUS,
	// computed by the planner via correlate.Set; nil/empty when Right's
	// pattern shares no variable with Left that Right doesn't itself
	// define (no seeding benefit, full scan only).
	CorrelatedVars []*scope.Variable

	right RowSource
}

func NewDiff(left, right RowSource, correlatedVars []*scope.Variable) *Diff {
	return &Diff{Left: left, Right: right, CorrelatedVars: correlatedVars}
}

func (d *Diff) Init(ctx *engine.Context) error {
	// A seeded scan must see every left row's fresh constraint, so Right is
	// wrapped to rebuild from scratch on every Reset rather than replayed
	// from a cache (reinitRight, join.go) — correct whether or not this
	// particular Diff ends up using CorrelatedVars at all.
	d.right = asReinitResettable(d.Right)
	if err := d.Left.Init(ctx); err != nil {
		return err
	}
	return d.right.Init(ctx)
}

func (d *Diff) EnsureVariables() *scope.Table { return d.Left.EnsureVariables() }

func (d *Diff) Finish(ctx *engine.Context) error {
	err1 := d.Left.Finish(ctx)
	err2 := d.right.Finish(ctx)
	if err1 != nil {
		return err1
	}
	return err2
}

func (d *Diff) ReadRow(ctx *engine.Context) (*Row, error) {
	for {
		lrow, err := d.Left.ReadRow(ctx)
		if err != nil {
			return nil, err
		}
		if len(d.CorrelatedVars) > 0 {
			if s, ok := d.right.(Seedable); ok {
				s.Seed(d.CorrelatedVars, lrow)
			}
		}
		if err := d.right.(Resettable).Reset(ctx); err != nil {
			return nil, err
		}
		dropped := false
		for {
			rrow, err := d.right.ReadRow(ctx)
			if err == io.EOF {
				break
			}
			if err != nil {
				return nil, err
			}
			compatible, overlap := rowCompatible(lrow, rrow)
			if compatible && overlap {
				dropped = true
				break
			}
		}
		if !dropped {
			return lrow, nil
		}
	}
}

func (d *Diff) HasAnyRow(ctx *engine.Context) (bool, error) { return hasAnyRow(ctx, d) }

// SetOrigin forwards to Left and Right when they are OriginSetters: a GRAPH
// block wrapping a MINUS group scopes both sides to the same graph.
func (d *Diff) SetOrigin(origin term.Term) {
	forwardOrigin(d.Left, origin)
	forwardOrigin(d.Right, origin)
}
