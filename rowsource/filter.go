package rowsource

import (
	"github.com/sparqlgo/engine/algebra"
	"github.com/sparqlgo/engine/engine"
	"github.com/sparqlgo/engine/scope"
	"github.com/sparqlgo/engine/term"
)

// Filter implements spec §4.5's Filter operator: pulls from Inner and drops
// any row whose filter expression does not evaluate to true. An error or
// unbound evaluation is not propagated as a failure — per §4.3 it simply
// means the row is rejected, recovering at this boundary rather than
// aborting the whole query.
type Filter struct {
	Expr  algebra.Expr
	Inner RowSource
}

func NewFilter(expr algebra.Expr, inner RowSource) *Filter {
	return &Filter{Expr: expr, Inner: inner}
}

func (f *Filter) Init(ctx *engine.Context) error { return f.Inner.Init(ctx) }

func (f *Filter) EnsureVariables() *scope.Table { return f.Inner.EnsureVariables() }

func (f *Filter) Finish(ctx *engine.Context) error { return f.Inner.Finish(ctx) }

// Seed forwards to Inner when it is Seedable, per rowsource.Seedable.
func (f *Filter) Seed(vars []*scope.Variable, values *Row) {
	if s, ok := f.Inner.(Seedable); ok {
		s.Seed(vars, values)
	}
}

// SetOrigin forwards to Inner when it is an OriginSetter, per
// rowsource.OriginSetter.
func (f *Filter) SetOrigin(origin term.Term) { forwardOrigin(f.Inner, origin) }

func (f *Filter) HasAnyRow(ctx *engine.Context) (bool, error) { return hasAnyRow(ctx, f) }

func (f *Filter) ReadRow(ctx *engine.Context) (*Row, error) {
	table := f.Inner.EnsureVariables()
	for {
		row, err := f.Inner.ReadRow(ctx)
		if err != nil {
			return nil, err
		}
		if evalBool(ctx, f.Expr, row, table) {
			return row, nil
		}
	}
}
