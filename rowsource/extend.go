package rowsource

import (
	"github.com/sparqlgo/engine/algebra"
	"github.com/sparqlgo/engine/engine"
	"github.com/sparqlgo/engine/expr"
	"github.com/sparqlgo/engine/scope"
	"github.com/sparqlgo/engine/term"
)

// Extend implements spec §4.5's Extend (BIND var := expr, child): each
// child row gets Var's column filled in from Expr evaluated against that
// row. An expression that errors or evaluates unbound simply leaves Var
// unbound for that row (SPARQL's BIND semantics) rather than failing the
// row outright — the same recovery Filter performs at its own boundary.
type Extend struct {
	Var   *scope.Variable
	Expr  algebra.Expr
	Inner RowSource
}

func NewExtend(v *scope.Variable, e algebra.Expr, inner RowSource) *Extend {
	return &Extend{Var: v, Expr: e, Inner: inner}
}

func (x *Extend) Init(ctx *engine.Context) error    { return x.Inner.Init(ctx) }
func (x *Extend) EnsureVariables() *scope.Table      { return x.Inner.EnsureVariables() }
func (x *Extend) Finish(ctx *engine.Context) error   { return x.Inner.Finish(ctx) }

func (x *Extend) ReadRow(ctx *engine.Context) (*Row, error) {
	row, err := x.Inner.ReadRow(ctx)
	if err != nil {
		return nil, err
	}
	table := x.Inner.EnsureVariables()
	ee, ok := x.Expr.(*expr.Expr)
	if !ok || ee == nil {
		row.Set(x.Var.Offset, term.Unbound)
		return row, nil
	}
	v, err := expr.Eval(newExprContext(ctx, row, table), ee)
	if err != nil {
		row.Set(x.Var.Offset, term.Unbound)
		return row, nil
	}
	row.Set(x.Var.Offset, v)
	return row, nil
}

func (x *Extend) HasAnyRow(ctx *engine.Context) (bool, error) { return hasAnyRow(ctx, x) }

func (x *Extend) Reset(ctx *engine.Context) error {
	if r, ok := x.Inner.(Resettable); ok {
		return r.Reset(ctx)
	}
	if err := x.Inner.Finish(ctx); err != nil {
		return err
	}
	return x.Inner.Init(ctx)
}

// Seed forwards to Inner when it is Seedable.
func (x *Extend) Seed(vars []*scope.Variable, values *Row) {
	if s, ok := x.Inner.(Seedable); ok {
		s.Seed(vars, values)
	}
}

// SetOrigin forwards to Inner when it is an OriginSetter.
func (x *Extend) SetOrigin(origin term.Term) { forwardOrigin(x.Inner, origin) }
