package rowsource

import (
	"io"

	"github.com/sparqlgo/engine/engine"
	"github.com/sparqlgo/engine/scope"
	"github.com/sparqlgo/engine/term"
)

// Union implements spec §4.5's Union: every Left row, then every Right row,
// schemas unified (a column the other side never binds simply stays
// unbound — shared global offsets mean no row rewriting is needed, only a
// widened reported schema).
type Union struct {
	Left, Right RowSource

	onRight bool
}

func NewUnion(left, right RowSource) *Union {
	return &Union{Left: left, Right: right}
}

func (u *Union) Init(ctx *engine.Context) error {
	if err := u.Left.Init(ctx); err != nil {
		return err
	}
	return u.Right.Init(ctx)
}

func (u *Union) EnsureVariables() *scope.Table {
	return u.Left.EnsureVariables().Merge(u.Right.EnsureVariables())
}

func (u *Union) Finish(ctx *engine.Context) error {
	err1 := u.Left.Finish(ctx)
	err2 := u.Right.Finish(ctx)
	if err1 != nil {
		return err1
	}
	return err2
}

func (u *Union) ReadRow(ctx *engine.Context) (*Row, error) {
	if !u.onRight {
		row, err := u.Left.ReadRow(ctx)
		if err == nil {
			return row, nil
		}
		if err != io.EOF {
			return nil, err
		}
		u.onRight = true
	}
	return u.Right.ReadRow(ctx)
}

func (u *Union) HasAnyRow(ctx *engine.Context) (bool, error) { return hasAnyRow(ctx, u) }

// Seed forwards to Left and Right when they are Seedable.
func (u *Union) Seed(vars []*scope.Variable, values *Row) {
	if s, ok := u.Left.(Seedable); ok {
		s.Seed(vars, values)
	}
	if s, ok := u.Right.(Seedable); ok {
		s.Seed(vars, values)
	}
}

// SetOrigin forwards to Left and Right when they are OriginSetters.
func (u *Union) SetOrigin(origin term.Term) {
	forwardOrigin(u.Left, origin)
	forwardOrigin(u.Right, origin)
}
