package rowsource

import (
	"github.com/sparqlgo/engine/engine"
	"github.com/sparqlgo/engine/scope"
	"github.com/sparqlgo/engine/term"
)

// Project implements spec §4.5's Project: narrows the reported schema to
// Vars without touching a single row, since every variable's offset is
// already stable and query-wide (scope.Table.Width, see the scope package
// ledger entry) — the underlying Row keeps carrying every column, SELECT
// simply hides the ones not in Vars from callers that ask EnsureVariables
// for the output schema (the results formatter, chiefly).
type Project struct {
	Vars  []*scope.Variable
	Inner RowSource
}

func NewProject(vars []*scope.Variable, inner RowSource) *Project {
	return &Project{Vars: vars, Inner: inner}
}

func (p *Project) Init(ctx *engine.Context) error   { return p.Inner.Init(ctx) }
func (p *Project) Finish(ctx *engine.Context) error  { return p.Inner.Finish(ctx) }
func (p *Project) ReadRow(ctx *engine.Context) (*Row, error) { return p.Inner.ReadRow(ctx) }

func (p *Project) EnsureVariables() *scope.Table {
	return p.Inner.EnsureVariables().Subset(p.Vars)
}

func (p *Project) HasAnyRow(ctx *engine.Context) (bool, error) { return hasAnyRow(ctx, p) }

func (p *Project) Reset(ctx *engine.Context) error {
	if r, ok := p.Inner.(Resettable); ok {
		return r.Reset(ctx)
	}
	if err := p.Inner.Finish(ctx); err != nil {
		return err
	}
	return p.Inner.Init(ctx)
}

// Seed forwards to Inner when it is Seedable.
func (p *Project) Seed(vars []*scope.Variable, values *Row) {
	if s, ok := p.Inner.(Seedable); ok {
		s.Seed(vars, values)
	}
}

// SetOrigin forwards to Inner when it is an OriginSetter.
func (p *Project) SetOrigin(origin term.Term) { forwardOrigin(p.Inner, origin) }
