package rowsource

import (
	"github.com/sparqlgo/engine/engine"
	"github.com/sparqlgo/engine/scope"
	"github.com/sparqlgo/engine/term"
)

// Dataset implements spec §4.5's Dataset node. It carries no row-level
// behavior of its own: DefaultGraphs/NamedGraphs are consulted entirely at
// plan time (engine/exec), where the default-graph list scopes the
// triplesource.TripleSource given to every Triples leaf under Child and
// the named-graph list is threaded to any nested Graph(var, ...) node's
// NamedGraphs field. At execution time Dataset is a pure passthrough.
type Dataset struct {
	DefaultGraphs []string
	NamedGraphs   []string
	Child         RowSource
}

func NewDataset(defaultGraphs, namedGraphs []string, child RowSource) *Dataset {
	return &Dataset{DefaultGraphs: defaultGraphs, NamedGraphs: namedGraphs, Child: child}
}

func (d *Dataset) Init(ctx *engine.Context) error          { return d.Child.Init(ctx) }
func (d *Dataset) EnsureVariables() *scope.Table            { return d.Child.EnsureVariables() }
func (d *Dataset) Finish(ctx *engine.Context) error         { return d.Child.Finish(ctx) }
func (d *Dataset) ReadRow(ctx *engine.Context) (*Row, error) { return d.Child.ReadRow(ctx) }

func (d *Dataset) HasAnyRow(ctx *engine.Context) (bool, error) { return hasAnyRow(ctx, d) }

func (d *Dataset) Reset(ctx *engine.Context) error {
	if r, ok := d.Child.(Resettable); ok {
		return r.Reset(ctx)
	}
	if err := d.Child.Finish(ctx); err != nil {
		return err
	}
	return d.Child.Init(ctx)
}

// Seed forwards to Child when it is Seedable.
func (d *Dataset) Seed(vars []*scope.Variable, values *Row) {
	if s, ok := d.Child.(Seedable); ok {
		s.Seed(vars, values)
	}
}

// SetOrigin forwards to Child when it is an OriginSetter.
func (d *Dataset) SetOrigin(origin term.Term) { forwardOrigin(d.Child, origin) }
