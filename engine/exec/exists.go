package exec

import (
	"github.com/sparqlgo/engine/algebra"
	"github.com/sparqlgo/engine/correlate"
	"github.com/sparqlgo/engine/expr"
	"github.com/sparqlgo/engine/rowsource"
	"github.com/sparqlgo/engine/scope"
)

// NewExistsBridge builds the rowsource.ExistsBridge an EXISTS/NOT EXISTS
// filter expression needs (spec §4.8): inner is compiled lazily, once per
// evaluation, by calling back into Plan, then seeded (when inner's own
// scope leaves some outer variable unresolved) with the correlation set
// correlate.Set computes between outerScope and inner's own ExecScope.
// Whoever assembles the algebra+expr tree for a Filter(OpExists/OpNotExists)
// node calls this once per occurrence and hands the result to
// expr.Exists/expr.NotExists as the Inner value.
func NewExistsBridge(outerScope *scope.Scope, inner *algebra.Node, catalog *Catalog) *rowsource.ExistsBridge {
	var vars []*scope.Variable
	if outerScope != nil && inner.ExecScope != nil {
		vars = correlate.Set(outerScope, inner.ExecScope, inner)
	}
	return &rowsource.ExistsBridge{
		Build: func(ctx *expr.Context) (rowsource.RowSource, error) {
			rs, err := Plan(inner, catalog)
			if err != nil {
				return nil, err
			}
			if len(vars) > 0 {
				if s, ok := rs.(rowsource.Seedable); ok {
					s.Seed(vars, ctx.Row)
				}
			}
			return rs, nil
		},
	}
}
