package rowsource

import (
	"github.com/sparqlgo/engine/algebra"
	"github.com/sparqlgo/engine/engine"
	"github.com/sparqlgo/engine/expr"
	"github.com/sparqlgo/engine/scope"
	"github.com/sparqlgo/engine/term"
)

// newExprContext builds an expr.Context sharing ectx's PRNG and frozen "now"
// rather than reseeding per row, so RAND_SEED determinism (spec §6) holds
// across an entire query, not just within one expression evaluation.
func newExprContext(ectx *engine.Context, row *Row, table *scope.Table) *expr.Context {
	return &expr.Context{
		Row:    row,
		Table:  table,
		Rand:   ectx.Rand,
		Now:    ectx.Now,
		NoNet:  ectx.Opts.NoNet,
		Engine: ectx,
	}
}

// evalBool evaluates e against row and reports its effective boolean value
// per spec §4.5: an error or unbound result is not a fatal condition here,
// it simply means "false" to whichever operator is asking (Filter dropping
// the row, LeftJoin treating the attached filter as not passed, and so on).
func evalBool(ectx *engine.Context, e algebra.Expr, row *Row, table *scope.Table) bool {
	ee, ok := e.(*expr.Expr)
	if !ok || ee == nil {
		return false
	}
	v, err := expr.Eval(newExprContext(ectx, row, table), ee)
	if err != nil || v.IsUnbound() {
		return false
	}
	b, err := term.EBV(v)
	if err != nil {
		return false
	}
	return b
}
