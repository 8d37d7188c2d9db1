// Package correlate implements spec §4.8's MINUS/NOT EXISTS/EXISTS
// correlation analysis (SPARQL 1.2 §8.1.1): which variables an inner
// pattern references that an outer scope provides but the inner scope
// itself never defines, and the substitute/unbind operation around
// evaluating that inner pattern for a given outer row.
package correlate

import (
	"github.com/sparqlgo/engine/algebra"
	"github.com/sparqlgo/engine/expr"
	"github.com/sparqlgo/engine/scope"
	"github.com/sparqlgo/engine/term"
)

// ReferencedVars returns every distinct variable referenced anywhere in
// n's subtree — triple-pattern positions and every expression (Filter,
// Extend, OrderBy keys, Group keys/aggregates, a variable Graph term) — in
// first-occurrence, depth-first order. Walking the whole subtree is what
// makes nested-MINUS propagation (spec §4.8: "a correlated inner MINUS
// flags its enclosing MINUS correlated as well") automatic: a variable
// used only inside a nested MINUS's own right operand still surfaces here
// since Walk descends into it too.
func ReferencedVars(n *algebra.Node) []*scope.Variable {
	seen := map[*scope.Variable]bool{}
	var out []*scope.Variable
	add := func(v *scope.Variable) {
		if v != nil && !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	addTOV := func(tv algebra.TermOrVar) {
		if tv.IsVar {
			add(tv.Var)
		}
	}
	addExpr := func(e algebra.Expr) {
		if ee, ok := e.(*expr.Expr); ok && ee != nil {
			for _, v := range expr.Vars(ee) {
				add(v)
			}
		}
	}
	algebra.Walk(n, func(node *algebra.Node) bool {
		for _, p := range node.Triples {
			addTOV(p.Subject)
			addTOV(p.Predicate)
			addTOV(p.Object)
			if p.HasOrigin {
				addTOV(p.Origin)
			}
		}
		addExpr(node.Filter)
		addExpr(node.ExtendExpr)
		add(node.ExtendVar)
		for _, ok := range node.OrderKeys {
			addExpr(ok.Expr)
		}
		for _, k := range node.GroupKeys {
			addExpr(k)
		}
		for _, agg := range node.Aggregates {
			addExpr(agg.Arg)
			add(agg.Out)
		}
		addTOV(node.GraphTerm)
		add(node.ServiceVar)
		for _, v := range node.ProjectVars {
			add(v)
		}
		return true
	})
	return out
}

// Set computes spec §4.8's correlation set for an inner pattern n planned
// under innerScope, relative to the scope of its outer (left-hand) row,
// outerScope: every variable n references that outerScope provides
// (i.e. is a local variable of the LHS group the MINUS/EXISTS sits in)
// but innerScope does not define anywhere in its own visible chain.
func Set(outerScope, innerScope *scope.Scope, n *algebra.Node) []*scope.Variable {
	var out []*scope.Variable
	for _, v := range ReferencedVars(n) {
		if outerScope.Provides(v.Name) && !innerScope.Defines(v.Name) {
			out = append(out, v)
		}
	}
	return out
}

// Substitute copies outerRow's value for each correlated variable into
// innerRow, ahead of evaluating the inner pattern for one outer row (spec
// §4.8). Offsets are shared query-wide (scope.Table.Width's numbering), so
// this is a direct offset copy, not a by-name translation.
func Substitute(vars []*scope.Variable, outerRow, innerRow *scope.Row) {
	for _, v := range vars {
		innerRow.Set(v.Offset, outerRow.Get(v.Offset))
	}
}

// Unbind clears every correlated variable from innerRow, undoing Substitute
// once the inner pattern has been evaluated for one outer row.
func Unbind(vars []*scope.Variable, innerRow *scope.Row) {
	for _, v := range vars {
		innerRow.Set(v.Offset, term.Unbound)
	}
}
