package correlate

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sparqlgo/engine/algebra"
	"github.com/sparqlgo/engine/expr"
	"github.com/sparqlgo/engine/scope"
	"github.com/sparqlgo/engine/term"
)

func TestReferencedVarsCollectsAcrossTripleAndExprPositions(t *testing.T) {
	tbl := scope.NewTable()
	s := tbl.Add("s", scope.KindNormal)
	p := tbl.Add("p", scope.KindNormal)
	filterVar := tbl.Add("f", scope.KindNormal)
	bindVar := tbl.Add("b", scope.KindNormal)

	bgp := algebra.NewBGP([]algebra.Pattern{
		{Subject: algebra.Var(s), Predicate: algebra.Var(p), Object: algebra.Const(term.NewSimpleLiteral("o"))},
	})
	filtered := algebra.NewFilter(expr.Bound(expr.VarRef(filterVar)), bgp)
	extended := algebra.NewExtend(bindVar, expr.Lit(term.NewSimpleLiteral("x")), filtered)

	// Walk visits extended, then filtered, then bgp: ExtendVar surfaces
	// first, the filter's variable next, and the BGP's subject/predicate
	// last.
	vars := ReferencedVars(extended)
	require.Equal(t, []*scope.Variable{bindVar, filterVar, s, p}, vars)
}

func TestReferencedVarsDeduplicatesRepeatedVariable(t *testing.T) {
	tbl := scope.NewTable()
	s := tbl.Add("s", scope.KindNormal)
	bgp := algebra.NewBGP([]algebra.Pattern{
		{Subject: algebra.Var(s), Predicate: algebra.Var(s), Object: algebra.Var(s)},
	})
	vars := ReferencedVars(bgp)
	require.Equal(t, []*scope.Variable{s}, vars)
}

func TestSetIncludesVariableOuterProvidesAndInnerDoesNotDefine(t *testing.T) {
	outer := scope.NewRoot()
	outer.AddTriple("x", "p1", "o1", "", false)
	xVar, ok := outer.Local().GetByName("x")
	require.True(t, ok)

	inner := scope.NewRoot()
	innerNode := algebra.NewBGP([]algebra.Pattern{
		{Subject: algebra.Var(xVar), Predicate: algebra.Const(term.NewIRI("http://example.org/p2")), Object: algebra.Const(term.NewSimpleLiteral("v"))},
	})

	correlated := Set(outer, inner, innerNode)
	require.Equal(t, []*scope.Variable{xVar}, correlated)
}

func TestSetExcludesVariableInnerDefinesByName(t *testing.T) {
	outer := scope.NewRoot()
	outer.AddTriple("x", "p1", "o1", "", false)
	xVar, ok := outer.Local().GetByName("x")
	require.True(t, ok)

	inner := scope.NewRoot()
	inner.AddTriple("x", "p2", "o2", "", false)

	innerNode := algebra.NewBGP([]algebra.Pattern{
		{Subject: algebra.Var(xVar), Predicate: algebra.Const(term.NewIRI("http://example.org/p2")), Object: algebra.Const(term.NewSimpleLiteral("v"))},
	})

	correlated := Set(outer, inner, innerNode)
	require.Empty(t, correlated)
}

func TestSetExcludesVariableOuterDoesNotProvide(t *testing.T) {
	outer := scope.NewRoot()
	inner := scope.NewRoot()

	tbl := scope.NewTable()
	unrelated := tbl.Add("y", scope.KindNormal)
	innerNode := algebra.NewBGP([]algebra.Pattern{
		{Subject: algebra.Var(unrelated), Predicate: algebra.Const(term.NewIRI("http://example.org/p")), Object: algebra.Const(term.NewSimpleLiteral("v"))},
	})

	correlated := Set(outer, inner, innerNode)
	require.Empty(t, correlated)
}

func TestSubstituteAndUnbindRoundTrip(t *testing.T) {
	tbl := scope.NewTable()
	a := tbl.Add("a", scope.KindNormal)
	b := tbl.Add("b", scope.KindNormal)

	outerRow := scope.NewRow(tbl.Width(), 0)
	outerRow.Set(a.Offset, term.NewSimpleLiteral("hello"))
	outerRow.Set(b.Offset, term.NewSimpleLiteral("unused"))

	innerRow := scope.NewRow(tbl.Width(), 0)
	Substitute([]*scope.Variable{a}, outerRow, innerRow)
	require.Equal(t, "hello", innerRow.Get(a.Offset).Lexical())
	require.True(t, innerRow.Get(b.Offset).IsUnbound())

	Unbind([]*scope.Variable{a}, innerRow)
	require.True(t, innerRow.Get(a.Offset).IsUnbound())
}
