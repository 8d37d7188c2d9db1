package expr

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sparqlgo/engine/scope"
	"github.com/sparqlgo/engine/term"
)

// newCtx builds an evaluation Context over tbl/row, the pattern every test
// below follows: declare the table's variables first (so Width reflects all
// of them), size the row to that width, bind whichever values the test
// needs, then wrap it all in a Context.
func newCtx(tbl *scope.Table, row *scope.Row) *Context {
	return NewContext(row, tbl, 1)
}

func asBool(v term.Term) bool { return v.Lexical() == "true" }

func TestEvalLiteralAndVariable(t *testing.T) {
	tbl := scope.NewTable()
	xVar := tbl.Add("x", scope.KindNormal)
	row := scope.NewRow(tbl.Width(), 0)
	row.Set(xVar.Offset, term.NewIRI("http://example.org/a"))
	ctx := newCtx(tbl, row)

	v, err := Eval(ctx, VarRef(xVar))
	require.NoError(t, err)
	iri, _ := v.IRI()
	require.Equal(t, "http://example.org/a", iri)
}

func TestEvalBoundNeverRaisesUnbound(t *testing.T) {
	tbl := scope.NewTable()
	unboundVar := tbl.Add("y", scope.KindNormal)
	row := scope.NewRow(tbl.Width(), 0)
	ctx := newCtx(tbl, row)

	v, err := Eval(ctx, Bound(VarRef(unboundVar)))
	require.NoError(t, err)
	require.False(t, asBool(v))
}

func TestEvalAndShortCircuitsOnFalse(t *testing.T) {
	ctx := newCtx(scope.NewTable(), scope.NewRow(0, 0))
	// false AND (1/0 would error) must still be false, not an error.
	falseLit := Lit(term.NewBoolean(false))
	errExpr := Slash(Lit(term.NewLiteral("1", "", term.XSDInteger)), Lit(term.NewLiteral("0", "", term.XSDInteger)))
	v, err := Eval(ctx, And(falseLit, errExpr))
	require.NoError(t, err)
	require.False(t, asBool(v))
}

func TestEvalOrShortCircuitsOnTrue(t *testing.T) {
	ctx := newCtx(scope.NewTable(), scope.NewRow(0, 0))
	trueLit := Lit(term.NewBoolean(true))
	errExpr := Slash(Lit(term.NewLiteral("1", "", term.XSDInteger)), Lit(term.NewLiteral("0", "", term.XSDInteger)))
	v, err := Eval(ctx, Or(trueLit, errExpr))
	require.NoError(t, err)
	require.True(t, asBool(v))
}

func TestEvalRelationalUnboundIsFalseNotError(t *testing.T) {
	tbl := scope.NewTable()
	unboundVar := tbl.Add("z", scope.KindNormal)
	row := scope.NewRow(tbl.Width(), 0)
	ctx := newCtx(tbl, row)

	v, err := Eval(ctx, Eq(VarRef(unboundVar), Lit(term.NewLiteral("1", "", term.XSDInteger))))
	require.NoError(t, err)
	require.False(t, asBool(v))
}

func TestEvalArithmeticErrorsOnNonNumeric(t *testing.T) {
	ctx := newCtx(scope.NewTable(), scope.NewRow(0, 0))
	_, err := Eval(ctx, Plus(Lit(term.NewSimpleLiteral("abc")), Lit(term.NewLiteral("1", "", term.XSDInteger))))
	require.Error(t, err, "arithmetic on a non-numeric operand must be the error arm, not unbound")
}

func TestEvalArithmeticPromotesToWiderType(t *testing.T) {
	ctx := newCtx(scope.NewTable(), scope.NewRow(0, 0))
	v, err := Eval(ctx, Plus(
		Lit(term.NewLiteral("1", "", term.XSDInteger)),
		Lit(term.NewLiteral("1.5", "", term.XSDDouble)),
	))
	require.NoError(t, err)
	require.Equal(t, term.XSDDouble, v.Datatype())
	require.Equal(t, "2.5", v.Lexical())
}

func TestEvalDivisionByZeroIntegerErrors(t *testing.T) {
	ctx := newCtx(scope.NewTable(), scope.NewRow(0, 0))
	_, err := Eval(ctx, Slash(
		Lit(term.NewLiteral("1", "", term.XSDInteger)),
		Lit(term.NewLiteral("0", "", term.XSDInteger)),
	))
	require.Error(t, err)
}

func TestEvalStringFunctions(t *testing.T) {
	ctx := newCtx(scope.NewTable(), scope.NewRow(0, 0))

	v, err := Eval(ctx, UCase(Lit(term.NewSimpleLiteral("abc"))))
	require.NoError(t, err)
	require.Equal(t, "ABC", v.Lexical())

	v, err = Eval(ctx, Concat(Lit(term.NewSimpleLiteral("foo")), Lit(term.NewSimpleLiteral("bar"))))
	require.NoError(t, err)
	require.Equal(t, "foobar", v.Lexical())

	v, err = Eval(ctx, StrStarts(Lit(term.NewSimpleLiteral("foobar")), Lit(term.NewSimpleLiteral("foo"))))
	require.NoError(t, err)
	require.True(t, asBool(v))
}

func TestEvalIfAndCoalesce(t *testing.T) {
	tbl := scope.NewTable()
	unboundVar := tbl.Add("unbound", scope.KindNormal)
	row := scope.NewRow(tbl.Width(), 0)
	ctx := newCtx(tbl, row)

	v, err := Eval(ctx, If(Lit(term.NewBoolean(true)), Lit(term.NewSimpleLiteral("yes")), Lit(term.NewSimpleLiteral("no"))))
	require.NoError(t, err)
	require.Equal(t, "yes", v.Lexical())

	v, err = Eval(ctx, Coalesce(VarRef(unboundVar), Lit(term.NewSimpleLiteral("fallback"))))
	require.NoError(t, err)
	require.Equal(t, "fallback", v.Lexical())
}

func TestEvalSameTermDistinguishesLexicalFromTermEquality(t *testing.T) {
	ctx := newCtx(scope.NewTable(), scope.NewRow(0, 0))
	// "1"^^xsd:integer and "1.0"^^xsd:decimal are value-equal but not the
	// same RDF term; sameTerm must say false even though = would say true.
	v, err := Eval(ctx, SameTerm(
		Lit(term.NewLiteral("1", "", term.XSDInteger)),
		Lit(term.NewLiteral("1.0", "", term.XSDDecimal)),
	))
	require.NoError(t, err)
	require.False(t, asBool(v))
}

func TestEvalRegexAndReplace(t *testing.T) {
	ctx := newCtx(scope.NewTable(), scope.NewRow(0, 0))

	v, err := Eval(ctx, Regex(Lit(term.NewSimpleLiteral("Hello")), Lit(term.NewSimpleLiteral("^hello$")), Lit(term.NewSimpleLiteral("i"))))
	require.NoError(t, err)
	require.True(t, asBool(v))

	v, err = Eval(ctx, Replace(Lit(term.NewSimpleLiteral("abc123")), Lit(term.NewSimpleLiteral("[0-9]+")), Lit(term.NewSimpleLiteral("#"))))
	require.NoError(t, err)
	require.Equal(t, "abc#", v.Lexical())
}

func TestVarsCollectsDistinctVariablesInOrder(t *testing.T) {
	tbl := scope.NewTable()
	x := tbl.Add("x", scope.KindNormal)
	y := tbl.Add("y", scope.KindNormal)
	e := And(Eq(VarRef(x), VarRef(y)), Bound(VarRef(x)))
	vars := Vars(e)
	require.Equal(t, []*scope.Variable{x, y}, vars)
}

type stubExistsRunner struct {
	found bool
	err   error
}

func (s stubExistsRunner) HasAnyRow(ctx *Context) (bool, error) { return s.found, s.err }

func TestEvalExistsAndNotExists(t *testing.T) {
	ctx := newCtx(scope.NewTable(), scope.NewRow(0, 0))

	v, err := Eval(ctx, Exists(stubExistsRunner{found: true}))
	require.NoError(t, err)
	require.True(t, asBool(v))

	v, err = Eval(ctx, NotExists(stubExistsRunner{found: true}))
	require.NoError(t, err)
	require.False(t, asBool(v))
}
