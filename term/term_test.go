package term

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTermConstruction(t *testing.T) {
	iri := NewIRI("http://example.org/s")
	require.Equal(t, KindIRI, iri.Kind())
	require.Equal(t, "<http://example.org/s>", iri.String())

	bn := NewBlankNode("b0")
	require.Equal(t, KindBlankNode, bn.Kind())
	require.Equal(t, "_:b0", bn.String())

	lit := NewLiteral("42", "", XSDInteger)
	require.True(t, lit.IsNumeric())
	require.Equal(t, `"42"^^<http://www.w3.org/2001/XMLSchema#integer>`, lit.String())

	langLit := NewLiteral("chat", "fr", "")
	require.Equal(t, "fr", langLit.Language())
	require.Equal(t, `"chat"@fr`, langLit.String())

	require.True(t, Unbound.IsUnbound())
	require.False(t, iri.IsUnbound())
}

func TestTermEqualityStrict(t *testing.T) {
	a := NewLiteral("1", "", XSDInteger)
	b := NewLiteral("1.0", "", XSDDecimal)
	ok, err := Equal(a, b, ModeTermEquality)
	require.NoError(t, err)
	require.False(t, ok, "strict equality must not promote numeric types")
}

func TestXQueryNumericPromotion(t *testing.T) {
	a := NewLiteral("1", "", XSDInteger)
	b := NewLiteral("1.0", "", XSDDecimal)
	ok, err := Equal(a, b, ModeXQuery)
	require.NoError(t, err)
	require.True(t, ok)

	c := NewLiteral("2", "", XSDInteger)
	cmp, err := Compare(a, c, ModeXQuery)
	require.NoError(t, err)
	require.Equal(t, -1, cmp)
}

func TestDoubleApproxEquality(t *testing.T) {
	a := NewLiteral("0.1", "", XSDDouble)
	b := NewLiteral("0.1000000000000001", "", XSDDouble)
	ok, err := Equal(a, b, ModeXQuery)
	require.NoError(t, err)
	require.True(t, ok, "values within the scaled epsilon must compare equal")
}

func TestRDFTermEqualIncomparable(t *testing.T) {
	a := NewLiteral("abc", "", "http://example.org/custom")
	b := NewLiteral("abc", "", "http://example.org/other")
	_, err := Compare(a, b, ModeRDFTermEqual)
	require.ErrorIs(t, err, Incomparable)
}

func TestRDFTermEqualTypeErrorOnKindMismatch(t *testing.T) {
	iri := NewIRI("http://example.org/a")
	lit := NewSimpleLiteral("http://example.org/a")
	_, err := Compare(iri, lit, ModeRDFTermEqual)
	require.Error(t, err)
	var typeErr *TypeError
	require.ErrorAs(t, err, &typeErr)
}

func TestEBV(t *testing.T) {
	cases := []struct {
		t    Term
		want bool
	}{
		{NewBoolean(true), true},
		{NewBoolean(false), false},
		{NewLiteral("0", "", XSDInteger), false},
		{NewLiteral("7", "", XSDInteger), true},
		{NewSimpleLiteral(""), false},
		{NewSimpleLiteral("x"), true},
	}
	for _, c := range cases {
		got, err := EBV(c.t)
		require.NoError(t, err)
		require.Equal(t, c.want, got)
	}

	_, err := EBV(NewIRI("http://example.org/x"))
	require.Error(t, err)

	_, err = EBV(Unbound)
	require.Error(t, err)
}

func TestEBVRoundTrip(t *testing.T) {
	// EBV(x) == EBV(EBV(x) as boolean) where defined — testable property 6.
	for _, lit := range []Term{
		NewLiteral("5", "", XSDInteger),
		NewSimpleLiteral("hi"),
		NewBoolean(true),
	} {
		b1, err := EBV(lit)
		require.NoError(t, err)
		b2, err := EBV(NewBoolean(b1))
		require.NoError(t, err)
		require.Equal(t, b1, b2)
	}
}

func TestCasts(t *testing.T) {
	i, err := ToInteger(NewLiteral("3.9", "", XSDDouble))
	require.NoError(t, err)
	require.Equal(t, "3", i.Lexical())

	_, err = ToInteger(NewSimpleLiteral("not-a-number"))
	require.Error(t, err)

	d, err := ToDouble(NewLiteral("42", "", XSDInteger))
	require.NoError(t, err)
	require.Equal(t, XSDDouble, d.Datatype())

	s := ToSimpleString(NewIRI("http://example.org/x"))
	require.True(t, s.IsSimpleLiteral())
	require.Equal(t, "http://example.org/x", s.Lexical())
}
