package algebra

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sparqlgo/engine/scope"
	"github.com/sparqlgo/engine/term"
)

func TestNewBGPSetsTriplesAndOp(t *testing.T) {
	tbl := scope.NewTable()
	s := tbl.Add("s", scope.KindNormal)
	triples := []Pattern{
		{Subject: Var(s), Predicate: Const(term.NewIRI("http://example.org/p")), Object: Const(term.NewSimpleLiteral("o"))},
	}
	n := NewBGP(triples)
	require.Equal(t, OpBGP, n.Op)
	require.Len(t, n.Triples, 1)
	require.True(t, n.Triples[0].Subject.IsVar)
	require.Equal(t, s, n.Triples[0].Subject.Var)
}

func TestNewJoinCopiesChildrenByValue(t *testing.T) {
	l := NewBGP(nil)
	r := NewBGP(nil)
	n := NewJoin(l, r)
	require.Equal(t, OpJoin, n.Op)
	require.Equal(t, OpBGP, n.Left.Op)
	require.Equal(t, OpBGP, n.Right.Op)
}

func TestNewLeftJoinFilterMayBeNil(t *testing.T) {
	n := NewLeftJoin(NewBGP(nil), NewBGP(nil), nil)
	require.Equal(t, OpLeftJoin, n.Op)
	require.Nil(t, n.Filter)
}

func TestNewSliceDistinguishesNoLimitFromLimitZero(t *testing.T) {
	noLimit := NewSlice(5, 0, false, NewBGP(nil))
	require.False(t, noLimit.HasLimit)
	require.Equal(t, 5, noLimit.Offset)

	limitZero := NewSlice(0, 0, true, NewBGP(nil))
	require.True(t, limitZero.HasLimit)
	require.Equal(t, 0, limitZero.Limit)
}

func TestNewDatasetCarriesGraphLists(t *testing.T) {
	n := NewDataset([]string{"default.nt"}, []string{"http://g/1"}, NewBGP(nil))
	require.Equal(t, OpDataset, n.Op)
	require.Equal(t, []string{"default.nt"}, n.DefaultGraphs)
	require.Equal(t, []string{"http://g/1"}, n.NamedGraphs)
}

// TestWalkVisitsBinaryOpsLeftThenRight confirms Walk's traversal order for
// the four binary operators, matching cmd/sparqlquery's explain printer.
func TestWalkVisitsBinaryOpsLeftThenRight(t *testing.T) {
	leftLeaf := NewBGP([]Pattern{{}})
	rightLeaf := NewBGP([]Pattern{{}, {}})
	root := NewJoin(leftLeaf, rightLeaf)

	var visited []Op
	var leaves [][]Pattern
	Walk(root, func(n *Node) bool {
		visited = append(visited, n.Op)
		if n.Op == OpBGP {
			leaves = append(leaves, n.Triples)
		}
		return true
	})

	require.Equal(t, []Op{OpJoin, OpBGP, OpBGP}, visited)
	require.Len(t, leaves[0], 1)
	require.Len(t, leaves[1], 2)
}

func TestWalkVisitsUnaryChildChain(t *testing.T) {
	inner := NewBGP(nil)
	filtered := NewFilter(nil, inner)
	projected := NewProject(nil, filtered)

	var visited []Op
	Walk(projected, func(n *Node) bool {
		visited = append(visited, n.Op)
		return true
	})

	require.Equal(t, []Op{OpProject, OpFilter, OpBGP}, visited)
}

func TestWalkStopsDescendingWhenVisitReturnsFalse(t *testing.T) {
	root := NewProject(nil, NewFilter(nil, NewBGP(nil)))

	var visited []Op
	Walk(root, func(n *Node) bool {
		visited = append(visited, n.Op)
		return n.Op != OpProject
	})

	require.Equal(t, []Op{OpProject}, visited)
}

func TestWalkOnNilNodeIsNoOp(t *testing.T) {
	require.NotPanics(t, func() {
		Walk(nil, func(n *Node) bool {
			t.Fatal("visit should never be called for a nil node")
			return true
		})
	})
}
