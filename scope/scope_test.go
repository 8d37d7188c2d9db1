package scope

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sparqlgo/engine/term"
)

func TestTableAddIdempotent(t *testing.T) {
	tbl := NewTable()
	a := tbl.Add("x", KindNormal)
	b := tbl.Add("x", KindNormal)
	require.Same(t, a, b)
	require.Equal(t, 1, tbl.Count())
}

func TestTableNFCNormalization(t *testing.T) {
	tbl := NewTable()
	// "é" as precomposed vs "e" + combining acute must collide.
	precomposed := tbl.Add("café", KindNormal)
	decomposed := tbl.Add("café", KindNormal)
	require.Same(t, precomposed, decomposed)
}

func TestScopeInvariants(t *testing.T) {
	root := NewRoot()
	root.Local().Add("s", KindNormal)

	child := New(NodeGroup, root)
	child.Local().Add("g", KindNormal)

	require.True(t, root.CheckInvariants())
	require.True(t, child.CheckInvariants())

	require.True(t, root.Provides("s"))
	require.True(t, child.Defines("s"), "child must see parent's visible variables")
	require.True(t, child.Provides("g"))
	require.False(t, root.Provides("g"), "parent must not see a child's local variable")
}

func TestScopeLocalWinsOnConflict(t *testing.T) {
	root := NewRoot()
	outer := root.Local().Add("v", KindNormal)

	child := New(NodeMinus, root)
	inner := child.Local().Add("v", KindNormal)
	require.NotEqual(t, outer.Offset, inner.Offset)

	resolved, ok := child.Visible().GetByName("v")
	require.True(t, ok)
	require.Same(t, inner, resolved, "a scope's own binding must shadow the parent's")
}

func TestAddChildRejectsForeignScope(t *testing.T) {
	root := NewRoot()
	other := NewRoot()
	child := New(NodeUnion, other)

	require.Panics(t, func() {
		root.AddChild(child)
	})
}

func TestBindRowRespectsVisibility(t *testing.T) {
	root := NewRoot()
	sVar := root.Local().Add("s", KindNormal)

	child := New(NodeMinus, root)
	wVar := child.Local().Add("w", KindNormal)

	srcTable := NewTable()
	srcTable.Add("s", KindNormal)
	srcRow := NewRow(1, 0)
	srcRow.Set(0, term.NewIRI("http://example.org/a"))

	dstTable := NewTable()
	dstTable.Add("s", KindNormal)
	dstTable.Add("w", KindNormal)
	dstRow := NewRow(2, 0)

	child.BindRow(srcRow, srcTable, dstRow, dstTable)

	got := dstRow.Get(dstTable.byOffset[indexOf(dstTable, "s")].Offset)
	require.Equal(t, "http://example.org/a", got.Lexical())
	// w was never present in srcTable, so it must remain unbound.
	wOff, _ := dstTable.GetByName("w")
	require.True(t, dstRow.Get(wOff.Offset).IsUnbound())
	_ = sVar
	_ = wVar
}

func indexOf(t *Table, name string) int {
	for i, v := range t.byOffset {
		if v.Name == name {
			return i
		}
	}
	return -1
}
