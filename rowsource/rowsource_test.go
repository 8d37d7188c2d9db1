package rowsource

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sparqlgo/engine/engine"
	"github.com/sparqlgo/engine/engine/config"
	"github.com/sparqlgo/engine/expr"
	"github.com/sparqlgo/engine/scope"
	"github.com/sparqlgo/engine/term"
)

// fakeSource replays a fixed slice of rows, standing in for a
// triplesource-backed leaf in operator-level tests that don't need an
// actual dataset.
type fakeSource struct {
	table *scope.Table
	rows  []*Row
	idx   int
}

func (f *fakeSource) Init(ctx *engine.Context) error  { f.idx = 0; return nil }
func (f *fakeSource) EnsureVariables() *scope.Table   { return f.table }
func (f *fakeSource) Finish(ctx *engine.Context) error { return nil }

func (f *fakeSource) ReadRow(ctx *engine.Context) (*Row, error) {
	if f.idx >= len(f.rows) {
		return nil, io.EOF
	}
	row := f.rows[f.idx]
	f.idx++
	return row, nil
}

func newTestContext() *engine.Context {
	return engine.NewContext(context.Background(), config.DefaultOptions())
}

func intRows(tbl *scope.Table, v *scope.Variable, values ...string) []*Row {
	rows := make([]*Row, len(values))
	for i, val := range values {
		r := scope.NewRow(tbl.Width(), i)
		r.Set(v.Offset, term.NewLiteral(val, "", term.XSDInteger))
		rows[i] = r
	}
	return rows
}

func TestSliceSkipsOffsetAndCapsLimit(t *testing.T) {
	tbl := scope.NewTable()
	v := tbl.Add("x", scope.KindNormal)
	src := &fakeSource{table: tbl, rows: intRows(tbl, v, "1", "2", "3", "4", "5")}

	sl := NewSlice(1, 2, true, src)
	ctx := newTestContext()
	require.NoError(t, sl.Init(ctx))

	row, err := sl.ReadRow(ctx)
	require.NoError(t, err)
	require.Equal(t, "2", row.Get(v.Offset).Lexical())

	row, err = sl.ReadRow(ctx)
	require.NoError(t, err)
	require.Equal(t, "3", row.Get(v.Offset).Lexical())

	_, err = sl.ReadRow(ctx)
	require.ErrorIs(t, err, io.EOF)
}

func TestSliceWithoutLimitStreamsRest(t *testing.T) {
	tbl := scope.NewTable()
	v := tbl.Add("x", scope.KindNormal)
	src := &fakeSource{table: tbl, rows: intRows(tbl, v, "1", "2", "3")}

	sl := NewSlice(1, 0, false, src)
	ctx := newTestContext()
	require.NoError(t, sl.Init(ctx))

	var got []string
	for {
		row, err := sl.ReadRow(ctx)
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		got = append(got, row.Get(v.Offset).Lexical())
	}
	require.Equal(t, []string{"2", "3"}, got)
}

func TestDistinctDropsDuplicateRows(t *testing.T) {
	tbl := scope.NewTable()
	v := tbl.Add("x", scope.KindNormal)
	src := &fakeSource{table: tbl, rows: intRows(tbl, v, "1", "2", "1", "3", "2")}

	d := NewDistinct(src)
	ctx := newTestContext()
	require.NoError(t, d.Init(ctx))

	var got []string
	for {
		row, err := d.ReadRow(ctx)
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		got = append(got, row.Get(v.Offset).Lexical())
	}
	require.Equal(t, []string{"1", "2", "3"}, got)
}

func TestFilterDropsNonMatchingRows(t *testing.T) {
	tbl := scope.NewTable()
	v := tbl.Add("x", scope.KindNormal)
	src := &fakeSource{table: tbl, rows: intRows(tbl, v, "1", "2", "3")}

	f := NewFilter(expr.Eq(expr.VarRef(v), expr.Lit(term.NewLiteral("2", "", term.XSDInteger))), src)
	ctx := newTestContext()
	require.NoError(t, f.Init(ctx))

	row, err := f.ReadRow(ctx)
	require.NoError(t, err)
	require.Equal(t, "2", row.Get(v.Offset).Lexical())

	_, err = f.ReadRow(ctx)
	require.ErrorIs(t, err, io.EOF)
}

func TestFilterRejectsRowOnEvalErrorRatherThanFailing(t *testing.T) {
	tbl := scope.NewTable()
	v := tbl.Add("x", scope.KindNormal)
	src := &fakeSource{table: tbl, rows: intRows(tbl, v, "1")}

	// Division by zero is an error arm, not unbound (expr package's own
	// tests cover that distinction); Filter must treat it as "row fails"
	// either way, not propagate the error up.
	badExpr := expr.Slash(expr.Lit(term.NewLiteral("1", "", term.XSDInteger)), expr.Lit(term.NewLiteral("0", "", term.XSDInteger)))
	f := NewFilter(badExpr, src)
	ctx := newTestContext()
	require.NoError(t, f.Init(ctx))

	_, err := f.ReadRow(ctx)
	require.ErrorIs(t, err, io.EOF)
}
