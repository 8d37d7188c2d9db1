package rowsource

import (
	"io"

	"github.com/sparqlgo/engine/engine"
	"github.com/sparqlgo/engine/scope"
	"github.com/sparqlgo/engine/term"
)

// ToList implements spec §4.5's ToList: eagerly materializes Inner into a
// slice at Init time. Unlike OrderBy (which also materializes) ToList does
// no reordering — it exists purely to give a non-Resettable subtree a
// cheap Reset, the same role bufferRight plays automatically for a Join's
// right-hand side, but made an explicit plan node for places the planner
// needs to force materialization (e.g. a Service call's output reused more
// than once).
type ToList struct {
	Inner RowSource

	rows []*Row
	pos  int
}

func NewToList(inner RowSource) *ToList { return &ToList{Inner: inner} }

func (t *ToList) EnsureVariables() *scope.Table { return t.Inner.EnsureVariables() }

func (t *ToList) Init(ctx *engine.Context) error {
	if err := t.Inner.Init(ctx); err != nil {
		return err
	}
	t.rows = t.rows[:0]
	for {
		row, err := t.Inner.ReadRow(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		t.rows = append(t.rows, row)
	}
	t.pos = 0
	return t.Inner.Finish(ctx)
}

func (t *ToList) Finish(ctx *engine.Context) error { return nil }

func (t *ToList) ReadRow(ctx *engine.Context) (*Row, error) {
	if t.pos >= len(t.rows) {
		return nil, io.EOF
	}
	row := t.rows[t.pos]
	t.pos++
	return row, nil
}

func (t *ToList) Reset(ctx *engine.Context) error {
	t.pos = 0
	return nil
}

func (t *ToList) ReadAllRows(ctx *engine.Context) ([]*Row, error) {
	return t.rows[t.pos:], nil
}

func (t *ToList) HasAnyRow(ctx *engine.Context) (bool, error) { return len(t.rows) > 0, nil }

// SetOrigin forwards to Inner when it is an OriginSetter.
func (t *ToList) SetOrigin(origin term.Term) { forwardOrigin(t.Inner, origin) }
