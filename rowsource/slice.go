package rowsource

import (
	"io"

	"github.com/sparqlgo/engine/engine"
	"github.com/sparqlgo/engine/scope"
	"github.com/sparqlgo/engine/term"
)

// Slice implements spec §4.5's Slice (OFFSET/LIMIT): skips Offset rows,
// then yields at most Limit more (when HasLimit; an absent LIMIT clause
// streams the rest of Inner unbounded).
type Slice struct {
	Offset, Limit int
	HasLimit      bool
	Inner         RowSource

	skipped int
	emitted int
}

func NewSlice(offset, limit int, hasLimit bool, inner RowSource) *Slice {
	return &Slice{Offset: offset, Limit: limit, HasLimit: hasLimit, Inner: inner}
}

func (s *Slice) Init(ctx *engine.Context) error {
	s.skipped = 0
	s.emitted = 0
	return s.Inner.Init(ctx)
}

func (s *Slice) EnsureVariables() *scope.Table { return s.Inner.EnsureVariables() }

func (s *Slice) Finish(ctx *engine.Context) error { return s.Inner.Finish(ctx) }

func (s *Slice) ReadRow(ctx *engine.Context) (*Row, error) {
	if s.HasLimit && s.emitted >= s.Limit {
		return nil, io.EOF
	}
	for s.skipped < s.Offset {
		if _, err := s.Inner.ReadRow(ctx); err != nil {
			return nil, err
		}
		s.skipped++
	}
	row, err := s.Inner.ReadRow(ctx)
	if err != nil {
		return nil, err
	}
	s.emitted++
	return row, nil
}

func (s *Slice) HasAnyRow(ctx *engine.Context) (bool, error) { return hasAnyRow(ctx, s) }

func (s *Slice) Reset(ctx *engine.Context) error {
	s.skipped = 0
	s.emitted = 0
	if r, ok := s.Inner.(Resettable); ok {
		return r.Reset(ctx)
	}
	if err := s.Inner.Finish(ctx); err != nil {
		return err
	}
	return s.Inner.Init(ctx)
}

// Seed forwards to Inner when it is Seedable.
func (s *Slice) Seed(vars []*scope.Variable, values *Row) {
	if sd, ok := s.Inner.(Seedable); ok {
		sd.Seed(vars, values)
	}
}

// SetOrigin forwards to Inner when it is an OriginSetter.
func (s *Slice) SetOrigin(origin term.Term) { forwardOrigin(s.Inner, origin) }
