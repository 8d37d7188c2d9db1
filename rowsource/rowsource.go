// Package rowsource implements the pull-based execution pipeline of
// spec §4.5: one Go type per algebra operator, all satisfying the common
// RowSource interface, directly modeled on the teacher's sql.RowIter
// (Next(ctx)/Close(ctx), io.EOF sentinel — confirmed via the teacher's
// sql/row_test.go).
package rowsource

import (
	"github.com/sparqlgo/engine/engine"
	"github.com/sparqlgo/engine/scope"
	"github.com/sparqlgo/engine/term"
)

// Row is the pipeline's row type: a fixed-width array of terms indexed by
// variable offset, shared verbatim with package scope so that
// scope.Scope.BindRow (used by correlate) operates on the same value.
type Row = scope.Row

// RowSource is the operator interface every algebra node compiles to.
type RowSource interface {
	// Init prepares the rowsource to be read; called once before the
	// first ReadRow.
	Init(ctx *engine.Context) error
	// EnsureVariables finalizes and returns this rowsource's output
	// schema. Safe to call before or after Init.
	EnsureVariables() *scope.Table
	// ReadRow returns the next row, or io.EOF when exhausted. A non-EOF
	// error is sticky: this rowsource has failed.
	ReadRow(ctx *engine.Context) (*Row, error)
	// Finish releases resources. Called exactly once, even after an
	// error or early termination (e.g. a Slice that has read enough rows).
	Finish(ctx *engine.Context) error
}

// Resettable is implemented by rowsources that can be rewound to their
// initial state (required of a Join's right-hand side; anything else gets
// wrapped in a materializing buffer, see bufferRight in join.go).
type Resettable interface {
	Reset(ctx *engine.Context) error
}

// BulkReader is implemented by rowsources that can produce every
// remaining row in one call more cheaply than one-at-a-time ReadRow.
type BulkReader interface {
	ReadAllRows(ctx *engine.Context) ([]*Row, error)
}

// OriginSetter is implemented by rowsources that can be pinned to a fixed
// GRAPH origin, used by the Graph operator (graph.go) when iterating named
// graphs for a variable origin.
type OriginSetter interface {
	SetOrigin(origin term.Term)
}

// Seedable is implemented by rowsources that can accept values for some of
// their own variables ahead of Init, so their own triplesource queries
// treat those positions as constraints rather than wildcards. Used by
// correlate-driven MINUS/EXISTS evaluation (spec §4.8) to push an outer
// row's bindings into an inner pattern efficiently; a rowsource that does
// not implement this (checked via type assertion) is simply scanned
// unconstrained, with correctness still guaranteed by the compatibility
// check Diff/the EXISTS bridge perform on every candidate row regardless.
type Seedable interface {
	Seed(vars []*scope.Variable, values *Row)
}

// forwardOrigin sets origin on rs when rs implements OriginSetter, used by
// every composite rowsource to pass a GRAPH block's origin restriction
// down through wrapping operators (Filter, Join, ...) to the Triples leaves
// that actually apply it.
func forwardOrigin(rs RowSource, origin term.Term) {
	if s, ok := rs.(OriginSetter); ok {
		s.SetOrigin(origin)
	}
}

// InnerRowSourceGetter exposes a rowsource's children for introspection
// (e.g. --explain), mirroring the teacher's optional sql.Node2-style
// capability interfaces checked via type assertion rather than forced into
// every implementation.
type InnerRowSourceGetter interface {
	GetInnerRowSource(index int) RowSource
}
