// Package errs defines the error-kind taxonomy of the query engine, one
// *errors.Kind per category, following the teacher's own
// `errors.NewKind("...")`-as-sentinel idiom (confirmed in its
// sql/rowexec/set_test.go and sql/plan/insubquery_test.go).
package errs

import errors "gopkg.in/src-d/go-errors.v1"

var (
	// ErrParse marks an ill-formed query text. The query object is marked
	// failed; execution cannot proceed.
	ErrParse = errors.NewKind("parse error: %s")

	// ErrType marks an operator applied to incompatible operand kinds.
	// Inside an expression this becomes the error arm of three-valued
	// logic; inside a filter it rejects the row; it never escapes a single
	// row's evaluation on its own.
	ErrType = errors.NewKind("type error: %s")

	// ErrEvalRuntime marks an I/O failure, regex-compile failure, hash
	// backend unavailability, or a required cast failure during expression
	// evaluation. The current row is dropped if the failure is localizable,
	// otherwise the query fails.
	ErrEvalRuntime = errors.NewKind("evaluation error: %s")

	// ErrTripleSource marks a failure from the pluggable triplesource
	// adapter. Always fatal for the current query.
	ErrTripleSource = errors.NewKind("triple source error: %s")

	// ErrResourceExhaustion marks a memory-allocation failure. Fatal: the
	// result set is marked failed and every held rowsource is finished in
	// reverse order.
	ErrResourceExhaustion = errors.NewKind("resource exhaustion: %s")
)
