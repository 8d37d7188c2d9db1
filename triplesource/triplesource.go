// Package triplesource defines the pluggable triple-store contract of
// spec §6: a capability set (§9's "capability set" design note) that
// rowsource.Triples (§4.6) drives without caring whether the backing store
// is in-memory (triplesource/memstore) or file-backed
// (triplesource/boltstore).
package triplesource

import "github.com/sparqlgo/engine/term"

// Parts is a bitmask over a triple's four positions.
type Parts int

const (
	PartSubject Parts = 1 << iota
	PartPredicate
	PartObject
	PartOrigin
)

// Has reports whether p includes part.
func (p Parts) Has(part Parts) bool { return p&part != 0 }

// Pattern is a triple pattern over concrete terms: a nil pointer at a
// position means "unbound/wildcard" for that position.
type Pattern struct {
	Subject, Predicate, Object, Origin *term.Term
}

// TripleSource is the contract a triple store must satisfy to back
// rowsource.Triples.
type TripleSource interface {
	// TriplePresent reports whether an exact, fully-bound triple exists.
	TriplePresent(p Pattern) (bool, error)

	// NewTriplesMatch returns an iterator over every stored triple
	// consistent with p: a non-nil position in p always filters (whether
	// it's a query constant or a constraint pre-bound from an
	// already-resolved variable). parts names the positions whose
	// variables the caller binds for the first time from Current(): a
	// variable repeated within p is named at its first position only, and a
	// position pre-filled by Seed is named even though it is non-nil in p.
	// An index-backed store may use it to pick its scan order.
	NewTriplesMatch(p Pattern, parts Parts) (TriplesMatch, error)
}

// TriplesMatch iterates the triples matched by one NewTriplesMatch call.
// A freshly-created TriplesMatch is positioned before the first match;
// call NextMatch to advance to it.
type TriplesMatch interface {
	// NextMatch advances to the next matching triple, returning false
	// (and IsEnd()==true) when exhausted.
	NextMatch() (bool, error)
	// IsEnd reports whether the iterator is exhausted.
	IsEnd() bool
	// Current returns the full matched triple (all four positions bound
	// to concrete terms, Origin the zero term.Unbound when the store has
	// no notion of named graphs for this triple).
	Current() (subject, predicate, object, origin term.Term)
	// Close releases resources held by the iterator.
	Close() error
}
