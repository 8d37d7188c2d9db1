// Package memstore implements an in-memory triplesource.TripleSource
// (spec §6), backed by interned term IDs and per-position posting lists
// (github.com/RoaringBitmap/roaring, a pack-wide dependency) so a
// NewTriplesMatch scan is an index lookup rather than a full table scan
// whenever at least one position is constrained.
package memstore

import (
	"sync"

	"github.com/RoaringBitmap/roaring"

	"github.com/sparqlgo/engine/term"
	"github.com/sparqlgo/engine/triplesource"
)

// Store is a single named graph's worth of triples (or, when used as the
// default-graph source, the union view a caller already scoped), kept
// entirely in memory.
type Store struct {
	mu sync.RWMutex

	terms   map[term.Term]uint32
	byID    []term.Term
	triples [][4]uint32 // subject, predicate, object, origin term IDs

	bySubject, byPredicate, byObject, byOrigin map[uint32]*roaring.Bitmap
	all                                        *roaring.Bitmap

	noOrigin uint32 // interned ID standing in for "no named graph" (default-graph triples)
}

// New returns an empty Store.
func New() *Store {
	s := &Store{
		terms:        make(map[term.Term]uint32),
		bySubject:    make(map[uint32]*roaring.Bitmap),
		byPredicate:  make(map[uint32]*roaring.Bitmap),
		byObject:     make(map[uint32]*roaring.Bitmap),
		byOrigin:     make(map[uint32]*roaring.Bitmap),
		all:          roaring.New(),
	}
	s.noOrigin = s.intern(term.Unbound)
	return s
}

func (s *Store) intern(t term.Term) uint32 {
	if id, ok := s.terms[t]; ok {
		return id
	}
	id := uint32(len(s.byID))
	s.terms[t] = id
	s.byID = append(s.byID, t)
	return id
}

func (s *Store) lookup(t term.Term) (uint32, bool) {
	id, ok := s.terms[t]
	return id, ok
}

func posting(idx map[uint32]*roaring.Bitmap, id uint32) *roaring.Bitmap {
	bm, ok := idx[id]
	if !ok {
		bm = roaring.New()
		idx[id] = bm
	}
	return bm
}

// AddTriple inserts one triple. origin == term.Unbound records it as a
// default-graph triple with no named-graph membership.
func (s *Store) AddTriple(subject, predicate, object, origin term.Term) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sid := s.intern(subject)
	pid := s.intern(predicate)
	oid := s.intern(object)
	gid := s.noOrigin
	if !origin.IsUnbound() {
		gid = s.intern(origin)
	}

	idx := uint32(len(s.triples))
	s.triples = append(s.triples, [4]uint32{sid, pid, oid, gid})
	posting(s.bySubject, sid).Add(idx)
	posting(s.byPredicate, pid).Add(idx)
	posting(s.byObject, oid).Add(idx)
	posting(s.byOrigin, gid).Add(idx)
	s.all.Add(idx)
}

// candidates intersects the posting lists for every constrained position
// in p, returning nil if any constrained position was never interned
// (guaranteed zero matches without touching the index).
func (s *Store) candidates(p triplesource.Pattern) *roaring.Bitmap {
	bm := s.all.Clone()
	constrain := func(idx map[uint32]*roaring.Bitmap, t *term.Term) bool {
		if t == nil {
			return true
		}
		id, ok := s.lookup(*t)
		if !ok {
			return false
		}
		bm.And(posting(idx, id))
		return true
	}
	if !constrain(s.bySubject, p.Subject) {
		return roaring.New()
	}
	if !constrain(s.byPredicate, p.Predicate) {
		return roaring.New()
	}
	if !constrain(s.byObject, p.Object) {
		return roaring.New()
	}
	if p.Origin != nil {
		if p.Origin.IsUnbound() {
			bm.And(posting(s.byOrigin, s.noOrigin))
		} else if id, ok := s.lookup(*p.Origin); ok {
			bm.And(posting(s.byOrigin, id))
		} else {
			return roaring.New()
		}
	}
	return bm
}

func (s *Store) TriplePresent(p triplesource.Pattern) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.candidates(p).IsEmpty(), nil
}

func (s *Store) NewTriplesMatch(p triplesource.Pattern, parts triplesource.Parts) (triplesource.TriplesMatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	bm := s.candidates(p)
	return &matchIter{store: s, it: bm.Iterator(), started: false}, nil
}

type matchIter struct {
	store   *Store
	it      roaring.IntPeekable
	started bool
	current [4]uint32
	end     bool
}

func (m *matchIter) NextMatch() (bool, error) {
	if !m.it.HasNext() {
		m.end = true
		return false, nil
	}
	idx := m.it.Next()
	m.store.mu.RLock()
	m.current = m.store.triples[idx]
	m.store.mu.RUnlock()
	m.started = true
	return true, nil
}

func (m *matchIter) IsEnd() bool { return m.end }

func (m *matchIter) Current() (subject, predicate, object, origin term.Term) {
	m.store.mu.RLock()
	defer m.store.mu.RUnlock()
	s, p, o, g := m.current[0], m.current[1], m.current[2], m.current[3]
	origin = term.Unbound
	if g != m.store.noOrigin {
		origin = m.store.byID[g]
	}
	return m.store.byID[s], m.store.byID[p], m.store.byID[o], origin
}

func (m *matchIter) Close() error { return nil }
