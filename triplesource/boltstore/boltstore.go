// Package boltstore implements a file-backed triplesource.TripleSource
// (spec §6.1's "a file-backed parser-fed store") using
// github.com/boltdb/bolt as the on-disk index, the concrete home for the
// teacher's own boltdb/bolt dependency (the teacher uses bolt as an
// embedded key-value index backing its own catalogs; here it backs triple
// storage the same way).
//
// Every triple position is interned to a fixed-width uint64 id (termsBucket
// name->id, idsBucket id->name) so the three index buckets (spo, pos, osp)
// can use fixed 40-byte keys (three 8-byte ids, the triple's origin id and
// its row id) and support prefix scans via *bolt.Cursor.Seek, the same leading-bound-
// components strategy memstore's posting-list intersection achieves with
// bitmaps — bolt has no bitmap index, so an ordered B+tree prefix scan is
// the idiomatic substitute.
package boltstore

import (
	"encoding/binary"

	bolt "github.com/boltdb/bolt"

	"github.com/sparqlgo/engine/term"
	"github.com/sparqlgo/engine/triplesource"
)

var (
	bucketTerms = []byte("terms") // encoded term -> id
	bucketIDs   = []byte("ids")   // id -> encoded term
	bucketMeta  = []byte("meta")  // counters
	bucketSPO   = []byte("spo")   // subject|predicate|object|origin -> triple id
	bucketPOS   = []byte("pos")   // predicate|object|subject|origin -> triple id
	bucketOSP   = []byte("osp")   // object|subject|predicate|origin -> triple id

	keyNextTermID = []byte("next_term_id")
	keyNextRowID  = []byte("next_row_id")
)

// Store is a bolt-backed TripleSource. Zero value is not usable; build one
// with Open.
type Store struct {
	db       *bolt.DB
	noOrigin uint64
}

// Open creates/opens a bolt database at path and ensures its buckets exist.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, err
	}
	s := &Store{db: db}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bucketTerms, bucketIDs, bucketMeta, bucketSPO, bucketPOS, bucketOSP} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	err = db.Update(func(tx *bolt.Tx) error {
		id, err := internInTx(tx, term.Unbound)
		if err != nil {
			return err
		}
		s.noOrigin = id
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the underlying bolt database handle.
func (s *Store) Close() error { return s.db.Close() }

func encodeTerm(t term.Term) []byte {
	kind := byte(t.Kind())
	lex := t.Lexical()
	lang := t.Language()
	dt := t.Datatype()
	buf := make([]byte, 0, 1+2+len(lex)+2+len(lang)+2+len(dt))
	buf = append(buf, kind)
	buf = appendLenPrefixed(buf, lex)
	buf = appendLenPrefixed(buf, lang)
	buf = appendLenPrefixed(buf, dt)
	return buf
}

func appendLenPrefixed(buf []byte, s string) []byte {
	var l [2]byte
	binary.BigEndian.PutUint16(l[:], uint16(len(s)))
	buf = append(buf, l[:]...)
	buf = append(buf, s...)
	return buf
}

func decodeTerm(buf []byte) term.Term {
	kind := term.Kind(buf[0])
	buf = buf[1:]
	lex, buf := readLenPrefixed(buf)
	lang, buf := readLenPrefixed(buf)
	dt, _ := readLenPrefixed(buf)
	switch kind {
	case term.KindIRI:
		return term.NewIRI(lex)
	case term.KindBlankNode:
		return term.NewBlankNode(lex)
	case term.KindLiteral:
		return term.NewLiteral(lex, lang, dt)
	default:
		return term.Unbound
	}
}

func readLenPrefixed(buf []byte) (string, []byte) {
	n := binary.BigEndian.Uint16(buf[:2])
	return string(buf[2 : 2+n]), buf[2+n:]
}

func idBytes(id uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], id)
	return b[:]
}

func internInTx(tx *bolt.Tx, t term.Term) (uint64, error) {
	terms := tx.Bucket(bucketTerms)
	ids := tx.Bucket(bucketIDs)
	meta := tx.Bucket(bucketMeta)
	key := encodeTerm(t)
	if v := terms.Get(key); v != nil {
		return binary.BigEndian.Uint64(v), nil
	}
	next := uint64(1)
	if v := meta.Get(keyNextTermID); v != nil {
		next = binary.BigEndian.Uint64(v)
	}
	if err := terms.Put(key, idBytes(next)); err != nil {
		return 0, err
	}
	if err := ids.Put(idBytes(next), key); err != nil {
		return 0, err
	}
	if err := meta.Put(keyNextTermID, idBytes(next+1)); err != nil {
		return 0, err
	}
	return next, nil
}

func lookupInTx(tx *bolt.Tx, t term.Term) (uint64, bool) {
	v := tx.Bucket(bucketTerms).Get(encodeTerm(t))
	if v == nil {
		return 0, false
	}
	return binary.BigEndian.Uint64(v), true
}

func nextRowID(tx *bolt.Tx) (uint64, error) {
	meta := tx.Bucket(bucketMeta)
	next := uint64(1)
	if v := meta.Get(keyNextRowID); v != nil {
		next = binary.BigEndian.Uint64(v)
	}
	if err := meta.Put(keyNextRowID, idBytes(next+1)); err != nil {
		return 0, err
	}
	return next, nil
}

// AddTriple interns subject/predicate/object/origin and records the triple
// in all three index orderings. origin == term.Unbound records a
// default-graph triple, same convention as memstore.
func (s *Store) AddTriple(subject, predicate, object, origin term.Term) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		sid, err := internInTx(tx, subject)
		if err != nil {
			return err
		}
		pid, err := internInTx(tx, predicate)
		if err != nil {
			return err
		}
		oid, err := internInTx(tx, object)
		if err != nil {
			return err
		}
		gid := s.noOrigin
		if !origin.IsUnbound() {
			gid, err = internInTx(tx, origin)
			if err != nil {
				return err
			}
		}
		rowID, err := nextRowID(tx)
		if err != nil {
			return err
		}
		rb := idBytes(rowID)
		if err := tx.Bucket(bucketSPO).Put(indexKey(sid, pid, oid, gid, rowID), rb); err != nil {
			return err
		}
		if err := tx.Bucket(bucketPOS).Put(indexKey(pid, oid, sid, gid, rowID), rb); err != nil {
			return err
		}
		return tx.Bucket(bucketOSP).Put(indexKey(oid, sid, pid, gid, rowID), rb)
	})
}

func indexKey(a, b, c, g, row uint64) []byte {
	buf := make([]byte, 40)
	binary.BigEndian.PutUint64(buf[0:8], a)
	binary.BigEndian.PutUint64(buf[8:16], b)
	binary.BigEndian.PutUint64(buf[16:24], c)
	binary.BigEndian.PutUint64(buf[24:32], g)
	binary.BigEndian.PutUint64(buf[32:40], row)
	return buf
}

// chooseIndex picks the index bucket giving the tightest scan for p,
// preferring the ordering whose leading component is bound, and returns
// slotToPos: slotToPos[slot] is the original triple position (0=subject,
// 1=predicate, 2=object) whose id occupies that key slot in the chosen
// bucket's 3-component prefix.
func chooseIndex(p triplesource.Pattern) (bucket []byte, slotToPos [3]int) {
	switch {
	case p.Subject != nil:
		return bucketSPO, [3]int{0, 1, 2}
	case p.Predicate != nil:
		return bucketPOS, [3]int{1, 2, 0}
	case p.Object != nil:
		return bucketOSP, [3]int{2, 0, 1}
	default:
		return bucketSPO, [3]int{0, 1, 2}
	}
}

func (s *Store) TriplePresent(p triplesource.Pattern) (bool, error) {
	found := false
	err := s.db.View(func(tx *bolt.Tx) error {
		it, err := newMatchInTx(tx, s, p)
		if err != nil {
			return err
		}
		ok, err := it.NextMatch()
		if err != nil {
			return err
		}
		found = ok
		return nil
	})
	return found, err
}

func (s *Store) NewTriplesMatch(p triplesource.Pattern, parts triplesource.Parts) (triplesource.TriplesMatch, error) {
	tx, err := s.db.Begin(false)
	if err != nil {
		return nil, err
	}
	it, err := newMatchInTx(tx, s, p)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	it.tx = tx
	return it, nil
}

// matchIter holds its own read-only bolt transaction for the duration of
// the scan (bolt read transactions are cheap and can be held open), closed
// by Close.
type matchIter struct {
	tx     *bolt.Tx
	cursor *bolt.Cursor
	prefix []byte

	wantOrigin *uint64 // nil = wildcard, else required origin id
	slotToPos  [3]int  // slotToPos[slot] = original position decoded from key[slot]

	key, val []byte
	end      bool

	store *Store
}

func newMatchInTx(tx *bolt.Tx, s *Store, p triplesource.Pattern) (*matchIter, error) {
	bucket, slotToPos := chooseIndex(p)
	terms := [3]*term.Term{p.Subject, p.Predicate, p.Object}

	var prefix []byte
	for _, pos := range slotToPos {
		t := terms[pos]
		if t == nil {
			break
		}
		id, ok := lookupInTx(tx, *t)
		if !ok {
			// constrained term never interned: guaranteed zero matches
			return &matchIter{end: true}, nil
		}
		prefix = append(prefix, idBytes(id)...)
	}

	it := &matchIter{tx: tx, cursor: tx.Bucket(bucket).Cursor(), prefix: prefix, store: s, slotToPos: slotToPos}
	if p.Origin != nil {
		if p.Origin.IsUnbound() {
			id := s.noOrigin
			it.wantOrigin = &id
		} else {
			id, ok := lookupInTx(tx, *p.Origin)
			if !ok {
				it.end = true
				return it, nil
			}
			it.wantOrigin = &id
		}
	}
	return it, nil
}

func (m *matchIter) NextMatch() (bool, error) {
	if m.end {
		return false, nil
	}
	if m.key == nil && m.cursor != nil {
		m.key, m.val = m.cursor.Seek(m.prefix)
	} else if m.cursor != nil {
		m.key, m.val = m.cursor.Next()
	}
	for m.key != nil {
		if !hasPrefix(m.key, m.prefix) {
			m.key = nil
			break
		}
		gid := binary.BigEndian.Uint64(m.key[24:32])
		if m.wantOrigin == nil || gid == *m.wantOrigin {
			return true, nil
		}
		m.key, m.val = m.cursor.Next()
	}
	m.end = true
	return false, nil
}

func hasPrefix(key, prefix []byte) bool {
	if len(prefix) > len(key) {
		return false
	}
	for i := range prefix {
		if key[i] != prefix[i] {
			return false
		}
	}
	return true
}

func (m *matchIter) IsEnd() bool { return m.end }

func (m *matchIter) Current() (subject, predicate, object, origin term.Term) {
	var ids [3]uint64
	ids[0] = binary.BigEndian.Uint64(m.key[0:8])
	ids[1] = binary.BigEndian.Uint64(m.key[8:16])
	ids[2] = binary.BigEndian.Uint64(m.key[16:24])
	gid := binary.BigEndian.Uint64(m.key[24:32])

	var byPos [3]uint64 // 0=subject, 1=predicate, 2=object
	for slot, pos := range m.slotToPos {
		byPos[pos] = ids[slot]
	}
	subject = m.resolve(byPos[0])
	predicate = m.resolve(byPos[1])
	object = m.resolve(byPos[2])
	if gid == m.store.noOrigin {
		origin = term.Unbound
	} else {
		origin = m.resolve(gid)
	}
	return
}

func (m *matchIter) resolve(id uint64) term.Term {
	v := m.tx.Bucket(bucketIDs).Get(idBytes(id))
	return decodeTerm(v)
}

func (m *matchIter) Close() error {
	if m.tx == nil {
		return nil
	}
	return m.tx.Rollback()
}
