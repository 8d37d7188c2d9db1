package triplesource

import "github.com/sparqlgo/engine/term"

// unionSource presents several TripleSources as one, used by engine/exec to
// scope a query's default graph to the union of an explicit FROM list (spec
// §6/§9's "capability set" design: any TripleSource, including a composite
// one, can back rowsource.Triples without it knowing the difference).
type unionSource struct {
	sources        []TripleSource
	collapseOrigin bool
}

// Union combines sources into one TripleSource. collapseOrigin forces every
// matched triple's reported origin to term.Unbound, which is what scanning
// several named graphs as one default graph (SPARQL's FROM list) requires:
// the triples are visible, but which graph each came from is not.
func Union(sources []TripleSource, collapseOrigin bool) TripleSource {
	return &unionSource{sources: sources, collapseOrigin: collapseOrigin}
}

func (u *unionSource) TriplePresent(p Pattern) (bool, error) {
	for _, s := range u.sources {
		ok, err := s.TriplePresent(p)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

func (u *unionSource) NewTriplesMatch(p Pattern, parts Parts) (TriplesMatch, error) {
	iters := make([]TriplesMatch, 0, len(u.sources))
	for _, s := range u.sources {
		it, err := s.NewTriplesMatch(p, parts)
		if err != nil {
			for _, prev := range iters {
				prev.Close()
			}
			return nil, err
		}
		iters = append(iters, it)
	}
	return &unionMatch{iters: iters, collapseOrigin: u.collapseOrigin}, nil
}

// unionMatch concatenates its member iterators in order: source[0]
// exhausts before source[1] begins, matching spec.md §4.6's requirement
// that a triple-source failure "propagates as failed; no partial row is
// emitted" — a mid-union error simply stops the whole scan.
type unionMatch struct {
	iters          []TriplesMatch
	idx            int
	collapseOrigin bool
}

func (m *unionMatch) NextMatch() (bool, error) {
	for m.idx < len(m.iters) {
		ok, err := m.iters[m.idx].NextMatch()
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
		m.idx++
	}
	return false, nil
}

func (m *unionMatch) IsEnd() bool { return m.idx >= len(m.iters) }

func (m *unionMatch) Current() (subject, predicate, object, origin term.Term) {
	subject, predicate, object, origin = m.iters[m.idx].Current()
	if m.collapseOrigin {
		origin = term.Unbound
	}
	return
}

func (m *unionMatch) Close() error {
	var firstErr error
	for _, it := range m.iters {
		if err := it.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
