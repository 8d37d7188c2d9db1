package rowsource

import "github.com/sparqlgo/engine/term"

// rowCompatible reports whether l and r agree on every offset both bind
// (compatible, SPARQL's compatible-mappings test) and whether they share
// at least one such bound-on-both-sides offset (overlap). Used directly
// by Diff (MINUS) and indirectly by the EXISTS/NOT EXISTS bridge, both of
// which need this test regardless of whether the inner rowsource also
// accepted a Seed (Seed is a scan-side optimization; this check is what
// actually guarantees correctness, seeded or not).
func rowCompatible(l, r *Row) (compatible, overlap bool) {
	compatible = true
	for offset, rv := range r.Values {
		if rv.IsUnbound() {
			continue
		}
		lv := l.Get(offset)
		if lv.IsUnbound() {
			continue
		}
		overlap = true
		ok, err := term.Equal(lv, rv, term.ModeTermEquality)
		if err != nil || !ok {
			compatible = false
		}
	}
	return compatible, overlap
}
