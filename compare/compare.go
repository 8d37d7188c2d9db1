// Package compare implements spec §4.9's result comparison: a query's
// actual ResultSet against an expected one, under a configurable
// order-sensitivity and blank-node matching strategy, producing a bounded
// diff report rather than a single pass/fail bit.
package compare

import (
	"fmt"
	"sort"
	"strings"

	cmp "github.com/google/go-cmp/cmp"

	"github.com/sparqlgo/engine/results"
	"github.com/sparqlgo/engine/term"
)

// BlankNodeMode selects how compare treats blank node identity, spec
// §4.9's three strategies for a format (N-Triples, CSV, ...) that cannot
// guarantee the same blank node gets the same label across two runs.
type BlankNodeMode int

const (
	// MatchAny treats every blank node as interchangeable: two rows differing
	// only in which arbitrary label a blank node carries compare equal.
	MatchAny BlankNodeMode = iota
	// MatchID compares blank node labels literally, the strict reading.
	MatchID
	// MatchStructure requires a single consistent renaming of blank node
	// labels (first-seen order, independently chosen per result set) to
	// make the two sides' labels agree — isomorphism under renaming, not
	// full graph isomorphism, but sufficient for the common case of a
	// deterministic blank-node minting order.
	MatchStructure
)

// Options configures one Compare call.
type Options struct {
	Ordered        bool
	BlankNodes     BlankNodeMode
	MaxDifferences int
}

// Difference is one unmatched row/triple (or pair of rows/triples at the
// same ordered position) compare could not reconcile.
type Difference struct {
	Kind   string // "missing", "extra", or "mismatch" (ordered position disagrees)
	Detail string
}

// Report is the outcome of one Compare call.
type Report struct {
	Equal       bool
	Differences []Difference
	// Truncated is true when more differences existed than MaxDifferences
	// allowed reporting.
	Truncated bool
}

func (r *Report) add(opts Options, kind, detail string) {
	if opts.MaxDifferences > 0 && len(r.Differences) >= opts.MaxDifferences {
		r.Truncated = true
		return
	}
	r.Differences = append(r.Differences, Difference{Kind: kind, Detail: detail})
}

// Compare reconciles got against want under opts, spec §4.9's single entry
// point regardless of query form (SELECT/ASK/CONSTRUCT-DESCRIBE).
func Compare(got, want *results.ResultSet, opts Options) (*Report, error) {
	if got.Kind != want.Kind {
		return nil, fmt.Errorf("compare: result kinds differ (%v vs %v)", got.Kind, want.Kind)
	}
	switch got.Kind {
	case results.KindAsk:
		return compareAsk(got, want, opts), nil
	case results.KindSelect:
		return compareSelect(got, want, opts), nil
	case results.KindGraph:
		return compareGraph(got, want, opts), nil
	default:
		return nil, fmt.Errorf("compare: unknown result kind %v", got.Kind)
	}
}

func compareAsk(got, want *results.ResultSet, opts Options) *Report {
	r := &Report{Equal: got.AskValue == want.AskValue}
	if !r.Equal {
		r.add(opts, "mismatch", fmt.Sprintf("ASK: got %v, want %v", got.AskValue, want.AskValue))
	}
	return r
}

func compareSelect(got, want *results.ResultSet, opts Options) *Report {
	r := &Report{Equal: true}
	if !sameVarSet(got.Vars, want.Vars) {
		r.Equal = false
		r.add(opts, "mismatch", fmt.Sprintf("projected variables differ: got %v, want %v", got.Vars, want.Vars))
	}

	gotKeys := canonicalSolutions(got.Solutions, got.Vars, opts.BlankNodes)
	wantKeys := canonicalSolutions(want.Solutions, want.Vars, opts.BlankNodes)

	if opts.Ordered {
		compareOrdered(r, opts, gotKeys, wantKeys)
	} else {
		compareMultiset(r, opts, gotKeys, wantKeys)
	}
	return r
}

func compareGraph(got, want *results.ResultSet, opts Options) *Report {
	r := &Report{Equal: true}
	gotKeys := canonicalTriples(got.Triples, opts.BlankNodes)
	wantKeys := canonicalTriples(want.Triples, opts.BlankNodes)
	compareMultiset(r, opts, gotKeys, wantKeys)
	return r
}

func sameVarSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	as := append([]string(nil), a...)
	bs := append([]string(nil), b...)
	sort.Strings(as)
	sort.Strings(bs)
	return cmp.Equal(as, bs)
}

func compareOrdered(r *Report, opts Options, got, want []string) {
	n := len(got)
	if len(want) > n {
		n = len(want)
	}
	for i := 0; i < n; i++ {
		var g, w string
		if i < len(got) {
			g = got[i]
		}
		if i < len(want) {
			w = want[i]
		}
		if g == w {
			continue
		}
		r.Equal = false
		r.add(opts, "mismatch", fmt.Sprintf("row %d (-want +got):\n%s", i, diffText(g, w)))
	}
}

func compareMultiset(r *Report, opts Options, got, want []string) {
	gotCount := counts(got)
	wantCount := counts(want)

	for k, gc := range gotCount {
		wc := wantCount[k]
		for i := 0; i < gc-wc; i++ {
			r.Equal = false
			r.add(opts, "extra", k)
		}
	}
	for k, wc := range wantCount {
		gc := gotCount[k]
		for i := 0; i < wc-gc; i++ {
			r.Equal = false
			r.add(opts, "missing", k)
		}
	}
}

func counts(keys []string) map[string]int {
	out := make(map[string]int, len(keys))
	for _, k := range keys {
		out[k]++
	}
	return out
}

func diffText(got, want string) string {
	return cmp.Diff(want, got)
}

// canonicalSolutions renders each solution as one sortable, comparable
// string key: vars in a fixed order, each value rendered through
// canonicalTerm so MatchAny/MatchStructure can normalize blank node labels
// consistently within this call.
func canonicalSolutions(sols []results.Solution, vars []string, mode BlankNodeMode) []string {
	relabel := newBlankRelabeler(mode)
	out := make([]string, len(sols))
	for i, sol := range sols {
		var b strings.Builder
		for _, v := range vars {
			val, ok := sol[v]
			b.WriteByte(0)
			if !ok || val.IsUnbound() {
				b.WriteString("#unbound")
				continue
			}
			b.WriteString(relabel.render(val))
		}
		out[i] = b.String()
	}
	return out
}

func canonicalTriples(triples []results.Triple, mode BlankNodeMode) []string {
	relabel := newBlankRelabeler(mode)
	out := make([]string, len(triples))
	for i, t := range triples {
		out[i] = relabel.render(t.Subject) + "\x00" + relabel.render(t.Predicate) + "\x00" + relabel.render(t.Object)
	}
	return out
}

// blankRelabeler implements the three BlankNodeMode strategies: MatchAny
// renders every blank node identically, MatchID renders its label
// verbatim, MatchStructure assigns each distinct label encountered (within
// this call, in first-seen order) a canonical "_:bN" name so two
// consistently-but-differently-labeled sides still compare equal.
type blankRelabeler struct {
	mode BlankNodeMode
	seen map[string]string
	next int
}

func newBlankRelabeler(mode BlankNodeMode) *blankRelabeler {
	return &blankRelabeler{mode: mode, seen: make(map[string]string)}
}

func (b *blankRelabeler) render(t term.Term) string {
	if t.Kind() != term.KindBlankNode {
		return t.String()
	}
	switch b.mode {
	case MatchAny:
		return "_:*"
	case MatchID:
		return t.String()
	default: // MatchStructure
		id, _ := t.BlankNodeID()
		if canon, ok := b.seen[id]; ok {
			return canon
		}
		canon := fmt.Sprintf("_:b%d", b.next)
		b.next++
		b.seen[id] = canon
		return canon
	}
}
