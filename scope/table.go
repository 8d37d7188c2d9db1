// Package scope implements the variables table and lexical scope tree of
// spec §4.2: an ordered name->Variable mapping, plus scope nodes tracking
// which variables are locally provided versus visible through nesting.
package scope

import (
	"sort"

	"golang.org/x/text/unicode/norm"

	"github.com/sparqlgo/engine/term"
)

// Kind distinguishes the four variable kinds named in spec §3.
type Kind int

const (
	KindNormal Kind = iota
	KindAnonymous
	KindExistential
	KindUniversal
)

// Variable is a name, a kind, a stable offset into its owning Table, and
// (depending on the currently-executing rowsource) a current value.
// Per spec §9's systems-language guidance, the "current value" is not
// actually stored on this struct: a rowsource holds a Row (an array
// indexed by offset) and writes/reads terms through the offset, so many
// rowsources sharing one Table never contend on a single mutable cell.
type Variable struct {
	Name   string
	Kind   Kind
	Offset int
}

// Table is an ordered name->Variable mapping. Two variables with identical
// (normalized) names in the same table are the same variable; offsets are
// stable for the table's lifetime (spec §3).
//
// counter is the source of new variables' offsets. It is a pointer shared
// by every Table descended (via Copy, or via Scope.local's construction)
// from the same query's root table, so that a Variable's Offset is a
// position in one query-wide numbering rather than one reset to zero in
// each lexical scope's own local table — the latter would let two
// unrelated variables in sibling scopes (e.g. an outer ?p and an OPTIONAL
// block's first local variable) alias the same Row slot. A Table built
// directly via NewTable (no enclosing Scope) owns a private counter, which
// is the right behavior for the query's root scope and for tests that
// build a table standalone.
type Table struct {
	byName   map[string]*Variable
	byOffset []*Variable
	counter  *int
}

// NewTable returns an empty variables table with its own private offset
// counter.
func NewTable() *Table {
	return &Table{byName: make(map[string]*Variable), counter: new(int)}
}

// newTableWithCounter returns an empty variables table whose new variables
// draw offsets from the given shared counter.
func newTableWithCounter(counter *int) *Table {
	return &Table{byName: make(map[string]*Variable), counter: counter}
}

// Add returns the Variable named name, creating it (with the given kind) on
// first mention. The name is NFC-normalized first, matching spec §3's
// "NFC-normalized Unicode string" invariant.
func (t *Table) Add(name string, kind Kind) *Variable {
	name = norm.NFC.String(name)
	if v, ok := t.byName[name]; ok {
		return v
	}
	v := &Variable{Name: name, Kind: kind, Offset: *t.counter}
	*t.counter++
	t.byName[name] = v
	t.byOffset = append(t.byOffset, v)
	return v
}

// GetByName looks up a variable by its (NFC-normalized) name.
func (t *Table) GetByName(name string) (*Variable, bool) {
	v, ok := t.byName[norm.NFC.String(name)]
	return v, ok
}

// GetByOffset looks up a variable by its stable offset.
func (t *Table) GetByOffset(offset int) (*Variable, bool) {
	if offset < 0 || offset >= len(t.byOffset) {
		return nil, false
	}
	return t.byOffset[offset], true
}

// Count returns the number of distinct variables known to this specific
// table (not the query-wide total; see Width for that).
func (t *Table) Count() int { return len(t.byOffset) }

// Width returns the current value of this table's shared offset counter:
// the number of offset slots allocated so far across every Table
// descended from the same query-root counter, i.e. the array length a Row
// indexed by any of this query's variables must have. Rowsources allocate
// their working Row at this width, not at Count(), because a table built
// over one lexical scope generally does not itself contain every variable
// some sibling or ancestor scope has already claimed an offset for.
func (t *Table) Width() int { return *t.counter }

// Variables returns the table's variables in offset (insertion) order.
func (t *Table) Variables() []*Variable {
	out := make([]*Variable, len(t.byOffset))
	copy(out, t.byOffset)
	return out
}

// Order returns variable names sorted lexically, a sort-key vector used by
// callers that need a canonical, order-independent enumeration (e.g. the
// results formatter's SPARQL-XML <head> section).
func (t *Table) Order() []string {
	names := make([]string, len(t.byOffset))
	for i, v := range t.byOffset {
		names[i] = v.Name
	}
	sort.Strings(names)
	return names
}

// Copy returns a new Table sharing the same Variable pointers (a "copy of
// references", per spec §3's scoped-table inheritance). Both tables
// continue to resolve the same offsets to the same *Variable.
func (t *Table) Copy() *Table {
	nt := &Table{
		byName:   make(map[string]*Variable, len(t.byName)),
		byOffset: make([]*Variable, len(t.byOffset)),
		counter:  t.counter,
	}
	copy(nt.byOffset, t.byOffset)
	for k, v := range t.byName {
		nt.byName[k] = v
	}
	return nt
}

// Merge returns a new Table containing every variable of t and other (by
// name, sharing Variable pointers so offsets stay meaningful), used by
// rowsource operators with two children (Join, Union, Diff) to report a
// combined output schema without needing a table-indirected translation of
// either side's rows.
func (t *Table) Merge(other *Table) *Table {
	nt := t.Copy()
	for _, v := range other.byOffset {
		if _, ok := nt.byName[v.Name]; ok {
			continue
		}
		nt.byName[v.Name] = v
		nt.byOffset = append(nt.byOffset, v)
	}
	return nt
}

// Subset returns a new Table reporting only the named vars (sharing
// Variable pointers, so offsets stay meaningful), used by Project to
// narrow a child's output schema to its SELECT list without needing to
// renumber or copy any Row.
func (t *Table) Subset(vars []*Variable) *Table {
	nt := &Table{byName: make(map[string]*Variable, len(vars)), byOffset: make([]*Variable, 0, len(vars)), counter: t.counter}
	for _, v := range vars {
		if _, ok := nt.byName[v.Name]; ok {
			continue
		}
		nt.byName[v.Name] = v
		nt.byOffset = append(nt.byOffset, v)
	}
	return nt
}

// Row is a fixed-size array of term-or-unbound values indexed by variable
// offset (spec §3), plus the bookkeeping OrderBy/Distinct need.
type Row struct {
	Values []term.Term
	// Seq is the original-order field used to make sorts stable (§4.5,
	// testable property 8).
	Seq int
	// Source is a non-owning back-reference to the rowsource that produced
	// this row, used by callers that need to ask the rowsource about its
	// schema without threading it separately.
	Source interface{}
}

// NewRow allocates a Row of the given width with every value Unbound.
func NewRow(width, seq int) *Row {
	vals := make([]term.Term, width)
	for i := range vals {
		vals[i] = term.Unbound
	}
	return &Row{Values: vals, Seq: seq}
}

// Clone returns a deep-enough copy of r (the Values slice is duplicated;
// term.Term is itself immutable and cheap to copy by value).
func (r *Row) Clone() *Row {
	nr := &Row{Values: make([]term.Term, len(r.Values)), Seq: r.Seq, Source: r.Source}
	copy(nr.Values, r.Values)
	return nr
}

// Get returns the value bound to offset, or Unbound if out of range.
func (r *Row) Get(offset int) term.Term {
	if offset < 0 || offset >= len(r.Values) {
		return term.Unbound
	}
	return r.Values[offset]
}

// Set writes a value at offset. Callers must ensure offset is in range;
// rowsources size rows to their schema precisely so this never needs to
// grow (spec §3: "Rows it produces have size == rowsource.size").
func (r *Row) Set(offset int, v term.Term) {
	r.Values[offset] = v
}
