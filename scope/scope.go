package scope

// NodeKind tags the construct that introduced a Scope (spec §3).
type NodeKind int

const (
	NodeRoot NodeKind = iota
	NodeExists
	NodeNotExists
	NodeMinus
	NodeUnion
	NodeSubquery
	NodeGroup
)

// TriplePattern mirrors spec §3: four positions, each either a fixed term
// reference (by convention, nil here) or a variable reference, plus an
// optional origin graph position. The scope package only needs to know
// which variables a pattern touches, not the term side of it, so this is a
// minimal shape local to the package; algebra.Pattern carries the full
// triple (including constant terms) and is converted to this shape via
// Scope.AddTriple.
type TriplePattern struct {
	Subject, Predicate, Object, Origin *Variable
}

// Scope is a tree node tagged by the construct that introduced it: a
// parent (nil for the root), a local table (variables first bound here), a
// visible table (local union visible-from-parent), an owned list of triple
// patterns, and owned child scopes (spec §3).
type Scope struct {
	Kind     NodeKind
	parent   *Scope // weak/non-owning: scopes do not keep their parent alive
	local    *Table
	visible  *Table
	triples  []TriplePattern
	children []*Scope
}

// NewRoot creates the root scope of a query: no parent. Its local table's
// offset counter is the one every descendant scope's local table shares,
// giving the whole query one coherent offset numbering (see Table.Width).
func NewRoot() *Scope {
	s := &Scope{Kind: NodeRoot, local: NewTable()}
	s.visible = s.local.Copy()
	return s
}

// New creates a child scope of parent, tagged by kind. Cyclic parenting is
// a programmer error (spec §4.2) and is prevented by construction: New
// always assigns parent as the (already-constructed) enclosing scope, so
// cycles can only be introduced by misuse of AddChild with a foreign scope,
// which panics.
func New(kind NodeKind, parent *Scope) *Scope {
	if parent == nil {
		panic("scope: New requires a parent; use NewRoot for the query root")
	}
	s := &Scope{Kind: kind, parent: parent, local: newTableWithCounter(parent.local.counter)}
	s.recomputeVisible()
	return s
}

// Parent returns the enclosing scope, or nil for the root.
func (s *Scope) Parent() *Scope { return s.parent }

// Local returns this scope's local variables table.
func (s *Scope) Local() *Table { return s.local }

// Visible returns this scope's visible variables table (local ∪
// visible-from-parent), rebuilt on each call so that variables added
// through Local() since the last AddTriple are included.
func (s *Scope) Visible() *Table {
	s.recomputeVisible()
	return s.visible
}

// AddChild attaches child to s, enforcing that child was actually built
// with s as its parent (guards against the cyclic-parenting programmer
// error spec §4.2 calls out).
func (s *Scope) AddChild(child *Scope) {
	if child.parent != s {
		panic("scope: AddChild: child's parent does not match s (would create a cycle or a detached scope)")
	}
	s.children = append(s.children, child)
}

// Children returns s's owned child scopes in addition order.
func (s *Scope) Children() []*Scope { return s.children }

// resolveVar returns the Variable a bare name resolves to in s: an
// already-visible variable (bound by this scope earlier, or inherited
// from an ancestor) is reused as-is; only a genuinely new name gets a
// fresh local Variable. Reuse is what makes a variable shared between an
// outer pattern and a nested OPTIONAL/MINUS block (e.g. ?p in `?p :name
// ?n OPTIONAL { ?p :age ?g }`) the same Row slot on both sides — without
// it, the inner block's ?p would silently be a distinct variable with its
// own offset, and Join/LeftJoin would never see it as a shared join key.
func (s *Scope) resolveVar(name string) *Variable {
	if v, ok := s.visible.GetByName(name); ok {
		return v
	}
	return s.local.Add(name, KindNormal)
}

// AddTriple records a triple pattern as belonging to this scope, and
// ensures every variable it references exists in the scope's local table
// (or resolves to an already-visible one of the same name; see
// resolveVar).
func (s *Scope) AddTriple(subject, predicate, object, origin string, hasOrigin bool) TriplePattern {
	var tp TriplePattern
	if subject != "" {
		tp.Subject = s.resolveVar(subject)
	}
	if predicate != "" {
		tp.Predicate = s.resolveVar(predicate)
	}
	if object != "" {
		tp.Object = s.resolveVar(object)
	}
	if hasOrigin && origin != "" {
		tp.Origin = s.resolveVar(origin)
	}
	s.triples = append(s.triples, tp)
	s.recomputeVisible()
	return tp
}

// Triples returns the triple patterns owned by this scope.
func (s *Scope) Triples() []TriplePattern { return s.triples }

// recomputeVisible rebuilds visible = local ∪ parent.visible, with the
// local value taking precedence on a name conflict, per spec §4.2.
func (s *Scope) recomputeVisible() {
	if s.parent == nil {
		s.visible = s.local.Copy()
		return
	}
	vis := s.parent.Visible().Copy()
	for _, v := range s.local.Variables() {
		// Re-adding the same-named variable under the local table's own
		// variable preserves "local wins on conflict": we look the name up
		// in local (not parent) and bind it in the merged table.
		if existing, ok := vis.GetByName(v.Name); ok && existing != v {
			// Overlay: make the merged table resolve this name to the local
			// variable rather than the parent's, without disturbing other
			// offsets already assigned in vis.
			vis.byName[v.Name] = v
			continue
		}
		if _, ok := vis.GetByName(v.Name); !ok {
			vis.byName[v.Name] = v
			vis.byOffset = append(vis.byOffset, v)
		}
	}
	s.visible = vis
}

// Provides reports whether name is bound in this scope's local table.
func (s *Scope) Provides(name string) bool {
	_, ok := s.local.GetByName(name)
	return ok
}

// Defines reports whether name is bound in this scope's visible table.
func (s *Scope) Defines(name string) bool {
	_, ok := s.Visible().GetByName(name)
	return ok
}

// Root walks up to the root scope.
func (s *Scope) Root() *Scope {
	r := s
	for r.parent != nil {
		r = r.parent
	}
	return r
}

// BindRow implements spec §4.2's bind_row operation: for every variable
// visible in s, if that variable's name resolves in both srcTable (whose
// offsets index srcRow) and dstTable (whose offsets index dstRow), copy the
// value across. Variables not visible in s are left untouched in dstRow —
// this is how correlate.Substitute (§4.8) pushes an outer row's bindings
// into an inner pattern's row without leaking variables the inner scope
// never defines.
func (s *Scope) BindRow(srcRow *Row, srcTable *Table, dstRow *Row, dstTable *Table) {
	for _, v := range s.Visible().Variables() {
		sv, ok := srcTable.GetByName(v.Name)
		if !ok {
			continue
		}
		dv, ok := dstTable.GetByName(v.Name)
		if !ok {
			continue
		}
		dstRow.Set(dv.Offset, srcRow.Get(sv.Offset))
	}
}

// CheckInvariants verifies the two scope invariants from spec §8 property 2:
// visible(S) ⊇ local(S), and visible(S) ⊆ visible(parent(S)) ∪ local(S).
// It is intended for use in tests and in debug builds, not on the hot path.
func (s *Scope) CheckInvariants() bool {
	vis := s.Visible()
	for _, v := range s.local.Variables() {
		if _, ok := vis.GetByName(v.Name); !ok {
			return false
		}
	}
	if s.parent == nil {
		return true
	}
	for _, v := range vis.Variables() {
		_, inParent := s.parent.Visible().GetByName(v.Name)
		_, inLocal := s.local.GetByName(v.Name)
		if !inParent && !inLocal {
			return false
		}
	}
	return true
}
