// Package algebra implements the SPARQL algebra tree of spec §4.4: a
// tagged tree of operators the rowsource pipeline (package rowsource) plans
// and executes. The surface syntax parser is an external collaborator
// (spec §1); this package only builds and walks the tree it produces.
package algebra

import (
	"github.com/sparqlgo/engine/scope"
	"github.com/sparqlgo/engine/term"
)

// Op tags the closed set of algebra operators from spec §4.4.
type Op int

const (
	OpBGP Op = iota
	OpJoin
	OpLeftJoin
	OpFilter
	OpUnion
	OpDiff
	OpProject
	OpExtend
	OpOrderBy
	OpDistinct
	OpReduced
	OpSlice
	OpGroup
	OpGraph
	OpToList
	OpService
	OpDataset
)

// TermOrVar is a triple pattern position: either a constant term or a
// variable reference. Exactly one of Term/Var is meaningful, selected by
// IsVar.
type TermOrVar struct {
	Term  term.Term
	Var   *scope.Variable
	IsVar bool
}

// Const builds a constant triple-pattern position.
func Const(t term.Term) TermOrVar { return TermOrVar{Term: t} }

// Var builds a variable triple-pattern position.
func Var(v *scope.Variable) TermOrVar { return TermOrVar{Var: v, IsVar: true} }

// Pattern is a triple pattern: subject, predicate, object and an optional
// origin graph position (spec §3).
type Pattern struct {
	Subject, Predicate, Object TermOrVar
	Origin                     TermOrVar
	HasOrigin                  bool
}

// OrderKey is one ORDER BY sort key: an expression plus direction.
type OrderKey struct {
	Expr      Expr
	Ascending bool
}

// AggregateCall is one aggregate column of a Group node: a function name
// (COUNT, SUM, AVG, MIN, MAX, SAMPLE, GROUP_CONCAT), its argument
// expression (nil for COUNT(*)), a Distinct flag, and the output variable.
type AggregateCall struct {
	Function string
	Arg      Expr
	Distinct bool
	Out      *scope.Variable
	// Separator is GROUP_CONCAT's SEPARATOR argument, default " ".
	Separator string
}

// Expr is the interface implemented by expression-tree nodes (package expr
// owns the concrete types and the evaluator; algebra only needs to hold and
// walk references to them without creating an import cycle).
type Expr interface {
	ExprNode()
}

// Node is one algebra tree node. Only the fields relevant to Op are
// meaningful; this mirrors the teacher's tagged-node style in spirit
// (plan.Node implementations each carry just their own fields) but is
// expressed as a single struct, which keeps rowsource's switch-based
// planner (§4.5) a flat, exhaustive dispatch instead of N small files of
// one-off types, matching the closed, enumerable operator set spec §4.4
// calls for.
type Node struct {
	Op Op

	Left, Right Node // children; Right unused for unary ops

	// BGP
	Triples []Pattern

	// Filter / LeftJoin's attached filter
	Filter Expr

	// Project
	ProjectVars []*scope.Variable

	// Extend / Bind
	ExtendVar  *scope.Variable
	ExtendExpr Expr

	// OrderBy
	OrderKeys []OrderKey

	// Slice
	Offset, Limit int
	HasLimit      bool

	// Group
	GroupKeys  []Expr
	Aggregates []AggregateCall

	// Graph
	GraphTerm TermOrVar

	// Service
	ServiceIRI  string
	ServiceVar  *scope.Variable
	HasVarIRI   bool
	SilentOnErr bool

	// Dataset
	DefaultGraphs []string
	NamedGraphs   []string

	// ExecScope is the execution scope (§4.8) this node was built under;
	// set by callers as the tree is assembled, consulted by rowsource's
	// correlation-aware Diff/Filter(EXISTS) builders.
	ExecScope *scope.Scope

	// Child is used by single-child nodes (Filter, Project, Extend,
	// OrderBy, Distinct, Reduced, Slice, Group, Graph, ToList, Service).
	// Left/Right are reserved for the binary Join/LeftJoin/Union/Diff
	// operators so that tree-walkers have one obvious place to look
	// depending on arity.
	Child *Node
}

// NewBGP builds a BGP node over the given contiguous triple patterns.
func NewBGP(triples []Pattern) *Node { return &Node{Op: OpBGP, Triples: triples} }

// NewJoin builds a Join(L, R) node.
func NewJoin(l, r *Node) *Node { return &Node{Op: OpJoin, Left: *l, Right: *r} }

// NewLeftJoin builds a LeftJoin(L, R, F) node; filter may be nil.
func NewLeftJoin(l, r *Node, filter Expr) *Node {
	return &Node{Op: OpLeftJoin, Left: *l, Right: *r, Filter: filter}
}

// NewFilter builds a Filter(F, child) node.
func NewFilter(filter Expr, child *Node) *Node {
	return &Node{Op: OpFilter, Filter: filter, Child: child}
}

// NewUnion builds a Union(L, R) node.
func NewUnion(l, r *Node) *Node { return &Node{Op: OpUnion, Left: *l, Right: *r} }

// NewDiff builds a Diff(L, R) node (MINUS).
func NewDiff(l, r *Node) *Node { return &Node{Op: OpDiff, Left: *l, Right: *r} }

// NewProject builds a Project(vars, child) node.
func NewProject(vars []*scope.Variable, child *Node) *Node {
	return &Node{Op: OpProject, ProjectVars: vars, Child: child}
}

// NewExtend builds an Extend(var, expr, child) node (BIND).
func NewExtend(v *scope.Variable, e Expr, child *Node) *Node {
	return &Node{Op: OpExtend, ExtendVar: v, ExtendExpr: e, Child: child}
}

// NewOrderBy builds an OrderBy(keys, child) node.
func NewOrderBy(keys []OrderKey, child *Node) *Node {
	return &Node{Op: OpOrderBy, OrderKeys: keys, Child: child}
}

// NewDistinct builds a Distinct(child) node.
func NewDistinct(child *Node) *Node { return &Node{Op: OpDistinct, Child: child} }

// NewReduced builds a Reduced(child) node.
func NewReduced(child *Node) *Node { return &Node{Op: OpReduced, Child: child} }

// NewSlice builds a Slice(offset, limit, child) node. hasLimit distinguishes
// "no LIMIT clause" from "LIMIT 0".
func NewSlice(offset, limit int, hasLimit bool, child *Node) *Node {
	return &Node{Op: OpSlice, Offset: offset, Limit: limit, HasLimit: hasLimit, Child: child}
}

// NewGroup builds a Group(keys, aggregates, child) node.
func NewGroup(keys []Expr, aggs []AggregateCall, child *Node) *Node {
	return &Node{Op: OpGroup, GroupKeys: keys, Aggregates: aggs, Child: child}
}

// NewGraph builds a Graph(term|var, child) node.
func NewGraph(g TermOrVar, child *Node) *Node { return &Node{Op: OpGraph, GraphTerm: g, Child: child} }

// NewToList builds a ToList(child) node: materializes child eagerly.
func NewToList(child *Node) *Node { return &Node{Op: OpToList, Child: child} }

// NewService builds a Service(iri, silent, child) node.
func NewService(iri string, silent bool, child *Node) *Node {
	return &Node{Op: OpService, ServiceIRI: iri, SilentOnErr: silent, Child: child}
}

// NewDataset builds a Dataset(default, named, child) node.
func NewDataset(defaultGraphs, namedGraphs []string, child *Node) *Node {
	return &Node{Op: OpDataset, DefaultGraphs: defaultGraphs, NamedGraphs: namedGraphs, Child: child}
}

// Walk calls visit on n and recursively on every child, depth-first,
// pre-order. visit returning false skips n's children.
func Walk(n *Node, visit func(*Node) bool) {
	if n == nil || !visit(n) {
		return
	}
	switch n.Op {
	case OpJoin, OpLeftJoin, OpUnion, OpDiff:
		Walk(&n.Left, visit)
		Walk(&n.Right, visit)
	default:
		if n.Child != nil {
			Walk(n.Child, visit)
		}
	}
}
