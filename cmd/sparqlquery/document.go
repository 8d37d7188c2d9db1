package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/sparqlgo/engine/algebra"
	"github.com/sparqlgo/engine/engine/exec"
	"github.com/sparqlgo/engine/expr"
	"github.com/sparqlgo/engine/results"
	"github.com/sparqlgo/engine/scope"
	"github.com/sparqlgo/engine/term"
	"github.com/sparqlgo/engine/triplesource/memstore"
)

// jsonDocument is the pre-planned query document this CLI reads via -e/-i.
// Since the engine's surface SPARQL lexer/parser is an external
// collaborator (spec §1's explicit non-goal), this JSON encoding of an
// already-built algebra tree stands in for SPARQL query text — a real
// deployment puts a surface parser in front of this same shape.
type jsonDocument struct {
	DefaultGraph []string            `json:"default_graph"`
	NamedGraphs  map[string][]string `json:"named_graphs"`
	Form         string              `json:"form"` // "select" (default), "ask", "construct", "describe"
	Query        jsonNode            `json:"query"`
	Template     []jsonPattern       `json:"template"`
}

type jsonTerm struct {
	Kind     string `json:"kind"` // "iri", "blank", "literal"
	Value    string `json:"value"`
	Lang     string `json:"lang,omitempty"`
	Datatype string `json:"datatype,omitempty"`
}

type jsonTermOrVar struct {
	Var  string    `json:"var,omitempty"`
	Term *jsonTerm `json:"term,omitempty"`
}

type jsonPattern struct {
	Subject   jsonTermOrVar  `json:"subject"`
	Predicate jsonTermOrVar  `json:"predicate"`
	Object    jsonTermOrVar  `json:"object"`
	Origin    *jsonTermOrVar `json:"origin,omitempty"`
}

type jsonOrderKey struct {
	Expr *jsonExpr `json:"expr"`
	Asc  bool      `json:"asc"`
}

type jsonAggregate struct {
	Func      string    `json:"func"`
	Arg       *jsonExpr `json:"arg,omitempty"`
	Distinct  bool      `json:"distinct"`
	Out       string    `json:"out"`
	Separator string    `json:"separator"`
}

// jsonExpr mirrors expr.Expr: Op names the builtin (lowercased, prefix-
// stripped form of the expr.Op* constant names, e.g. "eq", "strstarts",
// "isnumeric"), "literal"/"variable" are the two leaves, and
// "exists"/"notexists" carry a nested query instead of args.
type jsonExpr struct {
	Op    string      `json:"op"`
	Args  []*jsonExpr `json:"args,omitempty"`
	Term  *jsonTerm   `json:"term,omitempty"`
	Var   string      `json:"var,omitempty"`
	Query *jsonNode   `json:"query,omitempty"`
}

// jsonNode mirrors algebra.Node as a tagged union keyed by Op; only the
// fields relevant to a given Op are read, exactly like algebra.Node itself.
type jsonNode struct {
	Op    string    `json:"op"`
	Left  *jsonNode `json:"left,omitempty"`
	Right *jsonNode `json:"right,omitempty"`
	Child *jsonNode `json:"child,omitempty"`

	Triples []jsonPattern `json:"triples,omitempty"`

	Filter *jsonExpr `json:"filter,omitempty"`

	Vars []string `json:"vars,omitempty"`

	Var  string    `json:"var,omitempty"`
	Expr *jsonExpr `json:"expr,omitempty"`

	Keys []jsonOrderKey `json:"keys,omitempty"`

	Offset   int  `json:"offset,omitempty"`
	Limit    int  `json:"limit,omitempty"`
	HasLimit bool `json:"has_limit,omitempty"`

	GroupKeys  []*jsonExpr     `json:"group_keys,omitempty"`
	Aggregates []jsonAggregate `json:"aggregates,omitempty"`

	GraphTerm *jsonTermOrVar `json:"graph_term,omitempty"`

	ServiceIRI string `json:"service_iri,omitempty"`
	ServiceVar string `json:"service_var,omitempty"`
	HasVarIRI  bool   `json:"has_var_iri,omitempty"`
	Silent     bool   `json:"silent,omitempty"`

	DefaultGraphs []string `json:"default_graphs,omitempty"`
	NamedGraphs   []string `json:"named_graphs,omitempty"`
}

// builder decodes a jsonDocument into algebra.Node/algebra.Pattern/expr.Expr
// values, resolving variable names through one shared scope.Scope/Table
// rather than one per construct. That is a deliberate simplification fit
// for a CLI convenience shim rather than the engine's tested core (spec §1
// treats CLI wrappers as external): every node's ExecScope is the same
// root scope, so correlate.Set's MINUS/EXISTS narrowing is conservative
// (every outer variable the inner pattern mentions, rather than the
// minimal set a per-construct scope tree would compute) but still correct,
// since Diff/the EXISTS bridge re-check full row compatibility regardless
// of which variables were seeded.
type builder struct {
	table   *scope.Table
	root    *scope.Scope
	catalog *exec.Catalog
}

func newBuilder(catalog *exec.Catalog) *builder {
	root := scope.NewRoot()
	return &builder{table: root.Local(), root: root, catalog: catalog}
}

func (b *builder) variable(name string) *scope.Variable {
	return b.table.Add(name, scope.KindNormal)
}

func (b *builder) term(jt jsonTerm) (term.Term, error) {
	switch jt.Kind {
	case "iri":
		return term.NewIRI(jt.Value), nil
	case "blank":
		return term.NewBlankNode(jt.Value), nil
	case "literal":
		return term.NewLiteral(jt.Value, jt.Lang, jt.Datatype), nil
	default:
		return term.Term{}, fmt.Errorf("document: unknown term kind %q", jt.Kind)
	}
}

func (b *builder) termOrVar(tv jsonTermOrVar) (algebra.TermOrVar, error) {
	if tv.Var != "" {
		return algebra.Var(b.variable(tv.Var)), nil
	}
	if tv.Term == nil {
		return algebra.TermOrVar{}, fmt.Errorf("document: term_or_var has neither var nor term")
	}
	t, err := b.term(*tv.Term)
	if err != nil {
		return algebra.TermOrVar{}, err
	}
	return algebra.Const(t), nil
}

func (b *builder) pattern(jp jsonPattern) (algebra.Pattern, error) {
	var p algebra.Pattern
	var err error
	if p.Subject, err = b.termOrVar(jp.Subject); err != nil {
		return p, err
	}
	if p.Predicate, err = b.termOrVar(jp.Predicate); err != nil {
		return p, err
	}
	if p.Object, err = b.termOrVar(jp.Object); err != nil {
		return p, err
	}
	if jp.Origin != nil {
		if p.Origin, err = b.termOrVar(*jp.Origin); err != nil {
			return p, err
		}
		p.HasOrigin = true
	}
	return p, nil
}

// exprOps maps a jsonExpr.Op string to its expr.Op constant, covering every
// builtin spec.md §4.3 lists except the two handled specially below
// ("exists"/"notexists", which carry a nested query rather than args) and
// the two leaves ("literal"/"variable").
var exprOps = map[string]expr.Op{
	"and": expr.OpAnd, "or": expr.OpOr, "not": expr.OpNot,
	"eq": expr.OpEq, "neq": expr.OpNeq, "lt": expr.OpLt, "le": expr.OpLe, "gt": expr.OpGt, "ge": expr.OpGe,
	"sameterm": expr.OpSameTerm, "in": expr.OpIn, "notin": expr.OpNotIn,
	"uplus": expr.OpUPlus, "uminus": expr.OpUMinus, "plus": expr.OpPlus, "minus": expr.OpMinus,
	"star": expr.OpStar, "slash": expr.OpSlash, "rem": expr.OpRem,
	"bound": expr.OpBound, "isiri": expr.OpIsIRI, "isblank": expr.OpIsBlank,
	"isliteral": expr.OpIsLiteral, "isnumeric": expr.OpIsNumeric,
	"str": expr.OpStr, "lang": expr.OpLang, "datatype": expr.OpDatatype, "iri": expr.OpIRI, "bnode": expr.OpBNode,
	"strdt": expr.OpStrDT, "strlang": expr.OpStrLang, "strlen": expr.OpStrLen, "ucase": expr.OpUCase, "lcase": expr.OpLCase,
	"strstarts": expr.OpStrStarts, "strends": expr.OpStrEnds, "contains": expr.OpContains,
	"substr": expr.OpSubstr, "concat": expr.OpConcat,
	"strbefore": expr.OpStrBefore, "strafter": expr.OpStrAfter, "encode_for_uri": expr.OpEncodeForURI,
	"langmatches": expr.OpLangMatches, "regex": expr.OpRegex, "replace": expr.OpReplace,
	"abs": expr.OpAbs, "ceil": expr.OpCeil, "floor": expr.OpFloor, "round": expr.OpRound, "rand": expr.OpRand,
	"now": expr.OpNow, "year": expr.OpYear, "month": expr.OpMonth, "day": expr.OpDay,
	"hours": expr.OpHours, "minutes": expr.OpMinutes, "seconds": expr.OpSeconds,
	"timezone": expr.OpTimezone, "tz": expr.OpTZ,
	"md5": expr.OpMD5, "sha1": expr.OpSHA1, "sha224": expr.OpSHA224, "sha256": expr.OpSHA256,
	"sha384": expr.OpSHA384, "sha512": expr.OpSHA512,
	"uuid": expr.OpUUID, "struuid": expr.OpStrUUID,
	"if": expr.OpIf, "coalesce": expr.OpCoalesce,
}

func (b *builder) expr(je *jsonExpr) (*expr.Expr, error) {
	if je == nil {
		return nil, nil
	}
	switch je.Op {
	case "literal":
		if je.Term == nil {
			return nil, fmt.Errorf("document: expr literal requires term")
		}
		t, err := b.term(*je.Term)
		if err != nil {
			return nil, err
		}
		return expr.Lit(t), nil
	case "variable":
		if je.Var == "" {
			return nil, fmt.Errorf("document: expr variable requires var")
		}
		return expr.VarRef(b.variable(je.Var)), nil
	case "exists", "notexists":
		if je.Query == nil {
			return nil, fmt.Errorf("document: expr %s requires query", je.Op)
		}
		inner, err := b.node(je.Query)
		if err != nil {
			return nil, err
		}
		bridge := exec.NewExistsBridge(b.root, inner, b.catalog)
		if je.Op == "exists" {
			return expr.Exists(bridge), nil
		}
		return expr.NotExists(bridge), nil
	default:
		op, ok := exprOps[je.Op]
		if !ok {
			return nil, fmt.Errorf("document: unknown expr op %q", je.Op)
		}
		args := make([]*expr.Expr, len(je.Args))
		for i, a := range je.Args {
			ae, err := b.expr(a)
			if err != nil {
				return nil, err
			}
			args[i] = ae
		}
		return &expr.Expr{Op: op, Args: args}, nil
	}
}

// exprAsAlgebra adapts a possibly-nil *expr.Expr to algebra.Expr: a typed
// nil *expr.Expr wrapped in the interface would be a non-nil interface
// value, which would break Node.Filter's "nil means no filter" convention
// (LeftJoin with no ON-filter, in particular), so a genuine nil *expr.Expr
// must become an untyped nil interface here.
func exprAsAlgebra(e *expr.Expr) algebra.Expr {
	if e == nil {
		return nil
	}
	return e
}

func (b *builder) lr(jn *jsonNode) (*algebra.Node, *algebra.Node, error) {
	l, err := b.node(jn.Left)
	if err != nil {
		return nil, nil, err
	}
	r, err := b.node(jn.Right)
	if err != nil {
		return nil, nil, err
	}
	return l, r, nil
}

func (b *builder) node(jn *jsonNode) (*algebra.Node, error) {
	if jn == nil {
		return nil, fmt.Errorf("document: nil node")
	}
	var n *algebra.Node
	switch jn.Op {
	case "bgp":
		pats := make([]algebra.Pattern, len(jn.Triples))
		for i, jp := range jn.Triples {
			p, err := b.pattern(jp)
			if err != nil {
				return nil, err
			}
			pats[i] = p
		}
		n = algebra.NewBGP(pats)
	case "join":
		l, r, err := b.lr(jn)
		if err != nil {
			return nil, err
		}
		n = algebra.NewJoin(l, r)
	case "leftjoin":
		l, r, err := b.lr(jn)
		if err != nil {
			return nil, err
		}
		f, err := b.expr(jn.Filter)
		if err != nil {
			return nil, err
		}
		n = algebra.NewLeftJoin(l, r, exprAsAlgebra(f))
	case "filter":
		f, err := b.expr(jn.Filter)
		if err != nil {
			return nil, err
		}
		child, err := b.node(jn.Child)
		if err != nil {
			return nil, err
		}
		n = algebra.NewFilter(exprAsAlgebra(f), child)
	case "union":
		l, r, err := b.lr(jn)
		if err != nil {
			return nil, err
		}
		n = algebra.NewUnion(l, r)
	case "diff":
		l, r, err := b.lr(jn)
		if err != nil {
			return nil, err
		}
		n = algebra.NewDiff(l, r)
	case "project":
		child, err := b.node(jn.Child)
		if err != nil {
			return nil, err
		}
		vars := make([]*scope.Variable, len(jn.Vars))
		for i, name := range jn.Vars {
			vars[i] = b.variable(name)
		}
		n = algebra.NewProject(vars, child)
	case "extend":
		child, err := b.node(jn.Child)
		if err != nil {
			return nil, err
		}
		e, err := b.expr(jn.Expr)
		if err != nil {
			return nil, err
		}
		n = algebra.NewExtend(b.variable(jn.Var), e, child)
	case "orderby":
		child, err := b.node(jn.Child)
		if err != nil {
			return nil, err
		}
		keys := make([]algebra.OrderKey, len(jn.Keys))
		for i, k := range jn.Keys {
			e, err := b.expr(k.Expr)
			if err != nil {
				return nil, err
			}
			keys[i] = algebra.OrderKey{Expr: e, Ascending: k.Asc}
		}
		n = algebra.NewOrderBy(keys, child)
	case "distinct":
		child, err := b.node(jn.Child)
		if err != nil {
			return nil, err
		}
		n = algebra.NewDistinct(child)
	case "reduced":
		child, err := b.node(jn.Child)
		if err != nil {
			return nil, err
		}
		n = algebra.NewReduced(child)
	case "slice":
		child, err := b.node(jn.Child)
		if err != nil {
			return nil, err
		}
		n = algebra.NewSlice(jn.Offset, jn.Limit, jn.HasLimit, child)
	case "group":
		child, err := b.node(jn.Child)
		if err != nil {
			return nil, err
		}
		keys := make([]algebra.Expr, len(jn.GroupKeys))
		for i, k := range jn.GroupKeys {
			e, err := b.expr(k)
			if err != nil {
				return nil, err
			}
			keys[i] = e
		}
		aggs := make([]algebra.AggregateCall, len(jn.Aggregates))
		for i, a := range jn.Aggregates {
			var arg algebra.Expr
			if a.Arg != nil {
				e, err := b.expr(a.Arg)
				if err != nil {
					return nil, err
				}
				arg = e
			}
			sep := a.Separator
			if sep == "" {
				sep = " "
			}
			aggs[i] = algebra.AggregateCall{
				Function: a.Func, Arg: arg, Distinct: a.Distinct,
				Out: b.variable(a.Out), Separator: sep,
			}
		}
		n = algebra.NewGroup(keys, aggs, child)
	case "graph":
		child, err := b.node(jn.Child)
		if err != nil {
			return nil, err
		}
		if jn.GraphTerm == nil {
			return nil, fmt.Errorf("document: graph node requires graph_term")
		}
		g, err := b.termOrVar(*jn.GraphTerm)
		if err != nil {
			return nil, err
		}
		n = algebra.NewGraph(g, child)
	case "tolist":
		child, err := b.node(jn.Child)
		if err != nil {
			return nil, err
		}
		n = algebra.NewToList(child)
	case "service":
		child, err := b.node(jn.Child)
		if err != nil {
			return nil, err
		}
		n = algebra.NewService(jn.ServiceIRI, jn.Silent, child)
		if jn.HasVarIRI {
			n.HasVarIRI = true
			n.ServiceVar = b.variable(jn.ServiceVar)
		}
	case "dataset":
		child, err := b.node(jn.Child)
		if err != nil {
			return nil, err
		}
		n = algebra.NewDataset(jn.DefaultGraphs, jn.NamedGraphs, child)
	default:
		return nil, fmt.Errorf("document: unknown node op %q", jn.Op)
	}
	n.ExecScope = b.root
	return n, nil
}

// loadCatalog builds an exec.Catalog from doc's dataset description,
// reading each referenced file as N-Triples (results.ReadRDFTriples) into
// one in-memory triplesource/memstore.Store per graph.
func (doc *jsonDocument) loadCatalog() (*exec.Catalog, error) {
	catalog := exec.NewCatalog()

	def := memstore.New()
	for _, path := range doc.DefaultGraph {
		if err := loadTriplesFile(def, path, term.Unbound); err != nil {
			return nil, err
		}
	}
	catalog.SetDefaultGraph(def)

	for iri, paths := range doc.NamedGraphs {
		g := memstore.New()
		origin := term.NewIRI(iri)
		for _, path := range paths {
			if err := loadTriplesFile(g, path, origin); err != nil {
				return nil, err
			}
		}
		catalog.AddNamedGraph(iri, g)
	}
	return catalog, nil
}

func loadTriplesFile(store *memstore.Store, path string, origin term.Term) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	triples, err := results.ReadRDFTriples(f)
	if err != nil {
		return err
	}
	for _, t := range triples {
		store.AddTriple(t.Subject, t.Predicate, t.Object, origin)
	}
	return nil
}

// ParseDocument unmarshals raw JSON bytes into a jsonDocument, without yet
// resolving its dataset files or building an algebra tree — giving a
// caller (main.go's -D/-G handling) a chance to splice in extra dataset
// entries first.
func ParseDocument(raw []byte) (*jsonDocument, error) {
	var doc jsonDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Build resolves doc's dataset into an exec.Catalog, decodes its query
// field into an algebra.Node tree, plans that tree, and returns the
// runnable exec.Query alongside the unplanned root (for --explain) and the
// Catalog (whose lifetime must outlast Execute, since rowsource's
// SERVICE/GRAPH operators re-resolve graphs from it mid-query).
func (doc *jsonDocument) Build() (*algebra.Node, exec.Query, *exec.Catalog, error) {
	catalog, err := doc.loadCatalog()
	if err != nil {
		return nil, exec.Query{}, nil, err
	}

	b := newBuilder(catalog)
	root, err := b.node(&doc.Query)
	if err != nil {
		return nil, exec.Query{}, nil, err
	}
	plan, err := exec.Plan(root, catalog)
	if err != nil {
		return nil, exec.Query{}, nil, err
	}

	q := exec.Query{Plan: plan}
	switch doc.Form {
	case "ask":
		q.Form = exec.FormAsk
	case "construct", "describe":
		q.Form = exec.FormConstruct
		tmpl := make([]algebra.Pattern, len(doc.Template))
		for i, jp := range doc.Template {
			p, err := b.pattern(jp)
			if err != nil {
				return nil, exec.Query{}, nil, err
			}
			tmpl[i] = p
		}
		q.Template = tmpl
	default:
		q.Form = exec.FormSelect
	}
	return root, q, catalog, nil
}
