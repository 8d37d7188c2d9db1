package exec

import (
	"github.com/sparqlgo/engine/algebra"
	"github.com/sparqlgo/engine/correlate"
	"github.com/sparqlgo/engine/engine/errs"
	"github.com/sparqlgo/engine/rowsource"
	"github.com/sparqlgo/engine/scope"
	"github.com/sparqlgo/engine/triplesource"
)

// planContext carries the graph scoping state that threads through a Plan
// recursion: the TripleSource a bare (no explicit GRAPH) BGP should scan,
// the named-graph list a nested Graph(var) iterates absent its own FROM
// NAMED list, and a lazily-built union of every registered graph for
// patterns that pin an explicit origin without a wrapping Graph node.
type planContext struct {
	catalog *Catalog
	source  triplesource.TripleSource
	named   []string
	all     triplesource.TripleSource
}

func newPlanContext(catalog *Catalog) *planContext {
	return &planContext{catalog: catalog, named: catalog.NamedGraphIRIs()}
}

func (pc *planContext) allSource() triplesource.TripleSource {
	if pc.all == nil {
		pc.all = triplesource.Union(pc.catalog.AllSources(), false)
	}
	return pc.all
}

// Plan compiles node into a rowsource.RowSource tree, resolving every BGP's
// graph scope against catalog along the way. node must already carry its
// ExecScope fields (set as the algebra tree was assembled) wherever Diff's
// correlation analysis needs them.
func Plan(node *algebra.Node, catalog *Catalog) (rowsource.RowSource, error) {
	return newPlanContext(catalog).plan(node)
}

func (pc *planContext) plan(n *algebra.Node) (rowsource.RowSource, error) {
	if n == nil {
		return nil, errs.ErrParse.New("nil algebra node")
	}
	switch n.Op {
	case algebra.OpBGP:
		return pc.planBGP(n)

	case algebra.OpJoin:
		l, r, err := pc.planLR(n)
		if err != nil {
			return nil, err
		}
		return rowsource.NewJoin(l, r), nil

	case algebra.OpLeftJoin:
		l, r, err := pc.planLR(n)
		if err != nil {
			return nil, err
		}
		return rowsource.NewLeftJoin(l, r, n.Filter), nil

	case algebra.OpUnion:
		l, r, err := pc.planLR(n)
		if err != nil {
			return nil, err
		}
		return rowsource.NewUnion(l, r), nil

	case algebra.OpDiff:
		l, err := pc.plan(&n.Left)
		if err != nil {
			return nil, err
		}
		r, err := pc.plan(&n.Right)
		if err != nil {
			return nil, err
		}
		return rowsource.NewDiff(l, r, pc.correlatedVars(n)), nil

	case algebra.OpFilter:
		child, err := pc.plan(n.Child)
		if err != nil {
			return nil, err
		}
		return rowsource.NewFilter(n.Filter, child), nil

	case algebra.OpProject:
		child, err := pc.plan(n.Child)
		if err != nil {
			return nil, err
		}
		return rowsource.NewProject(n.ProjectVars, child), nil

	case algebra.OpExtend:
		child, err := pc.plan(n.Child)
		if err != nil {
			return nil, err
		}
		return rowsource.NewExtend(n.ExtendVar, n.ExtendExpr, child), nil

	case algebra.OpOrderBy:
		child, err := pc.plan(n.Child)
		if err != nil {
			return nil, err
		}
		return rowsource.NewOrderBy(n.OrderKeys, child), nil

	case algebra.OpDistinct:
		child, err := pc.plan(n.Child)
		if err != nil {
			return nil, err
		}
		return rowsource.NewDistinct(child), nil

	case algebra.OpReduced:
		child, err := pc.plan(n.Child)
		if err != nil {
			return nil, err
		}
		return rowsource.NewReduced(child), nil

	case algebra.OpSlice:
		child, err := pc.plan(n.Child)
		if err != nil {
			return nil, err
		}
		return rowsource.NewSlice(n.Offset, n.Limit, n.HasLimit, child), nil

	case algebra.OpGroup:
		child, err := pc.plan(n.Child)
		if err != nil {
			return nil, err
		}
		return rowsource.NewGroup(n.GroupKeys, n.Aggregates, child), nil

	case algebra.OpGraph:
		child, err := pc.plan(n.Child)
		if err != nil {
			return nil, err
		}
		return rowsource.NewGraph(n.GraphTerm, pc.named, child), nil

	case algebra.OpToList:
		child, err := pc.plan(n.Child)
		if err != nil {
			return nil, err
		}
		return rowsource.NewToList(child), nil

	case algebra.OpService:
		child, err := pc.plan(n.Child)
		if err != nil {
			return nil, err
		}
		return rowsource.NewService(n.ServiceIRI, n.HasVarIRI, n.ServiceVar, n.SilentOnErr, child), nil

	case algebra.OpDataset:
		return pc.planDataset(n)

	default:
		return nil, errs.ErrParse.New("unrecognized algebra operator %d", n.Op)
	}
}

func (pc *planContext) planLR(n *algebra.Node) (rowsource.RowSource, rowsource.RowSource, error) {
	l, err := pc.plan(&n.Left)
	if err != nil {
		return nil, nil, err
	}
	r, err := pc.plan(&n.Right)
	if err != nil {
		return nil, nil, err
	}
	return l, r, nil
}

// planBGP resolves which TripleSource this BGP's patterns scan: the
// unioned catalog whenever any pattern pins an explicit origin term or
// variable (so GRAPH-without-a-wrapping-Graph-node quad patterns still see
// every graph's triples to filter against), otherwise the planner's current
// default-graph scope.
func (pc *planContext) planBGP(n *algebra.Node) (rowsource.RowSource, error) {
	src := pc.source
	for _, p := range n.Triples {
		if p.HasOrigin {
			src = pc.allSource()
			break
		}
	}
	if src == nil {
		return nil, errs.ErrTripleSource.New("triple pattern has no graph source in scope")
	}
	if n.ExecScope == nil {
		return nil, errs.ErrParse.New("BGP node has no execution scope")
	}
	return rowsource.NewTriples(n.Triples, n.ExecScope.Visible(), src), nil
}

func (pc *planContext) planDataset(n *algebra.Node) (rowsource.RowSource, error) {
	def, err := pc.catalog.DefaultGraph(n.DefaultGraphs)
	if err != nil {
		return nil, err
	}
	named := n.NamedGraphs
	if len(named) == 0 {
		named = pc.catalog.NamedGraphIRIs()
	}
	child := &planContext{catalog: pc.catalog, source: def, named: named, all: pc.all}
	inner, err := child.plan(n.Child)
	if err != nil {
		return nil, err
	}
	return rowsource.NewDataset(n.DefaultGraphs, n.NamedGraphs, inner), nil
}

// correlatedVars computes spec §4.8's correlation set for a Diff (MINUS)
// node: the variables its right operand references that the left operand's
// scope provides but the right operand's own scope never defines. Returns
// nil (full, unconstrained scan) when either side's ExecScope was not set.
func (pc *planContext) correlatedVars(n *algebra.Node) []*scope.Variable {
	if n.Left.ExecScope == nil || n.Right.ExecScope == nil {
		return nil
	}
	return correlate.Set(n.Left.ExecScope, n.Right.ExecScope, &n.Right)
}
