// Package exec is the planner/driver of spec §2: it turns an algebra.Node
// into a rowsource.RowSource tree (Plan) and drives that tree to a
// results.ResultSet (Execute), the two operations every other component
// of this engine assumes already exist once an algebra tree is in hand.
package exec

import (
	"sort"

	"github.com/sparqlgo/engine/engine/errs"
	"github.com/sparqlgo/engine/triplesource"
)

// Catalog resolves the graph IRIs a Dataset/Graph algebra node names to the
// concrete triplesource.TripleSource backing them. The empty string key is
// the unnamed default graph. A Catalog is built by the host application
// (the engine owns no persistent storage of its own, spec §1's "no
// persistent storage owned by the engine itself") and handed to Plan.
type Catalog struct {
	graphs map[string]triplesource.TripleSource
}

// NewCatalog returns an empty Catalog.
func NewCatalog() *Catalog {
	return &Catalog{graphs: make(map[string]triplesource.TripleSource)}
}

// SetDefaultGraph registers the store backing the query's default graph
// when no FROM clause narrows it.
func (c *Catalog) SetDefaultGraph(ts triplesource.TripleSource) {
	c.graphs[""] = ts
}

// AddNamedGraph registers the store backing one named graph IRI.
func (c *Catalog) AddNamedGraph(iri string, ts triplesource.TripleSource) {
	c.graphs[iri] = ts
}

// Named resolves a single graph IRI.
func (c *Catalog) Named(iri string) (triplesource.TripleSource, error) {
	ts, ok := c.graphs[iri]
	if !ok {
		return nil, errs.ErrTripleSource.New("unknown graph <%s>", iri)
	}
	return ts, nil
}

// DefaultGraph resolves the TripleSource a BGP under Dataset.DefaultGraphs
// should scan: the registered default graph when the list is empty (no
// FROM clause), the single named graph when there's exactly one, or a
// triplesource.Union of all of them (with origin collapsed to unbound,
// matching SPARQL's "FROM merges into one unnamed graph" semantics)
// otherwise.
func (c *Catalog) DefaultGraph(graphs []string) (triplesource.TripleSource, error) {
	if len(graphs) == 0 {
		ts, ok := c.graphs[""]
		if !ok {
			return nil, errs.ErrTripleSource.New("no default graph registered")
		}
		return ts, nil
	}
	if len(graphs) == 1 {
		return c.Named(graphs[0])
	}
	sources := make([]triplesource.TripleSource, 0, len(graphs))
	for _, g := range graphs {
		ts, err := c.Named(g)
		if err != nil {
			return nil, err
		}
		sources = append(sources, ts)
	}
	return triplesource.Union(sources, true), nil
}

// AllSources returns every registered TripleSource, default graph included,
// in no particular order. Used by the planner to build a fallback union for
// triple patterns that pin an explicit origin without a wrapping Graph node.
func (c *Catalog) AllSources() []triplesource.TripleSource {
	out := make([]triplesource.TripleSource, 0, len(c.graphs))
	for _, ts := range c.graphs {
		out = append(out, ts)
	}
	return out
}

// NamedGraphIRIs returns every registered named graph IRI (excluding the
// default graph), sorted, used to resolve GRAPH ?g when the query has no
// explicit FROM NAMED list (spec §4.5's Graph node iterates "every named
// graph the Dataset node supplied").
func (c *Catalog) NamedGraphIRIs() []string {
	out := make([]string, 0, len(c.graphs))
	for iri := range c.graphs {
		if iri != "" {
			out = append(out, iri)
		}
	}
	sort.Strings(out)
	return out
}
