package rowsource

import (
	"io"

	"github.com/sparqlgo/engine/algebra"
	"github.com/sparqlgo/engine/engine"
	"github.com/sparqlgo/engine/scope"
	"github.com/sparqlgo/engine/term"
)

// Graph implements spec §4.5's Graph: a constant origin pins Inner to that
// one named graph via OriginSetter.SetOrigin and streams it once; a
// variable origin iterates every named graph the Dataset node supplied
// (NamedGraphs), rerunning Inner under each and binding GraphTerm.Var to
// that graph's IRI on every emitted row.
type Graph struct {
	GraphTerm   algebra.TermOrVar
	NamedGraphs []string
	Inner       RowSource

	graphIdx   int
	started    bool
	currentIRI term.Term
}

func NewGraph(g algebra.TermOrVar, namedGraphs []string, inner RowSource) *Graph {
	return &Graph{GraphTerm: g, NamedGraphs: namedGraphs, Inner: inner}
}

func (g *Graph) EnsureVariables() *scope.Table { return g.Inner.EnsureVariables() }

func (g *Graph) Init(ctx *engine.Context) error {
	g.graphIdx = 0
	g.started = false
	if !g.GraphTerm.IsVar {
		forwardOrigin(g.Inner, g.GraphTerm.Term)
		g.currentIRI = g.GraphTerm.Term
		return g.Inner.Init(ctx)
	}
	return nil
}

func (g *Graph) Finish(ctx *engine.Context) error {
	if !g.started && g.GraphTerm.IsVar {
		return nil
	}
	return g.Inner.Finish(ctx)
}

func (g *Graph) advanceGraph(ctx *engine.Context) (bool, error) {
	if g.started {
		if err := g.Inner.Finish(ctx); err != nil {
			return false, err
		}
	}
	if g.graphIdx >= len(g.NamedGraphs) {
		return false, nil
	}
	iri := g.NamedGraphs[g.graphIdx]
	g.graphIdx++
	g.currentIRI = term.NewIRI(iri)
	forwardOrigin(g.Inner, g.currentIRI)
	if err := g.Inner.Init(ctx); err != nil {
		return false, err
	}
	g.started = true
	return true, nil
}

func (g *Graph) ReadRow(ctx *engine.Context) (*Row, error) {
	if !g.GraphTerm.IsVar {
		return g.Inner.ReadRow(ctx)
	}
	for {
		if !g.started {
			ok, err := g.advanceGraph(ctx)
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, io.EOF
			}
		}
		row, err := g.Inner.ReadRow(ctx)
		if err == io.EOF {
			g.started = false
			continue
		}
		if err != nil {
			return nil, err
		}
		row.Set(g.GraphTerm.Var.Offset, g.currentIRI)
		return row, nil
	}
}

func (g *Graph) HasAnyRow(ctx *engine.Context) (bool, error) { return hasAnyRow(ctx, g) }
