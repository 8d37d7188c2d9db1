package results

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	rdf "github.com/knakk/rdf"

	"github.com/sparqlgo/engine/term"
)

// rsNS is the SPARQL 1.1 RDF results vocabulary namespace (spec §4.7's
// "RDF-graph-based rs: vocabulary" alternative to the tabular/XML/JSON
// formats): each solution becomes one rs:solution node, one rs:binding
// node per bound variable.
const rsNS = "http://www.w3.org/2001/sw/DataAccess/tests/result-set#"

// toRDFTerm converts an engine term.Term to the knakk/rdf.Term this
// package's RDF encoder drives; toRDFTerm panics on an unbound term, since
// no caller here ever hands one to it (every call site has already checked
// IsUnbound).
func toRDFTerm(t term.Term) rdf.Term {
	switch t.Kind() {
	case term.KindIRI:
		iri, _ := t.IRI()
		return rdf.NewURIUnsafe(iri)
	case term.KindBlankNode:
		id, _ := t.BlankNodeID()
		return rdf.NewBlankUnsafe(id)
	case term.KindLiteral:
		if t.Language() != "" {
			return rdf.NewLangLiteral(t.Lexical(), t.Language())
		}
		return &rdf.Literal{Value: t.Lexical(), DataType: rdf.NewURIUnsafe(t.Datatype())}
	default:
		panic("results: toRDFTerm called on an unbound term")
	}
}

// writeNTriple renders one knakk/rdf.Triple as one N-Triples line, driven
// entirely through the library's own Term.String() so the lexical escaping
// and datatype/lang-tag suffix rules are the library's, not reimplemented
// here.
func writeNTriple(w *bufio.Writer, t rdf.Triple) error {
	_, err := fmt.Fprintf(w, "%s %s %s .\n", t.Subj.String(), t.Pred.String(), t.Obj.String())
	return err
}

// WriteRDF serializes rs (which must be KindGraph, the CONSTRUCT/DESCRIBE
// result shape) as N-Triples.
func (rs *ResultSet) WriteRDF(w io.Writer) error {
	if rs.Kind != KindGraph {
		return fmt.Errorf("results: RDF triple output only supports CONSTRUCT/DESCRIBE result sets")
	}
	bw := bufio.NewWriter(w)
	for _, tr := range rs.Triples {
		rt := rdf.Triple{
			Subj: toRDFTerm(tr.Subject),
			Pred: toRDFTerm(tr.Predicate),
			Obj:  toRDFTerm(tr.Object),
		}
		if err := writeNTriple(bw, rt); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// ToResultSetGraph renders a KindSelect/KindAsk ResultSet as the rs:
// vocabulary RDF graph spec §4.7 names as an alternative encoding: one
// rs:ResultSet node, an rs:resultVariable literal per projected variable,
// and one rs:solution/rs:binding/rs:value/rs:variable subgraph per row.
// Blank nodes are minted as "s0", "s1", ... (solutions) and "s0b0", "s0b1",
// ... (bindings within a solution) — stable and collision-free within one
// call, not intended to be meaningful outside it.
func (rs *ResultSet) ToResultSetGraph() ([]rdf.Triple, error) {
	if rs.Kind == KindGraph {
		return nil, fmt.Errorf("results: ToResultSetGraph only supports SELECT/ASK result sets")
	}
	root := rdf.NewBlankUnsafe("rs")
	typeIRI := rdf.NewURIUnsafe(rsNS + "ResultSet")
	rdfType := rdf.NewURIUnsafe("http://www.w3.org/1999/02/22-rdf-syntax-ns#type")
	out := []rdf.Triple{{Subj: root, Pred: rdfType, Obj: typeIRI}}

	for _, v := range rs.Vars {
		lit, err := rdf.NewLiteral(v)
		if err != nil {
			return nil, err
		}
		out = append(out, rdf.Triple{
			Subj: root,
			Pred: rdf.NewURIUnsafe(rsNS + "resultVariable"),
			Obj:  lit,
		})
	}

	if rs.Kind == KindAsk {
		lit, err := rdf.NewLiteral(rs.AskValue)
		if err != nil {
			return nil, err
		}
		out = append(out, rdf.Triple{
			Subj: root,
			Pred: rdf.NewURIUnsafe(rsNS + "boolean"),
			Obj:  lit,
		})
		return out, nil
	}

	for i, sol := range rs.Solutions {
		solNode := rdf.NewBlankUnsafe(fmt.Sprintf("s%d", i))
		out = append(out, rdf.Triple{Subj: root, Pred: rdf.NewURIUnsafe(rsNS + "solution"), Obj: solNode})
		j := 0
		for _, v := range rs.Vars {
			val, ok := sol[v]
			if !ok || val.IsUnbound() {
				continue
			}
			bNode := rdf.NewBlankUnsafe(fmt.Sprintf("s%db%d", i, j))
			j++
			out = append(out, rdf.Triple{Subj: solNode, Pred: rdf.NewURIUnsafe(rsNS + "binding"), Obj: bNode})
			nameLit, err := rdf.NewLiteral(v)
			if err != nil {
				return nil, err
			}
			out = append(out, rdf.Triple{Subj: bNode, Pred: rdf.NewURIUnsafe(rsNS + "variable"), Obj: nameLit})
			out = append(out, rdf.Triple{Subj: bNode, Pred: rdf.NewURIUnsafe(rsNS + "value"), Obj: toRDFTerm(val)})
		}
	}
	return out, nil
}

// ReadRDFTriples parses an N-Triples stream, one "subj pred obj ." line at
// a time (the format this package writes CONSTRUCT/DESCRIBE output in); it
// does not implement Turtle's prefix/collection shorthand, matching
// WriteRDF's own N-Triples-only output.
func ReadRDFTriples(r io.Reader) ([]Triple, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	var out []Triple
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimSuffix(line, ".")
		s, pr, o, err := splitNTripleTerms(strings.TrimSpace(line))
		if err != nil {
			return nil, err
		}
		out = append(out, Triple{Subject: s, Predicate: pr, Object: o})
	}
	return out, sc.Err()
}

// splitNTripleTerms tokenizes one N-Triples statement body (everything
// before the trailing ".") into its three terms, using parseTermSyntax
// (csv.go) for each of the three positions; it already understands <iri>, _:id
// and quoted-literal-with-suffix — exactly N-Triples' term grammar.
func splitNTripleTerms(line string) (s, p, o term.Term, err error) {
	tok, rest, ok := nextNTripleToken(line)
	if !ok {
		return s, p, o, fmt.Errorf("results: malformed N-Triples statement %q", line)
	}
	s = parseTermSyntax(tok)
	tok, rest, ok = nextNTripleToken(rest)
	if !ok {
		return s, p, o, fmt.Errorf("results: malformed N-Triples statement %q", line)
	}
	p = parseTermSyntax(tok)
	o = parseTermSyntax(strings.TrimSpace(rest))
	return s, p, o, nil
}

// nextNTripleToken splits off the next whitespace-delimited term, honoring
// a quoted literal's embedded spaces.
func nextNTripleToken(s string) (tok, rest string, ok bool) {
	s = strings.TrimLeft(s, " \t")
	if s == "" {
		return "", "", false
	}
	if s[0] == '"' {
		end := strings.IndexByte(s[1:], '"')
		for end >= 0 && s[1:][end-1] == '\\' {
			next := strings.IndexByte(s[1+end+1:], '"')
			if next < 0 {
				break
			}
			end = end + 1 + next
		}
		if end < 0 {
			return "", "", false
		}
		cut := 1 + end + 1
		// absorb an optional @lang or ^^<iri> suffix
		for cut < len(s) && s[cut] != ' ' && s[cut] != '\t' {
			cut++
		}
		return s[:cut], s[cut:], true
	}
	idx := strings.IndexAny(s, " \t")
	if idx < 0 {
		return s, "", true
	}
	return s[:idx], s[idx:], true
}
