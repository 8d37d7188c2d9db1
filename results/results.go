// Package results implements spec §4.7's result-set object together with
// its read and write protocols: the SPARQL XML, JSON, CSV and TSV result
// formats for SELECT/ASK, and (rdf.go) the rs: vocabulary RDF
// encoding, the format the SPARQL 1.1 Protocol calls out as an alternative
// to the tabular ones. A ResultSet is the thing engine/exec.Execute
// produces by draining a rowsource.RowSource; this package knows nothing
// about rowsource itself, only about the term.Term values a query binds.
package results

import (
	"fmt"
	"io"

	"github.com/sparqlgo/engine/term"
)

// Solution is one SELECT row: variable name to bound value. A variable
// absent from the map (as opposed to present with term.Unbound) means the
// solution simply does not mention it, SPARQL's "optional, unbound"
// distinction the XML/JSON formats both need to preserve.
type Solution map[string]term.Term

// Kind tags which of SELECT/ASK/CONSTRUCT-DESCRIBE shape a ResultSet holds,
// spec §1's three query forms this engine reports results for.
type Kind int

const (
	KindSelect Kind = iota
	KindAsk
	KindGraph
)

// Triple is one CONSTRUCT/DESCRIBE output triple.
type Triple struct {
	Subject, Predicate, Object term.Term
}

// ResultSet is the in-memory result of one query, spec §4.7. Exactly one of
// Solutions (KindSelect), AskValue (KindAsk) or Triples (KindGraph) is
// meaningful, selected by Kind.
type ResultSet struct {
	Kind Kind

	// SELECT
	Vars      []string
	Solutions []Solution

	// ASK
	AskValue bool

	// CONSTRUCT/DESCRIBE
	Triples []Triple
}

// NewSelect builds a KindSelect ResultSet.
func NewSelect(vars []string, solutions []Solution) *ResultSet {
	return &ResultSet{Kind: KindSelect, Vars: vars, Solutions: solutions}
}

// NewAsk builds a KindAsk ResultSet.
func NewAsk(value bool) *ResultSet {
	return &ResultSet{Kind: KindAsk, AskValue: value}
}

// NewGraph builds a KindGraph (CONSTRUCT/DESCRIBE) ResultSet.
func NewGraph(triples []Triple) *ResultSet {
	return &ResultSet{Kind: KindGraph, Triples: triples}
}

// Format is a wire encoding this package can read and/or write.
type Format int

const (
	FormatXML Format = iota
	FormatJSON
	FormatCSV
	FormatTSV
	FormatRDF
)

func (f Format) String() string {
	switch f {
	case FormatXML:
		return "xml"
	case FormatJSON:
		return "json"
	case FormatCSV:
		return "csv"
	case FormatTSV:
		return "tsv"
	case FormatRDF:
		return "rdf"
	default:
		return "unknown"
	}
}

// DetectFormat resolves a CLI/HTTP format name (spec §6's -r flag, or a
// Content-Type/Accept header's media subtype) to a Format.
func DetectFormat(name string) (Format, error) {
	switch name {
	case "xml", "application/sparql-results+xml":
		return FormatXML, nil
	case "json", "application/sparql-results+json":
		return FormatJSON, nil
	case "csv", "text/csv":
		return FormatCSV, nil
	case "tsv", "text/tab-separated-values":
		return FormatTSV, nil
	case "rdf", "ttl", "turtle", "nt", "ntriples", "application/n-triples", "text/turtle":
		return FormatRDF, nil
	default:
		return 0, fmt.Errorf("results: unrecognized format %q", name)
	}
}

// Write dispatches to the Write* method matching f, the single entry point
// spec §6's -r/-o flags need once the CLI has resolved a format name.
func (rs *ResultSet) Write(w io.Writer, f Format) error {
	switch f {
	case FormatXML:
		return rs.WriteXML(w)
	case FormatJSON:
		return rs.WriteJSON(w)
	case FormatCSV:
		return rs.WriteCSV(w)
	case FormatTSV:
		return rs.WriteTSV(w)
	case FormatRDF:
		return rs.WriteRDF(w)
	default:
		return fmt.Errorf("results: unknown format %v", f)
	}
}

// Read dispatches to the Read* function matching f. FormatRDF is rejected:
// an N-Triples CONSTRUCT/DESCRIBE dump has no SELECT/ASK structure to
// recover (ReadRDFTriples, not Read, is its counterpart).
func Read(r io.Reader, f Format) (*ResultSet, error) {
	switch f {
	case FormatXML:
		return ReadXML(r)
	case FormatJSON:
		return ReadJSON(r)
	case FormatCSV:
		return ReadCSV(r)
	case FormatTSV:
		return ReadTSV(r)
	default:
		return nil, fmt.Errorf("results: format %v has no SELECT/ASK reader", f)
	}
}
