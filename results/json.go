package results

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/sparqlgo/engine/term"
)

// jsonBinding mirrors one value of the SPARQL 1.1 Query Results JSON
// Format's "bindings" object: {"type": "uri"|"literal"|"bnode", "value":
// ..., "xml:lang": ..., "datatype": ...}.
type jsonBinding struct {
	Type     string `json:"type"`
	Value    string `json:"value"`
	Lang     string `json:"xml:lang,omitempty"`
	Datatype string `json:"datatype,omitempty"`
}

type jsonHead struct {
	Vars []string `json:"vars,omitempty"`
}

type jsonResults struct {
	Bindings []map[string]jsonBinding `json:"bindings"`
}

type jsonDoc struct {
	Head    jsonHead     `json:"head"`
	Results *jsonResults `json:"results,omitempty"`
	Boolean *bool        `json:"boolean,omitempty"`
}

func termToJSONBinding(t term.Term) (jsonBinding, error) {
	switch t.Kind() {
	case term.KindIRI:
		iri, _ := t.IRI()
		return jsonBinding{Type: "uri", Value: iri}, nil
	case term.KindBlankNode:
		id, _ := t.BlankNodeID()
		return jsonBinding{Type: "bnode", Value: id}, nil
	case term.KindLiteral:
		b := jsonBinding{Type: "literal", Value: t.Lexical()}
		if t.Language() != "" {
			b.Lang = t.Language()
		} else if t.Datatype() != "" && t.Datatype() != term.XSDString {
			b.Datatype = t.Datatype()
		}
		return b, nil
	default:
		return jsonBinding{}, fmt.Errorf("results: cannot encode unbound term as a JSON binding")
	}
}

func jsonBindingToTerm(b jsonBinding) term.Term {
	switch b.Type {
	case "uri":
		return term.NewIRI(b.Value)
	case "bnode":
		return term.NewBlankNode(b.Value)
	default:
		return term.NewLiteral(b.Value, b.Lang, b.Datatype)
	}
}

// WriteJSON writes rs in the SPARQL 1.1 Query Results JSON Format via
// encoding/json, building the document struct once; unlike WriteXML this
// format is not driven incrementally since json.Encoder offers no
// equivalent token-level streaming API for nested arrays.
func (rs *ResultSet) WriteJSON(w io.Writer) error {
	doc := jsonDoc{Head: jsonHead{Vars: rs.Vars}}
	switch rs.Kind {
	case KindAsk:
		v := rs.AskValue
		doc.Boolean = &v
	case KindSelect:
		jr := &jsonResults{Bindings: make([]map[string]jsonBinding, 0, len(rs.Solutions))}
		for _, sol := range rs.Solutions {
			row := make(map[string]jsonBinding, len(sol))
			for _, v := range rs.Vars {
				val, ok := sol[v]
				if !ok || val.IsUnbound() {
					continue
				}
				b, err := termToJSONBinding(val)
				if err != nil {
					return err
				}
				row[v] = b
			}
			jr.Bindings = append(jr.Bindings, row)
		}
		doc.Results = jr
	case KindGraph:
		return fmt.Errorf("results: CONSTRUCT/DESCRIBE output has no SPARQL JSON results encoding; use WriteRDF")
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

// ReadJSON parses the SPARQL 1.1 Query Results JSON Format.
func ReadJSON(r io.Reader) (*ResultSet, error) {
	var doc jsonDoc
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, err
	}
	rs := &ResultSet{Vars: doc.Head.Vars}
	if doc.Boolean != nil {
		rs.Kind = KindAsk
		rs.AskValue = *doc.Boolean
		return rs, nil
	}
	rs.Kind = KindSelect
	if doc.Results != nil {
		for _, row := range doc.Results.Bindings {
			sol := make(Solution, len(row))
			for k, b := range row {
				sol[k] = jsonBindingToTerm(b)
			}
			rs.Solutions = append(rs.Solutions, sol)
		}
	}
	return rs, nil
}
