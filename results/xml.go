package results

import (
	"encoding/xml"
	"fmt"
	"io"

	"github.com/sparqlgo/engine/term"
)

// WriteXML writes rs in the SPARQL 1.1 Query Results XML Format, streaming
// one <result> element per solution via a plain xml.Encoder rather than
// marshaling the whole ResultSet as one tree, so a large result set never
// needs to be held twice in memory.
func (rs *ResultSet) WriteXML(w io.Writer) error {
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")

	start := xml.StartElement{Name: xml.Name{Local: "sparql"}, Attr: []xml.Attr{
		{Name: xml.Name{Local: "xmlns"}, Value: "http://www.w3.org/2005/sparql-results#"},
	}}
	if err := enc.EncodeToken(start); err != nil {
		return err
	}

	head := xml.StartElement{Name: xml.Name{Local: "head"}}
	if err := enc.EncodeToken(head); err != nil {
		return err
	}
	for _, v := range rs.Vars {
		ve := xml.StartElement{Name: xml.Name{Local: "variable"}, Attr: []xml.Attr{
			{Name: xml.Name{Local: "name"}, Value: v},
		}}
		if err := enc.EncodeToken(ve); err != nil {
			return err
		}
		if err := enc.EncodeToken(ve.End()); err != nil {
			return err
		}
	}
	if err := enc.EncodeToken(head.End()); err != nil {
		return err
	}

	switch rs.Kind {
	case KindAsk:
		be := xml.StartElement{Name: xml.Name{Local: "boolean"}}
		if err := enc.EncodeToken(be); err != nil {
			return err
		}
		text := "false"
		if rs.AskValue {
			text = "true"
		}
		if err := enc.EncodeToken(xml.CharData(text)); err != nil {
			return err
		}
		if err := enc.EncodeToken(be.End()); err != nil {
			return err
		}

	case KindSelect:
		results := xml.StartElement{Name: xml.Name{Local: "results"}}
		if err := enc.EncodeToken(results); err != nil {
			return err
		}
		for _, sol := range rs.Solutions {
			if err := writeResultElem(enc, rs.Vars, sol); err != nil {
				return err
			}
		}
		if err := enc.EncodeToken(results.End()); err != nil {
			return err
		}

	case KindGraph:
		return fmt.Errorf("results: CONSTRUCT/DESCRIBE output has no SPARQL XML results encoding; use WriteRDF")
	}

	if err := enc.EncodeToken(start.End()); err != nil {
		return err
	}
	return enc.Flush()
}

func writeResultElem(enc *xml.Encoder, vars []string, sol Solution) error {
	result := xml.StartElement{Name: xml.Name{Local: "result"}}
	if err := enc.EncodeToken(result); err != nil {
		return err
	}
	for _, v := range vars {
		val, ok := sol[v]
		if !ok || val.IsUnbound() {
			continue
		}
		binding := xml.StartElement{Name: xml.Name{Local: "binding"}, Attr: []xml.Attr{
			{Name: xml.Name{Local: "name"}, Value: v},
		}}
		if err := enc.EncodeToken(binding); err != nil {
			return err
		}
		if err := writeTermElem(enc, val); err != nil {
			return err
		}
		if err := enc.EncodeToken(binding.End()); err != nil {
			return err
		}
	}
	return enc.EncodeToken(result.End())
}

func writeTermElem(enc *xml.Encoder, t term.Term) error {
	switch t.Kind() {
	case term.KindIRI:
		iri, _ := t.IRI()
		return writeLeaf(enc, "uri", nil, iri)
	case term.KindBlankNode:
		id, _ := t.BlankNodeID()
		return writeLeaf(enc, "bnode", nil, id)
	case term.KindLiteral:
		var attrs []xml.Attr
		if t.Language() != "" {
			attrs = append(attrs, xml.Attr{Name: xml.Name{Local: "xml:lang"}, Value: t.Language()})
		} else if t.Datatype() != "" && t.Datatype() != term.XSDString {
			attrs = append(attrs, xml.Attr{Name: xml.Name{Local: "datatype"}, Value: t.Datatype()})
		}
		return writeLeaf(enc, "literal", attrs, t.Lexical())
	default:
		return fmt.Errorf("results: cannot encode unbound term as a binding value")
	}
}

func writeLeaf(enc *xml.Encoder, name string, attrs []xml.Attr, text string) error {
	start := xml.StartElement{Name: xml.Name{Local: name}, Attr: attrs}
	if err := enc.EncodeToken(start); err != nil {
		return err
	}
	if err := enc.EncodeToken(xml.CharData(text)); err != nil {
		return err
	}
	return enc.EncodeToken(start.End())
}

// ReadXML parses the SPARQL 1.1 Query Results XML Format incrementally: a
// single xml.Decoder.Token() loop (SAX-style, spec §4.7) rather than
// xml.Unmarshal into a DOM-shaped struct, so a multi-gigabyte result file
// never needs to be held whole before the first row is usable.
func ReadXML(r io.Reader) (*ResultSet, error) {
	dec := xml.NewDecoder(r)
	rs := &ResultSet{Kind: KindSelect}

	var (
		inHead      bool
		inResult    bool
		inBinding   bool
		bindingName string
		curTag      string
		curAttrs    []xml.Attr
		curText     string
		sol         Solution
	)

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "head":
				inHead = true
			case "variable":
				if inHead {
					for _, a := range t.Attr {
						if a.Name.Local == "name" {
							rs.Vars = append(rs.Vars, a.Value)
						}
					}
				}
			case "boolean":
				rs.Kind = KindAsk
			case "result":
				inResult = true
				sol = Solution{}
			case "binding":
				if inResult {
					inBinding = true
					for _, a := range t.Attr {
						if a.Name.Local == "name" {
							bindingName = a.Value
						}
					}
				}
			case "uri", "bnode", "literal":
				if inBinding {
					curTag = t.Name.Local
					curAttrs = t.Attr
					curText = ""
				}
			}
		case xml.CharData:
			if inBinding && curTag != "" {
				curText += string(t)
			} else if rs.Kind == KindAsk && !inHead {
				curText += string(t)
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "head":
				inHead = false
			case "boolean":
				rs.AskValue = curText == "true" || curText == "1"
				curText = ""
			case "uri":
				sol[bindingName] = term.NewIRI(curText)
				curTag = ""
			case "bnode":
				sol[bindingName] = term.NewBlankNode(curText)
				curTag = ""
			case "literal":
				sol[bindingName] = literalFromXMLAttrs(curAttrs, curText)
				curTag = ""
			case "binding":
				inBinding = false
			case "result":
				rs.Solutions = append(rs.Solutions, sol)
				inResult = false
			}
		}
	}
	return rs, nil
}

func literalFromXMLAttrs(attrs []xml.Attr, text string) term.Term {
	var lang, datatype string
	for _, a := range attrs {
		switch a.Name.Local {
		case "lang":
			lang = a.Value
		case "datatype":
			datatype = a.Value
		}
	}
	return term.NewLiteral(text, lang, datatype)
}
