package results

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/sparqlgo/engine/term"
)

// csvCell renders a bound value the way the SPARQL 1.1 CSV/TSV results
// formats require: a bare lexical form, with no quoting, language tag or
// datatype annotation (both formats are lossy by design — round-tripping
// through ReadCSV/ReadTSV recovers only simple-literal/IRI strings, never
// a literal's original language or datatype, spec §4.7's acknowledged limit
// of the tabular formats).
func csvCell(t term.Term) string {
	if t.IsUnbound() {
		return ""
	}
	if iri, ok := t.IRI(); ok {
		return iri
	}
	if id, ok := t.BlankNodeID(); ok {
		return "_:" + id
	}
	return t.Lexical()
}

// WriteCSV writes rs (which must be KindSelect) via encoding/csv.
func (rs *ResultSet) WriteCSV(w io.Writer) error {
	if rs.Kind != KindSelect {
		return fmt.Errorf("results: CSV output only supports SELECT result sets")
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(rs.Vars); err != nil {
		return err
	}
	row := make([]string, len(rs.Vars))
	for _, sol := range rs.Solutions {
		for i, v := range rs.Vars {
			row[i] = csvCell(sol[v])
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV parses a SPARQL CSV results document; every value is recovered as
// a plain IRI/blank node/simple literal, per csvCell's doc comment.
func ReadCSV(r io.Reader) (*ResultSet, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		return nil, err
	}
	rs := &ResultSet{Kind: KindSelect, Vars: header}
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		sol := make(Solution, len(header))
		for i, v := range header {
			if i >= len(row) || row[i] == "" {
				continue
			}
			sol[v] = parseTabularCell(row[i])
		}
		rs.Solutions = append(rs.Solutions, sol)
	}
	return rs, nil
}

// WriteTSV writes rs in the SPARQL 1.1 TSV results format: tab-separated,
// each bound value written in the query language's own term syntax
// (term.Term.String renders exactly this) rather than CSV's bare lexical
// form, so TSV round-trips an IRI/literal/blank-node distinction CSV drops.
func (rs *ResultSet) WriteTSV(w io.Writer) error {
	if rs.Kind != KindSelect {
		return fmt.Errorf("results: TSV output only supports SELECT result sets")
	}
	bw := bufio.NewWriter(w)
	names := make([]string, len(rs.Vars))
	for i, v := range rs.Vars {
		names[i] = "?" + v
	}
	if _, err := bw.WriteString(strings.Join(names, "\t") + "\n"); err != nil {
		return err
	}
	cells := make([]string, len(rs.Vars))
	for _, sol := range rs.Solutions {
		for i, v := range rs.Vars {
			val, ok := sol[v]
			if !ok || val.IsUnbound() {
				cells[i] = ""
				continue
			}
			cells[i] = val.String()
		}
		if _, err := bw.WriteString(strings.Join(cells, "\t") + "\n"); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// ReadTSV parses a SPARQL 1.1 TSV results document.
func ReadTSV(r io.Reader) (*ResultSet, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	if !sc.Scan() {
		return nil, sc.Err()
	}
	header := strings.Split(sc.Text(), "\t")
	vars := make([]string, len(header))
	for i, h := range header {
		vars[i] = strings.TrimPrefix(h, "?")
	}
	rs := &ResultSet{Kind: KindSelect, Vars: vars}
	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			continue
		}
		cells := strings.Split(line, "\t")
		sol := make(Solution, len(vars))
		for i, v := range vars {
			if i >= len(cells) || cells[i] == "" {
				continue
			}
			sol[v] = parseTermSyntax(cells[i])
		}
		rs.Solutions = append(rs.Solutions, sol)
	}
	return rs, sc.Err()
}

// parseTabularCell recovers a term from a CSV cell: an IRI if it looks
// like one, a blank node if prefixed "_:", a plain literal otherwise.
func parseTabularCell(s string) term.Term {
	if strings.HasPrefix(s, "_:") {
		return term.NewBlankNode(strings.TrimPrefix(s, "_:"))
	}
	if looksLikeIRI(s) {
		return term.NewIRI(s)
	}
	return term.NewSimpleLiteral(s)
}

func looksLikeIRI(s string) bool {
	return strings.Contains(s, "://") || strings.HasPrefix(s, "urn:")
}

// parseTermSyntax recovers a term from one TSV cell, which (unlike CSV)
// carries the query language's own term syntax: <iri>, _:id, or a quoted
// literal with an optional @lang/^^datatype suffix.
func parseTermSyntax(s string) term.Term {
	switch {
	case strings.HasPrefix(s, "<") && strings.HasSuffix(s, ">"):
		return term.NewIRI(s[1 : len(s)-1])
	case strings.HasPrefix(s, "_:"):
		return term.NewBlankNode(strings.TrimPrefix(s, "_:"))
	case strings.HasPrefix(s, `"`):
		return parseQuotedLiteral(s)
	default:
		return term.NewSimpleLiteral(s)
	}
}

func parseQuotedLiteral(s string) term.Term {
	end := strings.LastIndexByte(s, '"')
	if end <= 0 {
		return term.NewSimpleLiteral(s)
	}
	lexical := unescapeLexical(s[1:end])
	rest := s[end+1:]
	switch {
	case strings.HasPrefix(rest, "@"):
		return term.NewLiteral(lexical, rest[1:], "")
	case strings.HasPrefix(rest, "^^<") && strings.HasSuffix(rest, ">"):
		return term.NewLiteral(lexical, "", rest[3:len(rest)-1])
	default:
		return term.NewSimpleLiteral(lexical)
	}
}

func unescapeLexical(s string) string {
	r := strings.NewReplacer(`\"`, `"`, `\\`, `\`, `\n`, "\n", `\r`, "\r")
	return r.Replace(s)
}
