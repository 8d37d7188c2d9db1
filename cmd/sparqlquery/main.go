// Command sparqlquery is a thin driver around engine/exec: it reads a
// pre-planned JSON query document (document.go), loads whatever N-Triples
// files it (or -D/-G) name as its default/named graphs, runs it through
// engine/exec.Execute, and writes the resulting results.ResultSet out in
// one of the formats the results package knows. Its command tree and
// exit-code plumbing (exit.go) are grounded on the pack's own cobra-based
// CLI (roach88-nysm/brutalist/internal/cli): a root command, a RunE that
// returns an *ExitError, a single os.Exit(GetExitCode(err)) at main().
package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cast"
	"github.com/spf13/cobra"

	"github.com/sparqlgo/engine/algebra"
	"github.com/sparqlgo/engine/engine"
	"github.com/sparqlgo/engine/engine/config"
	"github.com/sparqlgo/engine/engine/exec"
	"github.com/sparqlgo/engine/results"
)

func main() {
	root := newRootCommand()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(GetExitCode(err))
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "sparqlquery",
		Short:         "Run a pre-planned SPARQL algebra query against N-Triples data",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.AddCommand(newQueryCommand())
	return cmd
}

// queryOptions mirrors spec §6's CLI surface: -e/-i select the query
// document, -D/-G add dataset files beyond whatever the document's own
// default_graph/named_graphs already list, -r/-o pick the result encoding
// and destination, --explain logs the planned algebra tree before running
// it, and --store-results additionally writes a copy of the result set to
// a second file (so a later run can compare.Compare the two).
type queryOptions struct {
	exprDoc      string
	inputFile    string
	dataFiles    []string
	namedGraphs  []string
	format       string
	output       string
	explain      bool
	storeResults string
	configFile   string
	softCeiling  string
	maxDiffs     int
}

func newQueryCommand() *cobra.Command {
	opts := &queryOptions{}

	cmd := &cobra.Command{
		Use:           "query",
		Short:         "Execute a JSON query document",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.exprDoc, "expr", "e", "", "inline JSON query document")
	flags.StringVarP(&opts.inputFile, "input", "i", "", "path to a JSON query document")
	flags.StringArrayVarP(&opts.dataFiles, "data", "D", nil, "N-Triples file to load into the default graph (repeatable)")
	flags.StringArrayVarP(&opts.namedGraphs, "named-graph", "G", nil, "iri=path N-Triples file to load as a named graph (repeatable)")
	flags.StringVarP(&opts.format, "results-format", "r", "json", "result format: xml, json, csv, tsv, rdf")
	flags.StringVarP(&opts.output, "output", "o", "", "output file path (default stdout)")
	flags.BoolVar(&opts.explain, "explain", false, "log the planned algebra tree before executing")
	flags.StringVar(&opts.storeResults, "store-results", "", "also write the result set to this path, for later comparison")
	flags.StringVar(&opts.configFile, "config", "", "YAML config file overlaying engine/config.Options")
	flags.StringVar(&opts.softCeiling, "soft-memory-ceiling", "", "abort the query once heap use passes this many bytes")
	flags.IntVar(&opts.maxDiffs, "max-differences", 0, "cap the diff count compare.Compare reports (0 keeps the config default)")

	return cmd
}

func runQuery(cmd *cobra.Command, opts *queryOptions) error {
	raw, err := loadDocumentBytes(opts)
	if err != nil {
		return WrapExitError(ExitParseError, "reading query document", err)
	}

	doc, err := ParseDocument(raw)
	if err != nil {
		return WrapExitError(ExitParseError, "parsing query document", err)
	}
	if err := spliceDataset(doc, opts); err != nil {
		return WrapExitError(ExitParseError, "parsing -G named-graph flag", err)
	}

	format, err := results.DetectFormat(opts.format)
	if err != nil {
		return WrapExitError(ExitParseError, "resolving result format", err)
	}

	root, q, _, err := doc.Build()
	if err != nil {
		return WrapExitError(ExitParseError, "building query plan", err)
	}

	ectx, err := buildContext(opts)
	if err != nil {
		return WrapExitError(ExitIOError, "loading engine config", err)
	}

	if opts.explain {
		ectx.Logger.Infof("explain:\n%s", explainTree(root))
	}

	rs, err := exec.Execute(ectx, q)
	if err != nil {
		return WrapExitError(ExitQueryFailure, "executing query", err)
	}

	out := cmd.OutOrStdout()
	if opts.output != "" {
		f, err := os.Create(opts.output)
		if err != nil {
			return WrapExitError(ExitIOError, "opening output file", err)
		}
		defer f.Close()
		out = f
	}
	if err := rs.Write(out, format); err != nil {
		return WrapExitError(ExitIOError, "writing results", err)
	}

	if opts.storeResults != "" {
		sf, err := os.Create(opts.storeResults)
		if err != nil {
			return WrapExitError(ExitIOError, "opening --store-results file", err)
		}
		defer sf.Close()
		if err := rs.Write(sf, format); err != nil {
			return WrapExitError(ExitIOError, "writing --store-results file", err)
		}
	}
	return nil
}

// loadDocumentBytes resolves -e/-i (mutually exclusive; -e wins if both are
// set) into the raw document bytes.
func loadDocumentBytes(opts *queryOptions) ([]byte, error) {
	switch {
	case opts.exprDoc != "":
		return []byte(opts.exprDoc), nil
	case opts.inputFile != "":
		return os.ReadFile(opts.inputFile)
	default:
		return nil, fmt.Errorf("one of -e/-i is required")
	}
}

// spliceDataset appends -D/-G onto doc's own dataset fields, so a caller
// can point an otherwise-complete document at data without editing it.
// -G takes "iri=path"; the same iri may repeat to load several files into
// one named graph.
func spliceDataset(doc *jsonDocument, opts *queryOptions) error {
	doc.DefaultGraph = append(doc.DefaultGraph, opts.dataFiles...)
	if len(opts.namedGraphs) == 0 {
		return nil
	}
	if doc.NamedGraphs == nil {
		doc.NamedGraphs = make(map[string][]string)
	}
	for _, spec := range opts.namedGraphs {
		iri, path, ok := strings.Cut(spec, "=")
		if !ok {
			return fmt.Errorf("expected iri=path, got %q", spec)
		}
		doc.NamedGraphs[iri] = append(doc.NamedGraphs[iri], path)
	}
	return nil
}

// buildContext resolves engine/config.Options the way spec §6 lays out:
// DefaultOptions, overlaid by --config's YAML file, overlaid by the
// process environment (config.FromEnv), overlaid last by any CLI flags the
// caller actually set so a one-off flag never needs a throwaway config
// file. --soft-memory-ceiling is parsed leniently with spf13/cast so a
// caller can pass "134217728" or a value sourced from an untyped config
// map without this command needing its own strconv path.
func buildContext(opts *queryOptions) (*engine.Context, error) {
	o := config.DefaultOptions()
	if opts.configFile != "" {
		var err error
		o, err = config.FromYAMLFile(o, opts.configFile)
		if err != nil {
			return nil, err
		}
	}
	o = config.FromEnv(o)

	if opts.softCeiling != "" {
		o.SoftMemoryCeilingBytes = cast.ToInt64(opts.softCeiling)
	}
	if opts.maxDiffs > 0 {
		o.MaxDifferences = opts.maxDiffs
	}

	ctx := engine.NewContext(context.Background(), o)
	ctx.Logger.Logger.SetLevel(logrus.InfoLevel)
	return ctx, nil
}

// explainTree renders the planned algebra tree as indented operator names,
// depth-first pre-order, matching algebra.Walk's own traversal order.
func explainTree(n *algebra.Node) string {
	var b strings.Builder
	writeExplainNode(&b, n, 0)
	return b.String()
}

func writeExplainNode(b *strings.Builder, n *algebra.Node, depth int) {
	if n == nil {
		return
	}
	fmt.Fprintf(b, "%s%s\n", strings.Repeat("  ", depth), opName(n.Op))
	switch n.Op {
	case algebra.OpJoin, algebra.OpLeftJoin, algebra.OpUnion, algebra.OpDiff:
		writeExplainNode(b, &n.Left, depth+1)
		writeExplainNode(b, &n.Right, depth+1)
	default:
		if n.Child != nil {
			writeExplainNode(b, n.Child, depth+1)
		}
	}
}

func opName(op algebra.Op) string {
	names := [...]string{
		"BGP", "Join", "LeftJoin", "Filter", "Union", "Diff", "Project",
		"Extend", "OrderBy", "Distinct", "Reduced", "Slice", "Group",
		"Graph", "ToList", "Service", "Dataset",
	}
	if int(op) < len(names) {
		return names[op]
	}
	return "Unknown"
}
