package exec

import (
	"context"
	"fmt"
	"io"
	"runtime"
	"sync/atomic"

	gcnotifier "github.com/CAFxX/gcnotifier"
	opentracing "github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/sparqlgo/engine/algebra"
	"github.com/sparqlgo/engine/engine"
	"github.com/sparqlgo/engine/engine/errs"
	"github.com/sparqlgo/engine/results"
	"github.com/sparqlgo/engine/rowsource"
	"github.com/sparqlgo/engine/term"
)

// QueryForm is the result shape Execute produces for a planned rowsource
// tree. SPARQL's three query forms (spec §1, §3) share one relational plan
// all the way down; they diverge only in how the root rowsource's rows are
// consumed once execution reaches the top — spec §3's control-flow
// description puts it as the query-results object "driving the root
// rowsource one row at a time ... applying LIMIT/OFFSET and CONSTRUCT
// expansion", not as a distinct algebra operator.
type QueryForm int

const (
	FormSelect QueryForm = iota
	FormAsk
	FormConstruct
)

// Query bundles a planned rowsource with whatever extra its form needs:
// nothing for SELECT/ASK, a CONSTRUCT/DESCRIBE template for FormConstruct.
// The template reuses algebra.Pattern (Origin is meaningless here and
// ignored) since it is, syntactically, the same "three positions, each
// either a constant or a variable" shape as a triple pattern.
type Query struct {
	Form     QueryForm
	Plan     rowsource.RowSource
	Template []algebra.Pattern
}

// Execute drives q.Plan to completion and returns the results.ResultSet
// spec §4.7 describes. Two guards are threaded around the whole run, the
// way the teacher threads a context deadline and an opentracing span
// through one query's execution (confirmed via server/handler.go's
// ComQuery and its own handler_linux_test.go use of opentracing.NoopTracer):
// an opentracing.Span covering the call, and a soft memory ceiling enforced
// by CAFxX/gcnotifier — engine/config's own doc comment on
// SoftMemoryCeilingBytes names this package as where that setting is
// "consulted by the gcnotifier-based resource guard". Cancellation is
// polled between rows (spec §5), not preempted mid-row.
func Execute(ctx *engine.Context, q Query) (*results.ResultSet, error) {
	span, spanCtx := opentracing.StartSpanFromContext(ctx.Context, "sparql.Execute")
	defer span.Finish()

	guardCtx, cancel := context.WithCancel(spanCtx)
	defer cancel()

	guard := newMemoryGuard(ctx.Opts.SoftMemoryCeilingBytes, cancel)
	defer guard.stop()

	qctx := *ctx
	qctx.Context = guardCtx

	if err := q.Plan.Init(&qctx); err != nil {
		return nil, errors.Wrap(err, "exec: plan init")
	}
	defer func() {
		if err := q.Plan.Finish(&qctx); err != nil {
			qctx.Logger.WithError(err).Warn("exec: plan finish")
		}
	}()

	switch q.Form {
	case FormAsk:
		return executeAsk(&qctx, guard, q.Plan)
	case FormConstruct:
		return executeConstruct(&qctx, guard, q.Plan, q.Template)
	default:
		return executeSelect(&qctx, guard, q.Plan)
	}
}

// checkCancel translates a poll-time context error into
// errs.ErrResourceExhaustion when the memory guard is the one that fired,
// so a caller can tell a soft-ceiling abort apart from caller-initiated
// cancellation or a deadline.
func checkCancel(ctx *engine.Context, guard *memoryGuard) error {
	if err := ctx.Err(); err != nil {
		if guard.exceeded.Load() {
			return errs.ErrResourceExhaustion.New("soft memory ceiling of %d bytes exceeded", guard.ceiling)
		}
		return err
	}
	return nil
}

func executeSelect(ctx *engine.Context, guard *memoryGuard, rs rowsource.RowSource) (*results.ResultSet, error) {
	vars := rs.EnsureVariables().Variables()
	names := make([]string, len(vars))
	for i, v := range vars {
		names[i] = v.Name
	}

	var sols []results.Solution
	for {
		if err := checkCancel(ctx, guard); err != nil {
			return nil, err
		}
		row, err := rs.ReadRow(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "exec: select")
		}
		sol := make(results.Solution, len(vars))
		for _, v := range vars {
			val := row.Get(v.Offset)
			if val.IsUnbound() {
				continue
			}
			sol[v.Name] = val
		}
		sols = append(sols, sol)
	}
	return results.NewSelect(names, sols), nil
}

func executeAsk(ctx *engine.Context, guard *memoryGuard, rs rowsource.RowSource) (*results.ResultSet, error) {
	if err := checkCancel(ctx, guard); err != nil {
		return nil, err
	}
	_, err := rs.ReadRow(ctx)
	if err == io.EOF {
		return results.NewAsk(false), nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "exec: ask")
	}
	return results.NewAsk(true), nil
}

// executeConstruct drains rs and, for every solution it produces,
// instantiates template against that solution's bindings (spec §3's
// "CONSTRUCT expansion", invariant 9's soundness rule). Blank nodes written
// literally in the template are re-minted once per solution (tracked in a
// map reset for each row), so two solutions never share a constructed
// blank node's identity even though they share the template's label.
func executeConstruct(ctx *engine.Context, guard *memoryGuard, rs rowsource.RowSource, template []algebra.Pattern) (*results.ResultSet, error) {
	var out []results.Triple
	solIndex := 0
	for {
		if err := checkCancel(ctx, guard); err != nil {
			return nil, err
		}
		row, err := rs.ReadRow(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "exec: construct")
		}
		blanks := make(map[string]term.Term)
		for _, pat := range template {
			s, ok := instantiateTerm(pat.Subject, row, blanks, solIndex)
			if !ok || s.Kind() == term.KindLiteral {
				continue
			}
			p, ok := instantiateTerm(pat.Predicate, row, blanks, solIndex)
			if !ok || p.Kind() != term.KindIRI {
				continue
			}
			o, ok := instantiateTerm(pat.Object, row, blanks, solIndex)
			if !ok {
				continue
			}
			out = append(out, results.Triple{Subject: s, Predicate: p, Object: o})
		}
		solIndex++
	}
	return results.NewGraph(out), nil
}

// instantiateTerm resolves one template position against the current row.
// A constant position passes through unchanged, except a template blank
// node, which is rewritten to a fresh one scoped to solIndex the first time
// its label is seen for this row (and reused for the rest of the row's
// triples via blanks). A variable position reports ok=false when the row
// leaves it unbound: invariant 9 drops the whole triple rather than
// emitting one with a missing position.
func instantiateTerm(tv algebra.TermOrVar, row *rowsource.Row, blanks map[string]term.Term, solIndex int) (term.Term, bool) {
	if !tv.IsVar {
		if tv.Term.Kind() == term.KindBlankNode {
			id, _ := tv.Term.BlankNodeID()
			if fresh, ok := blanks[id]; ok {
				return fresh, true
			}
			fresh := term.NewBlankNode(fmt.Sprintf("c%d_%s", solIndex, id))
			blanks[id] = fresh
			return fresh, true
		}
		return tv.Term, true
	}
	val := row.Get(tv.Var.Offset)
	if val.IsUnbound() {
		return term.Term{}, false
	}
	return val, true
}

// memoryGuard watches the process's heap via CAFxX/gcnotifier, piggybacking
// the check on GC's own cadence rather than polling on a timer, and cancels
// the query once HeapAlloc passes ceiling. A non-positive ceiling disables
// the guard: stop is then a no-op and exceeded never flips.
type memoryGuard struct {
	ceiling  int64
	exceeded atomic.Bool
	notifier *gcnotifier.GCNotifier
	done     chan struct{}
}

func newMemoryGuard(ceiling int64, cancel context.CancelFunc) *memoryGuard {
	g := &memoryGuard{ceiling: ceiling}
	if ceiling <= 0 {
		return g
	}
	g.notifier = gcnotifier.New()
	g.done = make(chan struct{})
	go func() {
		for {
			select {
			case _, ok := <-g.notifier.AfterGC():
				if !ok {
					return
				}
				var ms runtime.MemStats
				runtime.ReadMemStats(&ms)
				if int64(ms.HeapAlloc) > ceiling {
					g.exceeded.Store(true)
					cancel()
					return
				}
			case <-g.done:
				return
			}
		}
	}()
	return g
}

func (g *memoryGuard) stop() {
	if g.notifier == nil {
		return
	}
	close(g.done)
	g.notifier.Close()
}
