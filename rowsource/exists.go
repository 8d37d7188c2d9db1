package rowsource

import (
	"io"

	"github.com/sparqlgo/engine/engine"
	"github.com/sparqlgo/engine/expr"
)

// hasAnyRow drives rs through Init/ReadRow(one row)/Finish, answering
// "does this rowsource produce at least one row at all" with no regard for
// any outer row — correct for Join/LeftJoin/Union/Diff's own HasAnyRow
// (there is no outer row to reconcile against; any row it produces is the
// answer), but NOT what EXISTS/NOT EXISTS needs (see hasCompatibleRow).
func hasAnyRow(ctx *engine.Context, rs RowSource) (bool, error) {
	if err := rs.Init(ctx); err != nil {
		return false, err
	}
	_, err := rs.ReadRow(ctx)
	finishErr := rs.Finish(ctx)
	if err != nil {
		if err == io.EOF {
			if finishErr != nil {
				return false, finishErr
			}
			return false, nil
		}
		return false, err
	}
	if finishErr != nil {
		return false, finishErr
	}
	return true, nil
}

// hasCompatibleRow answers EXISTS/NOT EXISTS's actual question (spec
// §4.8): is there some row of rs compatible with outerRow — i.e. does
// joining the current solution mapping with the inner pattern's solutions
// yield at least one compatible mapping? Unlike Diff's drop test, a
// disjoint-domain inner row counts as compatible (no shared offset can
// disagree), so this only rejects on genuine conflict, never on lack of
// overlap. It is wrong to stop at "the first row produced" the way
// hasAnyRow does: a correlated inner pattern can legitimately produce
// several rows before one happens to agree with outerRow on every shared
// variable.
func hasCompatibleRow(ctx *engine.Context, rs RowSource, outerRow *Row) (bool, error) {
	if err := rs.Init(ctx); err != nil {
		return false, err
	}
	found := false
	var loopErr error
	for {
		row, err := rs.ReadRow(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			loopErr = err
			break
		}
		if compatible, _ := rowCompatible(outerRow, row); compatible {
			found = true
			break
		}
	}
	finishErr := rs.Finish(ctx)
	if loopErr != nil {
		return false, loopErr
	}
	if finishErr != nil {
		return false, finishErr
	}
	return found, nil
}

// ExistsBridge implements expr.ExistsRunner (spec §4.8): it builds a fresh
// RowSource for Pattern (optionally pre-seeded via Seedable with the outer
// row's bindings, an optimization — see Seed's doc comment), then reports
// whether any row it produces is compatible with the outer row currently
// being evaluated. Built by engine/exec's planner at the point it compiles
// an EXISTS/NOT EXISTS filter, one bridge per occurrence since the bound
// copy depends on the specific outer row.
type ExistsBridge struct {
	// Build constructs a fresh RowSource to run for this evaluation,
	// applying Seed (if the planner found a non-empty correlate.Set) with
	// ctx.Row's bindings before returning it. It is a func rather than a
	// stored RowSource because that seed input differs on every call.
	Build func(ctx *expr.Context) (RowSource, error)
}

func (b *ExistsBridge) HasAnyRow(ctx *expr.Context) (bool, error) {
	rs, err := b.Build(ctx)
	if err != nil {
		return false, err
	}
	return hasCompatibleRow(ctx.Engine, rs, ctx.Row)
}
