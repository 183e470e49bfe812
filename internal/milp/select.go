package milp

import (
	"context"
	"fmt"

	"github.com/Delevati/occmosaic/internal/occerr"
	"github.com/Delevati/occmosaic/internal/types"
)

// Result is the final selection: chosen mosaics, the solver's objective
// value, and the incremental-coverage witness (spec §4.5's final
// paragraph).
type Result struct {
	Selected       []*types.MosaicCandidate
	ObjectiveValue float64
	Witness        []WitnessEntry
}

// Select builds the MILP for candidates, solves it with solver, and
// returns the chosen mosaics plus witness. An infeasible solve yields an
// empty Result, not an error (spec §4.5: "Failure modes: solver
// infeasible → no selection, emit empty result + diagnostic").
func Select(ctx context.Context, candidates []*types.MosaicCandidate, opts Options, solver Solver) (*Result, error) {
	build := BuildModel(candidates, opts)

	sol, err := solver.Solve(ctx, build.Model)
	if err != nil {
		return nil, occerr.Tag(occerr.ErrSolverFailure, "glpk", err)
	}

	switch sol.Status {
	case StatusInfeasible:
		return &Result{}, nil
	case StatusError:
		return nil, fmt.Errorf("%w: solver returned an error status", occerr.ErrSolverFailure)
	}

	var selected []*types.MosaicCandidate
	for j, v := range sol.VarValues {
		if j >= len(build.Mosaics) {
			break // linearized-coverage variant appends oⱼₖ vars after the mosaic vars
		}
		if v > 0.5 {
			selected = append(selected, build.Mosaics[j])
		}
	}

	if err := Validate(selected, opts); err != nil {
		return nil, occerr.Tag(occerr.ErrSolverFailure, "validate", err)
	}

	witness := Witness(selected, build, opts)

	return &Result{Selected: selected, ObjectiveValue: sol.ObjValue, Witness: witness}, nil
}
