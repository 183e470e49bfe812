package milp

import (
	"fmt"

	"github.com/Delevati/occmosaic/internal/types"
)

// Validate re-checks the MILP's hard constraints against a selected set
// of mosaics after the solver returns, rather than trusting the solver's
// assignment blindly. (The `occmosaic verify` command does not call this;
// it re-derives coverage ratios instead.) A mismatch is a programming
// error in model assembly, not a data problem, so Select treats it as
// fatal and tags it occerr.ErrSolverFailure.
func Validate(selected []*types.MosaicCandidate, opts Options) error {
	if len(selected) > KMax {
		return fmt.Errorf("milp: selection violates cardinality: %d > %d", len(selected), KMax)
	}

	tileUse := make(map[string]int)
	for _, m := range selected {
		if m.MaxCloudCoverage() > CloudMax {
			return fmt.Errorf("milp: selected mosaic %s violates cloud veto: %.4f > %.2f", m.GroupID, m.MaxCloudCoverage(), CloudMax)
		}
		for _, t := range m.Images {
			tileUse[t.Filename]++
		}
	}
	for filename, count := range tileUse {
		if count > 1 {
			return fmt.Errorf("milp: tile exclusivity violated: %s used by %d selected mosaics", filename, count)
		}
	}

	switch opts.ConstraintVariant {
	case PairDisjunction:
		for i := 0; i < len(selected); i++ {
			for j := i + 1; j < len(selected); j++ {
				ijk := computeIjk(selected[i], selected[j], opts)
				if ijk < ThetaOverlap {
					return fmt.Errorf("milp: pair-disjunction violated between %s and %s (Ijk=%.4f)", selected[i].GroupID, selected[j].GroupID, ijk)
				}
			}
		}
	case LinearizedCoverageFloor:
		// Re-derive Σ Aⱼ·yⱼ − Σ Iⱼₖ·oⱼₖ over the selected set directly:
		// since every selected mosaic has yⱼ = 1, the linking variable
		// oⱼₖ = yⱼ·yₖ collapses to 1 for every selected pair, matching
		// the floor row model.go:229 builds.
		coverage := 0.0
		for _, m := range selected {
			coverage += m.PieCoverageRatio
		}
		for i := 0; i < len(selected); i++ {
			for j := i + 1; j < len(selected); j++ {
				coverage -= computeIjk(selected[i], selected[j], opts)
			}
		}
		const coverageFloorTolerance = 1e-9
		if coverage < CMin-coverageFloorTolerance {
			return fmt.Errorf("milp: coverage floor violated: %.6f < %.2f", coverage, CMin)
		}
	}

	return nil
}
