package milp

import (
	"sort"

	"github.com/Delevati/occmosaic/internal/types"
)

// WitnessEntry is one step of the incremental-coverage witness spec
// §4.5's final paragraph describes: selected mosaics in area-descending
// order, each contributing its marginal (non-overlapping-with-already-
// selected) coverage.
type WitnessEntry struct {
	GroupID           string
	Coverage          float64 // Aⱼ
	MarginalCoverage  float64 // this step's contribution to Cᵣ
	RunningCoverage   float64 // Cᵣ after this step
}

// Witness computes the deterministic witness: sort selected by Aⱼ
// descending (ties broken by GroupID ascending, spec §5), then
// accumulate Cᵣ using the build's Iⱼₖ table.
func Witness(selected []*types.MosaicCandidate, build *BuildResult, opts Options) []WitnessEntry {
	if len(selected) == 0 {
		return nil
	}

	indexOf := make(map[string]int, len(build.Mosaics))
	for i, m := range build.Mosaics {
		indexOf[m.GroupID] = i
	}

	ordered := make([]*types.MosaicCandidate, len(selected))
	copy(ordered, selected)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].PieCoverageRatio != ordered[j].PieCoverageRatio {
			return ordered[i].PieCoverageRatio > ordered[j].PieCoverageRatio
		}
		return ordered[i].GroupID < ordered[j].GroupID
	})

	entries := make([]WitnessEntry, 0, len(ordered))
	var running float64
	var alreadySelected []int

	for i, m := range ordered {
		a := m.PieCoverageRatio
		var marginal float64
		if i == 0 {
			marginal = a
		} else {
			j := indexOf[m.GroupID]
			var sumIjk float64
			for _, k := range alreadySelected {
				sumIjk += ijkBetween(build, j, k, opts)
			}
			marginal = a - sumIjk
			if marginal < 0 {
				marginal = 0
			}
		}
		running += marginal
		entries = append(entries, WitnessEntry{
			GroupID:          m.GroupID,
			Coverage:         a,
			MarginalCoverage: marginal,
			RunningCoverage:  running,
		})
		alreadySelected = append(alreadySelected, indexOf[m.GroupID])
	}
	return entries
}

func ijkBetween(build *BuildResult, j, k int, opts Options) float64 {
	if j == k {
		return 0
	}
	a, b := j, k
	if a > b {
		a, b = b, a
	}
	if v, ok := build.PairIjk[[2]int{a, b}]; ok {
		return v
	}
	return computeIjk(build.Mosaics[j], build.Mosaics[k], opts)
}
