package milp

import (
	"math"
	"testing"

	"github.com/Delevati/occmosaic/internal/types"
	"github.com/stretchr/testify/require"
)

func mosaic(groupID string, pieRatio, quality, maxCloud float64, images ...string) *types.MosaicCandidate {
	tiles := make([]*types.Tile, len(images))
	for i, f := range images {
		tiles[i] = &types.Tile{Filename: f, CloudCoverage: maxCloud}
	}
	return &types.MosaicCandidate{
		GroupID:          groupID,
		Images:           tiles,
		AvgQualityFactor: quality,
		AreaMetrics:      types.AreaMetrics{PieCoverageRatio: pieRatio, PieCoverageArea: pieRatio * 100},
	}
}

func TestBuildModel_CloudVetoFixesVarToZero(t *testing.T) {
	m1 := mosaic("m1", 0.5, 1, 0.5, "a.zip") // cloud 0.5 > CloudMax 0.40
	build := BuildModel([]*types.MosaicCandidate{m1}, DefaultOptions())
	require.Equal(t, Bound{0, 0}, build.Model.VarBound[0])
}

func TestBuildModel_CardinalityRow(t *testing.T) {
	var candidates []*types.MosaicCandidate
	for i := 0; i < 3; i++ {
		candidates = append(candidates, mosaic(string(rune('a'+i)), 0.3, 1, 0.1, "t"+string(rune('a'+i))+".zip"))
	}
	build := BuildModel(candidates, DefaultOptions())
	require.Equal(t, atMost(KMax), build.Model.Rows[0].Bound)
	require.Len(t, build.Model.Rows[0].Terms, 3)
}

func TestBuildModel_TileExclusivityRow(t *testing.T) {
	m1 := mosaic("m1", 0.3, 1, 0.1, "shared.zip", "only1.zip")
	m2 := mosaic("m2", 0.3, 1, 0.1, "shared.zip", "only2.zip")
	build := BuildModel([]*types.MosaicCandidate{m1, m2}, DefaultOptions())

	var foundExclusivity bool
	for _, row := range build.Model.Rows {
		if len(row.Terms) == 2 && row.Bound == atMost(1) {
			foundExclusivity = true
		}
	}
	require.True(t, foundExclusivity)
}

func TestBuildModel_PairDisjunction_LowOverlapAddsRow(t *testing.T) {
	m1 := mosaic("m1", 0.2, 1, 0.1, "a.zip")
	m2 := mosaic("m2", 0.2, 1, 0.1, "b.zip")
	build := BuildModel([]*types.MosaicCandidate{m1, m2}, DefaultOptions())

	var found bool
	for _, row := range build.Model.Rows {
		if len(row.Terms) == 2 && row.Terms[0].Var == 0 && row.Terms[1].Var == 1 {
			found = true
		}
	}
	require.True(t, found, "expected a disjunction row between the two low-overlap mosaics")
}

func TestBuildModel_DeterministicVariableOrder(t *testing.T) {
	m1 := mosaic("zzz", 0.2, 1, 0.1, "a.zip")
	m2 := mosaic("aaa", 0.2, 1, 0.1, "b.zip")
	build := BuildModel([]*types.MosaicCandidate{m1, m2}, DefaultOptions())
	require.Equal(t, "aaa", build.Mosaics[0].GroupID)
	require.Equal(t, "zzz", build.Mosaics[1].GroupID)
}

func TestBuildModel_LinearizedCoverageFloor_AddsLinkingVars(t *testing.T) {
	m1 := mosaic("m1", 0.5, 1, 0.1, "a.zip")
	m2 := mosaic("m2", 0.5, 1, 0.1, "b.zip")
	opts := Options{IjkVariant: IjkSharedImageRatio, ConstraintVariant: LinearizedCoverageFloor, AOIArea: 100}
	build := BuildModel([]*types.MosaicCandidate{m1, m2}, opts)
	require.Equal(t, 3, build.Model.NumVars) // 2 mosaics + 1 linking var
}

func TestWitness_AccumulatesMarginalCoverage(t *testing.T) {
	m1 := mosaic("m1", 0.6, 1, 0.1, "a.zip")
	m2 := mosaic("m2", 0.3, 1, 0.1, "b.zip")
	build := BuildModel([]*types.MosaicCandidate{m1, m2}, DefaultOptions())
	build.PairIjk[[2]int{0, 1}] = 0.1

	w := Witness([]*types.MosaicCandidate{m1, m2}, build, DefaultOptions())
	require.Len(t, w, 2)
	require.InDelta(t, 0.6, w[0].RunningCoverage, 1e-9)
	require.InDelta(t, 0.6+math.Max(0, 0.3-0.1), w[1].RunningCoverage, 1e-9)
}

func TestValidate_RejectsCardinalityViolation(t *testing.T) {
	var selected []*types.MosaicCandidate
	for i := 0; i < KMax+1; i++ {
		selected = append(selected, mosaic(string(rune('a'+i)), 0.1, 1, 0.1, "t"+string(rune('a'+i))+".zip"))
	}
	err := Validate(selected, DefaultOptions())
	require.Error(t, err)
}

func TestValidate_RejectsExclusivityViolation(t *testing.T) {
	m1 := mosaic("m1", 0.3, 1, 0.1, "shared.zip")
	m2 := mosaic("m2", 0.3, 1, 0.1, "shared.zip")
	err := Validate([]*types.MosaicCandidate{m1, m2}, DefaultOptions())
	require.Error(t, err)
}

func TestValidate_AcceptsCleanSelection(t *testing.T) {
	m1 := mosaic("m1", 0.3, 1, 0.1, "a.zip")
	err := Validate([]*types.MosaicCandidate{m1}, DefaultOptions())
	require.NoError(t, err)
}

func TestValidate_LinearizedCoverageFloor_RejectsBelowFloor(t *testing.T) {
	opts := Options{IjkVariant: IjkConservative, ConstraintVariant: LinearizedCoverageFloor}
	m1 := mosaic("m1", 0.5, 1, 0.1, "a.zip")
	m2 := mosaic("m2", 0.5, 1, 0.1, "b.zip")
	// coverage = 0.5 + 0.5 - min(0.5, 0.5) = 0.5 < CMin (0.85).
	err := Validate([]*types.MosaicCandidate{m1, m2}, opts)
	require.Error(t, err)
	require.Contains(t, err.Error(), "coverage floor")
}

func TestValidate_LinearizedCoverageFloor_AcceptsAboveFloor(t *testing.T) {
	opts := Options{IjkVariant: IjkConservative, ConstraintVariant: LinearizedCoverageFloor}
	m1 := mosaic("m1", 0.9, 1, 0.1, "a.zip")
	// coverage = 0.9, no pairs to subtract from, >= CMin (0.85).
	err := Validate([]*types.MosaicCandidate{m1}, opts)
	require.NoError(t, err)
}
