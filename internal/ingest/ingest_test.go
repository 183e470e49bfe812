package ingest

import (
	"testing"

	"github.com/Delevati/occmosaic/internal/types"
	"github.com/stretchr/testify/require"
)

func TestSuitability_RejectsNoValidPixels(t *testing.T) {
	tile := &types.Tile{GeographicCoverage: 0.5, ValidPixelsPercentage: 0, CloudCoverage: 0.1}
	reason, ok := suitability(tile)
	require.False(t, ok)
	require.Equal(t, types.ReasonNoValidPixels, reason)
}

func TestSuitability_RejectsLowGeographicCoverage(t *testing.T) {
	tile := &types.Tile{GeographicCoverage: 0.01, ValidPixelsPercentage: 1, CloudCoverage: 0.1}
	reason, ok := suitability(tile)
	require.False(t, ok)
	require.Equal(t, types.ReasonLowGeographic, reason)
}

func TestSuitability_RejectsCloudOverMax(t *testing.T) {
	tile := &types.Tile{GeographicCoverage: 0.5, ValidPixelsPercentage: 1, EffectiveCoverage: 0.5, CloudCoverage: 0.41}
	reason, ok := suitability(tile)
	require.False(t, ok)
	require.Equal(t, types.ReasonCloudOverMax, reason)
}

func TestSuitability_AcceptsCloudExactlyAtThreshold(t *testing.T) {
	// spec §8: cloud_coverage == 0.4 exactly is accepted (strict > threshold).
	tile := &types.Tile{GeographicCoverage: 0.5, ValidPixelsPercentage: 1, EffectiveCoverage: 0.5, CloudCoverage: 0.4}
	_, ok := suitability(tile)
	require.True(t, ok)
}

func TestSuitability_AcceptsHealthyTile(t *testing.T) {
	tile := &types.Tile{GeographicCoverage: 0.95, ValidPixelsPercentage: 0.9, EffectiveCoverage: 0.855, CloudCoverage: 0.05}
	_, ok := suitability(tile)
	require.True(t, ok)
}

func TestGeographicCoverageFraction_ClampsUnitMismatch(t *testing.T) {
	// overlapArea is m² (projected UTM), aoiAreaWGS84 is degrees² — for any
	// realistic AOI the raw quotient vastly exceeds 1.
	const aoiAreaWGS84 = 1.0 // 1 deg² ~= 1.239e10 m²
	got := geographicCoverageFraction(1.239e10, aoiAreaWGS84)
	require.Equal(t, 1.0, got)
}

func TestGeographicCoverageFraction_PassesThroughFractionalOverlap(t *testing.T) {
	got := geographicCoverageFraction(0.4, 1.0)
	require.InDelta(t, 0.4, got, 1e-9)
}
