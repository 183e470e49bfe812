package cmd

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/Delevati/occmosaic/internal/geom"
	"github.com/Delevati/occmosaic/internal/milp"
	"github.com/Delevati/occmosaic/internal/occerr"
	"github.com/Delevati/occmosaic/internal/persist"
	"github.com/Delevati/occmosaic/internal/types"
	"github.com/lukpank/go-glpk/glpk"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func TestExitCodeFor(t *testing.T) {
	require.Equal(t, 0, exitCodeFor(nil))
	require.Equal(t, 2, exitCodeFor(occerr.ErrBadInput))
	require.Equal(t, 3, exitCodeFor(occerr.ErrSolverFailure))
	require.Equal(t, 3, exitCodeFor(occerr.ErrInfeasible))
	require.Equal(t, 1, exitCodeFor(errors.New("unexpected")))
}

func TestGlpkVerboseLevel(t *testing.T) {
	viper.Reset()
	viper.Set("verbose", false)
	require.Equal(t, glpk.MSG_OFF, glpkVerboseLevel())

	viper.Set("verbose", true)
	require.Equal(t, glpk.MSG_ALL, glpkVerboseLevel())
	viper.Reset()
}

func TestCatalogEntries(t *testing.T) {
	tiles := []*types.Tile{
		{Filename: "a.zip", CloudCoverage: 0.1, ValidPixelsPercentage: 0.9},
		{Filename: "b.zip", CloudCoverage: 0.5, ValidPixelsPercentage: 0.8},
	}
	entries := catalogEntries(tiles)
	require.Len(t, entries, 2)
	require.Equal(t, "a.zip", entries[0].Filename)
	require.InDelta(t, 0.9*0.9, entries[0].QualityFactor, 1e-9)
	require.Equal(t, "b.zip", entries[1].Filename)
	require.InDelta(t, 0.5*0.8, entries[1].QualityFactor, 1e-9)
}

func TestFirstTileCRS(t *testing.T) {
	fallback := geom.WGS84
	require.Equal(t, fallback, firstTileCRS(nil, fallback))

	withoutBounds := []*types.Tile{{Filename: "a.zip"}}
	require.Equal(t, fallback, firstTileCRS(withoutBounds, fallback))

	utm := geom.CRS("EPSG:32723")
	withBounds := []*types.Tile{
		{Filename: "a.zip"},
		{Filename: "b.zip", Bounds: &geom.BBox{Left: 0, Bottom: 0, Right: 1, Top: 1}, CRS: utm},
	}
	require.Equal(t, utm, firstTileCRS(withBounds, fallback))
}

func TestWriteCatalogArtifact(t *testing.T) {
	dir := t.TempDir()
	cat, err := persist.OpenCatalog(filepath.Join(dir, "catalog.sqlite"))
	require.NoError(t, err)
	defer cat.Close()

	require.NoError(t, cat.WriteTile(persist.TileRecord{Filename: "accepted.zip", Status: "accepted", CloudCoverage: 0.2, ValidPixelsPercent: 0.8}))
	require.NoError(t, cat.WriteTile(persist.TileRecord{Filename: "rejected.zip", Status: "rejected"}))
	require.NoError(t, cat.Flush())

	outDir := t.TempDir()
	require.NoError(t, writeCatalogArtifact(cat, outDir))

	params, err := persist.ReadOptimizationParameters(filepath.Join(outDir, "optimization_parameters.json"))
	require.NoError(t, err)
	require.Len(t, params.ImageCatalog, 1)
	require.Equal(t, "accepted.zip", params.ImageCatalog[0].Filename)
	require.Empty(t, params.MosaicGroups)
}

func TestWriteSelectionResultAndLog(t *testing.T) {
	outDir := t.TempDir()

	m := &types.MosaicCandidate{
		GroupID:   "g1",
		BaseImage: &types.Tile{Filename: "base.zip"},
		Images:    []*types.Tile{{Filename: "base.zip"}},
	}
	result := &milp.Result{
		Selected:       []*types.MosaicCandidate{m},
		ObjectiveValue: 1.234567,
		Witness: []milp.WitnessEntry{
			{GroupID: "g1", Coverage: 0.5, MarginalCoverage: 0.5, RunningCoverage: 0.5},
		},
	}

	require.NoError(t, writeSelectionResult(outDir, result))
	params, err := persist.ReadOptimizationParameters(filepath.Join(outDir, "selection.json"))
	require.NoError(t, err)
	require.Len(t, params.MosaicGroups, 1)
	require.Equal(t, "g1", params.MosaicGroups[0].GroupID)

	require.NoError(t, writeSelectionLog(outDir, milp.DefaultOptions(), result))
	logBytes, err := os.ReadFile(filepath.Join(outDir, "solver.log"))
	require.NoError(t, err)
	logContent := string(logBytes)
	require.Contains(t, logContent, "objective_value: 1.234567")
	require.Contains(t, logContent, "selected_count: 1")
	require.Contains(t, logContent, "witness: group_id=g1")
}
