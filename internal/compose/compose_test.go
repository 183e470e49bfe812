package compose

import (
	"testing"
	"time"

	"github.com/Delevati/occmosaic/internal/geom"
	"github.com/Delevati/occmosaic/internal/types"
	"github.com/stretchr/testify/require"
)

func mustTime(s string) *time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return &t
}

func bbox(left, bottom, right, top float64) *geom.BBox {
	return &geom.BBox{Left: left, Bottom: bottom, Right: right, Top: top}
}

func TestRun_SingleCentralTile_NoMosaic(t *testing.T) {
	// A lone central tile has nothing to grow with: §4.3's "keep iff it
	// added at least one complement" drops it.
	tiles := []*types.Tile{
		{
			Filename: "A.zip", Status: types.StatusAccepted, Classification: types.ClassCentral,
			Date: mustTime("2024-01-01"), Bounds: bbox(0, 0, 1, 1), CRS: geom.WGS84,
			GeographicCoverage: 0.95, ValidPixelsPercentage: 0.9, CloudCoverage: 0.05,
		},
	}
	mosaics := Run(tiles, Options{MaxDays: 10})
	require.Empty(t, mosaics)
}

func TestRun_CentralPlusComplement_GrowsMosaic(t *testing.T) {
	central := &types.Tile{
		Filename: "A.zip", Status: types.StatusAccepted, Classification: types.ClassCentral,
		Date: mustTime("2024-01-01"), Bounds: bbox(0, 0, 1, 1), CRS: geom.WGS84,
		GeographicCoverage: 0.5, ValidPixelsPercentage: 0.9, CloudCoverage: 0.05,
	}
	complement := &types.Tile{
		Filename: "B.zip", Status: types.StatusAccepted, Classification: types.ClassComplement,
		Date: mustTime("2024-01-03"), Bounds: bbox(0.5, 0, 1.5, 1), CRS: geom.WGS84,
		GeographicCoverage: 0.4, ValidPixelsPercentage: 0.8, CloudCoverage: 0.1,
	}

	mosaics := Run([]*types.Tile{central, complement}, Options{MaxDays: 10})
	require.Len(t, mosaics, 1)

	m := mosaics[0]
	require.Equal(t, GroupID("A", "A.zip"), m.GroupID)
	require.True(t, m.ContainsFilename("A.zip"))
	require.True(t, m.ContainsFilename("B.zip"))
	require.Greater(t, m.EstimatedCoverage, central.GeographicCoverage)
	require.Len(t, m.OverlapDetails, 1)
	require.Equal(t, "B.zip", m.OverlapDetails[0].OtherFilename)
	require.Equal(t, *central.Date, m.StartDate)
	require.Equal(t, *complement.Date, m.EndDate)
}

func TestRun_OutOfWindow_NoGrowth(t *testing.T) {
	central := &types.Tile{
		Filename: "A.zip", Status: types.StatusAccepted, Classification: types.ClassCentral,
		Date: mustTime("2024-01-01"), Bounds: bbox(0, 0, 1, 1), CRS: geom.WGS84,
		GeographicCoverage: 0.5, ValidPixelsPercentage: 0.9, CloudCoverage: 0.05,
	}
	farComplement := &types.Tile{
		Filename: "B.zip", Status: types.StatusAccepted, Classification: types.ClassComplement,
		Date: mustTime("2024-03-01"), Bounds: bbox(0.5, 0, 1.5, 1), CRS: geom.WGS84,
		GeographicCoverage: 0.4, ValidPixelsPercentage: 0.8, CloudCoverage: 0.1,
	}

	mosaics := Run([]*types.Tile{central, farComplement}, Options{MaxDays: 10})
	require.Empty(t, mosaics)
}

func TestRun_ComplementBucket_RequiresTwoOnSameDate(t *testing.T) {
	lone := &types.Tile{
		Filename: "C.zip", Status: types.StatusAccepted, Classification: types.ClassComplement,
		Date: mustTime("2024-02-01"), Bounds: bbox(0, 0, 1, 1), CRS: geom.WGS84,
		GeographicCoverage: 0.3, ValidPixelsPercentage: 0.8, CloudCoverage: 0.1,
	}
	mosaics := Run([]*types.Tile{lone}, Options{MaxDays: 10})
	require.Empty(t, mosaics)
}

func TestRun_ComplementBucket_SameDatePairGrows(t *testing.T) {
	first := &types.Tile{
		Filename: "C.zip", Status: types.StatusAccepted, Classification: types.ClassComplement,
		Date: mustTime("2024-02-01"), Bounds: bbox(0, 0, 1, 1), CRS: geom.WGS84,
		GeographicCoverage: 0.5, ValidPixelsPercentage: 0.9, CloudCoverage: 0.05,
	}
	second := &types.Tile{
		Filename: "D.zip", Status: types.StatusAccepted, Classification: types.ClassComplement,
		Date: mustTime("2024-02-01"), Bounds: bbox(0.5, 0, 1.5, 1), CRS: geom.WGS84,
		GeographicCoverage: 0.4, ValidPixelsPercentage: 0.7, CloudCoverage: 0.2,
	}

	mosaics := Run([]*types.Tile{first, second}, Options{MaxDays: 10})
	require.Len(t, mosaics, 1)

	m := mosaics[0]
	require.Equal(t, GroupID("B", "C.zip"), m.GroupID) // higher rank (first) becomes the bucket seed
	require.True(t, m.ContainsFilename("C.zip"))
	require.True(t, m.ContainsFilename("D.zip"))
}

func TestSortByRank_TiesBrokenByFilenameAscending(t *testing.T) {
	tiles := []*types.Tile{
		{Filename: "Z.zip", GeographicCoverage: 0.5, CloudCoverage: 0},
		{Filename: "A.zip", GeographicCoverage: 0.5, CloudCoverage: 0},
	}
	sortByRank(tiles)
	require.Equal(t, "A.zip", tiles[0].Filename)
	require.Equal(t, "Z.zip", tiles[1].Filename)
}

func TestRun_Ordering_HigherCoverageMosaicFirst(t *testing.T) {
	centralHigh := &types.Tile{
		Filename: "HIGH.zip", Status: types.StatusAccepted, Classification: types.ClassCentral,
		Date: mustTime("2024-01-01"), Bounds: bbox(0, 0, 1, 1), CRS: geom.WGS84,
		GeographicCoverage: 0.6, ValidPixelsPercentage: 0.95, CloudCoverage: 0.02,
	}
	compForHigh := &types.Tile{
		Filename: "HIGH2.zip", Status: types.StatusAccepted, Classification: types.ClassComplement,
		Date: mustTime("2024-01-02"), Bounds: bbox(0.5, 0, 1.5, 1), CRS: geom.WGS84,
		GeographicCoverage: 0.6, ValidPixelsPercentage: 0.95, CloudCoverage: 0.02,
	}
	centralLow := &types.Tile{
		Filename: "LOW.zip", Status: types.StatusAccepted, Classification: types.ClassCentral,
		Date: mustTime("2024-01-01"), Bounds: bbox(10, 10, 11, 11), CRS: geom.WGS84,
		GeographicCoverage: 0.3, ValidPixelsPercentage: 0.5, CloudCoverage: 0.3,
	}
	compForLow := &types.Tile{
		Filename: "LOW2.zip", Status: types.StatusAccepted, Classification: types.ClassComplement,
		Date: mustTime("2024-01-02"), Bounds: bbox(10.5, 10, 11.5, 11), CRS: geom.WGS84,
		GeographicCoverage: 0.2, ValidPixelsPercentage: 0.5, CloudCoverage: 0.3,
	}

	mosaics := Run([]*types.Tile{centralHigh, compForHigh, centralLow, compForLow}, Options{MaxDays: 10})
	require.Len(t, mosaics, 2)
	require.GreaterOrEqual(t, mosaics[0].EstimatedCoverage, mosaics[1].EstimatedCoverage)
}

func TestRun_DefaultsMaxDaysWhenUnset(t *testing.T) {
	central := &types.Tile{
		Filename: "A.zip", Status: types.StatusAccepted, Classification: types.ClassCentral,
		Date: mustTime("2024-01-01"), Bounds: bbox(0, 0, 1, 1), CRS: geom.WGS84,
		GeographicCoverage: 0.5, ValidPixelsPercentage: 0.9, CloudCoverage: 0.05,
	}
	complement := &types.Tile{
		Filename: "B.zip", Status: types.StatusAccepted, Classification: types.ClassComplement,
		Date: mustTime("2024-01-05"), Bounds: bbox(0.5, 0, 1.5, 1), CRS: geom.WGS84,
		GeographicCoverage: 0.4, ValidPixelsPercentage: 0.8, CloudCoverage: 0.1,
	}

	mosaics := Run([]*types.Tile{central, complement}, Options{})
	require.Len(t, mosaics, 1)
}
