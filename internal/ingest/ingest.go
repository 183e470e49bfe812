package ingest

import (
	"fmt"
	"math"
	"path/filepath"

	"github.com/Delevati/occmosaic/internal/geom"
	"github.com/Delevati/occmosaic/internal/raster"
	"github.com/Delevati/occmosaic/internal/types"
)

// Suitability thresholds, spec §4.2 step 6.
const (
	validPixelsEpsilon = 1e-6
	minGeographic      = 0.02
	maxCloud           = 0.40
	centralThreshold   = 0.30
)

// IngestBundle runs C2 end to end for one bundle: extraction, metadata
// parsing, coverage/cloud statistics, suitability, classification. It
// always returns a non-nil Tile — rejections and per-tile errors are
// recorded on the Tile itself (spec §7's "per-item errors are caught at
// the stage boundary and recorded" policy) rather than returned as a Go
// error. The returned error is always nil: any extraction failure,
// including an unwritable scratch root, is recorded on the Tile as a
// missing-artifact error.
func IngestBundle(bundlePath string, aoiWGS84 *geom.Polygon, scratchRoot string) (*types.Tile, error) {
	filename := filepath.Base(bundlePath)
	tile := &types.Tile{Filename: filename}

	bundle, err := Extract(bundlePath, scratchRoot)
	if err != nil {
		tile.Status = types.StatusError
		tile.Reason = types.ReasonMissingArtifact
		return tile, nil
	}
	defer bundle.Cleanup()

	tile.TCIPath = bundle.TCIPath
	tile.CloudMaskPath = bundle.CloudMaskPath

	date, _ := ExtractDate(bundle.MetadataPath, filename)
	tile.Date = date
	tile.Orbit = ExtractOrbit(filename)
	tile.MGRSTile, tile.ProcessingBaseline = extractOptionalMetadata(bundle.MetadataPath)

	aoiAreaWGS84, err := aoiWGS84.Area()
	if err != nil || aoiAreaWGS84 <= 0 {
		tile.Status = types.StatusError
		tile.Reason = types.ReasonBadRaster
		return tile, nil
	}

	geoCov, validPct, bounds, crs, err := computeTCIStats(bundle.TCIPath, aoiWGS84, aoiAreaWGS84)
	if err != nil {
		tile.Status = types.StatusError
		tile.Reason = types.ReasonReprojectFailure
		return tile, nil
	}
	tile.GeographicCoverage = geoCov
	tile.ValidPixelsPercentage = validPct
	tile.EffectiveCoverage = geoCov * validPct
	tile.Bounds = &bounds
	tile.CRS = crs

	tile.CloudCoverage = computeCloudCoverage(bundle.CloudMaskPath, aoiWGS84)

	if reason, ok := suitability(tile); !ok {
		tile.Status = types.StatusRejected
		tile.Reason = reason
		return tile, nil
	}

	tile.Status = types.StatusAccepted
	if tile.EffectiveCoverage >= centralThreshold {
		tile.Classification = types.ClassCentral
	} else {
		tile.Classification = types.ClassComplement
	}
	return tile, nil
}

// suitability implements spec §4.2 step 6's rejection rules.
func suitability(t *types.Tile) (types.RejectReason, bool) {
	switch {
	case t.ValidPixelsPercentage <= validPixelsEpsilon:
		return types.ReasonNoValidPixels, false
	case t.GeographicCoverage < minGeographic:
		return types.ReasonLowGeographic, false
	case t.EffectiveCoverage < 0.5*minGeographic:
		return types.ReasonLowEffective, false
	case t.CloudCoverage > maxCloud:
		return types.ReasonCloudOverMax, false
	}
	return "", true
}

// computeTCIStats implements spec §4.2 step 4: read the TCI raster's CRS,
// reproject the AOI into it, and compute geographic_coverage and
// valid_pixels_percentage.
func computeTCIStats(tciPath string, aoiWGS84 *geom.Polygon, aoiAreaWGS84 float64) (geoCov, validPct float64, bounds geom.BBox, crs geom.CRS, err error) {
	h, err := raster.Open(tciPath)
	if err != nil {
		return 0, 0, geom.BBox{}, "", fmt.Errorf("open TCI: %w", err)
	}
	defer h.Close()

	aoiInTCI, err := geom.Reproject(aoiWGS84, h.CRS)
	if err != nil {
		return 0, 0, geom.BBox{}, "", fmt.Errorf("reproject AOI to TCI CRS: %w", err)
	}

	footprint := h.Bounds.ToPolygon()
	overlap, err := geom.Intersection(aoiInTCI, footprint)
	if err != nil {
		return 0, 0, geom.BBox{}, "", fmt.Errorf("intersect AOI with TCI bounds: %w", err)
	}
	overlapArea, err := overlap.Area()
	if err != nil {
		return 0, 0, geom.BBox{}, "", err
	}

	aoiInTCIArea, err := aoiInTCI.Area()
	if err != nil {
		return 0, 0, geom.BBox{}, "", err
	}
	_ = aoiInTCIArea // geographic_coverage is normalized against the AOI's own (WGS84) area per spec §4.2 step 4

	geoCov = geographicCoverageFraction(overlapArea, aoiAreaWGS84)

	masked, err := h.ReadMaskedBand(1, aoiInTCI)
	if err != nil {
		return 0, 0, geom.BBox{}, "", fmt.Errorf("read masked TCI band: %w", err)
	}
	validPct = validPixelFraction(masked)

	return geoCov, validPct, h.Bounds, h.CRS, nil
}

// geographicCoverageFraction derives geographic_coverage from the
// AOI∩footprint overlap area (computed in the TCI raster's own, usually
// projected UTM, CRS — units m²) and the AOI's own area in WGS84
// (degrees²). The two are different units, so the raw quotient is not a
// fraction; clamp to 1.0 the way the original resolves this exact
// mismatch (greedy_utils/image_processing.py).
func geographicCoverageFraction(overlapArea, aoiAreaWGS84 float64) float64 {
	return math.Min(1.0, overlapArea/aoiAreaWGS84)
}

func validPixelFraction(mb *raster.MaskedBand) float64 {
	var total, nonzero int
	for i, v := range mb.Values {
		if !mb.Valid[i] {
			continue
		}
		total++
		if v > 0 {
			nonzero++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(nonzero) / float64(total)
}

// computeCloudCoverage implements spec §4.2 step 5. Any failure yields
// the conservative fallback 1.0 (CloudUnknown, spec §7).
func computeCloudCoverage(cloudPath string, aoiWGS84 *geom.Polygon) float64 {
	h, err := raster.Open(cloudPath)
	if err != nil {
		return 1.0
	}
	defer h.Close()

	aoiInCloudCRS, err := geom.Reproject(aoiWGS84, h.CRS)
	if err != nil {
		return 1.0
	}

	masked, err := h.ReadMaskedBand(1, aoiInCloudCRS)
	if err != nil {
		return 1.0
	}
	return raster.FractionOverThreshold(masked, 0)
}
