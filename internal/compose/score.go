// Package compose implements C3, the greedy mosaic composer: from
// accepted tiles, grow candidate mosaics by a two-pass greedy search using
// the compatibility score spec §4.3 defines.
package compose

import (
	"math"

	"github.com/Delevati/occmosaic/internal/geom"
	"github.com/Delevati/occmosaic/internal/raster"
	"github.com/Delevati/occmosaic/internal/types"
)

// OverlapQualityWeight is w in spec §4.3 step 7.
const OverlapQualityWeight = 0.3

// centralContribution and complementContribution are the f values spec
// §4.3 step 8 uses when estimating a candidate's marginal added coverage.
const (
	centralContribution    = 0.4
	complementContribution = 0.2
	orbitBonusValue        = 0.05
)

// CompatibilityRecord is the per-candidate outcome of the score function,
// spec §4.3. A nil record means the candidate was rejected.
type CompatibilityRecord struct {
	OtherFilename string
	OverlapArea   float64
	Effectiveness float64
	OrbitBonus    float64
	Added         float64
	NewCoverage   float64
}

// quality implements spec §4.3 step 5: q(x) = (1 − cloud_coverage(x)) ×
// valid_pixels_percentage(x).
func quality(t *types.Tile) float64 {
	return (1 - t.CloudCoverage) * t.ValidPixelsPercentage
}

// Score computes the compatibility record for adding other to a mosaic
// whose current synthetic base is base (base.GeographicCoverage already
// holds the mosaic's accumulated estimate; every other base field is the
// seed tile's own, per spec §4.3's "current synthetic base" definition).
// maxDays is the configured time window; it returns nil on rejection.
func Score(base, other *types.Tile, maxDays int) *CompatibilityRecord {
	// Step 1: date window.
	if base.Date == nil || other.Date == nil {
		return nil
	}
	diffDays := int(math.Abs(other.Date.Sub(*base.Date).Hours()) / 24)
	if diffDays > maxDays {
		return nil
	}

	// Step 2: bounds/CRS required.
	if base.Bounds == nil || other.Bounds == nil || base.CRS == "" || other.CRS == "" {
		return nil
	}

	// Step 3: footprints in a common pivot CRS (WGS84). The tile's own CRS
	// field (checked in step 2) is the CRS its bounds are expressed in.
	baseFootprint := base.Bounds.ToPolygon()
	baseFootprint.CRS = base.CRS
	otherFootprint := other.Bounds.ToPolygon()
	otherFootprint.CRS = other.CRS
	basePoly, err := geom.Reproject(baseFootprint, geom.WGS84)
	if err != nil {
		return nil
	}
	otherPoly, err := geom.Reproject(otherFootprint, geom.WGS84)
	if err != nil {
		return nil
	}
	overlapGeom, err := geom.Intersection(basePoly, otherPoly)
	if err != nil {
		return nil
	}
	var overlapArea float64
	if !overlapGeom.Empty() {
		overlapArea, err = overlapGeom.Area()
		if err != nil {
			return nil
		}
	}

	// Step 4: cloud-in-overlap and better-in-overlap selection.
	var betterInOverlap *types.Tile
	var cloudBase, cloudOther float64 = 1.0, 1.0
	haveBetter := false
	if overlapArea > 0 {
		cb, okB := cloudInOverlap(base, overlapGeom)
		co, okO := cloudInOverlap(other, overlapGeom)
		if okB && okO {
			cloudBase, cloudOther = cb, co
			haveBetter = true
			if cloudBase <= cloudOther {
				betterInOverlap = base
			} else {
				betterInOverlap = other
			}
		}
	}

	// Step 5-6: quality and overlap quality.
	qBase, qOther := quality(base), quality(other)
	meanQ := (qBase + qOther) / 2

	var qOverlap float64
	if haveBetter {
		if betterInOverlap == base {
			qOverlap = (1 - cloudBase) * base.ValidPixelsPercentage
		} else {
			qOverlap = (1 - cloudOther) * other.ValidPixelsPercentage
		}
	} else {
		qOverlap = meanQ
	}

	// Step 7: refined quality.
	refinedQuality := (1-OverlapQualityWeight)*meanQ + OverlapQualityWeight*qOverlap

	// Step 8: marginal coverage estimate.
	uncovered := math.Max(0, 1-base.GeographicCoverage)
	f := complementContribution
	if other.Classification == types.ClassCentral {
		f = centralContribution
	}
	contributionFactor := 1 - f
	added := math.Min(uncovered, other.GeographicCoverage*contributionFactor)
	newCoverage := math.Min(1, base.GeographicCoverage+added)

	// Step 9: orbit bonus.
	var orbitBonus float64
	if base.Orbit != nil && other.Orbit != nil && *base.Orbit == *other.Orbit {
		orbitBonus = orbitBonusValue
	}

	// Step 10: effectiveness.
	effectiveness := added*refinedQuality + orbitBonus

	return &CompatibilityRecord{
		OtherFilename: other.Filename,
		OverlapArea:   overlapArea,
		Effectiveness: effectiveness,
		OrbitBonus:    orbitBonus,
		Added:         added,
		NewCoverage:   newCoverage,
	}
}

// cloudInOverlap computes the fraction of cloudy cells within overlapGeom
// for t, reprojecting into t's own cloud raster CRS first. Returns
// ok=false on any failure (spec §4.3 step 4: "if either cloud probe
// fails, set both to 1.0 and no better-in-overlap tile").
func cloudInOverlap(t *types.Tile, overlapGeom *geom.Polygon) (float64, bool) {
	if t.CloudMaskPath == "" {
		return 1.0, false
	}
	h, err := raster.Open(t.CloudMaskPath)
	if err != nil {
		return 1.0, false
	}
	defer h.Close()

	inCloudCRS, err := geom.Reproject(overlapGeom, h.CRS)
	if err != nil {
		return 1.0, false
	}
	masked, err := h.ReadMaskedBand(1, inCloudCRS)
	if err != nil {
		return 1.0, false
	}
	return raster.FractionOverThreshold(masked, 0), true
}
