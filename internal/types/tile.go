// Package types holds the tagged record types shared across every stage of
// the pipeline: Tile, MosaicCandidate, and the small enums that classify
// them. Earlier stages never mutate a type's fields after handing it to the
// next stage (spec §3 ownership/lifecycle) — later stages that need more
// fields define their own enriched record rather than widening this one.
package types

import (
	"time"

	"github.com/Delevati/occmosaic/internal/geom"
)

// Status is the terminal outcome of ingesting one bundle.
type Status string

const (
	StatusAccepted Status = "accepted"
	StatusRejected Status = "rejected"
	StatusError    Status = "error"
)

// Classification buckets an accepted tile by effective coverage (spec §3,
// §4.2 step 7).
type Classification string

const (
	ClassCentral    Classification = "central"
	ClassComplement Classification = "complement"
)

// RejectReason names why an ingested tile did not become eligible for
// composition (spec §4.2 step 6). These are recorded, never silently
// dropped.
type RejectReason string

const (
	ReasonNoValidPixels    RejectReason = "no_valid_pixels"
	ReasonLowGeographic    RejectReason = "geographic_coverage_below_min"
	ReasonLowEffective     RejectReason = "effective_coverage_below_min"
	ReasonCloudOverMax     RejectReason = "cloud_coverage_over_max"
	ReasonMissingArtifact  RejectReason = "missing_artifact"
	ReasonBadRaster        RejectReason = "bad_raster"
	ReasonReprojectFailure RejectReason = "reproject_error"
)

// Tile is one Sentinel-2 L2A bundle's ingestion result (spec §3). A Tile is
// created once by C2 and never mutated by any later stage; C3 and beyond
// hold it by reference.
type Tile struct {
	Filename string
	Status   Status

	Date  *time.Time // nil when unresolvable; see spec §4.2 step 2
	Orbit *int       // nil when absent; see spec §4.2 step 3

	Bounds *geom.BBox // nil when unknown/unreadable
	CRS    geom.CRS

	GeographicCoverage    float64
	ValidPixelsPercentage float64
	EffectiveCoverage     float64
	CloudCoverage         float64

	Classification Classification // only meaningful when Status == StatusAccepted
	Reason         RejectReason   // only meaningful when Status != StatusAccepted

	TCIPath       string
	CloudMaskPath string

	// Optional best-effort metadata (supplemented feature, not required by
	// §4.2 steps 2-3; absence is never an ingestion failure).
	MGRSTile           string
	ProcessingBaseline string
}

// EffectiveCoverageConsistent reports whether EffectiveCoverage equals the
// product of GeographicCoverage and ValidPixelsPercentage within tol, the
// universal invariant from spec §8.
func (t *Tile) EffectiveCoverageConsistent(tol float64) bool {
	want := t.GeographicCoverage * t.ValidPixelsPercentage
	diff := t.EffectiveCoverage - want
	if diff < 0 {
		diff = -diff
	}
	return diff <= tol
}

// FootprintPolygon returns the tile's bounds as a polygon in its own CRS,
// or nil if bounds are unknown.
func (t *Tile) FootprintPolygon() *geom.Polygon {
	if t.Bounds == nil {
		return nil
	}
	return t.Bounds.ToPolygon()
}
