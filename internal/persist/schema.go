// Package persist implements C6: the stable JSON schemas shared between
// stages (spec §6) and the durable per-tile catalog C2 writes to
// (spec §4.2 step 7), backed by SQLite the same way the teacher's
// internal/mbtiles/writer.go backs its tile store.
package persist

import (
	"github.com/Delevati/occmosaic/internal/geom"
	"github.com/Delevati/occmosaic/internal/types"
)

// BoundsJSON is the wire form of a geom.BBox: {left,bottom,right,top}.
type BoundsJSON struct {
	Left   float64 `json:"left"`
	Bottom float64 `json:"bottom"`
	Right  float64 `json:"right"`
	Top    float64 `json:"top"`
}

// TileRecord is the per-tile metadata record spec §6 names — one per
// accepted/rejected/errored tile. Field names are load-bearing; do not
// rename without updating both writer and reader.
type TileRecord struct {
	Filename string `json:"filename"`
	Status   string `json:"status"`
	Class    string `json:"class,omitempty"`

	Date  *string `json:"date"`
	Orbit *int    `json:"orbit"`

	GeographicCoverage   float64 `json:"geographic_coverage"`
	ValidPixelsPercent   float64 `json:"valid_pixels_percentage"`
	EffectiveCoverage    float64 `json:"effective_coverage"`
	CloudCoverage        float64 `json:"cloud_coverage"`

	Bounds *BoundsJSON `json:"bounds"`
	CRS    *string     `json:"crs"`

	TCIPath       string `json:"tci_path"`
	CloudMaskPath string `json:"cloud_mask_path"`
	Reason        string `json:"reason,omitempty"`

	MGRSTile           string `json:"mgrs_tile,omitempty"`
	ProcessingBaseline string `json:"processing_baseline,omitempty"`
}

// CatalogEntry is one entry of optimization_parameters.json's
// image_catalog array (spec §6).
type CatalogEntry struct {
	Filename string  `json:"filename"`
	Class    string  `json:"class"`
	Date     *string `json:"date"`
	Orbit    *int    `json:"orbit"`

	GeographicCoverage float64 `json:"geographic_coverage"`
	ValidPixelsPercent float64 `json:"valid_pixels_percentage"`
	CloudCoverage      float64 `json:"cloud_coverage"`
	QualityFactor      float64 `json:"quality_factor"`
}

// OverlapDetailJSON is one entry of a mosaic group's overlap_details.
type OverlapDetailJSON struct {
	OtherFilename string  `json:"other_filename"`
	OverlapArea   float64 `json:"overlap_area"`
	Effectiveness float64 `json:"effectiveness"`
	OrbitBonus    float64 `json:"orbit_bonus"`
}

// PairwiseIntersectionJSON is one entry of a precalc mosaic's
// pairwise_intersections array.
type PairwiseIntersectionJSON struct {
	FilenameA string  `json:"filename_a"`
	FilenameB string  `json:"filename_b"`
	Area      float64 `json:"area"`
}

// MosaicGroup is one entry of optimization_parameters.json's
// mosaic_groups array (post-C3 shape). After C4, the *-precalc.json
// variant of this same record gains the Precalc fields below.
type MosaicGroup struct {
	GroupID                string              `json:"group_id"`
	BaseImageID            string              `json:"base_image_id"`
	ComplementaryImageIDs  []string            `json:"complementary_image_ids"`
	Images                 []string            `json:"images"`
	EstimatedCoverage      float64             `json:"estimated_coverage"`
	QualityFactor          float64             `json:"quality_factor"`
	StartDate              string              `json:"start_date"`
	EndDate                string              `json:"end_date"`
	OverlapDetails         []OverlapDetailJSON `json:"overlap_details"`

	// Populated only in *-precalc.json, after C4 (spec §6).
	GeometricCoverage     *float64                   `json:"geometric_coverage,omitempty"`
	GeometricCoverageM2   *float64                   `json:"geometric_coverage_m2,omitempty"`
	TotalIndividualArea   *float64                   `json:"total_individual_area,omitempty"`
	TotalPairwiseOverlap  *float64                   `json:"total_pairwise_overlap,omitempty"`
	RealCoverageArea      *float64                   `json:"real_coverage_area,omitempty"`
	RealCoverageRatio     *float64                   `json:"real_coverage_ratio,omitempty"`
	PieCoverageArea       *float64                   `json:"pie_coverage_area,omitempty"`
	PieCoverageRatio      *float64                   `json:"pie_coverage_ratio,omitempty"`
	AvgCloudCoverage      *float64                   `json:"avg_cloud_coverage,omitempty"`
	PairwiseIntersections []PairwiseIntersectionJSON `json:"pairwise_intersections,omitempty"`
}

// OptimizationParameters is the C3 output artifact, optimization_parameters.json.
type OptimizationParameters struct {
	ImageCatalog []CatalogEntry `json:"image_catalog"`
	MosaicGroups []MosaicGroup  `json:"mosaic_groups"`
}

// TileRecordFromTile converts an internal Tile to its persisted wire form,
// using the canonical 6-decimal/lowercase-ISO-8601 form spec §8 mandates.
func TileRecordFromTile(t *types.Tile) TileRecord {
	rec := TileRecord{
		Filename:           t.Filename,
		Status:             string(t.Status),
		Class:              string(t.Classification),
		GeographicCoverage: round6(t.GeographicCoverage),
		ValidPixelsPercent: round6(t.ValidPixelsPercentage),
		EffectiveCoverage:  round6(t.EffectiveCoverage),
		CloudCoverage:      round6(t.CloudCoverage),
		TCIPath:            t.TCIPath,
		CloudMaskPath:      t.CloudMaskPath,
		Reason:             string(t.Reason),
		MGRSTile:           t.MGRSTile,
		ProcessingBaseline: t.ProcessingBaseline,
	}
	if t.Date != nil {
		d := canonicalDate(*t.Date)
		rec.Date = &d
	}
	if t.Orbit != nil {
		o := *t.Orbit
		rec.Orbit = &o
	}
	if t.Bounds != nil {
		rec.Bounds = &BoundsJSON{Left: t.Bounds.Left, Bottom: t.Bounds.Bottom, Right: t.Bounds.Right, Top: t.Bounds.Top}
		crs := string(t.CRS)
		rec.CRS = &crs
	}
	return rec
}

// TileBounds rebuilds a geom.BBox from a BoundsJSON/CRS pair, used
// when reloading a TileRecord for downstream stages.
func (r TileRecord) TileBounds() *geom.BBox {
	if r.Bounds == nil || r.CRS == nil {
		return nil
	}
	return &geom.BBox{Left: r.Bounds.Left, Bottom: r.Bounds.Bottom, Right: r.Bounds.Right, Top: r.Bounds.Top, CRS: geom.CRS(*r.CRS)}
}

// TileFromRecord reconstructs the in-memory Tile a downstream stage
// (C3, C4) needs from its persisted TileRecord. Only fields later stages
// read are reconstructed.
func TileFromRecord(r TileRecord) *types.Tile {
	t := &types.Tile{
		Filename:              r.Filename,
		Status:                types.Status(r.Status),
		Classification:        types.Classification(r.Class),
		Reason:                types.RejectReason(r.Reason),
		GeographicCoverage:    r.GeographicCoverage,
		ValidPixelsPercentage: r.ValidPixelsPercent,
		EffectiveCoverage:     r.EffectiveCoverage,
		CloudCoverage:         r.CloudCoverage,
		TCIPath:               r.TCIPath,
		CloudMaskPath:         r.CloudMaskPath,
		MGRSTile:              r.MGRSTile,
		ProcessingBaseline:    r.ProcessingBaseline,
	}
	if r.Date != nil {
		if d, err := parseCanonicalDate(*r.Date); err == nil {
			t.Date = &d
		}
	}
	if r.Orbit != nil {
		o := *r.Orbit
		t.Orbit = &o
	}
	t.Bounds = r.TileBounds()
	if r.CRS != nil {
		t.CRS = geom.CRS(*r.CRS)
	}
	return t
}
