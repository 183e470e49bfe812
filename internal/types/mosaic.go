package types

import "time"

// OverlapDetail records one pairwise overlap observed while growing a
// mosaic in C3 (spec §4.3 steps 3-9) — kept for diagnostics and for the
// optimization_parameters.json artifact's overlap_details field.
type OverlapDetail struct {
	OtherFilename string
	OverlapArea   float64
	Effectiveness float64
	OrbitBonus    float64
}

// PairwiseIntersection is one entry of a mosaic's precalc-stage
// pairwise_intersections field (spec §6): the clipped-to-AOI intersection
// area between two of its member tiles, after C4 pruning.
type PairwiseIntersection struct {
	FilenameA string
	FilenameB string
	Area      float64
}

// MosaicCandidate is a candidate grouping of tiles within a time window
// (spec §3). C3 creates it; C4 enriches it exactly once with geometric
// fields. After C4 it is immutable.
type MosaicCandidate struct {
	GroupID   string
	BaseImage *Tile
	Images    []*Tile // set-unique by filename, BaseImage included

	EstimatedCoverage float64
	AvgQualityFactor  float64

	StartDate time.Time
	EndDate   time.Time

	OverlapDetails []OverlapDetail

	// Populated by C4 (internal/area). Zero value means "not yet computed".
	Enriched bool
	AreaMetrics
}

// AreaMetrics is C4's geometric enrichment of a MosaicCandidate (spec §3,
// §4.4). Kept as its own type — not folded back into MosaicCandidate's
// base fields — per the "CandidateMosaic ⊕ AreaMetrics" tagged-record
// guidance in spec §9.
type AreaMetrics struct {
	PieCoverageArea  float64
	PieCoverageRatio float64
	RealCoverageArea float64
	RealCoverageRatio float64

	TotalIndividualArea  float64
	TotalPairwiseOverlap float64

	AvgCloudCoverage float64

	PairwiseIntersections []PairwiseIntersection
}

// ContainsFilename reports whether a tile with the given filename is
// already present in Images (the "set-unique by filename" invariant,
// spec §3).
func (m *MosaicCandidate) ContainsFilename(filename string) bool {
	for _, t := range m.Images {
		if t.Filename == filename {
			return true
		}
	}
	return false
}

// TimeWindowDays returns the integer number of whole days between
// StartDate and EndDate, per spec §6's "integer days of the absolute
// difference, truncated" rule.
func (m *MosaicCandidate) TimeWindowDays() int {
	return int(m.EndDate.Sub(m.StartDate).Hours() / 24)
}

// MaxCloudCoverage returns the maximum CloudCoverage across Images — the
// Nⱼ parameter C5 uses for the cloud veto and objective (spec §4.5).
func (m *MosaicCandidate) MaxCloudCoverage() float64 {
	var max float64
	for _, t := range m.Images {
		if t.CloudCoverage > max {
			max = t.CloudCoverage
		}
	}
	return max
}
