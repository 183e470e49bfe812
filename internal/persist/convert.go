package persist

import (
	"fmt"

	"github.com/Delevati/occmosaic/internal/types"
)

// CatalogEntryFromTile projects an accepted Tile into its
// image_catalog entry shape (spec §6). qualityFactor is C3's
// (1 − cloud_coverage) × valid_pixels_percentage figure for this tile.
func CatalogEntryFromTile(t *types.Tile, qualityFactor float64) CatalogEntry {
	entry := CatalogEntry{
		Filename:           t.Filename,
		Class:              string(t.Classification),
		GeographicCoverage: round6(t.GeographicCoverage),
		ValidPixelsPercent: round6(t.ValidPixelsPercentage),
		CloudCoverage:      round6(t.CloudCoverage),
		QualityFactor:      round6(qualityFactor),
	}
	if t.Date != nil {
		d := canonicalDate(*t.Date)
		entry.Date = &d
	}
	if t.Orbit != nil {
		o := *t.Orbit
		entry.Orbit = &o
	}
	return entry
}

// MosaicGroupFromCandidate projects a MosaicCandidate (optionally
// enriched by C4) into its mosaic_groups/precalc wire shape.
func MosaicGroupFromCandidate(m *types.MosaicCandidate) MosaicGroup {
	complementary := make([]string, 0, len(m.Images))
	images := make([]string, 0, len(m.Images))
	for _, t := range m.Images {
		images = append(images, t.Filename)
		if t.Filename != m.BaseImage.Filename {
			complementary = append(complementary, t.Filename)
		}
	}

	overlaps := make([]OverlapDetailJSON, 0, len(m.OverlapDetails))
	for _, od := range m.OverlapDetails {
		overlaps = append(overlaps, OverlapDetailJSON{
			OtherFilename: od.OtherFilename,
			OverlapArea:   round6(od.OverlapArea),
			Effectiveness: round6(od.Effectiveness),
			OrbitBonus:    round6(od.OrbitBonus),
		})
	}

	group := MosaicGroup{
		GroupID:               m.GroupID,
		BaseImageID:           m.BaseImage.Filename,
		ComplementaryImageIDs: complementary,
		Images:                images,
		EstimatedCoverage:     round6(m.EstimatedCoverage),
		QualityFactor:         round6(m.AvgQualityFactor),
		StartDate:             canonicalDate(m.StartDate),
		EndDate:               canonicalDate(m.EndDate),
		OverlapDetails:        overlaps,
	}

	if m.Enriched {
		geomCoverage := round6(m.PieCoverageRatio)
		totalIndividual := round6(m.TotalIndividualArea)
		totalPairwise := round6(m.TotalPairwiseOverlap)
		realArea := round6(m.RealCoverageArea)
		realRatio := round6(m.RealCoverageRatio)
		pieArea := round6(m.PieCoverageArea)
		pieRatio := round6(m.PieCoverageRatio)
		avgCloud := round6(m.AvgCloudCoverage)

		pairwise := make([]PairwiseIntersectionJSON, 0, len(m.PairwiseIntersections))
		for _, pi := range m.PairwiseIntersections {
			pairwise = append(pairwise, PairwiseIntersectionJSON{
				FilenameA: pi.FilenameA,
				FilenameB: pi.FilenameB,
				Area:      round6(pi.Area),
			})
		}

		group.GeometricCoverage = &geomCoverage
		group.GeometricCoverageM2 = &pieArea // raw AOI-CRS area units (m² when AOI-CRS is projected)
		group.TotalIndividualArea = &totalIndividual
		group.TotalPairwiseOverlap = &totalPairwise
		group.RealCoverageArea = &realArea
		group.RealCoverageRatio = &realRatio
		group.PieCoverageArea = &pieArea
		group.PieCoverageRatio = &pieRatio
		group.AvgCloudCoverage = &avgCloud
		group.PairwiseIntersections = pairwise
	}

	return group
}

// MosaicCandidateFromGroup reconstructs the in-memory MosaicCandidate C5
// needs from a persisted MosaicGroup, looking each member filename up in
// catalog for the per-tile fields (cloud coverage, date, orbit) the
// group record itself doesn't carry. catalog is keyed by filename.
func MosaicCandidateFromGroup(g MosaicGroup, catalog map[string]CatalogEntry) (*types.MosaicCandidate, error) {
	images := make([]*types.Tile, 0, len(g.Images))
	var base *types.Tile
	for _, filename := range g.Images {
		entry, ok := catalog[filename]
		if !ok {
			return nil, fmt.Errorf("mosaic %s: member %s not found in image catalog", g.GroupID, filename)
		}
		t, err := tileFromCatalogEntry(entry)
		if err != nil {
			return nil, fmt.Errorf("mosaic %s: %w", g.GroupID, err)
		}
		images = append(images, t)
		if filename == g.BaseImageID {
			base = t
		}
	}
	if base == nil {
		return nil, fmt.Errorf("mosaic %s: base image %s not among its members", g.GroupID, g.BaseImageID)
	}

	start, err := parseCanonicalDate(g.StartDate)
	if err != nil {
		return nil, fmt.Errorf("mosaic %s: parse start_date: %w", g.GroupID, err)
	}
	end, err := parseCanonicalDate(g.EndDate)
	if err != nil {
		return nil, fmt.Errorf("mosaic %s: parse end_date: %w", g.GroupID, err)
	}

	m := &types.MosaicCandidate{
		GroupID:           g.GroupID,
		BaseImage:         base,
		Images:            images,
		EstimatedCoverage: g.EstimatedCoverage,
		AvgQualityFactor:  g.QualityFactor,
		StartDate:         start,
		EndDate:           end,
	}
	for _, od := range g.OverlapDetails {
		m.OverlapDetails = append(m.OverlapDetails, types.OverlapDetail{
			OtherFilename: od.OtherFilename,
			OverlapArea:   od.OverlapArea,
			Effectiveness: od.Effectiveness,
			OrbitBonus:    od.OrbitBonus,
		})
	}

	if g.PieCoverageRatio != nil {
		m.Enriched = true
		m.PieCoverageRatio = *g.PieCoverageRatio
		if g.PieCoverageArea != nil {
			m.PieCoverageArea = *g.PieCoverageArea
		}
		if g.RealCoverageArea != nil {
			m.RealCoverageArea = *g.RealCoverageArea
		}
		if g.RealCoverageRatio != nil {
			m.RealCoverageRatio = *g.RealCoverageRatio
		}
		if g.TotalIndividualArea != nil {
			m.TotalIndividualArea = *g.TotalIndividualArea
		}
		if g.TotalPairwiseOverlap != nil {
			m.TotalPairwiseOverlap = *g.TotalPairwiseOverlap
		}
		if g.AvgCloudCoverage != nil {
			m.AvgCloudCoverage = *g.AvgCloudCoverage
		}
		for _, pi := range g.PairwiseIntersections {
			m.PairwiseIntersections = append(m.PairwiseIntersections, types.PairwiseIntersection{
				FilenameA: pi.FilenameA,
				FilenameB: pi.FilenameB,
				Area:      pi.Area,
			})
		}
	}

	return m, nil
}

func tileFromCatalogEntry(e CatalogEntry) (*types.Tile, error) {
	t := &types.Tile{
		Filename:              e.Filename,
		Status:                types.StatusAccepted,
		Classification:        types.Classification(e.Class),
		GeographicCoverage:    e.GeographicCoverage,
		ValidPixelsPercentage: e.ValidPixelsPercent,
		CloudCoverage:         e.CloudCoverage,
	}
	if e.Date != nil {
		d, err := parseCanonicalDate(*e.Date)
		if err != nil {
			return nil, fmt.Errorf("parse date for %s: %w", e.Filename, err)
		}
		t.Date = &d
	}
	if e.Orbit != nil {
		o := *e.Orbit
		t.Orbit = &o
	}
	return t, nil
}
