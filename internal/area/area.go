// Package area implements C4, the IEP area engine: pairwise redundancy
// pruning and pairwise-inclusion-exclusion coverage computation for one
// candidate mosaic at a time, operating entirely in the AOI's native CRS
// (spec §4.4).
package area

import (
	"log/slog"

	"github.com/Delevati/occmosaic/internal/geom"
	"github.com/Delevati/occmosaic/internal/types"
)

// UniqueContrib is the minimum unique-to-AOI contribution fraction a tile
// in a highly-redundant pair must clear to be kept unconditionally (spec
// §4.4 step 4).
const UniqueContrib = 0.05

// redundancyRatio is the threshold above which a pair is "highly
// redundant" (spec §4.4 step 3).
const redundancyRatio = 0.9

// footprint pairs a tile with its footprint clipped to the AOI, in AOI-CRS.
type footprint struct {
	tile *types.Tile
	full *geom.Polygon // reprojected TCI bounds, AOI-CRS, repaired
	clip *geom.Polygon // full ∩ AOI
	area float64       // area(clip)
}

// Enrich computes C4's AreaMetrics for m against aoi (already in AOI-CRS)
// and returns a new MosaicCandidate whose Images list has been replaced
// with the pruned set, per spec §4.4. m itself is not mutated.
func Enrich(m *types.MosaicCandidate, aoi *geom.Polygon) (*types.MosaicCandidate, error) {
	aoiArea, err := aoi.Area()
	if err != nil {
		return nil, err
	}

	footprints, err := acquireFootprints(m, aoi)
	if err != nil {
		return nil, err
	}

	if len(footprints) >= 3 {
		footprints, err = prune(footprints, aoi, aoiArea)
		if err != nil {
			return nil, err
		}
	}

	metrics, err := computeCoverage(footprints, aoi, aoiArea)
	if err != nil {
		return nil, err
	}
	metrics.AvgCloudCoverage = aggregateCloud(footprints)

	out := *m
	out.Images = make([]*types.Tile, len(footprints))
	for i, f := range footprints {
		out.Images[i] = f.tile
	}
	out.AreaMetrics = metrics
	out.Enriched = true
	return &out, nil
}

// acquireFootprints reprojects each tile's TCI bounds into the AOI's CRS,
// repairs invalid geometry via buffer(0), and clips to the AOI. Tiles that
// remain invalid or have nonpositive clipped area are dropped (spec §4.4
// "Footprint acquisition").
func acquireFootprints(m *types.MosaicCandidate, aoi *geom.Polygon) ([]footprint, error) {
	out := make([]footprint, 0, len(m.Images))
	for _, t := range m.Images {
		raw := t.FootprintPolygon()
		if raw == nil {
			slog.Warn("area: tile has no bounds, dropped from mosaic", "filename", t.Filename, "group_id", m.GroupID)
			continue
		}
		reproj, err := geom.Reproject(raw, aoi.CRS)
		if err != nil {
			slog.Warn("area: footprint reproject failed, dropped", "filename", t.Filename, "group_id", m.GroupID, "err", err)
			continue
		}
		valid, err := reproj.Valid()
		if err != nil {
			return nil, err
		}
		full := reproj
		if !valid {
			repaired, err := reproj.Repair()
			if err != nil {
				slog.Warn("area: footprint invalid after repair, dropped", "filename", t.Filename, "group_id", m.GroupID, "err", err)
				continue
			}
			full = repaired
		}

		clip, err := geom.Intersection(full, aoi)
		if err != nil {
			return nil, err
		}
		a, err := clip.Area()
		if err != nil {
			return nil, err
		}
		if a <= 0 {
			slog.Warn("area: footprint has nonpositive clipped area, dropped", "filename", t.Filename, "group_id", m.GroupID)
			continue
		}
		out = append(out, footprint{tile: t, full: full, clip: clip, area: a})
	}
	return out, nil
}

// prune applies spec §4.4's pairwise redundancy pruning to footprints
// when the mosaic has at least 3 members.
func prune(fs []footprint, aoi *geom.Polygon, aoiArea float64) ([]footprint, error) {
	dropped := make(map[string]bool)

	for i := 0; i < len(fs); i++ {
		for j := i + 1; j < len(fs); j++ {
			fi, fj := fs[i], fs[j]
			if dropped[fi.tile.Filename] || dropped[fj.tile.Filename] {
				continue
			}

			overlap, err := geom.Intersection(fi.clip, fj.clip)
			if err != nil {
				return nil, err
			}
			oArea, err := overlap.Area()
			if err != nil {
				return nil, err
			}
			minArea := fi.area
			if fj.area < minArea {
				minArea = fj.area
			}
			if minArea <= 0 {
				continue
			}
			ratio := oArea / minArea
			if ratio <= redundancyRatio {
				continue
			}

			ui, err := uniqueContribution(fi, fj, aoiArea)
			if err != nil {
				return nil, err
			}
			uj, err := uniqueContribution(fj, fi, aoiArea)
			if err != nil {
				return nil, err
			}

			switch {
			case ui >= UniqueContrib && uj >= UniqueContrib:
				// keep both
			case ui >= UniqueContrib:
				dropped[fj.tile.Filename] = true
			case uj >= UniqueContrib:
				dropped[fi.tile.Filename] = true
			default:
				if fi.tile.CloudCoverage <= fj.tile.CloudCoverage {
					dropped[fj.tile.Filename] = true
				} else {
					dropped[fi.tile.Filename] = true
				}
			}
		}
	}

	kept := make([]footprint, 0, len(fs))
	for _, f := range fs {
		if !dropped[f.tile.Filename] {
			kept = append(kept, f)
		}
	}
	return kept, nil
}

// uniqueContribution computes u_i = area((footprint_i ∩ AOI) \ (footprint_j
// ∩ AOI)) / area(AOI).
func uniqueContribution(a, b footprint, aoiArea float64) (float64, error) {
	if aoiArea <= 0 {
		return 0, nil
	}
	diff, err := geom.Difference(a.clip, b.clip)
	if err != nil {
		return 0, err
	}
	uArea, err := diff.Area()
	if err != nil {
		return 0, err
	}
	return uArea / aoiArea, nil
}

// computeCoverage implements spec §4.4's pairwise IEP and real-union
// coverage on the pruned footprint set.
func computeCoverage(fs []footprint, aoi *geom.Polygon, aoiArea float64) (types.AreaMetrics, error) {
	var metrics types.AreaMetrics
	if len(fs) == 0 || aoiArea <= 0 {
		return metrics, nil
	}

	var sumSingle float64
	clips := make([]*geom.Polygon, len(fs))
	for i, f := range fs {
		sumSingle += f.area
		clips[i] = f.clip
	}
	metrics.TotalIndividualArea = sumSingle

	var sumPair float64
	var intersections []types.PairwiseIntersection
	for i := 0; i < len(fs); i++ {
		for j := i + 1; j < len(fs); j++ {
			overlap, err := geom.Intersection(fs[i].clip, fs[j].clip)
			if err != nil {
				return metrics, err
			}
			oArea, err := overlap.Area()
			if err != nil {
				return metrics, err
			}
			sumPair += oArea
			if oArea > 0 {
				intersections = append(intersections, types.PairwiseIntersection{
					FilenameA: fs[i].tile.Filename,
					FilenameB: fs[j].tile.Filename,
					Area:      oArea,
				})
			}
		}
	}
	metrics.TotalPairwiseOverlap = sumPair
	metrics.PairwiseIntersections = intersections

	pieArea := sumSingle - sumPair
	if pieArea > aoiArea {
		pieArea = aoiArea
	}
	if pieArea < 0 {
		pieArea = 0
	}
	metrics.PieCoverageArea = pieArea
	metrics.PieCoverageRatio = pieArea / aoiArea

	union, err := geom.Union(clips...)
	if err != nil {
		return metrics, err
	}
	realArea, err := union.Area()
	if err != nil {
		return metrics, err
	}
	metrics.RealCoverageArea = realArea
	metrics.RealCoverageRatio = realArea / aoiArea

	return metrics, nil
}

// aggregateCloud implements spec §4.4's no-double-counting cloud
// aggregation: iterate footprints in the stable order given (the
// mosaic's images list order), accumulating the covered union and
// weighting each newly-covered sliver by its own tile's cloud_coverage.
func aggregateCloud(fs []footprint) float64 {
	if len(fs) == 0 {
		return 0
	}

	var covered *geom.Polygon
	var weighted, coveredArea float64
	anyFailure := false

	for _, f := range fs {
		var uniquePart *geom.Polygon
		var err error
		if covered == nil {
			uniquePart = f.clip
		} else {
			uniquePart, err = geom.Difference(f.clip, covered)
			if err != nil {
				anyFailure = true
				break
			}
		}
		uArea, err := uniquePart.Area()
		if err != nil {
			anyFailure = true
			break
		}
		weighted += uArea * f.tile.CloudCoverage
		coveredArea += uArea

		if covered == nil {
			covered = f.clip
		} else {
			covered, err = geom.Union(covered, f.clip)
			if err != nil {
				anyFailure = true
				break
			}
		}
	}

	if anyFailure || coveredArea <= 0 {
		return simpleMeanCloud(fs)
	}
	return clamp01(weighted / coveredArea)
}

func simpleMeanCloud(fs []footprint) float64 {
	if len(fs) == 0 {
		return 0
	}
	var sum float64
	for _, f := range fs {
		sum += f.tile.CloudCoverage
	}
	return sum / float64(len(fs))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
