package compose

import (
	"sort"

	"github.com/Delevati/occmosaic/internal/types"
)

// Options configures a composition run.
type Options struct {
	// MaxDays is the configured time window for compatibility (spec
	// §4.3 step 1). Sentinel-2's ~5-day revisit cadence makes a 10-day
	// window a reasonable default: wide enough to catch the next two
	// passes, narrow enough that "same mosaic" still means
	// temporally coherent.
	MaxDays int
}

// DefaultMaxDays is Options.MaxDays's default.
const DefaultMaxDays = 10

// Run executes both greedy passes over accepted tiles, returning the
// unordered-then-sorted list of candidate mosaics spec §4.3 describes.
func Run(accepted []*types.Tile, opts Options) []*types.MosaicCandidate {
	if opts.MaxDays <= 0 {
		opts.MaxDays = DefaultMaxDays
	}

	central, complement := partition(accepted)

	var mosaics []*types.MosaicCandidate
	mosaics = append(mosaics, passA(central, accepted, opts.MaxDays)...)
	mosaics = append(mosaics, passB(complement, opts.MaxDays)...)

	sort.SliceStable(mosaics, func(i, j int) bool {
		if mosaics[i].EstimatedCoverage != mosaics[j].EstimatedCoverage {
			return mosaics[i].EstimatedCoverage > mosaics[j].EstimatedCoverage
		}
		if mosaics[i].AvgQualityFactor != mosaics[j].AvgQualityFactor {
			return mosaics[i].AvgQualityFactor > mosaics[j].AvgQualityFactor
		}
		return mosaics[i].GroupID < mosaics[j].GroupID
	})
	return mosaics
}

func partition(accepted []*types.Tile) (central, complement []*types.Tile) {
	for _, t := range accepted {
		switch t.Classification {
		case types.ClassCentral:
			central = append(central, t)
		case types.ClassComplement:
			complement = append(complement, t)
		}
	}
	sortByFilename(central)
	sortByFilename(complement)
	return central, complement
}

func sortByFilename(tiles []*types.Tile) {
	sort.SliceStable(tiles, func(i, j int) bool { return tiles[i].Filename < tiles[j].Filename })
}

// rankKey is the "geographic_coverage × (1 − cloud_coverage)" ordering
// key spec §4.3 uses for candidate scanning order in both passes.
func rankKey(t *types.Tile) float64 {
	return t.GeographicCoverage * (1 - t.CloudCoverage)
}

func sortByRank(tiles []*types.Tile) {
	sort.SliceStable(tiles, func(i, j int) bool {
		ri, rj := rankKey(tiles[i]), rankKey(tiles[j])
		if ri != rj {
			return ri > rj
		}
		return tiles[i].Filename < tiles[j].Filename // spec §9: ties broken by filename ascending
	})
}

// passA implements spec §4.3's Pass A: one mosaic seeded per central tile,
// scanning all other accepted tiles (excluding the seed) in rank order.
func passA(central, allAccepted []*types.Tile, maxDays int) []*types.MosaicCandidate {
	var out []*types.MosaicCandidate
	for _, seed := range central {
		candidates := make([]*types.Tile, 0, len(allAccepted)-1)
		for _, t := range allAccepted {
			if t.Filename != seed.Filename {
				candidates = append(candidates, t)
			}
		}
		sortByRank(candidates)

		m := grow(seed, candidates, maxDays, "A")
		if m != nil {
			out = append(out, m)
		}
	}
	return out
}

// passB implements spec §4.3's Pass B: complement tiles bucketed by
// calendar date, one mosaic per bucket with ≥ 2 tiles.
func passB(complement []*types.Tile, maxDays int) []*types.MosaicCandidate {
	buckets := make(map[string][]*types.Tile)
	var bucketKeys []string
	for _, t := range complement {
		if t.Date == nil {
			continue
		}
		key := t.Date.UTC().Format("2006-01-02")
		if _, ok := buckets[key]; !ok {
			bucketKeys = append(bucketKeys, key)
		}
		buckets[key] = append(buckets[key], t)
	}
	sort.Strings(bucketKeys)

	var out []*types.MosaicCandidate
	for _, key := range bucketKeys {
		bucket := buckets[key]
		if len(bucket) < 2 {
			continue
		}
		sortByRank(bucket)
		seed := bucket[0]
		rest := bucket[1:]

		m := grow(seed, rest, maxDays, "B")
		if m != nil {
			out = append(out, m)
		}
	}
	return out
}

// grow runs the shared iterative-extension loop both passes use: scan
// candidates in the order given, adding each compatible one and updating
// the synthetic base's accumulated coverage. Returns nil unless at least
// one complement-classified candidate was added (spec §4.3: "keep the
// mosaic iff it added at least one complement").
func grow(seed *types.Tile, candidates []*types.Tile, maxDays int, pass string) *types.MosaicCandidate {
	base := *seed // synthetic base: a copy whose GeographicCoverage we mutate as we go
	accumulated := seed.GeographicCoverage

	m := &types.MosaicCandidate{
		GroupID:   GroupID(pass, seed.Filename),
		BaseImage: seed,
		Images:    []*types.Tile{seed},
	}
	if seed.Date != nil {
		m.StartDate, m.EndDate = *seed.Date, *seed.Date
	}

	var added int
	for _, cand := range candidates {
		if m.ContainsFilename(cand.Filename) {
			continue
		}
		rec := Score(&base, cand, maxDays)
		if rec == nil {
			continue
		}

		m.Images = append(m.Images, cand)
		accumulated = rec.NewCoverage
		base.GeographicCoverage = accumulated

		if cand.Date != nil {
			if cand.Date.Before(m.StartDate) {
				m.StartDate = *cand.Date
			}
			if cand.Date.After(m.EndDate) {
				m.EndDate = *cand.Date
			}
		}

		m.OverlapDetails = append(m.OverlapDetails, types.OverlapDetail{
			OtherFilename: rec.OtherFilename,
			OverlapArea:   rec.OverlapArea,
			Effectiveness: rec.Effectiveness,
			OrbitBonus:    rec.OrbitBonus,
		})
		if cand.Classification == types.ClassComplement {
			added++
		}
	}

	if added == 0 {
		return nil
	}

	m.EstimatedCoverage = accumulated
	m.AvgQualityFactor = meanQuality(m.Images)
	return m
}

func meanQuality(tiles []*types.Tile) float64 {
	if len(tiles) == 0 {
		return 0
	}
	var sum float64
	for _, t := range tiles {
		sum += quality(t)
	}
	return sum / float64(len(tiles))
}
