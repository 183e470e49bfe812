package area

import (
	"context"
	"log/slog"

	"github.com/Delevati/occmosaic/internal/geom"
	"github.com/Delevati/occmosaic/internal/types"
	"github.com/Delevati/occmosaic/internal/worker"
)

// EnrichAll fans Enrich out across candidate mosaics using workers
// concurrent workers (spec §5: "embarrassingly parallel fan-out ...
// across mosaics in C4 is permitted provided each task uses distinct
// temp directories and distinct raster handles"; Enrich opens no shared
// raster handles, so mosaics are safe to enrich concurrently). Mosaics
// that fail to enrich are logged and dropped from the result.
func EnrichAll(ctx context.Context, candidates []*types.MosaicCandidate, aoi *geom.Polygon, workers int, onProgress worker.ProgressFunc) []*types.MosaicCandidate {
	if workers < 1 {
		workers = 1
	}

	run := func(_ context.Context, m *types.MosaicCandidate) (*types.MosaicCandidate, error) {
		return Enrich(m, aoi)
	}
	pool := worker.New(worker.Config[*types.MosaicCandidate, *types.MosaicCandidate]{Workers: workers, Run: run, OnProgress: onProgress})
	results := pool.Run(ctx, candidates)

	out := make([]*types.MosaicCandidate, 0, len(results))
	for _, r := range results {
		if r.Err != nil {
			slog.Warn("area: mosaic enrichment failed, dropped", "group_id", r.Task.GroupID, "err", r.Err)
			continue
		}
		if r.Value == nil {
			continue
		}
		out = append(out, r.Value)
	}
	return out
}
