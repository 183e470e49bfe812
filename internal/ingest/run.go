package ingest

import (
	"context"
	"log/slog"

	"github.com/Delevati/occmosaic/internal/geom"
	"github.com/Delevati/occmosaic/internal/persist"
	"github.com/Delevati/occmosaic/internal/types"
	"github.com/Delevati/occmosaic/internal/worker"
)

// Summary is the batch-level outcome of ingesting a set of bundles.
type Summary struct {
	Accepted int
	Rejected int
	Errored  int
}

// Run ingests every bundle in bundlePaths against aoiWGS84, in parallel
// (spec §5: C2's per-tile fan-out is embarrassingly parallel, each task
// using its own scratch directory), writing every tile's record to cat
// (spec §4.2 step 7's durable store).
func Run(ctx context.Context, bundlePaths []string, aoiWGS84 *geom.Polygon, scratchRoot string, workers int, cat *persist.Catalog, onProgress worker.ProgressFunc) (Summary, error) {
	run := func(ctx context.Context, bundlePath string) (*types.Tile, error) {
		return IngestBundle(bundlePath, aoiWGS84, scratchRoot)
	}

	pool := worker.New(worker.Config[string, *types.Tile]{Workers: workers, Run: run, OnProgress: onProgress})
	results := pool.Run(ctx, bundlePaths)

	var summary Summary
	for _, r := range results {
		if r.Err != nil {
			slog.Error("bundle ingestion aborted unexpectedly", "bundle", r.Task, "error", r.Err)
			summary.Errored++
			continue
		}
		tile := r.Value
		switch tile.Status {
		case types.StatusAccepted:
			summary.Accepted++
		case types.StatusRejected:
			summary.Rejected++
			slog.Warn("tile rejected", "filename", tile.Filename, "reason", tile.Reason)
		case types.StatusError:
			summary.Errored++
			slog.Warn("tile ingestion error", "filename", tile.Filename, "reason", tile.Reason)
		}
		if err := cat.WriteTile(persist.TileRecordFromTile(tile)); err != nil {
			return summary, err
		}
	}

	if err := cat.Flush(); err != nil {
		return summary, err
	}
	return summary, nil
}
