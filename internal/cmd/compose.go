package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"

	"github.com/Delevati/occmosaic/internal/aoi"
	"github.com/Delevati/occmosaic/internal/area"
	"github.com/Delevati/occmosaic/internal/compose"
	"github.com/Delevati/occmosaic/internal/geom"
	"github.com/Delevati/occmosaic/internal/occerr"
	"github.com/Delevati/occmosaic/internal/persist"
	"github.com/Delevati/occmosaic/internal/types"
	"github.com/Delevati/occmosaic/internal/worker"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var composeCmd = &cobra.Command{
	Use:   "compose",
	Short: "Compose and enrich candidate mosaics from an ingested catalog (C3+C4)",
	Long:  `Greedily groups accepted tiles into temporally-coherent candidate mosaics, then computes each mosaic's exact geometric coverage via pairwise inclusion-exclusion, writing optimization_parameters.json and its enriched *-precalc.json sibling.`,
	RunE:  runCompose,
}

func init() {
	rootCmd.AddCommand(composeCmd)

	composeCmd.Flags().String("catalog", "", "Directory holding catalog.sqlite from 'ingest'")
	composeCmd.Flags().String("aoi", "", "Path to the AOI GeoJSON file (AOI-CRS, used for C4 enrichment)")
	composeCmd.Flags().String("out", "", "Output directory for optimization_parameters.json / *-precalc.json")
	composeCmd.Flags().Int("max-days", compose.DefaultMaxDays, "Maximum temporal window for a mosaic, in days")
	composeCmd.Flags().Bool("progress", false, "Print a live progress bar while enriching mosaics")

	for _, f := range []string{"catalog", "aoi", "out", "max-days", "progress"} {
		if err := viper.BindPFlag("compose."+f, composeCmd.Flags().Lookup(f)); err != nil {
			panic(fmt.Sprintf("failed to bind flag %s: %v", f, err))
		}
	}
}

func runCompose(cmd *cobra.Command, args []string) error {
	catalogDir := viper.GetString("compose.catalog")
	aoiPath := viper.GetString("compose.aoi")
	outDir := viper.GetString("compose.out")
	maxDays := viper.GetInt("compose.max-days")
	workers := viper.GetInt("workers")

	if logger == nil {
		initLogging()
	}

	if catalogDir == "" || aoiPath == "" || outDir == "" {
		return fmt.Errorf("%w: --catalog, --aoi and --out are required", occerr.ErrBadInput)
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("%w: create output dir: %v", occerr.ErrBadInput, err)
	}

	aoiPoly, err := aoi.Load(aoiPath, geom.WGS84)
	if err != nil {
		return fmt.Errorf("%w: load AOI: %v", occerr.ErrBadInput, err)
	}

	cat, err := persist.OpenCatalog(filepath.Join(catalogDir, "catalog.sqlite"))
	if err != nil {
		return fmt.Errorf("open catalog: %w", err)
	}
	defer cat.Close()

	records, err := cat.Accepted()
	if err != nil {
		return fmt.Errorf("read accepted tiles: %w", err)
	}
	if len(records) == 0 {
		return fmt.Errorf("%w: catalog has no accepted tiles", occerr.ErrBadInput)
	}

	accepted := make([]*types.Tile, 0, len(records))
	for _, rec := range records {
		accepted = append(accepted, persist.TileFromRecord(rec))
	}

	logger.Info("composing candidate mosaics", "accepted_tiles", len(accepted), "max_days", maxDays)
	mosaics := compose.Run(accepted, compose.Options{MaxDays: maxDays})
	logger.Info("composition complete", "mosaics", len(mosaics))

	params := persist.OptimizationParameters{
		ImageCatalog: catalogEntries(accepted),
	}
	for _, m := range mosaics {
		params.MosaicGroups = append(params.MosaicGroups, persist.MosaicGroupFromCandidate(m))
	}
	if err := persist.WriteOptimizationParameters(filepath.Join(outDir, "optimization_parameters.json"), params); err != nil {
		return fmt.Errorf("write optimization_parameters.json: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received interrupt, cancelling enrichment")
		cancel()
	}()

	aoiCRSPoly, err := geom.Reproject(aoiPoly, firstTileCRS(accepted, aoiPoly.CRS))
	if err != nil {
		return fmt.Errorf("%w: reproject AOI for enrichment: %v", occerr.ErrBadInput, err)
	}

	logger.Info("enriching mosaics with exact geometric coverage", "workers", workers)
	progress := worker.NewProgress(len(mosaics), "mosaics", viper.GetBool("compose.progress"))
	enriched := area.EnrichAll(ctx, mosaics, aoiCRSPoly, workers, progress.Callback())
	progress.Done()
	logger.Info("enrichment complete", "summary", progress.Summary(), "enriched_mosaics", len(enriched))

	precalc := persist.OptimizationParameters{ImageCatalog: params.ImageCatalog}
	for _, m := range enriched {
		precalc.MosaicGroups = append(precalc.MosaicGroups, persist.MosaicGroupFromCandidate(m))
	}
	if err := persist.WriteOptimizationParameters(filepath.Join(outDir, "optimization_parameters-precalc.json"), precalc); err != nil {
		return fmt.Errorf("write optimization_parameters-precalc.json: %w", err)
	}

	return nil
}

func catalogEntries(tiles []*types.Tile) []persist.CatalogEntry {
	entries := make([]persist.CatalogEntry, 0, len(tiles))
	for _, t := range tiles {
		quality := (1 - t.CloudCoverage) * t.ValidPixelsPercentage
		entries = append(entries, persist.CatalogEntryFromTile(t, quality))
	}
	return entries
}

// firstTileCRS picks the CRS the composed mosaics' footprints are actually
// in, so the AOI used for C4 enrichment lines up with them instead of
// staying in whatever CRS it was authored in. Falls back to fallback if
// no tile carries bounds.
func firstTileCRS(tiles []*types.Tile, fallback geom.CRS) geom.CRS {
	for _, t := range tiles {
		if t.Bounds != nil && t.CRS != "" {
			return t.CRS
		}
	}
	return fallback
}
