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
	"github.com/Delevati/occmosaic/internal/geom"
	"github.com/Delevati/occmosaic/internal/ingest"
	"github.com/Delevati/occmosaic/internal/occerr"
	"github.com/Delevati/occmosaic/internal/persist"
	"github.com/Delevati/occmosaic/internal/worker"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Ingest Sentinel-2 bundles against an AOI (C1+C2)",
	Long:  `Computes per-tile coverage and cloud statistics for every bundle in a directory, classifies each as accepted/rejected/errored, and persists the result to a durable catalog.`,
	RunE:  runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)

	ingestCmd.Flags().String("aoi", "", "Path to the AOI GeoJSON file")
	ingestCmd.Flags().String("bundles", "", "Directory of Sentinel-2 bundle zips")
	ingestCmd.Flags().String("out", "", "Output directory (catalog + optimization_parameters.json)")
	ingestCmd.Flags().String("scratch", "", "Scratch directory for bundle extraction (default: out/scratch)")
	ingestCmd.Flags().Bool("progress", false, "Print a live progress bar while ingesting")

	for _, f := range []string{"aoi", "bundles", "out", "scratch", "progress"} {
		if err := viper.BindPFlag("ingest."+f, ingestCmd.Flags().Lookup(f)); err != nil {
			panic(fmt.Sprintf("failed to bind flag %s: %v", f, err))
		}
	}
}

func runIngest(cmd *cobra.Command, args []string) error {
	aoiPath := viper.GetString("ingest.aoi")
	bundlesDir := viper.GetString("ingest.bundles")
	outDir := viper.GetString("ingest.out")
	scratchDir := viper.GetString("ingest.scratch")
	workers := viper.GetInt("workers")

	if logger == nil {
		initLogging()
	}

	if aoiPath == "" || bundlesDir == "" || outDir == "" {
		return fmt.Errorf("%w: --aoi, --bundles and --out are required", occerr.ErrBadInput)
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if scratchDir == "" {
		scratchDir = filepath.Join(outDir, "scratch")
	}
	if err := os.MkdirAll(scratchDir, 0o755); err != nil {
		return fmt.Errorf("%w: create scratch dir: %v", occerr.ErrBadInput, err)
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("%w: create output dir: %v", occerr.ErrBadInput, err)
	}

	aoiPoly, err := aoi.Load(aoiPath, geom.WGS84)
	if err != nil {
		return fmt.Errorf("%w: load AOI: %v", occerr.ErrBadInput, err)
	}
	aoiWGS84, err := geom.Reproject(aoiPoly, geom.WGS84)
	if err != nil {
		return fmt.Errorf("%w: reproject AOI to WGS84: %v", occerr.ErrBadInput, err)
	}

	bundles, err := filepath.Glob(filepath.Join(bundlesDir, "*.zip"))
	if err != nil {
		return fmt.Errorf("%w: glob bundles dir: %v", occerr.ErrBadInput, err)
	}
	if len(bundles) == 0 {
		return fmt.Errorf("%w: no .zip bundles found in %s", occerr.ErrBadInput, bundlesDir)
	}

	cat, err := persist.OpenCatalog(filepath.Join(outDir, "catalog.sqlite"))
	if err != nil {
		return fmt.Errorf("open catalog: %w", err)
	}
	defer cat.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received interrupt, cancelling ingestion")
		cancel()
	}()

	logger.Info("starting ingestion", "bundles", len(bundles), "workers", workers, "out", outDir)
	progress := worker.NewProgress(len(bundles), "bundles", viper.GetBool("ingest.progress"))
	summary, err := ingest.Run(ctx, bundles, aoiWGS84, scratchDir, workers, cat, progress.Callback())
	progress.Done()
	if err != nil {
		return fmt.Errorf("%w: %v", occerr.ErrBadInput, err)
	}
	logger.Info("ingestion complete", "summary", progress.Summary(), "accepted", summary.Accepted, "rejected", summary.Rejected, "errored", summary.Errored)

	if err := writeCatalogArtifact(cat, outDir); err != nil {
		return err
	}

	if summary.Accepted == 0 {
		return fmt.Errorf("%w: no tiles were accepted", occerr.ErrBadInput)
	}
	return nil
}

// writeCatalogArtifact projects every accepted catalog record into the
// image_catalog section of optimization_parameters.json, with an empty
// mosaic_groups array — C3 fills that in. Rejected and errored records
// stay in the catalog only.
func writeCatalogArtifact(cat *persist.Catalog, outDir string) error {
	records, err := cat.All()
	if err != nil {
		return fmt.Errorf("read catalog: %w", err)
	}

	params := persist.OptimizationParameters{ImageCatalog: make([]persist.CatalogEntry, 0, len(records))}
	for _, rec := range records {
		if rec.Status != "accepted" {
			continue
		}
		quality := (1 - rec.CloudCoverage) * rec.ValidPixelsPercent
		params.ImageCatalog = append(params.ImageCatalog, persist.CatalogEntry{
			Filename:           rec.Filename,
			Class:              rec.Class,
			Date:               rec.Date,
			Orbit:              rec.Orbit,
			GeographicCoverage: rec.GeographicCoverage,
			ValidPixelsPercent: rec.ValidPixelsPercent,
			CloudCoverage:      rec.CloudCoverage,
			QualityFactor:      quality,
		})
	}

	return persist.WriteOptimizationParameters(filepath.Join(outDir, "optimization_parameters.json"), params)
}
