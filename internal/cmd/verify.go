package cmd

import (
	"fmt"
	"math"
	"os"

	"github.com/Delevati/occmosaic/internal/aoi"
	"github.com/Delevati/occmosaic/internal/area"
	"github.com/Delevati/occmosaic/internal/geom"
	"github.com/Delevati/occmosaic/internal/occerr"
	"github.com/Delevati/occmosaic/internal/persist"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// coverageDriftTolerance is the maximum acceptable absolute difference
// between a precalc artifact's persisted coverage ratios and a freshly
// recomputed value, grounded on the Python original's
// external-utils/3.2-area_validation.py and 3a3_razao.py cross-checks.
const coverageDriftTolerance = 1e-6

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Re-derive a *-precalc.json artifact's coverage figures and report drift",
	Long:  `Recomputes every mosaic's pie/real coverage ratio from its persisted footprints and flags any entry whose stored value has drifted from the recomputed one beyond tolerance — a standalone sanity check against a stale or hand-edited precalc artifact.`,
	RunE:  runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)

	verifyCmd.Flags().String("precalc", "", "Path to the *-precalc.json artifact to verify")
	verifyCmd.Flags().String("aoi", "", "Path to the AOI GeoJSON file, in the same CRS the precalc was enriched against")

	for _, f := range []string{"precalc", "aoi"} {
		if err := viper.BindPFlag("verify."+f, verifyCmd.Flags().Lookup(f)); err != nil {
			panic(fmt.Sprintf("failed to bind flag %s: %v", f, err))
		}
	}
}

func runVerify(cmd *cobra.Command, args []string) error {
	precalcPath := viper.GetString("verify.precalc")
	aoiPath := viper.GetString("verify.aoi")

	if logger == nil {
		initLogging()
	}
	if precalcPath == "" || aoiPath == "" {
		return fmt.Errorf("%w: --precalc and --aoi are required", occerr.ErrBadInput)
	}

	params, err := persist.ReadOptimizationParameters(precalcPath)
	if err != nil {
		return err
	}

	catalog := make(map[string]persist.CatalogEntry, len(params.ImageCatalog))
	for _, entry := range params.ImageCatalog {
		catalog[entry.Filename] = entry
	}

	aoiPoly, err := aoi.Load(aoiPath, geom.WGS84)
	if err != nil {
		return fmt.Errorf("%w: load AOI: %v", occerr.ErrBadInput, err)
	}

	var drifted int
	for _, g := range params.MosaicGroups {
		if g.PieCoverageRatio == nil {
			logger.Warn("mosaic has no persisted coverage to verify, skipping", "group_id", g.GroupID)
			continue
		}
		m, err := persist.MosaicCandidateFromGroup(g, catalog)
		if err != nil {
			return fmt.Errorf("%w: %v", occerr.ErrBadInput, err)
		}
		recomputed, err := area.Enrich(m, aoiPoly)
		if err != nil {
			logger.Warn("re-enrichment failed, skipping", "group_id", g.GroupID, "error", err)
			continue
		}

		pieDrift := math.Abs(recomputed.PieCoverageRatio - *g.PieCoverageRatio)
		var realDrift float64
		if g.RealCoverageRatio != nil {
			realDrift = math.Abs(recomputed.RealCoverageRatio - *g.RealCoverageRatio)
		}

		if pieDrift > coverageDriftTolerance || realDrift > coverageDriftTolerance {
			drifted++
			logger.Warn("coverage drift detected",
				"group_id", g.GroupID,
				"pie_coverage_ratio_stored", *g.PieCoverageRatio,
				"pie_coverage_ratio_recomputed", recomputed.PieCoverageRatio,
				"pie_drift", pieDrift,
				"real_drift", realDrift,
			)
		}
	}

	if drifted > 0 {
		fmt.Fprintf(os.Stderr, "%d mosaic(s) drifted beyond tolerance %.0e\n", drifted, coverageDriftTolerance)
		return fmt.Errorf("%w: %d mosaic(s) failed coverage verification", occerr.ErrBadInput, drifted)
	}
	logger.Info("verification passed", "mosaics_checked", len(params.MosaicGroups))
	return nil
}
