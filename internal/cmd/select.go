package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Delevati/occmosaic/internal/milp"
	"github.com/Delevati/occmosaic/internal/occerr"
	"github.com/Delevati/occmosaic/internal/persist"
	"github.com/Delevati/occmosaic/internal/types"
	"github.com/lukpank/go-glpk/glpk"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var selectCmd = &cobra.Command{
	Use:   "select",
	Short: "Select a non-redundant subset of candidate mosaics via MILP (C5)",
	Long:  `Builds spec §4.5's Mixed-Integer Linear Program over a *-precalc.json artifact's enriched mosaics and solves it with GLPK, writing the chosen subset, its objective value, and an incremental-coverage witness.`,
	RunE:  runSelect,
}

func init() {
	rootCmd.AddCommand(selectCmd)

	selectCmd.Flags().String("precalc", "", "Path to the *-precalc.json artifact from 'compose'")
	selectCmd.Flags().String("out", "", "Output directory for selection.json and solver.log")
	selectCmd.Flags().String("variant", "pair-disjunction", "Constraint 4 formulation: pair-disjunction | linearized-coverage")
	selectCmd.Flags().String("intersection", "area", "Iⱼₖ estimator: area | shared-image-ratio")
	selectCmd.Flags().Float64("aoi-area", 0, "AOI area in AOI-CRS units, required by --intersection=shared-image-ratio")

	for _, f := range []string{"precalc", "out", "variant", "intersection", "aoi-area"} {
		if err := viper.BindPFlag("select."+f, selectCmd.Flags().Lookup(f)); err != nil {
			panic(fmt.Sprintf("failed to bind flag %s: %v", f, err))
		}
	}
}

func runSelect(cmd *cobra.Command, args []string) error {
	precalcPath := viper.GetString("select.precalc")
	outDir := viper.GetString("select.out")
	variantFlag := strings.ToLower(viper.GetString("select.variant"))
	intersectionFlag := strings.ToLower(viper.GetString("select.intersection"))
	aoiArea := viper.GetFloat64("select.aoi-area")

	if logger == nil {
		initLogging()
	}

	if precalcPath == "" || outDir == "" {
		return fmt.Errorf("%w: --precalc and --out are required", occerr.ErrBadInput)
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("%w: create output dir: %v", occerr.ErrBadInput, err)
	}

	opts := milp.DefaultOptions()
	switch variantFlag {
	case "pair-disjunction":
		opts.ConstraintVariant = milp.PairDisjunction
	case "linearized-coverage":
		opts.ConstraintVariant = milp.LinearizedCoverageFloor
	default:
		return fmt.Errorf("%w: unknown --variant %q", occerr.ErrBadInput, variantFlag)
	}
	switch intersectionFlag {
	case "area":
		opts.IjkVariant = milp.IjkConservative
	case "shared-image-ratio":
		opts.IjkVariant = milp.IjkSharedImageRatio
		if aoiArea <= 0 {
			return fmt.Errorf("%w: --intersection=shared-image-ratio requires --aoi-area > 0", occerr.ErrBadInput)
		}
	default:
		return fmt.Errorf("%w: unknown --intersection %q", occerr.ErrBadInput, intersectionFlag)
	}
	opts.AOIArea = aoiArea

	params, err := persist.ReadOptimizationParameters(precalcPath)
	if err != nil {
		return err
	}
	if len(params.MosaicGroups) == 0 {
		return fmt.Errorf("%w: %s has no mosaic_groups", occerr.ErrBadInput, precalcPath)
	}

	catalog := make(map[string]persist.CatalogEntry, len(params.ImageCatalog))
	for _, entry := range params.ImageCatalog {
		catalog[entry.Filename] = entry
	}

	candidates := make([]*types.MosaicCandidate, 0, len(params.MosaicGroups))
	for _, g := range params.MosaicGroups {
		m, err := persist.MosaicCandidateFromGroup(g, catalog)
		if err != nil {
			return fmt.Errorf("%w: %v", occerr.ErrBadInput, err)
		}
		if !m.Enriched {
			return fmt.Errorf("%w: mosaic %s has not been enriched by 'compose' (missing pie_coverage_ratio)", occerr.ErrBadInput, m.GroupID)
		}
		candidates = append(candidates, m)
	}

	logger.Info("selecting mosaics", "candidates", len(candidates), "variant", variantFlag, "intersection", intersectionFlag)
	solver := milp.NewGLPKSolver()
	solver.MessageLevel = glpkVerboseLevel()

	result, err := milp.Select(context.Background(), candidates, opts, solver)
	if err != nil {
		return err
	}
	logger.Info("selection complete", "selected", len(result.Selected), "objective", result.ObjectiveValue)

	if err := writeSelectionLog(outDir, opts, result); err != nil {
		return err
	}
	return writeSelectionResult(outDir, result)
}

// writeSelectionResult persists the chosen subset as selection.json in the
// MosaicGroup wire shape. Its image_catalog is left empty, and the witness
// is written to solver.log by writeSelectionLog, not here.
func writeSelectionResult(outDir string, result *milp.Result) error {
	selection := persist.OptimizationParameters{}
	for _, m := range result.Selected {
		selection.MosaicGroups = append(selection.MosaicGroups, persist.MosaicGroupFromCandidate(m))
	}
	return persist.WriteOptimizationParameters(filepath.Join(outDir, "selection.json"), selection)
}

// writeSelectionLog writes a human-readable solver.log alongside
// selection.json, grounded on the Python original's
// cplex_utils/save_log.py pattern of keeping the solver's run
// parameters and result next to its output artifact.
func writeSelectionLog(outDir string, opts milp.Options, result *milp.Result) error {
	var b strings.Builder
	fmt.Fprintf(&b, "solver: glpk (branch-and-cut MIP)\n")
	fmt.Fprintf(&b, "intersection_variant: %v\n", opts.IjkVariant)
	fmt.Fprintf(&b, "constraint_variant: %v\n", opts.ConstraintVariant)
	fmt.Fprintf(&b, "objective_value: %s\n", strconv.FormatFloat(result.ObjectiveValue, 'f', 6, 64))
	fmt.Fprintf(&b, "selected_count: %d\n", len(result.Selected))
	for _, w := range result.Witness {
		fmt.Fprintf(&b, "witness: group_id=%s coverage=%.6f marginal=%.6f running=%.6f\n",
			w.GroupID, w.Coverage, w.MarginalCoverage, w.RunningCoverage)
	}
	return os.WriteFile(filepath.Join(outDir, "solver.log"), []byte(b.String()), 0o644)
}

func glpkVerboseLevel() glpk.MsgLev {
	if viper.GetBool("verbose") {
		return glpk.MSG_ALL
	}
	return glpk.MSG_OFF
}
