package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"log/slog"

	"github.com/Delevati/occmosaic/internal/occerr"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string
var logger *slog.Logger

var rootCmd = &cobra.Command{
	Use:   "occmosaic",
	Short: "Select high-quality Sentinel-2 tile mosaics over an area of interest",
	Long: `occmosaic ingests Sentinel-2 L2A bundles against an area of interest,
greedily composes temporally-coherent candidate mosaics, computes their
exact geometric coverage, and selects a non-redundant subset via a
Mixed-Integer Linear Program.`,
}

// Execute runs the root command and maps the returned error to spec §6's
// exit code taxonomy: 0 success, 1 configuration error, 2 data error
// (per-stage bad input or aggregate item failure), 3 solver failure.
func Execute() {
	if logger == nil {
		initLogging() // fallback in case cobra init didn't fire
	}
	err := rootCmd.Execute()
	os.Exit(exitCodeFor(err))
}

func exitCodeFor(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, occerr.ErrSolverFailure), errors.Is(err, occerr.ErrInfeasible):
		fmt.Fprintln(os.Stderr, err)
		return 3
	case errors.Is(err, occerr.ErrBadInput):
		fmt.Fprintln(os.Stderr, err)
		return 2
	default:
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
}

func init() {
	cobra.OnInitialize(initConfig, initLogging)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Int("workers", 0, "Number of parallel workers (default: number of CPUs)")
	rootCmd.PersistentFlags().Bool("verbose", false, "Enable verbose logging")

	if err := viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level")); err != nil {
		panic(fmt.Sprintf("failed to bind flag: %v", err))
	}
	if err := viper.BindPFlag("workers", rootCmd.PersistentFlags().Lookup("workers")); err != nil {
		panic(fmt.Sprintf("failed to bind flag: %v", err))
	}
	if err := viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose")); err != nil {
		panic(fmt.Sprintf("failed to bind flag: %v", err))
	}
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	viper.SetEnvPrefix("OCCMOSAIC")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		if viper.GetBool("verbose") {
			fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
		}
	}
}

func initLogging() {
	levelStr := strings.ToLower(viper.GetString("log-level"))
	level := slog.LevelInfo
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info", "":
		level = slog.LevelInfo
	case "warn", "warning":
		level = slog.LevelWarn
	case "error", "err":
		level = slog.LevelError
	default:
		fmt.Fprintf(os.Stderr, "Unknown log level %q, defaulting to info\n", levelStr)
		level = slog.LevelInfo
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	logger = slog.New(handler)
	slog.SetDefault(logger)
}
