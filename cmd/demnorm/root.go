package main

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/twpayne/go-dem"
)

var rootCmd = &cobra.Command{
	Use:   "demnorm",
	Short: "Prepare digital elevation models for terrain rendering",
	Long: `demnorm fetches and normalizes digital elevation models.

Rasters are cropped to squares around their centers, water depths are
optionally estimated from the distance to land, and the result is written as
a row-major little-endian float32 texture payload.

Configuration can be set via environment variables, a .env file, or
command-line flags. Flags take precedence over environment variables.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		var level slog.Level
		if err := level.UnmarshalText([]byte(getConfigString(cmd, "log-level", "DEMNORM_LOG_LEVEL", "info"))); err != nil {
			return err
		}
		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
		slog.SetDefault(logger)
		dem.SetLogger(logger)
		return nil
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("api-key", "", "OpenTopography API key")
	rootCmd.PersistentFlags().String("base-url", dem.DefaultOpenTopographyBaseURL, "OpenTopography base URL")
	rootCmd.PersistentFlags().String("dem-type", dem.DefaultDEMType, "OpenTopography global DEM type")
	rootCmd.PersistentFlags().Duration("timeout", defaultTimeout, "Timeout for fetching a DEM")
	rootCmd.PersistentFlags().IntP("workers", "w", 1, "Number of goroutines used for depth estimation")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
}
