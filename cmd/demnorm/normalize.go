package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/twpayne/go-dem"
)

var normalizeCmd = &cobra.Command{
	Use:   "normalize FILE",
	Short: "Normalize a GeoTIFF DEM file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := LoadConfig(cmd)

		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		raw, err := dem.DecodeGeoTIFF(data)
		if err != nil {
			return fmt.Errorf("%s: %w", args[0], err)
		}

		applyDepth, _ := cmd.Flags().GetBool("depth")
		normalizedDEM, err := cfg.NewPipeline().Normalize(raw, applyDepth)
		if err != nil {
			return fmt.Errorf("%s: %w", args[0], err)
		}

		output, _ := cmd.Flags().GetString("output")
		return writeResult(cmd.OutOrStdout(), output, raw, normalizedDEM)
	},
}

// writeResult writes the texture payload of normalizedDEM to output and a
// summary to w.
func writeResult(w io.Writer, output string, raw dem.RawRaster, normalizedDEM *dem.NormalizedDEM) error {
	if output != "" {
		file, err := os.Create(output)
		if err != nil {
			return err
		}
		if _, err := normalizedDEM.WriteTo(file); err != nil {
			_ = file.Close()
			return err
		}
		if err := file.Close(); err != nil {
			return err
		}
	}
	stats := normalizedDEM.Stats()
	_, err := fmt.Fprintf(w, "input=%dx%d size=%d min=%g max=%g mean=%g\n",
		raw.Width, raw.Height, normalizedDEM.Size, stats.Min, stats.Max, stats.Mean)
	return err
}

func init() {
	rootCmd.AddCommand(normalizeCmd)
	normalizeCmd.Flags().Bool("depth", false, "Estimate water depths")
	normalizeCmd.Flags().StringP("output", "o", "", "Write the float32 texture payload to this file")
}
