package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/twpayne/go-dem"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch LAT LON SIDE_METERS",
	Short: "Fetch a DEM from OpenTopography and normalize it",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := LoadConfig(cmd)

		center, sideMeters, err := parseQuery(args)
		if err != nil {
			return err
		}
		bbox, err := dem.NewBoundingBox(center, sideMeters)
		if err != nil {
			return err
		}

		client, err := cfg.NewClient()
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Timeout)
		defer cancel()
		data, err := client.FetchGeoTIFF(ctx, bbox)
		if err != nil {
			return err
		}
		if geoTIFF, _ := cmd.Flags().GetString("geotiff"); geoTIFF != "" {
			if err := os.WriteFile(geoTIFF, data, 0o666); err != nil {
				return err
			}
		}

		raw, err := dem.DecodeGeoTIFF(data)
		if err != nil {
			return err
		}
		applyDepth, _ := cmd.Flags().GetBool("depth")
		normalizedDEM, err := cfg.NewPipeline().Normalize(raw, applyDepth)
		if err != nil {
			return err
		}

		output, _ := cmd.Flags().GetString("output")
		return writeResult(cmd.OutOrStdout(), output, raw, normalizedDEM)
	},
}

func init() {
	rootCmd.AddCommand(fetchCmd)
	fetchCmd.Flags().Bool("depth", false, "Estimate water depths")
	fetchCmd.Flags().StringP("output", "o", "", "Write the float32 texture payload to this file")
	fetchCmd.Flags().String("geotiff", "", "Also save the fetched GeoTIFF to this file")
}
