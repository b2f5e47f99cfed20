package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/twpayne/go-dem"
)

var bboxCmd = &cobra.Command{
	Use:   "bbox LAT LON SIDE_METERS",
	Short: "Print the bounding box of a square area",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		center, sideMeters, err := parseQuery(args)
		if err != nil {
			return err
		}
		bbox, err := dem.NewBoundingBox(center, sideMeters)
		if err != nil {
			return err
		}

		result := struct {
			dem.BoundingBox
			Extent *dem.Extent `json:"extent,omitempty"`
		}{
			BoundingBox: bbox,
		}
		if withExtent, _ := cmd.Flags().GetBool("extent"); withExtent {
			extent, err := dem.GroundExtent(bbox)
			if err != nil {
				return err
			}
			result.Extent = &extent
		}

		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		return encoder.Encode(result)
	},
}

func init() {
	rootCmd.AddCommand(bboxCmd)
	bboxCmd.Flags().Bool("extent", false, "Also print the ground extent in meters")
}
