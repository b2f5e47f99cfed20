package main

import (
	"fmt"
	"strconv"

	"github.com/twpayne/go-dem"
)

// parseQuery parses latitude, longitude, and side length arguments.
func parseQuery(args []string) (dem.GeoPoint, float64, error) {
	values := make([]float64, len(args))
	for i, arg := range args {
		value, err := strconv.ParseFloat(arg, 64)
		if err != nil {
			return dem.GeoPoint{}, 0, fmt.Errorf("%s: %w", arg, err)
		}
		values[i] = value
	}
	return dem.GeoPoint{Lat: values[0], Lon: values[1]}, values[2], nil
}
