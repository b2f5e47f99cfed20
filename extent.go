package dem

import (
	"fmt"
	"math"

	"github.com/twpayne/go-proj/v11"
)

// An Extent is the size of a bounding box on the ground, in meters.
type Extent struct {
	WidthMeters  float64 `json:"widthMeters"`
	HeightMeters float64 `json:"heightMeters"`
	EPSG         int     `json:"epsg"`
}

// GroundExtent returns the width and height of bbox measured along its
// center lines in the UTM zone of its center.
func GroundExtent(bbox BoundingBox) (Extent, error) {
	if !bbox.Valid() {
		return Extent{}, fmt.Errorf("invalid bounding box: %s", bbox)
	}
	center := bbox.Center()
	epsg := utmEPSG(center)
	pj, err := proj.NewCRSToCRS("epsg:4326", fmt.Sprintf("epsg:%d", epsg), nil)
	if err != nil {
		return Extent{}, err
	}
	defer pj.Destroy()

	// EPSG:4326 axis order is lat, lon.
	projected := [][]float64{
		{center.Lat, bbox.West},
		{center.Lat, bbox.East},
		{bbox.South, center.Lon},
		{bbox.North, center.Lon},
	}
	if err := pj.ForwardFloat64Slices(projected); err != nil {
		return Extent{}, err
	}
	return Extent{
		WidthMeters:  math.Hypot(projected[1][0]-projected[0][0], projected[1][1]-projected[0][1]),
		HeightMeters: math.Hypot(projected[3][0]-projected[2][0], projected[3][1]-projected[2][1]),
		EPSG:         epsg,
	}, nil
}

// utmEPSG returns the EPSG code of the WGS 84 UTM zone containing p.
func utmEPSG(p GeoPoint) int {
	zone := int(math.Floor((p.Lon+180)/6)) + 1
	zone = min(max(zone, 1), 60)
	if p.Lat < 0 {
		return 32700 + zone
	}
	return 32600 + zone
}
