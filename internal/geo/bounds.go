// Package geo provides the bounding-box inclusion filter shared by the sync
// pipeline and the query layer. Both must use the same Bounds value so the
// retained region cannot drift between call sites.
package geo

// Bounds is an inclusive geographic bounding box.
type Bounds struct {
	MinLat float64
	MaxLat float64
	MinLon float64
	MaxLon float64
}

// EU covers the European service region: 35-72°N, 11°W-40°E.
var EU = Bounds{MinLat: 35, MaxLat: 72, MinLon: -11, MaxLon: 40}

// Contains reports whether the coordinate pair lies inside the box,
// boundaries included. Missing coordinates are outside, not an error.
func (b Bounds) Contains(lat, lon *float64) bool {
	if lat == nil || lon == nil {
		return false
	}
	return *lat >= b.MinLat && *lat <= b.MaxLat &&
		*lon >= b.MinLon && *lon <= b.MaxLon
}

// ValidCoordinates reports whether the pair is a physically possible GPS
// position (lat in [-90,90], lon in [-180,180]).
func ValidCoordinates(lat, lon float64) bool {
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}
