package fleet

import "math"

const earthRadiusMetres = 6371000

// Location is a GeoJSON point. Coordinates are WGS84 [longitude, latitude].
type Location struct {
	Type        string    `json:"-" bson:"type" groups:"internal"`
	Coordinates []float64 `json:"coordinates" bson:"coordinates" groups:"basic"`
}

func NewLocation(longitude float64, latitude float64) Location {
	return Location{
		Type:        "Point",
		Coordinates: []float64{longitude, latitude},
	}
}

func (l *Location) Longitude() float64 {
	return l.Coordinates[0]
}

func (l *Location) Latitude() float64 {
	return l.Coordinates[1]
}

// DistanceTo returns the great-circle distance to the other location in
// metres. Planar distance drifts too far at city scale, so haversine it is.
func (l *Location) DistanceTo(other Location) float64 {
	lat1 := l.Latitude() * math.Pi / 180
	lat2 := other.Latitude() * math.Pi / 180
	deltaLat := (other.Latitude() - l.Latitude()) * math.Pi / 180
	deltaLon := (other.Longitude() - l.Longitude()) * math.Pi / 180

	a := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(deltaLon/2)*math.Sin(deltaLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusMetres * c
}

// Valid reports whether the location is inside WGS84 bounds and is not the
// (0,0) sentinel a device emits before it has a GPS fix.
func (l *Location) Valid() bool {
	if len(l.Coordinates) != 2 {
		return false
	}

	longitude := l.Longitude()
	latitude := l.Latitude()

	if latitude < -90 || latitude > 90 {
		return false
	}
	if longitude < -180 || longitude > 180 {
		return false
	}
	if latitude == 0 && longitude == 0 {
		return false
	}

	return true
}
