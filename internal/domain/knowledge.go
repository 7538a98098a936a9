package domain

import "math"

// POIKind names a category of knowledge-base entries.
type POIKind string

// Knowledge-base categories.
const (
	KindAttraction POIKind = "attraction"
	KindHotel      POIKind = "hotel"
	KindRestaurant POIKind = "restaurant"
	KindStation    POIKind = "station"
)

// GeoPoint is a WGS84 coordinate.
type GeoPoint struct {
	Lat float64 `json:"lat" yaml:"lat"`
	Lon float64 `json:"lon" yaml:"lon"`
}

// DistanceKm returns the great-circle distance between two points.
func (g GeoPoint) DistanceKm(o GeoPoint) float64 {
	const earthRadiusKm = 6371.0
	toRad := func(d float64) float64 { return d * math.Pi / 180 }
	dLat := toRad(o.Lat - g.Lat)
	dLon := toRad(o.Lon - g.Lon)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(g.Lat))*math.Cos(toRad(o.Lat))*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKm * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// OpeningHours is a daily [Open, Close] window.
type OpeningHours struct {
	Open  Clock `json:"open" yaml:"open"`
	Close Clock `json:"close" yaml:"close"`
}

// Covers reports whether [start, end] fits inside the window.
func (h OpeningHours) Covers(start, end Clock) bool {
	return start >= h.Open && end <= h.Close
}

// POI is a named point of interest in a city.
type POI struct {
	Name     string       `json:"name" yaml:"name"`
	City     string       `json:"city" yaml:"city"`
	Location GeoPoint     `json:"location" yaml:"location"`
	Hours    OpeningHours `json:"hours" yaml:"hours"`
	Price    float64      `json:"price" yaml:"price"`
}

// Attraction is a sightseeing venue.
type Attraction struct {
	POI  `yaml:",inline"`
	Type string `json:"attraction_type" yaml:"attraction_type"`
}

// Hotel is an accommodation venue. Capacity is the number of guests one
// room of RoomType holds.
type Hotel struct {
	POI      `yaml:",inline"`
	Type     string `json:"hotel_type" yaml:"hotel_type"`
	RoomType int    `json:"room_type" yaml:"room_type"`
}

// Restaurant is a dining venue. Price is per person.
type Restaurant struct {
	POI     `yaml:",inline"`
	Cuisine string `json:"cuisine" yaml:"cuisine"`
}

// Station is a railway station or airport.
type Station struct {
	Name     string   `json:"name" yaml:"name"`
	City     string   `json:"city" yaml:"city"`
	Location GeoPoint `json:"location" yaml:"location"`
}

// IntercityTransport is one scheduled train or flight.
type IntercityTransport struct {
	ID          string       `json:"id" yaml:"id"`
	Kind        ActivityType `json:"kind" yaml:"kind"`
	Origin      string       `json:"origin" yaml:"origin"`
	Destination string       `json:"destination" yaml:"destination"`
	OriginCity  string       `json:"origin_city" yaml:"origin_city"`
	DestCity    string       `json:"destination_city" yaml:"destination_city"`
	Depart      Clock        `json:"depart" yaml:"depart"`
	Arrive      Clock        `json:"arrive" yaml:"arrive"`
	Price       float64      `json:"price" yaml:"price"`
}
