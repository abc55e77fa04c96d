// Package geo holds coordinates, device positions and great-circle distance.
package geo

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// EarthRadiusMeters is the mean Earth radius used by HaversineDistanceMeters.
const EarthRadiusMeters = 6371000.0

// Coordinate is a point in decimal degrees. It encodes to JSON as
// [longitude, latitude].
type Coordinate struct {
	Longitude float64 `bson:"longitude" dynamodbav:"longitude"`
	Latitude  float64 `bson:"latitude" dynamodbav:"latitude"`
}

// Position is a single fix reported by a geolocation source.
type Position struct {
	Coordinate `bson:",inline"`
	Accuracy  float64   `json:"accuracy" bson:"accuracy"`
	Timestamp time.Time `json:"timestamp" bson:"timestamp"`
}

func (c Coordinate) String() string {
	return fmt.Sprintf("(%.6f, %.6f)", c.Longitude, c.Latitude)
}

// Valid reports whether the coordinate is finite and inside the
// longitude/latitude ranges.
func (c Coordinate) Valid() bool {
	if math.IsNaN(c.Longitude) || math.IsNaN(c.Latitude) {
		return false
	}
	return c.Longitude >= -180 && c.Longitude <= 180 && c.Latitude >= -90 && c.Latitude <= 90
}

func (c Coordinate) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{c.Longitude, c.Latitude})
}

func (c *Coordinate) UnmarshalJSON(data []byte) error {
	var pair []float64
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("coordinate must be [longitude, latitude]: %w", err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("coordinate must have 2 elements, got %d", len(pair))
	}
	c.Longitude, c.Latitude = pair[0], pair[1]
	return nil
}

// positionJSON flattens the embedded coordinate so fixes travel as
// {"longitude":..,"latitude":..,"accuracy":..,"timestamp":..}.
type positionJSON struct {
	Longitude float64   `json:"longitude"`
	Latitude  float64   `json:"latitude"`
	Accuracy  float64   `json:"accuracy"`
	Timestamp time.Time `json:"timestamp"`
}

func (p Position) MarshalJSON() ([]byte, error) {
	return json.Marshal(positionJSON{
		Longitude: p.Longitude,
		Latitude:  p.Latitude,
		Accuracy:  p.Accuracy,
		Timestamp: p.Timestamp,
	})
}

func (p *Position) UnmarshalJSON(data []byte) error {
	var raw positionJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	p.Longitude = raw.Longitude
	p.Latitude = raw.Latitude
	p.Accuracy = raw.Accuracy
	p.Timestamp = raw.Timestamp
	return nil
}

// HaversineDistanceMeters returns the great-circle distance between a and b.
// NaN inputs yield NaN.
func HaversineDistanceMeters(a, b Coordinate) float64 {
	lat1 := a.Latitude * math.Pi / 180
	lat2 := b.Latitude * math.Pi / 180
	deltaLat := (b.Latitude - a.Latitude) * math.Pi / 180
	deltaLon := (b.Longitude - a.Longitude) * math.Pi / 180

	h := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*
			math.Sin(deltaLon/2)*math.Sin(deltaLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return EarthRadiusMeters * c
}
