package reducer

import (
	"fmt"
	"time"
)

// Point is one sample. For DataTypeGPS Value holds the latitude and Timestamp the longitude,
// both in degrees; At is free for the caller and never takes part in the reduction.
type Point struct {
	Value     float64   `json:"value" yaml:"value"`
	Timestamp float64   `json:"timestamp" yaml:"timestamp"`
	At        time.Time `json:"at,omitempty" yaml:"at,omitempty"`
}

func NewPoint(value, timestamp float64) Point {
	return Point{
		Value:     value,
		Timestamp: timestamp,
	}
}

func NewLocationPoint(lat, long float64, at time.Time) Point {
	return Point{
		Value:     lat,
		Timestamp: long,
		At:        at,
	}
}

func (p Point) Lat() float64 {
	return p.Value
}

func (p Point) Long() float64 {
	return p.Timestamp
}

func (p Point) String() string {
	return fmt.Sprintf("%v:%v", p.Value, p.Timestamp)
}
