package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistanceMeters(t *testing.T) {
	tests := []struct {
		name     string
		a, b     Point
		expected float64
		delta    float64
	}{
		{
			name:     "Same point",
			a:        Point{Lat: -27.4698, Lng: 153.0251},
			b:        Point{Lat: -27.4698, Lng: 153.0251},
			expected: 0,
			delta:    0.01,
		},
		{
			name: "One degree of latitude",
			a:    Point{Lat: 0, Lng: 0},
			b:    Point{Lat: 1, Lng: 0},
			// one degree of latitude is ~111.19 km on a 6371 km sphere
			expected: 111195,
			delta:    50,
		},
		{
			name:     "Short hop in Brisbane",
			a:        Point{Lat: -27.4698, Lng: 153.0251},
			b:        Point{Lat: -27.4705, Lng: 153.0260},
			expected: 118,
			delta:    5,
		},
		{
			name:     "Across the antimeridian",
			a:        Point{Lat: 0, Lng: 179.9995},
			b:        Point{Lat: 0, Lng: -179.9995},
			expected: 111.2,
			delta:    1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dist, err := DistanceMeters(tt.a, tt.b)
			assert.NoError(t, err)
			assert.InDelta(t, tt.expected, dist, tt.delta)
		})
	}
}

func TestDistanceMetersInvalidInput(t *testing.T) {
	valid := Point{Lat: -27.4698, Lng: 153.0251}

	tests := []struct {
		name string
		p    Point
	}{
		{name: "NaN latitude", p: Point{Lat: math.NaN(), Lng: 153}},
		{name: "NaN longitude", p: Point{Lat: -27, Lng: math.NaN()}},
		{name: "Latitude above range", p: Point{Lat: 90.01, Lng: 0}},
		{name: "Latitude below range", p: Point{Lat: -90.01, Lng: 0}},
		{name: "Longitude above range", p: Point{Lat: 0, Lng: 180.5}},
		{name: "Infinite longitude", p: Point{Lat: 0, Lng: math.Inf(1)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DistanceMeters(tt.p, valid)
			assert.ErrorIs(t, err, ErrInvalidCoordinate)

			_, err = DistanceMeters(valid, tt.p)
			assert.ErrorIs(t, err, ErrInvalidCoordinate)
		})
	}
}

func TestWithinGeofenceInclusiveBoundary(t *testing.T) {
	center := Point{Lat: -27.4698, Lng: 153.0251}
	point := Point{Lat: -27.4709, Lng: 153.0251} // ~122m due south

	dist, err := DistanceMeters(point, center)
	assert.NoError(t, err)
	assert.Greater(t, dist, 100.0)

	// radius exactly at the distance: inside
	inside, got, err := WithinGeofence(point, center, dist)
	assert.NoError(t, err)
	assert.True(t, inside)
	assert.InDelta(t, dist, got, 0.001)

	// one meter short: outside
	inside, _, err = WithinGeofence(point, center, dist-1)
	assert.NoError(t, err)
	assert.False(t, inside)

	// one meter spare: inside
	inside, _, err = WithinGeofence(point, center, dist+1)
	assert.NoError(t, err)
	assert.True(t, inside)
}

func TestEffectiveRadius(t *testing.T) {
	tests := []struct {
		name      string
		jobRadius *float64
		accuracy  float64
		expected  float64
	}{
		{name: "Default radius with min buffer", jobRadius: nil, accuracy: 5, expected: 115},
		{name: "Default radius with real accuracy", jobRadius: nil, accuracy: 30, expected: 130},
		{name: "Clamped up from 50", jobRadius: ptr(50.0), accuracy: 10, expected: 90},
		{name: "Clamped down from 400", jobRadius: ptr(400.0), accuracy: 20, expected: 270},
		{name: "In-range radius kept", jobRadius: ptr(150.0), accuracy: 15, expected: 165},
		{name: "Zero accuracy gets min buffer", jobRadius: ptr(100.0), accuracy: 0, expected: 115},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, EffectiveRadius(tt.jobRadius, tt.accuracy))
		})
	}
}

func ptr[T any](v T) *T {
	return &v
}
