package geo

import (
	"errors"
	"fmt"
	"math"
)

const earthRadiusMeters = 6371000.0

// Geofence radius policy. Job radii are clamped so a misconfigured job can be
// neither too strict (urban GPS drift) nor too permissive, and the reported
// device accuracy is added as a buffer with a floor of MinAccuracyBuffer.
const (
	DefaultRadiusMeters     = 100.0
	MinRadiusMeters         = 75.0
	MaxRadiusMeters         = 250.0
	MinAccuracyBufferMeters = 15.0
)

var ErrInvalidCoordinate = errors.New("invalid coordinate")

type Point struct {
	Lat float64
	Lng float64
}

func (p Point) Validate() error {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lng) || math.IsInf(p.Lat, 0) || math.IsInf(p.Lng, 0) {
		return fmt.Errorf("%w: lat/lng must be finite numbers", ErrInvalidCoordinate)
	}
	if p.Lat < -90 || p.Lat > 90 {
		return fmt.Errorf("%w: latitude %v out of range [-90, 90]", ErrInvalidCoordinate, p.Lat)
	}
	if p.Lng < -180 || p.Lng > 180 {
		return fmt.Errorf("%w: longitude %v out of range [-180, 180]", ErrInvalidCoordinate, p.Lng)
	}
	return nil
}

// DistanceMeters returns the great-circle (Haversine) distance between two
// points in meters.
func DistanceMeters(a, b Point) (float64, error) {
	if err := a.Validate(); err != nil {
		return 0, err
	}
	if err := b.Validate(); err != nil {
		return 0, err
	}

	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadiusMeters * c, nil
}

// WithinGeofence reports whether point is inside the circle around center.
// The boundary is inclusive: a point at exactly radiusMeters is inside.
// The computed distance is returned as well so callers can surface it.
func WithinGeofence(point, center Point, radiusMeters float64) (bool, float64, error) {
	dist, err := DistanceMeters(point, center)
	if err != nil {
		return false, 0, err
	}
	return dist <= radiusMeters, dist, nil
}

// EffectiveRadius applies the adaptive radius policy for a job geofence.
// A nil job radius falls back to the default before clamping.
func EffectiveRadius(jobRadiusMeters *float64, reportedAccuracyMeters float64) float64 {
	radius := DefaultRadiusMeters
	if jobRadiusMeters != nil {
		radius = *jobRadiusMeters
	}
	if radius < MinRadiusMeters {
		radius = MinRadiusMeters
	}
	if radius > MaxRadiusMeters {
		radius = MaxRadiusMeters
	}

	buffer := reportedAccuracyMeters
	if buffer < MinAccuracyBufferMeters {
		buffer = MinAccuracyBufferMeters
	}

	return radius + buffer
}
