package spatial

import (
	"fmt"
	"math"

	"github.com/golang/geo/s2"
	"github.com/nearu/nearu-backend/internal/models"
)

// HaversineDistance calculates the great-circle distance between two points in meters
// using the Haversine formula
func HaversineDistance(lat1, lon1, lat2, lon2 float64) float64 {
	p1 := s2.LatLngFromDegrees(lat1, lon1)
	p2 := s2.LatLngFromDegrees(lat2, lon2)
	return p1.Distance(p2).Radians() * EarthRadiusMeters
}

// ValidateCoordinates rejects latitudes outside [-90, 90] and longitudes outside [-180, 180]
func ValidateCoordinates(lat, lon float64) error {
	if math.IsNaN(lat) || math.IsNaN(lon) || lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return fmt.Errorf("%w: lat=%v lon=%v", models.ErrInvalidLocation, lat, lon)
	}
	return nil
}

// ValidateLocation validates the coordinates of a location
func ValidateLocation(loc models.Location) error {
	return ValidateCoordinates(loc.Latitude, loc.Longitude)
}

// DistanceMeters returns the haversine distance between two locations in meters
func DistanceMeters(a, b models.Location) (float64, error) {
	if err := ValidateLocation(a); err != nil {
		return 0, err
	}
	if err := ValidateLocation(b); err != nil {
		return 0, err
	}
	return HaversineDistance(a.Latitude, a.Longitude, b.Latitude, b.Longitude), nil
}

// IsWithinProximity reports whether a and b are at most maxDistanceMeters apart
func IsWithinProximity(a, b models.Location, maxDistanceMeters float64) (bool, error) {
	d, err := DistanceMeters(a, b)
	if err != nil {
		return false, err
	}
	return d <= maxDistanceMeters, nil
}

// Constants
const (
	EarthRadiusMeters = 6371000.0 // Earth's mean radius in meters
)
