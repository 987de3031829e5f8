// Package validation holds input checks shared by handlers and services.
package validation

import (
	"math"

	"farmcast/internal/models"
)

// ValidateCoordinates rejects a longitude outside [-180, 180] or a latitude outside [-90, 90].
// Out-of-range points are reported as not found.
func ValidateCoordinates(lon, lat float64) error {
	if math.IsNaN(lon) || lon < -180 || lon > 180 {
		return models.NewNotFoundMessage("Longitude out of bounds.")
	}
	if math.IsNaN(lat) || lat < -90 || lat > 90 {
		return models.NewNotFoundMessage("Latitude out of bounds.")
	}
	return nil
}
