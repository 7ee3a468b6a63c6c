package kernel

import (
	"fmt"
	"math"

	"orderflow/internal/pkg/errs"
	"orderflow/internal/pkg/guard"
)

const (
	minLatitude  = -90.0
	maxLatitude  = 90.0
	minLongitude = -180.0
	maxLongitude = 180.0
)

var ErrLocationIsNotConstructed = errs.NewValueIsRequiredError("location must be created via NewLocation")

// Location is a WGS84 point reported by a courier's device.
type Location struct {
	lat   float64
	lng   float64
	guard guard.ConstructorGuard
}

func NewLocation(lat, lng float64) (Location, error) {
	if math.IsNaN(lat) || lat < minLatitude || lat > maxLatitude {
		return Location{}, errs.NewValueIsOutOfRangeError("latitude", lat, minLatitude, maxLatitude)
	}
	if math.IsNaN(lng) || lng < minLongitude || lng > maxLongitude {
		return Location{}, errs.NewValueIsOutOfRangeError("longitude", lng, minLongitude, maxLongitude)
	}
	return Location{lat: lat, lng: lng, guard: guard.NewConstructorGuard()}, nil
}

func (l Location) Latitude() float64 {
	return l.lat
}

func (l Location) Longitude() float64 {
	return l.lng
}

func (l Location) Validate() error {
	return l.guard.Validate(ErrLocationIsNotConstructed)
}

func (l Location) IsEqual(other Location) bool {
	return l.lat == other.lat && l.lng == other.lng
}

func (l Location) String() string {
	return fmt.Sprintf("(%.6f,%.6f)", l.lat, l.lng)
}
