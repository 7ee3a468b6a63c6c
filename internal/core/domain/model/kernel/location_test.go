package kernel_test

import (
	"math"
	"testing"

	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/pkg/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLocation(t *testing.T) {
	tests := []struct {
		name    string
		lat     float64
		lng     float64
		wantErr error
	}{
		{name: "lagos", lat: 6.5244, lng: 3.3792},
		{name: "bounds", lat: -90, lng: 180},
		{name: "latitude too large", lat: 90.1, lng: 0, wantErr: errs.ErrValueIsOutOfRange},
		{name: "longitude too small", lat: 0, lng: -180.5, wantErr: errs.ErrValueIsOutOfRange},
		{name: "nan", lat: math.NaN(), lng: 0, wantErr: errs.ErrValueIsOutOfRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loc, err := kernel.NewLocation(tt.lat, tt.lng)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.NoError(t, loc.Validate())
			assert.InDelta(t, tt.lat, loc.Latitude(), 1e-9)
			assert.InDelta(t, tt.lng, loc.Longitude(), 1e-9)
		})
	}
}

func TestLocation_ZeroValueIsInvalid(t *testing.T) {
	var loc kernel.Location
	require.ErrorIs(t, loc.Validate(), kernel.ErrLocationIsNotConstructed)
}
