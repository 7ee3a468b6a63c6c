package commands_test

import (
	"testing"

	"orderflow/internal/core/application/usecases/commands"
	"orderflow/internal/core/domain/model/courier"
	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/pkg/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCreateCourierCommand_ValidInput(t *testing.T) {
	// Arrange
	name := "John Doe"
	team := kernel.NewUUID()

	// Act
	cmd, err := commands.NewCreateCourierCommand(name, courier.ModeBoth, &team)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, name, cmd.Name())
	assert.Equal(t, courier.ModeBoth, cmd.Mode())
	require.NotNil(t, cmd.TeamVendorID())
	assert.True(t, team.IsEqual(*cmd.TeamVendorID()))
	assert.NoError(t, cmd.CourierID().Validate())
	assert.NoError(t, cmd.Validate())
}

func TestNewCreateCourierCommand_IndependentCourier(t *testing.T) {
	cmd, err := commands.NewCreateCourierCommand("Kemi", courier.ModeRide, nil)

	require.NoError(t, err)
	assert.Nil(t, cmd.TeamVendorID())
}

func TestNewCreateCourierCommand_InvalidInput(t *testing.T) {
	invalidTeam := kernel.UUID{}

	testCases := []struct {
		name        string
		courierName string
		mode        courier.ServiceMode
		team        *kernel.UUID
		wantErr     error
	}{
		{
			name:        "empty name",
			courierName: "",
			mode:        courier.ModeDelivery,
			wantErr:     commands.ErrNameIsRequired,
		},
		{
			name:        "whitespace name",
			courierName: "   ",
			mode:        courier.ModeDelivery,
			wantErr:     commands.ErrNameIsRequired,
		},
		{
			name:        "unknown mode",
			courierName: "Ada",
			mode:        courier.ModeUnknown,
			wantErr:     errs.ErrValueIsInvalid,
		},
		{
			name:        "zero team vendor",
			courierName: "Ada",
			mode:        courier.ModeDelivery,
			team:        &invalidTeam,
			wantErr:     kernel.ErrUUIDIsNotConstructed,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cmd, err := commands.NewCreateCourierCommand(tc.courierName, tc.mode, tc.team)

			require.ErrorIs(t, err, tc.wantErr)
			assert.Zero(t, cmd)
		})
	}
}

func TestNewCreateCourierCommand_UniqueIDs(t *testing.T) {
	first, err := commands.NewCreateCourierCommand("Ada", courier.ModeDelivery, nil)
	require.NoError(t, err)
	second, err := commands.NewCreateCourierCommand("Ada", courier.ModeDelivery, nil)
	require.NoError(t, err)

	assert.False(t, first.CourierID().IsEqual(second.CourierID()))
}

func TestCreateCourierCommand_Validate(t *testing.T) {
	var cmd commands.CreateCourierCommand

	require.ErrorIs(t, cmd.Validate(), commands.ErrCreateCourierCommandIsNotConstructed)
}
