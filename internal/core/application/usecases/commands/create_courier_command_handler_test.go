package commands_test

import (
	"context"
	"errors"
	"testing"

	"orderflow/internal/core/application/usecases/commands"
	"orderflow/internal/core/domain/model/courier"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestCreateCourierCommandHandler_Handle(t *testing.T) {
	ctx := context.Background()

	t.Run("should register an active offline courier", func(t *testing.T) {
		// Arrange
		repo := new(MockCourierRepository)
		cmd, err := commands.NewCreateCourierCommand("Ada", courier.ModeDelivery, nil)
		require.NoError(t, err)
		repo.On("Add", ctx, mock.MatchedBy(func(c *courier.Courier) bool {
			return c.ID().IsEqual(cmd.CourierID())
		})).Return(nil).Once()

		// Act
		c, err := commands.NewCreateCourierCommandHandler(repo).Handle(ctx, cmd)

		// Assert
		require.NoError(t, err)
		assert.Equal(t, "Ada", c.Name())
		assert.Equal(t, courier.StatusActive, c.Status())
		assert.Equal(t, courier.Offline, c.Availability())
		repo.AssertExpectations(t)
	})

	t.Run("should return repository errors", func(t *testing.T) {
		repo := new(MockCourierRepository)
		repoErr := errors.New("database unavailable")
		repo.On("Add", ctx, mock.Anything).Return(repoErr).Once()
		cmd, err := commands.NewCreateCourierCommand("Ada", courier.ModeRide, nil)
		require.NoError(t, err)

		_, err = commands.NewCreateCourierCommandHandler(repo).Handle(ctx, cmd)

		require.ErrorIs(t, err, repoErr)
	})

	t.Run("should refuse commands built without the constructor", func(t *testing.T) {
		repo := new(MockCourierRepository)

		_, err := commands.NewCreateCourierCommandHandler(repo).Handle(ctx, commands.CreateCourierCommand{})

		require.ErrorIs(t, err, commands.ErrCreateCourierCommandIsNotConstructed)
		repo.AssertNotCalled(t, "Add", mock.Anything, mock.Anything)
	})
}
