package courierrepo_test

import (
	"context"
	"testing"
	"time"

	"orderflow/internal/adapters/out/postgres/courierrepo"
	"orderflow/internal/core/domain/model/courier"
	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/pkg/clock"
	"orderflow/internal/pkg/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var baseTime = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newSQLiteRepository(t *testing.T) (*courierrepo.Repository, *clock.Fake) {
	t.Helper()
	dsn := "file:" + kernel.NewUUID().String() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&courierrepo.CourierDTO{}))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	c := clock.NewFake(baseTime)
	return courierrepo.NewRepository(db, c), c
}

func newCourier(t *testing.T, mode courier.ServiceMode, team *kernel.UUID, online bool) *courier.Courier {
	t.Helper()
	c, err := courier.NewCourier(kernel.NewUUID(), "Ngozi", mode, team)
	require.NoError(t, err)
	if online {
		require.NoError(t, c.GoOnline(baseTime))
	}
	return c
}

func TestRepository_AddAndGet(t *testing.T) {
	ctx := context.Background()

	t.Run("should round-trip every field", func(t *testing.T) {
		repo, _ := newSQLiteRepository(t)
		team := kernel.NewUUID()
		c := newCourier(t, courier.ModeBoth, &team, true)

		require.NoError(t, repo.Add(ctx, c))
		got, err := repo.Get(ctx, c.ID())

		require.NoError(t, err)
		assert.Equal(t, c.Name(), got.Name())
		assert.Equal(t, courier.StatusActive, got.Status())
		assert.Equal(t, courier.Online, got.Availability())
		assert.Equal(t, courier.ModeBoth, got.Mode())
		require.NotNil(t, got.TeamVendorID())
		assert.True(t, got.TeamVendorID().IsEqual(team))
		require.NotNil(t, got.LastSeenAt())
		assert.True(t, got.LastSeenAt().Equal(baseTime))
	})

	t.Run("should report unknown couriers", func(t *testing.T) {
		repo, _ := newSQLiteRepository(t)

		_, err := repo.Get(ctx, kernel.NewUUID())
		require.ErrorIs(t, err, errs.ErrObjectNotFound)

		err = repo.Update(ctx, newCourier(t, courier.ModeRide, nil, false))
		require.ErrorIs(t, err, errs.ErrObjectNotFound)
	})
}

func TestRepository_Update(t *testing.T) {
	ctx := context.Background()
	repo, _ := newSQLiteRepository(t)
	c := newCourier(t, courier.ModeDelivery, nil, true)
	require.NoError(t, repo.Add(ctx, c))

	require.NoError(t, c.GoOffline(baseTime.Add(time.Hour)))
	require.NoError(t, c.ChangeStatus(courier.StatusSuspended))
	require.NoError(t, repo.Update(ctx, c))
	got, err := repo.Get(ctx, c.ID())

	require.NoError(t, err)
	assert.Equal(t, courier.Offline, got.Availability())
	assert.Equal(t, courier.StatusSuspended, got.Status())
}

func TestRepository_ListAvailable(t *testing.T) {
	ctx := context.Background()
	repo, clk := newSQLiteRepository(t)

	rider := newCourier(t, courier.ModeRide, nil, true)
	both := newCourier(t, courier.ModeBoth, nil, true)
	offline := newCourier(t, courier.ModeRide, nil, false)
	suspended := newCourier(t, courier.ModeRide, nil, true)
	require.NoError(t, suspended.ChangeStatus(courier.StatusSuspended))
	deliverer := newCourier(t, courier.ModeDelivery, nil, true)
	for _, c := range []*courier.Courier{rider, both, offline, suspended, deliverer} {
		clk.Advance(time.Second)
		require.NoError(t, repo.Add(ctx, c))
	}

	t.Run("should list online active couriers covering the mode in registration order", func(t *testing.T) {
		got, err := repo.ListAvailable(ctx, courier.ModeRide)

		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.True(t, got[0].ID().IsEqual(rider.ID()))
		assert.True(t, got[1].ID().IsEqual(both.ID()))
	})

	t.Run("should match only dual-mode couriers for both", func(t *testing.T) {
		got, err := repo.ListAvailable(ctx, courier.ModeBoth)

		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.True(t, got[0].ID().IsEqual(both.ID()))
	})

	t.Run("should reject an unknown mode", func(t *testing.T) {
		_, err := repo.ListAvailable(ctx, courier.ModeUnknown)

		require.ErrorIs(t, err, errs.ErrValueIsInvalid)
	})
}
