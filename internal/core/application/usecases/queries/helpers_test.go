package queries_test

import (
	"context"
	"time"

	"orderflow/internal/adapters/out/postgres/migrations"
	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/order"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	gorm_postgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var baseTime = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

// startPostgres runs a disposable Postgres with the schema applied.
func startPostgres(r *require.Assertions) (*postgres.PostgresContainer, *gorm.DB) {
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	r.NoError(err)

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	r.NoError(err)

	db, err := gorm.Open(gorm_postgres.Open(dsn), &gorm.Config{})
	r.NoError(err)

	sqlDB, err := db.DB()
	r.NoError(err)
	r.NoError(migrations.Up(ctx, sqlDB))

	return container, db
}

func newOrder(r *require.Assertions, category order.Category, vendorID kernel.UUID, at time.Time) *order.Order {
	price, err := kernel.NewMoney(1500, "USD")
	r.NoError(err)
	fee, err := kernel.NewMoney(200, "USD")
	r.NoError(err)
	o, err := order.NewOrder(kernel.NewUUID(), order.Placement{
		CustomerID:       kernel.NewUUID(),
		VendorID:         vendorID,
		Category:         category,
		Items:            []order.Item{{SKU: "sku-1", Name: "Puff puff", Quantity: 1, UnitPrice: price}},
		DeliveryFee:      fee,
		PaymentMethod:    order.PaymentCash,
		RequiresDelivery: category != order.CategoryFlight,
	}, at)
	r.NoError(err)
	o.PullEvents()
	return o
}
