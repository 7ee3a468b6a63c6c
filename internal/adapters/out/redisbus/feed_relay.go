package redisbus

import (
	"context"
	"encoding/json"
	"time"

	"orderflow/internal/core/domain/model/order"
	"orderflow/internal/core/ports"

	"github.com/rs/zerolog"
)

// OrderChannel carries tracking snapshots of one order.
func OrderChannel(id string) string {
	return key("orders", id)
}

// Snapshot is what tracking screens need after every committed write.
type Snapshot struct {
	ID                string     `json:"id"`
	Status            string     `json:"status"`
	Version           int64      `json:"version"`
	AssignedCourierID string     `json:"assignedCourierId,omitempty"`
	Latitude          *float64   `json:"lat,omitempty"`
	Longitude         *float64   `json:"lng,omitempty"`
	LocationAt        *time.Time `json:"locationAt,omitempty"`
}

func snapshotOf(o *order.Order) Snapshot {
	s := Snapshot{ID: o.ID().String(), Status: o.Status().String(), Version: o.Version()}
	if id := o.AssignedCourierID(); id != nil {
		s.AssignedCourierID = id.String()
	}
	if loc := o.DriverLocation(); loc != nil {
		lat, lng, at := loc.Location.Latitude(), loc.Location.Longitude(), loc.UpdatedAt
		s.Latitude, s.Longitude, s.LocationAt = &lat, &lng, &at
	}
	return s
}

// FeedRelay republishes committed orders from the store on per-order channels.
type FeedRelay struct {
	store  ports.OrderStore
	client publisher
	logger zerolog.Logger
}

func NewFeedRelay(store ports.OrderStore, client publisher, logger zerolog.Logger) *FeedRelay {
	return &FeedRelay{store: store, client: client, logger: logger.With().Str("component", "feed_relay").Logger()}
}

// Run blocks until ctx is done or the store closes the subscription.
func (r *FeedRelay) Run(ctx context.Context) error {
	changes, err := r.store.Subscribe(ctx, ports.OrderFilter{})
	if err != nil {
		return err
	}
	for o := range changes {
		data, err := json.Marshal(snapshotOf(o))
		if err != nil {
			r.logger.Error().Err(err).Str("order_id", o.ID().String()).Msg("encode snapshot")
			continue
		}
		if err := r.client.Publish(ctx, OrderChannel(o.ID().String()), data).Err(); err != nil {
			r.logger.Warn().Err(err).Str("order_id", o.ID().String()).Msg("publish snapshot")
		}
	}
	return nil
}
