package orderrepo

import (
	"context"
	"sync"
	"time"

	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/order"
	"orderflow/internal/core/ports"

	"github.com/lib/pq"
	"github.com/rs/zerolog"
)

// ChangeChannel is the Postgres NOTIFY channel carrying ids of committed orders.
const ChangeChannel = "order_changes"

// feed fans committed orders out to local subscribers. Each subscriber keeps
// only the latest undelivered order.
type feed struct {
	mu     sync.Mutex
	subs   map[int]*subscriber
	nextID int
}

type subscriber struct {
	filter ports.OrderFilter
	ch     chan *order.Order
}

func newFeed() *feed {
	return &feed{subs: make(map[int]*subscriber)}
}

func (f *feed) subscribe(ctx context.Context, filter ports.OrderFilter) <-chan *order.Order {
	sub := &subscriber{filter: filter, ch: make(chan *order.Order, 1)}

	f.mu.Lock()
	id := f.nextID
	f.nextID++
	f.subs[id] = sub
	f.mu.Unlock()

	go func() {
		<-ctx.Done()
		f.mu.Lock()
		delete(f.subs, id)
		close(sub.ch)
		f.mu.Unlock()
	}()

	return sub.ch
}

func (f *feed) publish(o *order.Order) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, sub := range f.subs {
		if !sub.filter.Matches(o) {
			continue
		}
		select {
		case sub.ch <- o.Clone():
		default:
			select {
			case <-sub.ch:
			default:
			}
			sub.ch <- o.Clone()
		}
	}
}

func (f *feed) empty() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs) == 0
}

// ListenForChanges relays NOTIFY messages from every writer of the database
// into local subscriptions. It blocks until ctx is done.
func (r *Repository) ListenForChanges(ctx context.Context, dsn string, logger zerolog.Logger) error {
	listener := pq.NewListener(dsn, time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			logger.Warn().Err(err).Int("event", int(ev)).Msg("order change listener")
		}
	})
	defer listener.Close()

	if err := listener.Listen(ChangeChannel); err != nil {
		return err
	}
	logger.Info().Str("channel", ChangeChannel).Msg("listening for order changes")

	for {
		select {
		case <-ctx.Done():
			return nil
		case n := <-listener.Notify:
			// nil after a reconnect; changes made while disconnected are lost.
			if n == nil || r.feed.empty() {
				continue
			}
			id, err := kernel.UUIDFromString(n.Extra)
			if err != nil {
				logger.Warn().Str("payload", n.Extra).Msg("malformed order change")
				continue
			}
			o, err := r.Get(ctx, id)
			if err != nil {
				logger.Error().Err(err).Str("order_id", n.Extra).Msg("load changed order")
				continue
			}
			r.feed.publish(o)
		case <-time.After(90 * time.Second):
			go func() { _ = listener.Ping() }()
		}
	}
}
