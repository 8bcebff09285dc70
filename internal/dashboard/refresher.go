package dashboard

import (
	"context"
	"log"
	"time"

	"chatdesk-backend/internal/libraries"
)

const (
	DefaultRefreshInterval = time.Minute
	defaultCoalesceDelay   = 500 * time.Millisecond
)

// watchedTables are the tables whose changes move the dashboard numbers
var watchedTables = []string{libraries.TableProfiles, libraries.TableChats, libraries.TableMessages}

// Refresher recomputes the dashboard when watched tables change, and at least every interval.
// Bursts of changes within the coalesce delay cause one refresh.
type Refresher struct {
	service  *Service
	broker   *libraries.Broker
	interval time.Duration
	coalesce time.Duration
}

func NewRefresher(service *Service, broker *libraries.Broker, interval time.Duration) *Refresher {
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	return &Refresher{
		service:  service,
		broker:   broker,
		interval: interval,
		coalesce: defaultCoalesceDelay,
	}
}

// Watch calls refresh once immediately and then on every trigger until ctx is done.
// Subscriptions and timers are released before it returns.
func (r *Refresher) Watch(ctx context.Context, refresh func()) {
	kick := make(chan struct{}, 1)
	subs := make([]*libraries.Subscription, 0, len(watchedTables))
	for _, table := range watchedTables {
		sub := r.broker.Subscribe(table, nil, 0)
		subs = append(subs, sub)
		go func(sub *libraries.Subscription) {
			for range sub.C {
				select {
				case kick <- struct{}{}:
				default:
				}
			}
		}(sub)
	}
	defer func() {
		for _, sub := range subs {
			r.broker.Unsubscribe(sub.ID)
		}
	}()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	var (
		pending *time.Timer
		fire    <-chan time.Time
	)
	defer func() {
		if pending != nil {
			pending.Stop()
		}
	}()

	refresh()
	for {
		select {
		case <-ctx.Done():
			return
		case <-kick:
			if pending == nil {
				pending = time.NewTimer(r.coalesce)
				fire = pending.C
			}
		case <-fire:
			pending, fire = nil, nil
			refresh()
			ticker.Reset(r.interval)
		case <-ticker.C:
			refresh()
		}
	}
}

// Stream pushes a fresh Snapshot on every trigger until ctx is done
func (r *Refresher) Stream(ctx context.Context, push func(snapshot interface{})) {
	r.Watch(ctx, func() {
		snapshot, err := r.service.Snapshot(ctx)
		if err != nil {
			if ctx.Err() == nil {
				log.Printf("[dashboard] refresh failed: %v", err)
			}
			return
		}
		push(snapshot)
	})
}
