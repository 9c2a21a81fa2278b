package main

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/alfredjeanlab/ledgerdesk/internal/events"
)

// watchDebounce coalesces bursts of change events into one refresh.
const watchDebounce = 200 * time.Millisecond

// watchNATS calls refresh after client events for tenant, debounced, and
// immediately after a reconnect since events may have been missed.
func watchNATS(ctx context.Context, natsURL, tenant string, refresh func() error) error {
	reconnectCh := make(chan struct{}, 1)

	sub, err := events.NewNATSSubscriber(natsURL,
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats: disconnected", "err", err)
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logger.Info("nats: reconnected")
			select {
			case reconnectCh <- struct{}{}:
			default:
			}
		}),
	)
	if err != nil {
		return fmt.Errorf("connecting to NATS: %w", err)
	}
	defer sub.Close()

	ch, cancel, err := sub.Subscribe(events.TenantSubjects(tenant))
	if err != nil {
		return fmt.Errorf("subscribing to client events: %w", err)
	}
	defer cancel()

	return watchLoop(ctx, ch, reconnectCh, watchDebounce, refresh)
}

// watchLoop is the event loop of watchNATS.
func watchLoop(ctx context.Context, changes <-chan []byte, reconnects <-chan struct{}, debounce time.Duration, refresh func() error) error {
	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-changes:
			if !ok {
				return nil
			}
			timer.Reset(debounce)
		case <-reconnects:
			timer.Reset(0)
		case <-timer.C:
			if err := refresh(); err != nil {
				return err
			}
		}
	}
}

// watchPoll calls refresh every interval.
func watchPoll(ctx context.Context, interval time.Duration, refresh func() error) error {
	if interval <= 0 {
		return fmt.Errorf("--interval must be positive, got %s", interval)
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
		if err := refresh(); err != nil {
			return err
		}
	}
}
