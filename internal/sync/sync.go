// Package sync periodically publishes every tenant's client spreadsheet to
// external destinations such as an S3 bucket or a git repository.
package sync

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/language"

	"github.com/alfredjeanlab/ledgerdesk/internal/store"
)

// Destination receives the files of every sync run.
type Destination interface {
	Name() string
	Write(ctx context.Context, files []File) error
}

// Scheduler exports all tenants on an interval and hands the files to its
// destinations.
type Scheduler struct {
	store    store.Store
	dests    []Destination
	interval time.Duration
	locale   language.Tag
	logger   *slog.Logger

	mu   sync.Mutex
	stop context.CancelFunc
	done chan struct{}
}

// NewScheduler formats exports for locale and runs every interval once
// started.
func NewScheduler(s store.Store, dests []Destination, interval time.Duration, locale language.Tag, logger *slog.Logger) *Scheduler {
	return &Scheduler{store: s, dests: dests, interval: interval, locale: locale, logger: logger}
}

// Start syncs immediately and then on every tick until Stop. Calling it
// again while running does nothing.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.stop, s.done = cancel, make(chan struct{})
	go s.loop(ctx, s.done)
}

// Stop cancels any run in progress and waits for the loop to exit.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	stop, done := s.stop, s.done
	s.stop, s.done = nil, nil
	s.mu.Unlock()
	if stop == nil {
		return
	}
	stop()
	<-done
}

func (s *Scheduler) loop(ctx context.Context, done chan<- struct{}) {
	defer close(done)
	tick := time.NewTicker(s.interval)
	defer tick.Stop()
	for {
		if err := s.SyncNow(ctx); err != nil && ctx.Err() == nil {
			s.logger.Error("sync failed", "err", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
		}
	}
}

// SyncNow runs one export and writes it to every destination concurrently.
// Each destination is attempted even when another fails; the first failure
// is returned.
func (s *Scheduler) SyncNow(ctx context.Context) error {
	started := time.Now()
	files, err := ExportAll(ctx, s.store, s.locale)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}

	var g errgroup.Group
	for _, dest := range s.dests {
		g.Go(func() error {
			if err := dest.Write(ctx, files); err != nil {
				s.logger.Error("sync destination failed", "destination", dest.Name(), "err", err)
				return fmt.Errorf("%s: %w", dest.Name(), err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	var size int
	for _, f := range files {
		size += len(f.Data)
	}
	s.logger.Info("sync completed",
		"destinations", len(s.dests),
		"tenants", len(files),
		"bytes", size,
		"took", time.Since(started).Round(time.Millisecond))
	return nil
}
