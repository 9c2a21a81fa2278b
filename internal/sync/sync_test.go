package sync

import (
	"context"
	"errors"
	"log/slog"
	gosync "sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"
	"golang.org/x/text/language"
)

// mockDestination records calls to Write.
type mockDestination struct {
	name   string
	err    error
	writes atomic.Int64

	mu   gosync.Mutex
	last []File
}

func (d *mockDestination) Name() string { return d.name }

func (d *mockDestination) Write(_ context.Context, files []File) error {
	d.writes.Add(1)
	d.mu.Lock()
	d.last = append([]File(nil), files...)
	d.mu.Unlock()
	return d.err
}

func (d *mockDestination) lastFiles() []File {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.last
}

func discardLogger() *slog.Logger { return slog.New(slog.DiscardHandler) }

func TestSchedulerStartStop(t *testing.T) {
	defer goleak.VerifyNone(t)

	ms := newMockStore(client("firm-1", "cl-1", "Padaria"), client("firm-2", "cl-2", "Oficina"))
	dest := &mockDestination{name: "mock"}

	sched := NewScheduler(ms, []Destination{dest}, 50*time.Millisecond, language.BrazilianPortuguese, discardLogger())
	sched.Start()

	// Wait for at least the initial sync + one tick.
	time.Sleep(120 * time.Millisecond)
	sched.Stop()

	if writes := dest.writes.Load(); writes < 2 {
		t.Fatalf("expected at least 2 writes, got %d", writes)
	}
	if files := dest.lastFiles(); len(files) != 2 {
		t.Fatalf("expected 2 files, got %d", len(files))
	}
}

func TestSchedulerStop_NoStart(t *testing.T) {
	sched := NewScheduler(newMockStore(), nil, time.Minute, language.BrazilianPortuguese, discardLogger())
	// Stop without Start should not panic.
	sched.Stop()
}

func TestSyncNow_FailingDestinationDoesNotStopOthers(t *testing.T) {
	ms := newMockStore(client("firm-1", "cl-1", "Padaria"))
	broken := &mockDestination{name: "broken", err: errors.New("bucket gone")}
	healthy := &mockDestination{name: "healthy"}

	sched := NewScheduler(ms, []Destination{broken, healthy}, time.Minute, language.BrazilianPortuguese, discardLogger())
	err := sched.SyncNow(context.Background())
	if err == nil || !errors.Is(err, broken.err) {
		t.Fatalf("expected destination error, got %v", err)
	}
	if healthy.writes.Load() != 1 {
		t.Fatal("healthy destination should still be written")
	}
}

func TestSyncNow_ExportErrorSkipsDestinations(t *testing.T) {
	ms := newMockStore(client("firm-1", "cl-1", "Padaria"))
	ms.listErr = errors.New("timeout")
	dest := &mockDestination{name: "mock"}

	sched := NewScheduler(ms, []Destination{dest}, time.Minute, language.BrazilianPortuguese, discardLogger())
	if err := sched.SyncNow(context.Background()); err == nil {
		t.Fatal("expected export error")
	}
	if dest.writes.Load() != 0 {
		t.Fatal("no destination should be written after a failed export")
	}
}

func TestSchedulerStart_Twice(t *testing.T) {
	defer goleak.VerifyNone(t)

	dest := &mockDestination{name: "mock"}
	sched := NewScheduler(newMockStore(client("firm-1", "cl-1", "Padaria")), []Destination{dest}, time.Hour, language.BrazilianPortuguese, discardLogger())
	sched.Start()
	sched.Start()
	time.Sleep(50 * time.Millisecond)
	sched.Stop()
	sched.Stop()

	if n := dest.writes.Load(); n != 1 {
		t.Fatalf("writes = %d, want a single initial sync", n)
	}
}
