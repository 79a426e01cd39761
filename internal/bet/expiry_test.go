package bet

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/SlpAus/aura-wager-backend/pkg/lifecycle"
)

type fakeRecorder struct {
	mu    sync.Mutex
	calls []int
}

func (r *fakeRecorder) RecordSweep(_ context.Context, _ time.Time, expired int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, expired)
	return nil
}

func (r *fakeRecorder) snapshot() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int(nil), r.calls...)
}

func TestSweepOnceRecordsResult(t *testing.T) {
	f := newFixture(t, Options{})
	f.join(t, "creator")
	f.create(t, "creator", TypeSelf, "")
	f.advance(3 * time.Hour)

	rec := &fakeRecorder{}
	sw := NewSweeper(f.svc, rec, time.Minute)
	n, err := sw.SweepOnce(context.Background())
	if err != nil || n != 1 {
		t.Fatalf("SweepOnce = %d, %v; want 1", n, err)
	}
	if _, err := sw.SweepOnce(context.Background()); err != nil {
		t.Fatalf("second SweepOnce: %v", err)
	}
	if got := rec.snapshot(); len(got) != 2 || got[0] != 1 || got[1] != 0 {
		t.Fatalf("recorded = %v, want [1 0]", got)
	}
}

func TestSweeperRunStopsOnShutdown(t *testing.T) {
	f := newFixture(t, Options{})
	rec := &fakeRecorder{}
	sw := NewSweeper(f.svc, rec, 10*time.Millisecond)

	m := lifecycle.NewManager("test")
	handle, err := m.NewServiceHandle("expiry-sweeper")
	if err != nil {
		t.Fatalf("new handle: %v", err)
	}
	go sw.Run(handle)

	deadline := time.Now().Add(2 * time.Second)
	for len(rec.snapshot()) < 2 {
		if time.Now().After(deadline) {
			t.Fatal("sweeper did not run")
		}
		time.Sleep(5 * time.Millisecond)
	}

	m.Shutdown()
	if remaining := m.WaitWithTimeout(2 * time.Second); len(remaining) != 0 {
		t.Fatalf("services still running: %v", remaining)
	}
}
