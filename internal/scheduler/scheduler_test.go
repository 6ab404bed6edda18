package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/amishk599/upfeed/internal/poller"
)

// CountingCycler counts Poll calls and returns err on each.
type CountingCycler struct {
	calls atomic.Int32
	err   error
}

func (c *CountingCycler) Poll(_ context.Context) (poller.CycleStats, error) {
	c.calls.Add(1)
	return poller.CycleStats{}, c.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRun_ImmediateCycleThenTicks(t *testing.T) {
	c := &CountingCycler{}
	s := NewScheduler(c, 50*time.Millisecond, discardLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 180*time.Millisecond)
	defer cancel()

	if err := s.Run(ctx); err != nil {
		t.Fatalf("Run = %v, want nil", err)
	}

	// One immediate cycle plus roughly three ticks.
	if n := c.calls.Load(); n < 3 {
		t.Errorf("cycles = %d, want at least 3", n)
	}
}

func TestRun_ReturnsNilOnCancel(t *testing.T) {
	c := &CountingCycler{}
	s := NewScheduler(c, time.Hour, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run = %v, want nil", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if n := c.calls.Load(); n != 1 {
		t.Errorf("cycles = %d, want 1 (immediate only)", n)
	}
}

func TestRun_ContinuesAfterErrors(t *testing.T) {
	c := &CountingCycler{err: errors.New("fetch failed")}
	s := NewScheduler(c, 20*time.Millisecond, discardLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 110*time.Millisecond)
	defer cancel()

	if err := s.Run(ctx); err != nil {
		t.Fatalf("Run = %v, want nil", err)
	}
	if n := c.calls.Load(); n < 3 {
		t.Errorf("cycles = %d, want scheduler to keep going after errors", n)
	}
}

func TestRun_BusyCycleIsSkipped(t *testing.T) {
	c := &CountingCycler{err: poller.ErrCycleBusy}
	s := NewScheduler(c, 20*time.Millisecond, discardLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 70*time.Millisecond)
	defer cancel()

	if err := s.Run(ctx); err != nil {
		t.Fatalf("Run = %v, want nil", err)
	}
	if n := c.calls.Load(); n < 2 {
		t.Errorf("cycles = %d, want ticks to continue", n)
	}
}
