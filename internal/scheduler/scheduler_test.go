package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestNextRunAligned(t *testing.T) {
	s := New(Options{Interval: time.Hour, AlignToStart: true}, zerolog.Nop())

	now := time.Date(2026, 8, 28, 14, 23, 45, 0, time.UTC)
	next := s.nextRun(now)
	want := time.Date(2026, 8, 28, 15, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Fatalf("next run: got %s want %s", next, want)
	}

	// Exactly on a boundary: the next run is the following bucket.
	next = s.nextRun(want)
	if !next.Equal(want.Add(time.Hour)) {
		t.Fatalf("boundary next run: got %s", next)
	}
}

func TestNextRunUnaligned(t *testing.T) {
	s := New(Options{Interval: time.Hour}, zerolog.Nop())

	now := time.Date(2026, 8, 28, 14, 23, 45, 0, time.UTC)
	if next := s.nextRun(now); !next.Equal(now.Add(time.Hour)) {
		t.Fatalf("unaligned next run: got %s", next)
	}
}

func TestRunInvokesJobAndStops(t *testing.T) {
	s := New(Options{Interval: 20 * time.Millisecond}, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	calls := make(chan time.Time, 10)
	done := make(chan error, 1)
	go func() {
		done <- s.Run(ctx, func(ctx context.Context, bucket time.Time) error {
			calls <- bucket
			return nil
		})
	}()

	select {
	case <-calls:
	case <-time.After(2 * time.Second):
		t.Fatal("job was never invoked")
	}

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop on cancellation")
	}
}

func TestRunContinuesAfterJobError(t *testing.T) {
	s := New(Options{Interval: 10 * time.Millisecond}, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	count := 0
	done := make(chan struct{})
	go func() {
		s.Run(ctx, func(ctx context.Context, bucket time.Time) error {
			count++
			if count >= 3 {
				cancel()
			}
			return errors.New("job failed")
		})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler stopped retrying after a job error")
	}
	if count < 3 {
		t.Fatalf("expected at least 3 invocations, got %d", count)
	}
}

func TestNewPanicsOnZeroInterval(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on non-positive interval")
		}
	}()
	New(Options{}, zerolog.Nop())
}
