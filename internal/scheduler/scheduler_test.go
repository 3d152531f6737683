package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestStartWithoutSyncFunction(t *testing.T) {
	s := New(nil)
	defer s.Stop()

	if err := s.Start("@every 1m"); !errors.Is(err, ErrNoSyncFunction) {
		t.Fatalf("expected ErrNoSyncFunction, got %v", err)
	}
	if s.IsRunning() {
		t.Fatalf("scheduler must not run without a job")
	}
}

func TestStartRejectsBadSpec(t *testing.T) {
	s := New(nil)
	defer s.Stop()
	s.SetSyncFunction(func(ctx context.Context) error { return nil })

	if err := s.Start("not a schedule"); err == nil {
		t.Fatalf("expected error for invalid spec")
	}
}

func TestSyncRunsOnSchedule(t *testing.T) {
	s := New(nil)
	var calls atomic.Int32
	s.SetSyncFunction(func(ctx context.Context) error {
		calls.Add(1)
		return errors.New("ignored")
	})

	if err := s.Start("@every 1s"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !s.IsRunning() {
		t.Fatalf("expected scheduler to be running")
	}

	deadline := time.Now().Add(3 * time.Second)
	for calls.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(50 * time.Millisecond)
	}
	s.Stop()
	if calls.Load() == 0 {
		t.Fatalf("sync function was never called")
	}
}

func TestStopCancelsContext(t *testing.T) {
	s := New(nil)
	s.SetSyncFunction(func(ctx context.Context) error { return nil })
	if err := s.Start("@every 1h"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	s.Stop()
	if s.ctx.Err() == nil {
		t.Fatalf("context must be cancelled after Stop")
	}
}
