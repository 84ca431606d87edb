package jobs

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestEnqueueRunsOnceAndCoalesces(t *testing.T) {
	s := NewScheduler(time.UTC, 0)
	var calls atomic.Int32
	done := make(chan map[string]string, 4)
	s.Register("leaderboard.update", func(ctx context.Context, data map[string]string) error {
		calls.Add(1)
		done <- data
		return nil
	})

	now := time.Now()
	if err := s.Enqueue("leaderboard.update", now, map[string]string{"subreddit": "test"}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if err := s.Enqueue("leaderboard.update", now, map[string]string{"subreddit": "other"}); err != nil {
		t.Fatalf("second enqueue: %v", err)
	}
	if !s.Pending("leaderboard.update") {
		t.Fatalf("job must be pending before start")
	}

	s.Start(context.Background())
	defer s.Stop()

	select {
	case data := <-done:
		if data["subreddit"] != "test" {
			t.Fatalf("first enqueue must win, got %v", data)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("job did not run")
	}

	time.Sleep(300 * time.Millisecond)
	if calls.Load() != 1 {
		t.Fatalf("expected one run, got %d", calls.Load())
	}
	if s.Pending("leaderboard.update") {
		t.Fatalf("job must not stay pending after run")
	}

	// После запуска задачу можно поставить снова
	if err := s.Enqueue("leaderboard.update", time.Now(), nil); err != nil {
		t.Fatalf("re-enqueue: %v", err)
	}
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatalf("re-enqueued job did not run")
	}
}

func TestUnknownJobsAndBadSpecs(t *testing.T) {
	s := NewScheduler(nil, 0)
	if err := s.Enqueue("missing", time.Now(), nil); err == nil {
		t.Fatalf("expected error for unregistered job")
	}
	if err := s.Every("* * * * *", "missing"); err == nil {
		t.Fatalf("expected error for unregistered job")
	}
	s.Register("cleanup", func(ctx context.Context, data map[string]string) error { return nil })
	if err := s.Every("not a spec", "cleanup"); err == nil {
		t.Fatalf("expected error for invalid spec")
	}
	if err := s.Every("0 */6 * * *", "cleanup"); err != nil {
		t.Fatalf("valid spec: %v", err)
	}
}

func TestOnceScheduleFiresOnce(t *testing.T) {
	at := time.Now().Add(time.Minute)
	o := &onceSchedule{at: at}
	if got := o.Next(time.Now()); !got.Equal(at) {
		t.Fatalf("expected %v, got %v", at, got)
	}
	if got := o.Next(time.Now()); !got.IsZero() {
		t.Fatalf("second Next must be zero, got %v", got)
	}
}
