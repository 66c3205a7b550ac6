package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestSlidingWindow(t *testing.T) {
	sw := NewSlidingWindow(3, time.Minute)
	clock := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	sw.now = func() time.Time { return clock }

	for i := 0; i < 3; i++ {
		if !sw.Allow() {
			t.Errorf("Expected request %d to be allowed", i+1)
		}
	}
	if sw.Allow() {
		t.Error("Expected request to be denied when limit is reached")
	}

	clock = clock.Add(time.Minute + time.Second)
	if !sw.Allow() {
		t.Error("Expected request to be allowed after window slides")
	}

	sw.Reset()
	if len(sw.requests) != 0 {
		t.Error("Expected requests to be cleared after reset")
	}
}

func TestSlidingWindowWaitHonoursContext(t *testing.T) {
	sw := NewSlidingWindow(1, time.Hour)
	if err := sw.Wait(context.Background()); err != nil {
		t.Fatalf("first wait: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := sw.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestSlidingWindowWaitReleases(t *testing.T) {
	sw := NewSlidingWindow(1, 30*time.Millisecond)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 2; i++ {
		if err := sw.Wait(ctx); err != nil {
			t.Fatalf("wait %d: %v", i, err)
		}
	}
	if elapsed := time.Since(start); elapsed < 25*time.Millisecond {
		t.Errorf("second request was not delayed (%v)", elapsed)
	}
}

func TestPerMinute(t *testing.T) {
	if _, ok := PerMinute(0).(Unlimited); !ok {
		t.Error("expected Unlimited for zero rate")
	}
	if _, ok := PerMinute(10).(*SlidingWindow); !ok {
		t.Error("expected SlidingWindow for positive rate")
	}
}
