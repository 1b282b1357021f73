package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestWaitEnforcesMinimumDelay(t *testing.T) {
	p := NewPacer(50*time.Millisecond, 50*time.Millisecond)
	ctx := context.Background()

	if err := p.Wait(ctx); err != nil {
		t.Fatalf("first wait failed: %v", err)
	}

	start := time.Now()
	if err := p.Wait(ctx); err != nil {
		t.Fatalf("second wait failed: %v", err)
	}

	if elapsed := time.Since(start); elapsed < 40*time.Millisecond {
		t.Errorf("expected at least ~50ms between actions, got %v", elapsed)
	}
}

func TestWaitRespectsCancellation(t *testing.T) {
	p := NewPacer(5*time.Second, 5*time.Second)

	if err := p.Wait(context.Background()); err != nil {
		t.Fatalf("first wait failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := p.Wait(ctx)
	if err == nil {
		t.Fatal("expected context error")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("cancelled wait took too long: %v", elapsed)
	}
}

func TestRandomDelayBounds(t *testing.T) {
	p := NewPacer(10*time.Millisecond, 30*time.Millisecond)

	for i := 0; i < 100; i++ {
		d := p.randomDelay()
		if d < 10*time.Millisecond || d >= 30*time.Millisecond {
			t.Fatalf("delay %v outside [10ms, 30ms)", d)
		}
	}
}

func TestZeroDelays(t *testing.T) {
	p := NewPacer(0, 0)

	if d := p.randomDelay(); d != 0 {
		t.Errorf("expected zero delay, got %v", d)
	}

	if err := p.Wait(context.Background()); err != nil {
		t.Errorf("zero-delay wait failed: %v", err)
	}
}

func TestInvertedRangeIsNormalized(t *testing.T) {
	p := NewPacer(30*time.Millisecond, 10*time.Millisecond)

	if d := p.randomDelay(); d != 30*time.Millisecond {
		t.Errorf("expected min delay when range is inverted, got %v", d)
	}
}
