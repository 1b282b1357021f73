package ratelimit

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// Pacer spaces out page interactions with a randomized delay so the session
// looks like a person browsing rather than a tight loop. It is pacing only:
// the retry policy lives with the callers and is deliberately not adaptive.
type Pacer struct {
	minDelay   time.Duration
	maxDelay   time.Duration
	lastAction time.Time
	mu         sync.Mutex
}

func NewPacer(minDelay, maxDelay time.Duration) *Pacer {
	if maxDelay < minDelay {
		maxDelay = minDelay
	}
	return &Pacer{
		minDelay: minDelay,
		maxDelay: maxDelay,
	}
}

// Wait blocks until at least a randomized delay has passed since the last
// action. It returns early with the context error on cancellation.
func (p *Pacer) Wait(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	elapsed := time.Since(p.lastAction)
	delay := p.randomDelay()

	if elapsed < delay {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay - elapsed):
		}
	}

	p.lastAction = time.Now()
	return nil
}

// Sleep pauses for one randomized delay regardless of prior actions. Used
// for the small human-pacing gaps between keystrokes and clicks.
func (p *Pacer) Sleep() {
	time.Sleep(p.randomDelay())
}

func (p *Pacer) SetDelay(min, max time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.minDelay = min
	p.maxDelay = max
	if p.maxDelay < p.minDelay {
		p.maxDelay = p.minDelay
	}
}

func (p *Pacer) randomDelay() time.Duration {
	if p.minDelay >= p.maxDelay {
		return p.minDelay
	}

	delta := p.maxDelay - p.minDelay
	return p.minDelay + time.Duration(rand.Int63n(int64(delta)))
}
