package gateway

import (
	"sync"
	"time"
)

type breakerState int

const (
	stateClosed breakerState = iota
	stateOpen
	stateHalfOpen
)

// Breaker is a per-provider micro circuit breaker: a run of consecutive
// failures opens it, after openFor one probe is let through, and the
// probe's outcome decides whether it closes again.
type Breaker struct {
	mu            sync.Mutex
	st            breakerState
	fails         int
	failThreshold int
	openFor       time.Duration
	retryAt       time.Time
	probing       bool
}

func NewBreaker(failThreshold int, openFor time.Duration) *Breaker {
	if failThreshold <= 0 {
		failThreshold = 3
	}
	if openFor <= 0 {
		openFor = 15 * time.Second
	}
	return &Breaker{failThreshold: failThreshold, openFor: openFor}
}

// Ready reports whether a call could be admitted right now, without
// reserving the probe slot.
func (b *Breaker) Ready() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.st {
	case stateOpen:
		return time.Now().After(b.retryAt) && !b.probing
	case stateHalfOpen:
		return !b.probing
	default:
		return true
	}
}

// Acquire admits a call. While half-open only a single probe is in
// flight at a time.
func (b *Breaker) Acquire() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.st {
	case stateClosed:
		return true
	case stateOpen:
		if time.Now().After(b.retryAt) && !b.probing {
			b.st = stateHalfOpen
			b.probing = true
			return true
		}
		return false
	case stateHalfOpen:
		if !b.probing {
			b.probing = true
			return true
		}
		return false
	default:
		return true
	}
}

// OnResult records the outcome of an admitted call.
func (b *Breaker) OnResult(ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if ok {
		b.fails = 0
		b.st = stateClosed
		b.probing = false
		return
	}

	if b.st == stateHalfOpen {
		b.st = stateOpen
		b.retryAt = time.Now().Add(b.openFor)
		b.probing = false
		return
	}

	b.fails++
	if b.fails >= b.failThreshold {
		b.st = stateOpen
		b.retryAt = time.Now().Add(b.openFor)
	}
}
