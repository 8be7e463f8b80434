// Package keypool rotates among interchangeable API credentials so a
// rate-limited upstream can be queried past a single credential's quota.
package keypool

import "sync"

// Pool holds an ordered list of credentials, the index of the active one, and
// the set of indices marked exhausted. Mutation is mutex-guarded; adapters may
// share one pool across concurrent fetches.
type Pool struct {
	mu        sync.Mutex
	keys      []string
	current   int
	exhausted map[int]bool
}

// New creates a pool over the given credentials, in order. An empty list is
// allowed and yields a pool with no available credential.
func New(keys []string) *Pool {
	return &Pool{
		keys:      append([]string(nil), keys...),
		exhausted: make(map[int]bool),
	}
}

// Current returns the active credential. ok is false when the pool is empty or
// every credential is exhausted.
func (p *Pool) Current() (key string, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.keys) == 0 || p.exhausted[p.current] {
		return "", false
	}
	return p.keys[p.current], true
}

// Rotate marks the active credential exhausted and scans forward (wrapping)
// for the first non-exhausted one, adopting it as active. It returns false and
// leaves the current index unchanged when no usable credential remains.
func (p *Pool) Rotate() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.keys) == 0 {
		return false
	}

	p.exhausted[p.current] = true
	for i := 1; i <= len(p.keys); i++ {
		idx := (p.current + i) % len(p.keys)
		if !p.exhausted[idx] {
			p.current = idx
			return true
		}
	}
	return false
}

// Reset clears the exhausted set and makes the first credential active again.
// The scheduler calls this on a daily cadence, since upstream quotas refill on
// a calendar cycle.
func (p *Pool) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.current = 0
	p.exhausted = make(map[int]bool)
}

// HasAvailable reports whether at least one credential is not exhausted.
func (p *Pool) HasAvailable() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.exhausted) < len(p.keys)
}

// Size returns the number of credentials in the pool.
func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.keys)
}
