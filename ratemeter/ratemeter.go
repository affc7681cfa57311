// Package ratemeter implements a sliding one-second wall-clock byte
// counter used for per-sink and per-stream telemetry.
package ratemeter

import (
	"sync"
	"time"
)

// Meter charges bytes as they are sampled and reports the byte count of
// the most recently completed one-second window. Reading PerSecond is
// O(1); a long idle period does not retroactively credit intermediate
// windows — the window simply jumps from stale straight to empty.
type Meter struct {
	mu          sync.Mutex
	accumulator uint64
	latest      uint64
	windowStart time.Time
}

// New returns a Meter with its window starting now.
func New() *Meter {
	return &Meter{windowStart: time.Now()}
}

// Sample charges n bytes against the current window.
func (m *Meter) Sample(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.roll()
	m.accumulator += uint64(n)
}

// PerSecond returns the byte count recorded during the most recently
// completed one-second window.
func (m *Meter) PerSecond() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.roll()
	return m.latest
}

// roll must be called with mu held. It advances the window whenever at
// least one second has elapsed since windowStart, publishing the
// accumulated count as latest and starting a fresh empty window.
func (m *Meter) roll() {
	now := time.Now()
	if now.Sub(m.windowStart) < time.Second {
		return
	}
	m.latest = m.accumulator
	m.accumulator = 0
	m.windowStart = now
}
