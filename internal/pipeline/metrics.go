// Package pipeline implements pipeline metrics.
package pipeline

import (
	"sync/atomic"
	"time"
)

// Metrics contains per-pipeline counters. Prometheus carries the process-wide
// totals; these are what a single source contributed.
type Metrics struct {
	Source string

	Received     atomic.Uint64
	Decoded      atomic.Uint64
	DecodeErrors atomic.Uint64
	Skipped      atomic.Uint64 // frames without TCP or UDP over IP
	Processed    atomic.Uint64
	Dropped      atomic.Uint64 // flow table full
	Classified   atomic.Uint64
	Expired      atomic.Uint64

	firstPacket atomic.Int64 // unix nanos, 0 = none yet
	lastPacket  atomic.Int64
}

// NewMetrics creates a new metrics instance.
func NewMetrics(source string) *Metrics {
	return &Metrics{Source: source}
}

func (m *Metrics) observeTimestamp(ts time.Time) {
	n := ts.UnixNano()
	m.firstPacket.CompareAndSwap(0, n)
	if n > m.lastPacket.Load() {
		m.lastPacket.Store(n)
	}
}

// Reset resets all counters to zero.
func (m *Metrics) Reset() {
	m.Received.Store(0)
	m.Decoded.Store(0)
	m.DecodeErrors.Store(0)
	m.Skipped.Store(0)
	m.Processed.Store(0)
	m.Dropped.Store(0)
	m.Classified.Store(0)
	m.Expired.Store(0)
	m.firstPacket.Store(0)
	m.lastPacket.Store(0)
}
