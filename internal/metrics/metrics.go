package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Metrics holds application runtime metrics
type Metrics struct {
	startTime time.Time

	// Request counters
	requestsTotal   uint64
	requestsSuccess uint64
	requestsError   uint64

	// Radio counters
	tracksPlayed   uint64
	skipsTotal     uint64
	healsTotal     uint64
	fallbacksTotal uint64

	// Latency tracking
	mu           sync.RWMutex
	latencySum   time.Duration
	latencyCount uint64
}

// Global metrics instance
var global = &Metrics{
	startTime: time.Now(),
}

// Get returns the global metrics instance
func Get() *Metrics {
	return global
}

// RecordRequest records a request with status and latency
func (m *Metrics) RecordRequest(status int, latency time.Duration) {
	atomic.AddUint64(&m.requestsTotal, 1)
	if status >= 200 && status < 400 {
		atomic.AddUint64(&m.requestsSuccess, 1)
	} else if status >= 400 {
		atomic.AddUint64(&m.requestsError, 1)
	}

	m.mu.Lock()
	m.latencySum += latency
	m.latencyCount++
	m.mu.Unlock()
}

// RecordTrack records one track starting playback
func (m *Metrics) RecordTrack() {
	atomic.AddUint64(&m.tracksPlayed, 1)
}

// RecordSkip records a user-initiated skip
func (m *Metrics) RecordSkip() {
	atomic.AddUint64(&m.skipsTotal, 1)
}

// RecordHeal records a stalled-player recovery
func (m *Metrics) RecordHeal() {
	atomic.AddUint64(&m.healsTotal, 1)
}

// RecordFallback records a commentary fetch that fell back to the canned line
func (m *Metrics) RecordFallback() {
	atomic.AddUint64(&m.fallbacksTotal, 1)
}

// Snapshot returns current metrics as a map
func (m *Metrics) Snapshot() map[string]any {
	m.mu.RLock()
	avgLatency := float64(0)
	if m.latencyCount > 0 {
		avgLatency = float64(m.latencySum.Milliseconds()) / float64(m.latencyCount)
	}
	m.mu.RUnlock()

	return map[string]any{
		"uptime_seconds":       time.Since(m.startTime).Seconds(),
		"requests_total":       atomic.LoadUint64(&m.requestsTotal),
		"requests_success":     atomic.LoadUint64(&m.requestsSuccess),
		"requests_error":       atomic.LoadUint64(&m.requestsError),
		"tracks_played":        atomic.LoadUint64(&m.tracksPlayed),
		"skips_total":          atomic.LoadUint64(&m.skipsTotal),
		"heals_total":          atomic.LoadUint64(&m.healsTotal),
		"commentary_fallbacks": atomic.LoadUint64(&m.fallbacksTotal),
		"avg_latency_ms":       avgLatency,
	}
}
