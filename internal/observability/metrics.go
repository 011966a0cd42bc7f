package observability

import "sync"

// Counter names for lifecycle metrics.
const (
	MetricTicketsCreated    = "tickets_created"
	MetricTicketsClaimed    = "tickets_claimed"
	MetricTicketsClosed     = "tickets_closed"
	MetricTicketsArchived   = "tickets_archived"
	MetricTicketsPurged     = "tickets_purged"
	MetricTranscriptsOK     = "transcripts_published"
	MetricTranscriptsFailed = "transcripts_failed"
	MetricSweepRuns         = "sweep_runs"
	MetricSweepFailures     = "sweep_failures"
)

// Metrics provides basic in-memory counters for lifecycle operations.
type Metrics struct {
	mu       sync.Mutex
	counters map[string]int64
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{counters: make(map[string]int64)}
}

// Inc increments the named counter.
func (m *Metrics) Inc(name string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters[name]++
}

// Value returns the current value of the named counter.
func (m *Metrics) Value(name string) int64 {
	if m == nil {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counters[name]
}

// Snapshot copies all counters, for exposure on diagnostic endpoints.
func (m *Metrics) Snapshot() map[string]int64 {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]int64, len(m.counters))
	for k, v := range m.counters {
		out[k] = v
	}
	return out
}
