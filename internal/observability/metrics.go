package observability

import (
	"strconv"
	"sync"
	"time"
)

// Metrics provides basic in-memory counters.
type Metrics struct {
	mu            sync.Mutex
	requestCount  map[string]int64
	errorCount    map[string]int64
	notifications map[string]int64
	notifyFailed  map[string]int64
	sweeps        SweepStats
	droppedEvents int64
}

// SweepStats aggregates breach sweep runs.
type SweepStats struct {
	Runs          int64         `json:"runs"`
	Failures      int64         `json:"failures"`
	Checked       int64         `json:"checked"`
	Updated       int64         `json:"updated"`
	NewlyBreached int64         `json:"newly_breached"`
	TicketErrors  int64         `json:"ticket_errors"`
	LastDuration  time.Duration `json:"last_duration_ns"`
	LastRunAt     *time.Time    `json:"last_run_at,omitempty"`
}

// Snapshot is a point-in-time copy of every counter.
type Snapshot struct {
	Requests            map[string]int64 `json:"requests"`
	Errors              map[string]int64 `json:"errors"`
	Notifications       map[string]int64 `json:"notifications"`
	NotificationFailure map[string]int64 `json:"notification_failures"`
	Sweeps              SweepStats       `json:"sweeps"`
	DroppedEvents       int64            `json:"dropped_events"`
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		requestCount:  make(map[string]int64),
		errorCount:    make(map[string]int64),
		notifications: make(map[string]int64),
		notifyFailed:  make(map[string]int64),
	}
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, _ time.Duration) {
	if m == nil {
		return
	}
	key := pathKey(path, method, status)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount[key]++
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	key := path + "|" + method + "|" + code
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorCount[key]++
}

// RecordSweep accumulates the outcome of one breach sweep.
func (m *Metrics) RecordSweep(checked, updated, breached, failed int, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	now := time.Now().UTC()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sweeps.Runs++
	if err != nil {
		m.sweeps.Failures++
	}
	m.sweeps.Checked += int64(checked)
	m.sweeps.Updated += int64(updated)
	m.sweeps.NewlyBreached += int64(breached)
	m.sweeps.TicketErrors += int64(failed)
	m.sweeps.LastDuration = elapsed
	m.sweeps.LastRunAt = &now
}

// RecordNotification counts a delivery attempt per notification kind.
func (m *Metrics) RecordNotification(kind string, failed bool) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if failed {
		m.notifyFailed[kind]++
		return
	}
	m.notifications[kind]++
}

// RecordDroppedEvent counts events lost to a full queue.
func (m *Metrics) RecordDroppedEvent() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.droppedEvents++
}

// Snapshot copies the current counters.
func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return Snapshot{
		Requests:            copyCounts(m.requestCount),
		Errors:              copyCounts(m.errorCount),
		Notifications:       copyCounts(m.notifications),
		NotificationFailure: copyCounts(m.notifyFailed),
		Sweeps:              m.sweeps,
		DroppedEvents:       m.droppedEvents,
	}
}

func copyCounts(src map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

func pathKey(path, method string, status int) string {
	return path + "|" + method + "|" + strconv.Itoa(status)
}
