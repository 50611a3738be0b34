package trigger

import (
	"sync"
	"time"

	"cronjob-trigger/pkg/logging"
	"cronjob-trigger/pkg/strings"
)

// summaryFailureLen bounds the last failure in the shutdown summary; the full
// error was logged when it happened.
const summaryFailureLen = 200

// Metrics tracks what the pipeline saw and did. It is logged as a summary
// at shutdown and used by tests to observe the pipeline without timing.
type Metrics struct {
	mu sync.RWMutex

	eventsObserved   int64
	changesQualified int64
	cacheSkips       int64
	patternMisses    int64
	firings          int64
	deferredFirings  int64
	launchSuccesses  int64
	launchFailures   int64
	lastJobName      string
	lastSuccessAt    time.Time
	lastFailureAt    time.Time
	lastFailure      string
}

// MetricsSummary is a read-only copy of the counters.
type MetricsSummary struct {
	EventsObserved   int64     `json:"events_observed"`
	ChangesQualified int64     `json:"changes_qualified"`
	CacheSkips       int64     `json:"cache_skips"`
	PatternMisses    int64     `json:"pattern_misses"`
	Firings          int64     `json:"firings"`
	DeferredFirings  int64     `json:"deferred_firings"`
	LaunchSuccesses  int64     `json:"launch_successes"`
	LaunchFailures   int64     `json:"launch_failures"`
	LastJobName      string    `json:"last_job_name,omitempty"`
	LastSuccessAt    time.Time `json:"last_success_at,omitempty"`
	LastFailureAt    time.Time `json:"last_failure_at,omitempty"`
	LastFailure      string    `json:"last_failure,omitempty"`
}

// NewMetrics creates a new Metrics instance.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// RecordEvent records a raw event delivered by the watcher.
func (m *Metrics) RecordEvent() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.eventsObserved++
}

// RecordQualified records a change that re-armed the debouncer.
func (m *Metrics) RecordQualified() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.changesQualified++
}

// RecordCacheSkip records a matching change suppressed by the path cache.
func (m *Metrics) RecordCacheSkip() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cacheSkips++
}

// RecordPatternMiss records a change whose path did not match.
func (m *Metrics) RecordPatternMiss() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.patternMisses++
}

// RecordFiring records the debouncer firing.
func (m *Metrics) RecordFiring() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.firings++
}

// RecordDeferred records a firing that arrived while a launch was in flight.
func (m *Metrics) RecordDeferred() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deferredFirings++
}

// RecordLaunchSuccess records a created Job.
func (m *Metrics) RecordLaunchSuccess(jobName string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.launchSuccesses++
	m.lastJobName = jobName
	m.lastSuccessAt = time.Now()
}

// RecordLaunchFailure records a failed launch.
func (m *Metrics) RecordLaunchFailure(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.launchFailures++
	m.lastFailureAt = time.Now()
	if err != nil {
		m.lastFailure = err.Error()
	}
}

// Summary returns a snapshot of the counters.
func (m *Metrics) Summary() MetricsSummary {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return MetricsSummary{
		EventsObserved:   m.eventsObserved,
		ChangesQualified: m.changesQualified,
		CacheSkips:       m.cacheSkips,
		PatternMisses:    m.patternMisses,
		Firings:          m.firings,
		DeferredFirings:  m.deferredFirings,
		LaunchSuccesses:  m.launchSuccesses,
		LaunchFailures:   m.launchFailures,
		LastJobName:      m.lastJobName,
		LastSuccessAt:    m.lastSuccessAt,
		LastFailureAt:    m.lastFailureAt,
		LastFailure:      m.lastFailure,
	}
}

// LogSummary writes the counters at info level.
func (m *Metrics) LogSummary() {
	s := m.Summary()
	logging.Info("Trigger", "Events: %d observed, %d qualified, %d cached, %d unmatched; launches: %d fired, %d deferred, %d succeeded, %d failed",
		s.EventsObserved, s.ChangesQualified, s.CacheSkips, s.PatternMisses,
		s.Firings, s.DeferredFirings, s.LaunchSuccesses, s.LaunchFailures)
	if s.LastJobName != "" {
		logging.Info("Trigger", "Last Job created: %s at %s", s.LastJobName, s.LastSuccessAt.Format(time.RFC3339))
	}
	if s.LastFailure != "" {
		logging.Info("Trigger", "Last launch failure at %s: %s",
			s.LastFailureAt.Format(time.RFC3339), strings.SingleLine(s.LastFailure, summaryFailureLen))
	}
}
