// Package diagnostics keeps a bounded, process-wide record of classified
// false-positive errors.
package diagnostics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vietddude/invoker/internal/core/domain"
	"github.com/vietddude/invoker/internal/metrics"
	"github.com/vietddude/invoker/internal/resilience/backoff"
)

const (
	DefaultCapacity    = 100
	DefaultRecentLimit = 10
)

// Snapshot is a read-only view of the store.
type Snapshot struct {
	TotalCount int                      `json:"total_count"`
	Retained   int                      `json:"retained"`
	Recent     []domain.ClassifiedError `json:"recent"`
	Policy     backoff.Summary          `json:"policy"`
}

// Store is the bounded diagnostics log. It is safe for concurrent use.
type Store struct {
	mu sync.RWMutex

	entries     []domain.ClassifiedError
	capacity    int
	recentLimit int
	total       int

	policy backoff.Summary
	gauge  prometheus.Gauge
}

// Option configures a Store.
type Option func(*Store)

// WithCapacity overrides the number of retained entries.
func WithCapacity(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.capacity = n
		}
	}
}

// WithRecentLimit overrides the number of entries returned by Snapshot.
func WithRecentLimit(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.recentLimit = n
		}
	}
}

// WithRetainedGauge reports the retained entry count to g instead of the
// process-wide metrics.DiagnosticsRetained. Use it when more than one Store
// lives in a process, since stores sharing a gauge overwrite each other.
func WithRetainedGauge(g prometheus.Gauge) Option {
	return func(s *Store) {
		if g != nil {
			s.gauge = g
		}
	}
}

// NewStore creates an empty store describing policy in its snapshots.
func NewStore(policy backoff.Policy, opts ...Option) *Store {
	s := &Store{
		capacity:    DefaultCapacity,
		recentLimit: DefaultRecentLimit,
		policy:      policy.Summary(),
		gauge:       metrics.DiagnosticsRetained,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.entries = make([]domain.ClassifiedError, 0, s.capacity)
	return s
}

// Record appends entry, evicting the oldest entries beyond capacity.
func (s *Store) Record(entry domain.ClassifiedError) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.total++
	s.entries = append(s.entries, entry)
	if over := len(s.entries) - s.capacity; over > 0 {
		s.entries = s.entries[over:]
	}

	s.gauge.Set(float64(len(s.entries)))
}

// Snapshot returns the total count, the most recent entries in insertion
// order and the policy summary.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	start := len(s.entries) - s.recentLimit
	if start < 0 {
		start = 0
	}
	recent := make([]domain.ClassifiedError, len(s.entries)-start)
	copy(recent, s.entries[start:])

	schedule := make([]int64, len(s.policy.ScheduleMs))
	copy(schedule, s.policy.ScheduleMs)
	policy := s.policy
	policy.ScheduleMs = schedule

	return Snapshot{
		TotalCount: s.total,
		Retained:   len(s.entries),
		Recent:     recent,
		Policy:     policy,
	}
}

// Len returns the number of retained entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Clear empties the log and resets the total count.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = make([]domain.ClassifiedError, 0, s.capacity)
	s.total = 0
	s.gauge.Set(0)
}
