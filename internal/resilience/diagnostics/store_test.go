package diagnostics

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"pgregory.net/rapid"

	"github.com/vietddude/invoker/internal/core/domain"
	"github.com/vietddude/invoker/internal/resilience/backoff"
)

func newTestStore(opts ...Option) *Store {
	return NewStore(backoff.MustPolicy(backoff.DefaultConfig), opts...)
}

func entry(i int) domain.ClassifiedError {
	return domain.ClassifiedError{
		Message:   fmt.Sprintf("limit exceeded #%d", i),
		Timestamp: time.Unix(int64(i), 0),
	}
}

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	var m dto.Metric
	if err := g.Write(&m); err != nil {
		t.Fatalf("Write: %v", err)
	}
	return m.GetGauge().GetValue()
}

func TestStore_RetainedGaugePerStore(t *testing.T) {
	ga := prometheus.NewGauge(prometheus.GaugeOpts{Name: "a_retained"})
	gb := prometheus.NewGauge(prometheus.GaugeOpts{Name: "b_retained"})
	a := newTestStore(WithRetainedGauge(ga))
	b := newTestStore(WithRetainedGauge(gb))

	for i := 0; i < 3; i++ {
		a.Record(entry(i))
	}
	b.Record(entry(0))

	if got := gaugeValue(t, ga); got != 3 {
		t.Errorf("store a gauge = %v, want 3", got)
	}
	if got := gaugeValue(t, gb); got != 1 {
		t.Errorf("store b gauge = %v, want 1", got)
	}

	a.Clear()
	if got, other := gaugeValue(t, ga), gaugeValue(t, gb); got != 0 || other != 1 {
		t.Errorf("after Clear gauges = %v, %v, want 0, 1", got, other)
	}
}

func TestStore_Bounded(t *testing.T) {
	s := newTestStore()
	for i := 0; i < 150; i++ {
		s.Record(entry(i))
	}

	snap := s.Snapshot()
	if snap.TotalCount != 150 {
		t.Errorf("TotalCount = %d, want 150", snap.TotalCount)
	}
	if s.Len() != DefaultCapacity || snap.Retained != DefaultCapacity {
		t.Errorf("retained = %d/%d, want %d", s.Len(), snap.Retained, DefaultCapacity)
	}
	if len(snap.Recent) != DefaultRecentLimit {
		t.Fatalf("len(Recent) = %d, want %d", len(snap.Recent), DefaultRecentLimit)
	}
	// Most recent last.
	for i, e := range snap.Recent {
		want := entry(140 + i).Message
		if e.Message != want {
			t.Errorf("Recent[%d] = %q, want %q", i, e.Message, want)
		}
	}
}

func TestStore_SnapshotFewEntries(t *testing.T) {
	s := newTestStore()
	s.Record(entry(1))
	s.Record(entry(2))

	snap := s.Snapshot()
	if len(snap.Recent) != 2 || snap.Recent[0].Message != entry(1).Message {
		t.Errorf("Recent = %+v", snap.Recent)
	}
	if snap.Policy.MaxAttempts != backoff.DefaultConfig.MaxAttempts {
		t.Errorf("Policy.MaxAttempts = %d", snap.Policy.MaxAttempts)
	}
}

func TestStore_SnapshotIsCopy(t *testing.T) {
	s := newTestStore()
	s.Record(entry(1))

	snap := s.Snapshot()
	snap.Recent[0].Message = "mutated"
	snap.Policy.ScheduleMs[0] = 0

	again := s.Snapshot()
	if again.Recent[0].Message != entry(1).Message {
		t.Error("snapshot mutation leaked into store entries")
	}
	if again.Policy.ScheduleMs[0] != 500 {
		t.Error("snapshot mutation leaked into policy summary")
	}
}

func TestStore_Clear(t *testing.T) {
	s := newTestStore()
	for i := 0; i < 5; i++ {
		s.Record(entry(i))
	}
	s.Clear()

	snap := s.Snapshot()
	if snap.TotalCount != 0 || snap.Retained != 0 || len(snap.Recent) != 0 {
		t.Errorf("after Clear got %+v", snap)
	}
}

func TestStore_Options(t *testing.T) {
	s := newTestStore(WithCapacity(3), WithRecentLimit(2))
	for i := 0; i < 5; i++ {
		s.Record(entry(i))
	}
	snap := s.Snapshot()
	if snap.Retained != 3 || len(snap.Recent) != 2 || snap.Recent[1].Message != entry(4).Message {
		t.Errorf("unexpected snapshot %+v", snap)
	}
}

func TestStore_ConcurrentRecord(t *testing.T) {
	s := newTestStore()
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				s.Record(entry(g*100 + i))
				_ = s.Snapshot()
			}
		}(g)
	}
	wg.Wait()

	snap := s.Snapshot()
	if snap.TotalCount != 400 {
		t.Errorf("TotalCount = %d, want 400", snap.TotalCount)
	}
	if snap.Retained != DefaultCapacity {
		t.Errorf("Retained = %d, want %d", snap.Retained, DefaultCapacity)
	}
}

// Property: the log never exceeds capacity and recent never exceeds its limit.
func TestProperty_StoreBounds(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		capacity := rapid.IntRange(1, 50).Draw(t, "capacity")
		recent := rapid.IntRange(1, 20).Draw(t, "recent")
		n := rapid.IntRange(0, 200).Draw(t, "records")

		s := newTestStore(WithCapacity(capacity), WithRecentLimit(recent))
		for i := 0; i < n; i++ {
			s.Record(entry(i))
			if s.Len() > capacity {
				t.Fatalf("Len() = %d exceeds capacity %d", s.Len(), capacity)
			}
		}

		snap := s.Snapshot()
		if snap.TotalCount != n {
			t.Fatalf("TotalCount = %d, want %d", snap.TotalCount, n)
		}
		if len(snap.Recent) > recent {
			t.Fatalf("len(Recent) = %d exceeds %d", len(snap.Recent), recent)
		}
		if n > 0 && snap.Recent[len(snap.Recent)-1].Message != entry(n-1).Message {
			t.Fatalf("last recent entry is not the newest record")
		}
	})
}
