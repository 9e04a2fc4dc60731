package timing

import (
	"context"
	"sync"
	"time"
)

type timingKey struct{}

type TimingInfo struct {
	Operation string
	StartTime time.Time
}

// Stats aggregates the durations recorded for one operation.
type Stats struct {
	Count int
	Total time.Duration
	Min   time.Duration
	Max   time.Duration
}

// Average returns Total/Count, or zero when nothing was recorded.
func (s Stats) Average() time.Duration {
	if s.Count == 0 {
		return 0
	}
	return s.Total / time.Duration(s.Count)
}

func (s *Stats) add(duration time.Duration) {
	if s.Count == 0 || duration < s.Min {
		s.Min = duration
	}
	if duration > s.Max {
		s.Max = duration
	}
	s.Count++
	s.Total += duration
}

// Tracker aggregates durations per named operation. Memory stays constant
// per operation however many frames are timed. It is safe for concurrent
// use, so pipeline stages running on different goroutines can share one.
type Tracker struct {
	stats   map[string]*Stats
	mu      sync.RWMutex
	enabled bool
}

func NewTracker() *Tracker {
	return &Tracker{
		stats:   make(map[string]*Stats),
		enabled: true,
	}
}

func (tt *Tracker) StartTiming(ctx context.Context, operation string) context.Context {
	if !tt.isEnabled() {
		return ctx
	}

	return context.WithValue(ctx, timingKey{}, TimingInfo{
		Operation: operation,
		StartTime: time.Now(),
	})
}

func (tt *Tracker) EndTiming(ctx context.Context) time.Duration {
	if !tt.isEnabled() {
		return 0
	}

	timingInfo, ok := ctx.Value(timingKey{}).(TimingInfo)
	if !ok {
		return 0
	}

	duration := time.Since(timingInfo.StartTime)
	tt.Record(timingInfo.Operation, duration)
	return duration
}

// Record adds an externally measured duration.
func (tt *Tracker) Record(operation string, duration time.Duration) {
	tt.mu.Lock()
	defer tt.mu.Unlock()

	st, ok := tt.stats[operation]
	if !ok {
		st = &Stats{}
		tt.stats[operation] = st
	}
	st.add(duration)
}

// GetStats returns a snapshot of the aggregates for operation.
func (tt *Tracker) GetStats(operation string) Stats {
	tt.mu.RLock()
	defer tt.mu.RUnlock()

	if st, ok := tt.stats[operation]; ok {
		return *st
	}
	return Stats{}
}

func (tt *Tracker) Count(operation string) int {
	return tt.GetStats(operation).Count
}

func (tt *Tracker) GetAverageTime(operation string) time.Duration {
	return tt.GetStats(operation).Average()
}

func (tt *Tracker) SetEnabled(enabled bool) {
	tt.mu.Lock()
	defer tt.mu.Unlock()
	tt.enabled = enabled
}

func (tt *Tracker) isEnabled() bool {
	tt.mu.RLock()
	defer tt.mu.RUnlock()
	return tt.enabled
}

func (tt *Tracker) Reset(operation string) {
	tt.mu.Lock()
	defer tt.mu.Unlock()

	if operation == "" {
		tt.stats = make(map[string]*Stats)
	} else {
		delete(tt.stats, operation)
	}
}
