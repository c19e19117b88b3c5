package sql

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"
)

// QueryStats collects execution statistics for a connection. Counters are
// atomic so a collector can be shared by several connections.
type QueryStats struct {
	queries       atomic.Int64
	execs         atomic.Int64
	totalDuration atomic.Int64 // nanoseconds
	slowQueries   atomic.Int64
	errors        atomic.Int64
}

func (s *QueryStats) record(isQuery bool, elapsed time.Duration, err error, slowAt time.Duration) {
	if isQuery {
		s.queries.Add(1)
	} else {
		s.execs.Add(1)
	}
	s.totalDuration.Add(int64(elapsed))
	if slowAt > 0 && elapsed >= slowAt {
		s.slowQueries.Add(1)
	}
	if err != nil {
		s.errors.Add(1)
	}
}

// Snapshot returns a point-in-time copy of the statistics.
func (s *QueryStats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		Queries:       s.queries.Load(),
		Execs:         s.execs.Load(),
		TotalDuration: time.Duration(s.totalDuration.Load()),
		SlowQueries:   s.slowQueries.Load(),
		Errors:        s.errors.Load(),
	}
}

// Reset zeroes all counters.
func (s *QueryStats) Reset() {
	s.queries.Store(0)
	s.execs.Store(0)
	s.totalDuration.Store(0)
	s.slowQueries.Store(0)
	s.errors.Store(0)
}

// StatsSnapshot is a point-in-time view of a QueryStats collector.
type StatsSnapshot struct {
	Queries       int64
	Execs         int64
	TotalDuration time.Duration
	SlowQueries   int64
	Errors        int64
}

// AvgDuration returns the average statement duration.
func (s StatsSnapshot) AvgDuration() time.Duration {
	total := s.Queries + s.Execs
	if total == 0 {
		return 0
	}
	return s.TotalDuration / time.Duration(total)
}

// String returns a human-readable summary.
func (s StatsSnapshot) String() string {
	return fmt.Sprintf("queries=%d execs=%d duration=%s avg=%s slow=%d errors=%d",
		s.Queries, s.Execs, s.TotalDuration, s.AvgDuration(), s.SlowQueries, s.Errors)
}

// SlowQueryHook is called when a statement exceeds the configured slow
// threshold. Only statement text is passed, never bound values.
type SlowQueryHook func(ctx context.Context, query string, elapsed time.Duration)
