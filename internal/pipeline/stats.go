package pipeline

import (
	"slices"
	"sync"
	"time"
)

type splitSample struct {
	at         time.Time
	durationMs int64
	files      int
	failed     bool
}

// StatsSnapshot aggregates split latencies over the rolling window.
type StatsSnapshot struct {
	Count  int     `json:"count"`
	Failed int     `json:"failed"`
	Files  int     `json:"files"`
	MinMs  int64   `json:"min_ms"`
	MaxMs  int64   `json:"max_ms"`
	AvgMs  float64 `json:"avg_ms"`
	P50Ms  float64 `json:"p50_ms"`
	P95Ms  float64 `json:"p95_ms"`
	P99Ms  float64 `json:"p99_ms"`
}

// SplitStats keeps recent split job timings. Samples older than the window
// are dropped on every read and write.
type SplitStats struct {
	mu      sync.Mutex
	samples []splitSample
	window  time.Duration
}

func NewSplitStats(window time.Duration) *SplitStats {
	if window <= 0 {
		window = time.Hour
	}
	return &SplitStats{
		samples: make([]splitSample, 0, 256),
		window:  window,
	}
}

// Record adds one finished job. Failed jobs count toward Failed but not
// toward the latency figures.
func (s *SplitStats) Record(d time.Duration, files int, failed bool) {
	ms := d.Milliseconds()
	if ms < 0 {
		ms = 0
	}
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.pruneLocked(now)
	s.samples = append(s.samples, splitSample{at: now, durationMs: ms, files: files, failed: failed})
}

func (s *SplitStats) Snapshot() StatsSnapshot {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.pruneLocked(now)

	var snap StatsSnapshot
	values := make([]int64, 0, len(s.samples))
	var sum int64
	for _, sm := range s.samples {
		if sm.failed {
			snap.Failed++
			continue
		}
		values = append(values, sm.durationMs)
		sum += sm.durationMs
		snap.Files += sm.files
	}
	if len(values) == 0 {
		return snap
	}
	slices.Sort(values)

	snap.Count = len(values)
	snap.MinMs = values[0]
	snap.MaxMs = values[len(values)-1]
	snap.AvgMs = float64(sum) / float64(len(values))
	snap.P50Ms = percentile(values, 50)
	snap.P95Ms = percentile(values, 95)
	snap.P99Ms = percentile(values, 99)
	return snap
}

func (s *SplitStats) pruneLocked(now time.Time) {
	cutoff := now.Add(-s.window)
	s.samples = slices.DeleteFunc(s.samples, func(sm splitSample) bool {
		return sm.at.Before(cutoff)
	})
}

// percentile interpolates linearly between the closest ranks.
func percentile(sorted []int64, pct float64) float64 {
	switch {
	case len(sorted) == 0:
		return 0
	case pct <= 0:
		return float64(sorted[0])
	case pct >= 100:
		return float64(sorted[len(sorted)-1])
	}

	rank := float64(len(sorted)-1) * pct / 100
	lo := int(rank)
	if lo+1 >= len(sorted) {
		return float64(sorted[lo])
	}
	frac := rank - float64(lo)
	return float64(sorted[lo]) + (float64(sorted[lo+1])-float64(sorted[lo]))*frac
}
