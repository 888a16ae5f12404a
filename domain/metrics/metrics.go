// Package metrics provides aggregation types and percentile estimation for
// the metrics snapshot. REST and LLM figures are computed independently
// and never mixed.
// All functions are pure - no side effects.
package metrics

import (
	"math"
	"sort"
	"time"
)

// Period is the inclusive time window a snapshot covers.
type Period struct {
	Start time.Time
	End   time.Time
}

// LatencySummary holds interpolated latency percentiles, rounded to the
// nearest integer millisecond. All zero when no values were in range.
type LatencySummary struct {
	P50 int64
	P95 int64
	P99 int64
}

// RestMetrics is the REST block of a snapshot.
type RestMetrics struct {
	Total     int64
	ByService map[string]int64
	ByStatus  map[string]int64
	Latency   LatencySummary
}

// LLMMetrics is the LLM block of a snapshot.
type LLMMetrics struct {
	Total        int64
	ByProvider   map[string]int64
	ByModel      map[string]int64
	TotalTokens  int64
	TotalCostUSD float64
	Latency      LatencySummary
}

// Snapshot is the derived, non-persisted aggregate for one
// (tenant, window) pair. Recomputed on every query.
type Snapshot struct {
	Period Period
	Rest   RestMetrics
	LLM    LLMMetrics
}

// Percentile estimates the p-quantile (0 <= p <= 1) of values using
// continuous linear interpolation between closest ranks - the same
// estimator as SQL's PERCENTILE_CONT, NOT nearest-rank. Returns 0 for
// empty input. Negative latencies participate as ordinary values.
// This is a PURE function.
func Percentile(values []int64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}

	sorted := make([]int64, len(values))
	copy(sorted, values)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	if p <= 0 {
		return float64(sorted[0])
	}
	if p >= 1 {
		return float64(sorted[len(sorted)-1])
	}

	rank := p * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return float64(sorted[lo])
	}
	frac := rank - float64(lo)
	return float64(sorted[lo]) + frac*(float64(sorted[hi])-float64(sorted[lo]))
}

// Latencies computes the standard p50/p95/p99 summary over raw latency
// values, rounding each to the nearest millisecond at output.
// This is a PURE function.
func Latencies(values []int64) LatencySummary {
	return LatencySummary{
		P50: roundMs(Percentile(values, 0.50)),
		P95: roundMs(Percentile(values, 0.95)),
		P99: roundMs(Percentile(values, 0.99)),
	}
}

func roundMs(v float64) int64 {
	return int64(math.Round(v))
}
