// Package path reconstructs the chronological trace of all events sharing
// one request id.
// All functions are pure - no side effects.
package path

import (
	"sort"

	"github.com/pathtracker/pathtracker/domain/event"
)

// Path is a derived, non-persisted view over one (tenant, request_id)
// event set. It is recomputed on every query.
type Path struct {
	RequestID       string
	UserID          string // first non-empty user id among the events, "" if none
	TotalDurationMs int64
	EventCount      int
	Events          []event.Event // ascending by request timestamp
}

// Reconstruct merges REST and LLM events for one request id into an
// ordered trace. Returns nil when no events match; callers translate that
// to not-found rather than an empty path.
//
// The sort is stable: events with equal request timestamps keep their
// input order. The span is computed from the explicit minimum request
// timestamp and maximum response timestamp across all events - overlapping
// calls mean the chronologically last event by request time is not
// necessarily the one that finished last.
// This is a PURE function.
func Reconstruct(requestID string, events []event.Event) *Path {
	if len(events) == 0 {
		return nil
	}

	merged := make([]event.Event, len(events))
	copy(merged, events)
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Meta().RequestTimestamp.Before(merged[j].Meta().RequestTimestamp)
	})

	first := merged[0].Meta()
	minRequest := first.RequestTimestamp
	maxResponse := first.ResponseTimestamp
	userID := ""
	for _, e := range merged {
		m := e.Meta()
		if m.RequestTimestamp.Before(minRequest) {
			minRequest = m.RequestTimestamp
		}
		if m.ResponseTimestamp.After(maxResponse) {
			maxResponse = m.ResponseTimestamp
		}
		if userID == "" && m.UserID != "" {
			userID = m.UserID
		}
	}

	return &Path{
		RequestID:       requestID,
		UserID:          userID,
		TotalDurationMs: maxResponse.Sub(minRequest).Milliseconds(),
		EventCount:      len(merged),
		Events:          merged,
	}
}

// Merge interleaves the two variant slices into one event slice, REST
// first, preserving each source's order. Used to feed Reconstruct with a
// deterministic input order for equal-timestamp ties.
// This is a PURE function.
func Merge(rest []event.Rest, llm []event.LLM) []event.Event {
	merged := make([]event.Event, 0, len(rest)+len(llm))
	for _, e := range rest {
		merged = append(merged, e)
	}
	for _, e := range llm {
		merged = append(merged, e)
	}
	return merged
}
