// Package logquery merges the two event streams into one paginated,
// time-descending listing.
// All functions are pure - no side effects.
package logquery

import (
	"sort"

	"github.com/pathtracker/pathtracker/domain/event"
)

// Page is one slice of the merged result set.
type Page struct {
	Logs   []event.Event
	Total  int64
	Limit  int
	Offset int
}

// MergePage interleaves REST and LLM events, sorts them descending by
// request timestamp (ties stable on input order, REST before LLM), and
// returns the [offset, offset+limit) window of the merged sequence.
//
// Callers must fetch at least limit+offset rows from EACH source for the
// window to be exact: the slice is taken after the merge, never per
// source. Deep pages over two sources with very different time
// distributions remain a documented correctness caveat of the two-phase
// fetch-then-merge strategy.
// This is a PURE function.
func MergePage(rest []event.Rest, llm []event.LLM, limit, offset int) []event.Event {
	merged := make([]event.Event, 0, len(rest)+len(llm))
	for _, e := range rest {
		merged = append(merged, e)
	}
	for _, e := range llm {
		merged = append(merged, e)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Meta().RequestTimestamp.After(merged[j].Meta().RequestTimestamp)
	})

	if offset >= len(merged) {
		return nil
	}
	merged = merged[offset:]
	if limit > 0 && len(merged) > limit {
		merged = merged[:limit]
	}
	return merged
}
