package path_test

import (
	"testing"
	"time"

	"github.com/pathtracker/pathtracker/domain/event"
	"github.com/pathtracker/pathtracker/domain/path"
)

var t0 = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

func restEvent(id string, reqOffset, respOffset time.Duration, userID string) event.Rest {
	return event.Rest{
		Common: event.Common{
			EventID:           id,
			TenantID:          "tn-1",
			RequestID:         "req-1",
			UserID:            userID,
			RequestTimestamp:  t0.Add(reqOffset),
			ResponseTimestamp: t0.Add(respOffset),
		},
		Method: "GET",
	}
}

func llmEvent(id string, reqOffset, respOffset time.Duration) event.LLM {
	return event.LLM{
		Common: event.Common{
			EventID:           id,
			TenantID:          "tn-1",
			RequestID:         "req-1",
			RequestTimestamp:  t0.Add(reqOffset),
			ResponseTimestamp: t0.Add(respOffset),
		},
		Provider: "openai",
		Model:    "gpt-4",
	}
}

func TestReconstruct_Empty(t *testing.T) {
	if p := path.Reconstruct("req-1", nil); p != nil {
		t.Errorf("Reconstruct() = %+v, want nil", p)
	}
}

func TestReconstruct_OrdersByRequestTimestamp(t *testing.T) {
	events := []event.Event{
		restEvent("e3", 2*time.Second, 3*time.Second, ""),
		llmEvent("e1", 0, time.Second),
		restEvent("e2", time.Second, 2*time.Second, ""),
	}

	p := path.Reconstruct("req-1", events)
	if p == nil {
		t.Fatal("expected path")
	}

	wantOrder := []string{"e1", "e2", "e3"}
	for i, want := range wantOrder {
		if got := p.Events[i].Meta().EventID; got != want {
			t.Errorf("events[%d] = %s, want %s", i, got, want)
		}
	}
	if p.EventCount != 3 {
		t.Errorf("EventCount = %d, want 3", p.EventCount)
	}
}

func TestReconstruct_TotalDurationSpansOverlap(t *testing.T) {
	// e1 starts first but finishes last; e2 starts later and finishes
	// earlier. The span is min(request) to max(response), not the last
	// event's response.
	events := []event.Event{
		restEvent("e1", 0, 5*time.Second, ""),
		restEvent("e2", time.Second, 2*time.Second, ""),
	}

	p := path.Reconstruct("req-1", events)
	if p == nil {
		t.Fatal("expected path")
	}

	if p.TotalDurationMs != 5000 {
		t.Errorf("TotalDurationMs = %d, want 5000", p.TotalDurationMs)
	}
}

func TestReconstruct_FirstNonEmptyUserID(t *testing.T) {
	events := []event.Event{
		restEvent("e2", time.Second, 2*time.Second, "bob"),
		restEvent("e1", 0, time.Second, ""),
		restEvent("e3", 2*time.Second, 3*time.Second, "carol"),
	}

	p := path.Reconstruct("req-1", events)
	if p == nil {
		t.Fatal("expected path")
	}

	// e1 sorts first but has no user; bob is the first non-empty user in
	// chronological order.
	if p.UserID != "bob" {
		t.Errorf("UserID = %q, want %q", p.UserID, "bob")
	}
}

func TestReconstruct_StableOnEqualTimestamps(t *testing.T) {
	events := []event.Event{
		restEvent("first", 0, time.Second, ""),
		llmEvent("second", 0, time.Second),
		restEvent("third", 0, time.Second, ""),
	}

	p := path.Reconstruct("req-1", events)
	if p == nil {
		t.Fatal("expected path")
	}

	wantOrder := []string{"first", "second", "third"}
	for i, want := range wantOrder {
		if got := p.Events[i].Meta().EventID; got != want {
			t.Errorf("events[%d] = %s, want %s (tie order must be stable)", i, got, want)
		}
	}
}

func TestMerge(t *testing.T) {
	rest := []event.Rest{restEvent("r1", 0, time.Second, "")}
	llm := []event.LLM{llmEvent("l1", 0, time.Second)}

	merged := path.Merge(rest, llm)

	if len(merged) != 2 {
		t.Fatalf("len = %d, want 2", len(merged))
	}
	if merged[0].EventType() != event.TypeRest || merged[1].EventType() != event.TypeLLM {
		t.Error("Merge must keep REST events before LLM events")
	}
}
