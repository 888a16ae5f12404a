package event_test

import (
	"testing"
	"time"

	"github.com/pathtracker/pathtracker/domain/event"
)

func TestLatency(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		req  time.Time
		resp time.Time
		want int64
	}{
		{name: "positive", req: base, resp: base.Add(250 * time.Millisecond), want: 250},
		{name: "zero", req: base, resp: base, want: 0},
		{name: "negative clock skew kept", req: base, resp: base.Add(-100 * time.Millisecond), want: -100},
		{name: "sub-millisecond floors", req: base, resp: base.Add(1500 * time.Microsecond), want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := event.Latency(tt.req, tt.resp); got != tt.want {
				t.Errorf("Latency() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestEventType(t *testing.T) {
	var e event.Event = event.Rest{}
	if e.EventType() != event.TypeRest {
		t.Errorf("Rest EventType() = %s", e.EventType())
	}

	e = event.LLM{}
	if e.EventType() != event.TypeLLM {
		t.Errorf("LLM EventType() = %s", e.EventType())
	}
}

func TestMeta_SharedFields(t *testing.T) {
	c := event.Common{EventID: "e1", TenantID: "tn-1", RequestID: "req-1"}

	rest := event.Rest{Common: c, Method: "POST"}
	if rest.Meta().EventID != "e1" || rest.Meta().RequestID != "req-1" {
		t.Error("Rest Meta() must expose the shared attributes")
	}

	llm := event.LLM{Common: c, Model: "gpt-4"}
	if llm.Meta().TenantID != "tn-1" {
		t.Error("LLM Meta() must expose the shared attributes")
	}
}
