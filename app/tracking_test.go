package app_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/pathtracker/pathtracker/adapters/clock"
	"github.com/pathtracker/pathtracker/adapters/idgen"
	"github.com/pathtracker/pathtracker/adapters/memory"
	"github.com/pathtracker/pathtracker/app"
	"github.com/pathtracker/pathtracker/domain/event"
	"github.com/pathtracker/pathtracker/domain/tenant"
)

var trackBase = time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)

func newTrackingFixture(t *testing.T) (*app.TrackingService, *memory.EventStore, *memory.TenantStore) {
	t.Helper()

	events := memory.NewEventStore()
	tenants := memory.NewTenantStore()
	svc := app.NewTrackingService(app.TrackingDeps{
		Events:  events,
		Tenants: tenants,
		Clock:   clock.NewFake(trackBase),
		IDGen:   idgen.NewSequential("evt_"),
		Log:     zerolog.Nop(),
	})
	return svc, events, tenants
}

func createTenant(t *testing.T, tenants *memory.TenantStore, tn tenant.Tenant) {
	t.Helper()
	if err := tenants.Create(context.Background(), tn); err != nil {
		t.Fatalf("Create tenant: %v", err)
	}
}

func restInput(requestID string) app.RestInput {
	return app.RestInput{
		RequestID:         requestID,
		UserID:            "alice",
		RequestTimestamp:  trackBase,
		ResponseTimestamp: trackBase.Add(150 * time.Millisecond),
		Service:           "orders",
		Method:            "GET",
		URL:               "/v1/orders",
		StatusCode:        200,
	}
}

func llmInput(requestID string) app.LLMInput {
	return app.LLMInput{
		RequestID:         requestID,
		UserID:            "alice",
		RequestTimestamp:  trackBase,
		ResponseTimestamp: trackBase.Add(2 * time.Second),
		Service:           "assistant",
		StatusCode:        200,
		Provider:          "openai",
		Model:             "gpt-4",
		PromptTokens:      100,
		CompletionTokens:  50,
		TotalTokens:       150,
		CostUSD:           0.0045,
	}
}

func TestTrackRest(t *testing.T) {
	svc, events, tenants := newTrackingFixture(t)
	createTenant(t, tenants, tenant.New("tn-1", "acme", trackBase))

	r, err := svc.TrackRest(context.Background(), "tn-1", restInput("req-1"))
	if err != nil {
		t.Fatalf("TrackRest: %v", err)
	}

	if r.EventID == "" {
		t.Error("receipt must carry the event id")
	}
	if r.Type != event.TypeRest {
		t.Errorf("Type = %s, want rest", r.Type)
	}

	stored, err := events.ListRestByRequestID(context.Background(), "tn-1", "req-1")
	if err != nil {
		t.Fatalf("ListRestByRequestID: %v", err)
	}
	if len(stored) != 1 {
		t.Fatalf("stored = %d events, want 1", len(stored))
	}
	if stored[0].LatencyMs != 150 {
		t.Errorf("LatencyMs = %d, want 150", stored[0].LatencyMs)
	}
	if !stored[0].CreatedAt.Equal(trackBase) {
		t.Errorf("CreatedAt = %v, want clock time", stored[0].CreatedAt)
	}
}

func TestTrackRest_NegativeLatencyStored(t *testing.T) {
	svc, events, tenants := newTrackingFixture(t)
	createTenant(t, tenants, tenant.New("tn-1", "acme", trackBase))

	in := restInput("req-skew")
	in.ResponseTimestamp = in.RequestTimestamp.Add(-200 * time.Millisecond)

	if _, err := svc.TrackRest(context.Background(), "tn-1", in); err != nil {
		t.Fatalf("TrackRest: %v", err)
	}

	stored, _ := events.ListRestByRequestID(context.Background(), "tn-1", "req-skew")
	if stored[0].LatencyMs != -200 {
		t.Errorf("LatencyMs = %d, want -200 stored unclamped", stored[0].LatencyMs)
	}
}

func TestTrackRest_BodyTruncation(t *testing.T) {
	svc, events, tenants := newTrackingFixture(t)

	tn := tenant.New("tn-1", "acme", trackBase)
	tn.BodySizeLimitBytes = tenant.MinBodySizeLimit
	createTenant(t, tenants, tn)

	in := restInput("req-big")
	in.RequestBody = json.RawMessage(`{"data":"` + strings.Repeat("x", 2000) + `"}`)
	in.ResponseBody = json.RawMessage(`{"ok":true}`)

	r, err := svc.TrackRest(context.Background(), "tn-1", in)
	if err != nil {
		t.Fatalf("TrackRest: %v", err)
	}

	if !r.RequestTruncated {
		t.Error("request body over the tenant limit must be truncated")
	}
	if r.ResponseTruncated {
		t.Error("small response body must not be truncated")
	}

	stored, _ := events.ListRestByRequestID(context.Background(), "tn-1", "req-big")
	if !stored[0].RequestBodyTruncated {
		t.Error("stored event must carry the truncation flag")
	}
	if stored[0].RequestBodySizeBytes != len(in.RequestBody) {
		t.Errorf("RequestBodySizeBytes = %d, want original size %d", stored[0].RequestBodySizeBytes, len(in.RequestBody))
	}
}

func TestTrackRest_MissingTenantFallsBackToDefaultLimit(t *testing.T) {
	// Ingestion proceeds with the default body limit when the tenant row
	// cannot be read.
	svc, events, _ := newTrackingFixture(t)

	in := restInput("req-1")
	in.RequestBody = json.RawMessage(`{"small":true}`)

	r, err := svc.TrackRest(context.Background(), "tn-ghost", in)
	if err != nil {
		t.Fatalf("TrackRest: %v", err)
	}
	if r.RequestTruncated {
		t.Error("small body must survive the default limit")
	}

	stored, _ := events.ListRestByRequestID(context.Background(), "tn-ghost", "req-1")
	if len(stored) != 1 {
		t.Errorf("stored = %d events, want 1", len(stored))
	}
}

func TestTrackLLM(t *testing.T) {
	svc, events, tenants := newTrackingFixture(t)
	createTenant(t, tenants, tenant.New("tn-1", "acme", trackBase))

	r, err := svc.TrackLLM(context.Background(), "tn-1", llmInput("req-1"))
	if err != nil {
		t.Fatalf("TrackLLM: %v", err)
	}

	if r.Type != event.TypeLLM {
		t.Errorf("Type = %s, want llm", r.Type)
	}
	if r.TotalTokens != 150 {
		t.Errorf("TotalTokens = %d, want 150", r.TotalTokens)
	}
	if r.CostUSD != 0.0045 {
		t.Errorf("CostUSD = %v, want 0.0045", r.CostUSD)
	}

	stored, _ := events.ListLLMByRequestID(context.Background(), "tn-1", "req-1")
	if len(stored) != 1 {
		t.Fatalf("stored = %d events, want 1", len(stored))
	}
	if stored[0].LatencyMs != 2000 {
		t.Errorf("LatencyMs = %d, want 2000", stored[0].LatencyMs)
	}
}

func TestTrackBatch_MixedOrder(t *testing.T) {
	svc, _, tenants := newTrackingFixture(t)
	createTenant(t, tenants, tenant.New("tn-1", "acme", trackBase))

	rest := restInput("req-batch")
	llm := llmInput("req-batch")
	items := []app.BatchItem{
		{Type: event.TypeRest, Rest: &rest},
		{Type: event.TypeLLM, LLM: &llm},
		{Type: event.TypeRest, Rest: &rest},
	}

	receipts, err := svc.TrackBatch(context.Background(), "tn-1", items)
	if err != nil {
		t.Fatalf("TrackBatch: %v", err)
	}

	if len(receipts) != 3 {
		t.Fatalf("receipts = %d, want 3", len(receipts))
	}
	wantTypes := []event.Type{event.TypeRest, event.TypeLLM, event.TypeRest}
	for i, want := range wantTypes {
		if receipts[i].Type != want {
			t.Errorf("receipts[%d].Type = %s, want %s", i, receipts[i].Type, want)
		}
	}
}

func TestTrackBatch_OversizedRejectedWholesale(t *testing.T) {
	svc, events, tenants := newTrackingFixture(t)
	createTenant(t, tenants, tenant.New("tn-1", "acme", trackBase))

	rest := restInput("req-over")
	items := make([]app.BatchItem, app.MaxBatchSize+1)
	for i := range items {
		items[i] = app.BatchItem{Type: event.TypeRest, Rest: &rest}
	}

	_, err := svc.TrackBatch(context.Background(), "tn-1", items)
	if !errors.Is(err, app.ErrBatchTooLarge) {
		t.Fatalf("err = %v, want ErrBatchTooLarge", err)
	}

	stored, _ := events.ListRestByRequestID(context.Background(), "tn-1", "req-over")
	if len(stored) != 0 {
		t.Errorf("stored = %d events, want 0 (nothing written)", len(stored))
	}
}

func TestTrackBatch_ConfiguredCapEnforced(t *testing.T) {
	// The batch cap from configuration binds, not only the hard cap.
	svc, events, tenants := newTrackingFixture(t)
	createTenant(t, tenants, tenant.New("tn-1", "acme", trackBase))
	svc.SetLimits(0, 2)

	rest := restInput("req-small-cap")
	items := make([]app.BatchItem, 3)
	for i := range items {
		items[i] = app.BatchItem{Type: event.TypeRest, Rest: &rest}
	}

	_, err := svc.TrackBatch(context.Background(), "tn-1", items)
	if !errors.Is(err, app.ErrBatchTooLarge) {
		t.Fatalf("err = %v, want ErrBatchTooLarge", err)
	}

	stored, _ := events.ListRestByRequestID(context.Background(), "tn-1", "req-small-cap")
	if len(stored) != 0 {
		t.Errorf("stored = %d events, want 0 (nothing written)", len(stored))
	}

	if _, err := svc.TrackBatch(context.Background(), "tn-1", items[:2]); err != nil {
		t.Fatalf("TrackBatch at the configured cap: %v", err)
	}
}

func TestTrackRest_ConfiguredDefaultBodyLimit(t *testing.T) {
	// With no tenant row the fallback limit comes from configuration.
	events := memory.NewEventStore()
	svc := app.NewTrackingService(app.TrackingDeps{
		Events:           events,
		Tenants:          memory.NewTenantStore(),
		Clock:            clock.NewFake(trackBase),
		IDGen:            idgen.NewSequential("evt_"),
		Log:              zerolog.Nop(),
		DefaultBodyLimit: 64,
	})

	in := restInput("req-1")
	in.RequestBody = json.RawMessage(`{"data":"` + strings.Repeat("x", 200) + `"}`)

	r, err := svc.TrackRest(context.Background(), "tn-ghost", in)
	if err != nil {
		t.Fatalf("TrackRest: %v", err)
	}
	if !r.RequestTruncated {
		t.Error("body over the configured fallback limit must be truncated")
	}
}

func TestTrackBatch_AtCapAccepted(t *testing.T) {
	svc, _, tenants := newTrackingFixture(t)
	createTenant(t, tenants, tenant.New("tn-1", "acme", trackBase))

	rest := restInput("req-cap")
	items := make([]app.BatchItem, app.MaxBatchSize)
	for i := range items {
		items[i] = app.BatchItem{Type: event.TypeRest, Rest: &rest}
	}

	receipts, err := svc.TrackBatch(context.Background(), "tn-1", items)
	if err != nil {
		t.Fatalf("TrackBatch: %v", err)
	}
	if len(receipts) != app.MaxBatchSize {
		t.Errorf("receipts = %d, want %d", len(receipts), app.MaxBatchSize)
	}
}
