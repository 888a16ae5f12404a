package app

import (
	"context"
	"time"

	"github.com/pathtracker/pathtracker/domain/event"
	"github.com/pathtracker/pathtracker/domain/logquery"
	"github.com/pathtracker/pathtracker/domain/metrics"
	"github.com/pathtracker/pathtracker/domain/path"
	"github.com/pathtracker/pathtracker/ports"
)

// QueryService serves read paths: logs, metrics snapshots, request paths
// and user rollups. Everything here is derived at query time; nothing is
// precomputed or cached.
type QueryService struct {
	events ports.EventStore
}

// NewQueryService creates a new query service.
func NewQueryService(events ports.EventStore) *QueryService {
	return &QueryService{events: events}
}

// Path reconstructs the call chain for one request id. Returns
// ports.ErrNotFound when the tenant has no events under that id.
func (s *QueryService) Path(ctx context.Context, tenantID, requestID string) (path.Path, error) {
	rest, err := s.events.ListRestByRequestID(ctx, tenantID, requestID)
	if err != nil {
		return path.Path{}, err
	}
	llm, err := s.events.ListLLMByRequestID(ctx, tenantID, requestID)
	if err != nil {
		return path.Path{}, err
	}

	p := path.Reconstruct(requestID, path.Merge(rest, llm))
	if p == nil {
		return path.Path{}, ports.ErrNotFound
	}
	return *p, nil
}

// Logs returns one page of the merged event log, newest first. Each source
// table contributes up to limit+offset rows so the merged ordering stays
// correct across pages. A non-empty typ restricts the page to one variant;
// the total always spans both tables under the common filters.
func (s *QueryService) Logs(ctx context.Context, f event.Filter, typ event.Type, limit, offset int) (logquery.Page, error) {
	fetch := limit + offset

	var (
		rest []event.Rest
		llm  []event.LLM
		err  error
	)
	if typ == "" || typ == event.TypeRest {
		rest, err = s.events.ListRest(ctx, f, fetch)
		if err != nil {
			return logquery.Page{}, err
		}
	}
	if typ == "" || typ == event.TypeLLM {
		llm, err = s.events.ListLLM(ctx, f, fetch)
		if err != nil {
			return logquery.Page{}, err
		}
	}

	restTotal, err := s.events.CountRest(ctx, f)
	if err != nil {
		return logquery.Page{}, err
	}
	llmTotal, err := s.events.CountLLM(ctx, f)
	if err != nil {
		return logquery.Page{}, err
	}

	return logquery.Page{
		Logs:   logquery.MergePage(rest, llm, limit, offset),
		Total:  restTotal + llmTotal,
		Limit:  limit,
		Offset: offset,
	}, nil
}

// Metrics assembles the aggregate snapshot for a tenant and window.
// Percentiles are interpolated in process from the raw latency values.
func (s *QueryService) Metrics(ctx context.Context, tenantID string, start, end time.Time) (metrics.Snapshot, error) {
	var snap metrics.Snapshot
	snap.Period = metrics.Period{Start: start, End: end}

	restLatencies, err := s.events.RestLatencies(ctx, tenantID, start, end)
	if err != nil {
		return snap, err
	}
	byService, err := s.events.CountRestByService(ctx, tenantID, start, end)
	if err != nil {
		return snap, err
	}
	byStatus, err := s.events.CountRestByStatus(ctx, tenantID, start, end)
	if err != nil {
		return snap, err
	}
	snap.Rest = metrics.RestMetrics{
		Total:     int64(len(restLatencies)),
		ByService: byService,
		ByStatus:  byStatus,
		Latency:   metrics.Latencies(restLatencies),
	}

	llmLatencies, err := s.events.LLMLatencies(ctx, tenantID, start, end)
	if err != nil {
		return snap, err
	}
	byProvider, err := s.events.CountLLMByProvider(ctx, tenantID, start, end)
	if err != nil {
		return snap, err
	}
	byModel, err := s.events.CountLLMByModel(ctx, tenantID, start, end)
	if err != nil {
		return snap, err
	}
	tokens, cost, err := s.events.SumLLM(ctx, tenantID, start, end)
	if err != nil {
		return snap, err
	}
	snap.LLM = metrics.LLMMetrics{
		Total:        int64(len(llmLatencies)),
		ByProvider:   byProvider,
		ByModel:      byModel,
		TotalTokens:  tokens,
		TotalCostUSD: cost,
		Latency:      metrics.Latencies(llmLatencies),
	}

	return snap, nil
}

// Users returns the per-user analytics rollup for the window.
func (s *QueryService) Users(ctx context.Context, tenantID string, start, end time.Time, limit int) ([]event.UserStats, error) {
	return s.events.UserStats(ctx, tenantID, start, end, limit)
}
