package memory

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/pathtracker/pathtracker/domain/event"
	"github.com/pathtracker/pathtracker/ports"
)

// EventStore is an in-memory implementation of ports.EventStore.
// Slices keep insertion order, which stands in for the storage layer's
// arrival order in tie-break situations.
type EventStore struct {
	mu   sync.RWMutex
	rest []event.Rest
	llm  []event.LLM

	// InsertErr, when set, makes inserts fail. Lets tests exercise the
	// hard-failure ingestion path.
	InsertErr error
}

// NewEventStore creates a new in-memory event store.
func NewEventStore() *EventStore {
	return &EventStore{}
}

// InsertRest stores one REST event row.
func (s *EventStore) InsertRest(ctx context.Context, e event.Rest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.InsertErr != nil {
		return s.InsertErr
	}
	s.rest = append(s.rest, e)
	return nil
}

// InsertLLM stores one LLM event row.
func (s *EventStore) InsertLLM(ctx context.Context, e event.LLM) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.InsertErr != nil {
		return s.InsertErr
	}
	s.llm = append(s.llm, e)
	return nil
}

// ListRestByRequestID returns REST events for (tenant, request_id) in
// insertion order.
func (s *EventStore) ListRestByRequestID(ctx context.Context, tenantID, requestID string) ([]event.Rest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []event.Rest
	for _, e := range s.rest {
		if e.TenantID == tenantID && e.RequestID == requestID {
			result = append(result, e)
		}
	}
	return result, nil
}

// ListLLMByRequestID returns LLM events for (tenant, request_id) in
// insertion order.
func (s *EventStore) ListLLMByRequestID(ctx context.Context, tenantID, requestID string) ([]event.LLM, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []event.LLM
	for _, e := range s.llm {
		if e.TenantID == tenantID && e.RequestID == requestID {
			result = append(result, e)
		}
	}
	return result, nil
}

// ListRest returns filtered REST events, descending by request timestamp.
func (s *EventStore) ListRest(ctx context.Context, f event.Filter, limit int) ([]event.Rest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []event.Rest
	for _, e := range s.rest {
		if matchCommon(e.Common, f) {
			result = append(result, e)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].RequestTimestamp.After(result[j].RequestTimestamp)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// ListLLM returns filtered LLM events, descending by request timestamp.
// LLM-only filter fields apply here.
func (s *EventStore) ListLLM(ctx context.Context, f event.Filter, limit int) ([]event.LLM, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []event.LLM
	for _, e := range s.llm {
		if !matchCommon(e.Common, f) {
			continue
		}
		if f.ConversationID != "" && e.ConversationID != f.ConversationID {
			continue
		}
		if f.FinishReason != "" && e.FinishReason != f.FinishReason {
			continue
		}
		result = append(result, e)
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].RequestTimestamp.After(result[j].RequestTimestamp)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// CountRest counts REST events under the filter's common fields.
func (s *EventStore) CountRest(ctx context.Context, f event.Filter) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, e := range s.rest {
		if matchCommon(e.Common, f) {
			n++
		}
	}
	return n, nil
}

// CountLLM counts LLM events under the filter's common fields only.
func (s *EventStore) CountLLM(ctx context.Context, f event.Filter) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, e := range s.llm {
		if matchCommon(e.Common, f) {
			n++
		}
	}
	return n, nil
}

// RestLatencies returns all REST latency values in the window.
func (s *EventStore) RestLatencies(ctx context.Context, tenantID string, start, end time.Time) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []int64
	for _, e := range s.rest {
		if inWindow(e.Common, tenantID, start, end) {
			result = append(result, e.LatencyMs)
		}
	}
	return result, nil
}

// LLMLatencies returns all LLM latency values in the window.
func (s *EventStore) LLMLatencies(ctx context.Context, tenantID string, start, end time.Time) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []int64
	for _, e := range s.llm {
		if inWindow(e.Common, tenantID, start, end) {
			result = append(result, e.LatencyMs)
		}
	}
	return result, nil
}

// CountRestByService groups REST events in the window by service.
func (s *EventStore) CountRestByService(ctx context.Context, tenantID string, start, end time.Time) (map[string]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]int64)
	for _, e := range s.rest {
		if inWindow(e.Common, tenantID, start, end) {
			result[e.Service]++
		}
	}
	return result, nil
}

// CountRestByStatus groups REST events in the window by status code.
func (s *EventStore) CountRestByStatus(ctx context.Context, tenantID string, start, end time.Time) (map[string]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]int64)
	for _, e := range s.rest {
		if inWindow(e.Common, tenantID, start, end) {
			result[strconv.Itoa(e.StatusCode)]++
		}
	}
	return result, nil
}

// CountLLMByProvider groups LLM events in the window by provider.
func (s *EventStore) CountLLMByProvider(ctx context.Context, tenantID string, start, end time.Time) (map[string]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]int64)
	for _, e := range s.llm {
		if inWindow(e.Common, tenantID, start, end) {
			result[e.Provider]++
		}
	}
	return result, nil
}

// CountLLMByModel groups LLM events in the window by model.
func (s *EventStore) CountLLMByModel(ctx context.Context, tenantID string, start, end time.Time) (map[string]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]int64)
	for _, e := range s.llm {
		if inWindow(e.Common, tenantID, start, end) {
			result[e.Model]++
		}
	}
	return result, nil
}

// SumLLM returns the token and cost sums over the window.
func (s *EventStore) SumLLM(ctx context.Context, tenantID string, start, end time.Time) (int64, float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var tokens int64
	var cost float64
	for _, e := range s.llm {
		if inWindow(e.Common, tenantID, start, end) {
			tokens += e.TotalTokens
			cost += e.CostUSD
		}
	}
	return tokens, cost, nil
}

// UserStats returns the per-user rollup across both tables.
func (s *EventStore) UserStats(ctx context.Context, tenantID string, start, end time.Time, limit int) ([]event.UserStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := make(map[string]*event.UserStats)
	touch := func(m event.Common) *event.UserStats {
		st, ok := stats[m.UserID]
		if !ok {
			st = &event.UserStats{UserID: m.UserID, FirstSeen: m.RequestTimestamp, LastSeen: m.RequestTimestamp}
			stats[m.UserID] = st
		}
		if m.RequestTimestamp.Before(st.FirstSeen) {
			st.FirstSeen = m.RequestTimestamp
		}
		if m.RequestTimestamp.After(st.LastSeen) {
			st.LastSeen = m.RequestTimestamp
		}
		st.TotalRequests++
		return st
	}

	for _, e := range s.rest {
		if e.UserID != "" && inWindow(e.Common, tenantID, start, end) {
			touch(e.Common).RestRequests++
		}
	}
	for _, e := range s.llm {
		if e.UserID != "" && inWindow(e.Common, tenantID, start, end) {
			st := touch(e.Common)
			st.LLMRequests++
			st.TotalTokens += e.TotalTokens
			st.TotalCostUSD += e.CostUSD
		}
	}

	result := make([]event.UserStats, 0, len(stats))
	for _, st := range stats {
		result = append(result, *st)
	}
	sort.SliceStable(result, func(i, j int) bool {
		if result[i].TotalRequests != result[j].TotalRequests {
			return result[i].TotalRequests > result[j].TotalRequests
		}
		return result[i].UserID < result[j].UserID
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func matchCommon(m event.Common, f event.Filter) bool {
	if !inWindow(m, f.TenantID, f.Start, f.End) {
		return false
	}
	if f.RequestID != "" && m.RequestID != f.RequestID {
		return false
	}
	if f.UserID != "" && m.UserID != f.UserID {
		return false
	}
	if f.Service != "" && m.Service != f.Service {
		return false
	}
	if f.Environment != "" && m.Environment != f.Environment {
		return false
	}
	if f.StatusCode != 0 && m.StatusCode != f.StatusCode {
		return false
	}
	if f.OriginalRequestID != "" && m.OriginalRequestID != f.OriginalRequestID {
		return false
	}
	return true
}

// inWindow checks tenant scope and the inclusive time window.
func inWindow(m event.Common, tenantID string, start, end time.Time) bool {
	if m.TenantID != tenantID {
		return false
	}
	return !m.RequestTimestamp.Before(start) && !m.RequestTimestamp.After(end)
}

// Ensure interface compliance.
var _ ports.EventStore = (*EventStore)(nil)
