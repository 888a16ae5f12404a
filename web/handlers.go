package web

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pathtracker/pathtracker/domain/event"
	"github.com/pathtracker/pathtracker/domain/metrics"
)

// logEntry is the wire form of one event in log and path responses. Body
// fields are omitted entirely (not nulled) unless include_bodies is set.
type logEntry struct {
	EventID           string          `json:"event_id"`
	Type              string          `json:"type"`
	RequestID         string          `json:"request_id"`
	UserID            string          `json:"user_id,omitempty"`
	Environment       string          `json:"environment,omitempty"`
	CorrelationID     string          `json:"correlation_id,omitempty"`
	RequestTimestamp  time.Time       `json:"request_timestamp"`
	ResponseTimestamp time.Time       `json:"response_timestamp"`
	Service           string          `json:"service"`
	URL               string          `json:"url"`
	StatusCode        int             `json:"status_code"`
	LatencyMs         int64           `json:"latency_ms"`
	AttemptNumber     int             `json:"attempt_number,omitempty"`
	OriginalRequestID string          `json:"original_request_id,omitempty"`
	Metadata          json.RawMessage `json:"metadata,omitempty"`

	// REST only
	Method string `json:"method,omitempty"`

	// LLM only
	Provider           string          `json:"provider,omitempty"`
	Model              string          `json:"model,omitempty"`
	Endpoint           string          `json:"endpoint,omitempty"`
	PromptTokens       int64           `json:"prompt_tokens,omitempty"`
	CompletionTokens   int64           `json:"completion_tokens,omitempty"`
	TotalTokens        int64           `json:"total_tokens,omitempty"`
	CostUSD            float64         `json:"cost_usd,omitempty"`
	FinishReason       string          `json:"finish_reason,omitempty"`
	IsStreaming        bool            `json:"is_streaming,omitempty"`
	TimeToFirstTokenMs *int64          `json:"time_to_first_token_ms,omitempty"`
	ConversationID     string          `json:"conversation_id,omitempty"`
	FunctionCalls      json.RawMessage `json:"function_calls,omitempty"`
	Warnings           json.RawMessage `json:"warnings,omitempty"`

	RequestBody           json.RawMessage `json:"request_body,omitempty"`
	ResponseBody          json.RawMessage `json:"response_body,omitempty"`
	RequestBodyTruncated  *bool           `json:"request_body_truncated,omitempty"`
	ResponseBodyTruncated *bool           `json:"response_body_truncated,omitempty"`
}

// newLogEntry renders one event for the wire, exhaustively over both
// variants.
func newLogEntry(e event.Event, includeBodies bool) logEntry {
	m := e.Meta()
	entry := logEntry{
		EventID:           m.EventID,
		Type:              string(e.EventType()),
		RequestID:         m.RequestID,
		UserID:            m.UserID,
		Environment:       m.Environment,
		CorrelationID:     m.CorrelationID,
		RequestTimestamp:  m.RequestTimestamp,
		ResponseTimestamp: m.ResponseTimestamp,
		Service:           m.Service,
		URL:               m.URL,
		StatusCode:        m.StatusCode,
		LatencyMs:         m.LatencyMs,
		AttemptNumber:     m.AttemptNumber,
		OriginalRequestID: m.OriginalRequestID,
		Metadata:          m.Metadata,
	}

	switch v := e.(type) {
	case event.Rest:
		entry.Method = v.Method
	case event.LLM:
		entry.Provider = v.Provider
		entry.Model = v.Model
		entry.Endpoint = v.Endpoint
		entry.PromptTokens = v.PromptTokens
		entry.CompletionTokens = v.CompletionTokens
		entry.TotalTokens = v.TotalTokens
		entry.CostUSD = v.CostUSD
		entry.FinishReason = v.FinishReason
		entry.IsStreaming = v.IsStreaming
		entry.TimeToFirstTokenMs = v.TimeToFirstTokenMs
		entry.ConversationID = v.ConversationID
		entry.FunctionCalls = v.FunctionCalls
		entry.Warnings = v.Warnings
	}

	if includeBodies {
		entry.RequestBody = m.RequestBody
		entry.ResponseBody = m.ResponseBody
		entry.RequestBodyTruncated = &m.RequestBodyTruncated
		entry.ResponseBodyTruncated = &m.ResponseBodyTruncated
	}

	return entry
}

// PathLookup reconstructs the call chain for one request id.
func (h *Handler) PathLookup(w http.ResponseWriter, r *http.Request) {
	sess, _ := getSession(r.Context())
	requestID := chi.URLParam(r, "requestID")

	p, err := h.query.Path(r.Context(), sess.TenantID, requestID)
	if err != nil {
		h.handleError(w, r, "path lookup", err)
		return
	}

	includeBodies := r.URL.Query().Get("include_bodies") == "true"
	events := make([]logEntry, len(p.Events))
	for i, e := range p.Events {
		events[i] = newLogEntry(e, includeBodies)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"request_id":        p.RequestID,
		"user_id":           p.UserID,
		"total_duration_ms": p.TotalDurationMs,
		"event_count":       p.EventCount,
		"events":            events,
	})
}

// Logs serves the merged, filtered event log.
func (h *Handler) Logs(w http.ResponseWriter, r *http.Request) {
	sess, _ := getSession(r.Context())
	q := r.URL.Query()

	start, end, ok := h.parseWindow(w, q.Get("start"), q.Get("end"), 24*time.Hour)
	if !ok {
		return
	}
	limit, ok := h.parseBoundedInt(w, q.Get("limit"), "limit", 1, 1000, 100)
	if !ok {
		return
	}
	offset, ok := h.parseBoundedInt(w, q.Get("offset"), "offset", 0, 1<<30, 0)
	if !ok {
		return
	}

	typ := event.Type(q.Get("type"))
	if typ != "" && typ != event.TypeRest && typ != event.TypeLLM {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "type must be rest or llm")
		return
	}

	statusCode := 0
	if s := q.Get("status_code"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 100 || n > 599 {
			writeError(w, http.StatusBadRequest, codeInvalidRequest, "status_code must be between 100 and 599")
			return
		}
		statusCode = n
	}

	f := event.Filter{
		TenantID:          sess.TenantID,
		Start:             start,
		End:               end,
		RequestID:         q.Get("request_id"),
		UserID:            q.Get("user_id"),
		Service:           q.Get("service"),
		Environment:       q.Get("environment"),
		StatusCode:        statusCode,
		OriginalRequestID: q.Get("original_request_id"),
		ConversationID:    q.Get("conversation_id"),
		FinishReason:      q.Get("finish_reason"),
	}

	page, err := h.query.Logs(r.Context(), f, typ, limit, offset)
	if err != nil {
		h.handleError(w, r, "logs query", err)
		return
	}

	includeBodies := q.Get("include_bodies") == "true"
	logs := make([]logEntry, len(page.Logs))
	for i, e := range page.Logs {
		logs[i] = newLogEntry(e, includeBodies)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"logs":   logs,
		"total":  page.Total,
		"limit":  page.Limit,
		"offset": page.Offset,
	})
}

type latencyView struct {
	P50 int64 `json:"p50"`
	P95 int64 `json:"p95"`
	P99 int64 `json:"p99"`
}

func newLatencyView(l metrics.LatencySummary) latencyView {
	return latencyView{P50: l.P50, P95: l.P95, P99: l.P99}
}

// MetricsSnapshot serves the aggregate metrics for a window.
func (h *Handler) MetricsSnapshot(w http.ResponseWriter, r *http.Request) {
	sess, _ := getSession(r.Context())
	q := r.URL.Query()

	start, end, ok := h.parseWindow(w, q.Get("start"), q.Get("end"), 24*time.Hour)
	if !ok {
		return
	}

	snap, err := h.query.Metrics(r.Context(), sess.TenantID, start, end)
	if err != nil {
		h.handleError(w, r, "metrics query", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"period": map[string]any{
			"start": snap.Period.Start,
			"end":   snap.Period.End,
		},
		"rest": map[string]any{
			"total":      snap.Rest.Total,
			"by_service": snap.Rest.ByService,
			"by_status":  snap.Rest.ByStatus,
			"latency":    newLatencyView(snap.Rest.Latency),
		},
		"llm": map[string]any{
			"total":          snap.LLM.Total,
			"by_provider":    snap.LLM.ByProvider,
			"by_model":       snap.LLM.ByModel,
			"total_tokens":   snap.LLM.TotalTokens,
			"total_cost_usd": snap.LLM.TotalCostUSD,
			"latency":        newLatencyView(snap.LLM.Latency),
		},
	})
}

// Users serves the per-user analytics rollup.
func (h *Handler) Users(w http.ResponseWriter, r *http.Request) {
	sess, _ := getSession(r.Context())
	q := r.URL.Query()

	start, end, ok := h.parseWindow(w, q.Get("start"), q.Get("end"), 30*24*time.Hour)
	if !ok {
		return
	}
	limit, ok := h.parseBoundedInt(w, q.Get("limit"), "limit", 1, 100, 50)
	if !ok {
		return
	}

	stats, err := h.query.Users(r.Context(), sess.TenantID, start, end, limit)
	if err != nil {
		h.handleError(w, r, "users query", err)
		return
	}

	type userView struct {
		UserID        string    `json:"user_id"`
		TotalRequests int64     `json:"total_requests"`
		RestRequests  int64     `json:"rest_requests"`
		LLMRequests   int64     `json:"llm_requests"`
		TotalTokens   int64     `json:"total_tokens"`
		TotalCostUSD  float64   `json:"total_cost_usd"`
		FirstSeen     time.Time `json:"first_seen"`
		LastSeen      time.Time `json:"last_seen"`
	}
	users := make([]userView, len(stats))
	for i, s := range stats {
		users[i] = userView{
			UserID:        s.UserID,
			TotalRequests: s.TotalRequests,
			RestRequests:  s.RestRequests,
			LLMRequests:   s.LLMRequests,
			TotalTokens:   s.TotalTokens,
			TotalCostUSD:  s.TotalCostUSD,
			FirstSeen:     s.FirstSeen,
			LastSeen:      s.LastSeen,
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"users": users,
		"limit": limit,
	})
}

// parseWindow resolves the start/end query params, defaulting to the
// trailing window of the given length ending now.
func (h *Handler) parseWindow(w http.ResponseWriter, startStr, endStr string, fallback time.Duration) (time.Time, time.Time, bool) {
	end := time.Now().UTC()
	if endStr != "" {
		t, err := time.Parse(time.RFC3339, endStr)
		if err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequest, "end must be an RFC 3339 timestamp")
			return time.Time{}, time.Time{}, false
		}
		end = t
	}

	start := end.Add(-fallback)
	if startStr != "" {
		t, err := time.Parse(time.RFC3339, startStr)
		if err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequest, "start must be an RFC 3339 timestamp")
			return time.Time{}, time.Time{}, false
		}
		start = t
	}

	if end.Before(start) {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "end must not be before start")
		return time.Time{}, time.Time{}, false
	}
	return start, end, true
}

func (h *Handler) parseBoundedInt(w http.ResponseWriter, raw, name string, min, max, fallback int) (int, bool) {
	if raw == "" {
		return fallback, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < min || n > max {
		writeError(w, http.StatusBadRequest, codeInvalidRequest,
			name+" must be an integer between "+strconv.Itoa(min)+" and "+strconv.Itoa(max))
		return 0, false
	}
	return n, true
}
