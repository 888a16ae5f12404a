package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/pathtracker/pathtracker/app"
	"github.com/pathtracker/pathtracker/domain/event"
)

type restEventRequest struct {
	RequestID         string          `json:"request_id"`
	UserID            string          `json:"user_id,omitempty"`
	Environment       string          `json:"environment,omitempty"`
	CorrelationID     string          `json:"correlation_id,omitempty"`
	RequestTimestamp  time.Time       `json:"request_timestamp"`
	ResponseTimestamp time.Time       `json:"response_timestamp"`
	Service           string          `json:"service"`
	Method            string          `json:"method"`
	URL               string          `json:"url"`
	StatusCode        int             `json:"status_code"`
	AttemptNumber     int             `json:"attempt_number,omitempty"`
	OriginalRequestID string          `json:"original_request_id,omitempty"`
	RequestBody       json.RawMessage `json:"request_body,omitempty"`
	ResponseBody      json.RawMessage `json:"response_body,omitempty"`
	RequestSizeBytes  *int64          `json:"request_size_bytes,omitempty"`
	ResponseSizeBytes *int64          `json:"response_size_bytes,omitempty"`
	Metadata          json.RawMessage `json:"metadata,omitempty"`
}

func (req restEventRequest) validate() error {
	if req.RequestID == "" {
		return fmt.Errorf("request_id is required")
	}
	if req.Service == "" {
		return fmt.Errorf("service is required")
	}
	if req.Method == "" {
		return fmt.Errorf("method is required")
	}
	if req.URL == "" {
		return fmt.Errorf("url is required")
	}
	if req.StatusCode < 100 || req.StatusCode > 599 {
		return fmt.Errorf("status_code must be between 100 and 599")
	}
	if req.RequestTimestamp.IsZero() {
		return fmt.Errorf("request_timestamp is required")
	}
	if req.ResponseTimestamp.IsZero() {
		return fmt.Errorf("response_timestamp is required")
	}
	return nil
}

func (req restEventRequest) toInput() app.RestInput {
	return app.RestInput{
		RequestID:         req.RequestID,
		UserID:            req.UserID,
		Environment:       req.Environment,
		CorrelationID:     req.CorrelationID,
		RequestTimestamp:  req.RequestTimestamp,
		ResponseTimestamp: req.ResponseTimestamp,
		Service:           req.Service,
		Method:            req.Method,
		URL:               req.URL,
		StatusCode:        req.StatusCode,
		AttemptNumber:     req.AttemptNumber,
		OriginalRequestID: req.OriginalRequestID,
		RequestBody:       req.RequestBody,
		ResponseBody:      req.ResponseBody,
		RequestSizeBytes:  req.RequestSizeBytes,
		ResponseSizeBytes: req.ResponseSizeBytes,
		Metadata:          req.Metadata,
	}
}

type llmEventRequest struct {
	RequestID          string          `json:"request_id"`
	UserID             string          `json:"user_id,omitempty"`
	Environment        string          `json:"environment,omitempty"`
	CorrelationID      string          `json:"correlation_id,omitempty"`
	RequestTimestamp   time.Time       `json:"request_timestamp"`
	ResponseTimestamp  time.Time       `json:"response_timestamp"`
	Service            string          `json:"service"`
	URL                string          `json:"url"`
	StatusCode         int             `json:"status_code"`
	AttemptNumber      int             `json:"attempt_number,omitempty"`
	OriginalRequestID  string          `json:"original_request_id,omitempty"`
	Provider           string          `json:"provider"`
	Model              string          `json:"model"`
	Endpoint           string          `json:"endpoint"`
	PromptTokens       *int64          `json:"prompt_tokens"`
	CompletionTokens   *int64          `json:"completion_tokens"`
	TotalTokens        *int64          `json:"total_tokens"`
	CostUSD            *float64        `json:"cost_usd"`
	Temperature        *float64        `json:"temperature,omitempty"`
	MaxTokens          *int64          `json:"max_tokens,omitempty"`
	TopP               *float64        `json:"top_p,omitempty"`
	FrequencyPenalty   *float64        `json:"frequency_penalty,omitempty"`
	PresencePenalty    *float64        `json:"presence_penalty,omitempty"`
	FinishReason       string          `json:"finish_reason,omitempty"`
	IsStreaming        bool            `json:"is_streaming,omitempty"`
	TimeToFirstTokenMs *int64          `json:"time_to_first_token_ms,omitempty"`
	ConversationID     string          `json:"conversation_id,omitempty"`
	RequestBody        json.RawMessage `json:"request_body,omitempty"`
	ResponseBody       json.RawMessage `json:"response_body,omitempty"`
	FunctionCalls      json.RawMessage `json:"function_calls,omitempty"`
	Warnings           json.RawMessage `json:"warnings,omitempty"`
	Metadata           json.RawMessage `json:"metadata,omitempty"`
}

func (req llmEventRequest) validate() error {
	if req.RequestID == "" {
		return fmt.Errorf("request_id is required")
	}
	if req.Service == "" {
		return fmt.Errorf("service is required")
	}
	if req.URL == "" {
		return fmt.Errorf("url is required")
	}
	if req.StatusCode < 100 || req.StatusCode > 599 {
		return fmt.Errorf("status_code must be between 100 and 599")
	}
	if req.RequestTimestamp.IsZero() {
		return fmt.Errorf("request_timestamp is required")
	}
	if req.ResponseTimestamp.IsZero() {
		return fmt.Errorf("response_timestamp is required")
	}
	if req.Provider == "" {
		return fmt.Errorf("provider is required")
	}
	if req.Model == "" {
		return fmt.Errorf("model is required")
	}
	if req.Endpoint == "" {
		return fmt.Errorf("endpoint is required")
	}
	if req.PromptTokens == nil || *req.PromptTokens < 0 {
		return fmt.Errorf("prompt_tokens is required and must not be negative")
	}
	if req.CompletionTokens == nil || *req.CompletionTokens < 0 {
		return fmt.Errorf("completion_tokens is required and must not be negative")
	}
	if req.TotalTokens == nil || *req.TotalTokens < 0 {
		return fmt.Errorf("total_tokens is required and must not be negative")
	}
	if req.CostUSD == nil || *req.CostUSD < 0 {
		return fmt.Errorf("cost_usd is required and must not be negative")
	}
	return nil
}

func (req llmEventRequest) toInput() app.LLMInput {
	return app.LLMInput{
		RequestID:          req.RequestID,
		UserID:             req.UserID,
		Environment:        req.Environment,
		CorrelationID:      req.CorrelationID,
		RequestTimestamp:   req.RequestTimestamp,
		ResponseTimestamp:  req.ResponseTimestamp,
		Service:            req.Service,
		URL:                req.URL,
		StatusCode:         req.StatusCode,
		AttemptNumber:      req.AttemptNumber,
		OriginalRequestID:  req.OriginalRequestID,
		Provider:           req.Provider,
		Model:              req.Model,
		Endpoint:           req.Endpoint,
		PromptTokens:       *req.PromptTokens,
		CompletionTokens:   *req.CompletionTokens,
		TotalTokens:        *req.TotalTokens,
		CostUSD:            *req.CostUSD,
		Temperature:        req.Temperature,
		MaxTokens:          req.MaxTokens,
		TopP:               req.TopP,
		FrequencyPenalty:   req.FrequencyPenalty,
		PresencePenalty:    req.PresencePenalty,
		FinishReason:       req.FinishReason,
		IsStreaming:        req.IsStreaming,
		TimeToFirstTokenMs: req.TimeToFirstTokenMs,
		ConversationID:     req.ConversationID,
		RequestBody:        req.RequestBody,
		ResponseBody:       req.ResponseBody,
		FunctionCalls:      req.FunctionCalls,
		Warnings:           req.Warnings,
		Metadata:           req.Metadata,
	}
}

// TrackRest ingests one REST event.
func (h *Handler) TrackRest(w http.ResponseWriter, r *http.Request) {
	identity, ok := getIdentity(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, codeUnauthorized, "Missing identity")
		return
	}

	var req restEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "Invalid JSON body")
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, err.Error())
		return
	}

	receipt, err := h.tracking.TrackRest(r.Context(), identity.TenantID, req.toInput())
	if err != nil {
		h.handleError(w, r, "track rest", err)
		return
	}

	h.countReceipt(receipt)
	writeJSON(w, http.StatusCreated, map[string]any{
		"success":  true,
		"event_id": receipt.EventID,
	})
}

// TrackLLM ingests one LLM event.
func (h *Handler) TrackLLM(w http.ResponseWriter, r *http.Request) {
	identity, ok := getIdentity(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, codeUnauthorized, "Missing identity")
		return
	}

	var req llmEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "Invalid JSON body")
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, err.Error())
		return
	}

	receipt, err := h.tracking.TrackLLM(r.Context(), identity.TenantID, req.toInput())
	if err != nil {
		h.handleError(w, r, "track llm", err)
		return
	}

	h.countReceipt(receipt)
	writeJSON(w, http.StatusCreated, map[string]any{
		"success":  true,
		"event_id": receipt.EventID,
	})
}

type batchRequest struct {
	Events []json.RawMessage `json:"events"`
}

type batchEventHeader struct {
	Type string `json:"type"`
}

// TrackBatch ingests up to 100 events of mixed type. Every item is
// validated before anything is written; a bad batch stores nothing.
func (h *Handler) TrackBatch(w http.ResponseWriter, r *http.Request) {
	identity, ok := getIdentity(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, codeUnauthorized, "Missing identity")
		return
	}

	var req batchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "Invalid JSON body")
		return
	}
	if len(req.Events) == 0 {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "events must not be empty")
		return
	}
	if len(req.Events) > app.MaxBatchSize {
		writeError(w, http.StatusBadRequest, codeInvalidRequest,
			fmt.Sprintf("batch exceeds %d events", app.MaxBatchSize))
		return
	}

	items := make([]app.BatchItem, 0, len(req.Events))
	for i, raw := range req.Events {
		var header batchEventHeader
		if err := json.Unmarshal(raw, &header); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequest, fmt.Sprintf("event %d: invalid JSON", i))
			return
		}

		switch event.Type(header.Type) {
		case event.TypeRest:
			var er restEventRequest
			if err := json.Unmarshal(raw, &er); err != nil {
				writeError(w, http.StatusBadRequest, codeInvalidRequest, fmt.Sprintf("event %d: invalid JSON", i))
				return
			}
			if err := er.validate(); err != nil {
				writeError(w, http.StatusBadRequest, codeInvalidRequest, fmt.Sprintf("event %d: %s", i, err))
				return
			}
			in := er.toInput()
			items = append(items, app.BatchItem{Type: event.TypeRest, Rest: &in})
		case event.TypeLLM:
			var el llmEventRequest
			if err := json.Unmarshal(raw, &el); err != nil {
				writeError(w, http.StatusBadRequest, codeInvalidRequest, fmt.Sprintf("event %d: invalid JSON", i))
				return
			}
			if err := el.validate(); err != nil {
				writeError(w, http.StatusBadRequest, codeInvalidRequest, fmt.Sprintf("event %d: %s", i, err))
				return
			}
			in := el.toInput()
			items = append(items, app.BatchItem{Type: event.TypeLLM, LLM: &in})
		default:
			writeError(w, http.StatusBadRequest, codeInvalidRequest,
				fmt.Sprintf("event %d: type must be rest or llm", i))
			return
		}
	}

	receipts, err := h.tracking.TrackBatch(r.Context(), identity.TenantID, items)
	if err != nil {
		h.handleError(w, r, "track batch", err)
		return
	}

	eventIDs := make([]string, len(receipts))
	for i, receipt := range receipts {
		h.countReceipt(receipt)
		eventIDs[i] = receipt.EventID
	}
	if h.collector != nil {
		h.collector.BatchSize.Observe(float64(len(receipts)))
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"success":          true,
		"events_processed": len(receipts),
		"event_ids":        eventIDs,
	})
}

func (h *Handler) countReceipt(receipt app.Receipt) {
	if h.collector == nil {
		return
	}
	h.collector.EventsIngested.WithLabelValues(string(receipt.Type)).Inc()
	if receipt.RequestTruncated {
		h.collector.BodiesTruncated.WithLabelValues("request").Inc()
	}
	if receipt.ResponseTruncated {
		h.collector.BodiesTruncated.WithLabelValues("response").Inc()
	}
	if receipt.Type == event.TypeLLM {
		h.collector.TokensRecorded.Add(float64(receipt.TotalTokens))
		h.collector.CostRecorded.Add(receipt.CostUSD)
	}
}
