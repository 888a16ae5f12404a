package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/pathtracker/pathtracker/domain/body"
	"github.com/pathtracker/pathtracker/domain/event"
	"github.com/pathtracker/pathtracker/ports"
	"github.com/rs/zerolog"
)

// MaxBatchSize is the hard cap on events per batch request. Configuration
// may lower the effective cap, never raise it.
const MaxBatchSize = 100

// ErrBatchTooLarge is returned when a batch exceeds the batch cap. Nothing
// from the batch is stored in that case.
var ErrBatchTooLarge = errors.New("too many events in batch")

// TrackingService handles event ingestion.
type TrackingService struct {
	events  ports.EventStore
	tenants ports.TenantStore
	clock   ports.Clock
	idGen   ports.IDGenerator
	log     zerolog.Logger

	// Guarded limits so config hot-reload can adjust them mid-flight.
	mu               sync.RWMutex
	defaultBodyLimit int
	maxBatch         int
}

// TrackingDeps contains dependencies for TrackingService.
type TrackingDeps struct {
	Events  ports.EventStore
	Tenants ports.TenantStore
	Clock   ports.Clock
	IDGen   ports.IDGenerator
	Log     zerolog.Logger

	// DefaultBodyLimit is the fallback body size cap when the tenant has
	// no row to read. Zero means body.DefaultMaxSizeBytes.
	DefaultBodyLimit int
	// MaxBatchSize caps events per batch. Zero means MaxBatchSize; values
	// above the hard cap are clamped to it.
	MaxBatchSize int
}

// NewTrackingService creates a new tracking service.
func NewTrackingService(deps TrackingDeps) *TrackingService {
	s := &TrackingService{
		events:  deps.Events,
		tenants: deps.Tenants,
		clock:   deps.Clock,
		idGen:   deps.IDGen,
		log:     deps.Log,
	}
	s.SetLimits(deps.DefaultBodyLimit, deps.MaxBatchSize)
	return s
}

// SetLimits updates the default body limit and batch cap. Called at
// construction and on config reload.
func (s *TrackingService) SetLimits(defaultBodyLimit, maxBatch int) {
	if defaultBodyLimit <= 0 {
		defaultBodyLimit = body.DefaultMaxSizeBytes
	}
	if maxBatch <= 0 || maxBatch > MaxBatchSize {
		maxBatch = MaxBatchSize
	}

	s.mu.Lock()
	s.defaultBodyLimit = defaultBodyLimit
	s.maxBatch = maxBatch
	s.mu.Unlock()
}

func (s *TrackingService) limits() (int, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.defaultBodyLimit, s.maxBatch
}

// RestInput carries one REST event as submitted by a client, before body
// processing and latency derivation.
type RestInput struct {
	RequestID         string
	UserID            string
	Environment       string
	CorrelationID     string
	RequestTimestamp  time.Time
	ResponseTimestamp time.Time
	Service           string
	Method            string
	URL               string
	StatusCode        int
	AttemptNumber     int
	OriginalRequestID string
	RequestBody       json.RawMessage
	ResponseBody      json.RawMessage
	RequestSizeBytes  *int64
	ResponseSizeBytes *int64
	Metadata          json.RawMessage
}

// LLMInput carries one LLM event as submitted by a client.
type LLMInput struct {
	RequestID          string
	UserID             string
	Environment        string
	CorrelationID      string
	RequestTimestamp   time.Time
	ResponseTimestamp  time.Time
	Service            string
	URL                string
	StatusCode         int
	AttemptNumber      int
	OriginalRequestID  string
	Provider           string
	Model              string
	Endpoint           string
	PromptTokens       int64
	CompletionTokens   int64
	TotalTokens        int64
	CostUSD            float64
	Temperature        *float64
	MaxTokens          *int64
	TopP               *float64
	FrequencyPenalty   *float64
	PresencePenalty    *float64
	FinishReason       string
	IsStreaming        bool
	TimeToFirstTokenMs *int64
	ConversationID     string
	RequestBody        json.RawMessage
	ResponseBody       json.RawMessage
	FunctionCalls      json.RawMessage
	Warnings           json.RawMessage
	Metadata           json.RawMessage
}

// Receipt is the outcome of a successful single-event ingestion. The
// truncation flags and LLM figures feed operational counters.
type Receipt struct {
	EventID           string
	Type              event.Type
	RequestTruncated  bool
	ResponseTruncated bool
	TotalTokens       int64
	CostUSD           float64
}

// TrackRest ingests one REST event.
func (s *TrackingService) TrackRest(ctx context.Context, tenantID string, in RestInput) (Receipt, error) {
	limit := s.bodyLimit(ctx, tenantID)

	reqBody := body.Process(in.RequestBody, limit)
	respBody := body.Process(in.ResponseBody, limit)

	e := event.Rest{
		Common: event.Common{
			EventID:           s.idGen.New(),
			TenantID:          tenantID,
			RequestID:         in.RequestID,
			UserID:            in.UserID,
			Environment:       in.Environment,
			CorrelationID:     in.CorrelationID,
			RequestTimestamp:  in.RequestTimestamp,
			ResponseTimestamp: in.ResponseTimestamp,
			Service:           in.Service,
			URL:               in.URL,
			StatusCode:        in.StatusCode,
			LatencyMs:         event.Latency(in.RequestTimestamp, in.ResponseTimestamp),
			AttemptNumber:     in.AttemptNumber,
			OriginalRequestID: in.OriginalRequestID,
			Metadata:          in.Metadata,

			RequestBody:           reqBody.Body,
			ResponseBody:          respBody.Body,
			RequestBodyTruncated:  reqBody.Truncated,
			ResponseBodyTruncated: respBody.Truncated,
			RequestBodySizeBytes:  reqBody.SizeBytes,
			ResponseBodySizeBytes: respBody.SizeBytes,

			CreatedAt: s.clock.Now(),
		},
		Method:            in.Method,
		RequestSizeBytes:  in.RequestSizeBytes,
		ResponseSizeBytes: in.ResponseSizeBytes,
	}

	if err := s.events.InsertRest(ctx, e); err != nil {
		return Receipt{}, err
	}

	return Receipt{
		EventID:           e.EventID,
		Type:              event.TypeRest,
		RequestTruncated:  reqBody.Truncated,
		ResponseTruncated: respBody.Truncated,
	}, nil
}

// TrackLLM ingests one LLM event.
func (s *TrackingService) TrackLLM(ctx context.Context, tenantID string, in LLMInput) (Receipt, error) {
	limit := s.bodyLimit(ctx, tenantID)

	reqBody := body.Process(in.RequestBody, limit)
	respBody := body.Process(in.ResponseBody, limit)

	e := event.LLM{
		Common: event.Common{
			EventID:           s.idGen.New(),
			TenantID:          tenantID,
			RequestID:         in.RequestID,
			UserID:            in.UserID,
			Environment:       in.Environment,
			CorrelationID:     in.CorrelationID,
			RequestTimestamp:  in.RequestTimestamp,
			ResponseTimestamp: in.ResponseTimestamp,
			Service:           in.Service,
			URL:               in.URL,
			StatusCode:        in.StatusCode,
			LatencyMs:         event.Latency(in.RequestTimestamp, in.ResponseTimestamp),
			AttemptNumber:     in.AttemptNumber,
			OriginalRequestID: in.OriginalRequestID,
			Metadata:          in.Metadata,

			RequestBody:           reqBody.Body,
			ResponseBody:          respBody.Body,
			RequestBodyTruncated:  reqBody.Truncated,
			ResponseBodyTruncated: respBody.Truncated,
			RequestBodySizeBytes:  reqBody.SizeBytes,
			ResponseBodySizeBytes: respBody.SizeBytes,

			CreatedAt: s.clock.Now(),
		},
		Provider:           in.Provider,
		Model:              in.Model,
		Endpoint:           in.Endpoint,
		PromptTokens:       in.PromptTokens,
		CompletionTokens:   in.CompletionTokens,
		TotalTokens:        in.TotalTokens,
		CostUSD:            in.CostUSD,
		Temperature:        in.Temperature,
		MaxTokens:          in.MaxTokens,
		TopP:               in.TopP,
		FrequencyPenalty:   in.FrequencyPenalty,
		PresencePenalty:    in.PresencePenalty,
		FinishReason:       in.FinishReason,
		IsStreaming:        in.IsStreaming,
		TimeToFirstTokenMs: in.TimeToFirstTokenMs,
		ConversationID:     in.ConversationID,
		FunctionCalls:      in.FunctionCalls,
		Warnings:           in.Warnings,
	}

	if err := s.events.InsertLLM(ctx, e); err != nil {
		return Receipt{}, err
	}

	return Receipt{
		EventID:           e.EventID,
		Type:              event.TypeLLM,
		RequestTruncated:  reqBody.Truncated,
		ResponseTruncated: respBody.Truncated,
		TotalTokens:       in.TotalTokens,
		CostUSD:           in.CostUSD,
	}, nil
}

// BatchItem is one entry of a mixed batch. Exactly one of Rest/LLM is set,
// matching Type.
type BatchItem struct {
	Type event.Type
	Rest *RestInput
	LLM  *LLMInput
}

// TrackBatch ingests a batch of mixed-type events, capped at the configured
// batch size. Oversized batches are rejected wholesale before anything is
// written. Returned receipts are in input order.
func (s *TrackingService) TrackBatch(ctx context.Context, tenantID string, items []BatchItem) ([]Receipt, error) {
	_, maxBatch := s.limits()
	if len(items) > maxBatch {
		return nil, fmt.Errorf("batch of %d exceeds %d events: %w", len(items), maxBatch, ErrBatchTooLarge)
	}

	receipts := make([]Receipt, 0, len(items))
	for i, item := range items {
		var (
			r   Receipt
			err error
		)
		switch item.Type {
		case event.TypeRest:
			r, err = s.TrackRest(ctx, tenantID, *item.Rest)
		case event.TypeLLM:
			r, err = s.TrackLLM(ctx, tenantID, *item.LLM)
		default:
			err = errors.New("unknown event type")
		}
		if err != nil {
			return receipts, fmt.Errorf("batch item %d: %w", i, err)
		}
		receipts = append(receipts, r)
	}
	return receipts, nil
}

// bodyLimit resolves the tenant's configured body size limit, falling back
// to the default when the tenant row cannot be read. Ingestion must not
// fail on a settings lookup.
func (s *TrackingService) bodyLimit(ctx context.Context, tenantID string) int {
	t, err := s.tenants.Get(ctx, tenantID)
	if err != nil {
		fallback, _ := s.limits()
		s.log.Warn().Err(err).Str("tenant_id", tenantID).Msg("tenant lookup failed, using default body limit")
		return fallback
	}
	return t.BodySizeLimitBytes
}
