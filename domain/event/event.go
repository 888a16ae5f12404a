// Package event provides the REST/LLM call event model.
// Events are immutable once written: there is no update or delete path
// anywhere in this codebase.
package event

import (
	"encoding/json"
	"time"
)

// Type discriminates the two event variants.
type Type string

const (
	TypeRest Type = "rest"
	TypeLLM  Type = "llm"
)

// Common holds the attributes shared by both variants.
// Optional string fields use "" for absent; optional numerics use pointers.
type Common struct {
	EventID           string
	TenantID          string
	RequestID         string // client-supplied, shared across a call chain
	UserID            string
	Environment       string
	CorrelationID     string
	RequestTimestamp  time.Time
	ResponseTimestamp time.Time
	Service           string
	URL               string
	StatusCode        int
	LatencyMs         int64 // response - request in ms; may be negative (clock skew), stored as-is
	AttemptNumber     int
	OriginalRequestID string
	Metadata          json.RawMessage

	RequestBody           json.RawMessage // processed form, nil if absent
	ResponseBody          json.RawMessage
	RequestBodyTruncated  bool
	ResponseBodyTruncated bool
	RequestBodySizeBytes  int
	ResponseBodySizeBytes int

	CreatedAt time.Time
}

// Rest is a tracked plain REST call.
type Rest struct {
	Common
	Method            string
	RequestSizeBytes  *int64 // client-reported wire sizes, if any
	ResponseSizeBytes *int64
}

// LLM is a tracked LLM provider call.
type LLM struct {
	Common
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
	FunctionCalls      json.RawMessage
	Warnings           json.RawMessage
}

// Event is the closed sum over the two variants. Consumers must
// type-switch on the concrete type; both variants expose Meta for the
// shared attributes.
type Event interface {
	EventType() Type
	Meta() Common
}

// EventType reports the variant tag.
func (Rest) EventType() Type { return TypeRest }

// Meta returns the shared attributes.
func (e Rest) Meta() Common { return e.Common }

// EventType reports the variant tag.
func (LLM) EventType() Type { return TypeLLM }

// Meta returns the shared attributes.
func (e LLM) Meta() Common { return e.Common }

// Latency derives the millisecond latency from the two timestamps.
// Negative results (response before request) are returned unclamped; the
// caller stores them as a data-quality signal rather than rejecting.
func Latency(requestTS, responseTS time.Time) int64 {
	return responseTS.Sub(requestTS).Milliseconds()
}

// Filter scopes event listing and counting queries. TenantID, Start and
// End are mandatory; zero-valued optional fields are ignored.
// ConversationID and FinishReason only apply to the LLM variant.
type Filter struct {
	TenantID          string
	Start             time.Time
	End               time.Time
	RequestID         string
	UserID            string
	Service           string
	Environment       string
	StatusCode        int
	OriginalRequestID string

	// LLM-only filters; listing of REST events ignores them, and totals
	// are computed before they are applied.
	ConversationID string
	FinishReason   string
}

// UserStats is the per-user analytics rollup across both variants.
type UserStats struct {
	UserID        string
	TotalRequests int64
	RestRequests  int64
	LLMRequests   int64
	TotalTokens   int64
	TotalCostUSD  float64
	FirstSeen     time.Time
	LastSeen      time.Time
}
