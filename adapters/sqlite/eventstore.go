package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/pathtracker/pathtracker/domain/event"
	"github.com/pathtracker/pathtracker/ports"
)

// EventStore implements ports.EventStore using SQLite. Events are
// append-only; nothing in here updates or deletes a row.
type EventStore struct {
	db *DB
}

// NewEventStore creates a new SQLite event store.
func NewEventStore(db *DB) *EventStore {
	return &EventStore{db: db}
}

const restColumns = `event_id, tenant_id, request_id, user_id, environment, correlation_id,
	request_timestamp, response_timestamp, service, method, url, status_code, latency_ms,
	attempt_number, original_request_id, request_body, response_body,
	request_body_truncated, response_body_truncated, request_body_size_bytes, response_body_size_bytes,
	request_size_bytes, response_size_bytes, metadata, created_at`

const llmColumns = `event_id, tenant_id, request_id, user_id, environment, correlation_id,
	request_timestamp, response_timestamp, service, url, status_code, latency_ms,
	attempt_number, original_request_id, provider, model, endpoint,
	prompt_tokens, completion_tokens, total_tokens, cost_usd,
	temperature, max_tokens, top_p, frequency_penalty, presence_penalty,
	finish_reason, is_streaming, time_to_first_token_ms, conversation_id, function_calls, warnings,
	request_body, response_body, request_body_truncated, response_body_truncated,
	request_body_size_bytes, response_body_size_bytes, metadata, created_at`

// InsertRest stores one REST event row.
func (s *EventStore) InsertRest(ctx context.Context, e event.Rest) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO rest_events (`+restColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		e.EventID, e.TenantID, e.RequestID, nullString(e.UserID), nullString(e.Environment), nullString(e.CorrelationID),
		e.RequestTimestamp, e.ResponseTimestamp, e.Service, e.Method, e.URL, e.StatusCode, e.LatencyMs,
		e.AttemptNumber, nullString(e.OriginalRequestID), nullRaw(e.RequestBody), nullRaw(e.ResponseBody),
		e.RequestBodyTruncated, e.ResponseBodyTruncated, e.RequestBodySizeBytes, e.ResponseBodySizeBytes,
		nullInt(e.RequestSizeBytes), nullInt(e.ResponseSizeBytes), nullRaw(e.Metadata), e.CreatedAt,
	)
	return err
}

// InsertLLM stores one LLM event row.
func (s *EventStore) InsertLLM(ctx context.Context, e event.LLM) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO llm_events (`+llmColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		e.EventID, e.TenantID, e.RequestID, nullString(e.UserID), nullString(e.Environment), nullString(e.CorrelationID),
		e.RequestTimestamp, e.ResponseTimestamp, e.Service, e.URL, e.StatusCode, e.LatencyMs,
		e.AttemptNumber, nullString(e.OriginalRequestID), e.Provider, e.Model, e.Endpoint,
		e.PromptTokens, e.CompletionTokens, e.TotalTokens, e.CostUSD,
		nullFloat(e.Temperature), nullInt(e.MaxTokens), nullFloat(e.TopP), nullFloat(e.FrequencyPenalty), nullFloat(e.PresencePenalty),
		nullString(e.FinishReason), e.IsStreaming, nullInt(e.TimeToFirstTokenMs), nullString(e.ConversationID), nullRaw(e.FunctionCalls), nullRaw(e.Warnings),
		nullRaw(e.RequestBody), nullRaw(e.ResponseBody), e.RequestBodyTruncated, e.ResponseBodyTruncated,
		e.RequestBodySizeBytes, e.ResponseBodySizeBytes, nullRaw(e.Metadata), e.CreatedAt,
	)
	return err
}

// ListRestByRequestID returns all REST events for (tenant, request_id).
// Rowid order stands in for arrival order on equal timestamps.
func (s *EventStore) ListRestByRequestID(ctx context.Context, tenantID, requestID string) ([]event.Rest, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+restColumns+`
		FROM rest_events
		WHERE tenant_id = ? AND request_id = ?
		ORDER BY rowid
	`, tenantID, requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRest(rows)
}

// ListLLMByRequestID returns all LLM events for (tenant, request_id).
func (s *EventStore) ListLLMByRequestID(ctx context.Context, tenantID, requestID string) ([]event.LLM, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+llmColumns+`
		FROM llm_events
		WHERE tenant_id = ? AND request_id = ?
		ORDER BY rowid
	`, tenantID, requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectLLM(rows)
}

// ListRest returns filtered REST events, descending by request timestamp.
func (s *EventStore) ListRest(ctx context.Context, f event.Filter, limit int) ([]event.Rest, error) {
	where, args := commonWhere(f)
	args = append(args, limit)
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+restColumns+`
		FROM rest_events
		WHERE `+where+`
		ORDER BY request_timestamp DESC, rowid DESC
		LIMIT ?
	`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRest(rows)
}

// ListLLM returns filtered LLM events, descending by request timestamp.
// The LLM-only filter fields apply here and only here.
func (s *EventStore) ListLLM(ctx context.Context, f event.Filter, limit int) ([]event.LLM, error) {
	where, args := commonWhere(f)
	var conditions []string
	if f.ConversationID != "" {
		conditions = append(conditions, "conversation_id = ?")
		args = append(args, f.ConversationID)
	}
	if f.FinishReason != "" {
		conditions = append(conditions, "finish_reason = ?")
		args = append(args, f.FinishReason)
	}
	if len(conditions) > 0 {
		where += " AND " + strings.Join(conditions, " AND ")
	}
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+llmColumns+`
		FROM llm_events
		WHERE `+where+`
		ORDER BY request_timestamp DESC, rowid DESC
		LIMIT ?
	`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectLLM(rows)
}

// CountRest counts REST events under the filter's common fields.
func (s *EventStore) CountRest(ctx context.Context, f event.Filter) (int64, error) {
	where, args := commonWhere(f)
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM rest_events WHERE `+where, args...).Scan(&n)
	return n, err
}

// CountLLM counts LLM events under the filter's common fields. The
// LLM-only filter fields are deliberately not applied: totals reflect the
// window before type-specific narrowing.
func (s *EventStore) CountLLM(ctx context.Context, f event.Filter) (int64, error) {
	where, args := commonWhere(f)
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM llm_events WHERE `+where, args...).Scan(&n)
	return n, err
}

// RestLatencies returns all REST latency values in the window.
func (s *EventStore) RestLatencies(ctx context.Context, tenantID string, start, end time.Time) ([]int64, error) {
	return s.latencies(ctx, "rest_events", tenantID, start, end)
}

// LLMLatencies returns all LLM latency values in the window.
func (s *EventStore) LLMLatencies(ctx context.Context, tenantID string, start, end time.Time) ([]int64, error) {
	return s.latencies(ctx, "llm_events", tenantID, start, end)
}

func (s *EventStore) latencies(ctx context.Context, table, tenantID string, start, end time.Time) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT latency_ms FROM `+table+`
		WHERE tenant_id = ? AND request_timestamp >= ? AND request_timestamp <= ?
	`, tenantID, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var values []int64
	for rows.Next() {
		var v int64
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, rows.Err()
}

// CountRestByService groups REST events in the window by service.
func (s *EventStore) CountRestByService(ctx context.Context, tenantID string, start, end time.Time) (map[string]int64, error) {
	return s.groupCount(ctx, "rest_events", "service", tenantID, start, end)
}

// CountRestByStatus groups REST events in the window by status code.
func (s *EventStore) CountRestByStatus(ctx context.Context, tenantID string, start, end time.Time) (map[string]int64, error) {
	return s.groupCount(ctx, "rest_events", "status_code", tenantID, start, end)
}

// CountLLMByProvider groups LLM events in the window by provider.
func (s *EventStore) CountLLMByProvider(ctx context.Context, tenantID string, start, end time.Time) (map[string]int64, error) {
	return s.groupCount(ctx, "llm_events", "provider", tenantID, start, end)
}

// CountLLMByModel groups LLM events in the window by model.
func (s *EventStore) CountLLMByModel(ctx context.Context, tenantID string, start, end time.Time) (map[string]int64, error) {
	return s.groupCount(ctx, "llm_events", "model", tenantID, start, end)
}

func (s *EventStore) groupCount(ctx context.Context, table, column, tenantID string, start, end time.Time) (map[string]int64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT CAST(`+column+` AS TEXT), COUNT(*) FROM `+table+`
		WHERE tenant_id = ? AND request_timestamp >= ? AND request_timestamp <= ?
		GROUP BY `+column+`
	`, tenantID, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[string]int64)
	for rows.Next() {
		var k string
		var n int64
		if err := rows.Scan(&k, &n); err != nil {
			return nil, err
		}
		result[k] = n
	}
	return result, rows.Err()
}

// SumLLM returns the token and cost sums over the window.
func (s *EventStore) SumLLM(ctx context.Context, tenantID string, start, end time.Time) (int64, float64, error) {
	var tokens int64
	var cost float64
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(total_tokens), 0), COALESCE(SUM(cost_usd), 0)
		FROM llm_events
		WHERE tenant_id = ? AND request_timestamp >= ? AND request_timestamp <= ?
	`, tenantID, start, end).Scan(&tokens, &cost)
	return tokens, cost, err
}

// UserStats returns the per-user rollup across both tables. The two
// per-table aggregates are merged in Go; no FULL OUTER JOIN needed.
func (s *EventStore) UserStats(ctx context.Context, tenantID string, start, end time.Time, limit int) ([]event.UserStats, error) {
	stats := make(map[string]*event.UserStats)

	restRows, err := s.db.QueryContext(ctx, `
		SELECT user_id, COUNT(*), MIN(request_timestamp), MAX(request_timestamp)
		FROM rest_events
		WHERE tenant_id = ? AND user_id IS NOT NULL
		  AND request_timestamp >= ? AND request_timestamp <= ?
		GROUP BY user_id
	`, tenantID, start, end)
	if err != nil {
		return nil, err
	}
	defer restRows.Close()
	for restRows.Next() {
		var userID string
		var n int64
		var first, last time.Time
		if err := restRows.Scan(&userID, &n, &first, &last); err != nil {
			return nil, err
		}
		stats[userID] = &event.UserStats{
			UserID:        userID,
			TotalRequests: n,
			RestRequests:  n,
			FirstSeen:     first,
			LastSeen:      last,
		}
	}
	if err := restRows.Err(); err != nil {
		return nil, err
	}

	llmRows, err := s.db.QueryContext(ctx, `
		SELECT user_id, COUNT(*), COALESCE(SUM(total_tokens), 0), COALESCE(SUM(cost_usd), 0),
		       MIN(request_timestamp), MAX(request_timestamp)
		FROM llm_events
		WHERE tenant_id = ? AND user_id IS NOT NULL
		  AND request_timestamp >= ? AND request_timestamp <= ?
		GROUP BY user_id
	`, tenantID, start, end)
	if err != nil {
		return nil, err
	}
	defer llmRows.Close()
	for llmRows.Next() {
		var userID string
		var n, tokens int64
		var cost float64
		var first, last time.Time
		if err := llmRows.Scan(&userID, &n, &tokens, &cost, &first, &last); err != nil {
			return nil, err
		}
		st, ok := stats[userID]
		if !ok {
			st = &event.UserStats{UserID: userID, FirstSeen: first, LastSeen: last}
			stats[userID] = st
		}
		st.TotalRequests += n
		st.LLMRequests = n
		st.TotalTokens = tokens
		st.TotalCostUSD = cost
		if first.Before(st.FirstSeen) {
			st.FirstSeen = first
		}
		if last.After(st.LastSeen) {
			st.LastSeen = last
		}
	}
	if err := llmRows.Err(); err != nil {
		return nil, err
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

// commonWhere builds the conjunctive WHERE clause for the filter's common
// fields. The time window is inclusive on both ends.
func commonWhere(f event.Filter) (string, []any) {
	conditions := []string{"tenant_id = ?", "request_timestamp >= ?", "request_timestamp <= ?"}
	args := []any{f.TenantID, f.Start, f.End}

	if f.RequestID != "" {
		conditions = append(conditions, "request_id = ?")
		args = append(args, f.RequestID)
	}
	if f.UserID != "" {
		conditions = append(conditions, "user_id = ?")
		args = append(args, f.UserID)
	}
	if f.Service != "" {
		conditions = append(conditions, "service = ?")
		args = append(args, f.Service)
	}
	if f.Environment != "" {
		conditions = append(conditions, "environment = ?")
		args = append(args, f.Environment)
	}
	if f.StatusCode != 0 {
		conditions = append(conditions, "status_code = ?")
		args = append(args, f.StatusCode)
	}
	if f.OriginalRequestID != "" {
		conditions = append(conditions, "original_request_id = ?")
		args = append(args, f.OriginalRequestID)
	}
	return strings.Join(conditions, " AND "), args
}

func collectRest(rows *sql.Rows) ([]event.Rest, error) {
	var events []event.Rest
	for rows.Next() {
		e, err := scanRest(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func collectLLM(rows *sql.Rows) ([]event.LLM, error) {
	var events []event.LLM
	for rows.Next() {
		e, err := scanLLM(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func scanRest(rows *sql.Rows) (event.Rest, error) {
	var e event.Rest
	var userID, environment, correlationID, originalRequestID sql.NullString
	var requestBody, responseBody, metadata sql.NullString
	var requestSize, responseSize sql.NullInt64

	err := rows.Scan(
		&e.EventID, &e.TenantID, &e.RequestID, &userID, &environment, &correlationID,
		&e.RequestTimestamp, &e.ResponseTimestamp, &e.Service, &e.Method, &e.URL, &e.StatusCode, &e.LatencyMs,
		&e.AttemptNumber, &originalRequestID, &requestBody, &responseBody,
		&e.RequestBodyTruncated, &e.ResponseBodyTruncated, &e.RequestBodySizeBytes, &e.ResponseBodySizeBytes,
		&requestSize, &responseSize, &metadata, &e.CreatedAt,
	)
	if err != nil {
		return event.Rest{}, err
	}

	e.UserID = userID.String
	e.Environment = environment.String
	e.CorrelationID = correlationID.String
	e.OriginalRequestID = originalRequestID.String
	e.RequestBody = rawOrNil(requestBody)
	e.ResponseBody = rawOrNil(responseBody)
	e.Metadata = rawOrNil(metadata)
	if requestSize.Valid {
		e.RequestSizeBytes = &requestSize.Int64
	}
	if responseSize.Valid {
		e.ResponseSizeBytes = &responseSize.Int64
	}
	return e, nil
}

func scanLLM(rows *sql.Rows) (event.LLM, error) {
	var e event.LLM
	var userID, environment, correlationID, originalRequestID sql.NullString
	var finishReason, conversationID sql.NullString
	var requestBody, responseBody, metadata, functionCalls, warnings sql.NullString
	var temperature, topP, frequencyPenalty, presencePenalty sql.NullFloat64
	var maxTokens, ttft sql.NullInt64

	err := rows.Scan(
		&e.EventID, &e.TenantID, &e.RequestID, &userID, &environment, &correlationID,
		&e.RequestTimestamp, &e.ResponseTimestamp, &e.Service, &e.URL, &e.StatusCode, &e.LatencyMs,
		&e.AttemptNumber, &originalRequestID, &e.Provider, &e.Model, &e.Endpoint,
		&e.PromptTokens, &e.CompletionTokens, &e.TotalTokens, &e.CostUSD,
		&temperature, &maxTokens, &topP, &frequencyPenalty, &presencePenalty,
		&finishReason, &e.IsStreaming, &ttft, &conversationID, &functionCalls, &warnings,
		&requestBody, &responseBody, &e.RequestBodyTruncated, &e.ResponseBodyTruncated,
		&e.RequestBodySizeBytes, &e.ResponseBodySizeBytes, &metadata, &e.CreatedAt,
	)
	if err != nil {
		return event.LLM{}, err
	}

	e.UserID = userID.String
	e.Environment = environment.String
	e.CorrelationID = correlationID.String
	e.OriginalRequestID = originalRequestID.String
	e.FinishReason = finishReason.String
	e.ConversationID = conversationID.String
	e.RequestBody = rawOrNil(requestBody)
	e.ResponseBody = rawOrNil(responseBody)
	e.Metadata = rawOrNil(metadata)
	e.FunctionCalls = rawOrNil(functionCalls)
	e.Warnings = rawOrNil(warnings)
	if temperature.Valid {
		e.Temperature = &temperature.Float64
	}
	if topP.Valid {
		e.TopP = &topP.Float64
	}
	if frequencyPenalty.Valid {
		e.FrequencyPenalty = &frequencyPenalty.Float64
	}
	if presencePenalty.Valid {
		e.PresencePenalty = &presencePenalty.Float64
	}
	if maxTokens.Valid {
		e.MaxTokens = &maxTokens.Int64
	}
	if ttft.Valid {
		e.TimeToFirstTokenMs = &ttft.Int64
	}
	return e, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullInt(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func nullRaw(raw json.RawMessage) sql.NullString {
	if len(raw) == 0 {
		return sql.NullString{}
	}
	return sql.NullString{String: string(raw), Valid: true}
}

func rawOrNil(s sql.NullString) json.RawMessage {
	if !s.Valid {
		return nil
	}
	return json.RawMessage(s.String)
}

// Ensure interface compliance.
var _ ports.EventStore = (*EventStore)(nil)
