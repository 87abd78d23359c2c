// Copyright 2025 CallWeave
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package gateway

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// querier is the database handle subset the repository needs. Both
// *sql.DB and a tenant-pinned *sql.Conn satisfy it.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// CallRepository persists calls, call actions, and call summaries.
// Every query is scoped by client_id.
type CallRepository struct {
	db querier
}

// NewCallRepository creates a call repository
func NewCallRepository(db *sql.DB) *CallRepository {
	return &CallRepository{db: db}
}

// withConn rebinds the repository to a single connection, so writes run
// with the tenant session variable RLSManager.WithTenant set on it.
func (r *CallRepository) withConn(conn *sql.Conn) *CallRepository {
	return &CallRepository{db: conn}
}

// CreateCall inserts the row for a started call
func (r *CallRepository) CreateCall(ctx context.Context, call *Call) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO calls (id, client_id, sector, direction, caller, status, started_at)
		VALUES ($1, $2, $3, $4, $5, 'active', $6)
	`, call.ID, call.ClientID, call.Sector, call.Direction, call.Caller, call.StartedAt)
	if err != nil {
		return fmt.Errorf("failed to create call: %w", err)
	}
	return nil
}

// GetCall fetches one call. Returns nil, nil when not found.
func (r *CallRepository) GetCall(ctx context.Context, clientID, callID string) (*Call, error) {
	var call Call
	var endedAt sql.NullTime

	err := r.db.QueryRowContext(ctx, `
		SELECT id, client_id, sector, direction, COALESCE(caller, ''),
		       status, COALESCE(outcome, ''), COALESCE(duration_seconds, 0),
		       started_at, ended_at
		FROM calls
		WHERE client_id = $1 AND id = $2
	`, clientID, callID).Scan(
		&call.ID, &call.ClientID, &call.Sector, &call.Direction, &call.Caller,
		&call.Status, &call.Outcome, &call.DurationSeconds,
		&call.StartedAt, &endedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get call: %w", err)
	}

	if endedAt.Valid {
		call.EndedAt = &endedAt.Time
	}
	return &call, nil
}

// FinalizeCall marks a call completed with its outcome and duration
func (r *CallRepository) FinalizeCall(ctx context.Context, clientID, callID, outcome string, durationSeconds int, endedAt time.Time) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE calls
		SET status = 'completed', outcome = $1, duration_seconds = $2, ended_at = $3
		WHERE client_id = $4 AND id = $5 AND status = 'active'
	`, outcome, durationSeconds, endedAt, clientID, callID)
	if err != nil {
		return fmt.Errorf("failed to finalize call: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check finalize result: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("call %s not found or already completed", callID)
	}
	return nil
}

// ListCalls returns a tenant's calls, newest first, with optional
// sector and status filters.
func (r *CallRepository) ListCalls(ctx context.Context, clientID, sector, status string, limit, offset int) ([]*Call, int, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}

	where := "WHERE client_id = $1"
	args := []interface{}{clientID}
	argIndex := 2

	if sector != "" {
		where += fmt.Sprintf(" AND sector = $%d", argIndex)
		args = append(args, sector)
		argIndex++
	}
	if status != "" {
		where += fmt.Sprintf(" AND status = $%d", argIndex)
		args = append(args, status)
		argIndex++
	}

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM calls "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count calls: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT id, client_id, sector, direction, COALESCE(caller, ''),
		       status, COALESCE(outcome, ''), COALESCE(duration_seconds, 0),
		       started_at, ended_at
		FROM calls %s
		ORDER BY started_at DESC
		LIMIT $%d OFFSET $%d
	`, where, argIndex, argIndex+1)
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list calls: %w", err)
	}
	defer rows.Close()

	var calls []*Call
	for rows.Next() {
		var call Call
		var endedAt sql.NullTime
		if err := rows.Scan(
			&call.ID, &call.ClientID, &call.Sector, &call.Direction, &call.Caller,
			&call.Status, &call.Outcome, &call.DurationSeconds,
			&call.StartedAt, &endedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("failed to scan call: %w", err)
		}
		if endedAt.Valid {
			call.EndedAt = &endedAt.Time
		}
		calls = append(calls, &call)
	}
	return calls, total, rows.Err()
}

// CreateAction records one agent dispatch within a call
func (r *CallRepository) CreateAction(ctx context.Context, action *CallAction) error {
	payload, err := json.Marshal(action.Payload)
	if err != nil {
		return fmt.Errorf("failed to marshal action payload: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO call_actions (id, call_id, client_id, sector, intent, status,
		                          response, error, payload, duration_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, action.ID, action.CallID, action.ClientID, action.Sector, action.Intent,
		action.Status, action.Response, action.ErrorMsg, payload,
		action.DurationMs, action.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create call action: %w", err)
	}
	return nil
}

// ListActions returns the action trail for one call, oldest first
func (r *CallRepository) ListActions(ctx context.Context, clientID, callID string) ([]*CallAction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, call_id, client_id, sector, intent, status,
		       COALESCE(response, ''), COALESCE(error, ''), payload,
		       duration_ms, created_at
		FROM call_actions
		WHERE client_id = $1 AND call_id = $2
		ORDER BY created_at ASC
	`, clientID, callID)
	if err != nil {
		return nil, fmt.Errorf("failed to list call actions: %w", err)
	}
	defer rows.Close()

	var actions []*CallAction
	for rows.Next() {
		var action CallAction
		var payload []byte
		if err := rows.Scan(
			&action.ID, &action.CallID, &action.ClientID, &action.Sector,
			&action.Intent, &action.Status, &action.Response, &action.ErrorMsg,
			&payload, &action.DurationMs, &action.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan call action: %w", err)
		}
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &action.Payload); err != nil {
				return nil, fmt.Errorf("failed to unmarshal action payload: %w", err)
			}
		}
		actions = append(actions, &action)
	}
	return actions, rows.Err()
}

// CreateSummary stores an AI-generated call summary
func (r *CallRepository) CreateSummary(ctx context.Context, summary *CallSummary) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO call_summaries (id, call_id, client_id, summary, model, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, summary.ID, summary.CallID, summary.ClientID, summary.Summary,
		summary.Model, summary.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create call summary: %w", err)
	}
	return nil
}

// GetSummary fetches the summary for a call. Returns nil, nil when absent.
func (r *CallRepository) GetSummary(ctx context.Context, clientID, callID string) (*CallSummary, error) {
	var summary CallSummary
	err := r.db.QueryRowContext(ctx, `
		SELECT id, call_id, client_id, summary, model, created_at
		FROM call_summaries
		WHERE client_id = $1 AND call_id = $2
	`, clientID, callID).Scan(
		&summary.ID, &summary.CallID, &summary.ClientID,
		&summary.Summary, &summary.Model, &summary.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get call summary: %w", err)
	}
	return &summary, nil
}

// CallAnalytics is the aggregate shape for GET /api/v1/analytics/calls
type CallAnalytics struct {
	TotalCalls         int             `json:"total_calls"`
	AvgDurationSeconds float64         `json:"avg_duration_seconds"`
	Outcomes           map[string]int  `json:"outcomes"`
	ByDay              []CallDayBucket `json:"by_day"`
}

// CallDayBucket is one day's call volume
type CallDayBucket struct {
	Day   string `json:"day"`
	Calls int    `json:"calls"`
}

// IntentAnalytics is one intent's dispatch stats
type IntentAnalytics struct {
	Sector      string  `json:"sector"`
	Intent      string  `json:"intent"`
	Total       int     `json:"total"`
	Failed      int     `json:"failed"`
	FailureRate float64 `json:"failure_rate"`
}

// CallStats aggregates completed-call volume, duration, and outcomes
// over a date range.
func (r *CallRepository) CallStats(ctx context.Context, clientID string, from, to time.Time) (*CallAnalytics, error) {
	analytics := &CallAnalytics{Outcomes: make(map[string]int)}

	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(AVG(duration_seconds), 0)
		FROM calls
		WHERE client_id = $1 AND status = 'completed'
		  AND started_at >= $2 AND started_at < $3
	`, clientID, from, to).Scan(&analytics.TotalCalls, &analytics.AvgDurationSeconds)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate calls: %w", err)
	}

	outcomeRows, err := r.db.QueryContext(ctx, `
		SELECT COALESCE(outcome, 'unknown'), COUNT(*)
		FROM calls
		WHERE client_id = $1 AND status = 'completed'
		  AND started_at >= $2 AND started_at < $3
		GROUP BY outcome
	`, clientID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate outcomes: %w", err)
	}
	defer outcomeRows.Close()

	for outcomeRows.Next() {
		var outcome string
		var count int
		if err := outcomeRows.Scan(&outcome, &count); err != nil {
			return nil, fmt.Errorf("failed to scan outcome row: %w", err)
		}
		analytics.Outcomes[outcome] = count
	}
	if err := outcomeRows.Err(); err != nil {
		return nil, err
	}

	dayRows, err := r.db.QueryContext(ctx, `
		SELECT TO_CHAR(DATE_TRUNC('day', started_at), 'YYYY-MM-DD'), COUNT(*)
		FROM calls
		WHERE client_id = $1 AND started_at >= $2 AND started_at < $3
		GROUP BY 1
		ORDER BY 1
	`, clientID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate daily volume: %w", err)
	}
	defer dayRows.Close()

	for dayRows.Next() {
		var bucket CallDayBucket
		if err := dayRows.Scan(&bucket.Day, &bucket.Calls); err != nil {
			return nil, fmt.Errorf("failed to scan day bucket: %w", err)
		}
		analytics.ByDay = append(analytics.ByDay, bucket)
	}
	return analytics, dayRows.Err()
}

// IntentStats aggregates per-intent dispatch counts and failure rates
func (r *CallRepository) IntentStats(ctx context.Context, clientID string, from, to time.Time) ([]*IntentAnalytics, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT sector, intent, COUNT(*),
		       COUNT(*) FILTER (WHERE status = 'failed')
		FROM call_actions
		WHERE client_id = $1 AND created_at >= $2 AND created_at < $3
		GROUP BY sector, intent
		ORDER BY COUNT(*) DESC
	`, clientID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate intents: %w", err)
	}
	defer rows.Close()

	var stats []*IntentAnalytics
	for rows.Next() {
		var s IntentAnalytics
		if err := rows.Scan(&s.Sector, &s.Intent, &s.Total, &s.Failed); err != nil {
			return nil, fmt.Errorf("failed to scan intent row: %w", err)
		}
		if s.Total > 0 {
			s.FailureRate = float64(s.Failed) / float64(s.Total)
		}
		stats = append(stats, &s)
	}
	return stats, rows.Err()
}
