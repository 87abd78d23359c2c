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
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCallRepo(t *testing.T) (*CallRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewCallRepository(db), mock
}

func TestCreateCall(t *testing.T) {
	repo, mock := newCallRepo(t)
	started := time.Now()

	mock.ExpectExec("INSERT INTO calls").
		WithArgs("call-1", "client-1", "ecommerce", "inbound", "+15550100", started).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.CreateCall(context.Background(), &Call{
		ID:        "call-1",
		ClientID:  "client-1",
		Sector:    "ecommerce",
		Direction: "inbound",
		Caller:    "+15550100",
		StartedAt: started,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetCallNotFound(t *testing.T) {
	repo, mock := newCallRepo(t)

	mock.ExpectQuery("SELECT (.+) FROM calls").
		WithArgs("client-1", "call-404").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	call, err := repo.GetCall(context.Background(), "client-1", "call-404")
	require.NoError(t, err)
	assert.Nil(t, call)
}

func TestGetCall(t *testing.T) {
	repo, mock := newCallRepo(t)
	started := time.Now().Add(-2 * time.Minute)
	ended := time.Now()

	rows := sqlmock.NewRows([]string{
		"id", "client_id", "sector", "direction", "caller",
		"status", "outcome", "duration_seconds", "started_at", "ended_at",
	}).AddRow("call-1", "client-1", "ecommerce", "inbound", "+15550100",
		"completed", "resolved", 120, started, ended)

	mock.ExpectQuery("SELECT (.+) FROM calls").
		WithArgs("client-1", "call-1").
		WillReturnRows(rows)

	call, err := repo.GetCall(context.Background(), "client-1", "call-1")
	require.NoError(t, err)
	require.NotNil(t, call)
	assert.Equal(t, "resolved", call.Outcome)
	require.NotNil(t, call.EndedAt)
}

func TestFinalizeCall(t *testing.T) {
	repo, mock := newCallRepo(t)
	ended := time.Now()

	mock.ExpectExec("UPDATE calls").
		WithArgs("resolved", 135, ended, "client-1", "call-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.FinalizeCall(context.Background(), "client-1", "call-1", "resolved", 135, ended)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFinalizeCallAlreadyCompleted(t *testing.T) {
	repo, mock := newCallRepo(t)

	mock.ExpectExec("UPDATE calls").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.FinalizeCall(context.Background(), "client-1", "call-1", "resolved", 135, time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found or already completed")
}

func TestListCallsWithFilters(t *testing.T) {
	repo, mock := newCallRepo(t)
	started := time.Now()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM calls WHERE client_id = \$1 AND sector = \$2`).
		WithArgs("client-1", "ecommerce").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	rows := sqlmock.NewRows([]string{
		"id", "client_id", "sector", "direction", "caller",
		"status", "outcome", "duration_seconds", "started_at", "ended_at",
	}).AddRow("call-1", "client-1", "ecommerce", "inbound", "",
		"active", "", 0, started, nil)

	mock.ExpectQuery("SELECT (.+) FROM calls WHERE").
		WithArgs("client-1", "ecommerce", 50, 0).
		WillReturnRows(rows)

	calls, total, err := repo.ListCalls(context.Background(), "client-1", "ecommerce", "", 50, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, calls, 1)
	assert.Nil(t, calls[0].EndedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateAction(t *testing.T) {
	repo, mock := newCallRepo(t)
	created := time.Now()

	mock.ExpectExec("INSERT INTO call_actions").
		WithArgs("act-1", "call-1", "client-1", "ecommerce", "order_lookup",
			"completed", "Found your order.", "", []byte(`{"order_number":"A-1"}`),
			int64(42), created).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.CreateAction(context.Background(), &CallAction{
		ID:         "act-1",
		CallID:     "call-1",
		ClientID:   "client-1",
		Sector:     "ecommerce",
		Intent:     "order_lookup",
		Status:     "completed",
		Response:   "Found your order.",
		Payload:    map[string]interface{}{"order_number": "A-1"},
		DurationMs: 42,
		CreatedAt:  created,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListActions(t *testing.T) {
	repo, mock := newCallRepo(t)
	created := time.Now()

	rows := sqlmock.NewRows([]string{
		"id", "call_id", "client_id", "sector", "intent", "status",
		"response", "error", "payload", "duration_ms", "created_at",
	}).AddRow("act-1", "call-1", "client-1", "ecommerce", "order_lookup",
		"completed", "Found it.", "", []byte(`{"status":"shipped"}`), int64(42), created)

	mock.ExpectQuery("SELECT (.+) FROM call_actions").
		WithArgs("client-1", "call-1").
		WillReturnRows(rows)

	actions, err := repo.ListActions(context.Background(), "client-1", "call-1")
	require.NoError(t, err)
	require.Len(t, actions, 1)
	assert.Equal(t, "shipped", actions[0].Payload["status"])
}

func TestCallStats(t *testing.T) {
	repo, mock := newCallRepo(t)
	from := time.Now().AddDate(0, 0, -7)
	to := time.Now()

	mock.ExpectQuery(`SELECT COUNT\(\*\), COALESCE\(AVG\(duration_seconds\), 0\)`).
		WithArgs("client-1", from, to).
		WillReturnRows(sqlmock.NewRows([]string{"count", "avg"}).AddRow(10, 95.5))

	mock.ExpectQuery(`SELECT COALESCE\(outcome, 'unknown'\), COUNT\(\*\)`).
		WithArgs("client-1", from, to).
		WillReturnRows(sqlmock.NewRows([]string{"outcome", "count"}).
			AddRow("resolved", 8).AddRow("transferred", 2))

	mock.ExpectQuery(`SELECT TO_CHAR`).
		WithArgs("client-1", from, to).
		WillReturnRows(sqlmock.NewRows([]string{"day", "count"}).
			AddRow("2025-08-20", 4).AddRow("2025-08-21", 6))

	analytics, err := repo.CallStats(context.Background(), "client-1", from, to)
	require.NoError(t, err)
	assert.Equal(t, 10, analytics.TotalCalls)
	assert.Equal(t, 95.5, analytics.AvgDurationSeconds)
	assert.Equal(t, 8, analytics.Outcomes["resolved"])
	require.Len(t, analytics.ByDay, 2)
	assert.Equal(t, "2025-08-20", analytics.ByDay[0].Day)
}

func TestIntentStats(t *testing.T) {
	repo, mock := newCallRepo(t)
	from := time.Now().AddDate(0, 0, -7)
	to := time.Now()

	rows := sqlmock.NewRows([]string{"sector", "intent", "total", "failed"}).
		AddRow("ecommerce", "order_lookup", 20, 2).
		AddRow("billing", "invoice_lookup", 5, 0)

	mock.ExpectQuery("SELECT sector, intent").
		WithArgs("client-1", from, to).
		WillReturnRows(rows)

	stats, err := repo.IntentStats(context.Background(), "client-1", from, to)
	require.NoError(t, err)
	require.Len(t, stats, 2)
	assert.InDelta(t, 0.1, stats[0].FailureRate, 0.001)
	assert.Equal(t, 0.0, stats[1].FailureRate)
}
