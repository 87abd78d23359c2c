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
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// callReadRouter wires only the read endpoints against one mocked DB
func callReadRouter(t *testing.T) (*mux.Router, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	router := mux.NewRouter()
	handlers := NewCallHandlers(nil, NewCallRepository(db), nil)
	handlers.Register(router)
	return router, mock
}

func TestCallHandlersIngestStarted(t *testing.T) {
	processor, mock := newTestProcessor(t)
	router := mux.NewRouter()
	NewCallHandlers(processor, nil, nil).Register(router)

	mock.ExpectExec("INSERT INTO calls").
		WillReturnResult(sqlmock.NewResult(1, 1))

	body := `{"call_id":"call-1","sector":"ecommerce","direction":"inbound","event_type":"call_started"}`
	req := httptest.NewRequest("POST", "/api/v1/calls/events", strings.NewReader(body))
	req.Header.Set("X-Client-ID", "client-1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var ack EventAck
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ack))
	assert.Equal(t, "accepted", ack.Status)
	assert.Equal(t, "call-1", ack.CallID)
}

func TestCallHandlersIngestTenantMismatch(t *testing.T) {
	processor, _ := newTestProcessor(t)
	router := mux.NewRouter()
	NewCallHandlers(processor, nil, nil).Register(router)

	body := `{"call_id":"call-1","client_id":"client-2","event_type":"call_started","sector":"ecommerce","direction":"inbound"}`
	req := httptest.NewRequest("POST", "/api/v1/calls/events", strings.NewReader(body))
	req.Header.Set("X-Client-ID", "client-1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCallHandlersIngestValidationError(t *testing.T) {
	processor, _ := newTestProcessor(t)
	router := mux.NewRouter()
	NewCallHandlers(processor, nil, nil).Register(router)

	// Missing sector and direction for call_started
	body := `{"call_id":"call-1","event_type":"call_started"}`
	req := httptest.NewRequest("POST", "/api/v1/calls/events", strings.NewReader(body))
	req.Header.Set("X-Client-ID", "client-1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
	assert.Contains(t, resp.Error.Fields, "sector")
}

func TestCallHandlersIngestMissingTenant(t *testing.T) {
	processor, _ := newTestProcessor(t)
	router := mux.NewRouter()
	NewCallHandlers(processor, nil, nil).Register(router)

	req := httptest.NewRequest("POST", "/api/v1/calls/events",
		strings.NewReader(`{"call_id":"call-1","event_type":"call_started"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCallHandlersList(t *testing.T) {
	router, mock := callReadRouter(t)
	now := time.Now()

	mock.ExpectQuery("SELECT COUNT").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery("SELECT (.+) FROM calls").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "client_id", "sector", "direction", "caller", "status",
			"outcome", "duration_seconds", "started_at", "ended_at",
		}).AddRow("call-1", "client-1", "ecommerce", "inbound", "+15550100",
			"completed", "resolved", 120, now, now))

	req := httptest.NewRequest("GET", "/api/v1/calls?sector=ecommerce", nil)
	req.Header.Set("X-Client-ID", "client-1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp CallListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Calls, 1)
	assert.Equal(t, 1, resp.Meta.Total)
	assert.Equal(t, "resolved", resp.Calls[0].Outcome)
}

func TestCallHandlersGetNotFound(t *testing.T) {
	router, mock := callReadRouter(t)

	mock.ExpectQuery("SELECT (.+) FROM calls").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	req := httptest.NewRequest("GET", "/api/v1/calls/call-404", nil)
	req.Header.Set("X-Client-ID", "client-1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCallHandlersListActionsEmpty(t *testing.T) {
	router, mock := callReadRouter(t)

	mock.ExpectQuery("SELECT (.+) FROM call_actions").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	req := httptest.NewRequest("GET", "/api/v1/calls/call-1/actions", nil)
	req.Header.Set("X-Client-ID", "client-1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"actions":[]`)
}

func TestCallHandlersAuditWithoutLogger(t *testing.T) {
	router, _ := callReadRouter(t)

	req := httptest.NewRequest("GET", "/api/v1/calls/call-1/audit", nil)
	req.Header.Set("X-Client-ID", "client-1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"entries":[]`)
}
