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

	"callweave/platform/common/usage"
)

func newTestProcessor(t *testing.T) (*CallProcessor, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	orchestrator := newTestOrchestrator(t, allowAllGate{})
	processor := NewCallProcessor(
		orchestrator,
		NewCallRepository(db),
		nil, // clients: plan defaults to standard
		nil, // rls
		usage.NewUsageRecorder(db),
		nil, // audit
		nil, // summarizer
		nil, // metrics
		"gw-test",
	)
	return processor, mock
}

func TestValidateEvent(t *testing.T) {
	tests := []struct {
		name  string
		event CallEvent
		field string
	}{
		{"missing call_id", CallEvent{ClientID: "c", EventType: EventCallEnded}, "call_id"},
		{"missing client_id", CallEvent{CallID: "x", EventType: EventCallEnded}, "client_id"},
		{"missing event_type", CallEvent{CallID: "x", ClientID: "c"}, "event_type"},
		{"unknown event_type", CallEvent{CallID: "x", ClientID: "c", EventType: "call_parked"}, "event_type"},
		{"started without sector", CallEvent{CallID: "x", ClientID: "c", EventType: EventCallStarted, Direction: "inbound"}, "sector"},
		{"started with bad direction", CallEvent{CallID: "x", ClientID: "c", EventType: EventCallStarted, Sector: "ecommerce", Direction: "sideways"}, "direction"},
		{"intent without intent or utterance", CallEvent{CallID: "x", ClientID: "c", EventType: EventIntentDetected}, "intent"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateEvent(&tt.event)
			require.Error(t, err)

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, verr.Fields, tt.field)
		})
	}
}

func TestProcessCallStarted(t *testing.T) {
	processor, mock := newTestProcessor(t)

	mock.ExpectExec("INSERT INTO calls").
		WillReturnResult(sqlmock.NewResult(1, 1))

	ack, err := processor.ProcessEvent(context.Background(), &CallEvent{
		CallID:    "call-1",
		ClientID:  "client-1",
		Sector:    "ecommerce",
		Direction: "inbound",
		EventType: EventCallStarted,
		Caller:    "+15550100",
	}, "req-1")
	require.NoError(t, err)
	assert.Equal(t, "accepted", ack.Status)
	assert.NotEmpty(t, ack.EventID)
	assert.Equal(t, "req-1", ack.RequestID)

	_, active := processor.orchestrator.ActiveCallInfo("call-1")
	assert.True(t, active)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProcessIntentDetected(t *testing.T) {
	processor, mock := newTestProcessor(t)

	mock.ExpectExec("INSERT INTO calls").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO call_actions").WillReturnResult(sqlmock.NewResult(1, 1))

	_, err := processor.ProcessEvent(context.Background(), &CallEvent{
		CallID:    "call-1",
		ClientID:  "client-1",
		Sector:    "ecommerce",
		Direction: "inbound",
		EventType: EventCallStarted,
	}, "req-1")
	require.NoError(t, err)

	ack, err := processor.ProcessEvent(context.Background(), &CallEvent{
		CallID:    "call-1",
		ClientID:  "client-1",
		EventType: EventIntentDetected,
		Intent:    "order_lookup",
		Fields:    map[string]interface{}{"order_number": "A-20451"},
	}, "req-2")
	require.NoError(t, err)
	assert.Equal(t, "handled", ack.Status)
	require.NotNil(t, ack.Result)
	assert.Contains(t, ack.Result.Response, "A-20451")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProcessIntentDetectedMissingField(t *testing.T) {
	processor, mock := newTestProcessor(t)

	mock.ExpectExec("INSERT INTO calls").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO call_actions").
		WillReturnResult(sqlmock.NewResult(1, 1))

	_, err := processor.ProcessEvent(context.Background(), &CallEvent{
		CallID:    "call-1",
		ClientID:  "client-1",
		Sector:    "ecommerce",
		Direction: "inbound",
		EventType: EventCallStarted,
	}, "req-1")
	require.NoError(t, err)

	ack, err := processor.ProcessEvent(context.Background(), &CallEvent{
		CallID:    "call-1",
		ClientID:  "client-1",
		EventType: EventIntentDetected,
		Intent:    "order_lookup",
	}, "req-2")
	require.NoError(t, err)
	assert.Equal(t, "failed", ack.Status)
	assert.Nil(t, ack.Result)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProcessIntentInferredFromUtteranceKeptOnFailure(t *testing.T) {
	processor, mock := newTestProcessor(t)

	mock.ExpectExec("INSERT INTO calls").WillReturnResult(sqlmock.NewResult(1, 1))
	// "where" routes to order_status; order_number is missing, so the
	// dispatch fails after the intent was inferred. The action row must
	// still carry the inferred intent.
	mock.ExpectExec("INSERT INTO call_actions").
		WithArgs(sqlmock.AnyArg(), "call-1", "client-1", "ecommerce", "order_status",
			"failed", "", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	_, err := processor.ProcessEvent(context.Background(), &CallEvent{
		CallID:    "call-1",
		ClientID:  "client-1",
		Sector:    "ecommerce",
		Direction: "inbound",
		EventType: EventCallStarted,
	}, "req-1")
	require.NoError(t, err)

	ack, err := processor.ProcessEvent(context.Background(), &CallEvent{
		CallID:    "call-1",
		ClientID:  "client-1",
		EventType: EventIntentDetected,
		Utterance: "where is my order",
	}, "req-2")
	require.NoError(t, err)
	assert.Equal(t, "failed", ack.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProcessEventPinsTenantSessionVariable(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT EXISTS").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	rls := NewRLSManager(db)
	require.True(t, rls.Enabled())

	mock.ExpectExec("SELECT set_client_id").
		WithArgs("client-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO calls").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("SELECT reset_client_id").
		WillReturnResult(sqlmock.NewResult(0, 0))

	processor := NewCallProcessor(
		newTestOrchestrator(t, allowAllGate{}),
		NewCallRepository(db),
		nil,
		rls,
		nil, nil, nil, nil,
		"gw-test",
	)

	_, err = processor.ProcessEvent(context.Background(), &CallEvent{
		CallID:    "call-1",
		ClientID:  "client-1",
		Sector:    "ecommerce",
		Direction: "inbound",
		EventType: EventCallStarted,
	}, "req-1")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProcessCallEnded(t *testing.T) {
	processor, mock := newTestProcessor(t)
	started := time.Now().Add(-2 * time.Minute)

	mock.ExpectExec("INSERT INTO calls").WillReturnResult(sqlmock.NewResult(1, 1))

	callRows := sqlmock.NewRows([]string{
		"id", "client_id", "sector", "direction", "caller",
		"status", "outcome", "duration_seconds", "started_at", "ended_at",
	}).AddRow("call-1", "client-1", "ecommerce", "inbound", "",
		"active", "", 0, started, nil)
	mock.ExpectQuery("SELECT (.+) FROM calls").
		WithArgs("client-1", "call-1").
		WillReturnRows(callRows)
	mock.ExpectExec("UPDATE calls").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO usage_events").WillReturnResult(sqlmock.NewResult(1, 1))

	_, err := processor.ProcessEvent(context.Background(), &CallEvent{
		CallID:    "call-1",
		ClientID:  "client-1",
		Sector:    "ecommerce",
		Direction: "inbound",
		EventType: EventCallStarted,
	}, "req-1")
	require.NoError(t, err)

	ack, err := processor.ProcessEvent(context.Background(), &CallEvent{
		CallID:    "call-1",
		ClientID:  "client-1",
		EventType: EventCallEnded,
	}, "req-2")
	require.NoError(t, err)
	assert.Equal(t, "accepted", ack.Status)

	// Active entry released
	_, active := processor.orchestrator.ActiveCallInfo("call-1")
	assert.False(t, active)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProcessCallEndedUnknownCall(t *testing.T) {
	processor, mock := newTestProcessor(t)

	mock.ExpectQuery("SELECT (.+) FROM calls").
		WithArgs("client-1", "call-missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := processor.ProcessEvent(context.Background(), &CallEvent{
		CallID:    "call-missing",
		ClientID:  "client-1",
		EventType: EventCallEnded,
	}, "req-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}
