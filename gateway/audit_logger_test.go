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

func TestAuditLoggerFlushOnClose(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mock.ExpectBegin()
	prep := mock.ExpectPrepare("INSERT INTO call_audit_logs")
	prep.ExpectExec().WillReturnResult(sqlmock.NewResult(1, 1))
	prep.ExpectExec().WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	logger := NewAuditLogger(db, AuditLoggerConfig{
		BatchSize:     10,
		FlushInterval: time.Hour, // only Close flushes
		QueueSize:     10,
	})

	logger.Record("client-1", "call-1", EventCallStarted, map[string]interface{}{"sector": "ecommerce"})
	logger.Record("client-1", "call-1", EventCallEnded, nil)
	logger.Close()

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditLoggerBatchSizeFlush(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mock.ExpectBegin()
	prep := mock.ExpectPrepare("INSERT INTO call_audit_logs")
	prep.ExpectExec().WillReturnResult(sqlmock.NewResult(1, 1))
	prep.ExpectExec().WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	logger := NewAuditLogger(db, AuditLoggerConfig{
		BatchSize:     2,
		FlushInterval: time.Hour,
		QueueSize:     10,
	})

	logger.Record("client-1", "call-1", EventCallStarted, nil)
	logger.Record("client-1", "call-2", EventCallStarted, nil)

	// Batch flush happens in the worker; give it a moment
	require.Eventually(t, func() bool {
		return mock.ExpectationsWereMet() == nil
	}, time.Second, 10*time.Millisecond)

	logger.Close()
}

func TestAuditLoggerDropsWhenQueueFull(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logger := &AuditLogger{
		db:     db,
		config: AuditLoggerConfig{BatchSize: 10, FlushInterval: time.Hour, QueueSize: 1},
		queue:  make(chan AuditEntry, 1),
		done:   make(chan struct{}),
	}
	// No worker running: second Record must not block
	logger.Record("client-1", "call-1", EventCallStarted, nil)

	finished := make(chan struct{})
	go func() {
		logger.Record("client-1", "call-2", EventCallStarted, nil)
		close(finished)
	}()

	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("Record blocked on a full queue")
	}
}

func TestAuditLoggerSearch(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	created := time.Now()
	rows := sqlmock.NewRows([]string{"id", "client_id", "call_id", "event_type", "detail", "created_at"}).
		AddRow("a-1", "client-1", "call-1", EventCallStarted, []byte(`{"sector":"billing"}`), created)

	mock.ExpectQuery("SELECT (.+) FROM call_audit_logs WHERE client_id = \\$1 AND call_id = \\$2").
		WithArgs("client-1", "call-1", 100).
		WillReturnRows(rows)

	logger := &AuditLogger{db: db}
	entries, err := logger.Search(context.Background(), "client-1", "call-1", "", 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "billing", entries[0].Detail["sector"])
}
