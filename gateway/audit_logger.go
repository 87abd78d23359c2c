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
	"log"
	"time"

	"github.com/google/uuid"
)

// AuditEntry is one call audit log record
type AuditEntry struct {
	ID        string                 `json:"id"`
	ClientID  string                 `json:"client_id"`
	CallID    string                 `json:"call_id,omitempty"`
	EventType string                 `json:"event_type"`
	Detail    map[string]interface{} `json:"detail,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}

// AuditLoggerConfig tunes the batch writer
type AuditLoggerConfig struct {
	BatchSize     int
	FlushInterval time.Duration
	QueueSize     int
}

// DefaultAuditLoggerConfig returns production defaults
func DefaultAuditLoggerConfig() AuditLoggerConfig {
	return AuditLoggerConfig{
		BatchSize:     50,
		FlushInterval: 2 * time.Second,
		QueueSize:     1000,
	}
}

// AuditLogger records call events to call_audit_logs through a buffered
// queue and a background batch writer, so audit writes never sit on the
// call event path. A full queue drops the entry with a log line rather
// than blocking.
type AuditLogger struct {
	db     *sql.DB
	config AuditLoggerConfig
	queue  chan AuditEntry
	done   chan struct{}
}

// NewAuditLogger creates the logger and starts its writer
func NewAuditLogger(db *sql.DB, config AuditLoggerConfig) *AuditLogger {
	if config.BatchSize <= 0 {
		config.BatchSize = 50
	}
	if config.FlushInterval <= 0 {
		config.FlushInterval = 2 * time.Second
	}
	if config.QueueSize <= 0 {
		config.QueueSize = 1000
	}

	l := &AuditLogger{
		db:     db,
		config: config,
		queue:  make(chan AuditEntry, config.QueueSize),
		done:   make(chan struct{}),
	}
	go l.worker()
	return l
}

// Record queues an audit entry. Never blocks.
func (l *AuditLogger) Record(clientID, callID, eventType string, detail map[string]interface{}) {
	entry := AuditEntry{
		ID:        uuid.New().String(),
		ClientID:  clientID,
		CallID:    callID,
		EventType: eventType,
		Detail:    detail,
		CreatedAt: time.Now(),
	}

	select {
	case l.queue <- entry:
	default:
		log.Printf("[AUDIT] Queue full, dropping entry for call %s (%s)", callID, eventType)
	}
}

// Close flushes remaining entries and stops the writer
func (l *AuditLogger) Close() {
	close(l.queue)
	<-l.done
}

func (l *AuditLogger) worker() {
	defer close(l.done)

	batch := make([]AuditEntry, 0, l.config.BatchSize)
	ticker := time.NewTicker(l.config.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case entry, ok := <-l.queue:
			if !ok {
				l.flush(batch)
				return
			}
			batch = append(batch, entry)
			if len(batch) >= l.config.BatchSize {
				l.flush(batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				l.flush(batch)
				batch = batch[:0]
			}
		}
	}
}

func (l *AuditLogger) flush(batch []AuditEntry) {
	if len(batch) == 0 {
		return
	}

	tx, err := l.db.Begin()
	if err != nil {
		log.Printf("[AUDIT] Failed to begin batch transaction: %v", err)
		return
	}

	stmt, err := tx.Prepare(`
		INSERT INTO call_audit_logs (id, client_id, call_id, event_type, detail, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`)
	if err != nil {
		log.Printf("[AUDIT] Failed to prepare batch insert: %v", err)
		tx.Rollback()
		return
	}
	defer stmt.Close()

	for _, entry := range batch {
		detail, err := json.Marshal(entry.Detail)
		if err != nil {
			log.Printf("[AUDIT] Skipping entry with unmarshalable detail: %v", err)
			continue
		}
		if _, err := stmt.Exec(entry.ID, entry.ClientID, entry.CallID,
			entry.EventType, detail, entry.CreatedAt); err != nil {
			log.Printf("[AUDIT] Failed to insert audit entry: %v", err)
			tx.Rollback()
			return
		}
	}

	if err := tx.Commit(); err != nil {
		log.Printf("[AUDIT] Failed to commit audit batch: %v", err)
		return
	}
}

// Search returns a tenant's audit entries, newest first, optionally
// filtered by call ID and event type.
func (l *AuditLogger) Search(ctx context.Context, clientID, callID, eventType string, limit int) ([]AuditEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}

	where := "WHERE client_id = $1"
	args := []interface{}{clientID}
	argIndex := 2

	if callID != "" {
		where += fmt.Sprintf(" AND call_id = $%d", argIndex)
		args = append(args, callID)
		argIndex++
	}
	if eventType != "" {
		where += fmt.Sprintf(" AND event_type = $%d", argIndex)
		args = append(args, eventType)
		argIndex++
	}

	query := fmt.Sprintf(`
		SELECT id, client_id, COALESCE(call_id, ''), event_type, detail, created_at
		FROM call_audit_logs %s
		ORDER BY created_at DESC
		LIMIT $%d
	`, where, argIndex)
	args = append(args, limit)

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search audit logs: %w", err)
	}
	defer rows.Close()

	var entries []AuditEntry
	for rows.Next() {
		var entry AuditEntry
		var detail []byte
		if err := rows.Scan(&entry.ID, &entry.ClientID, &entry.CallID,
			&entry.EventType, &detail, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		if len(detail) > 0 {
			if err := json.Unmarshal(detail, &entry.Detail); err != nil {
				return nil, fmt.Errorf("failed to unmarshal audit detail: %w", err)
			}
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
