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

package usage

import (
	"database/sql"
	"log"
)

// UsageRecorder handles recording usage events to the database
type UsageRecorder struct {
	db *sql.DB
}

// NewUsageRecorder creates a new usage recorder with a database connection
func NewUsageRecorder(db *sql.DB) *UsageRecorder {
	return &UsageRecorder{db: db}
}

// CallMinutesEvent represents a completed call to be metered
type CallMinutesEvent struct {
	ClientID        string
	CallID          string
	Sector          string
	Plan            string
	Direction       string // "inbound" or "outbound"
	DurationSeconds int
	InstanceID      string // Which gateway instance processed this
}

// RecordCallMinutes records a completed call with its computed cost.
// Errors are logged but don't block call completion.
func (r *UsageRecorder) RecordCallMinutes(event CallMinutesEvent) error {
	costCents := CalculateCallCost(event.Sector, event.Plan, event.Direction, event.DurationSeconds)

	_, err := r.db.Exec(`
		INSERT INTO usage_events (
			client_id, event_type, call_id, sector, direction,
			duration_seconds, estimated_cost_cents, instance_id
		) VALUES ($1, 'call_minutes', $2, $3, $4, $5, $6, $7)
	`, event.ClientID, event.CallID, event.Sector, event.Direction,
		event.DurationSeconds, costCents, nullString(event.InstanceID))

	if err != nil {
		log.Printf("[USAGE] Failed to record call minutes: %v", err)
	}

	return err
}

// APICallEvent represents an admin API call event to be recorded
type APICallEvent struct {
	ClientID       string
	InstanceID     string
	HTTPMethod     string
	HTTPPath       string
	HTTPStatusCode int
	LatencyMs      int64
}

// RecordAPICall records an API call event to the database.
// Errors are logged but don't block responses.
func (r *UsageRecorder) RecordAPICall(event APICallEvent) error {
	_, err := r.db.Exec(`
		INSERT INTO usage_events (
			client_id, event_type, instance_id,
			http_method, http_path, http_status_code, latency_ms
		) VALUES ($1, 'api_call', $2, $3, $4, $5, $6)
	`, event.ClientID, nullString(event.InstanceID),
		event.HTTPMethod, event.HTTPPath, event.HTTPStatusCode, event.LatencyMs)

	if err != nil {
		log.Printf("[USAGE] Failed to record API call: %v", err)
	}

	return err
}

// nullString converts an empty string to NULL for database insertion
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
