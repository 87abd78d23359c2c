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
	"time"
)

// Call event types accepted on POST /api/v1/calls/events
const (
	EventCallStarted     = "call_started"
	EventIntentDetected  = "intent_detected"
	EventCallTransferred = "call_transferred"
	EventCallEnded       = "call_ended"
)

// Call directions
const (
	DirectionInbound  = "inbound"
	DirectionOutbound = "outbound"
)

// Call outcomes recorded on call_ended
const (
	OutcomeResolved    = "resolved"
	OutcomeTransferred = "transferred"
	OutcomeAbandoned   = "abandoned"
)

// CallEvent is the wire format for telephony events hitting the gateway
type CallEvent struct {
	EventID   string                 `json:"event_id"`
	CallID    string                 `json:"call_id"`
	ClientID  string                 `json:"client_id"`
	Sector    string                 `json:"sector"`
	Direction string                 `json:"direction"`
	EventType string                 `json:"event_type"`
	Intent    string                 `json:"intent,omitempty"`
	Utterance string                 `json:"utterance,omitempty"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
	Caller    string                 `json:"caller,omitempty"`
	Outcome   string                 `json:"outcome,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// EventAck is the response body for accepted call events
type EventAck struct {
	EventID   string       `json:"event_id"`
	CallID    string       `json:"call_id"`
	Status    string       `json:"status"` // "accepted", "handled", "failed"
	RequestID string       `json:"request_id"`
	Result    *AgentResult `json:"result,omitempty"`
}

// Call is a persisted call row
type Call struct {
	ID              string     `json:"id"`
	ClientID        string     `json:"client_id"`
	Sector          string     `json:"sector"`
	Direction       string     `json:"direction"`
	Caller          string     `json:"caller,omitempty"`
	Status          string     `json:"status"` // "active", "completed"
	Outcome         string     `json:"outcome,omitempty"`
	DurationSeconds int        `json:"duration_seconds"`
	StartedAt       time.Time  `json:"started_at"`
	EndedAt         *time.Time `json:"ended_at,omitempty"`
}

// CallAction is a persisted record of one agent dispatch within a call
type CallAction struct {
	ID         string                 `json:"id"`
	CallID     string                 `json:"call_id"`
	ClientID   string                 `json:"client_id"`
	Sector     string                 `json:"sector"`
	Intent     string                 `json:"intent"`
	Status     string                 `json:"status"` // "completed", "failed"
	Response   string                 `json:"response,omitempty"`
	ErrorMsg   string                 `json:"error,omitempty"`
	Payload    map[string]interface{} `json:"payload,omitempty"`
	DurationMs int64                  `json:"duration_ms"`
	CreatedAt  time.Time              `json:"created_at"`
}

// CallSummary is an AI-generated post-call summary row
type CallSummary struct {
	ID        string    `json:"id"`
	CallID    string    `json:"call_id"`
	ClientID  string    `json:"client_id"`
	Summary   string    `json:"summary"`
	Model     string    `json:"model"`
	CreatedAt time.Time `json:"created_at"`
}

// AgentRequest is what the orchestrator hands to a sector agent
type AgentRequest struct {
	CallID    string
	ClientID  string
	Sector    string
	Intent    string
	Utterance string
	Fields    map[string]interface{}
	Caller    string
}

// AgentResult is the agent's completion payload. Failed dispatches are
// reported as an error from Handle, not through this struct.
type AgentResult struct {
	Intent     string                 `json:"intent"`
	Response   string                 `json:"response"`
	Payload    map[string]interface{} `json:"payload,omitempty"`
	Source     string                 `json:"source,omitempty"`
	Cached     bool                   `json:"cached,omitempty"`
	DurationMs int64                  `json:"duration_ms"`
}

// MissingFieldError is returned by agents when a required field is
// absent from the request. The caller turns it into an error event
// naming the field so the voice layer can re-prompt.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return "missing required field: " + e.Field
}

// ValidationError carries field-level validation failures for API
// request bodies
type ValidationError struct {
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NewValidationError creates a ValidationError with field details
func NewValidationError(message string, fields map[string]string) *ValidationError {
	return &ValidationError{Message: message, Fields: fields}
}

// PaginationMeta describes a paginated list response
type PaginationMeta struct {
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}
