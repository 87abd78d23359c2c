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
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
)

// CallListResponse wraps a page of calls
type CallListResponse struct {
	Calls []*Call        `json:"calls"`
	Meta  PaginationMeta `json:"meta"`
}

// ActionListResponse wraps a call's agent actions
type ActionListResponse struct {
	Actions []*CallAction `json:"actions"`
}

// AuditListResponse wraps audit log entries
type AuditListResponse struct {
	Entries []AuditEntry `json:"entries"`
}

// CallHandlers serves the call event ingest endpoint and the call
// read APIs.
type CallHandlers struct {
	processor *CallProcessor
	calls     *CallRepository
	audit     *AuditLogger
}

// NewCallHandlers creates the handlers. audit may be nil.
func NewCallHandlers(processor *CallProcessor, calls *CallRepository, audit *AuditLogger) *CallHandlers {
	return &CallHandlers{processor: processor, calls: calls, audit: audit}
}

// Register mounts the call routes on the router
func (h *CallHandlers) Register(router *mux.Router) {
	router.HandleFunc("/api/v1/calls/events", h.Ingest).Methods("POST")
	router.HandleFunc("/api/v1/calls", h.List).Methods("GET")
	router.HandleFunc("/api/v1/calls/{id}", h.Get).Methods("GET")
	router.HandleFunc("/api/v1/calls/{id}/actions", h.ListActions).Methods("GET")
	router.HandleFunc("/api/v1/calls/{id}/summary", h.GetSummary).Methods("GET")
	router.HandleFunc("/api/v1/calls/{id}/audit", h.SearchAudit).Methods("GET")
}

// Ingest handles POST /api/v1/calls/events
func (h *CallHandlers) Ingest(w http.ResponseWriter, r *http.Request) {
	clientID := getTenantID(r)
	if clientID == "" {
		writeError(w, http.StatusBadRequest, "MISSING_TENANT", "client ID is required")
		return
	}

	var event CallEvent
	if err := decodeJSONBody(w, r, &event); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "invalid JSON body")
		return
	}

	// The authenticated tenant owns the event regardless of the payload
	if event.ClientID == "" {
		event.ClientID = clientID
	} else if event.ClientID != clientID {
		writeError(w, http.StatusForbidden, "FORBIDDEN", "event client_id does not match tenant")
		return
	}

	ack, err := h.processor.ProcessEvent(r.Context(), &event, getRequestID(r))
	if err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			writeValidationError(w, verr)
			return
		}
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to process event")
		return
	}
	writeJSON(w, http.StatusOK, ack)
}

// List handles GET /api/v1/calls
func (h *CallHandlers) List(w http.ResponseWriter, r *http.Request) {
	clientID := getTenantID(r)
	if clientID == "" {
		writeError(w, http.StatusBadRequest, "MISSING_TENANT", "client ID is required")
		return
	}

	query := r.URL.Query()
	limit, _ := strconv.Atoi(query.Get("limit"))
	offset, _ := strconv.Atoi(query.Get("offset"))
	if limit <= 0 {
		limit = 50
	}

	calls, total, err := h.calls.ListCalls(r.Context(), clientID,
		query.Get("sector"), query.Get("status"), limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to list calls")
		return
	}
	if calls == nil {
		calls = []*Call{}
	}

	writeJSON(w, http.StatusOK, CallListResponse{
		Calls: calls,
		Meta:  PaginationMeta{Total: total, Limit: limit, Offset: offset},
	})
}

// Get handles GET /api/v1/calls/{id}
func (h *CallHandlers) Get(w http.ResponseWriter, r *http.Request) {
	clientID := getTenantID(r)
	callID := mux.Vars(r)["id"]

	call, err := h.calls.GetCall(r.Context(), clientID, callID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to get call")
		return
	}
	if call == nil {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "call not found")
		return
	}
	writeJSON(w, http.StatusOK, call)
}

// ListActions handles GET /api/v1/calls/{id}/actions
func (h *CallHandlers) ListActions(w http.ResponseWriter, r *http.Request) {
	clientID := getTenantID(r)
	callID := mux.Vars(r)["id"]

	actions, err := h.calls.ListActions(r.Context(), clientID, callID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to list actions")
		return
	}
	if actions == nil {
		actions = []*CallAction{}
	}
	writeJSON(w, http.StatusOK, ActionListResponse{Actions: actions})
}

// GetSummary handles GET /api/v1/calls/{id}/summary
func (h *CallHandlers) GetSummary(w http.ResponseWriter, r *http.Request) {
	clientID := getTenantID(r)
	callID := mux.Vars(r)["id"]

	summary, err := h.calls.GetSummary(r.Context(), clientID, callID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to get summary")
		return
	}
	if summary == nil {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "summary not found")
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// SearchAudit handles GET /api/v1/calls/{id}/audit
func (h *CallHandlers) SearchAudit(w http.ResponseWriter, r *http.Request) {
	clientID := getTenantID(r)
	callID := mux.Vars(r)["id"]

	if h.audit == nil {
		writeJSON(w, http.StatusOK, AuditListResponse{Entries: []AuditEntry{}})
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := h.audit.Search(r.Context(), clientID, callID,
		r.URL.Query().Get("event_type"), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to search audit log")
		return
	}
	if entries == nil {
		entries = []AuditEntry{}
	}
	writeJSON(w, http.StatusOK, AuditListResponse{Entries: entries})
}
