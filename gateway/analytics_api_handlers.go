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
	"net/http"
	"time"

	"github.com/gorilla/mux"
)

const defaultAnalyticsWindow = 30 * 24 * time.Hour

// IntentAnalyticsResponse wraps the per-intent stats
type IntentAnalyticsResponse struct {
	Intents []*IntentAnalytics `json:"intents"`
	From    time.Time          `json:"from"`
	To      time.Time          `json:"to"`
}

// AnalyticsHandlers serves the tenant analytics API
type AnalyticsHandlers struct {
	calls *CallRepository
}

// NewAnalyticsHandlers creates the handlers
func NewAnalyticsHandlers(calls *CallRepository) *AnalyticsHandlers {
	return &AnalyticsHandlers{calls: calls}
}

// Register mounts the analytics routes on the router
func (h *AnalyticsHandlers) Register(router *mux.Router) {
	router.HandleFunc("/api/v1/analytics/calls", h.CallStats).Methods("GET")
	router.HandleFunc("/api/v1/analytics/intents", h.IntentStats).Methods("GET")
}

// CallStats handles GET /api/v1/analytics/calls
func (h *AnalyticsHandlers) CallStats(w http.ResponseWriter, r *http.Request) {
	clientID := getTenantID(r)
	if clientID == "" {
		writeError(w, http.StatusBadRequest, "MISSING_TENANT", "client ID is required")
		return
	}

	from, to, err := parseDateRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	stats, err := h.calls.CallStats(r.Context(), clientID, from, to)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to compute call analytics")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// IntentStats handles GET /api/v1/analytics/intents
func (h *AnalyticsHandlers) IntentStats(w http.ResponseWriter, r *http.Request) {
	clientID := getTenantID(r)
	if clientID == "" {
		writeError(w, http.StatusBadRequest, "MISSING_TENANT", "client ID is required")
		return
	}

	from, to, err := parseDateRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	intents, err := h.calls.IntentStats(r.Context(), clientID, from, to)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to compute intent analytics")
		return
	}
	if intents == nil {
		intents = []*IntentAnalytics{}
	}
	writeJSON(w, http.StatusOK, IntentAnalyticsResponse{Intents: intents, From: from, To: to})
}

// parseDateRange reads from/to query params, accepting RFC 3339
// timestamps or plain dates. Defaults to the trailing 30 days.
func parseDateRange(r *http.Request) (time.Time, time.Time, error) {
	now := time.Now().UTC()
	from := now.Add(-defaultAnalyticsWindow)
	to := now

	if raw := r.URL.Query().Get("from"); raw != "" {
		parsed, err := parseTimestamp(raw)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		from = parsed
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		parsed, err := parseTimestamp(raw)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		to = parsed
	}
	if to.Before(from) {
		return time.Time{}, time.Time{}, errTimeRange
	}
	return from, to, nil
}

var errTimeRange = &ValidationError{Message: "'to' must not be before 'from'"}

func parseTimestamp(raw string) (time.Time, error) {
	if parsed, err := time.Parse(time.RFC3339, raw); err == nil {
		return parsed, nil
	}
	parsed, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, &ValidationError{Message: "timestamps must be RFC 3339 or YYYY-MM-DD"}
	}
	return parsed, nil
}
