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

// TeamHandlers serves the teams CRUD API
type TeamHandlers struct {
	service TeamService
}

// NewTeamHandlers creates the handlers
func NewTeamHandlers(service TeamService) *TeamHandlers {
	return &TeamHandlers{service: service}
}

// Register mounts the team routes on the router
func (h *TeamHandlers) Register(router *mux.Router, admin func(http.HandlerFunc) http.HandlerFunc) {
	router.HandleFunc("/api/v1/teams", h.List).Methods("GET")
	router.HandleFunc("/api/v1/teams", admin(h.Create)).Methods("POST")
	router.HandleFunc("/api/v1/teams/{id}", h.Get).Methods("GET")
	router.HandleFunc("/api/v1/teams/{id}", admin(h.Update)).Methods("PUT")
	router.HandleFunc("/api/v1/teams/{id}", admin(h.Delete)).Methods("DELETE")
	router.HandleFunc("/api/v1/teams/{id}/members", admin(h.AddMember)).Methods("POST")
	router.HandleFunc("/api/v1/teams/{id}/members/{email}", admin(h.RemoveMember)).Methods("DELETE")
}

// List handles GET /api/v1/teams
func (h *TeamHandlers) List(w http.ResponseWriter, r *http.Request) {
	clientID := getTenantID(r)
	if clientID == "" {
		writeError(w, http.StatusBadRequest, "MISSING_TENANT", "client ID is required")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	if limit <= 0 {
		limit = 50
	}

	teams, total, err := h.service.ListTeams(r.Context(), clientID, limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to list teams")
		return
	}
	if teams == nil {
		teams = []*Team{}
	}

	writeJSON(w, http.StatusOK, TeamListResponse{
		Teams: teams,
		Meta:  PaginationMeta{Total: total, Limit: limit, Offset: offset},
	})
}

// Create handles POST /api/v1/teams
func (h *TeamHandlers) Create(w http.ResponseWriter, r *http.Request) {
	clientID := getTenantID(r)
	if clientID == "" {
		writeError(w, http.StatusBadRequest, "MISSING_TENANT", "client ID is required")
		return
	}

	var req CreateTeamRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "invalid JSON body")
		return
	}

	team, err := h.service.CreateTeam(r.Context(), clientID, &req)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, team)
}

// Get handles GET /api/v1/teams/{id}
func (h *TeamHandlers) Get(w http.ResponseWriter, r *http.Request) {
	clientID := getTenantID(r)
	teamID := mux.Vars(r)["id"]

	team, err := h.service.GetTeam(r.Context(), clientID, teamID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, team)
}

// Update handles PUT /api/v1/teams/{id}
func (h *TeamHandlers) Update(w http.ResponseWriter, r *http.Request) {
	clientID := getTenantID(r)
	teamID := mux.Vars(r)["id"]

	var req UpdateTeamRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "invalid JSON body")
		return
	}

	team, err := h.service.UpdateTeam(r.Context(), clientID, teamID, &req)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, team)
}

// Delete handles DELETE /api/v1/teams/{id}
func (h *TeamHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	clientID := getTenantID(r)
	teamID := mux.Vars(r)["id"]

	if err := h.service.DeleteTeam(r.Context(), clientID, teamID); err != nil {
		respondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddMember handles POST /api/v1/teams/{id}/members
func (h *TeamHandlers) AddMember(w http.ResponseWriter, r *http.Request) {
	clientID := getTenantID(r)
	teamID := mux.Vars(r)["id"]

	var req AddMemberRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "invalid JSON body")
		return
	}

	member, err := h.service.AddMember(r.Context(), clientID, teamID, &req)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, member)
}

// RemoveMember handles DELETE /api/v1/teams/{id}/members/{email}
func (h *TeamHandlers) RemoveMember(w http.ResponseWriter, r *http.Request) {
	clientID := getTenantID(r)
	vars := mux.Vars(r)

	if err := h.service.RemoveMember(r.Context(), clientID, vars["id"], vars["email"]); err != nil {
		respondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// respondServiceError maps service errors onto HTTP responses
func respondServiceError(w http.ResponseWriter, err error) {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		writeValidationError(w, verr)
	case errors.Is(err, ErrNotFound):
		writeError(w, http.StatusNotFound, "NOT_FOUND", "resource not found")
	default:
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal error")
	}
}
