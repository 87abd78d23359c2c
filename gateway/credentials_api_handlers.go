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
	"strconv"

	"github.com/gorilla/mux"
)

// CredentialHandlers serves the credentials CRUD API. Secret values are
// never returned in clear text.
type CredentialHandlers struct {
	service CredentialService
}

// NewCredentialHandlers creates the handlers
func NewCredentialHandlers(service CredentialService) *CredentialHandlers {
	return &CredentialHandlers{service: service}
}

// Register mounts the credential routes on the router
func (h *CredentialHandlers) Register(router *mux.Router, admin func(http.HandlerFunc) http.HandlerFunc) {
	router.HandleFunc("/api/v1/credentials", h.List).Methods("GET")
	router.HandleFunc("/api/v1/credentials", admin(h.Create)).Methods("POST")
	router.HandleFunc("/api/v1/credentials/{id}", h.Get).Methods("GET")
	router.HandleFunc("/api/v1/credentials/{id}", admin(h.Update)).Methods("PUT")
	router.HandleFunc("/api/v1/credentials/{id}", admin(h.Delete)).Methods("DELETE")
	router.HandleFunc("/api/v1/credentials/{id}/test", admin(h.Test)).Methods("POST")
}

// List handles GET /api/v1/credentials
func (h *CredentialHandlers) List(w http.ResponseWriter, r *http.Request) {
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

	creds, total, err := h.service.ListCredentials(r.Context(), clientID, limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to list credentials")
		return
	}
	if creds == nil {
		creds = []*Credential{}
	}

	writeJSON(w, http.StatusOK, CredentialListResponse{
		Credentials: creds,
		Meta:        PaginationMeta{Total: total, Limit: limit, Offset: offset},
	})
}

// Create handles POST /api/v1/credentials
func (h *CredentialHandlers) Create(w http.ResponseWriter, r *http.Request) {
	clientID := getTenantID(r)
	if clientID == "" {
		writeError(w, http.StatusBadRequest, "MISSING_TENANT", "client ID is required")
		return
	}

	var req CreateCredentialRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "invalid JSON body")
		return
	}

	cred, err := h.service.CreateCredential(r.Context(), clientID, &req)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, cred)
}

// Get handles GET /api/v1/credentials/{id}
func (h *CredentialHandlers) Get(w http.ResponseWriter, r *http.Request) {
	clientID := getTenantID(r)
	credentialID := mux.Vars(r)["id"]

	cred, err := h.service.GetCredential(r.Context(), clientID, credentialID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cred)
}

// Update handles PUT /api/v1/credentials/{id}
func (h *CredentialHandlers) Update(w http.ResponseWriter, r *http.Request) {
	clientID := getTenantID(r)
	credentialID := mux.Vars(r)["id"]

	var req UpdateCredentialRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "invalid JSON body")
		return
	}

	cred, err := h.service.UpdateCredential(r.Context(), clientID, credentialID, &req)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cred)
}

// Delete handles DELETE /api/v1/credentials/{id}
func (h *CredentialHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	clientID := getTenantID(r)
	credentialID := mux.Vars(r)["id"]

	if err := h.service.DeleteCredential(r.Context(), clientID, credentialID); err != nil {
		respondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Test handles POST /api/v1/credentials/{id}/test
func (h *CredentialHandlers) Test(w http.ResponseWriter, r *http.Request) {
	clientID := getTenantID(r)
	credentialID := mux.Vars(r)["id"]

	result, err := h.service.TestCredential(r.Context(), clientID, credentialID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
