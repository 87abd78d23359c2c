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

	"github.com/gorilla/mux"
)

// SectorHandlers serves the sector catalog and configuration API
type SectorHandlers struct {
	service SectorService
}

// NewSectorHandlers creates the handlers
func NewSectorHandlers(service SectorService) *SectorHandlers {
	return &SectorHandlers{service: service}
}

// Register mounts the sector routes on the router
func (h *SectorHandlers) Register(router *mux.Router, admin func(http.HandlerFunc) http.HandlerFunc) {
	router.HandleFunc("/api/v1/sectors", h.Catalog).Methods("GET")
	router.HandleFunc("/api/v1/sectors/{sector}/config", h.GetConfig).Methods("GET")
	router.HandleFunc("/api/v1/sectors/{sector}/config", admin(h.UpdateConfig)).Methods("PUT")
}

// Catalog handles GET /api/v1/sectors
func (h *SectorHandlers) Catalog(w http.ResponseWriter, r *http.Request) {
	clientID := getTenantID(r)
	if clientID == "" {
		writeError(w, http.StatusBadRequest, "MISSING_TENANT", "client ID is required")
		return
	}

	sectors, err := h.service.Catalog(r.Context(), clientID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to load sector catalog")
		return
	}
	if sectors == nil {
		sectors = []*SectorInfo{}
	}
	writeJSON(w, http.StatusOK, SectorCatalogResponse{Sectors: sectors})
}

// GetConfig handles GET /api/v1/sectors/{sector}/config
func (h *SectorHandlers) GetConfig(w http.ResponseWriter, r *http.Request) {
	clientID := getTenantID(r)
	if clientID == "" {
		writeError(w, http.StatusBadRequest, "MISSING_TENANT", "client ID is required")
		return
	}
	sector := mux.Vars(r)["sector"]

	config, err := h.service.GetConfig(r.Context(), clientID, sector)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, config)
}

// UpdateConfig handles PUT /api/v1/sectors/{sector}/config
func (h *SectorHandlers) UpdateConfig(w http.ResponseWriter, r *http.Request) {
	clientID := getTenantID(r)
	if clientID == "" {
		writeError(w, http.StatusBadRequest, "MISSING_TENANT", "client ID is required")
		return
	}
	sector := mux.Vars(r)["sector"]

	var req UpdateSectorConfigRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "invalid JSON body")
		return
	}

	config, err := h.service.UpdateConfig(r.Context(), clientID, sector, &req)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, config)
}
