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

import "time"

// validSourceTypes are the connector types a sector config may bind
var validSourceTypes = map[string]bool{
	"postgres": true,
	"mysql":    true,
	"redis":    true,
	"httpapi":  true,
	"memory":   true,
}

// SectorInfo is one catalog entry: the loaded sector definition plus
// the tenant's enablement state.
type SectorInfo struct {
	Name             string   `json:"name"`
	Description      string   `json:"description"`
	Intents          []string `json:"intents"`
	CredentialFields []string `json:"credential_fields"`
	Enabled          bool     `json:"enabled"`
}

// SectorCatalogResponse wraps the sector catalog
type SectorCatalogResponse struct {
	Sectors []*SectorInfo `json:"sectors"`
}

// TenantSectorConfig is a tenant's configuration for one sector
type TenantSectorConfig struct {
	ClientID   string                 `json:"client_id"`
	Sector     string                 `json:"sector"`
	Enabled    bool                   `json:"enabled"`
	Greeting   string                 `json:"greeting,omitempty"`
	Settings   map[string]interface{} `json:"settings,omitempty"`
	SourceType string                 `json:"source_type,omitempty"`
	SourceURL  string                 `json:"source_url,omitempty"`
	UpdatedAt  time.Time              `json:"updated_at"`
}

// UpdateSectorConfigRequest is the PUT /api/v1/sectors/{sector}/config
// body. Nil pointers leave the stored value unchanged.
type UpdateSectorConfigRequest struct {
	Enabled    *bool                  `json:"enabled"`
	Greeting   *string                `json:"greeting"`
	Settings   map[string]interface{} `json:"settings"`
	SourceType *string                `json:"source_type"`
	SourceURL  *string                `json:"source_url"`
}
