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

// Credential is a set of third-party API secrets for one tenant/sector.
// Field values in API responses are always masked.
type Credential struct {
	ID        string            `json:"id"`
	ClientID  string            `json:"client_id"`
	Sector    string            `json:"sector"`
	Name      string            `json:"name"`
	Fields    map[string]string `json:"fields"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// storedCredential is the database shape: field values encrypted as one
// JSON document.
type storedCredential struct {
	ID              string
	ClientID        string
	Sector          string
	Name            string
	EncryptedFields string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// CreateCredentialRequest is the POST /api/v1/credentials body
type CreateCredentialRequest struct {
	Sector string            `json:"sector"`
	Name   string            `json:"name"`
	Fields map[string]string `json:"fields"`
}

// UpdateCredentialRequest is the PUT /api/v1/credentials/{id} body.
// Provided fields replace stored ones; omitted fields are kept.
type UpdateCredentialRequest struct {
	Name   *string           `json:"name"`
	Fields map[string]string `json:"fields"`
}

// CredentialTestResult is the POST /api/v1/credentials/{id}/test
// response: whether the stored fields satisfy the sector's manifest.
type CredentialTestResult struct {
	Valid         bool     `json:"valid"`
	Sector        string   `json:"sector"`
	MissingFields []string `json:"missing_fields,omitempty"`
	EmptyFields   []string `json:"empty_fields,omitempty"`
}

// CredentialListResponse wraps a credential list
type CredentialListResponse struct {
	Credentials []*Credential  `json:"credentials"`
	Meta        PaginationMeta `json:"meta"`
}
