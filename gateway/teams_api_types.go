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

// Team is a group of operators within a tenant
type Team struct {
	ID          string       `json:"id"`
	ClientID    string       `json:"client_id"`
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	Members     []TeamMember `json:"members,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// TeamMember is one operator in a team
type TeamMember struct {
	ID      string    `json:"id"`
	TeamID  string    `json:"team_id"`
	Email   string    `json:"email"`
	Name    string    `json:"name"`
	Role    string    `json:"role"` // "lead", "operator", "viewer"
	AddedAt time.Time `json:"added_at"`
}

// Valid member roles
var validMemberRoles = map[string]bool{
	"lead":     true,
	"operator": true,
	"viewer":   true,
}

// CreateTeamRequest is the POST /api/v1/teams body
type CreateTeamRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// UpdateTeamRequest is the PUT /api/v1/teams/{id} body. Nil fields are
// left unchanged.
type UpdateTeamRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

// AddMemberRequest is the POST /api/v1/teams/{id}/members body
type AddMemberRequest struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

// TeamListResponse wraps a paginated team list
type TeamListResponse struct {
	Teams []*Team        `json:"teams"`
	Meta  PaginationMeta `json:"meta"`
}
