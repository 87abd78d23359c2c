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
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Client is a tenant organization
type Client struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Plan      string    `json:"plan"`   // "standard" or "enterprise"
	Status    string    `json:"status"` // "active", "suspended"
	CreatedAt time.Time `json:"created_at"`
}

// ClientRepository reads tenant records
type ClientRepository struct {
	db *sql.DB
}

// NewClientRepository creates a client repository
func NewClientRepository(db *sql.DB) *ClientRepository {
	return &ClientRepository{db: db}
}

// GetClient fetches one tenant. Returns nil, nil when not found.
func (r *ClientRepository) GetClient(ctx context.Context, clientID string) (*Client, error) {
	var client Client
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, COALESCE(plan, 'standard'), status, created_at
		FROM clients
		WHERE id = $1
	`, clientID).Scan(&client.ID, &client.Name, &client.Plan, &client.Status, &client.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get client: %w", err)
	}
	return &client, nil
}

// Plan returns the tenant's billing plan, defaulting to standard for
// unknown tenants so metering never blocks call completion.
func (r *ClientRepository) Plan(ctx context.Context, clientID string) string {
	client, err := r.GetClient(ctx, clientID)
	if err != nil || client == nil {
		return "standard"
	}
	return client.Plan
}
