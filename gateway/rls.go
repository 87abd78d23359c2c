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
	"log"
)

// RLSManager sets and clears the per-session tenant variable that
// backs the row-level security policies. Repositories still scope every
// query by client_id; RLS is the second fence when the database has the
// policies installed.
type RLSManager struct {
	db      *sql.DB
	enabled bool
}

// NewRLSManager probes for the set_client_id function and disables
// itself when the database doesn't have the RLS helpers installed.
func NewRLSManager(db *sql.DB) *RLSManager {
	m := &RLSManager{db: db}

	var exists bool
	err := db.QueryRow(`
		SELECT EXISTS (
			SELECT 1 FROM pg_proc WHERE proname = 'set_client_id'
		)
	`).Scan(&exists)
	if err != nil {
		log.Printf("[RLS] Could not probe for RLS helpers, disabling: %v", err)
		return m
	}

	m.enabled = exists
	if exists {
		log.Printf("[RLS] Row-level security helpers detected, tenant session variable enabled")
	} else {
		log.Printf("[RLS] RLS helpers not installed, relying on query-level tenant scoping only")
	}
	return m
}

// Enabled reports whether the database has the RLS helpers installed
func (m *RLSManager) Enabled() bool {
	return m.enabled
}

// WithTenant runs fn on a single connection with the tenant session
// variable set, and always resets it before returning the connection
// to the pool.
func (m *RLSManager) WithTenant(ctx context.Context, clientID string, fn func(conn *sql.Conn) error) error {
	if clientID == "" {
		return fmt.Errorf("client ID is required for tenant-scoped database work")
	}

	conn, err := m.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer conn.Close()

	if m.enabled {
		if _, err := conn.ExecContext(ctx, "SELECT set_client_id($1)", clientID); err != nil {
			return fmt.Errorf("failed to set tenant session variable: %w", err)
		}
		defer func() {
			if _, err := conn.ExecContext(context.Background(), "SELECT reset_client_id()"); err != nil {
				log.Printf("[RLS] Failed to reset tenant session variable: %v", err)
			}
		}()
	}

	return fn(conn)
}

// HealthCheck verifies the session variable round-trips when RLS is on
func (m *RLSManager) HealthCheck(ctx context.Context) error {
	if !m.enabled {
		return nil
	}

	return m.WithTenant(ctx, "health-check", func(conn *sql.Conn) error {
		var current string
		err := conn.QueryRowContext(ctx,
			"SELECT current_setting('app.current_client_id', true)").Scan(&current)
		if err != nil {
			return fmt.Errorf("failed to read tenant session variable: %w", err)
		}
		if current != "health-check" {
			return fmt.Errorf("tenant session variable mismatch: got %q", current)
		}
		return nil
	})
}
