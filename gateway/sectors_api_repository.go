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
	"encoding/json"
	"fmt"
)

// SectorConfigRepository persists per-tenant sector configuration
type SectorConfigRepository struct {
	db *sql.DB
}

// NewSectorConfigRepository creates the repository
func NewSectorConfigRepository(db *sql.DB) *SectorConfigRepository {
	return &SectorConfigRepository{db: db}
}

// GetConfig fetches a tenant's config for one sector. Returns nil, nil
// when the tenant never configured the sector.
func (r *SectorConfigRepository) GetConfig(ctx context.Context, clientID, sector string) (*TenantSectorConfig, error) {
	var (
		config      TenantSectorConfig
		settingsRaw []byte
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT client_id, sector, enabled, COALESCE(greeting, ''), COALESCE(settings, '{}'),
		       COALESCE(source_type, ''), COALESCE(source_url, ''), updated_at
		FROM sector_configs
		WHERE client_id = $1 AND sector = $2
	`, clientID, sector).Scan(
		&config.ClientID, &config.Sector, &config.Enabled, &config.Greeting,
		&settingsRaw, &config.SourceType, &config.SourceURL, &config.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sector config: %w", err)
	}

	if len(settingsRaw) > 0 {
		if err := json.Unmarshal(settingsRaw, &config.Settings); err != nil {
			return nil, fmt.Errorf("failed to parse sector settings: %w", err)
		}
	}
	return &config, nil
}

// UpsertConfig inserts or replaces a tenant's sector config
func (r *SectorConfigRepository) UpsertConfig(ctx context.Context, config *TenantSectorConfig) error {
	settings := config.Settings
	if settings == nil {
		settings = map[string]interface{}{}
	}
	settingsRaw, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to serialize sector settings: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO sector_configs (client_id, sector, enabled, greeting, settings, source_type, source_url, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (client_id, sector) DO UPDATE SET
			enabled = EXCLUDED.enabled,
			greeting = EXCLUDED.greeting,
			settings = EXCLUDED.settings,
			source_type = EXCLUDED.source_type,
			source_url = EXCLUDED.source_url,
			updated_at = EXCLUDED.updated_at
	`, config.ClientID, config.Sector, config.Enabled, config.Greeting,
		settingsRaw, config.SourceType, config.SourceURL, config.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert sector config: %w", err)
	}
	return nil
}

// EnabledSectors returns the set of sectors the tenant has enabled
func (r *SectorConfigRepository) EnabledSectors(ctx context.Context, clientID string) (map[string]bool, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT sector FROM sector_configs WHERE client_id = $1 AND enabled = true", clientID)
	if err != nil {
		return nil, fmt.Errorf("failed to list enabled sectors: %w", err)
	}
	defer rows.Close()

	enabled := make(map[string]bool)
	for rows.Next() {
		var sector string
		if err := rows.Scan(&sector); err != nil {
			return nil, fmt.Errorf("failed to scan sector: %w", err)
		}
		enabled[sector] = true
	}
	return enabled, rows.Err()
}
