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
)

// CredentialRepository persists encrypted credential sets
type CredentialRepository struct {
	db *sql.DB
}

// NewCredentialRepository creates a credential repository
func NewCredentialRepository(db *sql.DB) *CredentialRepository {
	return &CredentialRepository{db: db}
}

// Create inserts a credential row
func (r *CredentialRepository) Create(ctx context.Context, cred *storedCredential) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO credentials (id, client_id, sector, name, encrypted_fields, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, cred.ID, cred.ClientID, cred.Sector, cred.Name, cred.EncryptedFields,
		cred.CreatedAt, cred.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create credential: %w", err)
	}
	return nil
}

// Get fetches one credential. Returns nil, nil when not found.
func (r *CredentialRepository) Get(ctx context.Context, clientID, credentialID string) (*storedCredential, error) {
	var cred storedCredential
	err := r.db.QueryRowContext(ctx, `
		SELECT id, client_id, sector, name, encrypted_fields, created_at, updated_at
		FROM credentials
		WHERE client_id = $1 AND id = $2
	`, clientID, credentialID).Scan(
		&cred.ID, &cred.ClientID, &cred.Sector, &cred.Name,
		&cred.EncryptedFields, &cred.CreatedAt, &cred.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get credential: %w", err)
	}
	return &cred, nil
}

// GetBySector fetches the tenant's credential for one sector. Returns
// nil, nil when the sector has no credential yet.
func (r *CredentialRepository) GetBySector(ctx context.Context, clientID, sector string) (*storedCredential, error) {
	var cred storedCredential
	err := r.db.QueryRowContext(ctx, `
		SELECT id, client_id, sector, name, encrypted_fields, created_at, updated_at
		FROM credentials
		WHERE client_id = $1 AND sector = $2
	`, clientID, sector).Scan(
		&cred.ID, &cred.ClientID, &cred.Sector, &cred.Name,
		&cred.EncryptedFields, &cred.CreatedAt, &cred.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sector credential: %w", err)
	}
	return &cred, nil
}

// List returns a tenant's credentials with pagination
func (r *CredentialRepository) List(ctx context.Context, clientID string, limit, offset int) ([]*storedCredential, int, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}

	var total int
	if err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM credentials WHERE client_id = $1", clientID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count credentials: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, client_id, sector, name, encrypted_fields, created_at, updated_at
		FROM credentials
		WHERE client_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, clientID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list credentials: %w", err)
	}
	defer rows.Close()

	var creds []*storedCredential
	for rows.Next() {
		var cred storedCredential
		if err := rows.Scan(&cred.ID, &cred.ClientID, &cred.Sector, &cred.Name,
			&cred.EncryptedFields, &cred.CreatedAt, &cred.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("failed to scan credential: %w", err)
		}
		creds = append(creds, &cred)
	}
	return creds, total, rows.Err()
}

// Update replaces name and encrypted fields. Returns false when the
// credential doesn't exist.
func (r *CredentialRepository) Update(ctx context.Context, cred *storedCredential) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE credentials
		SET name = $1, encrypted_fields = $2, updated_at = $3
		WHERE client_id = $4 AND id = $5
	`, cred.Name, cred.EncryptedFields, cred.UpdatedAt, cred.ClientID, cred.ID)
	if err != nil {
		return false, fmt.Errorf("failed to update credential: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check update result: %w", err)
	}
	return rows > 0, nil
}

// Delete removes a credential. Returns false when it doesn't exist.
func (r *CredentialRepository) Delete(ctx context.Context, clientID, credentialID string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM credentials WHERE client_id = $1 AND id = $2", clientID, credentialID)
	if err != nil {
		return false, fmt.Errorf("failed to delete credential: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check delete result: %w", err)
	}
	return rows > 0, nil
}
