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

// TeamRepository persists teams and their members
type TeamRepository struct {
	db *sql.DB
}

// NewTeamRepository creates a team repository
func NewTeamRepository(db *sql.DB) *TeamRepository {
	return &TeamRepository{db: db}
}

// CreateTeam inserts a team row
func (r *TeamRepository) CreateTeam(ctx context.Context, team *Team) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO teams (id, client_id, name, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, team.ID, team.ClientID, team.Name, team.Description, team.CreatedAt, team.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create team: %w", err)
	}
	return nil
}

// GetTeam fetches a team with its members. Returns nil, nil when not found.
func (r *TeamRepository) GetTeam(ctx context.Context, clientID, teamID string) (*Team, error) {
	var team Team
	err := r.db.QueryRowContext(ctx, `
		SELECT id, client_id, name, COALESCE(description, ''), created_at, updated_at
		FROM teams
		WHERE client_id = $1 AND id = $2
	`, clientID, teamID).Scan(
		&team.ID, &team.ClientID, &team.Name, &team.Description,
		&team.CreatedAt, &team.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get team: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, team_id, email, COALESCE(name, ''), role, added_at
		FROM team_members
		WHERE team_id = $1
		ORDER BY added_at ASC
	`, teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to list team members: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var member TeamMember
		if err := rows.Scan(&member.ID, &member.TeamID, &member.Email,
			&member.Name, &member.Role, &member.AddedAt); err != nil {
			return nil, fmt.Errorf("failed to scan team member: %w", err)
		}
		team.Members = append(team.Members, member)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &team, nil
}

// ListTeams returns a tenant's teams with pagination
func (r *TeamRepository) ListTeams(ctx context.Context, clientID string, limit, offset int) ([]*Team, int, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}

	var total int
	if err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM teams WHERE client_id = $1", clientID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count teams: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, client_id, name, COALESCE(description, ''), created_at, updated_at
		FROM teams
		WHERE client_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, clientID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list teams: %w", err)
	}
	defer rows.Close()

	var teams []*Team
	for rows.Next() {
		var team Team
		if err := rows.Scan(&team.ID, &team.ClientID, &team.Name,
			&team.Description, &team.CreatedAt, &team.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("failed to scan team: %w", err)
		}
		teams = append(teams, &team)
	}
	return teams, total, rows.Err()
}

// UpdateTeam applies name/description changes. Returns false when the
// team doesn't exist.
func (r *TeamRepository) UpdateTeam(ctx context.Context, team *Team) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE teams
		SET name = $1, description = $2, updated_at = $3
		WHERE client_id = $4 AND id = $5
	`, team.Name, team.Description, team.UpdatedAt, team.ClientID, team.ID)
	if err != nil {
		return false, fmt.Errorf("failed to update team: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check update result: %w", err)
	}
	return rows > 0, nil
}

// DeleteTeam removes a team and its members. Returns false when the
// team doesn't exist.
func (r *TeamRepository) DeleteTeam(ctx context.Context, clientID, teamID string) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin delete: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM team_members WHERE team_id = $1", teamID); err != nil {
		return false, fmt.Errorf("failed to delete team members: %w", err)
	}

	result, err := tx.ExecContext(ctx,
		"DELETE FROM teams WHERE client_id = $1 AND id = $2", clientID, teamID)
	if err != nil {
		return false, fmt.Errorf("failed to delete team: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check delete result: %w", err)
	}
	if rows == 0 {
		return false, nil
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit delete: %w", err)
	}
	return true, nil
}

// AddMember inserts a team member row
func (r *TeamRepository) AddMember(ctx context.Context, member *TeamMember) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO team_members (id, team_id, email, name, role, added_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, member.ID, member.TeamID, member.Email, member.Name, member.Role, member.AddedAt)
	if err != nil {
		return fmt.Errorf("failed to add team member: %w", err)
	}
	return nil
}

// RemoveMember deletes a member by email. Returns false when no such
// member exists.
func (r *TeamRepository) RemoveMember(ctx context.Context, teamID, email string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM team_members WHERE team_id = $1 AND email = $2", teamID, email)
	if err != nil {
		return false, fmt.Errorf("failed to remove team member: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check remove result: %w", err)
	}
	return rows > 0, nil
}
