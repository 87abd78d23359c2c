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
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TeamService is the business layer behind the teams API
type TeamService interface {
	CreateTeam(ctx context.Context, clientID string, req *CreateTeamRequest) (*Team, error)
	GetTeam(ctx context.Context, clientID, teamID string) (*Team, error)
	ListTeams(ctx context.Context, clientID string, limit, offset int) ([]*Team, int, error)
	UpdateTeam(ctx context.Context, clientID, teamID string, req *UpdateTeamRequest) (*Team, error)
	DeleteTeam(ctx context.Context, clientID, teamID string) error
	AddMember(ctx context.Context, clientID, teamID string, req *AddMemberRequest) (*TeamMember, error)
	RemoveMember(ctx context.Context, clientID, teamID, email string) error
}

// ErrNotFound marks lookups on rows that don't exist (or belong to
// another tenant, which is indistinguishable on purpose).
var ErrNotFound = fmt.Errorf("not found")

type teamService struct {
	repo *TeamRepository
}

// NewTeamService creates the team service
func NewTeamService(repo *TeamRepository) TeamService {
	return &teamService{repo: repo}
}

func (s *teamService) CreateTeam(ctx context.Context, clientID string, req *CreateTeamRequest) (*Team, error) {
	fields := make(map[string]string)
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		fields["name"] = "required"
	} else if len(req.Name) > 120 {
		fields["name"] = "must be at most 120 characters"
	}
	if len(fields) > 0 {
		return nil, NewValidationError("invalid team", fields)
	}

	now := time.Now()
	team := &Team{
		ID:          uuid.New().String(),
		ClientID:    clientID,
		Name:        req.Name,
		Description: strings.TrimSpace(req.Description),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.CreateTeam(ctx, team); err != nil {
		return nil, err
	}
	return team, nil
}

func (s *teamService) GetTeam(ctx context.Context, clientID, teamID string) (*Team, error) {
	team, err := s.repo.GetTeam(ctx, clientID, teamID)
	if err != nil {
		return nil, err
	}
	if team == nil {
		return nil, ErrNotFound
	}
	return team, nil
}

func (s *teamService) ListTeams(ctx context.Context, clientID string, limit, offset int) ([]*Team, int, error) {
	return s.repo.ListTeams(ctx, clientID, limit, offset)
}

func (s *teamService) UpdateTeam(ctx context.Context, clientID, teamID string, req *UpdateTeamRequest) (*Team, error) {
	team, err := s.repo.GetTeam(ctx, clientID, teamID)
	if err != nil {
		return nil, err
	}
	if team == nil {
		return nil, ErrNotFound
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, NewValidationError("invalid team", map[string]string{"name": "must not be empty"})
		}
		team.Name = name
	}
	if req.Description != nil {
		team.Description = strings.TrimSpace(*req.Description)
	}
	team.UpdatedAt = time.Now()

	updated, err := s.repo.UpdateTeam(ctx, team)
	if err != nil {
		return nil, err
	}
	if !updated {
		return nil, ErrNotFound
	}
	return team, nil
}

func (s *teamService) DeleteTeam(ctx context.Context, clientID, teamID string) error {
	deleted, err := s.repo.DeleteTeam(ctx, clientID, teamID)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrNotFound
	}
	return nil
}

func (s *teamService) AddMember(ctx context.Context, clientID, teamID string, req *AddMemberRequest) (*TeamMember, error) {
	fields := make(map[string]string)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		fields["email"] = "a valid email is required"
	}
	if req.Role == "" {
		req.Role = "operator"
	}
	if !validMemberRoles[req.Role] {
		fields["role"] = "must be lead, operator, or viewer"
	}
	if len(fields) > 0 {
		return nil, NewValidationError("invalid team member", fields)
	}

	// Membership goes through the team so tenancy is enforced
	team, err := s.repo.GetTeam(ctx, clientID, teamID)
	if err != nil {
		return nil, err
	}
	if team == nil {
		return nil, ErrNotFound
	}
	for _, existing := range team.Members {
		if existing.Email == req.Email {
			return nil, NewValidationError("invalid team member",
				map[string]string{"email": "already a member of this team"})
		}
	}

	member := &TeamMember{
		ID:      uuid.New().String(),
		TeamID:  teamID,
		Email:   req.Email,
		Name:    strings.TrimSpace(req.Name),
		Role:    req.Role,
		AddedAt: time.Now(),
	}
	if err := s.repo.AddMember(ctx, member); err != nil {
		return nil, err
	}
	return member, nil
}

func (s *teamService) RemoveMember(ctx context.Context, clientID, teamID, email string) error {
	team, err := s.repo.GetTeam(ctx, clientID, teamID)
	if err != nil {
		return err
	}
	if team == nil {
		return ErrNotFound
	}

	removed, err := s.repo.RemoveMember(ctx, teamID, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return err
	}
	if !removed {
		return ErrNotFound
	}
	return nil
}
