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
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SectorCatalog exposes the currently loaded sector configurations.
// AgentOrchestrator satisfies it.
type SectorCatalog interface {
	Sectors() map[string]*SectorConfigFile
}

// CredentialService manages encrypted credential sets for a tenant
type CredentialService interface {
	CreateCredential(ctx context.Context, clientID string, req *CreateCredentialRequest) (*Credential, error)
	GetCredential(ctx context.Context, clientID, credentialID string) (*Credential, error)
	ListCredentials(ctx context.Context, clientID string, limit, offset int) ([]*Credential, int, error)
	UpdateCredential(ctx context.Context, clientID, credentialID string, req *UpdateCredentialRequest) (*Credential, error)
	DeleteCredential(ctx context.Context, clientID, credentialID string) error
	TestCredential(ctx context.Context, clientID, credentialID string) (*CredentialTestResult, error)

	// DecryptedFields is for internal callers (source resolution), never
	// exposed through the API.
	DecryptedFields(ctx context.Context, clientID, sector string) (map[string]string, error)
}

type credentialService struct {
	repo    *CredentialRepository
	cipher  *CredentialCipher
	catalog SectorCatalog
}

// NewCredentialService creates the credential service
func NewCredentialService(repo *CredentialRepository, cipher *CredentialCipher, catalog SectorCatalog) CredentialService {
	return &credentialService{repo: repo, cipher: cipher, catalog: catalog}
}

func (s *credentialService) CreateCredential(ctx context.Context, clientID string, req *CreateCredentialRequest) (*Credential, error) {
	fields := map[string]string{}
	sector := strings.TrimSpace(req.Sector)
	name := strings.TrimSpace(req.Name)

	if sector == "" {
		fields["sector"] = "sector is required"
	} else if _, ok := s.catalog.Sectors()[sector]; !ok {
		fields["sector"] = fmt.Sprintf("unknown sector %q", sector)
	}
	if name == "" {
		fields["name"] = "name is required"
	} else if len(name) > 120 {
		fields["name"] = "name must be 120 characters or fewer"
	}
	if len(req.Fields) == 0 {
		fields["fields"] = "at least one field is required"
	}
	if len(fields) > 0 {
		return nil, NewValidationError("invalid credential", fields)
	}

	existing, err := s.repo.GetBySector(ctx, clientID, sector)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, NewValidationError("invalid credential", map[string]string{
			"sector": fmt.Sprintf("sector %q already has a credential", sector),
		})
	}

	encrypted, err := s.encryptFields(req.Fields)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	stored := &storedCredential{
		ID:              uuid.New().String(),
		ClientID:        clientID,
		Sector:          sector,
		Name:            name,
		EncryptedFields: encrypted,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.repo.Create(ctx, stored); err != nil {
		return nil, err
	}
	return s.toMasked(stored)
}

func (s *credentialService) GetCredential(ctx context.Context, clientID, credentialID string) (*Credential, error) {
	stored, err := s.repo.Get(ctx, clientID, credentialID)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, ErrNotFound
	}
	return s.toMasked(stored)
}

func (s *credentialService) ListCredentials(ctx context.Context, clientID string, limit, offset int) ([]*Credential, int, error) {
	rows, total, err := s.repo.List(ctx, clientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	creds := make([]*Credential, 0, len(rows))
	for _, stored := range rows {
		cred, err := s.toMasked(stored)
		if err != nil {
			return nil, 0, err
		}
		creds = append(creds, cred)
	}
	return creds, total, nil
}

func (s *credentialService) UpdateCredential(ctx context.Context, clientID, credentialID string, req *UpdateCredentialRequest) (*Credential, error) {
	stored, err := s.repo.Get(ctx, clientID, credentialID)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, ErrNotFound
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" || len(name) > 120 {
			return nil, NewValidationError("invalid credential", map[string]string{
				"name": "name must be 1-120 characters",
			})
		}
		stored.Name = name
	}

	if len(req.Fields) > 0 {
		current, err := s.decryptFields(stored.EncryptedFields)
		if err != nil {
			return nil, err
		}
		for key, value := range req.Fields {
			current[key] = value
		}
		encrypted, err := s.encryptFields(current)
		if err != nil {
			return nil, err
		}
		stored.EncryptedFields = encrypted
	}

	stored.UpdatedAt = time.Now().UTC()
	updated, err := s.repo.Update(ctx, stored)
	if err != nil {
		return nil, err
	}
	if !updated {
		return nil, ErrNotFound
	}
	return s.toMasked(stored)
}

func (s *credentialService) DeleteCredential(ctx context.Context, clientID, credentialID string) error {
	deleted, err := s.repo.Delete(ctx, clientID, credentialID)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrNotFound
	}
	return nil
}

// TestCredential checks the stored fields against the sector's
// credential manifest without contacting any third party.
func (s *credentialService) TestCredential(ctx context.Context, clientID, credentialID string) (*CredentialTestResult, error) {
	stored, err := s.repo.Get(ctx, clientID, credentialID)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, ErrNotFound
	}

	decrypted, err := s.decryptFields(stored.EncryptedFields)
	if err != nil {
		return nil, err
	}

	result := &CredentialTestResult{Valid: true, Sector: stored.Sector}
	config, ok := s.catalog.Sectors()[stored.Sector]
	if !ok {
		// Sector was removed from the catalog after the credential was
		// stored; nothing to validate against.
		return result, nil
	}

	for _, required := range config.Spec.CredentialFields {
		value, present := decrypted[required]
		if !present {
			result.MissingFields = append(result.MissingFields, required)
		} else if strings.TrimSpace(value) == "" {
			result.EmptyFields = append(result.EmptyFields, required)
		}
	}
	sort.Strings(result.MissingFields)
	sort.Strings(result.EmptyFields)
	result.Valid = len(result.MissingFields) == 0 && len(result.EmptyFields) == 0
	return result, nil
}

func (s *credentialService) DecryptedFields(ctx context.Context, clientID, sector string) (map[string]string, error) {
	stored, err := s.repo.GetBySector(ctx, clientID, sector)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, ErrNotFound
	}
	return s.decryptFields(stored.EncryptedFields)
}

func (s *credentialService) encryptFields(fields map[string]string) (string, error) {
	payload, err := json.Marshal(fields)
	if err != nil {
		return "", fmt.Errorf("failed to serialize credential fields: %w", err)
	}
	encrypted, err := s.cipher.Encrypt(string(payload))
	if err != nil {
		return "", fmt.Errorf("failed to encrypt credential fields: %w", err)
	}
	return encrypted, nil
}

func (s *credentialService) decryptFields(encrypted string) (map[string]string, error) {
	payload, err := s.cipher.Decrypt(encrypted)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt credential fields: %w", err)
	}
	var fields map[string]string
	if err := json.Unmarshal([]byte(payload), &fields); err != nil {
		return nil, fmt.Errorf("failed to parse credential fields: %w", err)
	}
	return fields, nil
}

// toMasked converts a stored row to the API shape with masked values
func (s *credentialService) toMasked(stored *storedCredential) (*Credential, error) {
	decrypted, err := s.decryptFields(stored.EncryptedFields)
	if err != nil {
		return nil, err
	}
	masked := make(map[string]string, len(decrypted))
	for key, value := range decrypted {
		masked[key] = MaskSecret(value)
	}
	return &Credential{
		ID:        stored.ID,
		ClientID:  stored.ClientID,
		Sector:    stored.Sector,
		Name:      stored.Name,
		Fields:    masked,
		CreatedAt: stored.CreatedAt,
		UpdatedAt: stored.UpdatedAt,
	}, nil
}
