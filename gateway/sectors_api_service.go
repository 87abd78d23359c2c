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
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// SectorService manages the sector catalog and per-tenant sector
// configuration. It also implements SectorGate for the orchestrator.
type SectorService interface {
	Catalog(ctx context.Context, clientID string) ([]*SectorInfo, error)
	GetConfig(ctx context.Context, clientID, sector string) (*TenantSectorConfig, error)
	UpdateConfig(ctx context.Context, clientID, sector string, req *UpdateSectorConfigRequest) (*TenantSectorConfig, error)
	SectorEnabled(ctx context.Context, clientID, sector string) (bool, error)
}

type sectorService struct {
	repo        *SectorConfigRepository
	catalog     SectorCatalog
	credentials CredentialService
}

// NewSectorService creates the sector service. credentials may be nil,
// which skips the credential check on enable.
func NewSectorService(repo *SectorConfigRepository, catalog SectorCatalog, credentials CredentialService) SectorService {
	return &sectorService{repo: repo, catalog: catalog, credentials: credentials}
}

func (s *sectorService) Catalog(ctx context.Context, clientID string) ([]*SectorInfo, error) {
	enabled, err := s.repo.EnabledSectors(ctx, clientID)
	if err != nil {
		return nil, err
	}

	configs := s.catalog.Sectors()
	sectors := make([]*SectorInfo, 0, len(configs))
	for name, config := range configs {
		intents := make([]string, 0, len(config.Spec.Intents))
		for _, intent := range config.Spec.Intents {
			intents = append(intents, intent.Name)
		}
		sort.Strings(intents)

		sectors = append(sectors, &SectorInfo{
			Name:             name,
			Description:      config.Metadata.Description,
			Intents:          intents,
			CredentialFields: config.Spec.CredentialFields,
			Enabled:          enabled[name],
		})
	}
	sort.Slice(sectors, func(i, j int) bool { return sectors[i].Name < sectors[j].Name })
	return sectors, nil
}

func (s *sectorService) GetConfig(ctx context.Context, clientID, sector string) (*TenantSectorConfig, error) {
	if _, ok := s.catalog.Sectors()[sector]; !ok {
		return nil, ErrNotFound
	}

	config, err := s.repo.GetConfig(ctx, clientID, sector)
	if err != nil {
		return nil, err
	}
	if config == nil {
		// Never configured: the sector defaults to disabled
		return &TenantSectorConfig{ClientID: clientID, Sector: sector}, nil
	}
	return config, nil
}

func (s *sectorService) UpdateConfig(ctx context.Context, clientID, sector string, req *UpdateSectorConfigRequest) (*TenantSectorConfig, error) {
	config, err := s.GetConfig(ctx, clientID, sector)
	if err != nil {
		return nil, err
	}

	if req.Greeting != nil {
		config.Greeting = strings.TrimSpace(*req.Greeting)
	}
	if req.Settings != nil {
		config.Settings = req.Settings
	}
	if req.SourceType != nil {
		config.SourceType = strings.ToLower(strings.TrimSpace(*req.SourceType))
	}
	if req.SourceURL != nil {
		config.SourceURL = strings.TrimSpace(*req.SourceURL)
	}
	if req.Enabled != nil {
		config.Enabled = *req.Enabled
	}

	if err := s.validateBinding(config); err != nil {
		return nil, err
	}
	if config.Enabled {
		if err := s.checkCredential(ctx, clientID, sector); err != nil {
			return nil, err
		}
	}

	config.UpdatedAt = time.Now().UTC()
	if err := s.repo.UpsertConfig(ctx, config); err != nil {
		return nil, err
	}
	return config, nil
}

// SectorEnabled reports whether the tenant turned the sector on
func (s *sectorService) SectorEnabled(ctx context.Context, clientID, sector string) (bool, error) {
	config, err := s.repo.GetConfig(ctx, clientID, sector)
	if err != nil {
		return false, err
	}
	return config != nil && config.Enabled, nil
}

func (s *sectorService) validateBinding(config *TenantSectorConfig) error {
	if config.SourceType == "" {
		if config.SourceURL != "" {
			return NewValidationError("invalid sector config", map[string]string{
				"source_type": "source_type is required when source_url is set",
			})
		}
		return nil
	}
	if !validSourceTypes[config.SourceType] {
		return NewValidationError("invalid sector config", map[string]string{
			"source_type": fmt.Sprintf("unknown source type %q", config.SourceType),
		})
	}
	if config.SourceType != "memory" && config.SourceURL == "" {
		return NewValidationError("invalid sector config", map[string]string{
			"source_url": fmt.Sprintf("source_url is required for %s sources", config.SourceType),
		})
	}
	return nil
}

// checkCredential verifies the tenant's stored credential covers the
// sector's required fields before the sector can be enabled.
func (s *sectorService) checkCredential(ctx context.Context, clientID, sector string) error {
	config, ok := s.catalog.Sectors()[sector]
	if !ok || len(config.Spec.CredentialFields) == 0 {
		return nil
	}
	if s.credentials == nil {
		return nil
	}

	fields, err := s.credentials.DecryptedFields(ctx, clientID, sector)
	if errors.Is(err, ErrNotFound) {
		return NewValidationError("cannot enable sector", map[string]string{
			"enabled": fmt.Sprintf("sector %s requires a credential before it can be enabled", sector),
		})
	}
	if err != nil {
		return err
	}

	var missing []string
	for _, required := range config.Spec.CredentialFields {
		if strings.TrimSpace(fields[required]) == "" {
			missing = append(missing, required)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return NewValidationError("cannot enable sector", map[string]string{
			"enabled": fmt.Sprintf("credential is missing fields: %s", strings.Join(missing, ", ")),
		})
	}
	return nil
}
