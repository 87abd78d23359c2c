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
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sectorCatalogForTest() *staticCatalog {
	return &staticCatalog{sectors: map[string]*SectorConfigFile{
		"ecommerce": {
			Metadata: SectorMetadata{Name: "ecommerce", Description: "Order support"},
			Spec: SectorSpec{
				Intents: []IntentSpec{
					{Name: "order_status"},
					{Name: "order_lookup"},
				},
				CredentialFields: []string{"api_key"},
			},
		},
		"billing": {
			Metadata: SectorMetadata{Name: "billing", Description: "Invoice support"},
			Spec: SectorSpec{
				Intents: []IntentSpec{{Name: "invoice_lookup"}},
			},
		},
	}}
}

func newSectorService(t *testing.T, credentials CredentialService) (SectorService, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	service := NewSectorService(NewSectorConfigRepository(db), sectorCatalogForTest(), credentials)
	return service, mock
}

func sectorConfigRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"client_id", "sector", "enabled", "greeting", "settings",
		"source_type", "source_url", "updated_at",
	})
}

func TestSectorServiceCatalog(t *testing.T) {
	service, mock := newSectorService(t, nil)

	mock.ExpectQuery("SELECT sector FROM sector_configs").
		WillReturnRows(sqlmock.NewRows([]string{"sector"}).AddRow("billing"))

	sectors, err := service.Catalog(context.Background(), "client-1")
	require.NoError(t, err)
	require.Len(t, sectors, 2)

	// Sorted by name
	assert.Equal(t, "billing", sectors[0].Name)
	assert.True(t, sectors[0].Enabled)
	assert.Equal(t, "ecommerce", sectors[1].Name)
	assert.False(t, sectors[1].Enabled)
	assert.Equal(t, []string{"order_lookup", "order_status"}, sectors[1].Intents)
}

func TestSectorServiceGetConfigDefault(t *testing.T) {
	service, mock := newSectorService(t, nil)

	mock.ExpectQuery("SELECT (.+) FROM sector_configs").
		WillReturnRows(sectorConfigRows())

	config, err := service.GetConfig(context.Background(), "client-1", "ecommerce")
	require.NoError(t, err)
	assert.False(t, config.Enabled)
	assert.Equal(t, "ecommerce", config.Sector)
}

func TestSectorServiceGetConfigUnknownSector(t *testing.T) {
	service, _ := newSectorService(t, nil)

	_, err := service.GetConfig(context.Background(), "client-1", "aerospace")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSectorServiceUpdateBindsSource(t *testing.T) {
	service, mock := newSectorService(t, nil)

	mock.ExpectQuery("SELECT (.+) FROM sector_configs").
		WillReturnRows(sectorConfigRows())
	mock.ExpectExec("INSERT INTO sector_configs").
		WillReturnResult(sqlmock.NewResult(1, 1))

	sourceType := "postgres"
	sourceURL := "postgres://tenant:pw@db.example.com/orders"
	config, err := service.UpdateConfig(context.Background(), "client-1", "billing",
		&UpdateSectorConfigRequest{SourceType: &sourceType, SourceURL: &sourceURL})
	require.NoError(t, err)
	assert.Equal(t, "postgres", config.SourceType)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSectorServiceUpdateRejectsUnknownSourceType(t *testing.T) {
	service, mock := newSectorService(t, nil)

	mock.ExpectQuery("SELECT (.+) FROM sector_configs").
		WillReturnRows(sectorConfigRows())

	sourceType := "mainframe"
	_, err := service.UpdateConfig(context.Background(), "client-1", "billing",
		&UpdateSectorConfigRequest{SourceType: &sourceType})
	require.Error(t, err)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields["source_type"], "unknown source type")
}

func TestSectorServiceUpdateRequiresURLForDatabaseSources(t *testing.T) {
	service, mock := newSectorService(t, nil)

	mock.ExpectQuery("SELECT (.+) FROM sector_configs").
		WillReturnRows(sectorConfigRows())

	sourceType := "mysql"
	_, err := service.UpdateConfig(context.Background(), "client-1", "billing",
		&UpdateSectorConfigRequest{SourceType: &sourceType})
	require.Error(t, err)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "source_url")
}

func TestSectorServiceEnableRequiresCredential(t *testing.T) {
	credentials := &mockCredentialService{
		decryptedFunc: func(ctx context.Context, clientID, sector string) (map[string]string, error) {
			return nil, ErrNotFound
		},
	}
	service, mock := newSectorService(t, credentials)

	mock.ExpectQuery("SELECT (.+) FROM sector_configs").
		WillReturnRows(sectorConfigRows())

	enabled := true
	_, err := service.UpdateConfig(context.Background(), "client-1", "ecommerce",
		&UpdateSectorConfigRequest{Enabled: &enabled})
	require.Error(t, err)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields["enabled"], "requires a credential")
}

func TestSectorServiceEnableRejectsIncompleteCredential(t *testing.T) {
	credentials := &mockCredentialService{
		decryptedFunc: func(ctx context.Context, clientID, sector string) (map[string]string, error) {
			return map[string]string{"api_key": "  "}, nil
		},
	}
	service, mock := newSectorService(t, credentials)

	mock.ExpectQuery("SELECT (.+) FROM sector_configs").
		WillReturnRows(sectorConfigRows())

	enabled := true
	_, err := service.UpdateConfig(context.Background(), "client-1", "ecommerce",
		&UpdateSectorConfigRequest{Enabled: &enabled})
	require.Error(t, err)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields["enabled"], "api_key")
}

func TestSectorServiceEnableWithCredential(t *testing.T) {
	credentials := &mockCredentialService{
		decryptedFunc: func(ctx context.Context, clientID, sector string) (map[string]string, error) {
			return map[string]string{"api_key": "sk_live_abcd1234"}, nil
		},
	}
	service, mock := newSectorService(t, credentials)

	mock.ExpectQuery("SELECT (.+) FROM sector_configs").
		WillReturnRows(sectorConfigRows())
	mock.ExpectExec("INSERT INTO sector_configs").
		WillReturnResult(sqlmock.NewResult(1, 1))

	enabled := true
	config, err := service.UpdateConfig(context.Background(), "client-1", "ecommerce",
		&UpdateSectorConfigRequest{Enabled: &enabled})
	require.NoError(t, err)
	assert.True(t, config.Enabled)
}

func TestSectorServiceEnableSectorWithoutManifest(t *testing.T) {
	// billing declares no credential fields, so enabling needs no credential
	service, mock := newSectorService(t, &mockCredentialService{})

	mock.ExpectQuery("SELECT (.+) FROM sector_configs").
		WillReturnRows(sectorConfigRows())
	mock.ExpectExec("INSERT INTO sector_configs").
		WillReturnResult(sqlmock.NewResult(1, 1))

	enabled := true
	config, err := service.UpdateConfig(context.Background(), "client-1", "billing",
		&UpdateSectorConfigRequest{Enabled: &enabled})
	require.NoError(t, err)
	assert.True(t, config.Enabled)
}

func TestSectorServiceSectorEnabled(t *testing.T) {
	service, mock := newSectorService(t, nil)
	now := time.Now()

	mock.ExpectQuery("SELECT (.+) FROM sector_configs").
		WillReturnRows(sectorConfigRows().
			AddRow("client-1", "ecommerce", true, "", []byte("{}"), "", "", now))

	enabled, err := service.SectorEnabled(context.Background(), "client-1", "ecommerce")
	require.NoError(t, err)
	assert.True(t, enabled)
}

func TestSectorServiceSectorEnabledDefaultsFalse(t *testing.T) {
	service, mock := newSectorService(t, nil)

	mock.ExpectQuery("SELECT (.+) FROM sector_configs").
		WillReturnRows(sectorConfigRows())

	enabled, err := service.SectorEnabled(context.Background(), "client-1", "ecommerce")
	require.NoError(t, err)
	assert.False(t, enabled)
}
