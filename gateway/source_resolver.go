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
	"log"
	"sync"
	"time"

	"callweave/platform/connectors/base"
	"callweave/platform/connectors/httpapi"
	"callweave/platform/connectors/mysql"
	"callweave/platform/connectors/postgres"
	"callweave/platform/connectors/redis"
)

const (
	sourceCacheTTL       = 5 * time.Minute
	sourceConnectTimeout = 10 * time.Second
)

type cachedSource struct {
	source base.DataSource
	// fingerprint detects binding changes so a rebinding takes effect
	// once the cache entry expires
	fingerprint string
	expires     time.Time
}

// BoundSourceResolver resolves lookups through the data source a tenant
// bound to the sector. Tenants without a binding get the seeded demo
// source. Connected sources are cached with a TTL so every lookup does
// not re-dial the tenant's database.
type BoundSourceResolver struct {
	configs     *SectorConfigRepository
	credentials CredentialService
	fallback    *base.MemorySource

	mu    sync.Mutex
	cache map[string]*cachedSource
}

// NewBoundSourceResolver creates the resolver. credentials may be nil
// when credential pass-through is not needed.
func NewBoundSourceResolver(configs *SectorConfigRepository, credentials CredentialService) *BoundSourceResolver {
	return &BoundSourceResolver{
		configs:     configs,
		credentials: credentials,
		fallback:    base.NewMemorySource(),
		cache:       make(map[string]*cachedSource),
	}
}

// Resolve returns the source for the tenant's sector, falling back to
// the demo source when no binding exists or the bound source cannot be
// reached.
func (r *BoundSourceResolver) Resolve(ctx context.Context, clientID, sector string) base.DataSource {
	cacheKey := clientID + "/" + sector

	r.mu.Lock()
	entry, ok := r.cache[cacheKey]
	if ok && time.Now().Before(entry.expires) {
		source := entry.source
		r.mu.Unlock()
		return source
	}
	r.mu.Unlock()

	config, err := r.configs.GetConfig(ctx, clientID, sector)
	if err != nil {
		log.Printf("[RESOLVER] Failed to load sector config for %s/%s: %v", clientID, sector, err)
		return r.fallback
	}
	if config == nil || config.SourceType == "" || config.SourceType == "memory" {
		return r.fallback
	}

	fingerprint := config.SourceType + "|" + config.SourceURL
	if ok && entry.fingerprint == fingerprint {
		// Binding unchanged: refresh the entry instead of re-dialing
		r.mu.Lock()
		entry.expires = time.Now().Add(sourceCacheTTL)
		r.mu.Unlock()
		return entry.source
	}

	source, err := r.connect(ctx, clientID, sector, config)
	if err != nil {
		log.Printf("[RESOLVER] Failed to connect %s source for %s/%s: %v",
			config.SourceType, clientID, sector, err)
		return r.fallback
	}

	return r.store(cacheKey, fingerprint, source)
}

// store publishes a freshly connected source. When a concurrent resolve
// already cached a live source for the same binding, the duplicate is
// closed and the shared one wins; closing the duplicate is safe because
// it was never handed to a caller.
func (r *BoundSourceResolver) store(cacheKey, fingerprint string, source base.DataSource) base.DataSource {
	r.mu.Lock()
	if current, ok := r.cache[cacheKey]; ok {
		if current.fingerprint == fingerprint && time.Now().Before(current.expires) {
			shared := current.source
			r.mu.Unlock()
			_ = source.Disconnect(context.Background())
			return shared
		}
		_ = current.source.Disconnect(context.Background())
	}
	r.cache[cacheKey] = &cachedSource{
		source:      source,
		fingerprint: fingerprint,
		expires:     time.Now().Add(sourceCacheTTL),
	}
	r.mu.Unlock()
	return source
}

func (r *BoundSourceResolver) connect(ctx context.Context, clientID, sector string, config *TenantSectorConfig) (base.DataSource, error) {
	var source base.DataSource
	switch config.SourceType {
	case "postgres":
		source = postgres.NewSource()
	case "mysql":
		source = mysql.NewSource()
	case "redis":
		source = redis.NewSource()
	case "httpapi":
		source = httpapi.NewSource()
	default:
		return nil, fmt.Errorf("unknown source type %q", config.SourceType)
	}

	credentials := map[string]string{}
	if r.credentials != nil {
		fields, err := r.credentials.DecryptedFields(ctx, clientID, sector)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return nil, err
		}
		if fields != nil {
			credentials = fields
		}
	}

	connectCtx, cancel := context.WithTimeout(ctx, sourceConnectTimeout)
	defer cancel()

	err := source.Connect(connectCtx, &base.SourceConfig{
		Name:          fmt.Sprintf("%s-%s", sector, config.SourceType),
		Type:          config.SourceType,
		ConnectionURL: config.SourceURL,
		Credentials:   credentials,
		Options:       config.Settings,
		Timeout:       sourceConnectTimeout,
		ClientID:      clientID,
	})
	if err != nil {
		return nil, err
	}
	return source, nil
}

// Close disconnects every cached source
func (r *BoundSourceResolver) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for key, entry := range r.cache {
		if err := entry.source.Disconnect(context.Background()); err != nil {
			log.Printf("[RESOLVER] Failed to disconnect source %s: %v", key, err)
		}
		delete(r.cache, key)
	}
}
