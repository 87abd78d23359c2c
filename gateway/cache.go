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
	"log"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"

	"callweave/platform/connectors/base"
)

// LookupCache fronts agent data lookups with a flat-TTL cache. Keys are
// scoped by tenant so one client's records never serve another's calls.
type LookupCache interface {
	Get(ctx context.Context, clientID, key string) (*base.LookupResult, bool)
	Set(ctx context.Context, clientID, key string, result *base.LookupResult)
}

// cacheKey namespaces entries per tenant
func cacheKey(clientID, key string) string {
	return "lookup:" + clientID + ":" + key
}

// RedisLookupCache stores lookup results as JSON in Redis
type RedisLookupCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisLookupCache wraps an existing Redis client
func NewRedisLookupCache(client *redis.Client, ttl time.Duration) *RedisLookupCache {
	return &RedisLookupCache{client: client, ttl: ttl}
}

func (c *RedisLookupCache) Get(ctx context.Context, clientID, key string) (*base.LookupResult, bool) {
	data, err := c.client.Get(ctx, cacheKey(clientID, key)).Result()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		log.Printf("[CACHE] Redis get failed: %v", err)
		return nil, false
	}

	var result base.LookupResult
	if err := json.Unmarshal([]byte(data), &result); err != nil {
		log.Printf("[CACHE] Corrupt cache entry for %s, dropping: %v", key, err)
		c.client.Del(ctx, cacheKey(clientID, key))
		return nil, false
	}
	result.Cached = true
	return &result, true
}

func (c *RedisLookupCache) Set(ctx context.Context, clientID, key string, result *base.LookupResult) {
	data, err := json.Marshal(result)
	if err != nil {
		log.Printf("[CACHE] Failed to marshal lookup result: %v", err)
		return
	}
	if err := c.client.Set(ctx, cacheKey(clientID, key), data, c.ttl).Err(); err != nil {
		log.Printf("[CACHE] Redis set failed: %v", err)
	}
}

// MemoryLookupCache is the in-process fallback when Redis isn't
// configured. Flat TTL, no other eviction; expired entries are dropped
// on read and swept periodically.
type MemoryLookupCache struct {
	mu      sync.RWMutex
	entries map[string]memoryCacheEntry
	ttl     time.Duration
	stop    chan struct{}
}

type memoryCacheEntry struct {
	result    *base.LookupResult
	expiresAt time.Time
}

// NewMemoryLookupCache creates the cache and starts its sweeper
func NewMemoryLookupCache(ttl time.Duration) *MemoryLookupCache {
	c := &MemoryLookupCache{
		entries: make(map[string]memoryCacheEntry),
		ttl:     ttl,
		stop:    make(chan struct{}),
	}
	go c.sweep()
	return c
}

func (c *MemoryLookupCache) Get(ctx context.Context, clientID, key string) (*base.LookupResult, bool) {
	c.mu.RLock()
	entry, ok := c.entries[cacheKey(clientID, key)]
	c.mu.RUnlock()

	if !ok || time.Now().After(entry.expiresAt) {
		return nil, false
	}

	cp := *entry.result
	cp.Cached = true
	return &cp, true
}

func (c *MemoryLookupCache) Set(ctx context.Context, clientID, key string, result *base.LookupResult) {
	c.mu.Lock()
	c.entries[cacheKey(clientID, key)] = memoryCacheEntry{
		result:    result,
		expiresAt: time.Now().Add(c.ttl),
	}
	c.mu.Unlock()
}

// Len reports the live entry count, mainly for stats endpoints
func (c *MemoryLookupCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Close stops the background sweeper
func (c *MemoryLookupCache) Close() {
	close(c.stop)
}

func (c *MemoryLookupCache) sweep() {
	ticker := time.NewTicker(c.ttl)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			now := time.Now()
			c.mu.Lock()
			for k, entry := range c.entries {
				if now.After(entry.expiresAt) {
					delete(c.entries, k)
				}
			}
			c.mu.Unlock()
		}
	}
}
