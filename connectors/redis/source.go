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

package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"

	"callweave/platform/connectors/base"
)

// Source implements base.DataSource for Redis-backed tenant systems.
// Records are stored as JSON documents under "<entity>:<key>" keys,
// the layout CRM export jobs commonly produce.
type Source struct {
	client *redis.Client
	config *base.SourceConfig
	name   string
}

// NewSource creates a new Redis data source
func NewSource() *Source {
	return &Source{name: "redis"}
}

// Connect establishes a connection to the Redis server
func (s *Source) Connect(ctx context.Context, config *base.SourceConfig) error {
	if config.ConnectionURL == "" {
		return base.NewSourceError(s.name, "connect", "connection URL is required", nil)
	}

	s.config = config
	if config.Name != "" {
		s.name = config.Name
	}

	opts, err := redis.ParseURL(config.ConnectionURL)
	if err != nil {
		return base.NewSourceError(s.name, "connect", "invalid connection URL", err)
	}
	if password, ok := config.Credentials["password"]; ok && password != "" {
		opts.Password = password
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, s.timeout())
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return base.NewSourceError(s.name, "connect", "failed to ping redis", err)
	}

	s.client = client
	return nil
}

// Disconnect closes the Redis connection
func (s *Source) Disconnect(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	if err := s.client.Close(); err != nil {
		return base.NewSourceError(s.name, "disconnect", "failed to close client", err)
	}
	s.client = nil
	return nil
}

// HealthCheck verifies the Redis connection is alive
func (s *Source) HealthCheck(ctx context.Context) (*base.HealthStatus, error) {
	status := &base.HealthStatus{Timestamp: time.Now()}

	if s.client == nil {
		status.Error = "not connected"
		return status, nil
	}

	start := time.Now()
	pingCtx, cancel := context.WithTimeout(ctx, s.timeout())
	defer cancel()

	if err := s.client.Ping(pingCtx).Err(); err != nil {
		status.Error = err.Error()
		return status, nil
	}

	status.Healthy = true
	status.Latency = time.Since(start)
	return status, nil
}

// Lookup fetches records by key, or scans the entity's keyspace when
// only filters are given.
func (s *Source) Lookup(ctx context.Context, req *base.LookupRequest) (*base.LookupResult, error) {
	start := time.Now()

	if s.client == nil {
		return nil, base.NewSourceError(s.name, "lookup", "source not connected", nil)
	}
	if !base.ValidEntities[req.Entity] {
		return nil, base.NewSourceError(s.name, "lookup", fmt.Sprintf("unknown entity %q", req.Entity), nil)
	}

	timeout := s.timeout()
	if req.Timeout > 0 {
		timeout = req.Timeout
	}
	opCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var records []map[string]interface{}
	var err error
	if req.Key != "" {
		records, err = s.fetchByKey(opCtx, req)
	} else {
		records, err = s.scanEntity(opCtx, req)
	}
	if err != nil {
		return nil, err
	}

	return &base.LookupResult{
		Records:  records,
		Count:    len(records),
		Duration: time.Since(start),
		Source:   s.name,
	}, nil
}

func (s *Source) fetchByKey(ctx context.Context, req *base.LookupRequest) ([]map[string]interface{}, error) {
	data, err := s.client.Get(ctx, req.Entity+":"+req.Key).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, base.NewSourceError(s.name, "lookup", "get failed", err)
	}

	record, err := decodeRecord(data)
	if err != nil {
		return nil, base.NewSourceError(s.name, "lookup", "invalid record payload", err)
	}
	if !matchesFilters(record, req.Filters) {
		return nil, nil
	}
	return []map[string]interface{}{record}, nil
}

func (s *Source) scanEntity(ctx context.Context, req *base.LookupRequest) ([]map[string]interface{}, error) {
	var records []map[string]interface{}

	iter := s.client.Scan(ctx, 0, req.Entity+":*", 100).Iterator()
	for iter.Next(ctx) {
		data, err := s.client.Get(ctx, iter.Val()).Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return nil, base.NewSourceError(s.name, "lookup", "get failed during scan", err)
		}

		record, err := decodeRecord(data)
		if err != nil {
			continue // skip malformed entries
		}
		if !matchesFilters(record, req.Filters) {
			continue
		}
		records = append(records, record)
		if req.Limit > 0 && len(records) >= req.Limit {
			break
		}
	}
	if err := iter.Err(); err != nil {
		return nil, base.NewSourceError(s.name, "lookup", "scan failed", err)
	}
	return records, nil
}

func (s *Source) Name() string { return s.name }
func (s *Source) Type() string { return "redis" }

func (s *Source) Capabilities() []string {
	return []string{"lookup", "filters", "key_value"}
}

func (s *Source) timeout() time.Duration {
	if s.config != nil && s.config.Timeout > 0 {
		return s.config.Timeout
	}
	return 5 * time.Second
}

func decodeRecord(data string) (map[string]interface{}, error) {
	var record map[string]interface{}
	if err := json.Unmarshal([]byte(data), &record); err != nil {
		return nil, err
	}
	return record, nil
}

func matchesFilters(record map[string]interface{}, filters map[string]interface{}) bool {
	for k, want := range filters {
		got, ok := record[k]
		if !ok {
			return false
		}
		ws, wok := want.(string)
		gs, gok := got.(string)
		if wok && gok {
			if !strings.EqualFold(ws, gs) {
				return false
			}
			continue
		}
		if fmt.Sprintf("%v", got) != fmt.Sprintf("%v", want) {
			return false
		}
	}
	return true
}
