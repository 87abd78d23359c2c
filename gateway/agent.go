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

	"callweave/platform/connectors/base"
)

// SectorAgent handles the intents of one business vertical. Agents are
// linear: validate required fields, look up data through the tenant's
// source, format a response, return a result or an error.
type SectorAgent interface {
	Sector() string
	Intents() []string
	Handle(ctx context.Context, req *AgentRequest) (*AgentResult, error)
}

// SourceResolver returns the data source bound to a tenant's sector.
// Tenants without a binding get the seeded demo source.
type SourceResolver interface {
	Resolve(ctx context.Context, clientID, sector string) base.DataSource
}

// agentCore carries the dependencies every sector agent shares
type agentCore struct {
	resolver SourceResolver
	cache    LookupCache
}

func newAgentCore(resolver SourceResolver, cache LookupCache) agentCore {
	return agentCore{resolver: resolver, cache: cache}
}

// lookup resolves a keyed lookup through the cache and the tenant's
// bound source.
func (c *agentCore) lookup(ctx context.Context, req *AgentRequest, lreq *base.LookupRequest) (*base.LookupResult, error) {
	key := lookupCacheKey(lreq)

	if c.cache != nil && key != "" {
		if cached, ok := c.cache.Get(ctx, req.ClientID, key); ok {
			return cached, nil
		}
	}

	source := c.resolver.Resolve(ctx, req.ClientID, req.Sector)
	result, err := source.Lookup(ctx, lreq)
	if err != nil {
		return nil, err
	}

	if c.cache != nil && key != "" && result.Count > 0 {
		c.cache.Set(ctx, req.ClientID, key, result)
	}
	return result, nil
}

// lookupCacheKey builds a stable cache key for keyed lookups. Filter
// scans are not cached; their hit rates don't justify the staleness.
func lookupCacheKey(lreq *base.LookupRequest) string {
	if lreq.Key == "" || len(lreq.Filters) > 0 {
		return ""
	}
	return lreq.Entity + ":" + strings.ToLower(lreq.Key)
}

// requireField extracts a required string field from the request,
// returning a MissingFieldError the gateway reports back to the voice
// layer for re-prompting.
func requireField(req *AgentRequest, name string) (string, error) {
	v, ok := req.Fields[name]
	if !ok {
		return "", &MissingFieldError{Field: name}
	}
	s, ok := v.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return "", &MissingFieldError{Field: name}
	}
	return strings.TrimSpace(s), nil
}

// optionalField returns the field value or empty when absent
func optionalField(req *AgentRequest, name string) string {
	if v, ok := req.Fields[name]; ok {
		if s, ok := v.(string); ok {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

// recordString reads a string column from a lookup record
func recordString(record map[string]interface{}, key string) string {
	if v, ok := record[key]; ok {
		switch t := v.(type) {
		case string:
			return t
		case fmt.Stringer:
			return t.String()
		}
	}
	return ""
}

// recordCents reads an integer-cents column, tolerating the numeric
// types different sources produce.
func recordCents(record map[string]interface{}, key string) int64 {
	switch v := record[key].(type) {
	case int:
		return int64(v)
	case int64:
		return v
	case float64:
		return int64(v)
	}
	return 0
}

// formatCents renders integer cents as dollars for spoken responses
func formatCents(cents int64) string {
	return fmt.Sprintf("$%d.%02d", cents/100, cents%100)
}

// spokenDate renders an RFC3339 timestamp for a voice response
func spokenDate(value string) string {
	ts, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return value
	}
	return ts.Format("Monday, January 2 at 3:04 PM")
}

func completedResult(intent, response string, payload map[string]interface{}, lr *base.LookupResult, started time.Time) *AgentResult {
	result := &AgentResult{
		Intent:     intent,
		Response:   response,
		Payload:    payload,
		DurationMs: time.Since(started).Milliseconds(),
	}
	if lr != nil {
		result.Source = lr.Source
		result.Cached = lr.Cached
	}
	return result
}
