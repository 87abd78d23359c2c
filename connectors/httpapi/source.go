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

package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"callweave/platform/connectors/base"
)

// Source implements base.DataSource against a tenant's REST API.
// Lookups become GET <base>/<entity> requests with the key and filters
// passed as query parameters, which covers the common CRM webhook-style
// integrations without per-tenant client code.
type Source struct {
	client    *http.Client
	config    *base.SourceConfig
	name      string
	baseURL   string
	authKey   string // header name for API key auth, empty for bearer
	authValue string
}

// NewSource creates a new HTTP API data source
func NewSource() *Source {
	return &Source{name: "http_api"}
}

// Connect validates the base URL and prepares the HTTP client.
// Credentials support either {"api_key_header","api_key"} pairs or a
// {"bearer_token"} entry.
func (s *Source) Connect(ctx context.Context, config *base.SourceConfig) error {
	if config.ConnectionURL == "" {
		return base.NewSourceError(s.name, "connect", "connection URL is required", nil)
	}
	parsed, err := url.Parse(config.ConnectionURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return base.NewSourceError(s.name, "connect", "connection URL must be http(s)", err)
	}

	s.config = config
	if config.Name != "" {
		s.name = config.Name
	}
	s.baseURL = strings.TrimRight(config.ConnectionURL, "/")

	if token, ok := config.Credentials["bearer_token"]; ok && token != "" {
		s.authKey = "Authorization"
		s.authValue = "Bearer " + token
	} else if key, ok := config.Credentials["api_key"]; ok && key != "" {
		header := config.Credentials["api_key_header"]
		if header == "" {
			header = "X-API-Key"
		}
		s.authKey = header
		s.authValue = key
	}

	s.client = &http.Client{Timeout: s.timeout()}
	return nil
}

// Disconnect releases the HTTP client
func (s *Source) Disconnect(ctx context.Context) error {
	if s.client != nil {
		s.client.CloseIdleConnections()
		s.client = nil
	}
	return nil
}

// HealthCheck probes the API's health endpoint, falling back to the
// base URL when the endpoint is not configured.
func (s *Source) HealthCheck(ctx context.Context) (*base.HealthStatus, error) {
	status := &base.HealthStatus{Timestamp: time.Now()}

	if s.client == nil {
		status.Error = "not connected"
		return status, nil
	}

	healthPath := "/health"
	if s.config != nil {
		if p, ok := s.config.Options["health_path"].(string); ok && p != "" {
			healthPath = p
		}
	}

	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+healthPath, nil)
	if err != nil {
		status.Error = err.Error()
		return status, nil
	}
	s.authorize(req)

	resp, err := s.client.Do(req)
	if err != nil {
		status.Error = err.Error()
		return status, nil
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	status.Latency = time.Since(start)
	status.Healthy = resp.StatusCode < 500
	status.Details = map[string]string{"status_code": strconv.Itoa(resp.StatusCode)}
	if !status.Healthy {
		status.Error = "health endpoint returned " + resp.Status
	}
	return status, nil
}

// Lookup issues a GET against the entity collection. The response may
// be either a JSON array of records or an object with a "records" or
// "data" array field.
func (s *Source) Lookup(ctx context.Context, req *base.LookupRequest) (*base.LookupResult, error) {
	start := time.Now()

	if s.client == nil {
		return nil, base.NewSourceError(s.name, "lookup", "source not connected", nil)
	}
	if !base.ValidEntities[req.Entity] {
		return nil, base.NewSourceError(s.name, "lookup", fmt.Sprintf("unknown entity %q", req.Entity), nil)
	}

	query := url.Values{}
	if req.Key != "" {
		query.Set("key", req.Key)
	}
	for k, v := range req.Filters {
		query.Set(k, fmt.Sprintf("%v", v))
	}
	if req.Limit > 0 {
		query.Set("limit", strconv.Itoa(req.Limit))
	}

	endpoint := s.baseURL + "/" + req.Entity
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	timeout := s.timeout()
	if req.Timeout > 0 {
		timeout = req.Timeout
	}
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(reqCtx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, base.NewSourceError(s.name, "lookup", "failed to build request", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	s.authorize(httpReq)

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, base.NewSourceError(s.name, "lookup", "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return &base.LookupResult{Duration: time.Since(start), Source: s.name}, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, base.NewSourceError(s.name, "lookup",
			fmt.Sprintf("unexpected status %d", resp.StatusCode), nil)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, base.NewSourceError(s.name, "lookup", "failed to read response", err)
	}

	records, err := decodeRecords(body)
	if err != nil {
		return nil, base.NewSourceError(s.name, "lookup", "invalid response payload", err)
	}

	return &base.LookupResult{
		Records:  records,
		Count:    len(records),
		Duration: time.Since(start),
		Source:   s.name,
	}, nil
}

func (s *Source) Name() string { return s.name }
func (s *Source) Type() string { return "http_api" }

func (s *Source) Capabilities() []string {
	return []string{"lookup", "filters", "rest"}
}

func (s *Source) authorize(req *http.Request) {
	if s.authKey != "" {
		req.Header.Set(s.authKey, s.authValue)
	}
}

func (s *Source) timeout() time.Duration {
	if s.config != nil && s.config.Timeout > 0 {
		return s.config.Timeout
	}
	return 10 * time.Second
}

func decodeRecords(body []byte) ([]map[string]interface{}, error) {
	var records []map[string]interface{}
	if err := json.Unmarshal(body, &records); err == nil {
		return records, nil
	}

	var envelope struct {
		Records []map[string]interface{} `json:"records"`
		Data    []map[string]interface{} `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, err
	}
	if envelope.Records != nil {
		return envelope.Records, nil
	}
	return envelope.Data, nil
}
