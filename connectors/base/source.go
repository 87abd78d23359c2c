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

package base

import (
	"context"
	"time"
)

// DataSource defines the interface every tenant data source must implement.
// Sector agents resolve record lookups (orders, invoices, appointments,
// listings) through the source bound to the tenant's sector configuration.
type DataSource interface {
	// Lifecycle management
	Connect(ctx context.Context, config *SourceConfig) error
	Disconnect(ctx context.Context) error
	HealthCheck(ctx context.Context) (*HealthStatus, error)

	// Lookup resolves a keyed record lookup against the source
	Lookup(ctx context.Context, req *LookupRequest) (*LookupResult, error)

	// Metadata
	Name() string // Unique source instance name
	Type() string // Source type (postgres, mysql, redis, http_api, memory)
	Capabilities() []string
}

// SourceConfig holds the configuration for a data source instance
type SourceConfig struct {
	Name          string                 `json:"name"`           // Unique name for this source
	Type          string                 `json:"type"`           // Type: postgres, mysql, redis, http_api, memory
	ConnectionURL string                 `json:"connection_url"` // Connection string (DSN) or base URL
	Credentials   map[string]string      `json:"credentials"`    // Username, password, API keys
	Options       map[string]interface{} `json:"options"`        // Source-specific options
	Timeout       time.Duration          `json:"timeout"`        // Operation timeout (default: 5s)
	ClientID      string                 `json:"client_id"`      // For multi-tenancy isolation
}

// LookupRequest represents a keyed record lookup against a source
type LookupRequest struct {
	Entity  string                 `json:"entity"`  // Record kind: orders, invoices, appointments, listings
	Key     string                 `json:"key"`     // Primary lookup key (order number, invoice ID, ...)
	Filters map[string]interface{} `json:"filters"` // Additional match criteria
	Timeout time.Duration          `json:"timeout"` // Override default timeout
	Limit   int                    `json:"limit"`   // Result limit (optional)
}

// LookupResult contains the records returned by a Lookup
type LookupResult struct {
	Records  []map[string]interface{} `json:"records"`
	Count    int                      `json:"count"`
	Duration time.Duration            `json:"duration"`
	Cached   bool                     `json:"cached"` // Was result served from cache?
	Source   string                   `json:"source"` // Source name that resolved the lookup
}

// HealthStatus represents the health of a data source
type HealthStatus struct {
	Healthy   bool              `json:"healthy"`
	Latency   time.Duration     `json:"latency"`
	Details   map[string]string `json:"details"`
	Timestamp time.Time         `json:"timestamp"`
	Error     string            `json:"error"`
}

// SourceError represents errors specific to data source operations
type SourceError struct {
	SourceName string
	Operation  string
	Message    string
	Cause      error
}

func (e *SourceError) Error() string {
	if e.Cause != nil {
		return e.SourceName + "." + e.Operation + ": " + e.Message + " (cause: " + e.Cause.Error() + ")"
	}
	return e.SourceName + "." + e.Operation + ": " + e.Message
}

func (e *SourceError) Unwrap() error {
	return e.Cause
}

// NewSourceError creates a new SourceError
func NewSourceError(sourceName, operation, message string, cause error) *SourceError {
	return &SourceError{
		SourceName: sourceName,
		Operation:  operation,
		Message:    message,
		Cause:      cause,
	}
}

// ValidEntities lists the record kinds agents are allowed to look up.
// Keeping this closed prevents arbitrary table access through a source.
var ValidEntities = map[string]bool{
	"orders":       true,
	"invoices":     true,
	"payments":     true,
	"appointments": true,
	"providers":    true,
	"listings":     true,
	"customers":    true,
}
