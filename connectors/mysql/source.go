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

package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql" // MySQL driver

	"callweave/platform/connectors/base"
)

// Source implements base.DataSource for MySQL-backed tenant systems.
type Source struct {
	db     *sql.DB
	config *base.SourceConfig
	name   string
}

// NewSource creates a new MySQL data source
func NewSource() *Source {
	return &Source{name: "mysql"}
}

var entityTables = map[string]struct {
	table     string
	keyColumn string
}{
	"orders":       {"orders", "order_number"},
	"invoices":     {"invoices", "invoice_number"},
	"payments":     {"payments", "invoice_number"},
	"appointments": {"appointments", "appointment_id"},
	"providers":    {"providers", "id"},
	"listings":     {"listings", "listing_id"},
	"customers":    {"customers", "customer_phone"},
}

// Connect establishes a connection to the MySQL database
func (s *Source) Connect(ctx context.Context, config *base.SourceConfig) error {
	if config.ConnectionURL == "" {
		return base.NewSourceError(s.name, "connect", "connection URL is required", nil)
	}

	s.config = config
	if config.Name != "" {
		s.name = config.Name
	}

	db, err := sql.Open("mysql", config.ConnectionURL)
	if err != nil {
		return base.NewSourceError(s.name, "connect", "failed to open database", err)
	}

	maxOpen := 10
	maxIdle := 5
	if v, ok := config.Options["max_open_conns"].(int); ok {
		maxOpen = v
	}
	if v, ok := config.Options["max_idle_conns"].(int); ok {
		maxIdle = v
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, s.timeout())
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return base.NewSourceError(s.name, "connect", "failed to ping database", err)
	}

	s.db = db
	return nil
}

// Disconnect closes the database connection pool
func (s *Source) Disconnect(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	if err := s.db.Close(); err != nil {
		return base.NewSourceError(s.name, "disconnect", "failed to close database", err)
	}
	s.db = nil
	return nil
}

// HealthCheck verifies the database connection is alive
func (s *Source) HealthCheck(ctx context.Context) (*base.HealthStatus, error) {
	status := &base.HealthStatus{Timestamp: time.Now()}

	if s.db == nil {
		status.Error = "not connected"
		return status, nil
	}

	start := time.Now()
	pingCtx, cancel := context.WithTimeout(ctx, s.timeout())
	defer cancel()

	if err := s.db.PingContext(pingCtx); err != nil {
		status.Error = err.Error()
		return status, nil
	}

	stats := s.db.Stats()
	status.Healthy = true
	status.Latency = time.Since(start)
	status.Details = map[string]string{
		"open_connections": fmt.Sprintf("%d", stats.OpenConnections),
		"in_use":           fmt.Sprintf("%d", stats.InUse),
	}
	return status, nil
}

// Lookup runs a keyed SELECT against the entity's table
func (s *Source) Lookup(ctx context.Context, req *base.LookupRequest) (*base.LookupResult, error) {
	start := time.Now()

	if s.db == nil {
		return nil, base.NewSourceError(s.name, "lookup", "source not connected", nil)
	}

	mapping, ok := entityTables[req.Entity]
	if !ok {
		return nil, base.NewSourceError(s.name, "lookup", fmt.Sprintf("unknown entity %q", req.Entity), nil)
	}

	query, args := buildLookupQuery(mapping.table, mapping.keyColumn, req)

	timeout := s.timeout()
	if req.Timeout > 0 {
		timeout = req.Timeout
	}
	queryCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	rows, err := s.db.QueryContext(queryCtx, query, args...)
	if err != nil {
		return nil, base.NewSourceError(s.name, "lookup", "query failed", err)
	}
	defer rows.Close()

	records, err := scanRows(rows)
	if err != nil {
		return nil, base.NewSourceError(s.name, "lookup", "failed to scan rows", err)
	}

	return &base.LookupResult{
		Records:  records,
		Count:    len(records),
		Duration: time.Since(start),
		Source:   s.name,
	}, nil
}

func (s *Source) Name() string { return s.name }
func (s *Source) Type() string { return "mysql" }

func (s *Source) Capabilities() []string {
	return []string{"lookup", "filters", "transactions"}
}

func (s *Source) timeout() time.Duration {
	if s.config != nil && s.config.Timeout > 0 {
		return s.config.Timeout
	}
	return 5 * time.Second
}

// buildLookupQuery assembles a parameterized SELECT using MySQL's
// positional placeholders.
func buildLookupQuery(table, keyColumn string, req *base.LookupRequest) (string, []interface{}) {
	var conditions []string
	var args []interface{}

	if req.Key != "" {
		conditions = append(conditions, keyColumn+" = ?")
		args = append(args, req.Key)
	}
	for col, val := range req.Filters {
		conditions = append(conditions, quoteIdent(col)+" = ?")
		args = append(args, val)
	}

	query := "SELECT * FROM " + table
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	if req.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", req.Limit)
	}
	return query, args
}

func quoteIdent(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "") + "`"
}

// scanRows converts sql.Rows into generic records. MySQL returns most
// values as []byte, so those are normalized to strings.
func scanRows(rows *sql.Rows) ([]map[string]interface{}, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var records []map[string]interface{}
	for rows.Next() {
		values := make([]interface{}, len(columns))
		valuePtrs := make([]interface{}, len(columns))
		for i := range values {
			valuePtrs[i] = &values[i]
		}
		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, err
		}

		record := make(map[string]interface{}, len(columns))
		for i, col := range columns {
			val := values[i]
			if b, ok := val.([]byte); ok {
				val = string(b)
			}
			record[col] = val
		}
		records = append(records, record)
	}
	return records, rows.Err()
}
