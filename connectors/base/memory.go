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
	"fmt"
	"strings"
	"sync"
	"time"
)

// MemorySource is an in-memory DataSource seeded with a demo dataset.
// Tenants without a configured backing source fall back to it so that
// sector agents stay demonstrable before any integration work is done.
type MemorySource struct {
	name      string
	mu        sync.RWMutex
	records   map[string][]map[string]interface{} // entity -> records
	connected bool
}

// NewMemorySource creates a memory source pre-seeded with demo records
// for every entity the sector agents know how to look up.
func NewMemorySource() *MemorySource {
	return &MemorySource{
		name:    "memory",
		records: seedRecords(),
	}
}

func (m *MemorySource) Connect(ctx context.Context, config *SourceConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if config != nil && config.Name != "" {
		m.name = config.Name
	}
	m.connected = true
	return nil
}

func (m *MemorySource) Disconnect(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connected = false
	return nil
}

func (m *MemorySource) HealthCheck(ctx context.Context) (*HealthStatus, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return &HealthStatus{
		Healthy:   m.connected,
		Latency:   0,
		Details:   map[string]string{"entities": fmt.Sprintf("%d", len(m.records))},
		Timestamp: time.Now(),
	}, nil
}

// Lookup matches records by key against common identifier fields, then
// applies any extra filters. Matching is case-insensitive on strings.
func (m *MemorySource) Lookup(ctx context.Context, req *LookupRequest) (*LookupResult, error) {
	start := time.Now()

	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.connected {
		return nil, NewSourceError(m.name, "lookup", "source not connected", nil)
	}
	if !ValidEntities[req.Entity] {
		return nil, NewSourceError(m.name, "lookup", fmt.Sprintf("unknown entity %q", req.Entity), nil)
	}

	var matched []map[string]interface{}
	for _, rec := range m.records[req.Entity] {
		if req.Key != "" && !matchesKey(rec, req.Key) {
			continue
		}
		if !matchesFilters(rec, req.Filters) {
			continue
		}
		// Copy so callers can't mutate the seed data
		cp := make(map[string]interface{}, len(rec))
		for k, v := range rec {
			cp[k] = v
		}
		matched = append(matched, cp)
		if req.Limit > 0 && len(matched) >= req.Limit {
			break
		}
	}

	return &LookupResult{
		Records:  matched,
		Count:    len(matched),
		Duration: time.Since(start),
		Source:   m.name,
	}, nil
}

func (m *MemorySource) Name() string { return m.name }
func (m *MemorySource) Type() string { return "memory" }

func (m *MemorySource) Capabilities() []string {
	return []string{"lookup", "demo_data"}
}

// keyFields are the identifier columns Lookup matches a key against.
var keyFields = []string{"id", "order_number", "invoice_number", "appointment_id", "listing_id", "customer_phone", "email"}

func matchesKey(rec map[string]interface{}, key string) bool {
	for _, f := range keyFields {
		if v, ok := rec[f]; ok {
			if s, ok := v.(string); ok && strings.EqualFold(s, key) {
				return true
			}
		}
	}
	return false
}

func matchesFilters(rec map[string]interface{}, filters map[string]interface{}) bool {
	for k, want := range filters {
		got, ok := rec[k]
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
		if got != want {
			return false
		}
	}
	return true
}

// seedRecords builds the demo dataset. Dates are relative to now so
// appointment availability always has future slots.
func seedRecords() map[string][]map[string]interface{} {
	now := time.Now()
	day := func(d int, hour int) string {
		return now.AddDate(0, 0, d).Truncate(24 * time.Hour).Add(time.Duration(hour) * time.Hour).Format(time.RFC3339)
	}

	return map[string][]map[string]interface{}{
		"orders": {
			{
				"id": "ord-1001", "order_number": "A-20451", "customer_phone": "+15550100",
				"status": "shipped", "carrier": "UPS", "tracking_number": "1Z999AA10123456784",
				"items": "Wireless Headphones x1", "total_cents": 12999,
				"estimated_delivery": day(2, 17),
			},
			{
				"id": "ord-1002", "order_number": "A-20452", "customer_phone": "+15550101",
				"status": "processing", "carrier": "", "tracking_number": "",
				"items": "Standing Desk x1, Monitor Arm x2", "total_cents": 64900,
				"estimated_delivery": day(6, 17),
			},
			{
				"id": "ord-1003", "order_number": "A-20453", "customer_phone": "+15550100",
				"status": "delivered", "carrier": "FedEx", "tracking_number": "771234567890",
				"items": "USB-C Cable x3", "total_cents": 2697,
				"estimated_delivery": day(-1, 12),
			},
		},
		"invoices": {
			{
				"id": "inv-3001", "invoice_number": "INV-2025-0041", "customer_phone": "+15550200",
				"status": "open", "amount_cents": 18950, "currency": "USD",
				"due_date": day(10, 0), "period": "2025-07",
			},
			{
				"id": "inv-3002", "invoice_number": "INV-2025-0040", "customer_phone": "+15550200",
				"status": "paid", "amount_cents": 18950, "currency": "USD",
				"due_date": day(-20, 0), "period": "2025-06",
			},
		},
		"payments": {
			{
				"id": "pay-5001", "invoice_number": "INV-2025-0040", "customer_phone": "+15550200",
				"status": "settled", "amount_cents": 18950, "method": "card",
				"paid_at": day(-18, 14),
			},
			{
				"id": "pay-5002", "invoice_number": "INV-2025-0041", "customer_phone": "+15550201",
				"status": "pending", "amount_cents": 9900, "method": "ach",
				"paid_at": "",
			},
		},
		"appointments": {
			{
				"id": "apt-7001", "appointment_id": "APT-88120", "customer_phone": "+15550300",
				"provider": "Dr. Chen", "specialty": "dermatology", "status": "available",
				"slot_start": day(1, 9), "slot_end": day(1, 10),
			},
			{
				"id": "apt-7002", "appointment_id": "APT-88121", "customer_phone": "",
				"provider": "Dr. Chen", "specialty": "dermatology", "status": "available",
				"slot_start": day(1, 14), "slot_end": day(1, 15),
			},
			{
				"id": "apt-7003", "appointment_id": "APT-88122", "customer_phone": "+15550301",
				"provider": "Dr. Okafor", "specialty": "cardiology", "status": "booked",
				"slot_start": day(3, 11), "slot_end": day(3, 12),
			},
		},
		"providers": {
			{"id": "prov-1", "name": "Dr. Chen", "specialty": "dermatology", "location": "Downtown Clinic"},
			{"id": "prov-2", "name": "Dr. Okafor", "specialty": "cardiology", "location": "Riverside Medical"},
		},
		"listings": {
			{
				"id": "lst-9001", "listing_id": "MLS-44812", "status": "active",
				"address": "412 Maple Ave", "city": "Springfield", "price_cents": 47500000,
				"bedrooms": 3, "bathrooms": 2, "open_house": day(4, 13),
			},
			{
				"id": "lst-9002", "listing_id": "MLS-44990", "status": "pending",
				"address": "88 Harbor St", "city": "Springfield", "price_cents": 61900000,
				"bedrooms": 4, "bathrooms": 3, "open_house": "",
			},
		},
		"customers": {
			{"id": "cus-1", "customer_phone": "+15550100", "name": "Jamie Rivera", "email": "jamie@example.com"},
			{"id": "cus-2", "customer_phone": "+15550200", "name": "Morgan Lee", "email": "morgan@example.com"},
		},
	}
}
