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

package usage

import "testing"

func TestCalculateCallCost(t *testing.T) {
	tests := []struct {
		name      string
		sector    string
		plan      string
		direction string
		seconds   int
		want      int
	}{
		{"ecommerce inbound exact minutes", "ecommerce", "standard", "inbound", 120, 18},
		{"partial minute rounds up", "ecommerce", "standard", "inbound", 61, 18},
		{"single second bills one minute", "ecommerce", "standard", "inbound", 1, 9},
		{"outbound rate applies", "ecommerce", "standard", "outbound", 60, 14},
		{"healthcare surcharge", "healthcare", "standard", "inbound", 60, 12},
		{"enterprise discount", "ecommerce", "enterprise", "inbound", 60, 6},
		{"unknown sector falls back to default", "unknown", "standard", "inbound", 60, 12},
		{"zero duration is free", "ecommerce", "standard", "inbound", 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculateCallCost(tt.sector, tt.plan, tt.direction, tt.seconds)
			if got != tt.want {
				t.Errorf("CalculateCallCost(%s, %s, %s, %d) = %d, want %d",
					tt.sector, tt.plan, tt.direction, tt.seconds, got, tt.want)
			}
		})
	}
}

func TestGetSectorPricing(t *testing.T) {
	pricing, ok := GetSectorPricing("healthcare", "standard")
	if !ok {
		t.Fatal("expected healthcare-standard pricing to exist")
	}
	if pricing.InboundCostPerMin != 12 {
		t.Errorf("InboundCostPerMin = %d, want 12", pricing.InboundCostPerMin)
	}

	if _, ok := GetSectorPricing("nonexistent", "plan"); ok {
		t.Error("expected lookup miss for unknown sector")
	}
}

func TestFormatCostToDollars(t *testing.T) {
	tests := []struct {
		cents int
		want  string
	}{
		{135, "$1.35"},
		{0, "$0.00"},
		{9, "$0.09"},
		{10000, "$100.00"},
	}

	for _, tt := range tests {
		if got := FormatCostToDollars(tt.cents); got != tt.want {
			t.Errorf("FormatCostToDollars(%d) = %q, want %q", tt.cents, got, tt.want)
		}
	}
}
