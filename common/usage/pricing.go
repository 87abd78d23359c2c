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

import "fmt"

// Call minute pricing as of August 2026.
// Prices stored in cents per minute to avoid floating point issues.
// All prices are USD.

// SectorPricing contains per-minute pricing for a sector/plan combination
type SectorPricing struct {
	InboundCostPerMin  int // cents per inbound minute
	OutboundCostPerMin int // cents per outbound minute
}

// sectorPricing maps sector-plan combinations to pricing
var sectorPricing = map[string]SectorPricing{
	// Standard plan
	"ecommerce-standard":  {9, 14},
	"billing-standard":    {9, 14},
	"healthcare-standard": {12, 18}, // HIPAA handling surcharge
	"realestate-standard": {9, 14},

	// Enterprise plan (committed volume)
	"ecommerce-enterprise":  {6, 10},
	"billing-enterprise":    {6, 10},
	"healthcare-enterprise": {9, 14},
	"realestate-enterprise": {6, 10},

	// Default fallback pricing (conservative estimate)
	"default": {12, 18},
}

// CalculateCallCost calculates the cost in cents for a call.
// Partial minutes are billed as full minutes (industry convention).
// Returns cost in cents (integer) to avoid floating point precision issues.
func CalculateCallCost(sector, plan, direction string, durationSeconds int) int {
	key := sector + "-" + plan

	pricing, ok := sectorPricing[key]
	if !ok {
		pricing = sectorPricing["default"]
	}

	minutes := (durationSeconds + 59) / 60
	if minutes < 1 && durationSeconds > 0 {
		minutes = 1
	}

	if direction == "outbound" {
		return minutes * pricing.OutboundCostPerMin
	}
	return minutes * pricing.InboundCostPerMin
}

// GetSectorPricing returns the pricing for a specific sector-plan combination.
// This is useful for displaying pricing information to customers.
func GetSectorPricing(sector, plan string) (SectorPricing, bool) {
	pricing, ok := sectorPricing[sector+"-"+plan]
	return pricing, ok
}

// FormatCostToDollars converts cents to dollar string (e.g., 135 cents -> "$1.35")
func FormatCostToDollars(cents int) string {
	dollars := float64(cents) / 100.0
	return fmt.Sprintf("$%.2f", dollars)
}
