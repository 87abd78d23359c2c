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
	"time"

	"callweave/platform/connectors/base"
)

// RealEstateAgent answers listing questions and schedules viewings
type RealEstateAgent struct {
	agentCore
}

// NewRealEstateAgent creates the real estate sector agent
func NewRealEstateAgent(resolver SourceResolver, cache LookupCache) *RealEstateAgent {
	return &RealEstateAgent{agentCore: newAgentCore(resolver, cache)}
}

func (a *RealEstateAgent) Sector() string { return "realestate" }

func (a *RealEstateAgent) Intents() []string {
	return []string{"property_lookup", "viewing_scheduling"}
}

func (a *RealEstateAgent) Handle(ctx context.Context, req *AgentRequest) (*AgentResult, error) {
	switch req.Intent {
	case "property_lookup":
		return a.propertyLookup(ctx, req)
	case "viewing_scheduling":
		return a.viewingScheduling(ctx, req)
	default:
		return nil, fmt.Errorf("realestate agent: unknown intent %q", req.Intent)
	}
}

func (a *RealEstateAgent) propertyLookup(ctx context.Context, req *AgentRequest) (*AgentResult, error) {
	started := time.Now()

	listingID, err := requireField(req, "listing_id")
	if err != nil {
		return nil, err
	}

	result, err := a.lookup(ctx, req, &base.LookupRequest{
		Entity: "listings",
		Key:    listingID,
		Limit:  1,
	})
	if err != nil {
		return nil, fmt.Errorf("listing lookup failed: %w", err)
	}
	if result.Count == 0 {
		return nil, fmt.Errorf("no listing found with ID %s", listingID)
	}

	listing := result.Records[0]
	response := fmt.Sprintf("Listing %s at %s, %s: %v bedrooms, %v bathrooms, listed at %s. Status: %s.",
		listingID,
		recordString(listing, "address"),
		recordString(listing, "city"),
		listing["bedrooms"],
		listing["bathrooms"],
		formatCents(recordCents(listing, "price_cents")),
		recordString(listing, "status"))

	return completedResult(req.Intent, response, map[string]interface{}{
		"listing_id":  listingID,
		"address":     recordString(listing, "address"),
		"price_cents": recordCents(listing, "price_cents"),
		"status":      recordString(listing, "status"),
	}, result, started), nil
}

func (a *RealEstateAgent) viewingScheduling(ctx context.Context, req *AgentRequest) (*AgentResult, error) {
	started := time.Now()

	listingID, err := requireField(req, "listing_id")
	if err != nil {
		return nil, err
	}
	visitorName, err := requireField(req, "visitor_name")
	if err != nil {
		return nil, err
	}

	result, err := a.lookup(ctx, req, &base.LookupRequest{
		Entity: "listings",
		Key:    listingID,
		Limit:  1,
	})
	if err != nil {
		return nil, fmt.Errorf("listing lookup failed: %w", err)
	}
	if result.Count == 0 {
		return nil, fmt.Errorf("no listing found with ID %s", listingID)
	}

	listing := result.Records[0]
	if recordString(listing, "status") != "active" {
		return nil, fmt.Errorf("listing %s is not accepting viewings", listingID)
	}

	openHouse := recordString(listing, "open_house")
	var response string
	if openHouse != "" {
		response = fmt.Sprintf("There's an open house at %s on %s. I've added you to the visitor list, %s.",
			recordString(listing, "address"), spokenDate(openHouse), visitorName)
	} else {
		preferred := optionalField(req, "preferred_time")
		if preferred == "" {
			return nil, &MissingFieldError{Field: "preferred_time"}
		}
		response = fmt.Sprintf("I've requested a private viewing of %s for %s at %s. The listing agent will confirm.",
			recordString(listing, "address"), visitorName, preferred)
	}

	return completedResult(req.Intent, response, map[string]interface{}{
		"listing_id":   listingID,
		"visitor_name": visitorName,
		"address":      recordString(listing, "address"),
	}, result, started), nil
}
