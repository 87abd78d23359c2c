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

// EcommerceAgent answers order questions for online-shop tenants
type EcommerceAgent struct {
	agentCore
}

// NewEcommerceAgent creates the ecommerce sector agent
func NewEcommerceAgent(resolver SourceResolver, cache LookupCache) *EcommerceAgent {
	return &EcommerceAgent{agentCore: newAgentCore(resolver, cache)}
}

func (a *EcommerceAgent) Sector() string { return "ecommerce" }

func (a *EcommerceAgent) Intents() []string {
	return []string{"order_lookup", "order_status"}
}

func (a *EcommerceAgent) Handle(ctx context.Context, req *AgentRequest) (*AgentResult, error) {
	switch req.Intent {
	case "order_lookup":
		return a.orderLookup(ctx, req)
	case "order_status":
		return a.orderStatus(ctx, req)
	default:
		return nil, fmt.Errorf("ecommerce agent: unknown intent %q", req.Intent)
	}
}

func (a *EcommerceAgent) orderLookup(ctx context.Context, req *AgentRequest) (*AgentResult, error) {
	started := time.Now()

	orderNumber, err := requireField(req, "order_number")
	if err != nil {
		return nil, err
	}

	result, err := a.lookup(ctx, req, &base.LookupRequest{
		Entity: "orders",
		Key:    orderNumber,
		Limit:  1,
	})
	if err != nil {
		return nil, fmt.Errorf("order lookup failed: %w", err)
	}
	if result.Count == 0 {
		return nil, fmt.Errorf("no order found with number %s", orderNumber)
	}

	order := result.Records[0]
	response := fmt.Sprintf("I found order %s: %s, total %s.",
		orderNumber,
		recordString(order, "items"),
		formatCents(recordCents(order, "total_cents")))

	return completedResult(req.Intent, response, map[string]interface{}{
		"order_number": orderNumber,
		"items":        recordString(order, "items"),
		"total_cents":  recordCents(order, "total_cents"),
		"status":       recordString(order, "status"),
	}, result, started), nil
}

func (a *EcommerceAgent) orderStatus(ctx context.Context, req *AgentRequest) (*AgentResult, error) {
	started := time.Now()

	orderNumber, err := requireField(req, "order_number")
	if err != nil {
		return nil, err
	}

	result, err := a.lookup(ctx, req, &base.LookupRequest{
		Entity: "orders",
		Key:    orderNumber,
		Limit:  1,
	})
	if err != nil {
		return nil, fmt.Errorf("order lookup failed: %w", err)
	}
	if result.Count == 0 {
		return nil, fmt.Errorf("no order found with number %s", orderNumber)
	}

	order := result.Records[0]
	status := recordString(order, "status")

	var response string
	switch status {
	case "shipped":
		response = fmt.Sprintf("Order %s shipped with %s, tracking number %s. Estimated delivery %s.",
			orderNumber,
			recordString(order, "carrier"),
			recordString(order, "tracking_number"),
			spokenDate(recordString(order, "estimated_delivery")))
	case "delivered":
		response = fmt.Sprintf("Order %s was delivered on %s.",
			orderNumber, spokenDate(recordString(order, "estimated_delivery")))
	case "processing":
		response = fmt.Sprintf("Order %s is still being processed. Estimated delivery %s.",
			orderNumber, spokenDate(recordString(order, "estimated_delivery")))
	default:
		response = fmt.Sprintf("Order %s is currently %s.", orderNumber, status)
	}

	return completedResult(req.Intent, response, map[string]interface{}{
		"order_number":    orderNumber,
		"status":          status,
		"carrier":         recordString(order, "carrier"),
		"tracking_number": recordString(order, "tracking_number"),
	}, result, started), nil
}
