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

// BillingAgent answers invoice and payment questions
type BillingAgent struct {
	agentCore
}

// NewBillingAgent creates the billing sector agent
func NewBillingAgent(resolver SourceResolver, cache LookupCache) *BillingAgent {
	return &BillingAgent{agentCore: newAgentCore(resolver, cache)}
}

func (a *BillingAgent) Sector() string { return "billing" }

func (a *BillingAgent) Intents() []string {
	return []string{"invoice_lookup", "payment_status"}
}

func (a *BillingAgent) Handle(ctx context.Context, req *AgentRequest) (*AgentResult, error) {
	switch req.Intent {
	case "invoice_lookup":
		return a.invoiceLookup(ctx, req)
	case "payment_status":
		return a.paymentStatus(ctx, req)
	default:
		return nil, fmt.Errorf("billing agent: unknown intent %q", req.Intent)
	}
}

func (a *BillingAgent) invoiceLookup(ctx context.Context, req *AgentRequest) (*AgentResult, error) {
	started := time.Now()

	invoiceNumber, err := requireField(req, "invoice_number")
	if err != nil {
		return nil, err
	}

	result, err := a.lookup(ctx, req, &base.LookupRequest{
		Entity: "invoices",
		Key:    invoiceNumber,
		Limit:  1,
	})
	if err != nil {
		return nil, fmt.Errorf("invoice lookup failed: %w", err)
	}
	if result.Count == 0 {
		return nil, fmt.Errorf("no invoice found with number %s", invoiceNumber)
	}

	invoice := result.Records[0]
	status := recordString(invoice, "status")
	amount := formatCents(recordCents(invoice, "amount_cents"))

	var response string
	if status == "paid" {
		response = fmt.Sprintf("Invoice %s for %s has been paid in full.", invoiceNumber, amount)
	} else {
		response = fmt.Sprintf("Invoice %s for %s is %s, due %s.",
			invoiceNumber, amount, status, spokenDate(recordString(invoice, "due_date")))
	}

	return completedResult(req.Intent, response, map[string]interface{}{
		"invoice_number": invoiceNumber,
		"status":         status,
		"amount_cents":   recordCents(invoice, "amount_cents"),
		"due_date":       recordString(invoice, "due_date"),
	}, result, started), nil
}

func (a *BillingAgent) paymentStatus(ctx context.Context, req *AgentRequest) (*AgentResult, error) {
	started := time.Now()

	invoiceNumber, err := requireField(req, "invoice_number")
	if err != nil {
		return nil, err
	}

	result, err := a.lookup(ctx, req, &base.LookupRequest{
		Entity: "payments",
		Key:    invoiceNumber,
	})
	if err != nil {
		return nil, fmt.Errorf("payment lookup failed: %w", err)
	}
	if result.Count == 0 {
		return nil, fmt.Errorf("no payment on record for invoice %s", invoiceNumber)
	}

	payment := result.Records[0]
	status := recordString(payment, "status")
	amount := formatCents(recordCents(payment, "amount_cents"))

	var response string
	switch status {
	case "settled":
		response = fmt.Sprintf("Your payment of %s for invoice %s settled on %s.",
			amount, invoiceNumber, spokenDate(recordString(payment, "paid_at")))
	case "pending":
		response = fmt.Sprintf("Your payment of %s for invoice %s is still pending.",
			amount, invoiceNumber)
	default:
		response = fmt.Sprintf("The payment for invoice %s is %s.", invoiceNumber, status)
	}

	return completedResult(req.Intent, response, map[string]interface{}{
		"invoice_number": invoiceNumber,
		"status":         status,
		"amount_cents":   recordCents(payment, "amount_cents"),
		"method":         recordString(payment, "method"),
	}, result, started), nil
}
