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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"callweave/platform/connectors/base"
)

// memoryResolver serves the seeded demo source for every tenant
type memoryResolver struct {
	source base.DataSource
}

func (r *memoryResolver) Resolve(ctx context.Context, clientID, sector string) base.DataSource {
	return r.source
}

func demoResolver(t *testing.T) SourceResolver {
	t.Helper()
	src := base.NewMemorySource()
	require.NoError(t, src.Connect(context.Background(), &base.SourceConfig{Name: "demo"}))
	return &memoryResolver{source: src}
}

func agentRequest(sector, intent string, fields map[string]interface{}) *AgentRequest {
	return &AgentRequest{
		CallID:   "call-1",
		ClientID: "client-1",
		Sector:   sector,
		Intent:   intent,
		Fields:   fields,
	}
}

func TestEcommerceOrderLookup(t *testing.T) {
	agent := NewEcommerceAgent(demoResolver(t), nil)

	result, err := agent.Handle(context.Background(), agentRequest("ecommerce", "order_lookup",
		map[string]interface{}{"order_number": "A-20451"}))
	require.NoError(t, err)
	assert.Contains(t, result.Response, "A-20451")
	assert.Contains(t, result.Response, "$129.99")
	assert.Equal(t, "shipped", result.Payload["status"])
}

func TestEcommerceOrderStatusShipped(t *testing.T) {
	agent := NewEcommerceAgent(demoResolver(t), nil)

	result, err := agent.Handle(context.Background(), agentRequest("ecommerce", "order_status",
		map[string]interface{}{"order_number": "A-20451"}))
	require.NoError(t, err)
	assert.Contains(t, result.Response, "shipped")
	assert.Contains(t, result.Response, "UPS")
}

func TestEcommerceMissingOrderNumber(t *testing.T) {
	agent := NewEcommerceAgent(demoResolver(t), nil)

	_, err := agent.Handle(context.Background(), agentRequest("ecommerce", "order_lookup", nil))
	require.Error(t, err)

	var missing *MissingFieldError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "order_number", missing.Field)
}

func TestEcommerceOrderNotFound(t *testing.T) {
	agent := NewEcommerceAgent(demoResolver(t), nil)

	_, err := agent.Handle(context.Background(), agentRequest("ecommerce", "order_lookup",
		map[string]interface{}{"order_number": "A-99999"}))
	assert.Error(t, err)
}

func TestEcommerceUnknownIntent(t *testing.T) {
	agent := NewEcommerceAgent(demoResolver(t), nil)

	_, err := agent.Handle(context.Background(), agentRequest("ecommerce", "refund_request", nil))
	assert.Error(t, err)
}

func TestBillingInvoiceLookupOpen(t *testing.T) {
	agent := NewBillingAgent(demoResolver(t), nil)

	result, err := agent.Handle(context.Background(), agentRequest("billing", "invoice_lookup",
		map[string]interface{}{"invoice_number": "INV-2025-0041"}))
	require.NoError(t, err)
	assert.Contains(t, result.Response, "INV-2025-0041")
	assert.Contains(t, result.Response, "open")
	assert.Contains(t, result.Response, "$189.50")
}

func TestBillingInvoiceLookupPaid(t *testing.T) {
	agent := NewBillingAgent(demoResolver(t), nil)

	result, err := agent.Handle(context.Background(), agentRequest("billing", "invoice_lookup",
		map[string]interface{}{"invoice_number": "INV-2025-0040"}))
	require.NoError(t, err)
	assert.Contains(t, result.Response, "paid in full")
}

func TestBillingPaymentStatusSettled(t *testing.T) {
	agent := NewBillingAgent(demoResolver(t), nil)

	result, err := agent.Handle(context.Background(), agentRequest("billing", "payment_status",
		map[string]interface{}{"invoice_number": "INV-2025-0040"}))
	require.NoError(t, err)
	assert.Contains(t, result.Response, "settled")
}

func TestBillingMissingInvoiceNumber(t *testing.T) {
	agent := NewBillingAgent(demoResolver(t), nil)

	_, err := agent.Handle(context.Background(), agentRequest("billing", "payment_status",
		map[string]interface{}{"invoice_number": "  "}))
	require.Error(t, err)

	var missing *MissingFieldError
	assert.ErrorAs(t, err, &missing)
}

func TestHealthcareAvailability(t *testing.T) {
	agent := NewHealthcareAgent(demoResolver(t), nil)

	result, err := agent.Handle(context.Background(), agentRequest("healthcare", "appointment_availability",
		map[string]interface{}{"specialty": "dermatology"}))
	require.NoError(t, err)
	assert.Contains(t, result.Response, "Dr. Chen")

	slots, ok := result.Payload["slots"].([]string)
	require.True(t, ok)
	assert.Len(t, slots, 2)
}

func TestHealthcareAvailabilityNoneOpen(t *testing.T) {
	agent := NewHealthcareAgent(demoResolver(t), nil)

	_, err := agent.Handle(context.Background(), agentRequest("healthcare", "appointment_availability",
		map[string]interface{}{"specialty": "neurology"}))
	assert.Error(t, err)
}

func TestHealthcareBooking(t *testing.T) {
	agent := NewHealthcareAgent(demoResolver(t), nil)

	result, err := agent.Handle(context.Background(), agentRequest("healthcare", "appointment_booking",
		map[string]interface{}{"appointment_id": "APT-88120", "patient_name": "Jamie Rivera"}))
	require.NoError(t, err)
	assert.Contains(t, result.Response, "Jamie Rivera")
	assert.Contains(t, result.Response, "Dr. Chen")
}

func TestHealthcareBookingSlotTaken(t *testing.T) {
	agent := NewHealthcareAgent(demoResolver(t), nil)

	_, err := agent.Handle(context.Background(), agentRequest("healthcare", "appointment_booking",
		map[string]interface{}{"appointment_id": "APT-88122", "patient_name": "Jamie Rivera"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no longer available")
}

func TestHealthcareBookingRequiresPatientName(t *testing.T) {
	agent := NewHealthcareAgent(demoResolver(t), nil)

	_, err := agent.Handle(context.Background(), agentRequest("healthcare", "appointment_booking",
		map[string]interface{}{"appointment_id": "APT-88120"}))
	require.Error(t, err)

	var missing *MissingFieldError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "patient_name", missing.Field)
}

func TestRealEstatePropertyLookup(t *testing.T) {
	agent := NewRealEstateAgent(demoResolver(t), nil)

	result, err := agent.Handle(context.Background(), agentRequest("realestate", "property_lookup",
		map[string]interface{}{"listing_id": "MLS-44812"}))
	require.NoError(t, err)
	assert.Contains(t, result.Response, "412 Maple Ave")
	assert.Contains(t, result.Response, "$475000.00")
}

func TestRealEstateViewingOpenHouse(t *testing.T) {
	agent := NewRealEstateAgent(demoResolver(t), nil)

	result, err := agent.Handle(context.Background(), agentRequest("realestate", "viewing_scheduling",
		map[string]interface{}{"listing_id": "MLS-44812", "visitor_name": "Morgan Lee"}))
	require.NoError(t, err)
	assert.Contains(t, result.Response, "open house")
	assert.Contains(t, result.Response, "Morgan Lee")
}

func TestRealEstateViewingInactiveListing(t *testing.T) {
	agent := NewRealEstateAgent(demoResolver(t), nil)

	_, err := agent.Handle(context.Background(), agentRequest("realestate", "viewing_scheduling",
		map[string]interface{}{"listing_id": "MLS-44990", "visitor_name": "Morgan Lee"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not accepting viewings")
}

func TestAgentLookupUsesCache(t *testing.T) {
	cache := NewMemoryLookupCache(5 * time.Second)
	t.Cleanup(cache.Close)
	agent := NewEcommerceAgent(demoResolver(t), cache)

	req := agentRequest("ecommerce", "order_lookup",
		map[string]interface{}{"order_number": "A-20451"})

	first, err := agent.Handle(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, first.Cached)

	second, err := agent.Handle(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, second.Cached)
}
