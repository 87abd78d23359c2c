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
	"strings"
	"time"

	"callweave/platform/connectors/base"
)

// HealthcareAgent handles appointment scheduling for clinic tenants
type HealthcareAgent struct {
	agentCore
}

// NewHealthcareAgent creates the healthcare sector agent
func NewHealthcareAgent(resolver SourceResolver, cache LookupCache) *HealthcareAgent {
	return &HealthcareAgent{agentCore: newAgentCore(resolver, cache)}
}

func (a *HealthcareAgent) Sector() string { return "healthcare" }

func (a *HealthcareAgent) Intents() []string {
	return []string{"appointment_availability", "appointment_booking"}
}

func (a *HealthcareAgent) Handle(ctx context.Context, req *AgentRequest) (*AgentResult, error) {
	switch req.Intent {
	case "appointment_availability":
		return a.availability(ctx, req)
	case "appointment_booking":
		return a.booking(ctx, req)
	default:
		return nil, fmt.Errorf("healthcare agent: unknown intent %q", req.Intent)
	}
}

func (a *HealthcareAgent) availability(ctx context.Context, req *AgentRequest) (*AgentResult, error) {
	started := time.Now()

	specialty, err := requireField(req, "specialty")
	if err != nil {
		return nil, err
	}

	result, err := a.lookup(ctx, req, &base.LookupRequest{
		Entity: "appointments",
		Filters: map[string]interface{}{
			"specialty": strings.ToLower(specialty),
			"status":    "available",
		},
		Limit: 3,
	})
	if err != nil {
		return nil, fmt.Errorf("availability lookup failed: %w", err)
	}
	if result.Count == 0 {
		return nil, fmt.Errorf("no open %s appointments in the next two weeks", specialty)
	}

	slots := make([]string, 0, result.Count)
	slotIDs := make([]string, 0, result.Count)
	for _, slot := range result.Records {
		slots = append(slots, fmt.Sprintf("%s with %s",
			spokenDate(recordString(slot, "slot_start")),
			recordString(slot, "provider")))
		slotIDs = append(slotIDs, recordString(slot, "appointment_id"))
	}

	response := fmt.Sprintf("I have %d openings for %s: %s. Would you like to book one?",
		result.Count, specialty, strings.Join(slots, "; "))

	return completedResult(req.Intent, response, map[string]interface{}{
		"specialty": specialty,
		"slots":     slotIDs,
	}, result, started), nil
}

func (a *HealthcareAgent) booking(ctx context.Context, req *AgentRequest) (*AgentResult, error) {
	started := time.Now()

	appointmentID, err := requireField(req, "appointment_id")
	if err != nil {
		return nil, err
	}
	patientName, err := requireField(req, "patient_name")
	if err != nil {
		return nil, err
	}

	result, err := a.lookup(ctx, req, &base.LookupRequest{
		Entity: "appointments",
		Key:    appointmentID,
		Limit:  1,
	})
	if err != nil {
		return nil, fmt.Errorf("appointment lookup failed: %w", err)
	}
	if result.Count == 0 {
		return nil, fmt.Errorf("appointment %s not found", appointmentID)
	}

	slot := result.Records[0]
	if recordString(slot, "status") != "available" {
		return nil, fmt.Errorf("appointment %s is no longer available", appointmentID)
	}

	// The actual write-back goes through the tenant's scheduling
	// system; the agent confirms the reservation details.
	response := fmt.Sprintf("You're booked, %s: %s with %s. A confirmation will be sent shortly.",
		patientName,
		spokenDate(recordString(slot, "slot_start")),
		recordString(slot, "provider"))

	return completedResult(req.Intent, response, map[string]interface{}{
		"appointment_id": appointmentID,
		"patient_name":   patientName,
		"provider":       recordString(slot, "provider"),
		"slot_start":     recordString(slot, "slot_start"),
	}, result, started), nil
}
