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
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"callweave/platform/common/usage"
	"callweave/platform/shared/logger"
)

// CallProcessor turns call events into orchestrator dispatches and
// database writes. It is the only component that touches all of the
// call path: registry, storage, metering, audit, and summaries.
type CallProcessor struct {
	orchestrator *AgentOrchestrator
	calls        *CallRepository
	clients      *ClientRepository
	rls          *RLSManager
	usage        *usage.UsageRecorder
	audit        *AuditLogger
	summarizer   *CallSummarizer
	metrics      *MetricsCollector
	log          *logger.Logger
	instanceID   string
}

// NewCallProcessor wires the call event pipeline. rls, usage, audit,
// summarizer, and metrics may be nil; the corresponding step is skipped.
func NewCallProcessor(
	orchestrator *AgentOrchestrator,
	calls *CallRepository,
	clients *ClientRepository,
	rls *RLSManager,
	usageRecorder *usage.UsageRecorder,
	audit *AuditLogger,
	summarizer *CallSummarizer,
	metrics *MetricsCollector,
	instanceID string,
) *CallProcessor {
	return &CallProcessor{
		orchestrator: orchestrator,
		calls:        calls,
		clients:      clients,
		rls:          rls,
		usage:        usageRecorder,
		audit:        audit,
		summarizer:   summarizer,
		metrics:      metrics,
		log:          logger.New("call-processor"),
		instanceID:   instanceID,
	}
}

// ProcessEvent validates and handles one call event
func (p *CallProcessor) ProcessEvent(ctx context.Context, event *CallEvent, requestID string) (*EventAck, error) {
	if err := validateEvent(event); err != nil {
		return nil, err
	}
	if event.EventID == "" {
		event.EventID = uuid.New().String()
	}
	if p.metrics != nil {
		p.metrics.RecordEvent(event.EventType)
	}

	p.log.InfoCall(event.ClientID, requestID, event.CallID,
		"Processing call event", map[string]interface{}{
			"event_type": event.EventType,
			"sector":     event.Sector,
			"intent":     event.Intent,
		})

	switch event.EventType {
	case EventCallStarted:
		return p.handleCallStarted(ctx, event, requestID)
	case EventIntentDetected:
		return p.handleIntentDetected(ctx, event, requestID)
	case EventCallTransferred:
		return p.handleCallEnded(ctx, event, requestID, OutcomeTransferred)
	case EventCallEnded:
		outcome := event.Outcome
		if outcome == "" {
			outcome = OutcomeResolved
		}
		return p.handleCallEnded(ctx, event, requestID, outcome)
	}
	// validateEvent already rejected unknown types
	return nil, NewValidationError("unsupported event type", nil)
}

func validateEvent(event *CallEvent) error {
	fields := make(map[string]string)
	if event.CallID == "" {
		fields["call_id"] = "required"
	}
	if event.ClientID == "" {
		fields["client_id"] = "required"
	}
	switch event.EventType {
	case EventCallStarted:
		if event.Sector == "" {
			fields["sector"] = "required for call_started"
		}
		if event.Direction != DirectionInbound && event.Direction != DirectionOutbound {
			fields["direction"] = "must be inbound or outbound"
		}
	case EventIntentDetected:
		if event.Intent == "" && event.Utterance == "" {
			fields["intent"] = "intent or utterance is required"
		}
	case EventCallTransferred, EventCallEnded:
	case "":
		fields["event_type"] = "required"
	default:
		fields["event_type"] = fmt.Sprintf("unknown event type %q", event.EventType)
	}

	if len(fields) > 0 {
		return NewValidationError("invalid call event", fields)
	}
	return nil
}

func (p *CallProcessor) handleCallStarted(ctx context.Context, event *CallEvent, requestID string) (*EventAck, error) {
	startedAt := event.Timestamp
	if startedAt.IsZero() {
		startedAt = time.Now()
	}

	err := p.withTenantCalls(ctx, event.ClientID, func(calls *CallRepository) error {
		return calls.CreateCall(ctx, &Call{
			ID:        event.CallID,
			ClientID:  event.ClientID,
			Sector:    event.Sector,
			Direction: event.Direction,
			Caller:    event.Caller,
			StartedAt: startedAt,
		})
	})
	if err != nil {
		return nil, err
	}

	if err := p.orchestrator.RegisterCall(event); err != nil {
		return nil, err
	}

	p.auditRecord(event, map[string]interface{}{
		"sector":    event.Sector,
		"direction": event.Direction,
	})

	return &EventAck{
		EventID:   event.EventID,
		CallID:    event.CallID,
		Status:    "accepted",
		RequestID: requestID,
	}, nil
}

func (p *CallProcessor) handleIntentDetected(ctx context.Context, event *CallEvent, requestID string) (*EventAck, error) {
	started := time.Now()
	result, dispatchErr := p.orchestrator.Dispatch(ctx, event)

	call, _ := p.orchestrator.ActiveCallInfo(event.CallID)
	sector := event.Sector
	if call != nil {
		sector = call.Sector
	}

	action := &CallAction{
		ID:         uuid.New().String(),
		CallID:     event.CallID,
		ClientID:   event.ClientID,
		Sector:     sector,
		Intent:     event.Intent,
		DurationMs: time.Since(started).Milliseconds(),
		CreatedAt:  time.Now(),
	}

	ack := &EventAck{
		EventID:   event.EventID,
		CallID:    event.CallID,
		RequestID: requestID,
	}

	if dispatchErr != nil {
		action.Status = "failed"
		action.ErrorMsg = dispatchErr.Error()
		ack.Status = "failed"

		var missing *MissingFieldError
		if errors.As(dispatchErr, &missing) {
			action.Payload = map[string]interface{}{"missing_field": missing.Field}
		}

		p.log.Error(event.ClientID, requestID, "Agent dispatch failed",
			map[string]interface{}{
				"call_id": event.CallID,
				"intent":  event.Intent,
				"error":   dispatchErr.Error(),
			})
	} else {
		action.Intent = result.Intent
		action.Status = "completed"
		action.Response = result.Response
		action.Payload = result.Payload
		action.DurationMs = result.DurationMs
		ack.Status = "handled"
		ack.Result = result
	}

	if p.metrics != nil {
		p.metrics.RecordDispatch(sector, action.Intent, action.Status, time.Since(started))
	}

	err := p.withTenantCalls(ctx, event.ClientID, func(calls *CallRepository) error {
		return calls.CreateAction(ctx, action)
	})
	if err != nil {
		p.log.Error(event.ClientID, requestID, "Failed to persist call action",
			map[string]interface{}{"call_id": event.CallID, "error": err.Error()})
	}

	p.auditRecord(event, map[string]interface{}{
		"intent": action.Intent,
		"status": action.Status,
	})

	// Dispatch failures are reported in the ack, not as a transport error
	return ack, nil
}

func (p *CallProcessor) handleCallEnded(ctx context.Context, event *CallEvent, requestID, outcome string) (*EventAck, error) {
	active := p.orchestrator.ReleaseCall(event.CallID)

	endedAt := event.Timestamp
	if endedAt.IsZero() {
		endedAt = time.Now()
	}

	var call *Call
	var sector string
	var durationSeconds int
	err := p.withTenantCalls(ctx, event.ClientID, func(calls *CallRepository) error {
		var err error
		call, sector, durationSeconds, err = p.resolveCallEnd(ctx, calls, event, active, endedAt)
		if err != nil {
			return err
		}
		return calls.FinalizeCall(ctx, event.ClientID, event.CallID, outcome, durationSeconds, endedAt)
	})
	if err != nil {
		return nil, err
	}

	if p.usage != nil {
		direction := call.Direction
		plan := "standard"
		if p.clients != nil {
			plan = p.clients.Plan(ctx, event.ClientID)
		}
		p.usage.RecordCallMinutes(usage.CallMinutesEvent{
			ClientID:        event.ClientID,
			CallID:          event.CallID,
			Sector:          sector,
			Plan:            plan,
			Direction:       direction,
			DurationSeconds: durationSeconds,
			InstanceID:      p.instanceID,
		})
	}

	p.auditRecord(event, map[string]interface{}{
		"outcome":          outcome,
		"duration_seconds": durationSeconds,
	})

	if p.summarizer != nil {
		p.summarizeAsync(event.ClientID, event.CallID, requestID, call, sector, outcome, durationSeconds)
	}

	return &EventAck{
		EventID:   event.EventID,
		CallID:    event.CallID,
		Status:    "accepted",
		RequestID: requestID,
	}, nil
}

// resolveCallEnd reconciles the active-call entry with the stored row.
// The janitor may have swept the entry on very long calls, so the row
// is the fallback source of truth.
func (p *CallProcessor) resolveCallEnd(ctx context.Context, calls *CallRepository, event *CallEvent, active *ActiveCall, endedAt time.Time) (*Call, string, int, error) {
	call, err := calls.GetCall(ctx, event.ClientID, event.CallID)
	if err != nil {
		return nil, "", 0, err
	}
	if call == nil {
		return nil, "", 0, fmt.Errorf("call %s not found", event.CallID)
	}

	sector := call.Sector
	startedAt := call.StartedAt
	if active != nil {
		sector = active.Sector
		startedAt = active.StartedAt
	}

	durationSeconds := int(endedAt.Sub(startedAt).Seconds())
	if durationSeconds < 0 {
		durationSeconds = 0
	}
	return call, sector, durationSeconds, nil
}

func (p *CallProcessor) summarizeAsync(clientID, callID, requestID string, call *Call, sector, outcome string, durationSeconds int) {
	finished := *call
	finished.Sector = sector
	finished.Outcome = outcome
	finished.DurationSeconds = durationSeconds

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		var actions []*CallAction
		err := p.withTenantCalls(ctx, clientID, func(calls *CallRepository) error {
			var err error
			actions, err = calls.ListActions(ctx, clientID, callID)
			return err
		})
		if err != nil {
			p.log.Error(clientID, requestID, "Failed to load actions for summary",
				map[string]interface{}{"call_id": callID, "error": err.Error()})
			return
		}

		summary, err := p.summarizer.Summarize(ctx, &finished, actions)
		if err != nil {
			p.log.Error(clientID, requestID, "Call summary generation failed",
				map[string]interface{}{"call_id": callID, "error": err.Error()})
			return
		}

		err = p.withTenantCalls(ctx, clientID, func(calls *CallRepository) error {
			return calls.CreateSummary(ctx, &CallSummary{
				ID:        uuid.New().String(),
				CallID:    callID,
				ClientID:  clientID,
				Summary:   summary,
				Model:     p.summarizer.ModelID(),
				CreatedAt: time.Now(),
			})
		})
		if err != nil {
			p.log.Error(clientID, requestID, "Failed to store call summary",
				map[string]interface{}{"call_id": callID, "error": err.Error()})
		}
	}()
}

// withTenantCalls runs fn against the call repository. When the
// database has the RLS helpers installed, the repository is pinned to a
// connection carrying the tenant session variable so the row-level
// policies apply to every statement fn issues.
func (p *CallProcessor) withTenantCalls(ctx context.Context, clientID string, fn func(calls *CallRepository) error) error {
	if p.rls == nil || !p.rls.Enabled() {
		return fn(p.calls)
	}
	return p.rls.WithTenant(ctx, clientID, func(conn *sql.Conn) error {
		return fn(p.calls.withConn(conn))
	})
}

func (p *CallProcessor) auditRecord(event *CallEvent, detail map[string]interface{}) {
	if p.audit == nil {
		return
	}
	p.audit.Record(event.ClientID, event.CallID, event.EventType, detail)
}
