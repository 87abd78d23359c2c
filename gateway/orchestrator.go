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
	"log"
	"strings"
	"sync"
	"time"
)

// maxCallAge bounds how long an active call entry may live before the
// janitor reclaims it. Telephony providers occasionally drop the
// call_ended event.
const maxCallAge = 4 * time.Hour

// ActiveCall tracks one in-progress call and the agent state bound to it
type ActiveCall struct {
	CallID    string
	ClientID  string
	Sector    string
	Direction string
	Caller    string
	StartedAt time.Time
	Intents   []string // intents dispatched so far, in order
}

// SectorGate decides whether a sector is enabled for a tenant
type SectorGate interface {
	SectorEnabled(ctx context.Context, clientID, sector string) (bool, error)
}

// AgentOrchestrator is the dispatch table between call events and
// sector agents. Sector configs and agents are held in RWMutex-guarded
// maps that reload by building fresh maps and swapping them in, so
// dispatches never observe a half-loaded registry.
type AgentOrchestrator struct {
	mu      sync.RWMutex
	sectors map[string]*SectorConfigFile   // sector name -> config
	agents  map[string]SectorAgent         // "sector/intent" -> agent
	routing map[string][]CompiledRoutingRule

	activeMu sync.Mutex
	active   map[string]*ActiveCall // call ID -> state

	gate SectorGate

	stopJanitor chan struct{}
	janitorOnce sync.Once
}

// NewAgentOrchestrator creates an empty orchestrator; call Reload to
// populate it.
func NewAgentOrchestrator(gate SectorGate) *AgentOrchestrator {
	o := &AgentOrchestrator{
		sectors:     make(map[string]*SectorConfigFile),
		agents:      make(map[string]SectorAgent),
		routing:     make(map[string][]CompiledRoutingRule),
		active:      make(map[string]*ActiveCall),
		gate:        gate,
		stopJanitor: make(chan struct{}),
	}
	go o.janitor()
	return o
}

// SetGate installs the sector gate. Call before serving traffic; the
// gate is needed by services that are themselves built around the
// orchestrator's catalog.
func (o *AgentOrchestrator) SetGate(gate SectorGate) {
	o.mu.Lock()
	o.gate = gate
	o.mu.Unlock()
}

// agentKey builds the registry key for a sector/intent pair
func agentKey(sector, intent string) string {
	return sector + "/" + intent
}

// Reload swaps in a new set of sector configs and agents. Existing
// active-call state is untouched.
func (o *AgentOrchestrator) Reload(configs map[string]*SectorConfigFile, agents []SectorAgent) error {
	newSectors := make(map[string]*SectorConfigFile, len(configs))
	newAgents := make(map[string]SectorAgent)
	newRouting := make(map[string][]CompiledRoutingRule, len(configs))

	for name, config := range configs {
		if err := config.Validate(); err != nil {
			return fmt.Errorf("sector %s: %w", name, err)
		}
		newSectors[name] = config
		newRouting[name] = config.CompileRouting()
	}

	for _, agent := range agents {
		config, ok := newSectors[agent.Sector()]
		if !ok {
			return fmt.Errorf("agent for sector %q has no sector config", agent.Sector())
		}
		for _, intent := range agent.Intents() {
			if _, ok := config.Intent(intent); !ok {
				return fmt.Errorf("agent intent %s/%s not declared in sector config",
					agent.Sector(), intent)
			}
			key := agentKey(agent.Sector(), intent)
			if _, dup := newAgents[key]; dup {
				return fmt.Errorf("duplicate agent registration for %s", key)
			}
			newAgents[key] = agent
		}
	}

	o.mu.Lock()
	o.sectors = newSectors
	o.agents = newAgents
	o.routing = newRouting
	o.mu.Unlock()

	log.Printf("[ORCHESTRATOR] Loaded %d sectors, %d intent handlers",
		len(newSectors), len(newAgents))
	return nil
}

// RegisterCall records a new active call. Re-registering an existing
// call ID is an error; telephony layers retry event delivery.
func (o *AgentOrchestrator) RegisterCall(event *CallEvent) error {
	o.mu.RLock()
	_, sectorKnown := o.sectors[event.Sector]
	o.mu.RUnlock()
	if !sectorKnown {
		return fmt.Errorf("unknown sector %q", event.Sector)
	}

	o.activeMu.Lock()
	defer o.activeMu.Unlock()

	if _, exists := o.active[event.CallID]; exists {
		return fmt.Errorf("call %s already registered", event.CallID)
	}
	o.active[event.CallID] = &ActiveCall{
		CallID:    event.CallID,
		ClientID:  event.ClientID,
		Sector:    event.Sector,
		Direction: event.Direction,
		Caller:    event.Caller,
		StartedAt: time.Now(),
	}
	return nil
}

// ReleaseCall removes the active entry and returns it, or nil when the
// call was never registered (or already swept).
func (o *AgentOrchestrator) ReleaseCall(callID string) *ActiveCall {
	o.activeMu.Lock()
	defer o.activeMu.Unlock()

	call := o.active[callID]
	delete(o.active, callID)
	return call
}

// ActiveCallInfo returns a copy of the active call state
func (o *AgentOrchestrator) ActiveCallInfo(callID string) (*ActiveCall, bool) {
	o.activeMu.Lock()
	defer o.activeMu.Unlock()

	call, ok := o.active[callID]
	if !ok {
		return nil, false
	}
	cp := *call
	return &cp, true
}

// Dispatch routes an intent_detected event to the sector agent and
// returns its result. The intent may be named explicitly or inferred
// from the utterance through the sector's keyword routing rules.
func (o *AgentOrchestrator) Dispatch(ctx context.Context, event *CallEvent) (*AgentResult, error) {
	o.activeMu.Lock()
	call, registered := o.active[event.CallID]
	o.activeMu.Unlock()
	if !registered {
		return nil, fmt.Errorf("call %s is not active", event.CallID)
	}
	if call.ClientID != event.ClientID {
		return nil, fmt.Errorf("call %s does not belong to this tenant", event.CallID)
	}

	sector := call.Sector

	o.mu.RLock()
	gate := o.gate
	o.mu.RUnlock()
	if gate != nil {
		enabled, err := gate.SectorEnabled(ctx, event.ClientID, sector)
		if err != nil {
			return nil, fmt.Errorf("failed to check sector status: %w", err)
		}
		if !enabled {
			return nil, fmt.Errorf("sector %s is not enabled for this tenant", sector)
		}
	}

	intent := event.Intent
	if intent == "" {
		intent = o.routeByKeywords(sector, event.Utterance)
		if intent == "" {
			return nil, fmt.Errorf("could not determine intent from utterance")
		}
		// Write the inferred intent back so a failed dispatch is still
		// attributed to it in actions and analytics
		event.Intent = intent
	}

	o.mu.RLock()
	agent, ok := o.agents[agentKey(sector, intent)]
	config := o.sectors[sector]
	o.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no agent for %s/%s", sector, intent)
	}

	timeout := 10 * time.Second
	if config != nil && config.Spec.Execution.TimeoutSeconds > 0 {
		timeout = time.Duration(config.Spec.Execution.TimeoutSeconds) * time.Second
	}
	dispatchCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	result, err := agent.Handle(dispatchCtx, &AgentRequest{
		CallID:    event.CallID,
		ClientID:  event.ClientID,
		Sector:    sector,
		Intent:    intent,
		Utterance: event.Utterance,
		Fields:    event.Fields,
		Caller:    event.Caller,
	})
	if err != nil {
		return nil, err
	}

	o.activeMu.Lock()
	if call, ok := o.active[event.CallID]; ok {
		call.Intents = append(call.Intents, intent)
	}
	o.activeMu.Unlock()

	return result, nil
}

// routeByKeywords matches the utterance against the sector's compiled
// routing rules; highest priority rule with any keyword hit wins.
func (o *AgentOrchestrator) routeByKeywords(sector, utterance string) string {
	if utterance == "" {
		return ""
	}
	lowered := strings.ToLower(utterance)

	o.mu.RLock()
	rules := o.routing[sector]
	o.mu.RUnlock()

	for _, rule := range rules {
		for _, keyword := range rule.Keywords {
			if strings.Contains(lowered, keyword) {
				return rule.Intent
			}
		}
	}
	return ""
}

// OrchestratorStats is the shape returned by Stats for the health and
// metrics endpoints
type OrchestratorStats struct {
	Sectors     int `json:"sectors"`
	Agents      int `json:"agents"`
	ActiveCalls int `json:"active_calls"`
}

// Stats reports registry and active-call counts
func (o *AgentOrchestrator) Stats() OrchestratorStats {
	o.mu.RLock()
	sectors := len(o.sectors)
	agents := len(o.agents)
	o.mu.RUnlock()

	o.activeMu.Lock()
	activeCalls := len(o.active)
	o.activeMu.Unlock()

	return OrchestratorStats{
		Sectors:     sectors,
		Agents:      agents,
		ActiveCalls: activeCalls,
	}
}

// Sectors returns the loaded sector configs keyed by name
func (o *AgentOrchestrator) Sectors() map[string]*SectorConfigFile {
	o.mu.RLock()
	defer o.mu.RUnlock()

	out := make(map[string]*SectorConfigFile, len(o.sectors))
	for name, config := range o.sectors {
		out[name] = config
	}
	return out
}

// Close stops the janitor
func (o *AgentOrchestrator) Close() {
	o.janitorOnce.Do(func() { close(o.stopJanitor) })
}

// janitor sweeps active calls that outlived maxCallAge
func (o *AgentOrchestrator) janitor() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-o.stopJanitor:
			return
		case <-ticker.C:
			o.sweepStaleCalls(time.Now())
		}
	}
}

func (o *AgentOrchestrator) sweepStaleCalls(now time.Time) {
	o.activeMu.Lock()
	defer o.activeMu.Unlock()

	for callID, call := range o.active {
		if now.Sub(call.StartedAt) > maxCallAge {
			log.Printf("[ORCHESTRATOR] Sweeping stale call %s (started %s)",
				callID, call.StartedAt.Format(time.RFC3339))
			delete(o.active, callID)
		}
	}
}
