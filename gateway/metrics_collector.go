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
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// MetricsCollector tracks gateway activity. Prometheus metrics are
// exposed on /prometheus for scraping; Snapshot feeds the JSON
// /metrics endpoint dashboards read directly.
type MetricsCollector struct {
	startTime time.Time

	mu            sync.RWMutex
	eventCounts   map[string]int64 // event_type -> count
	dispatchTotal int64
	dispatchFail  int64

	promEvents     *prometheus.CounterVec
	promDispatches *prometheus.CounterVec
	promDispatchMs *prometheus.HistogramVec
	promHTTP       *prometheus.CounterVec
	promHTTPMs     *prometheus.HistogramVec
}

// NewMetricsCollector creates the collector and registers its metrics
// on the given registerer.
func NewMetricsCollector(reg prometheus.Registerer) *MetricsCollector {
	c := &MetricsCollector{
		startTime:   time.Now(),
		eventCounts: make(map[string]int64),
		promEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "callweave_call_events_total",
			Help: "Call events received by type",
		}, []string{"event_type"}),
		promDispatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "callweave_agent_dispatches_total",
			Help: "Agent dispatches by sector, intent, and status",
		}, []string{"sector", "intent", "status"}),
		promDispatchMs: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "callweave_agent_dispatch_duration_seconds",
			Help:    "Agent dispatch duration",
			Buckets: prometheus.DefBuckets,
		}, []string{"sector", "intent"}),
		promHTTP: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "callweave_http_requests_total",
			Help: "HTTP requests by method, route, and status",
		}, []string{"method", "route", "status"}),
		promHTTPMs: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "callweave_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	reg.MustRegister(c.promEvents, c.promDispatches, c.promDispatchMs, c.promHTTP, c.promHTTPMs)
	return c
}

// RecordEvent counts a received call event
func (c *MetricsCollector) RecordEvent(eventType string) {
	c.promEvents.WithLabelValues(eventType).Inc()

	c.mu.Lock()
	c.eventCounts[eventType]++
	c.mu.Unlock()
}

// RecordDispatch counts an agent dispatch and observes its duration
func (c *MetricsCollector) RecordDispatch(sector, intent, status string, duration time.Duration) {
	c.promDispatches.WithLabelValues(sector, intent, status).Inc()
	c.promDispatchMs.WithLabelValues(sector, intent).Observe(duration.Seconds())

	c.mu.Lock()
	c.dispatchTotal++
	if status == "failed" {
		c.dispatchFail++
	}
	c.mu.Unlock()
}

// RecordHTTP counts an HTTP request
func (c *MetricsCollector) RecordHTTP(method, route string, status int, duration time.Duration) {
	c.promHTTP.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.promHTTPMs.WithLabelValues(method, route).Observe(duration.Seconds())
}

// Snapshot returns the JSON metrics document
func (c *MetricsCollector) Snapshot(orchestrator *AgentOrchestrator) map[string]interface{} {
	c.mu.RLock()
	events := make(map[string]int64, len(c.eventCounts))
	for k, v := range c.eventCounts {
		events[k] = v
	}
	dispatchTotal := c.dispatchTotal
	dispatchFail := c.dispatchFail
	c.mu.RUnlock()

	snapshot := map[string]interface{}{
		"uptime_seconds":    int64(time.Since(c.startTime).Seconds()),
		"events":            events,
		"dispatches_total":  dispatchTotal,
		"dispatches_failed": dispatchFail,
	}
	if orchestrator != nil {
		snapshot["orchestrator"] = orchestrator.Stats()
	}
	return snapshot
}
