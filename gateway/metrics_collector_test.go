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
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetricsCollectorEvents(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewMetricsCollector(reg)

	c.RecordEvent(EventCallStarted)
	c.RecordEvent(EventCallStarted)
	c.RecordEvent(EventCallEnded)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.promEvents.WithLabelValues(EventCallStarted)))

	snapshot := c.Snapshot(nil)
	events := snapshot["events"].(map[string]int64)
	assert.Equal(t, int64(2), events[EventCallStarted])
	assert.Equal(t, int64(1), events[EventCallEnded])
}

func TestMetricsCollectorDispatches(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewMetricsCollector(reg)

	c.RecordDispatch("ecommerce", "order_lookup", "completed", 40*time.Millisecond)
	c.RecordDispatch("ecommerce", "order_lookup", "failed", 5*time.Millisecond)

	snapshot := c.Snapshot(nil)
	assert.Equal(t, int64(2), snapshot["dispatches_total"])
	assert.Equal(t, int64(1), snapshot["dispatches_failed"])
}

func TestMetricsCollectorSnapshotIncludesOrchestrator(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewMetricsCollector(reg)

	o := newTestOrchestrator(t, allowAllGate{})
	snapshot := c.Snapshot(o)

	stats, ok := snapshot["orchestrator"].(OrchestratorStats)
	assert.True(t, ok)
	assert.Equal(t, 1, stats.Sectors)
}
