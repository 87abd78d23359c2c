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
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
)

// setupGatewayRouter builds the route table exactly as Run does, with
// the package-level components swapped for minimal instances.
func setupGatewayRouter(t *testing.T) *mux.Router {
	t.Helper()

	prevMW := tenantMW
	prevCalls := callHandlers
	prevAnalytics := analyticsHandlers
	prevTeams := teamHandlers
	prevCreds := credentialHandlers
	prevSectors := sectorHandlers
	t.Cleanup(func() {
		tenantMW = prevMW
		callHandlers = prevCalls
		analyticsHandlers = prevAnalytics
		teamHandlers = prevTeams
		credentialHandlers = prevCreds
		sectorHandlers = prevSectors
	})

	tenantMW = NewTenantMiddleware([]byte("test-secret"), true)
	callHandlers = NewCallHandlers(nil, nil, nil)
	analyticsHandlers = NewAnalyticsHandlers(nil)
	teamHandlers = NewTeamHandlers(nil)
	credentialHandlers = NewCredentialHandlers(nil)
	sectorHandlers = NewSectorHandlers(nil)

	return newGatewayRouter()
}

func TestGatewayRouterServesDocumentedPaths(t *testing.T) {
	router := setupGatewayRouter(t)

	routes := []struct{ method, path string }{
		{"POST", "/api/v1/calls/events"},
		{"GET", "/api/v1/calls"},
		{"GET", "/api/v1/calls/call-1"},
		{"GET", "/api/v1/calls/call-1/actions"},
		{"GET", "/api/v1/calls/call-1/summary"},
		{"GET", "/api/v1/calls/call-1/audit"},
		{"GET", "/api/v1/analytics/calls"},
		{"GET", "/api/v1/analytics/intents"},
		{"GET", "/api/v1/teams"},
		{"POST", "/api/v1/teams"},
		{"GET", "/api/v1/teams/t-1"},
		{"PUT", "/api/v1/teams/t-1"},
		{"DELETE", "/api/v1/teams/t-1"},
		{"POST", "/api/v1/teams/t-1/members"},
		{"DELETE", "/api/v1/teams/t-1/members/ops@example.com"},
		{"GET", "/api/v1/credentials"},
		{"POST", "/api/v1/credentials"},
		{"GET", "/api/v1/credentials/c-1"},
		{"PUT", "/api/v1/credentials/c-1"},
		{"DELETE", "/api/v1/credentials/c-1"},
		{"POST", "/api/v1/credentials/c-1/test"},
		{"GET", "/api/v1/sectors"},
		{"GET", "/api/v1/sectors/ecommerce/config"},
		{"PUT", "/api/v1/sectors/ecommerce/config"},
		{"POST", "/api/v1/admin/sectors/reload"},
		{"GET", "/health"},
		{"GET", "/metrics"},
		{"GET", "/prometheus"},
	}

	for _, rt := range routes {
		t.Run(rt.method+" "+rt.path, func(t *testing.T) {
			req := httptest.NewRequest(rt.method, rt.path, nil)
			var match mux.RouteMatch
			assert.True(t, router.Match(req, &match), "route not registered")
			assert.NoError(t, match.MatchErr)
		})
	}
}

func TestGatewayRouterRejectsPrefixedDuplicates(t *testing.T) {
	router := setupGatewayRouter(t)

	req := httptest.NewRequest("GET", "/api/v1/api/v1/calls", nil)
	var match mux.RouteMatch
	assert.False(t, router.Match(req, &match))
}

func TestGatewayRouterRequiresTenantAuth(t *testing.T) {
	router := setupGatewayRouter(t)

	req := httptest.NewRequest("GET", "/api/v1/teams", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "UNAUTHORIZED")
}

func TestGatewayRouterHealthOutsideAuth(t *testing.T) {
	router := setupGatewayRouter(t)

	req := httptest.NewRequest("GET", "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "callweave-gateway")
}
