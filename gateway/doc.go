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

// Package gateway implements the CallWeave call-center backend: it
// accepts inbound and outbound call events, dispatches detected intents
// to sector agents through the orchestrator, persists calls, actions,
// and analytics to PostgreSQL, and serves the admin APIs for teams,
// credentials, and sector configuration.
//
// All tenant data is isolated by client_id; the tenancy middleware
// resolves the tenant from a JWT bearer token or the X-Client-ID header
// and every repository scopes its SQL to that tenant.
//
// Run() in run.go is the entry point used by cmd/gateway.
package gateway
