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

// Package main is the entry point for the CallWeave Gateway service.
//
// The Gateway is the backend for CallWeave's AI call-center platform:
// - Receives call events from the voice layer and routes intents to
//   sector agents (ecommerce, billing, healthcare, realestate)
// - Persists calls, agent actions, and post-call summaries
// - Serves the management APIs (teams, credentials, sector config)
// - Exposes tenant analytics and Prometheus metrics
//
// Usage:
//
//	./gateway
//
// Environment Variables:
//
//	PORT - HTTP server port (default: 8080)
//	DATABASE_URL - PostgreSQL connection string
//	REDIS_URL - lookup cache backend (optional)
//	SECTOR_CONFIG_DIR - sector YAML directory (default: configs/sectors)
//	CALLWEAVE_JWT_SECRET - HMAC secret for bearer tokens
//	CALLWEAVE_CREDENTIAL_KEY - credential encryption master key
//	BEDROCK_REGION - enables post-call summarization (optional)
package main

import (
	"callweave/platform/gateway"
)

func main() {
	gateway.Run()
}
