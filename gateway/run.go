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
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"callweave/platform/common/usage"
)

// CallWeave Gateway - multi-tenant call event routing and sector agent
// dispatch. This service receives call events from the voice layer,
// routes intents to sector agents, and serves the management APIs.

var (
	gatewayDB        *sql.DB
	rlsManager       *RLSManager
	orchestrator     *AgentOrchestrator
	callProcessor    *CallProcessor
	auditLogger      *AuditLogger
	metricsCollector *MetricsCollector
	lookupCache      LookupCache
	sourceResolver   *BoundSourceResolver
	sectorSvc        SectorService
	tenantMW         *TenantMiddleware

	callHandlers       *CallHandlers
	analyticsHandlers  *AnalyticsHandlers
	teamHandlers       *TeamHandlers
	credentialHandlers *CredentialHandlers
	sectorHandlers     *SectorHandlers
	sectorConfigDir    string
)

// Run is the exported entry point for the gateway service.
//
// It initializes all components (database, cache, sector agents,
// management APIs), sets up HTTP routes, and starts the server. The
// function blocks until the server is shut down.
//
// Environment variables used:
//   - PORT: HTTP server port (default: 8080)
//   - DATABASE_URL or DATABASE_HOST/PORT/NAME/USER/PASSWORD/SSLMODE
//   - REDIS_URL: lookup cache backend (optional, in-memory fallback)
//   - SECTOR_CONFIG_DIR: sector YAML directory (default: configs/sectors)
//   - CALLWEAVE_JWT_SECRET: HMAC secret for bearer tokens
//   - CALLWEAVE_CREDENTIAL_KEY: credential encryption master key
//   - BEDROCK_REGION: enables post-call summarization (optional)
func Run() {
	log.Println("Starting CallWeave Gateway...")

	initializeComponents()

	defer func() {
		if orchestrator != nil {
			orchestrator.Close()
		}
		if auditLogger != nil {
			auditLogger.Close()
		}
		if sourceResolver != nil {
			sourceResolver.Close()
		}
		if gatewayDB != nil {
			gatewayDB.Close()
		}
	}()

	r := newGatewayRouter()

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"}, // Configure for production
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	port := getEnv("PORT", "8080")
	log.Printf("CallWeave Gateway listening on port %s", port)
	log.Fatal(http.ListenAndServe(":"+port, c.Handler(r)))
}

// newGatewayRouter builds the route table. Handlers register absolute
// paths, so the tenant-scoped group is a matcherless subrouter: it only
// carries the tenant middleware, never a path prefix of its own.
func newGatewayRouter() *mux.Router {
	r := mux.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(httpMetricsMiddleware)

	// Health and metrics stay outside tenant auth
	r.HandleFunc("/health", healthHandler).Methods("GET")
	r.HandleFunc("/metrics", simpleMetricsHandler).Methods("GET")
	r.Handle("/prometheus", promhttp.Handler()).Methods("GET")

	api := r.NewRoute().Subrouter()
	api.Use(tenantMW.Handler)

	callHandlers.Register(api)
	analyticsHandlers.Register(api)
	teamHandlers.Register(api, tenantMW.RequireAdmin)
	credentialHandlers.Register(api, tenantMW.RequireAdmin)
	sectorHandlers.Register(api, tenantMW.RequireAdmin)
	api.HandleFunc("/api/v1/admin/sectors/reload", tenantMW.RequireAdmin(reloadSectorsHandler)).Methods("POST")

	return r
}

func initializeComponents() {
	ctx := context.Background()

	dbURL := buildDatabaseURL()
	if dbURL == "" {
		log.Fatal("DATABASE_URL or DATABASE_HOST/DATABASE_PASSWORD must be set")
	}

	var err error
	gatewayDB, err = sql.Open("postgres", dbURL)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	if err := gatewayDB.Ping(); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}
	log.Println("Database connected")

	migrationsDir := getEnv("CALLWEAVE_MIGRATIONS_DIR", "migrations")
	if err := RunMigrations(gatewayDB, migrationsDir); err != nil {
		log.Fatalf("Migrations failed: %v", err)
	}

	rlsManager = NewRLSManager(gatewayDB)
	if rlsManager.Enabled() {
		log.Println("Row-level security session helpers detected")
	} else {
		log.Println("Row-level security helpers not installed, relying on query scoping")
	}

	lookupCache = buildLookupCache()

	masterKey, err := loadCredentialMasterKey(ctx)
	if err != nil {
		log.Fatalf("Failed to load credential master key: %v", err)
	}
	cipher, err := NewCredentialCipher(masterKey)
	if err != nil {
		log.Fatalf("Failed to initialize credential cipher: %v", err)
	}
	log.Println("Credential cipher initialized")

	sectorConfigDir = getEnv("SECTOR_CONFIG_DIR", "configs/sectors")
	configs, err := LoadSectorConfigs(sectorConfigDir)
	if err != nil {
		log.Fatalf("Failed to load sector configs from %s: %v", sectorConfigDir, err)
	}
	log.Printf("Loaded %d sector configs from %s", len(configs), sectorConfigDir)

	sectorConfigRepo := NewSectorConfigRepository(gatewayDB)
	credentialRepo := NewCredentialRepository(gatewayDB)

	// The orchestrator doubles as the sector catalog once Reload ran
	orchestrator = NewAgentOrchestrator(nil)

	credentialService := NewCredentialService(credentialRepo, cipher, orchestrator)
	sectorSvc = NewSectorService(sectorConfigRepo, orchestrator, credentialService)
	orchestrator.SetGate(sectorSvc)

	sourceResolver = NewBoundSourceResolver(sectorConfigRepo, credentialService)

	agents := []SectorAgent{
		NewEcommerceAgent(sourceResolver, lookupCache),
		NewBillingAgent(sourceResolver, lookupCache),
		NewHealthcareAgent(sourceResolver, lookupCache),
		NewRealEstateAgent(sourceResolver, lookupCache),
	}
	if err := orchestrator.Reload(configs, agents); err != nil {
		log.Fatalf("Failed to load sector agents: %v", err)
	}
	log.Printf("Agent orchestrator ready: %d sectors", len(configs))

	auditLogger = NewAuditLogger(gatewayDB, DefaultAuditLoggerConfig())
	metricsCollector = NewMetricsCollector(prometheus.DefaultRegisterer)

	summarizer, err := NewCallSummarizerFromEnv(ctx)
	if err != nil {
		log.Printf("Summarizer disabled: %v", err)
	} else if summarizer != nil {
		log.Println("Call summarizer initialized (Bedrock)")
	} else {
		log.Println("Call summarizer disabled (BEDROCK_REGION not set)")
	}

	instanceID := getEnv("HOSTNAME", "gateway")
	callProcessor = NewCallProcessor(
		orchestrator,
		NewCallRepository(gatewayDB),
		NewClientRepository(gatewayDB),
		rlsManager,
		usage.NewUsageRecorder(gatewayDB),
		auditLogger,
		summarizer,
		metricsCollector,
		instanceID,
	)

	jwtSecret := os.Getenv("CALLWEAVE_JWT_SECRET")
	if jwtSecret == "" {
		log.Println("WARNING: CALLWEAVE_JWT_SECRET not set, bearer auth disabled")
	}
	allowHeaderAuth := getEnv("CALLWEAVE_ALLOW_HEADER_AUTH", "true") == "true"
	tenantMW = NewTenantMiddleware([]byte(jwtSecret), allowHeaderAuth)

	callRepo := NewCallRepository(gatewayDB)
	callHandlers = NewCallHandlers(callProcessor, callRepo, auditLogger)
	analyticsHandlers = NewAnalyticsHandlers(callRepo)
	teamHandlers = NewTeamHandlers(NewTeamService(NewTeamRepository(gatewayDB)))
	credentialHandlers = NewCredentialHandlers(credentialService)
	sectorHandlers = NewSectorHandlers(sectorSvc)
	log.Println("Management APIs initialized")
}

// buildDatabaseURL assembles a postgres URL from separate env vars,
// falling back to DATABASE_URL.
func buildDatabaseURL() string {
	host := os.Getenv("DATABASE_HOST")
	password := os.Getenv("DATABASE_PASSWORD")
	if host == "" || password == "" {
		return os.Getenv("DATABASE_URL")
	}

	port := getEnv("DATABASE_PORT", "5432")
	name := getEnv("DATABASE_NAME", "callweave")
	user := getEnv("DATABASE_USER", "callweave_app")
	sslMode := getEnv("DATABASE_SSLMODE", "require")

	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		url.QueryEscape(user), url.QueryEscape(password), host, port, name, sslMode)
}

func buildLookupCache() LookupCache {
	ttl := 5 * time.Minute

	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		log.Println("REDIS_URL not set, using in-memory lookup cache")
		return NewMemoryLookupCache(ttl)
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		log.Printf("Invalid REDIS_URL (%v), using in-memory lookup cache", err)
		return NewMemoryLookupCache(ttl)
	}

	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		log.Printf("Redis unreachable (%v), using in-memory lookup cache", err)
		client.Close()
		return NewMemoryLookupCache(ttl)
	}

	log.Println("Redis lookup cache connected")
	return NewRedisLookupCache(client, ttl)
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	components := map[string]bool{
		"database":     gatewayDB != nil && gatewayDB.Ping() == nil,
		"orchestrator": orchestrator != nil && orchestrator.Stats().Sectors > 0,
		"audit_logger": auditLogger != nil,
	}
	if rlsManager != nil && rlsManager.Enabled() {
		components["row_level_security"] = rlsManager.HealthCheck(r.Context()) == nil
	}

	status := "healthy"
	for _, ok := range components {
		if !ok {
			status = "degraded"
			break
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]interface{}{
		"status":     status,
		"service":    "callweave-gateway",
		"version":    "1.0.0",
		"timestamp":  time.Now().UTC(),
		"components": components,
	}); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

func simpleMetricsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(metricsCollector.Snapshot(orchestrator)); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

// reloadSectorsHandler re-reads the sector config directory and swaps
// the orchestrator's registry without dropping active calls.
func reloadSectorsHandler(w http.ResponseWriter, r *http.Request) {
	configs, err := LoadSectorConfigs(sectorConfigDir)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR",
			fmt.Sprintf("failed to load sector configs: %v", err))
		return
	}

	agents := []SectorAgent{
		NewEcommerceAgent(sourceResolver, lookupCache),
		NewBillingAgent(sourceResolver, lookupCache),
		NewHealthcareAgent(sourceResolver, lookupCache),
		NewRealEstateAgent(sourceResolver, lookupCache),
	}
	if err := orchestrator.Reload(configs, agents); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	log.Printf("[GATEWAY] Sector registry reloaded: %d sectors", len(configs))
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "reloaded",
		"sectors": len(configs),
	})
}

// httpMetricsMiddleware records request counts and latencies per route
func httpMetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		if metricsCollector != nil {
			route := r.URL.Path
			if current := mux.CurrentRoute(r); current != nil {
				if tmpl, err := current.GetPathTemplate(); err == nil {
					route = tmpl
				}
			}
			metricsCollector.RecordHTTP(r.Method, route, rec.status, time.Since(start))
		}
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
