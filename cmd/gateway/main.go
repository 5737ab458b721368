package main

import (
	"context"
	"log"
	"net/http"
	"time"

	api "github.com/lamb-project/lamb-lti/internal/api/http"
	"github.com/lamb-project/lamb-lti/internal/assistant"
	auth "github.com/lamb-project/lamb-lti/internal/auth/middleware"
	"github.com/lamb-project/lamb-lti/internal/bridge"
	"github.com/lamb-project/lamb-lti/internal/config"
	"github.com/lamb-project/lamb-lti/internal/credentials"
	"github.com/lamb-project/lamb-lti/internal/db"
	"github.com/lamb-project/lamb-lti/internal/launch"
	"github.com/lamb-project/lamb-lti/internal/lock"
	"github.com/lamb-project/lamb-lti/internal/obs"
	"github.com/lamb-project/lamb-lti/internal/publish"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// --- DB ---
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		log.Fatalf("db open failed: %v", err)
	}

	assistants := assistant.NewSQLStore(dbh, cfg.DBDriver)
	creds := credentials.NewSQLStore(dbh)
	ledger := launch.NewSQLLedger(dbh)

	// --- Locks (Redis when configured, in-process otherwise) ---
	var locks lock.Locker
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatalf("redis ping failed: %v", err)
		}
		locks = lock.NewRedisLocker(rdb)
	} else {
		locks = lock.NewMemoryLocker()
	}

	// --- Core bridge ---
	core := bridge.NewClient(cfg.BridgeBaseURL, cfg.BridgeAPIKey)

	mgr := &publish.Manager{
		Assistants:         assistants,
		Credentials:        creds,
		Groups:             core,
		Models:             core,
		Locks:              locks,
		LaunchURL:          cfg.LaunchURL(),
		CompletionEndpoint: cfg.CompletionEndpoint,
		CleanupOnUnpublish: cfg.UnpublishCleanup,
	}

	orc := &launch.Orchestrator{
		Assistants:  assistants,
		Credentials: creds,
		Identity:    core,
		Groups:      core,
		Ledger:      ledger,
		ChatBaseURL: cfg.ChatBaseURL,
	}

	authSvc := auth.NewAuthService(cfg.AuthHMACSecret)

	// --- Router ---
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	if len(cfg.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.CORSOrigins,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Authorization", "Content-Type"},
			ExposedHeaders:   []string{"Content-Length"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	if cfg.EnableMetrics {
		obs.Init()
		r.Use(obs.Instrument)
		r.Handle("/metrics", obs.Handler())
	}

	// LMS-facing launch endpoint. Authenticated by the OAuth signature on the
	// form itself, not by a bearer token.
	r.Post("/simple_lti/launch", api.LaunchHandler(orc, cfg.LaunchURL()))

	// Creator-facing publish API (JWT-protected)
	r.Group(func(pr chi.Router) {
		pr.Use(auth.JWTMiddleware(authSvc))
		pr.Post("/assistant/{id}/publish", api.PublishAssistantHandler(mgr))
		pr.Post("/assistant/{id}/unpublish", api.UnpublishAssistantHandler(mgr))
		pr.Get("/assistant/{id}/lti.xml", api.CartridgeHandler(mgr))
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := dbh.PingContext(r.Context()); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(200)
	})

	log.Printf("listening on %s (db=%s, bridge=%s)", cfg.HTTPAddr, cfg.DBDriver, cfg.BridgeBaseURL)
	log.Fatal(http.ListenAndServe(cfg.HTTPAddr, r))
}
