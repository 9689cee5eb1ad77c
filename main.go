package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/EmpoweredVote/academic-portal/internal/admin"
	"github.com/EmpoweredVote/academic-portal/internal/api"
	"github.com/EmpoweredVote/academic-portal/internal/auth"
	"github.com/EmpoweredVote/academic-portal/internal/catalog"
	"github.com/EmpoweredVote/academic-portal/internal/config"
	"github.com/EmpoweredVote/academic-portal/internal/db"
	"github.com/EmpoweredVote/academic-portal/internal/feedback"
	"github.com/EmpoweredVote/academic-portal/internal/middleware"
	"github.com/EmpoweredVote/academic-portal/internal/session"
	"github.com/EmpoweredVote/academic-portal/internal/workspace"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
)

func RootHandler(w http.ResponseWriter, r *http.Request) {
	response := "Server is up!"
	w.Header().Set("Content-Type", "text/plain")
	fmt.Fprintln(w, response)
}

// openStore picks the session store named by the config.
func openStore(ctx context.Context, cfg config.Config) (session.Store, error) {
	switch cfg.SessionDriver {
	case config.DriverPostgres, config.DriverSQLite:
		dsn := cfg.DatabaseURL
		if cfg.SessionDriver == config.DriverSQLite {
			dsn = cfg.SQLitePath
		}
		conn, err := db.Connect(string(cfg.SessionDriver), dsn)
		if err != nil {
			return nil, err
		}
		return session.NewGormStore(conn)
	case config.DriverRedis:
		return session.NewRedisStore(ctx, cfg.RedisAddr, cfg.RedisPassword)
	case config.DriverBolt:
		return session.OpenBoltStore(cfg.BoltPath)
	default:
		return session.NewMemoryStore(), nil
	}
}

func main() {
	_ = godotenv.Load(".env.local")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}
	key, err := cfg.SealKey()
	if err != nil {
		log.Fatalf("session key: %v", err)
	}

	ctx := context.Background()
	store, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatalf("session store (%s): %v", cfg.SessionDriver, err)
	}
	provider, err := session.NewProvider(store, key)
	if err != nil {
		log.Fatalf("session provider: %v", err)
	}

	client := api.NewClient(cfg.APIURL,
		api.WithTimeout(cfg.APITimeout),
		api.WithRateLimit(cfg.APIRate, cfg.APIBurst),
	)
	hub := workspace.NewHub(client, provider, workspace.Options{
		MessageTTL:    cfg.MessageTTL,
		ReloadFloor:   cfg.ReloadFloor,
		ReloadTimeout: cfg.APITimeout,
	})

	go hub.RunSweeper(ctx, provider, cfg.SweepInterval)

	auth.Init(provider, client, cfg.CookieSecure)

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))
	r.Get("/", RootHandler)

	r.Mount("/auth", auth.SetupRoutes())
	r.Mount("/admin", admin.SetupRoutes(provider, hub))
	r.Route("/student", func(r chi.Router) {
		r.Use(middleware.PanelStack(provider, hub, session.PanelStudent)...)
		catalog.StudentRoutes(r)
		feedback.Routes(r)
	})
	r.Route("/teacher", func(r chi.Router) {
		r.Use(middleware.PanelStack(provider, hub, session.PanelTeacher)...)
		catalog.TeacherRoutes(r)
		feedback.Routes(r)
	})

	fmt.Printf("Server listening on port :%s (backend %s)...\n", cfg.Port, cfg.APIURL)

	if err := http.ListenAndServe("0.0.0.0:"+cfg.Port, r); err != nil {
		log.Fatal(err)
	}
}
