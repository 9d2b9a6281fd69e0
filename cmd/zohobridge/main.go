package main

import (
	"flag"
	"log"
	"net/http"

	"github.com/botworks/zohobridge/internal/auth/token"
	"github.com/botworks/zohobridge/internal/config"
	"github.com/botworks/zohobridge/internal/db"
	"github.com/botworks/zohobridge/internal/gateway"
	"github.com/botworks/zohobridge/internal/observe"
	"github.com/botworks/zohobridge/internal/projects"
	"github.com/botworks/zohobridge/internal/ratelimit"
	"github.com/botworks/zohobridge/internal/server"
	"github.com/botworks/zohobridge/internal/store"
	"github.com/botworks/zohobridge/internal/version"
)

func main() {
	configPath := flag.String("config", "zohobridge.yaml", "path to the YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize database
	database, err := db.Init(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	obs := observe.LogObserver{}
	credentials := store.New(database)

	// Token manager handles per-conversation OAuth refresh.
	tokens := token.NewManager(credentials, token.Config{
		TokenURL:     cfg.Zoho.AccountsURL,
		ClientID:     cfg.Zoho.ClientID,
		ClientSecret: cfg.Zoho.ClientSecret,
	}, obs)

	// All upstream traffic goes through the limiter and the gateway.
	limiter := ratelimit.New(ratelimit.Config{
		MinSpacing:        cfg.MinSpacing(),
		MaxCallsPerWindow: cfg.RateLimit.MaxCallsPerWindow,
		Window:            cfg.Window(),
	}, obs)
	gw := gateway.New(cfg.Zoho.APIBaseURL, limiter, tokens, obs)
	svc := projects.NewService(gw, obs)

	router := server.NewRouter(server.Deps{
		Store:         credentials,
		Projects:      svc,
		DefaultPortal: cfg.Zoho.DefaultPortalID,
	})

	log.Printf("🚀 ZohoBridge %s starting on http://%s", version.Version, cfg.Server.Addr)
	if err := http.ListenAndServe(cfg.Server.Addr, router); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
