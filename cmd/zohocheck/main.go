// zohocheck - end-to-end connectivity checker.
// Seeds a credential from the environment, forces a token validation,
// then runs a couple of live queries against Zoho Projects.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/botworks/zohobridge/internal/auth/token"
	"github.com/botworks/zohobridge/internal/config"
	"github.com/botworks/zohobridge/internal/db"
	"github.com/botworks/zohobridge/internal/gateway"
	"github.com/botworks/zohobridge/internal/observe"
	"github.com/botworks/zohobridge/internal/projects"
	"github.com/botworks/zohobridge/internal/ratelimit"
	"github.com/botworks/zohobridge/internal/store"
)

func main() {
	configPath := flag.String("config", "zohobridge.yaml", "path to the YAML config file")
	conversation := flag.String("conversation", "zohocheck", "conversation id to exercise")
	owner := flag.String("owner", "", "owner name to resolve (optional)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	database, err := db.Init(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	obs := observe.LogObserver{}
	credentials := store.New(database)

	// Seed a credential when the env provides one; otherwise reuse
	// whatever the database already holds for this conversation.
	if access := os.Getenv("ZOHO_ACCESS_TOKEN"); access != "" {
		_, err := credentials.Upsert(context.Background(), *conversation, "zohocheck",
			access, os.Getenv("ZOHO_REFRESH_TOKEN"), 3600)
		if err != nil {
			log.Fatalf("Failed to store credential: %v", err)
		}
		log.Printf("✅ Stored credential for conversation %s", *conversation)
	}

	tokens := token.NewManager(credentials, token.Config{
		TokenURL:     cfg.Zoho.AccountsURL,
		ClientID:     cfg.Zoho.ClientID,
		ClientSecret: cfg.Zoho.ClientSecret,
	}, obs)

	limiter := ratelimit.New(ratelimit.DefaultConfig(), obs)
	gw := gateway.New(cfg.Zoho.APIBaseURL, limiter, tokens, obs)
	svc := projects.NewService(gw, obs)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	cred, err := tokens.GetValidToken(ctx, *conversation)
	if err != nil {
		log.Fatalf("❌ Token check failed: %v", err)
	}
	log.Printf("🎫 Token valid until %s", time.UnixMilli(cred.ExpiresAt).Format(time.RFC3339))

	portal := cfg.Zoho.DefaultPortalID
	if portal == "" {
		log.Fatalf("❌ No portal configured (set ZOHO_PORTAL_ID)")
	}

	list, err := svc.Projects(ctx, *conversation, portal)
	if err != nil {
		log.Fatalf("❌ Project list failed: %v", err)
	}
	log.Printf("✅ Portal %s has %d projects", portal, len(list))

	if *owner != "" {
		resolved, err := svc.ResolveOwner(ctx, *conversation, portal, *owner)
		if err != nil {
			log.Fatalf("❌ Owner resolution failed: %v", err)
		}
		if resolved == nil {
			log.Printf("⚠️ No portal user matches %q", *owner)
			return
		}
		log.Printf("✅ Resolved %q -> %s (%s)", *owner, resolved.Name, resolved.ID)

		tasks, err := svc.PendingTasksFor(ctx, *conversation, portal, *owner)
		if err != nil {
			log.Fatalf("❌ Pending tasks failed: %v", err)
		}
		log.Printf("✅ %d pending tasks for %s", len(tasks), resolved.Name)
		for i, task := range tasks {
			line, _ := json.Marshal(task)
			fmt.Printf("  %d. %s\n", i+1, line)
		}
	}
}
