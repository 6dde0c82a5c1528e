package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"videostack-backend/internal/config"
	"videostack-backend/internal/database"
	"videostack-backend/internal/handlers"
	"videostack-backend/internal/logging"
	"videostack-backend/internal/middleware"
	"videostack-backend/internal/providers"
	"videostack-backend/internal/repository"
	"videostack-backend/internal/router"
	"videostack-backend/internal/services"
	"videostack-backend/internal/websocket"
)

func main() {
	log.Println("🚀 Starting VideoStack Backend...")

	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()
	logger := logging.NewLogger(cfg.LogLevel, cfg.LogFormat)
	log.Println("✓ Environment variables loaded")

	// Cancelled on shutdown. In-flight generation waits stop with it.
	lifetime, stopLifetime := context.WithCancel(context.Background())
	defer stopLifetime()

	// ──── Step 2: Initialize PostgreSQL Connection Pool ────
	pool, err := database.NewPostgresPool(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("✗ PostgreSQL connection failed: %v", err)
	}
	defer pool.Close()
	log.Println("✓ PostgreSQL connected")

	// ──── Step 3: Run Database Migrations ────
	if err := database.RunMigrations(pool); err != nil {
		log.Fatalf("✗ Database migration failed: %v", err)
	}
	log.Println("✓ Database migrations applied")

	// ──── Step 4: Initialize Redis Clients ────
	redisClients, err := database.NewRedisClients(cfg.RedisURL)
	if err != nil {
		log.Fatalf("✗ Redis connection failed: %v", err)
	}
	defer redisClients.Close()
	log.Println("✓ Redis connected")

	// ──── Step 5: Initialize Generation Providers ────
	catalog, err := providers.LoadCatalog(cfg.ProviderCatalogPath)
	if err != nil {
		log.Fatalf("✗ Provider catalog failed to load: %v", err)
	}

	adapters := []providers.Adapter{
		providers.NewPollinationsAdapter(cfg.PollinationsImageURL, cfg.PollinationsAudioURL, logger),
	}
	if cfg.ArkAPIKey != "" {
		adapters = append(adapters, providers.NewArkAdapter(cfg.ArkAPIKey, cfg.ArkBaseURL, logger))
	} else {
		log.Println("  ARK_API_KEY not set, ark models disabled")
	}
	if cfg.RunwareAPIKey != "" {
		adapters = append(adapters, providers.NewRunwareAdapter(cfg.RunwareAPIKey, cfg.RunwareBaseURL, logger))
	} else {
		log.Println("  RUNWARE_API_KEY not set, runware models disabled")
	}
	registry := providers.NewRegistry(catalog, adapters...)
	poller := providers.NewPoller(cfg.PollInterval, cfg.MaxPolls, logger)
	log.Printf("✓ %d generation providers registered (max wait %s)", len(adapters), poller.MaxWait())

	// ──── Step 6: Initialize Gemini Client ────
	var storyText services.TextGenerator
	if cfg.GeminiAPIKey != "" {
		geminiService, err := services.NewGeminiService(cfg.GeminiAPIKey, cfg.GeminiModel, 4)
		if err != nil {
			log.Fatalf("✗ Gemini client initialization failed: %v", err)
		}
		defer geminiService.Close()
		storyText = geminiService
		log.Println("✓ Gemini client initialized")
	} else {
		log.Println("  GEMINI_API_KEY not set, story drafting disabled")
	}

	// ──── Initialize Repositories ────
	userRepo := repository.NewUserRepo(pool)
	assetRepo := repository.NewAssetRepo(pool)
	generationRepo := repository.NewGenerationRepo(pool)
	storyboardRepo := repository.NewStoryboardRepo(pool)

	// ──── Initialize Services ────
	jwtAuth := middleware.NewJWTAuth(cfg.JWTSecret)
	identity := services.NewOAuthIdentityProvider(services.OAuthSettings{
		ClientID:     cfg.AuthClientID,
		ClientSecret: cfg.AuthClientSecret,
		AuthorizeURL: cfg.AuthAuthorizeURL,
		TokenURL:     cfg.AuthTokenURL,
		UserInfoURL:  cfg.AuthUserInfoURL,
		LogoutURL:    cfg.AuthLogoutURL,
		RedirectURL:  cfg.BackendURL + "/api/auth/callback",
	})
	refreshStore := services.NewRedisRefreshStore(redisClients.Tokens)
	publisher := services.NewRedisStatusPublisher(redisClients.PubSub, logger)

	authService := services.NewAuthService(userRepo, refreshStore, jwtAuth, identity)
	generationService := services.NewGenerationService(lifetime, generationRepo, registry, poller, publisher, logger)
	storyboardService := services.NewStoryboardService(storyboardRepo, generationService, logger)
	storyService := services.NewStoryService(storyText, logger)

	// ──── Step 7: Start WebSocket Hub ────
	wsHub := websocket.NewHub(redisClients.PubSub, jwtAuth)
	log.Println("✓ WebSocket hub started")

	// ──── Step 8: Start HTTP Server ────
	r := router.New(lifetime, jwtAuth, router.Handlers{
		Auth:       handlers.NewAuthHandler(authService, cfg.FrontendURL),
		Assets:     handlers.NewAssetHandler(assetRepo),
		Generation: handlers.NewGenerationHandler(generationService),
		Storyboard: handlers.NewStoryboardHandler(storyboardService),
		Story:      handlers.NewStoryHandler(storyService),
		WSHub:      wsHub,
	}, cfg.FrontendURL)

	server := &http.Server{
		Addr:        fmt.Sprintf(":%s", cfg.Port),
		Handler:     r,
		ReadTimeout: 15 * time.Second,
		// A generation request blocks for up to the full poll budget.
		WriteTimeout: cfg.MaxGenerationWait() + 60*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown. main waits on drained so deferred closes run after in-flight requests finish.
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down...")
		stopLifetime()
		wsHub.Shutdown()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			log.Printf("Shutdown did not drain cleanly: %v", err)
		}
	}()

	log.Printf("✓ VideoStack Backend ready on http://localhost:%s", cfg.Port)
	log.Printf("  API: http://localhost:%s/api", cfg.Port)
	log.Printf("  WS:  ws://localhost:%s/api/ws", cfg.Port)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}
	<-drained
	log.Println("Server stopped")
}
