package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/cors"

	"codeshare/internal/auth"
	"codeshare/internal/config"
	"codeshare/internal/domain/repositories"
	"codeshare/internal/handler"
	"codeshare/internal/handler/sse"
	"codeshare/internal/language"
	"codeshare/internal/middleware"
	"codeshare/internal/repository/memory"
	"codeshare/internal/repository/postgres"
	serviceDocsystem "codeshare/internal/service/docsystem"
	servicePresence "codeshare/internal/service/presence"
	serviceQuery "codeshare/internal/service/query"
	serviceSession "codeshare/internal/service/session"
	serviceSharing "codeshare/internal/service/sharing"
)

func main() {
	// Load .env file (silently ignore if it doesn't exist - for production)
	_ = godotenv.Load()

	// Load configuration
	cfg := config.Load()

	// Setup structured logging
	logLevel := slog.LevelInfo
	if cfg.Debug {
		logLevel = slog.LevelDebug
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("server starting",
		"environment", cfg.Environment,
		"port", cfg.Port,
		"table_prefix", cfg.TablePrefix,
	)

	// Create JWT verifier
	jwtVerifier, err := auth.NewJWTVerifier(cfg.JWKSURL, logger)
	if err != nil {
		log.Fatalf("Failed to create JWT verifier: %v", err)
	}
	defer jwtVerifier.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Create repositories. A missing DATABASE_URL selects the in-memory
	// store, which keeps local development free of database setup.
	var (
		docStore    repositories.DocumentStore
		presStore   repositories.PresenceStore
		noteRepo    repositories.NotificationRepository
		identityDir repositories.IdentityDirectory
		txManager   repositories.TransactionManager
	)

	if cfg.DatabaseURL == "" {
		logger.Warn("DATABASE_URL not set, using in-memory store")
		store := memory.NewStore()
		docStore = store.Documents()
		presStore = store.Presence()
		noteRepo = store.Notifications()
		identityDir = store.Identities()
		txManager = store
	} else {
		pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to create connection pool: %v", err)
		}
		defer pool.Close()

		logger.Info("database connected",
			"max_conns", 25,
			"min_conns", 5,
		)

		tables := postgres.NewTableNames(cfg.TablePrefix)
		if err := postgres.Migrate(ctx, pool, tables); err != nil {
			log.Fatalf("Failed to migrate schema: %v", err)
		}

		repoConfig := &postgres.RepositoryConfig{
			Pool:    pool,
			Tables:  tables,
			Brokers: postgres.NewBrokers(),
			Logger:  logger,
		}
		docStore = postgres.NewDocumentStore(repoConfig)
		presStore = postgres.NewPresenceStore(repoConfig)
		noteRepo = postgres.NewNotificationRepository(repoConfig)
		identityDir = postgres.NewIdentityDirectory(repoConfig)
		txManager = postgres.NewTransactionManager(pool)
	}

	// Language registry for extension-based detection on file creation
	languages, err := language.NewRegistry()
	if err != nil {
		log.Fatalf("Failed to load language registry: %v", err)
	}

	// Create services
	docService := serviceDocsystem.NewDocumentService(docStore, languages, logger)
	queryService := serviceQuery.NewQueryService(docStore, logger)
	presenceTracker := servicePresence.NewTracker(presStore, cfg, logger)
	sessionService := serviceSession.NewService(docStore, presenceTracker, cfg, logger)
	sharingService := serviceSharing.NewSharingService(docStore, noteRepo, identityDir, txManager, logger)

	// Stale presence entries age out in the background
	go presenceTracker.RunSweeper(ctx)

	logger.Info("services initialized")

	// Create handlers
	sseConfig := sse.DefaultConfig()
	docHandler := handler.NewDocumentHandler(docService, logger)
	listingHandler := handler.NewListingHandler(queryService, sseConfig, logger)
	sharingHandler := handler.NewSharingHandler(sharingService, logger)
	notificationHandler := handler.NewNotificationHandler(sharingService, sseConfig, logger)
	sessionHandler := handler.NewSessionHandler(sessionService, logger)

	// Create HTTP router (Go 1.22+ enhanced patterns)
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("GET /health", docHandler.HealthCheck)

	// Document routes
	mux.HandleFunc("POST /api/documents", docHandler.CreateDocument)
	mux.HandleFunc("GET /api/documents", listingHandler.ListDocuments)
	mux.HandleFunc("GET /api/documents/stream", listingHandler.StreamDocuments) // Must come before {id} route
	mux.HandleFunc("GET /api/documents/{id}", docHandler.GetDocument)
	mux.HandleFunc("PATCH /api/documents/{id}", docHandler.UpdateDocument)
	mux.HandleFunc("DELETE /api/documents/{id}", docHandler.DeleteDocument)

	// Live session route (WebSocket upgrade)
	mux.HandleFunc("GET /api/documents/{id}/session", sessionHandler.OpenSession)

	// Sharing routes
	mux.HandleFunc("POST /api/documents/{id}/shares", sharingHandler.ShareDocument)
	mux.HandleFunc("PATCH /api/documents/{id}/shares/{key}", sharingHandler.UpdateShare)
	mux.HandleFunc("DELETE /api/documents/{id}/shares/{key}", sharingHandler.RevokeShare)

	// Notification routes
	mux.HandleFunc("GET /api/notifications", notificationHandler.ListNotifications)
	mux.HandleFunc("GET /api/notifications/stream", notificationHandler.StreamNotifications)
	mux.HandleFunc("POST /api/notifications/{id}/read", notificationHandler.MarkRead)

	// Build middleware chain
	var root http.Handler = mux

	// Apply middleware in reverse order (they wrap each other)
	// Order: CORS -> Recovery -> Auth -> Routes
	root = middleware.AuthMiddleware(jwtVerifier, identityDir, logger)(root)
	root = middleware.Recovery(logger)(root)

	// CORS - Must be before auth to handle OPTIONS pre-flight requests
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   strings.Split(cfg.CORSOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Authorization", "Last-Event-ID"},
		AllowCredentials: true,
	})
	root = corsHandler.Handler(root)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      root,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // Disabled to allow long-lived SSE and WebSocket streams
		IdleTimeout:  60 * time.Second,
	}

	// Start server
	logger.Info("server listening", "port", cfg.Port)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Failed to start server: %v", err)
	}
}
