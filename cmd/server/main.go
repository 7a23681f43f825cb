package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"linkarbox/internal/auth"
	"linkarbox/internal/capabilities"
	"linkarbox/internal/config"
	"linkarbox/internal/domain/models"
	"linkarbox/internal/handler"
	"linkarbox/internal/metrics"
	"linkarbox/internal/middleware"
	"linkarbox/internal/provider"
	"linkarbox/internal/provider/dropbox"
	"linkarbox/internal/provider/google"
	"linkarbox/internal/repository/postgres"
	"linkarbox/internal/service/catalog"
	"linkarbox/internal/service/collab"
	"linkarbox/internal/service/connection"

	"github.com/joho/godotenv"
	"github.com/rs/cors"
	"golang.org/x/time/rate"
)

func main() {
	// Load .env file (silently ignore if it doesn't exist - for production)
	_ = godotenv.Load()

	cfg := config.Load()

	logger, logCloser, err := config.NewLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to setup logging: %v", err)
	}
	defer logCloser.Close()
	slog.SetDefault(logger)

	logger.Info("server starting",
		"environment", cfg.Environment,
		"port", cfg.Port,
		"table_prefix", cfg.TablePrefix,
	)

	// Create JWT verifier for Supabase authentication
	jwtVerifier, err := auth.NewJWTVerifier(cfg.SupabaseJWKSURL, logger)
	if err != nil {
		log.Fatalf("Failed to create JWT verifier: %v", err)
	}
	defer jwtVerifier.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := postgres.CreateConnectionPool(ctx, cfg.SupabaseDBURL)
	if err != nil {
		log.Fatalf("Failed to create connection pool: %v", err)
	}
	defer pool.Close()

	logger.Info("database connected",
		"max_conns", pool.Config().MaxConns,
		"min_conns", pool.Config().MinConns,
	)

	// Create repositories
	repoConfig := &postgres.RepositoryConfig{
		Pool:   pool,
		Tables: postgres.NewTableNames(cfg.TablePrefix),
		Logger: logger,
	}
	profileRepo := postgres.NewProfileRepository(repoConfig)
	connectionRepo := postgres.NewCloudConnectionRepository(repoConfig)
	clientRepo := postgres.NewClientRepository(repoConfig)
	shareRepo := postgres.NewSharedFileRepository(repoConfig)
	registryRepo := postgres.NewFileRegistryRepository(repoConfig)
	noteRepo := postgres.NewNoteRepository(repoConfig)
	txManager := postgres.NewTransactionManager(pool, logger)

	// Cloud providers
	adapters := provider.NewRegistry()
	adapters.Register(models.ProviderGoogle, google.Factory)
	adapters.Register(models.ProviderDropbox, dropbox.Factory)

	capabilityRegistry, err := capabilities.NewRegistry()
	if err != nil {
		log.Fatalf("Failed to initialize capability registry: %v", err)
	}
	logger.Info("capability registry initialized")

	// Create services
	connectionService := connection.NewService(connectionRepo, adapters, connection.NewOAuthConfigs(cfg), logger)
	overlayService := collab.NewOverlayService(shareRepo, noteRepo, logger)
	catalogService, err := catalog.NewService(connectionService, overlayService, capabilityRegistry, cfg, logger)
	if err != nil {
		log.Fatalf("Failed to create catalog service: %v", err)
	}
	adminClient := auth.NewAdminClient(cfg.SupabaseURL, cfg.SupabaseKey)
	clientService := collab.NewClientService(clientRepo, profileRepo, adminClient, txManager, cfg, logger)
	shareService := collab.NewShareService(shareRepo, clientRepo, connectionService, logger)
	noteService := collab.NewNoteService(registryRepo, noteRepo, clientRepo, shareRepo, logger)

	// Create handlers
	healthHandler := handler.NewHealthHandler(pool, logger)
	catalogHandler := handler.NewCatalogHandler(catalogService, logger)
	connectionHandler := handler.NewConnectionHandler(connectionService, cfg.AppURL, logger)
	clientHandler := handler.NewClientHandler(clientService, logger)
	shareHandler := handler.NewShareHandler(shareService, logger)
	noteHandler := handler.NewNoteHandler(noteService, logger)

	logger.Info("services initialized")

	// Create HTTP router (Go 1.22+ enhanced patterns)
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", healthHandler.HealthCheck)
	mux.Handle("GET /metrics", metrics.Handler())

	// Catalog routes
	mux.HandleFunc("GET /api/files", catalogHandler.List)
	mux.HandleFunc("POST /api/files/refresh", catalogHandler.Refresh)
	mux.HandleFunc("POST /api/files/upload", catalogHandler.Upload)
	mux.HandleFunc("GET /api/files/recent", catalogHandler.Recent)
	mux.HandleFunc("POST /api/folders", catalogHandler.CreateFolder)
	mux.HandleFunc("PATCH /api/items", catalogHandler.Rename)
	mux.HandleFunc("DELETE /api/items", catalogHandler.Delete)
	mux.HandleFunc("POST /api/items/star", catalogHandler.ToggleStar)
	mux.HandleFunc("GET /api/items/preview", catalogHandler.Preview)
	mux.HandleFunc("POST /api/items/select", catalogHandler.Select)
	mux.HandleFunc("DELETE /api/items/select", catalogHandler.ClearSelection)
	mux.HandleFunc("GET /api/storage/quota", catalogHandler.Quota)

	// Connection routes
	mux.HandleFunc("GET /api/connections", connectionHandler.Status)
	mux.HandleFunc("POST /api/connections/dropbox/redirect", connectionHandler.ConnectRedirect)
	mux.HandleFunc("POST /api/connections/{provider}/authorize", connectionHandler.Authorize)
	mux.HandleFunc("POST /api/connections/{provider}/token", connectionHandler.ConnectToken)
	mux.HandleFunc("PATCH /api/connections/{provider}", connectionHandler.SetKeepConnected)
	mux.HandleFunc("DELETE /api/connections/{provider}", connectionHandler.Disconnect)
	mux.HandleFunc("GET "+connection.GoogleCallbackPath, connectionHandler.Callback)
	mux.HandleFunc("GET "+connection.DropboxCallbackPath, connectionHandler.Callback)

	// Client routes
	mux.HandleFunc("GET /api/clients", clientHandler.ListClients)
	mux.HandleFunc("POST /api/clients", clientHandler.CreateClient)
	mux.HandleFunc("POST /api/clients/invite", clientHandler.InviteClient)
	mux.HandleFunc("GET /api/clients/stats", clientHandler.Stats) // Must come before {id} route
	mux.HandleFunc("GET /api/clients/{id}", clientHandler.GetClient)
	mux.HandleFunc("PATCH /api/clients/{id}", clientHandler.UpdateClient)
	mux.HandleFunc("DELETE /api/clients/{id}", clientHandler.DeleteClient)
	mux.HandleFunc("POST /api/clients/{id}/resend", clientHandler.ResendInvite)

	// Public invite routes
	mux.HandleFunc("GET /invite/{token}", clientHandler.GetInvite)
	mux.HandleFunc("POST /invite/{token}", clientHandler.CompleteRegistration)

	// Share routes
	mux.HandleFunc("GET /api/shares", shareHandler.ListByArchitect)
	mux.HandleFunc("POST /api/shares", shareHandler.Share)
	mux.HandleFunc("DELETE /api/shares", shareHandler.UnshareFromClient)
	mux.HandleFunc("GET /api/shares/clients", shareHandler.ClientsForFile)
	mux.HandleFunc("PATCH /api/shares/{id}", shareHandler.UpdatePermission)
	mux.HandleFunc("DELETE /api/shares/{id}", shareHandler.Unshare)
	mux.HandleFunc("GET /api/shared", shareHandler.ListForClient)
	mux.HandleFunc("GET /api/shared/folder", shareHandler.ListSharedFolder)

	// Note routes
	mux.HandleFunc("GET /api/notes", noteHandler.ListNotes)
	mux.HandleFunc("POST /api/notes", noteHandler.CreateNote)
	mux.HandleFunc("POST /api/notes/read", noteHandler.MarkAllRead)
	mux.HandleFunc("GET /api/notes/unread", noteHandler.UnreadCount)
	mux.HandleFunc("GET /api/notes/unread-map", noteHandler.UnreadMap)
	mux.HandleFunc("PATCH /api/notes/{id}", noteHandler.UpdateNote)
	mux.HandleFunc("DELETE /api/notes/{id}", noteHandler.DeleteNote)
	mux.HandleFunc("POST /api/notes/{id}/read", noteHandler.MarkRead)

	// Build middleware chain
	var h http.Handler = mux

	// Apply middleware in reverse order (they wrap each other)
	// Order: CORS → Metrics → Recovery → RateLimit → Auth → Routes
	h = middleware.AuthMiddleware(jwtVerifier)(h)
	h = middleware.NewRateLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst).Middleware(h)
	h = middleware.Recovery(logger)(h)
	h = metrics.Middleware(h)

	// CORS - Must be before auth to handle OPTIONS pre-flight requests
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   strings.Split(cfg.CORSOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposedHeaders:   []string{"Retry-After"},
		AllowCredentials: true,
	})
	h = corsHandler.Handler(h)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           h,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      0, // Uploads and folder fetches may run for minutes
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		logger.Info("shutting down")
		cancel()

		shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
		defer done()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", "error", err)
		}
	}()

	logger.Info("server listening", "port", cfg.Port)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("Failed to start server: %v", err)
	}
}
