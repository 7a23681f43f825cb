package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"path"

	"linkarbox/internal/auth"
	"linkarbox/internal/config"
	"linkarbox/internal/domain"
	"linkarbox/internal/domain/models"
	"linkarbox/internal/domain/services"
	"linkarbox/internal/repository/postgres"
	"linkarbox/internal/service/collab"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

func main() {
	// Parse command-line flags
	dropTables := flag.Bool("drop-tables", false, "Drop all tables before seeding (fresh start)")
	schemaOnly := flag.Bool("schema-only", false, "Only set up schema, don't create demo users")
	resetUsers := flag.Bool("reset-users", false, "Delete the demo auth users before recreating them")
	flag.Parse()

	_ = godotenv.Load()

	cfg := config.Load()

	// SAFETY: Prevent destructive operations in production
	if cfg.Environment == "prod" && (*dropTables || *resetUsers) {
		log.Fatalf("🚫 BLOCKED: Cannot run destructive operations (--drop-tables or --reset-users) in production environment")
	}

	logger, logCloser, err := config.NewLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to setup logging: %v", err)
	}
	defer logCloser.Close()

	if *schemaOnly {
		log.Printf("🏗️  Setting up schema only (environment: %s, prefix: %s)", cfg.Environment, cfg.TablePrefix)
	} else {
		log.Printf("🌱 Seeding database (environment: %s, prefix: %s)", cfg.Environment, cfg.TablePrefix)
	}

	ctx := context.Background()
	pool, err := postgres.CreateConnectionPool(ctx, cfg.SupabaseDBURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	tables := postgres.NewTableNames(cfg.TablePrefix)

	if *dropTables {
		log.Println("🗑️  Dropping all tables...")
		if err := dropAllTables(ctx, pool, tables); err != nil {
			log.Fatalf("Failed to drop tables: %v", err)
		}
		log.Println("✅ Tables dropped")
	}

	log.Println("📋 Ensuring database schema is up to date...")
	if err := runSchema(ctx, pool, tables, cfg.TablePrefix); err != nil {
		log.Fatalf("Failed to run schema: %v", err)
	}
	log.Println("✅ Schema ready")

	if *schemaOnly {
		log.Println("✅ Schema setup complete (schema-only mode)")
		return
	}

	admin := auth.NewAdminClient(cfg.SupabaseURL, cfg.SupabaseKey)
	architectEmail := getEnv("SEED_ARCHITECT_EMAIL", "arquiteto@linkarbox.dev")
	architectPassword := getEnv("SEED_ARCHITECT_PASSWORD", "linkarbox123")

	if *resetUsers {
		for _, email := range []string{architectEmail, getEnv("SEED_CLIENT_EMAIL", "cliente@linkarbox.dev")} {
			log.Printf("🧹 Removing demo user %s", email)
			if err := admin.DeleteUserByEmail(ctx, email); err != nil {
				log.Fatalf("Failed to delete demo user: %v", err)
			}
		}
	}

	architectID, err := ensureUser(ctx, admin, architectEmail, architectPassword)
	if err != nil {
		log.Fatalf("Failed to ensure architect user: %v", err)
	}
	log.Printf("✅ Architect user ready: %s (ID: %s)", architectEmail, architectID)

	repoConfig := &postgres.RepositoryConfig{
		Pool:   pool,
		Tables: tables,
		Logger: logger,
	}
	profileRepo := postgres.NewProfileRepository(repoConfig)
	clientRepo := postgres.NewClientRepository(repoConfig)
	txManager := postgres.NewTransactionManager(pool, logger)

	displayName := "Studio Linkarbox"
	if err := profileRepo.Upsert(ctx, &models.Profile{
		ID:          architectID,
		Name:        "Arquiteto Demo",
		DisplayName: &displayName,
		Role:        models.RoleArchitect,
	}); err != nil {
		log.Fatalf("Failed to upsert architect profile: %v", err)
	}

	clientService := collab.NewClientService(clientRepo, profileRepo, admin, txManager, cfg, logger)

	for _, req := range seedClients() {
		client, err := clientService.CreateClient(ctx, architectID, req)
		var conflict *domain.ConflictError
		switch {
		case errors.As(err, &conflict), errors.Is(err, domain.ErrConflict):
			log.Printf("⏭️  Client %s already exists", req.Email)
			continue
		case err != nil:
			log.Printf("❌ Failed to create client '%s': %v", req.Email, err)
			continue
		}
		log.Printf("✅ Created client %s (ID: %s)", client.Email, client.ID)
	}

	// A registered client goes through the same invite flow the frontend uses
	clientEmail := getEnv("SEED_CLIENT_EMAIL", "cliente@linkarbox.dev")
	invite, err := clientService.InviteClient(ctx, architectID, &services.CreateClientRequest{
		Name:  "Cliente Demo",
		Email: clientEmail,
	})
	switch {
	case errors.Is(err, domain.ErrConflict):
		log.Printf("⏭️  Client %s already exists", clientEmail)
	case err != nil:
		log.Printf("❌ Failed to invite demo client: %v", err)
	default:
		registered, err := clientService.CompleteRegistration(ctx, path.Base(invite.Link), &services.RegisterRequest{
			Name:     "Cliente Demo",
			Password: getEnv("SEED_CLIENT_PASSWORD", "linkarbox123"),
		})
		if err != nil {
			log.Printf("❌ Failed to register demo client: %v", err)
		} else {
			log.Printf("✅ Client user ready: %s (client ID: %s)", registered.Email, registered.ID)
		}
	}

	pending, err := clientService.InviteClient(ctx, architectID, &services.CreateClientRequest{
		Name:  "Cliente Convidado",
		Email: "convidado@linkarbox.dev",
	})
	if err == nil {
		log.Printf("✉️  Pending invite: %s", pending.Link)
	} else if !errors.Is(err, domain.ErrConflict) {
		log.Printf("❌ Failed to create invite: %v", err)
	}

	log.Println("🎉 Seeding complete!")
}

// ensureUser returns the id of the auth user with email, creating it if needed
func ensureUser(ctx context.Context, admin *auth.AdminClient, email, password string) (string, error) {
	id, err := admin.FindUserIDByEmail(ctx, email)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, auth.ErrUserNotFound) {
		return "", err
	}
	return admin.CreateUser(ctx, email, password, map[string]interface{}{
		"role": string(models.RoleArchitect),
	})
}

func seedClients() []*services.CreateClientRequest {
	phone := "(11) 98765-4321"
	address := "Rua das Palmeiras, 120 - São Paulo"
	return []*services.CreateClientRequest{
		{Name: "Ana Souza", Email: "ana.souza@linkarbox.dev", Phone: &phone, Address: &address},
		{Name: "Bruno Lima", Email: "bruno.lima@linkarbox.dev"},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// dropAllTables drops all tables in reverse order (to respect foreign keys)
func dropAllTables(ctx context.Context, pool *pgxpool.Pool, tables *postgres.TableNames) error {
	all := tables.All()
	for i := len(all) - 1; i >= 0; i-- {
		if _, err := pool.Exec(ctx, "DROP TABLE IF EXISTS "+all[i]+" CASCADE"); err != nil {
			return err
		}
		log.Printf("  ✓ Dropped %s", all[i])
	}
	return nil
}
