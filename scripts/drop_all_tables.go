package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"

	"linkarbox/internal/config"
	"linkarbox/internal/repository/postgres"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	if cfg.SupabaseDBURL == "" {
		log.Fatal("SUPABASE_DB_URL environment variable is required")
	}
	if cfg.Environment == "prod" && os.Getenv("CONFIRM_DROP") != "yes" {
		log.Fatal("refusing to drop prod tables without CONFIRM_DROP=yes")
	}

	db, err := sql.Open("pgx", cfg.SupabaseDBURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() { _ = db.Close() }() // Error ignored: script exiting

	// Children first so foreign keys never block a drop
	all := postgres.NewTableNames(cfg.TablePrefix).All()
	for i := len(all) - 1; i >= 0; i-- {
		if _, err := db.Exec("DROP TABLE IF EXISTS " + all[i] + " CASCADE"); err != nil {
			log.Fatalf("Failed to drop %s: %v", all[i], err)
		}
	}

	fmt.Printf("All tables dropped successfully (prefix: %s)\n", cfg.TablePrefix)
}
