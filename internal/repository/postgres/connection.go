package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"linkarbox/internal/domain/repositories"
)

// RepositoryConfig holds configuration for repository implementations
type RepositoryConfig struct {
	Pool   *pgxpool.Pool
	Tables *TableNames
	Logger *slog.Logger
}

// TableNames holds dynamically prefixed table names
type TableNames struct {
	Profiles         string
	CloudConnections string
	Clients          string
	SharedFiles      string
	FileRegistry     string
	FileNotes        string
}

// NewTableNames creates table names with the given prefix
func NewTableNames(prefix string) *TableNames {
	return &TableNames{
		Profiles:         fmt.Sprintf("%sprofiles", prefix),
		CloudConnections: fmt.Sprintf("%scloud_connections", prefix),
		Clients:          fmt.Sprintf("%sclients", prefix),
		SharedFiles:      fmt.Sprintf("%sshared_files", prefix),
		FileRegistry:     fmt.Sprintf("%sfile_registry", prefix),
		FileNotes:        fmt.Sprintf("%sfile_notes", prefix),
	}
}

// All returns every table in dependency order (parents first)
func (t *TableNames) All() []string {
	return []string{t.Profiles, t.CloudConnections, t.Clients, t.SharedFiles, t.FileRegistry, t.FileNotes}
}

// CreateConnectionPool creates a pgx pool against the Supabase database.
//
// Supabase's transaction pooler (port 6543) cannot hold prepared statements,
// so on that port the pool switches to QueryExecModeCacheDescribe unless the
// connection string already sets default_query_exec_mode. Table prefixes are
// interpolated before the SQL is sent, so each environment caches its own
// statement descriptions.
func CreateConnectionPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}

	config.MaxConns = 20
	config.MinConns = 2
	config.MaxConnIdleTime = 5 * time.Minute

	// Port 6543 is the Supabase pooler
	if config.ConnConfig.Port == 6543 && config.ConnConfig.DefaultQueryExecMode == pgx.QueryExecModeCacheStatement {
		config.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeCacheDescribe
		slog.Debug("auto-configured cache_describe mode for PgBouncer compatibility", "port", 6543)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	// Test connection
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}

// GetExecutor returns the transaction stored in ctx, or the pool when there is none.
func GetExecutor(ctx context.Context, pool *pgxpool.Pool) repositories.DBTX {
	if tx := repositories.GetTx(ctx); tx != nil {
		return tx
	}
	return pool
}
