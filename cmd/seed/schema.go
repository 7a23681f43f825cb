package main

import (
	"context"

	"linkarbox/internal/repository/postgres"

	"github.com/jackc/pgx/v5/pgxpool"
)

// runSchema creates tables if they don't exist
func runSchema(ctx context.Context, pool *pgxpool.Pool, tables *postgres.TableNames, tablePrefix string) error {
	if _, err := pool.Exec(ctx, `CREATE EXTENSION IF NOT EXISTS "uuid-ossp"`); err != nil {
		return err
	}

	statements := []string{
		`CREATE TABLE IF NOT EXISTS ` + tables.Profiles + ` (
			id UUID PRIMARY KEY,
			name TEXT NOT NULL DEFAULT '',
			display_name TEXT,
			avatar_url TEXT,
			role TEXT NOT NULL DEFAULT 'architect' CHECK (role IN ('architect', 'client')),
			created_at TIMESTAMPTZ DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS ` + tables.CloudConnections + ` (
			user_id UUID NOT NULL,
			provider TEXT NOT NULL CHECK (provider IN ('google', 'dropbox')),
			access_token TEXT NOT NULL,
			refresh_token TEXT NOT NULL DEFAULT '',
			token_type TEXT NOT NULL DEFAULT 'Bearer',
			expires_at TIMESTAMPTZ,
			keep_connected BOOLEAN NOT NULL DEFAULT false,
			account_name TEXT,
			account_email TEXT,
			created_at TIMESTAMPTZ DEFAULT NOW(),
			updated_at TIMESTAMPTZ DEFAULT NOW(),
			PRIMARY KEY (user_id, provider)
		)`,

		`CREATE TABLE IF NOT EXISTS ` + tables.Clients + ` (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			architect_id UUID NOT NULL,
			name TEXT NOT NULL,
			email TEXT NOT NULL,
			phone TEXT,
			cpf_cnpj TEXT,
			address TEXT,
			notes TEXT,
			status TEXT NOT NULL DEFAULT 'active' CHECK (status IN ('active', 'pending', 'inactive')),
			invite_token TEXT UNIQUE,
			invite_sent_at TIMESTAMPTZ,
			registered_at TIMESTAMPTZ,
			user_id UUID,
			created_at TIMESTAMPTZ DEFAULT NOW(),
			updated_at TIMESTAMPTZ DEFAULT NOW(),
			UNIQUE(architect_id, email)
		)`,

		`CREATE TABLE IF NOT EXISTS ` + tables.SharedFiles + ` (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			architect_id UUID NOT NULL,
			client_id UUID NOT NULL REFERENCES ` + tables.Clients + `(id) ON DELETE CASCADE,
			cloud_provider TEXT NOT NULL CHECK (cloud_provider IN ('google', 'dropbox')),
			cloud_file_id TEXT NOT NULL,
			file_name TEXT NOT NULL,
			file_type TEXT NOT NULL CHECK (file_type IN ('FILE', 'FOLDER')),
			mime_type TEXT,
			file_path TEXT,
			file_size BIGINT,
			permission TEXT NOT NULL DEFAULT 'view' CHECK (permission IN ('view', 'edit')),
			web_view_link TEXT,
			file_url TEXT,
			thumbnail_url TEXT,
			icon_link TEXT,
			shared_at TIMESTAMPTZ DEFAULT NOW(),
			UNIQUE(client_id, cloud_provider, cloud_file_id)
		)`,

		`CREATE TABLE IF NOT EXISTS ` + tables.FileRegistry + ` (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			architect_id UUID NOT NULL,
			file_name TEXT NOT NULL,
			file_path TEXT,
			cloud_provider TEXT NOT NULL,
			cloud_file_id TEXT NOT NULL,
			mime_type TEXT,
			created_at TIMESTAMPTZ DEFAULT NOW(),
			updated_at TIMESTAMPTZ DEFAULT NOW(),
			UNIQUE(architect_id, cloud_file_id)
		)`,

		`CREATE TABLE IF NOT EXISTS ` + tables.FileNotes + ` (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			file_registry_id UUID NOT NULL REFERENCES ` + tables.FileRegistry + `(id) ON DELETE CASCADE,
			author_id UUID NOT NULL,
			content TEXT NOT NULL,
			is_read BOOLEAN NOT NULL DEFAULT false,
			created_at TIMESTAMPTZ DEFAULT NOW(),
			updated_at TIMESTAMPTZ DEFAULT NOW()
		)`,

		`CREATE INDEX IF NOT EXISTS idx_` + tablePrefix + `clients_architect ON ` + tables.Clients + `(architect_id)`,
		`CREATE INDEX IF NOT EXISTS idx_` + tablePrefix + `clients_user ON ` + tables.Clients + `(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_` + tablePrefix + `shared_files_architect_file ON ` + tables.SharedFiles + `(architect_id, cloud_file_id)`,
		`CREATE INDEX IF NOT EXISTS idx_` + tablePrefix + `file_notes_registry ON ` + tables.FileNotes + `(file_registry_id, created_at)`,
	}

	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}

	return nil
}
