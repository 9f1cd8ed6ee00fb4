package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

// ConnectPostgres opens the PostgreSQL pool, pings it and creates the schema.
func ConnectPostgres(ctx context.Context, postgresURI string, log *zap.Logger) (*sql.DB, error) {
	db, err := sql.Open("postgres", postgresURI)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	log.Info("connected to postgres")

	if err := InitPostgresTables(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	log.Info("postgres tables initialized")
	return db, nil
}

// InitPostgresTables creates all tables and indexes if they don't exist.
func InitPostgresTables(ctx context.Context, db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			username VARCHAR(20) NOT NULL UNIQUE,
			name VARCHAR(255) NOT NULL DEFAULT '',
			avatar TEXT,
			password_hash VARCHAR(255) NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT NOW(),
			is_active BOOLEAN NOT NULL DEFAULT TRUE
		)`,

		`CREATE TABLE IF NOT EXISTS profiles (
			user_id UUID PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
			gender VARCHAR(10),
			country VARCHAR(255),
			date_of_birth DATE,
			updated_at TIMESTAMP NOT NULL DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS journals (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			title VARCHAR(255) NOT NULL,
			archived BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMP NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMP NOT NULL DEFAULT NOW(),
			deleted_at TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS journal_notifications (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			journal_id UUID NOT NULL UNIQUE REFERENCES journals(id) ON DELETE CASCADE,
			type VARCHAR(10) NOT NULL CHECK (type IN ('daily', 'weekly', 'monthly')),
			time VARCHAR(5) NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS journal_pages (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			journal_id UUID NOT NULL REFERENCES journals(id) ON DELETE CASCADE,
			content TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT NOW(),
			deleted_at TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS images (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			journal_page_id UUID NOT NULL REFERENCES journal_pages(id) ON DELETE CASCADE,
			path TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT NOW()
		)`,

		`CREATE INDEX IF NOT EXISTS idx_users_username_lower ON users(LOWER(username))`,
		`CREATE INDEX IF NOT EXISTS idx_journals_user_archived ON journals(user_id, archived) WHERE deleted_at IS NULL`,
		`CREATE INDEX IF NOT EXISTS idx_journals_created_at ON journals(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_journal_pages_journal_id ON journal_pages(journal_id) WHERE deleted_at IS NULL`,
		`CREATE INDEX IF NOT EXISTS idx_images_journal_page_id ON images(journal_page_id)`,
	}

	for _, query := range queries {
		if _, err := db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("init postgres tables: %w", err)
		}
	}
	return nil
}
