package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/platinummonkey/forum/pkg/observability"
)

// Migration is one versioned schema change with a statement per driver
type Migration struct {
	Version     int
	Description string
	SQLite      string
	Postgres    string
}

// SQL returns the migration body for driver
func (m Migration) SQL(driver Driver) string {
	if driver == DriverPostgres {
		return m.Postgres
	}
	return m.SQLite
}

// GetMigrations returns all schema migrations in order
func GetMigrations() []Migration {
	return []Migration{
		{
			Version:     1,
			Description: "Create users table",
			SQLite: `
				CREATE TABLE IF NOT EXISTS users (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					username TEXT NOT NULL UNIQUE,
					email TEXT NOT NULL UNIQUE,
					password_hash TEXT NOT NULL,
					role TEXT NOT NULL DEFAULT 'user' CHECK (role IN ('user', 'moderator', 'admin')),
					status TEXT NOT NULL DEFAULT 'active' CHECK (status IN ('active', 'banned')),
					bio TEXT NOT NULL DEFAULT '',
					avatar TEXT NOT NULL DEFAULT '',
					created_at DATETIME NOT NULL,
					updated_at DATETIME NOT NULL
				);
			`,
			Postgres: `
				CREATE TABLE IF NOT EXISTS users (
					id BIGSERIAL PRIMARY KEY,
					username VARCHAR(50) NOT NULL UNIQUE,
					email VARCHAR(255) NOT NULL UNIQUE,
					password_hash TEXT NOT NULL,
					role VARCHAR(20) NOT NULL DEFAULT 'user' CHECK (role IN ('user', 'moderator', 'admin')),
					status VARCHAR(20) NOT NULL DEFAULT 'active' CHECK (status IN ('active', 'banned')),
					bio TEXT NOT NULL DEFAULT '',
					avatar VARCHAR(255) NOT NULL DEFAULT '',
					created_at TIMESTAMPTZ NOT NULL,
					updated_at TIMESTAMPTZ NOT NULL
				);
			`,
		},
		{
			Version:     2,
			Description: "Create categories table",
			SQLite: `
				CREATE TABLE IF NOT EXISTS categories (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					name TEXT NOT NULL UNIQUE,
					description TEXT NOT NULL DEFAULT '',
					display_order INTEGER NOT NULL DEFAULT 0,
					created_at DATETIME NOT NULL,
					updated_at DATETIME NOT NULL
				);
			`,
			Postgres: `
				CREATE TABLE IF NOT EXISTS categories (
					id BIGSERIAL PRIMARY KEY,
					name VARCHAR(100) NOT NULL UNIQUE,
					description VARCHAR(500) NOT NULL DEFAULT '',
					display_order INTEGER NOT NULL DEFAULT 0,
					created_at TIMESTAMPTZ NOT NULL,
					updated_at TIMESTAMPTZ NOT NULL
				);
			`,
		},
		{
			Version:     3,
			Description: "Create topics and posts tables",
			SQLite: `
				CREATE TABLE IF NOT EXISTS topics (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					category_id INTEGER NOT NULL REFERENCES categories(id) ON DELETE CASCADE,
					user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
					title TEXT NOT NULL,
					is_pinned INTEGER NOT NULL DEFAULT 0,
					is_locked INTEGER NOT NULL DEFAULT 0,
					view_count INTEGER NOT NULL DEFAULT 0,
					created_at DATETIME NOT NULL,
					updated_at DATETIME NOT NULL
				);

				CREATE TABLE IF NOT EXISTS posts (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					topic_id INTEGER NOT NULL REFERENCES topics(id) ON DELETE CASCADE,
					user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
					content TEXT NOT NULL,
					is_first_post INTEGER NOT NULL DEFAULT 0,
					created_at DATETIME NOT NULL,
					updated_at DATETIME NOT NULL
				);

				CREATE INDEX IF NOT EXISTS idx_topics_category ON topics(category_id);
				CREATE INDEX IF NOT EXISTS idx_topics_user ON topics(user_id);
				CREATE INDEX IF NOT EXISTS idx_topics_created_at ON topics(created_at);
				CREATE INDEX IF NOT EXISTS idx_posts_topic ON posts(topic_id);
				CREATE INDEX IF NOT EXISTS idx_posts_user ON posts(user_id);
			`,
			Postgres: `
				CREATE TABLE IF NOT EXISTS topics (
					id BIGSERIAL PRIMARY KEY,
					category_id BIGINT NOT NULL REFERENCES categories(id) ON DELETE CASCADE,
					user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
					title VARCHAR(200) NOT NULL,
					is_pinned BOOLEAN NOT NULL DEFAULT FALSE,
					is_locked BOOLEAN NOT NULL DEFAULT FALSE,
					view_count BIGINT NOT NULL DEFAULT 0,
					created_at TIMESTAMPTZ NOT NULL,
					updated_at TIMESTAMPTZ NOT NULL
				);

				CREATE TABLE IF NOT EXISTS posts (
					id BIGSERIAL PRIMARY KEY,
					topic_id BIGINT NOT NULL REFERENCES topics(id) ON DELETE CASCADE,
					user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
					content TEXT NOT NULL,
					is_first_post BOOLEAN NOT NULL DEFAULT FALSE,
					created_at TIMESTAMPTZ NOT NULL,
					updated_at TIMESTAMPTZ NOT NULL
				);

				CREATE INDEX IF NOT EXISTS idx_topics_category ON topics(category_id);
				CREATE INDEX IF NOT EXISTS idx_topics_user ON topics(user_id);
				CREATE INDEX IF NOT EXISTS idx_topics_created_at ON topics(created_at);
				CREATE INDEX IF NOT EXISTS idx_posts_topic ON posts(topic_id);
				CREATE INDEX IF NOT EXISTS idx_posts_user ON posts(user_id);
			`,
		},
		{
			Version:     4,
			Description: "Create audit_logs table",
			SQLite: `
				CREATE TABLE IF NOT EXISTS audit_logs (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					event_id TEXT NOT NULL,
					timestamp DATETIME NOT NULL,
					event_type TEXT NOT NULL,
					status TEXT NOT NULL,
					user_id INTEGER,
					username TEXT,
					resource_type TEXT,
					resource_id TEXT,
					ip_address TEXT,
					user_agent TEXT,
					request_id TEXT,
					message TEXT,
					error_message TEXT,
					metadata TEXT,
					changes TEXT
				);

				CREATE INDEX IF NOT EXISTS idx_audit_logs_timestamp ON audit_logs(timestamp);
				CREATE INDEX IF NOT EXISTS idx_audit_logs_user_id ON audit_logs(user_id);
				CREATE INDEX IF NOT EXISTS idx_audit_logs_event_type ON audit_logs(event_type);
			`,
			Postgres: `
				CREATE TABLE IF NOT EXISTS audit_logs (
					id BIGSERIAL PRIMARY KEY,
					event_id UUID NOT NULL,
					timestamp TIMESTAMPTZ NOT NULL,
					event_type VARCHAR(100) NOT NULL,
					status VARCHAR(20) NOT NULL,
					user_id BIGINT,
					username VARCHAR(255),
					resource_type VARCHAR(50),
					resource_id VARCHAR(255),
					ip_address VARCHAR(45),
					user_agent TEXT,
					request_id VARCHAR(255),
					message TEXT,
					error_message TEXT,
					metadata JSONB,
					changes JSONB
				);

				CREATE INDEX IF NOT EXISTS idx_audit_logs_timestamp ON audit_logs(timestamp);
				CREATE INDEX IF NOT EXISTS idx_audit_logs_user_id ON audit_logs(user_id);
				CREATE INDEX IF NOT EXISTS idx_audit_logs_event_type ON audit_logs(event_type);
			`,
		},
		{
			Version:     5,
			Description: "Create topic_subscriptions and notifications tables",
			SQLite: `
				CREATE TABLE IF NOT EXISTS topic_subscriptions (
					user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
					topic_id INTEGER NOT NULL REFERENCES topics(id) ON DELETE CASCADE,
					created_at DATETIME NOT NULL,
					PRIMARY KEY (user_id, topic_id)
				);

				CREATE TABLE IF NOT EXISTS notifications (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
					type TEXT NOT NULL,
					message TEXT NOT NULL,
					topic_id INTEGER REFERENCES topics(id) ON DELETE CASCADE,
					is_read INTEGER NOT NULL DEFAULT 0,
					created_at DATETIME NOT NULL
				);

				CREATE INDEX IF NOT EXISTS idx_topic_subscriptions_topic ON topic_subscriptions(topic_id);
				CREATE INDEX IF NOT EXISTS idx_notifications_user_read ON notifications(user_id, is_read);
			`,
			Postgres: `
				CREATE TABLE IF NOT EXISTS topic_subscriptions (
					user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
					topic_id BIGINT NOT NULL REFERENCES topics(id) ON DELETE CASCADE,
					created_at TIMESTAMPTZ NOT NULL,
					PRIMARY KEY (user_id, topic_id)
				);

				CREATE TABLE IF NOT EXISTS notifications (
					id BIGSERIAL PRIMARY KEY,
					user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
					type VARCHAR(50) NOT NULL,
					message TEXT NOT NULL,
					topic_id BIGINT REFERENCES topics(id) ON DELETE CASCADE,
					is_read BOOLEAN NOT NULL DEFAULT FALSE,
					created_at TIMESTAMPTZ NOT NULL
				);

				CREATE INDEX IF NOT EXISTS idx_topic_subscriptions_topic ON topic_subscriptions(topic_id);
				CREATE INDEX IF NOT EXISTS idx_notifications_user_read ON notifications(user_id, is_read);
			`,
		},
	}
}

// RunMigrations applies all pending migrations, each in its own transaction
func RunMigrations(ctx context.Context, db *sql.DB, driver Driver, logger *observability.Logger) error {
	if logger == nil {
		logger = observability.GetLogger(ctx)
	}

	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	applied, err := appliedVersions(ctx, db)
	if err != nil {
		return err
	}

	for _, m := range GetMigrations() {
		if applied[m.Version] {
			continue
		}

		if err := applyMigration(ctx, db, driver, m); err != nil {
			return err
		}

		logger.WithFields(map[string]interface{}{
			"version":     m.Version,
			"description": m.Description,
		}).Info("migration applied")
	}

	return nil
}

func appliedVersions(ctx context.Context, db *sql.DB) (map[int]bool, error) {
	rows, err := db.QueryContext(ctx, "SELECT version FROM schema_migrations ORDER BY version")
	if err != nil {
		return nil, fmt.Errorf("failed to query migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return nil, fmt.Errorf("failed to scan migration version: %w", err)
		}
		applied[version] = true
	}
	return applied, rows.Err()
}

func applyMigration(ctx context.Context, db *sql.DB, driver Driver, m Migration) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, m.SQL(driver)); err != nil {
		return fmt.Errorf("failed to execute migration %d: %w", m.Version, err)
	}

	if _, err := tx.ExecContext(ctx,
		Rebind(driver, "INSERT INTO schema_migrations (version, description, applied_at) VALUES (?, ?, ?)"),
		m.Version, m.Description, time.Now().UTC(),
	); err != nil {
		return fmt.Errorf("failed to record migration %d: %w", m.Version, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration %d: %w", m.Version, err)
	}
	return nil
}
