package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Execer is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type Execer interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	QueryRow(context.Context, string, ...any) pgx.Row
}

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
	   id TEXT PRIMARY KEY,
	   username TEXT NOT NULL UNIQUE,
	   password_hash TEXT NOT NULL,
	   created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	   assessment_data JSONB
	 )`,
	// Rows created before profile fields existed only carry username.
	`ALTER TABLE users ADD COLUMN IF NOT EXISTS email TEXT`,
	`ALTER TABLE users ADD COLUMN IF NOT EXISTS full_name TEXT`,
	`ALTER TABLE users ADD COLUMN IF NOT EXISTS age INTEGER`,
	`ALTER TABLE users ADD COLUMN IF NOT EXISTS gender TEXT`,
	`UPDATE users SET email = username WHERE email IS NULL`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email ON users (email)`,
	`CREATE TABLE IF NOT EXISTS chats (
	   id TEXT PRIMARY KEY,
	   user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	   bot TEXT NOT NULL CHECK (bot IN ('aarav', 'meera')),
	   message TEXT NOT NULL,
	   reply TEXT NOT NULL,
	   created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	   via_call BOOLEAN NOT NULL DEFAULT FALSE
	 )`,
	`CREATE INDEX IF NOT EXISTS idx_chats_user_bot_created ON chats (user_id, bot, created_at)`,
	`CREATE TABLE IF NOT EXISTS summaries (
	   id TEXT PRIMARY KEY,
	   user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	   bot TEXT NOT NULL CHECK (bot IN ('aarav', 'meera')),
	   summary_text TEXT NOT NULL,
	   created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	 )`,
	`CREATE INDEX IF NOT EXISTS idx_summaries_user_bot_created ON summaries (user_id, bot, created_at)`,
}

// EnsureSchema creates missing tables and upgrades legacy user rows. Safe to rerun.
func EnsureSchema(ctx context.Context, db Execer) error {
	if db == nil {
		return fmt.Errorf("database handle is nil")
	}
	for _, statement := range schemaStatements {
		if _, err := db.Exec(ctx, statement); err != nil {
			return fmt.Errorf("apply schema statement %q: %w", firstLine(statement), err)
		}
	}
	return nil
}

func ValidateRuntimeSchema(ctx context.Context, db Execer) error {
	if db == nil {
		return fmt.Errorf("database handle is nil")
	}

	requiredColumns := []struct {
		table  string
		column string
	}{
		{table: "users", column: "email"},
		{table: "users", column: "full_name"},
		{table: "users", column: "assessment_data"},
		{table: "chats", column: "via_call"},
		{table: "summaries", column: "summary_text"},
	}

	for _, item := range requiredColumns {
		ok, err := columnExists(ctx, db, item.table, item.column)
		if err != nil {
			return fmt.Errorf(
				"failed checking schema for %s.%s: %w",
				item.table,
				item.column,
				err,
			)
		}
		if !ok {
			return fmt.Errorf(
				"required column %s.%s is missing; run scripts/migrate_schema.go -mode apply",
				item.table,
				item.column,
			)
		}
	}

	return nil
}

func columnExists(ctx context.Context, db Execer, tableName, columnName string) (bool, error) {
	table := strings.TrimSpace(tableName)
	column := strings.TrimSpace(columnName)
	if table == "" || column == "" {
		return false, fmt.Errorf("table/column must not be empty")
	}
	var exists bool
	err := db.QueryRow(
		ctx,
		`SELECT EXISTS (
		   SELECT 1
		   FROM information_schema.columns
		   WHERE table_schema = current_schema()
		     AND lower(table_name) = lower($1)
		     AND lower(column_name) = lower($2)
		 )`,
		table,
		column,
	).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

func firstLine(statement string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(statement), "\n")
	return strings.TrimSpace(line)
}
