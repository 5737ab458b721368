package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // driver: pgx
	_ "modernc.org/sqlite"             // driver: sqlite
)

type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
)

// Open opens a DB and ensures schema exists.
func Open(ctx context.Context, driver Driver, dsn string) (*sql.DB, error) {
	var drvName string
	switch driver {
	case DriverSQLite:
		drvName = "sqlite" // modernc driver
		if dsn == "" {
			dsn = "file:lamb.db?cache=shared&mode=rwc&_pragma=busy_timeout(5000)"
		}
	case DriverPostgres:
		drvName = "pgx" // pgx stdlib driver
		if dsn == "" {
			dsn = "postgres://localhost:5432/lamb?sslmode=disable"
		}
	default:
		return nil, fmt.Errorf("unsupported driver: %s", driver)
	}

	db, err := sql.Open(drvName, dsn)
	if err != nil {
		return nil, err
	}
	if driver == DriverSQLite {
		// single writer; keep the pool tiny to avoid busy errors
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	if err := ensureSchema(ctx, db, driver); err != nil {
		return nil, err
	}
	return db, nil
}

func ensureSchema(ctx context.Context, db *sql.DB, driver Driver) error {
	var schema string
	switch driver {
	case DriverSQLite:
		schema = schemaSQLite
	case DriverPostgres:
		schema = schemaPostgres
	}
	_, err := db.ExecContext(ctx, schema)
	return err
}

const schemaSQLite = `
PRAGMA foreign_keys=ON;

CREATE TABLE IF NOT EXISTS assistants (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  name TEXT NOT NULL,
  description TEXT NOT NULL DEFAULT '',
  owner TEXT NOT NULL,
  published INTEGER NOT NULL DEFAULT 0,
  published_at INTEGER,                      -- unix seconds, NULL while unpublished
  group_id TEXT NOT NULL DEFAULT '',
  group_name TEXT NOT NULL DEFAULT '',
  oauth_consumer_name TEXT NOT NULL DEFAULT '',
  version INTEGER NOT NULL DEFAULT 0,        -- optimistic concurrency on publish/unpublish
  created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS lti_consumers (
  assistant_id INTEGER PRIMARY KEY REFERENCES assistants(id) ON DELETE CASCADE,
  consumer_key TEXT NOT NULL UNIQUE,
  shared_secret TEXT NOT NULL,
  updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS lti_launches (
  id INTEGER PRIMARY KEY AUTOINCREMENT,      -- BIGSERIAL in Postgres
  assistant_id INTEGER NOT NULL,
  assistant_name TEXT NOT NULL,
  group_id TEXT NOT NULL,
  owner TEXT NOT NULL,
  user_email TEXT NOT NULL,
  user_name TEXT NOT NULL,
  role TEXT NOT NULL,
  created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS lti_launches_assistant_idx
  ON lti_launches (assistant_id, created_at);
`

const schemaPostgres = `
CREATE TABLE IF NOT EXISTS assistants (
  id BIGSERIAL PRIMARY KEY,
  name TEXT NOT NULL,
  description TEXT NOT NULL DEFAULT '',
  owner TEXT NOT NULL,
  published BOOLEAN NOT NULL DEFAULT FALSE,
  published_at BIGINT,
  group_id TEXT NOT NULL DEFAULT '',
  group_name TEXT NOT NULL DEFAULT '',
  oauth_consumer_name TEXT NOT NULL DEFAULT '',
  version BIGINT NOT NULL DEFAULT 0,
  created_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS lti_consumers (
  assistant_id BIGINT PRIMARY KEY REFERENCES assistants(id) ON DELETE CASCADE,
  consumer_key TEXT NOT NULL UNIQUE,
  shared_secret TEXT NOT NULL,
  updated_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS lti_launches (
  id BIGSERIAL PRIMARY KEY,
  assistant_id BIGINT NOT NULL,
  assistant_name TEXT NOT NULL,
  group_id TEXT NOT NULL,
  owner TEXT NOT NULL,
  user_email TEXT NOT NULL,
  user_name TEXT NOT NULL,
  role TEXT NOT NULL,
  created_at BIGINT NOT NULL
);

CREATE INDEX IF NOT EXISTS lti_launches_assistant_idx
  ON lti_launches (assistant_id, created_at);
`
