// Package index provides a SQLite-backed index of the parts and relationships
// of open packages, with optional FTS5 full-text search over text parts.
package index

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const coreSchemaSQL = `
CREATE TABLE IF NOT EXISTS parts (
	package_id TEXT NOT NULL,
	path       TEXT NOT NULL,
	checksum   TEXT NOT NULL DEFAULT '',
	is_binary  INTEGER NOT NULL DEFAULT 0,
	body       TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (package_id, path)
);

CREATE TABLE IF NOT EXISTS relationships (
	package_id TEXT NOT NULL,
	seq        INTEGER NOT NULL,
	source     TEXT NOT NULL,
	target     TEXT NOT NULL,
	rel_id     TEXT NOT NULL,
	type       TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (package_id, seq)
);

CREATE INDEX IF NOT EXISTS idx_relationships_source ON relationships(package_id, source);
CREATE INDEX IF NOT EXISTS idx_relationships_target ON relationships(package_id, target);
`

// DB wraps a sql.DB with index-specific operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
// Use ":memory:" for a process-local index.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("index: open db: %w", err)
	}
	if dsn == ":memory:" {
		// Every pooled connection would otherwise get its own empty database.
		conn.SetMaxOpenConns(1)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: ping: %w", err)
	}
	if _, err := conn.Exec(coreSchemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: apply core schema: %w", err)
	}
	if err := initFTS(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: apply fts schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
