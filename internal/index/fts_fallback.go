//go:build !sqlite_fts5

package index

import (
	"database/sql"
	"fmt"
	"strings"
)

func initFTS(_ *sql.DB) error {
	// FTS5 not available; search uses LIKE over parts.body.
	return nil
}

func ftsUpsert(_ *sql.Tx, _, _, _ string) error { return nil }

func ftsDelete(_ *sql.Tx, _, _ string) {}

func ftsDeletePackage(_ *sql.Tx, _ string) {}

func ftsPurge(_ *sql.Tx) {}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Search performs a LIKE-based search (fallback when FTS5 is not compiled in).
// Matching is case-insensitive for ASCII.
func (db *DB) Search(packageID, query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	like := "%" + likeEscaper.Replace(query) + "%"
	rows, err := db.conn.Query(`
		SELECT path,
		       substr(body, max(instr(lower(body), lower(?)) - 40, 1), 160)
		FROM parts
		WHERE package_id = ? AND is_binary = 0 AND body LIKE ? ESCAPE '\'
		ORDER BY path
		LIMIT ?
	`, query, packageID, like, limit)
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	return scanResults(rows)
}
