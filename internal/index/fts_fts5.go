//go:build sqlite_fts5

package index

import (
	"database/sql"
	"fmt"
	"strings"
)

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS parts_fts USING fts5(
			package_id UNINDEXED,
			path UNINDEXED,
			body,
			tokenize = 'unicode61 remove_diacritics 2'
		);
	`)
	return err
}

func ftsUpsert(tx *sql.Tx, packageID, path, body string) error {
	_, _ = tx.Exec(`DELETE FROM parts_fts WHERE package_id = ? AND path = ?`, packageID, path)
	_, err := tx.Exec(`INSERT INTO parts_fts (package_id, path, body) VALUES (?, ?, ?)`, packageID, path, body)
	if err != nil {
		return fmt.Errorf("index: upsert fts: %w", err)
	}
	return nil
}

func ftsDelete(tx *sql.Tx, packageID, path string) {
	_, _ = tx.Exec(`DELETE FROM parts_fts WHERE package_id = ? AND path = ?`, packageID, path)
}

func ftsDeletePackage(tx *sql.Tx, packageID string) {
	_, _ = tx.Exec(`DELETE FROM parts_fts WHERE package_id = ?`, packageID)
}

func ftsPurge(tx *sql.Tx) {
	_, _ = tx.Exec(`DELETE FROM parts_fts`)
}

// phrase quotes query as a single FTS5 string so tag names such as "w:t"
// are not parsed as column filters.
func phrase(query string) string {
	return `"` + strings.ReplaceAll(query, `"`, `""`) + `"`
}

// Search performs an FTS5 full-text search over the text parts of a package.
func (db *DB) Search(packageID, query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.Query(`
		SELECT path,
		       snippet(parts_fts, 2, '<b>', '</b>', '...', 32)
		FROM parts_fts
		WHERE parts_fts MATCH ? AND package_id = ?
		ORDER BY rank
		LIMIT ?
	`, phrase(query), packageID, limit)
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	return scanResults(rows)
}
