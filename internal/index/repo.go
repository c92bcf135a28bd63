package index

import (
	"database/sql"
	"fmt"

	"github.com/starford/relscope/internal/checksum"
	"github.com/starford/relscope/internal/graph"
	"github.com/starford/relscope/internal/parts"
)

// SearchResult represents one search hit.
type SearchResult struct {
	Path    string `json:"path"`
	Snippet string `json:"snippet"`
}

// searchable reports whether e has text worth indexing.
func searchable(e *parts.Entry) bool {
	return !e.IsBinary && !e.Undecodable
}

func entryChecksum(e *parts.Entry) string {
	if e.IsBinary && e.Replacement != nil {
		return checksum.Sum(e.Replacement)
	}
	return checksum.String(e.Content)
}

// ReplacePackage drops everything indexed for packageID and indexes entries
// and edges in their place, within one transaction.
func (db *DB) ReplacePackage(packageID string, entries []*parts.Entry, edges []graph.Edge) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	if err := deletePackage(tx, packageID); err != nil {
		return err
	}

	stmt, err := tx.Prepare(`
		INSERT INTO parts (package_id, path, checksum, is_binary, body)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("index: prepare part insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		body := ""
		if searchable(e) {
			body = e.Content
		}
		if _, err := stmt.Exec(packageID, e.Path, entryChecksum(e), e.IsBinary, body); err != nil {
			return fmt.Errorf("index: insert part %s: %w", e.Path, err)
		}
		if body != "" {
			if err := ftsUpsert(tx, packageID, e.Path, body); err != nil {
				return err
			}
		}
	}

	if err := insertRelationships(tx, packageID, edges); err != nil {
		return err
	}
	return tx.Commit()
}

// UpsertPart inserts or replaces one part and its FTS entry.
func (db *DB) UpsertPart(packageID string, e *parts.Entry) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	body := ""
	if searchable(e) {
		body = e.Content
	}
	_, err = tx.Exec(`
		INSERT INTO parts (package_id, path, checksum, is_binary, body)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(package_id, path) DO UPDATE SET
			checksum  = excluded.checksum,
			is_binary = excluded.is_binary,
			body      = excluded.body
	`, packageID, e.Path, entryChecksum(e), e.IsBinary, body)
	if err != nil {
		return fmt.Errorf("index: upsert part: %w", err)
	}

	ftsDelete(tx, packageID, e.Path)
	if body != "" {
		if err := ftsUpsert(tx, packageID, e.Path, body); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// DeletePart removes one part and its FTS entry.
func (db *DB) DeletePart(packageID, path string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDelete(tx, packageID, path)
	if _, err := tx.Exec(`DELETE FROM parts WHERE package_id = ? AND path = ?`, packageID, path); err != nil {
		return fmt.Errorf("index: delete part: %w", err)
	}
	return tx.Commit()
}

// ReplaceRelationships swaps the indexed edge list of a package.
func (db *DB) ReplaceRelationships(packageID string, edges []graph.Edge) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.Exec(`DELETE FROM relationships WHERE package_id = ?`, packageID); err != nil {
		return fmt.Errorf("index: clear relationships: %w", err)
	}
	if err := insertRelationships(tx, packageID, edges); err != nil {
		return err
	}
	return tx.Commit()
}

// DeletePackage removes every row indexed for packageID.
func (db *DB) DeletePackage(packageID string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := deletePackage(tx, packageID); err != nil {
		return err
	}
	return tx.Commit()
}

// Purge removes every indexed row. Sessions do not outlive the process, so
// rows left by an earlier run are unreachable.
func (db *DB) Purge() error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsPurge(tx)
	for _, table := range []string{"parts", "relationships"} {
		if _, err := tx.Exec(`DELETE FROM ` + table); err != nil {
			return fmt.Errorf("index: purge %s: %w", table, err)
		}
	}
	return tx.Commit()
}

func deletePackage(tx *sql.Tx, packageID string) error {
	ftsDeletePackage(tx, packageID)
	if _, err := tx.Exec(`DELETE FROM parts WHERE package_id = ?`, packageID); err != nil {
		return fmt.Errorf("index: clear parts: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM relationships WHERE package_id = ?`, packageID); err != nil {
		return fmt.Errorf("index: clear relationships: %w", err)
	}
	return nil
}

func insertRelationships(tx *sql.Tx, packageID string, edges []graph.Edge) error {
	if len(edges) == 0 {
		return nil
	}
	stmt, err := tx.Prepare(`
		INSERT INTO relationships (package_id, seq, source, target, rel_id, type)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("index: prepare relationship insert: %w", err)
	}
	defer stmt.Close()
	for i, e := range edges {
		if _, err := stmt.Exec(packageID, i, e.From, e.To, e.ID, e.TypeURI); err != nil {
			return fmt.Errorf("index: insert relationship: %w", err)
		}
	}
	return nil
}

// Dependents returns the distinct relationship sources targeting target,
// in ascending order. The package root appears as graph.Root.
func (db *DB) Dependents(packageID, target string) ([]string, error) {
	rows, err := db.conn.Query(`
		SELECT DISTINCT source FROM relationships
		WHERE package_id = ? AND target = ?
		ORDER BY source
	`, packageID, target)
	if err != nil {
		return nil, fmt.Errorf("index: dependents: %w", err)
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func scanResults(rows *sql.Rows) ([]SearchResult, error) {
	defer rows.Close()
	out := []SearchResult{}
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.Path, &r.Snippet); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
