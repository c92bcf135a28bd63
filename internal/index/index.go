package index

import (
	"github.com/starford/relscope/internal/graph"
	"github.com/starford/relscope/internal/parts"
)

// PartIndex defines the interface for part indexing operations.
// Consumers should depend on this interface rather than the concrete *DB type
// to facilitate testing with mocks.
type PartIndex interface {
	ReplacePackage(packageID string, entries []*parts.Entry, edges []graph.Edge) error
	UpsertPart(packageID string, e *parts.Entry) error
	DeletePart(packageID, path string) error
	ReplaceRelationships(packageID string, edges []graph.Edge) error
	DeletePackage(packageID string) error
	Search(packageID, query string, limit int) ([]SearchResult, error)
	Dependents(packageID, target string) ([]string, error)
	Close() error
}

// Verify *DB satisfies PartIndex at compile time.
var _ PartIndex = (*DB)(nil)
