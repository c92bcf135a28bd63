// Package packageservice keeps loaded OOXML packages in sessions and
// coordinates loading, editing, indexing and re-packing them.
package packageservice

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/starford/relscope/internal/apperr"
	"github.com/starford/relscope/internal/checksum"
	"github.com/starford/relscope/internal/graph"
	"github.com/starford/relscope/internal/index"
	"github.com/starford/relscope/internal/ooxml"
	"github.com/starford/relscope/internal/preview"
	"github.com/starford/relscope/internal/sse"
	"github.com/starford/relscope/internal/storage"
)

// Notifier receives package change notifications.
type Notifier interface {
	PublishChange(c sse.Change)
}

type session struct {
	id            string
	name          string
	workspacePath string
	openedAt      time.Time

	// generation counts loads started for this session; only the load
	// holding the latest generation may install its package.
	generation atomic.Uint64

	mu             sync.RWMutex
	pkg            *ooxml.Package
	loadedGen      uint64
	loadedAt       time.Time
	sourceChecksum string
	closed         bool
}

// Service coordinates sessions, previews, the part index and the workspace.
type Service struct {
	previews *preview.Store
	db       index.PartIndex
	store    storage.Provider
	notify   Notifier
	logger   *slog.Logger
	basePath string
	workers  int
	maxSize  int64

	mu       sync.RWMutex
	sessions map[string]*session
}

// Option configures a Service.
type Option func(*Service)

// WithIndex indexes parts and relationships of open packages into db.
func WithIndex(db index.PartIndex) Option {
	return func(s *Service) { s.db = db }
}

// WithWorkspace enables opening and saving workspace files.
func WithWorkspace(store storage.Provider) Option {
	return func(s *Service) { s.store = store }
}

// WithNotifier publishes package changes to n.
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notify = n }
}

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithBasePath sets the URL prefix used to build part routes.
func WithBasePath(base string) Option {
	return func(s *Service) { s.basePath = base }
}

// WithMaxUnpackedSize caps the decompressed size of a loaded package.
func WithMaxUnpackedSize(n int64) Option {
	return func(s *Service) { s.maxSize = n }
}

// New creates a package service. previews must be non-nil.
func New(previews *preview.Store, opts ...Option) *Service {
	s := &Service{
		previews: previews,
		logger:   slog.Default(),
		basePath: "/",
		workers:  8,
		sessions: make(map[string]*session),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Preview returns the payload behind a preview handle.
func (s *Service) Preview(handle string) (preview.Preview, error) {
	return s.previews.Get(handle)
}

func (s *Service) load(ctx context.Context, data []byte) (*ooxml.Package, error) {
	pkg, err := ooxml.Load(ctx, data,
		ooxml.WithPreviews(s.previews),
		ooxml.WithLogger(s.logger),
		ooxml.WithConcurrency(s.workers),
		ooxml.WithMaxSize(s.maxSize),
	)
	if err != nil {
		return nil, fmt.Errorf("packageservice: load: %w", err)
	}
	return pkg, nil
}

// Open loads data as a new session named name.
func (s *Service) Open(ctx context.Context, name string, data []byte) (*Summary, error) {
	return s.open(ctx, name, "", data)
}

// OpenWorkspace loads a workspace file as a new session.
func (s *Service) OpenWorkspace(ctx context.Context, workspacePath string) (*Summary, error) {
	if s.store == nil {
		return nil, fmt.Errorf("packageservice: no workspace configured: %w", apperr.ErrNotFound)
	}
	if !storage.IsPackageFile(workspacePath) {
		return nil, fmt.Errorf("packageservice: %s is not a package file: %w", workspacePath, apperr.ErrInvalidPath)
	}
	data, err := s.store.Read(workspacePath)
	if err != nil {
		return nil, err
	}
	return s.open(ctx, path.Base(workspacePath), workspacePath, data)
}

func (s *Service) open(ctx context.Context, name, workspacePath string, data []byte) (*Summary, error) {
	pkg, err := s.load(ctx, data)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	sess := &session{
		id:             uuid.NewString(),
		name:           name,
		workspacePath:  workspacePath,
		openedAt:       now,
		pkg:            pkg,
		loadedAt:       now,
		sourceChecksum: checksum.Sum(data),
	}

	// Indexed before the session is reachable, so Close cannot run first.
	s.reindex(sess.id, pkg)

	s.mu.Lock()
	s.sessions[sess.id] = sess
	s.mu.Unlock()

	s.publish(sse.Change{Kind: sse.PackageOpened, PackageID: sess.id, GraphChanged: true})
	s.logger.Info("packageservice: opened",
		slog.String("id", sess.id),
		slog.String("name", name),
		slog.Int("parts", len(pkg.Entries)),
		slog.Int("issues", len(pkg.Issues)))

	sess.mu.RLock()
	defer sess.mu.RUnlock()
	return sess.summary(), nil
}

// Reload replaces the package of a session. With nil data the session's
// workspace file is read again. A reload that finishes after a newer one
// started is discarded with apperr.ErrSuperseded.
func (s *Service) Reload(ctx context.Context, id string, data []byte) (*Summary, error) {
	sess, err := s.session(id)
	if err != nil {
		return nil, err
	}
	if data == nil {
		if sess.workspacePath == "" || s.store == nil {
			return nil, fmt.Errorf("packageservice: session %s has no workspace file: %w", id, apperr.ErrInvalidPath)
		}
		if data, err = s.store.Read(sess.workspacePath); err != nil {
			return nil, err
		}
	}

	gen := sess.generation.Add(1)
	pkg, err := s.load(ctx, data)
	if err != nil {
		return nil, err
	}
	if err := s.install(sess, gen, pkg, checksum.Sum(data)); err != nil {
		return nil, err
	}

	sess.mu.RLock()
	defer sess.mu.RUnlock()
	return sess.summary(), nil
}

// install swaps pkg into sess if gen is still the latest load. The replaced
// package's previews, or pkg's own when it is discarded, are revoked.
func (s *Service) install(sess *session, gen uint64, pkg *ooxml.Package, sum string) error {
	sess.mu.Lock()
	if sess.closed || gen != sess.generation.Load() {
		sess.mu.Unlock()
		s.previews.Revoke(pkg.PreviewRefs()...)
		s.logger.Debug("packageservice: stale load discarded",
			slog.String("id", sess.id),
			slog.Uint64("generation", gen))
		return fmt.Errorf("packageservice: load %d of %s: %w", gen, sess.id, apperr.ErrSuperseded)
	}
	old := sess.pkg
	sess.pkg = pkg
	sess.loadedGen = gen
	sess.loadedAt = time.Now()
	sess.sourceChecksum = sum
	// Index rows follow the installed package; a later load or Close waits.
	s.reindex(sess.id, pkg)
	sess.mu.Unlock()

	s.previews.Revoke(old.PreviewRefs()...)
	s.publish(sse.Change{Kind: sse.PackageReloaded, PackageID: sess.id, GraphChanged: true})
	s.logger.Info("packageservice: reloaded",
		slog.String("id", sess.id),
		slog.Uint64("generation", gen),
		slog.Int("parts", len(pkg.Entries)))
	return nil
}

// Close ends a session and releases its previews and index rows.
func (s *Service) Close(_ context.Context, id string) error {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("packageservice: session %s: %w", id, apperr.ErrNotFound)
	}

	sess.mu.Lock()
	sess.closed = true
	refs := sess.pkg.PreviewRefs()
	sess.mu.Unlock()

	s.previews.Revoke(refs...)
	if s.db != nil {
		if err := s.db.DeletePackage(id); err != nil {
			s.logger.Warn("packageservice: index delete failed", slog.String("id", id), slog.String("error", err.Error()))
		}
	}
	s.publish(sse.Change{Kind: sse.PackageClosed, PackageID: id})
	s.logger.Info("packageservice: closed", slog.String("id", id))
	return nil
}

// CloseAll ends every session.
func (s *Service) CloseAll(ctx context.Context) {
	for _, sum := range s.List() {
		_ = s.Close(ctx, sum.ID)
	}
}

// List returns all sessions, oldest first.
func (s *Service) List() []Summary {
	s.mu.RLock()
	sessions := make([]*session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	s.mu.RUnlock()

	out := make([]Summary, 0, len(sessions))
	for _, sess := range sessions {
		sess.mu.RLock()
		out = append(out, *sess.summary())
		sess.mu.RUnlock()
	}
	slices.SortFunc(out, func(a, b Summary) int {
		if c := a.OpenedAt.Compare(b.OpenedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}

// Get returns the summary of one session.
func (s *Service) Get(id string) (*Summary, error) {
	sess, err := s.session(id)
	if err != nil {
		return nil, err
	}
	sess.mu.RLock()
	defer sess.mu.RUnlock()
	return sess.summary(), nil
}

// WorkspaceChanged reloads every session opened from workspacePath whose
// file content changed. Removed files leave their sessions open.
func (s *Service) WorkspaceChanged(ctx context.Context, kind, workspacePath string) {
	if s.store == nil || kind != storage.ChangeWritten {
		return
	}
	data, err := s.store.Read(workspacePath)
	if err != nil {
		s.logger.Warn("packageservice: workspace read failed",
			slog.String("path", workspacePath),
			slog.String("error", err.Error()))
		return
	}
	sum := checksum.Sum(data)

	for _, sess := range s.sessionsFor(workspacePath) {
		sess.mu.RLock()
		unchanged := sess.sourceChecksum == sum
		sess.mu.RUnlock()
		if unchanged {
			continue
		}
		if _, err := s.Reload(ctx, sess.id, data); err != nil && !errors.Is(err, apperr.ErrSuperseded) {
			s.logger.Warn("packageservice: workspace reload failed",
				slog.String("id", sess.id),
				slog.String("error", err.Error()))
		}
	}
}

func (s *Service) sessionsFor(workspacePath string) []*session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*session
	for _, sess := range s.sessions {
		if sess.workspacePath == workspacePath {
			out = append(out, sess)
		}
	}
	return out
}

func (s *Service) session(id string) (*session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("packageservice: session %s: %w", id, apperr.ErrNotFound)
	}
	return sess, nil
}

// lock takes the session's write lock. A session closed since it was looked
// up is reported as not found and left unlocked.
func (sess *session) lock() error {
	sess.mu.Lock()
	if sess.closed {
		sess.mu.Unlock()
		return fmt.Errorf("packageservice: session %s: %w", sess.id, apperr.ErrNotFound)
	}
	return nil
}

// summary requires sess.mu held.
func (sess *session) summary() *Summary {
	issues := make([]string, len(sess.pkg.Issues))
	for i, err := range sess.pkg.Issues {
		issues[i] = err.Error()
	}
	return &Summary{
		ID:            sess.id,
		Name:          sess.name,
		WorkspacePath: sess.workspacePath,
		Parts:         len(sess.pkg.Entries),
		Relationships: len(graph.Build(sess.pkg.Entries).Edges),
		Generation:    sess.loadedGen,
		Issues:        issues,
		OpenedAt:      sess.openedAt,
		LoadedAt:      sess.loadedAt,
	}
}

func (s *Service) reindex(id string, pkg *ooxml.Package) {
	if s.db == nil {
		return
	}
	if err := s.db.ReplacePackage(id, pkg.Entries, graph.Build(pkg.Entries).Edges); err != nil {
		s.logger.Warn("packageservice: index failed", slog.String("id", id), slog.String("error", err.Error()))
	}
}

func (s *Service) publish(c sse.Change) {
	if s.notify != nil {
		s.notify.PublishChange(c)
	}
}

// Workspace lists the package files available to OpenWorkspace.
func (s *Service) Workspace() ([]storage.PackageFile, error) {
	if s.store == nil {
		return []storage.PackageFile{}, nil
	}
	return s.store.List()
}
