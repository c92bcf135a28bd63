package packageservice

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/starford/relscope/internal/apperr"
	"github.com/starford/relscope/internal/checksum"
	"github.com/starford/relscope/internal/graph"
	"github.com/starford/relscope/internal/index"
	"github.com/starford/relscope/internal/parts"
	"github.com/starford/relscope/internal/rels"
	"github.com/starford/relscope/internal/repack"
	"github.com/starford/relscope/internal/route"
	"github.com/starford/relscope/internal/sse"
	"github.com/starford/relscope/internal/tree"
)

// Parts lists the parts of a package in path order.
func (s *Service) Parts(id string) ([]PartInfo, error) {
	sess, err := s.session(id)
	if err != nil {
		return nil, err
	}
	sess.mu.RLock()
	defer sess.mu.RUnlock()

	out := make([]PartInfo, len(sess.pkg.Entries))
	for i, e := range sess.pkg.Entries {
		out[i] = PartInfo{Path: e.Path, IsBinary: e.IsBinary, PreviewRef: e.PreviewRef}
	}
	return out, nil
}

// Part returns one part with its relationships.
func (s *Service) Part(id, partPath string) (*PartDetail, error) {
	sess, err := s.session(id)
	if err != nil {
		return nil, err
	}
	partPath = parts.NormalizePath(partPath)

	sess.mu.RLock()
	defer sess.mu.RUnlock()

	e := sess.pkg.Entry(partPath)
	if e == nil {
		return nil, partNotFound(id, partPath)
	}
	return &PartDetail{
		Path:         e.Path,
		Content:      e.Content,
		IsBinary:     e.IsBinary,
		Undecodable:  e.Undecodable,
		PreviewRef:   e.PreviewRef,
		MIME:         partMIME(e.Path),
		Checksum:     entryChecksum(e),
		RelsPath:     rels.PartRelsPath(e.Path),
		Dependencies: rels.Dependencies(e.Path, sess.pkg.Entries),
		Dependents:   s.dependents(id, e.Path, sess.pkg.Entries),
		Route:        route.Build(s.basePath, e.Path),
	}, nil
}

// Select resolves a viewer URL path to the part it names, falling back to
// the first part of the package.
func (s *Service) Select(id, pathname string) (*PartDetail, error) {
	sess, err := s.session(id)
	if err != nil {
		return nil, err
	}
	sess.mu.RLock()
	paths := make([]string, len(sess.pkg.Entries))
	for i, e := range sess.pkg.Entries {
		paths[i] = e.Path
	}
	sess.mu.RUnlock()

	selected := route.Select(s.basePath, pathname, paths)
	if selected == "" {
		return nil, fmt.Errorf("packageservice: package %s is empty: %w", id, apperr.ErrNotFound)
	}
	return s.Part(id, selected)
}

// UpdatePart replaces the content of a text part. A non-empty ifMatch must
// equal the checksum of the current content.
func (s *Service) UpdatePart(_ context.Context, id, partPath, content, ifMatch string) (*PartDetail, error) {
	sess, err := s.session(id)
	if err != nil {
		return nil, err
	}
	partPath = parts.NormalizePath(partPath)

	if err := sess.lock(); err != nil {
		return nil, err
	}
	e := sess.pkg.Entry(partPath)
	switch {
	case e == nil:
		sess.mu.Unlock()
		return nil, partNotFound(id, partPath)
	case e.IsBinary:
		sess.mu.Unlock()
		return nil, fmt.Errorf("packageservice: update %s: %w", partPath, apperr.ErrBinaryPart)
	case ifMatch != "" && ifMatch != entryChecksum(e):
		sess.mu.Unlock()
		return nil, fmt.Errorf("packageservice: update %s: %w", partPath, apperr.ErrConflict)
	}
	e.Content = content
	e.Undecodable = false
	s.indexPart(id, e, sess.pkg.Entries)
	sess.mu.Unlock()

	s.publish(sse.Change{Kind: sse.PartUpdated, PackageID: id, Path: partPath, GraphChanged: parts.IsRelsPart(partPath)})
	return s.Part(id, partPath)
}

// CreatePart inserts a new text part.
func (s *Service) CreatePart(_ context.Context, id, partPath, content string) (*PartDetail, error) {
	sess, err := s.session(id)
	if err != nil {
		return nil, err
	}
	partPath, err = validPartPath(partPath)
	if err != nil {
		return nil, err
	}
	if !parts.IsTextPart(partPath) {
		return nil, fmt.Errorf("packageservice: create %s: %w", partPath, apperr.ErrBinaryPart)
	}

	if err := sess.lock(); err != nil {
		return nil, err
	}
	i, found := slices.BinarySearchFunc(sess.pkg.Entries, partPath, func(e *parts.Entry, target string) int {
		return strings.Compare(e.Path, target)
	})
	if found {
		sess.mu.Unlock()
		return nil, fmt.Errorf("packageservice: create %s: %w", partPath, apperr.ErrAlreadyExists)
	}
	e := &parts.Entry{Path: partPath, Content: content}
	sess.pkg.Entries = slices.Insert(sess.pkg.Entries, i, e)
	s.indexPart(id, e, sess.pkg.Entries)
	sess.mu.Unlock()

	s.publish(sse.Change{Kind: sse.PartCreated, PackageID: id, Path: partPath, GraphChanged: parts.IsRelsPart(partPath)})
	return s.Part(id, partPath)
}

// ReplaceBinary swaps the payload of a binary part and refreshes its preview.
func (s *Service) ReplaceBinary(_ context.Context, id, partPath string, data []byte) (*PartDetail, error) {
	sess, err := s.session(id)
	if err != nil {
		return nil, err
	}
	partPath = parts.NormalizePath(partPath)

	if err := sess.lock(); err != nil {
		return nil, err
	}
	e := sess.pkg.Entry(partPath)
	if e == nil {
		sess.mu.Unlock()
		return nil, partNotFound(id, partPath)
	}
	if !e.IsBinary {
		sess.mu.Unlock()
		return nil, fmt.Errorf("packageservice: replace %s: text part: %w", partPath, apperr.ErrInvalidPath)
	}
	e.Replacement = slices.Clone(data)
	oldRef := e.PreviewRef
	e.PreviewRef = ""
	if oldRef != "" || parts.IsImagePart(partPath) || parts.IsMediaPath(partPath) {
		mime := parts.OctetStream
		if parts.IsImagePart(partPath) {
			mime = parts.MimeType(partPath)
		}
		if handle, err := s.previews.Create(e.Replacement, mime); err == nil {
			e.PreviewRef = handle
		} else {
			s.logger.Debug("packageservice: preview unavailable", slog.String("path", partPath), slog.String("error", err.Error()))
		}
	}
	s.indexPart(id, e, sess.pkg.Entries)
	sess.mu.Unlock()

	s.previews.Revoke(oldRef)
	s.publish(sse.Change{Kind: sse.PartUpdated, PackageID: id, Path: partPath})
	return s.Part(id, partPath)
}

// DeletePart removes a part and releases its preview.
func (s *Service) DeletePart(_ context.Context, id, partPath string) error {
	sess, err := s.session(id)
	if err != nil {
		return err
	}
	partPath = parts.NormalizePath(partPath)

	if err := sess.lock(); err != nil {
		return err
	}
	i := slices.IndexFunc(sess.pkg.Entries, func(e *parts.Entry) bool { return e.Path == partPath })
	if i < 0 {
		sess.mu.Unlock()
		return partNotFound(id, partPath)
	}
	ref := sess.pkg.Entries[i].PreviewRef
	sess.pkg.Entries = slices.Delete(sess.pkg.Entries, i, i+1)
	if s.db != nil {
		if err := s.db.DeletePart(id, partPath); err != nil {
			s.logger.Warn("packageservice: index delete failed", slog.String("path", partPath), slog.String("error", err.Error()))
		}
		if parts.IsRelsPart(partPath) {
			s.indexRelationships(id, sess.pkg.Entries)
		}
	}
	sess.mu.Unlock()

	s.previews.Revoke(ref)
	s.publish(sse.Change{Kind: sse.PartDeleted, PackageID: id, Path: partPath, GraphChanged: parts.IsRelsPart(partPath)})
	return nil
}

// Tree returns the folder/file tree of a package.
func (s *Service) Tree(id string) ([]*tree.Node, error) {
	sess, err := s.session(id)
	if err != nil {
		return nil, err
	}
	sess.mu.RLock()
	defer sess.mu.RUnlock()
	return tree.Build(sess.pkg.Entries), nil
}

// Graph returns the dependency graph of a package.
func (s *Service) Graph(id string) (*GraphView, error) {
	sess, err := s.session(id)
	if err != nil {
		return nil, err
	}
	sess.mu.RLock()
	defer sess.mu.RUnlock()
	v := NewGraphView(graph.Build(sess.pkg.Entries))
	return &v, nil
}

// Dependencies returns the parts partPath depends on and the parts that
// depend on it.
func (s *Service) Dependencies(id, partPath string) (*Dependencies, error) {
	sess, err := s.session(id)
	if err != nil {
		return nil, err
	}
	partPath = parts.NormalizePath(partPath)

	sess.mu.RLock()
	defer sess.mu.RUnlock()
	// Relationship targets missing from the package are graph nodes too.
	g := graph.Build(sess.pkg.Entries)
	if partPath != graph.Root && sess.pkg.Entry(partPath) == nil && !g.HasNode(partPath) {
		return nil, partNotFound(id, partPath)
	}

	var deps []string
	if partPath == graph.Root {
		deps = []string{}
		for _, e := range g.Outgoing(graph.Root) {
			if !parts.IsRelsPart(e.To) {
				deps = append(deps, e.To)
			}
		}
	} else {
		deps = rels.Dependencies(partPath, sess.pkg.Entries)
	}
	return &Dependencies{
		Path:         partPath,
		Dependencies: deps,
		Dependents:   s.dependents(id, partPath, sess.pkg.Entries),
	}, nil
}

// Search finds text parts containing query.
func (s *Service) Search(_ context.Context, id, query string, limit int) ([]index.SearchResult, error) {
	sess, err := s.session(id)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(query) == "" {
		return []index.SearchResult{}, nil
	}
	if s.db != nil {
		return s.db.Search(id, query, limit)
	}

	sess.mu.RLock()
	defer sess.mu.RUnlock()
	return scan(sess.pkg.Entries, query, limit), nil
}

// Repack serializes the current state of a package.
func (s *Service) Repack(ctx context.Context, id string) (*Download, error) {
	sess, err := s.session(id)
	if err != nil {
		return nil, err
	}
	sess.mu.RLock()
	entries := make([]*parts.Entry, len(sess.pkg.Entries))
	for i, e := range sess.pkg.Entries {
		entries[i] = e.Clone()
	}
	src := sess.pkg.Archive
	name := sess.name
	sess.mu.RUnlock()

	data, err := repack.Repack(ctx, src, entries)
	if err != nil {
		return nil, fmt.Errorf("packageservice: repack %s: %w", id, err)
	}
	return &Download{Name: repack.OutputName(name), Data: data}, nil
}

// Save repacks a package into the workspace. An empty target overwrites the
// session's own workspace file, or writes the derived edited name for
// uploads. It returns the workspace path written.
func (s *Service) Save(ctx context.Context, id, target string) (string, error) {
	if s.store == nil {
		return "", fmt.Errorf("packageservice: no workspace configured: %w", apperr.ErrNotFound)
	}
	sess, err := s.session(id)
	if err != nil {
		return "", err
	}
	dl, err := s.Repack(ctx, id)
	if err != nil {
		return "", err
	}
	if target == "" {
		target = sess.workspacePath
	}
	if target == "" {
		target = dl.Name
	}
	if err := s.store.Write(target, dl.Data); err != nil {
		return "", err
	}

	if target == sess.workspacePath {
		sess.mu.Lock()
		sess.sourceChecksum = checksum.Sum(dl.Data)
		sess.mu.Unlock()
	}
	s.logger.Info("packageservice: saved", slog.String("id", id), slog.String("path", target))
	return target, nil
}

// indexPart requires the session lock.
func (s *Service) indexPart(id string, e *parts.Entry, entries []*parts.Entry) {
	if s.db == nil {
		return
	}
	if err := s.db.UpsertPart(id, e); err != nil {
		s.logger.Warn("packageservice: index part failed", slog.String("path", e.Path), slog.String("error", err.Error()))
	}
	if parts.IsRelsPart(e.Path) {
		s.indexRelationships(id, entries)
	}
}

func (s *Service) indexRelationships(id string, entries []*parts.Entry) {
	if err := s.db.ReplaceRelationships(id, graph.Build(entries).Edges); err != nil {
		s.logger.Warn("packageservice: index relationships failed", slog.String("id", id), slog.String("error", err.Error()))
	}
}

// dependents requires the session lock.
func (s *Service) dependents(id, partPath string, entries []*parts.Entry) []string {
	if s.db != nil {
		if out, err := s.db.Dependents(id, partPath); err == nil {
			return out
		}
	}
	seen := make(map[string]struct{})
	out := []string{}
	for _, e := range graph.Build(entries).Incoming(partPath) {
		if _, ok := seen[e.From]; !ok {
			seen[e.From] = struct{}{}
			out = append(out, e.From)
		}
	}
	slices.Sort(out)
	return out
}

// scan is the in-memory search used without an index.
func scan(entries []*parts.Entry, query string, limit int) []index.SearchResult {
	if limit <= 0 {
		limit = 20
	}
	needle := strings.ToLower(query)
	out := []index.SearchResult{}
	for _, e := range entries {
		if e.IsBinary || e.Undecodable {
			continue
		}
		lower := strings.ToLower(e.Content)
		i := strings.Index(lower, needle)
		if i < 0 {
			continue
		}
		// Lowering keeps the rune count but not the byte length, so the
		// window is cut in runes.
		content := []rune(e.Content)
		at := utf8.RuneCountInString(lower[:i])
		end := min(at+utf8.RuneCountInString(needle)+80, len(content))
		start := min(max(at-40, 0), end)
		out = append(out, index.SearchResult{Path: e.Path, Snippet: string(content[start:end])})
		if len(out) == limit {
			break
		}
	}
	return out
}

func entryChecksum(e *parts.Entry) string {
	if e.IsBinary && e.Replacement != nil {
		return checksum.Sum(e.Replacement)
	}
	return checksum.String(e.Content)
}

func partMIME(p string) string {
	switch {
	case parts.IsImagePart(p):
		return parts.MimeType(p)
	case parts.IsTextPart(p):
		return "application/xml"
	}
	return parts.OctetStream
}

func validPartPath(p string) (string, error) {
	p = strings.TrimPrefix(parts.NormalizePath(strings.TrimSpace(p)), "/")
	if p == "" || strings.HasSuffix(p, "/") {
		return "", fmt.Errorf("packageservice: invalid part path %q: %w", p, apperr.ErrInvalidPath)
	}
	for _, seg := range strings.Split(p, "/") {
		if seg == "" || seg == "." || seg == ".." {
			return "", fmt.Errorf("packageservice: invalid part path %q: %w", p, apperr.ErrInvalidPath)
		}
	}
	return p, nil
}

func partNotFound(id, partPath string) error {
	return fmt.Errorf("packageservice: part %s in %s: %w", partPath, id, apperr.ErrNotFound)
}
