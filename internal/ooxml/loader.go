// Package ooxml loads an OOXML package from raw archive bytes into a sorted
// collection of part entries.
package ooxml

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/starford/relscope/internal/archive"
	"github.com/starford/relscope/internal/parts"
)

// PreviewCreator turns raw image bytes into an opaque preview handle.
type PreviewCreator interface {
	Create(data []byte, mime string) (string, error)
}

// Package is a loaded OOXML package.
type Package struct {
	// Entries are sorted by path in ascending byte order.
	Entries []*parts.Entry
	// Archive is the decoded source container; binary parts are copied from it on repack.
	Archive *archive.Archive
	// Issues lists recovered per-part problems (*PartDecodeError, *PreviewUnavailableError).
	Issues []error
}

// PreviewRefs returns every preview handle held by the package's entries.
func (p *Package) PreviewRefs() []string {
	var out []string
	for _, e := range p.Entries {
		if e.PreviewRef != "" {
			out = append(out, e.PreviewRef)
		}
	}
	return out
}

// Entry returns the entry at path, or nil.
func (p *Package) Entry(path string) *parts.Entry {
	i, ok := slices.BinarySearchFunc(p.Entries, path, func(e *parts.Entry, target string) int {
		return strings.Compare(e.Path, target)
	})
	if !ok {
		return nil
	}
	return p.Entries[i]
}

type loadOptions struct {
	previews    PreviewCreator
	logger      *slog.Logger
	concurrency int
	maxSize     int64
}

// Option configures Load.
type Option func(*loadOptions)

// WithPreviews enables preview derivation for image and media parts.
func WithPreviews(pc PreviewCreator) Option {
	return func(o *loadOptions) { o.previews = pc }
}

// WithLogger sets the logger used for recovered per-part problems.
func WithLogger(l *slog.Logger) Option {
	return func(o *loadOptions) { o.logger = l }
}

// WithConcurrency bounds the number of entries processed at once.
func WithConcurrency(n int) Option {
	return func(o *loadOptions) { o.concurrency = n }
}

// WithMaxSize caps the total decompressed size of the package's parts.
func WithMaxSize(n int64) Option {
	return func(o *loadOptions) { o.maxSize = n }
}

// Load decodes data and builds the package's entries. Only a container that
// cannot be decoded fails the load; undecodable text and failed previews
// degrade the affected entry and are reported in Package.Issues.
func Load(ctx context.Context, data []byte, opts ...Option) (*Package, error) {
	o := loadOptions{logger: slog.Default(), concurrency: 8}
	for _, opt := range opts {
		opt(&o)
	}

	arc, err := archive.Decode(data, archive.WithMaxSize(o.maxSize))
	if err != nil {
		return nil, err
	}

	files := make([]archive.File, 0, arc.Len())
	for _, f := range arc.Files() {
		if !f.IsDir {
			files = append(files, f)
		}
	}

	entries := make([]*parts.Entry, len(files))
	var (
		mu     sync.Mutex
		issues []error
	)
	report := func(err error) {
		mu.Lock()
		issues = append(issues, err)
		mu.Unlock()
	}

	g, gCtx := errgroup.WithContext(ctx)
	if o.concurrency > 0 {
		g.SetLimit(o.concurrency)
	}
	for i, f := range files {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			entries[i] = buildEntry(f, o, report)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		for _, e := range entries {
			if e != nil && e.PreviewRef != "" {
				revoke(o.previews, e.PreviewRef)
			}
		}
		return nil, fmt.Errorf("ooxml: load: %w", err)
	}

	slices.SortFunc(entries, func(a, b *parts.Entry) int {
		return strings.Compare(a.Path, b.Path)
	})
	slices.SortFunc(issues, func(a, b error) int {
		return strings.Compare(a.Error(), b.Error())
	})

	for _, issue := range issues {
		var de *PartDecodeError
		if errors.As(issue, &de) {
			o.logger.Warn("loader: text part undecodable", slog.String("path", de.Path))
			continue
		}
		o.logger.Debug("loader: preview unavailable", slog.String("error", issue.Error()))
	}

	return &Package{Entries: entries, Archive: arc, Issues: issues}, nil
}

func buildEntry(f archive.File, o loadOptions, report func(error)) *parts.Entry {
	e := &parts.Entry{Path: f.Path, IsBinary: !parts.IsTextPart(f.Path)}

	if e.IsBinary {
		e.Content = parts.BinaryMarker
	} else if utf8.Valid(f.Data) {
		e.Content = string(f.Data)
	} else {
		e.Content = parts.UndecodableMarker
		e.Undecodable = true
		report(&PartDecodeError{Path: f.Path})
	}

	isImage := parts.IsImagePart(f.Path)
	if o.previews == nil || !(isImage || (e.IsBinary && parts.IsMediaPath(f.Path))) {
		return e
	}

	mime := parts.OctetStream
	if isImage {
		mime = parts.MimeType(f.Path)
	}
	handle, err := o.previews.Create(f.Data, mime)
	if err != nil {
		report(&PreviewUnavailableError{Path: f.Path, Err: err})
		return e
	}
	e.PreviewRef = handle
	return e
}

type revoker interface {
	Revoke(handles ...string)
}

func revoke(pc PreviewCreator, handle string) {
	if r, ok := pc.(revoker); ok {
		r.Revoke(handle)
	}
}
