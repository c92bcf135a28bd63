// Package repack serializes an entry collection back into an OOXML archive.
package repack

import (
	"context"
	"fmt"
	"path"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/starford/relscope/internal/archive"
	"github.com/starford/relscope/internal/parts"
)

// EditedSuffix is inserted before the extension of repacked file names.
const EditedSuffix = "_edited"

// DefaultName is used when no name can be derived from the original.
const DefaultName = "edited.docx"

// Source is the original container binary parts are copied from.
type Source interface {
	Has(path string) bool
	Read(path string) ([]byte, error)
}

// Repack writes entries, in order, into a new archive. Binary entries are
// copied verbatim from src unless they carry a Replacement; a binary entry
// src cannot supply is skipped. Text entries are written as UTF-8 from their
// current Content, except undecodable parts left untouched, which keep their
// original bytes.
func Repack(ctx context.Context, src Source, entries []*parts.Entry) ([]byte, error) {
	files := make([]archive.File, len(entries))
	keep := make([]bool, len(entries))

	g, gCtx := errgroup.WithContext(ctx)
	for i, e := range entries {
		switch {
		case e.IsBinary && e.Replacement != nil:
			files[i] = archive.File{Path: e.Path, Data: e.Replacement}
			keep[i] = true
		case e.IsBinary, e.Undecodable && e.Content == parts.UndecodableMarker:
			g.Go(func() error {
				if err := gCtx.Err(); err != nil {
					return err
				}
				if src == nil || !src.Has(e.Path) {
					return nil
				}
				data, err := src.Read(e.Path)
				if err != nil {
					return fmt.Errorf("read %s: %w", e.Path, err)
				}
				files[i] = archive.File{Path: e.Path, Data: data}
				keep[i] = true
				return nil
			})
		default:
			files[i] = archive.File{Path: e.Path, Data: []byte(e.Content)}
			keep[i] = true
		}
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("repack: copy binaries: %w", err)
	}

	out := files[:0]
	for i, f := range files {
		if keep[i] {
			out = append(out, f)
		}
	}
	data, err := archive.Encode(out)
	if err != nil {
		return nil, fmt.Errorf("repack: %w", err)
	}
	return data, nil
}

// OutputName derives the download name for a repacked package:
// "deck.pptx" becomes "deck_edited.pptx".
func OutputName(original string) string {
	base := strings.TrimSpace(path.Base(strings.ReplaceAll(original, `\`, "/")))
	if base == "" || base == "." || base == "/" {
		return DefaultName
	}
	ext := path.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	if stem == "" {
		// ".docx" has no stem, only an extension.
		return DefaultName
	}
	return stem + EditedSuffix + ext
}
