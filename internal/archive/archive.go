// Package archive reads and writes the ZIP container that holds an OOXML package.
package archive

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/starford/relscope/internal/apperr"
)

// File is one archive entry as stored in the container.
type File struct {
	Path  string
	Data  []byte
	IsDir bool
}

// CorruptArchiveError reports a container that cannot be decoded at all.
type CorruptArchiveError struct {
	Path string // entry that failed, empty for container-level failures
	Err  error
}

func (e *CorruptArchiveError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("archive: corrupt entry %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("archive: corrupt container: %v", e.Err)
}

func (e *CorruptArchiveError) Unwrap() error { return e.Err }

// Is lets callers match any corruption with errors.Is(err, apperr.ErrCorruptArchive).
func (e *CorruptArchiveError) Is(target error) bool {
	return target == apperr.ErrCorruptArchive
}

// DefaultMaxSize bounds the total decompressed size of a container.
const DefaultMaxSize int64 = 1 << 30

// ErrTooLarge reports a container whose entries inflate past the size limit.
var ErrTooLarge = errors.New("decompressed size exceeds limit")

type decodeOptions struct {
	maxSize int64
}

// DecodeOption configures Decode.
type DecodeOption func(*decodeOptions)

// WithMaxSize caps the total decompressed size of all entries. Values <= 0
// keep DefaultMaxSize.
func WithMaxSize(n int64) DecodeOption {
	return func(o *decodeOptions) {
		if n > 0 {
			o.maxSize = n
		}
	}
}

// Archive is a decoded container. It keeps the original bytes of every entry
// so binary parts can be copied verbatim on repack.
type Archive struct {
	files []File
	index map[string]int
}

// Decode reads a ZIP byte stream. Entry paths are normalized to forward slashes.
// Entries are returned in central-directory order. A container whose entries
// inflate past the size limit is corrupt.
func Decode(data []byte, opts ...DecodeOption) (*Archive, error) {
	o := decodeOptions{maxSize: DefaultMaxSize}
	for _, opt := range opts {
		opt(&o)
	}
	if len(data) == 0 {
		return nil, &CorruptArchiveError{Err: errors.New("empty input")}
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil && !(errors.Is(err, zip.ErrInsecurePath) && zr != nil) {
		return nil, &CorruptArchiveError{Err: err}
	}

	a := &Archive{
		files: make([]File, 0, len(zr.File)),
		index: make(map[string]int, len(zr.File)),
	}
	remaining := o.maxSize
	for _, zf := range zr.File {
		path := strings.ReplaceAll(zf.Name, `\`, "/")
		if zf.FileInfo().IsDir() || strings.HasSuffix(path, "/") {
			a.files = append(a.files, File{Path: path, IsDir: true})
			continue
		}
		content, err := readZipFile(zf, remaining)
		if err != nil {
			return nil, &CorruptArchiveError{Path: path, Err: err}
		}
		remaining -= int64(len(content))
		if _, dup := a.index[path]; dup {
			// First occurrence wins; later duplicates are unreachable by path.
			continue
		}
		a.index[path] = len(a.files)
		a.files = append(a.files, File{Path: path, Data: content})
	}
	return a, nil
}

// readZipFile inflates zf, reading at most limit bytes.
func readZipFile(zf *zip.File, limit int64) ([]byte, error) {
	if zf.UncompressedSize64 > uint64(limit) {
		return nil, ErrTooLarge
	}
	rc, err := zf.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	// The header size is not trusted; the read itself is bounded.
	data, err := io.ReadAll(io.LimitReader(rc, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, ErrTooLarge
	}
	return data, nil
}

// Files returns every entry, directories included, in archive order.
func (a *Archive) Files() []File {
	out := make([]File, len(a.files))
	copy(out, a.files)
	return out
}

// Has reports whether a non-directory entry exists at path.
func (a *Archive) Has(path string) bool {
	_, ok := a.index[path]
	return ok
}

// Read returns a copy of the raw bytes stored at path.
func (a *Archive) Read(path string) ([]byte, error) {
	i, ok := a.index[path]
	if !ok {
		return nil, fmt.Errorf("archive: read %s: %w", path, apperr.ErrNotFound)
	}
	data := a.files[i].Data
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

// Len returns the number of non-directory entries.
func (a *Archive) Len() int {
	return len(a.index)
}

// Encode writes entries into a new ZIP stream in the given order.
// Output is deterministic for a fixed input: entries are deflated and carry no timestamps.
func Encode(files []File) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	seen := make(map[string]struct{}, len(files))
	for _, f := range files {
		if f.IsDir {
			continue
		}
		if f.Path == "" {
			zw.Close()
			return nil, fmt.Errorf("archive: encode: empty entry path")
		}
		if _, dup := seen[f.Path]; dup {
			zw.Close()
			return nil, fmt.Errorf("archive: encode: duplicate entry %s", f.Path)
		}
		seen[f.Path] = struct{}{}

		w, err := zw.CreateHeader(&zip.FileHeader{Name: f.Path, Method: zip.Deflate})
		if err != nil {
			zw.Close()
			return nil, fmt.Errorf("archive: create %s: %w", f.Path, err)
		}
		if _, err := w.Write(f.Data); err != nil {
			zw.Close()
			return nil, fmt.Errorf("archive: write %s: %w", f.Path, err)
		}
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("archive: close writer: %w", err)
	}
	return buf.Bytes(), nil
}
