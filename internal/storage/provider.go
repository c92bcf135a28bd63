// Package storage defines the workspace of OOXML package files.
package storage

import (
	"path"
	"strings"
	"time"
)

// PackageFile describes one package file in the workspace.
type PackageFile struct {
	Path      string    `json:"path"`
	Size      int64     `json:"size"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Provider is the interface for workspace file operations.
type Provider interface {
	// List returns every package file under the workspace root.
	List() ([]PackageFile, error)
	// Read returns the raw bytes of the file at path (relative to the root).
	Read(path string) ([]byte, error)
	// Write atomically writes content to path (relative to the root).
	Write(path string, content []byte) error
	// Delete removes the file at path (relative to the root).
	Delete(path string) error
}

var packageExts = map[string]struct{}{
	".docx": {}, ".docm": {}, ".dotx": {}, ".dotm": {},
	".pptx": {}, ".pptm": {}, ".potx": {}, ".potm": {}, ".ppsx": {}, ".ppsm": {},
	".xlsx": {}, ".xlsm": {}, ".xltx": {}, ".xltm": {},
	".vsdx": {},
}

// IsPackageFile reports whether name has an OOXML package extension.
// Office lock files ("~$deck.pptx") are not packages.
func IsPackageFile(name string) bool {
	base := path.Base(strings.ReplaceAll(name, `\`, "/"))
	if strings.HasPrefix(base, "~$") {
		return false
	}
	_, ok := packageExts[strings.ToLower(path.Ext(base))]
	return ok
}
