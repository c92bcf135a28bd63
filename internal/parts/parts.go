// Package parts classifies OOXML part paths. Everything here is a pure
// function of the path string.
package parts

import (
	"path"
	"strings"
)

// OctetStream is the MIME type for anything that is not a recognized image.
const OctetStream = "application/octet-stream"

var imageMIME = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".bmp":  "image/bmp",
	".emf":  "image/emf",
	".wmf":  "image/wmf",
	".tiff": "image/tiff",
	".tif":  "image/tiff",
	".webp": "image/webp",
}

// NormalizePath converts backslashes to forward slashes.
func NormalizePath(p string) string {
	return strings.ReplaceAll(p, `\`, "/")
}

func ext(p string) string {
	return strings.ToLower(path.Ext(p))
}

// IsTextPart reports whether p is an XML or relationships part.
func IsTextPart(p string) bool {
	switch ext(p) {
	case ".xml", ".rels":
		return true
	}
	return false
}

// IsImagePart reports whether p has a known raster or vector image extension.
func IsImagePart(p string) bool {
	_, ok := imageMIME[ext(p)]
	return ok
}

// IsRelsPart reports whether p is a relationships part.
func IsRelsPart(p string) bool {
	return ext(p) == ".rels"
}

// IsMediaPath reports whether p sits under a media/ folder at any depth.
func IsMediaPath(p string) bool {
	return strings.Contains(strings.ToLower(p), "/media/")
}

// MimeType maps a recognized image extension to its MIME type.
func MimeType(p string) string {
	if m, ok := imageMIME[ext(p)]; ok {
		return m
	}
	return OctetStream
}
