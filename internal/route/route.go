// Package route maps part paths to and from URL paths of the form
// <base>f/<part path>.
package route

import "strings"

// Prefix marks a part route under the base path.
const Prefix = "f/"

// NormalizeBase returns base with exactly one trailing slash, or "/".
func NormalizeBase(base string) string {
	base = strings.TrimRight(base, "/")
	if base == "" {
		return "/"
	}
	return base + "/"
}

// Build returns the URL path selecting partPath. Slashes in the part path
// are kept literally.
func Build(base, partPath string) string {
	return NormalizeBase(base) + Prefix + partPath
}

// Parse extracts the part path from pathname. ok is false when pathname is
// not a part route under base or names no part.
func Parse(base, pathname string) (partPath string, ok bool) {
	rest, found := strings.CutPrefix(pathname, NormalizeBase(base))
	if !found {
		return "", false
	}
	rest, found = strings.CutPrefix(rest, Prefix)
	if !found {
		return "", false
	}
	partPath = strings.Trim(rest, "/")
	return partPath, partPath != ""
}

// Select resolves pathname against the paths of a loaded package. A route
// naming an unknown part, or no route at all, selects the first path.
func Select(base, pathname string, paths []string) string {
	if p, ok := Parse(base, pathname); ok {
		for _, candidate := range paths {
			if candidate == p {
				return p
			}
		}
	}
	if len(paths) == 0 {
		return ""
	}
	return paths[0]
}
