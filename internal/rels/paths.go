// Package rels parses OPC relationship parts and resolves their targets to
// canonical part paths.
package rels

import (
	"strings"

	"github.com/starford/relscope/internal/parts"
)

// PackageRelsPath is the package-level relationships part.
const PackageRelsPath = "_rels/.rels"

// Namespace is the OPC relationships namespace.
const Namespace = "http://schemas.openxmlformats.org/package/2006/relationships"

// PartRelsPath returns the relationships part for partPath:
// "dir/base" -> "dir/_rels/base.rels", "base" -> "_rels/base.rels".
func PartRelsPath(partPath string) string {
	p := parts.NormalizePath(partPath)
	dir, base := "", p
	if i := strings.LastIndex(p, "/"); i >= 0 {
		dir, base = p[:i], p[i+1:]
	}
	if dir == "" {
		return "_rels/" + base + ".rels"
	}
	return dir + "/_rels/" + base + ".rels"
}

// OwnerPartFromRelsPath is the inverse of PartRelsPath. A path that is not
// shaped like ".../_rels/<name>.rels" is returned unchanged.
func OwnerPartFromRelsPath(relsPath string) string {
	dir, name, ok := splitRelsPath(relsPath)
	if !ok {
		return relsPath
	}
	if dir == "" {
		return name
	}
	return dir + "/" + name
}

// splitRelsPath splits "dir/_rels/name.rels" into ("dir", "name", true).
func splitRelsPath(relsPath string) (dir, name string, ok bool) {
	segs := strings.Split(relsPath, "/")
	if len(segs) < 2 {
		return "", "", false
	}
	file := segs[len(segs)-1]
	if segs[len(segs)-2] != "_rels" || !strings.HasSuffix(file, ".rels") {
		return "", "", false
	}
	return strings.Join(segs[:len(segs)-2], "/"), strings.TrimSuffix(file, ".rels"), true
}

// baseDir is the directory relative targets in relsPath resolve against: the
// owning part's directory. The package rels resolve against the archive root.
func baseDir(relsPath string) string {
	if relsPath == PackageRelsPath {
		return ""
	}
	if dir, _, ok := splitRelsPath(relsPath); ok {
		return dir
	}
	if i := strings.LastIndex(relsPath, "/"); i >= 0 {
		return relsPath[:i]
	}
	return ""
}

// ResolveTarget resolves a relationship target declared in relsPath to a
// canonical part path with no leading slash. Query strings are dropped, "."
// and empty segments are skipped, and ".." pops one segment without going
// above the archive root. A target starting with "/" is package-absolute.
func ResolveTarget(relsPath, target string) string {
	t, _, _ := strings.Cut(target, "?")
	t = strings.TrimSpace(t)

	combined := t
	if base := baseDir(parts.NormalizePath(relsPath)); base != "" && !strings.HasPrefix(t, "/") {
		combined = base + "/" + t
	}

	out := make([]string, 0, strings.Count(combined, "/")+1)
	for _, seg := range strings.Split(combined, "/") {
		switch seg {
		case "..":
			if len(out) > 0 {
				out = out[:len(out)-1]
			}
		case ".", "":
		default:
			out = append(out, seg)
		}
	}
	return strings.Join(out, "/")
}
