package rels

import (
	"strings"

	"github.com/starford/relscope/internal/parts"
)

// Dependencies returns the resolved targets of partPath's relationships part.
// A part without a relationships part has no dependencies. Targets that are
// themselves relationships parts are excluded.
func Dependencies(partPath string, entries []*parts.Entry) []string {
	relsPath := PartRelsPath(partPath)
	var content string
	found := false
	for _, e := range entries {
		if parts.NormalizePath(e.Path) == relsPath {
			content, found = e.Content, true
			break
		}
	}
	if !found {
		return []string{}
	}

	out := []string{}
	for _, r := range Parse(content) {
		resolved := ResolveTarget(relsPath, r.Target)
		if strings.HasSuffix(strings.ToLower(resolved), ".rels") {
			continue
		}
		out = append(out, resolved)
	}
	return out
}
