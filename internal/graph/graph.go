// Package graph builds the directed relationship graph of a package.
//
// The graph is an edge list over part paths. It is built by a single pass
// over the relationships parts and queried by lookup; it is never traversed
// recursively, so cycles and self-loops are harmless.
package graph

import (
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/starford/relscope/internal/parts"
	"github.com/starford/relscope/internal/rels"
)

// Root is the synthetic node that owns the package-level relationships.
const Root = "[Package]"

const (
	maxLabel     = 36
	truncatedLen = 33
)

// Edge is one relationship between two nodes.
type Edge struct {
	From       string `json:"from"`
	To         string `json:"to"`
	ID         string `json:"id"`
	Type       string `json:"type"`
	TypeURI    string `json:"typeUri"`
	TargetMode string `json:"targetMode,omitempty"`
	External   bool   `json:"external,omitempty"`
}

// Graph is a multigraph over part paths plus Root. Nodes and edges keep
// insertion order.
type Graph struct {
	Nodes []string `json:"nodes"`
	Edges []Edge   `json:"edges"`

	index map[string]struct{}
}

func newGraph() *Graph {
	return &Graph{Nodes: []string{}, Edges: []Edge{}, index: make(map[string]struct{})}
}

func (g *Graph) addNode(n string) {
	if _, ok := g.index[n]; ok {
		return
	}
	g.index[n] = struct{}{}
	g.Nodes = append(g.Nodes, n)
}

// HasNode reports whether n is a node of the graph.
func (g *Graph) HasNode(n string) bool {
	_, ok := g.index[n]
	return ok
}

// Outgoing returns the edges whose source is n, in graph order.
func (g *Graph) Outgoing(n string) []Edge {
	out := []Edge{}
	for _, e := range g.Edges {
		if e.From == n {
			out = append(out, e)
		}
	}
	return out
}

// Incoming returns the edges whose target is n, in graph order.
func (g *Graph) Incoming(n string) []Edge {
	out := []Edge{}
	for _, e := range g.Edges {
		if e.To == n {
			out = append(out, e)
		}
	}
	return out
}

// Build aggregates every relationships part in entries into one graph.
// Each accepted Relationship element becomes one edge, including self-loops
// and repeated (from, to) pairs.
func Build(entries []*parts.Entry) *Graph {
	g := newGraph()
	for _, e := range entries {
		relsPath := parts.NormalizePath(e.Path)
		if !strings.HasSuffix(relsPath, ".rels") {
			continue
		}
		owner := Root
		if relsPath != rels.PackageRelsPath {
			owner = rels.OwnerPartFromRelsPath(relsPath)
		}
		g.addNode(owner)

		list := rels.Parse(e.Content)
		if len(list) == 0 {
			slog.Debug("graph: no relationships accepted", slog.String("rels", relsPath))
		}
		for _, r := range list {
			to := rels.ResolveTarget(relsPath, r.Target)
			g.addNode(to)
			g.Edges = append(g.Edges, Edge{
				From:       owner,
				To:         to,
				ID:         r.ID,
				Type:       rels.ShortType(r.Type),
				TypeURI:    r.Type,
				TargetMode: r.TargetMode,
				External:   r.External(),
			})
		}
	}
	return g
}

// NodeLabel returns a short display label: the last path segment, truncated
// to 33 characters plus an ellipsis when longer than 36.
func NodeLabel(n string) string {
	if n == Root {
		return Root
	}
	name := n
	if i := strings.LastIndex(n, "/"); i >= 0 {
		name = n[i+1:]
	}
	if utf8.RuneCountInString(name) <= maxLabel {
		return name
	}
	return string([]rune(name)[:truncatedLen]) + "…"
}
