package packageservice

import (
	"time"

	"github.com/starford/relscope/internal/graph"
)

// Summary describes one open package session.
type Summary struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	WorkspacePath string    `json:"workspacePath,omitempty"`
	Parts         int       `json:"parts"`
	Relationships int       `json:"relationships"`
	Generation    uint64    `json:"generation"`
	Issues        []string  `json:"issues"`
	OpenedAt      time.Time `json:"openedAt"`
	LoadedAt      time.Time `json:"loadedAt"`
}

// PartInfo is a lightweight item in a part list.
type PartInfo struct {
	Path       string `json:"path"`
	IsBinary   bool   `json:"isBinary"`
	PreviewRef string `json:"previewRef,omitempty"`
}

// PartDetail is the full representation of one part.
type PartDetail struct {
	Path         string   `json:"path"`
	Content      string   `json:"content"`
	IsBinary     bool     `json:"isBinary"`
	Undecodable  bool     `json:"undecodable,omitempty"`
	PreviewRef   string   `json:"previewRef,omitempty"`
	MIME         string   `json:"mime"`
	Checksum     string   `json:"checksum"`
	RelsPath     string   `json:"relsPath"`
	Dependencies []string `json:"dependencies"`
	Dependents   []string `json:"dependents"`
	Route        string   `json:"route"`
}

// GraphNode is one dependency graph node with its display label.
type GraphNode struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// GraphView is the dependency graph of a package.
type GraphView struct {
	Nodes []GraphNode  `json:"nodes"`
	Edges []graph.Edge `json:"edges"`
}

// NewGraphView converts g for display.
func NewGraphView(g *graph.Graph) GraphView {
	v := GraphView{
		Nodes: make([]GraphNode, len(g.Nodes)),
		Edges: g.Edges,
	}
	for i, n := range g.Nodes {
		v.Nodes[i] = GraphNode{ID: n, Label: graph.NodeLabel(n)}
	}
	if v.Edges == nil {
		v.Edges = []graph.Edge{}
	}
	return v
}

// Dependencies lists the parts a part points at and the parts pointing at it.
type Dependencies struct {
	Path         string   `json:"path"`
	Dependencies []string `json:"dependencies"`
	Dependents   []string `json:"dependents"`
}

// Download is a repacked package ready to hand to a client.
type Download struct {
	Name string
	Data []byte
}
