// Package render formats package trees, graphs and dependency lists for
// terminals and plain-text consumers.
package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/starford/relscope/internal/graph"
	"github.com/starford/relscope/internal/packageservice"
	"github.com/starford/relscope/internal/tree"
)

var (
	primary   = lipgloss.Color("#7C3AED")
	secondary = lipgloss.Color("#10B981")
	muted     = lipgloss.Color("#6B7280")
	warning   = lipgloss.Color("#F59E0B")
)

// Renderer turns domain values into text. A plain renderer emits no
// escape sequences.
type Renderer struct {
	plain bool

	title  lipgloss.Style
	folder lipgloss.Style
	file   lipgloss.Style
	binary lipgloss.Style
	branch lipgloss.Style
	label  lipgloss.Style
	issue  lipgloss.Style
}

// New creates a Renderer. With plain set, output carries no styling.
func New(plain bool) *Renderer {
	return &Renderer{
		plain:  plain,
		title:  lipgloss.NewStyle().Bold(true).Foreground(primary),
		folder: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#60A5FA")),
		file:   lipgloss.NewStyle(),
		binary: lipgloss.NewStyle().Foreground(muted).Italic(true),
		branch: lipgloss.NewStyle().Foreground(muted),
		label:  lipgloss.NewStyle().Foreground(secondary),
		issue:  lipgloss.NewStyle().Foreground(warning),
	}
}

func (r *Renderer) paint(s lipgloss.Style, text string) string {
	if r.plain {
		return text
	}
	return s.Render(text)
}

// Tree draws nodes with box-drawing connectors, one node per line.
func (r *Renderer) Tree(nodes []*tree.Node) string {
	var b strings.Builder
	// more[d] is set while the ancestor at depth d has siblings still to come.
	var more []bool
	tree.Walk(nodes, func(n *tree.Node, depth int, last bool) {
		more = append(more[:depth], !last)

		var prefix strings.Builder
		for _, open := range more[:depth] {
			if open {
				prefix.WriteString("│   ")
			} else {
				prefix.WriteString("    ")
			}
		}
		connector := "├── "
		if last {
			connector = "└── "
		}
		b.WriteString(r.paint(r.branch, prefix.String()+connector))

		switch {
		case n.Type == tree.KindFolder:
			b.WriteString(r.paint(r.folder, n.Name+"/"))
		case n.IsBinary:
			b.WriteString(r.paint(r.binary, n.Name))
		default:
			b.WriteString(r.paint(r.file, n.Name))
		}
		b.WriteByte('\n')
	})
	return b.String()
}

// Graph lists edges grouped by source node, in edge order.
func (r *Renderer) Graph(v packageservice.GraphView) string {
	var b strings.Builder
	current := ""
	for i, e := range v.Edges {
		if i == 0 || e.From != current {
			current = e.From
			b.WriteString(r.paint(r.title, graph.NodeLabel(e.From)))
			if e.From != graph.NodeLabel(e.From) {
				b.WriteString(" " + r.paint(r.branch, "("+e.From+")"))
			}
			b.WriteByte('\n')
		}
		line := fmt.Sprintf("  %s %s %s", r.paint(r.branch, "--"+e.Type+"->"), e.To, r.paint(r.branch, "["+e.ID+"]"))
		if e.External {
			line += " " + r.paint(r.label, "external")
		}
		b.WriteString(line + "\n")
	}
	if len(v.Edges) == 0 {
		b.WriteString(r.paint(r.branch, "no relationships") + "\n")
	}
	return b.String()
}

// Dependencies lists what d.Path points at and what points at it.
func (r *Renderer) Dependencies(d *packageservice.Dependencies) string {
	var b strings.Builder
	b.WriteString(r.paint(r.title, d.Path) + "\n")
	r.list(&b, "dependencies", d.Dependencies)
	r.list(&b, "dependents", d.Dependents)
	return b.String()
}

func (r *Renderer) list(b *strings.Builder, heading string, items []string) {
	b.WriteString(r.paint(r.label, fmt.Sprintf("%s (%d)", heading, len(items))) + "\n")
	for _, it := range items {
		b.WriteString("  " + it + "\n")
	}
}

// Summary describes an opened package in a few lines.
func (r *Renderer) Summary(s *packageservice.Summary) string {
	var b strings.Builder
	b.WriteString(r.paint(r.title, s.Name) + "\n")
	fmt.Fprintf(&b, "%s %d\n", r.paint(r.label, "parts:"), s.Parts)
	fmt.Fprintf(&b, "%s %d\n", r.paint(r.label, "relationships:"), s.Relationships)
	for _, issue := range s.Issues {
		b.WriteString(r.paint(r.issue, "! "+issue) + "\n")
	}
	return b.String()
}
