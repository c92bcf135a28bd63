// Package tree projects a flat part collection into a folder/file hierarchy.
package tree

import (
	"slices"
	"strings"

	"github.com/starford/relscope/internal/parts"
)

// Kind discriminates tree nodes.
type Kind string

const (
	KindFile   Kind = "file"
	KindFolder Kind = "folder"
)

// Node is a file or a folder. Files carry Path and IsBinary; folders carry
// Key (the slash-joined path from the root) and Children.
type Node struct {
	Type     Kind    `json:"type"`
	Name     string  `json:"name"`
	Path     string  `json:"path,omitempty"`
	IsBinary bool    `json:"isBinary,omitempty"`
	Key      string  `json:"key,omitempty"`
	Children []*Node `json:"children,omitempty"`
}

// ID is the file path for files and the key for folders.
func (n *Node) ID() string {
	if n.Type == KindFile {
		return n.Path
	}
	return n.Key
}

// Build returns the root-level nodes for entries. Every folder's children are
// sorted folders first, then files, each in natural name order.
func Build(entries []*parts.Entry) []*Node {
	var root []*Node
	folders := make(map[string]*Node)

	for _, e := range entries {
		segs := strings.Split(e.Path, "/")
		name := segs[len(segs)-1]

		current := &root
		for i := range segs[:len(segs)-1] {
			key := strings.Join(segs[:i+1], "/")
			folder, ok := folders[key]
			if !ok {
				folder = &Node{Type: KindFolder, Name: segs[i], Key: key, Children: []*Node{}}
				folders[key] = folder
				*current = append(*current, folder)
			}
			current = &folder.Children
		}
		*current = append(*current, &Node{
			Type:     KindFile,
			Name:     name,
			Path:     e.Path,
			IsBinary: e.IsBinary,
		})
	}

	sortNodes(root)
	if root == nil {
		return []*Node{}
	}
	return root
}

func sortNodes(nodes []*Node) {
	slices.SortStableFunc(nodes, compareNodes)
	for _, n := range nodes {
		if n.Type == KindFolder {
			sortNodes(n.Children)
		}
	}
}

func compareNodes(a, b *Node) int {
	if a.Type != b.Type {
		if a.Type == KindFolder {
			return -1
		}
		return 1
	}
	return NaturalCompare(a.Name, b.Name)
}

// Walk visits nodes depth-first in display order. depth starts at 0 and
// last reports whether n is the final node among its siblings.
func Walk(nodes []*Node, fn func(n *Node, depth int, last bool)) {
	walk(nodes, 0, fn)
}

func walk(nodes []*Node, depth int, fn func(n *Node, depth int, last bool)) {
	for i, n := range nodes {
		fn(n, depth, i == len(nodes)-1)
		if n.Type == KindFolder {
			walk(n.Children, depth+1, fn)
		}
	}
}
