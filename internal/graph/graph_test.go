package graph

import (
	"testing"

	"github.com/starford/relscope/internal/parts"
	"github.com/starford/relscope/internal/testutil"
)

func entriesOf(ps []testutil.Part) []*parts.Entry {
	out := make([]*parts.Entry, len(ps))
	for i, p := range ps {
		out[i] = &parts.Entry{Path: p.Path, Content: p.Data, IsBinary: !parts.IsTextPart(p.Path)}
	}
	return out
}

func TestBuild_Presentation(t *testing.T) {
	g := Build(entriesOf(testutil.PresentationParts()))

	if len(g.Edges) != 6 {
		t.Fatalf("edges = %d, want 6: %+v", len(g.Edges), g.Edges)
	}
	first := g.Edges[0]
	if first.From != Root || first.To != "ppt/presentation.xml" || first.Type != "officeDocument" {
		t.Errorf("first edge = %+v", first)
	}
	for _, e := range g.Edges {
		if !g.HasNode(e.From) || !g.HasNode(e.To) {
			t.Errorf("edge %+v references a missing node", e)
		}
	}
	if !g.HasNode("ppt/media/image1.png") {
		t.Error("resolved image target should be a node")
	}
	if got := g.Outgoing("ppt/slides/slide1.xml"); len(got) != 2 {
		t.Errorf("slide1 outgoing = %+v", got)
	}
	if got := g.Incoming("ppt/slides/slide2.xml"); len(got) != 1 || got[0].From != "ppt/presentation.xml" {
		t.Errorf("slide2 incoming = %+v", got)
	}
}

func TestBuild_ParallelEdges(t *testing.T) {
	entries := []*parts.Entry{{
		Path: "word/_rels/document.xml.rels",
		Content: testutil.Rels(
			testutil.Rel("rId1", "http://x/typeA", "target.xml"),
			testutil.Rel("rId2", "http://x/typeB", "target.xml"),
		),
	}}
	g := Build(entries)
	if len(g.Edges) != 2 {
		t.Fatalf("edges = %d, want 2", len(g.Edges))
	}
	a, b := g.Edges[0], g.Edges[1]
	if a.From != b.From || a.To != b.To {
		t.Errorf("edges should share endpoints: %+v %+v", a, b)
	}
	if a.Type == b.Type {
		t.Errorf("edges should keep distinct types: %q", a.Type)
	}
	if len(g.Nodes) != 2 {
		t.Errorf("nodes = %v, want owner and target", g.Nodes)
	}
}

func TestBuild_SelfLoopAndCycle(t *testing.T) {
	entries := []*parts.Entry{
		{Path: "a/_rels/x.xml.rels", Content: testutil.Rels(
			testutil.Rel("rId1", "t/self", "x.xml"),
			testutil.Rel("rId2", "t/next", "y.xml"),
		)},
		{Path: "a/_rels/y.xml.rels", Content: testutil.Rels(testutil.Rel("rId1", "t/back", "x.xml"))},
	}
	g := Build(entries)
	if len(g.Edges) != 3 {
		t.Fatalf("edges = %d, want 3", len(g.Edges))
	}
	if g.Edges[0].From != "a/x.xml" || g.Edges[0].To != "a/x.xml" {
		t.Errorf("self loop = %+v", g.Edges[0])
	}
}

func TestBuild_MalformedRelationship(t *testing.T) {
	entries := []*parts.Entry{{
		Path: "_rels/.rels",
		Content: testutil.Rels(
			`<Relationship Id="rId1" Type="`+testutil.TypeOfficeDocument+`"/>`,
			testutil.Rel("rId2", testutil.TypeCoreProps, "docProps/core.xml"),
		),
	}}
	g := Build(entries)
	if len(g.Edges) != 1 || g.Edges[0].To != "docProps/core.xml" {
		t.Errorf("edges = %+v, want only the valid one", g.Edges)
	}
}

func TestBuild_ExternalTarget(t *testing.T) {
	entries := []*parts.Entry{{
		Path: "word/_rels/document.xml.rels",
		Content: testutil.Rels(
			testutil.Rel("rId1", testutil.TypeImage, "media/image1.png"),
			`<Relationship Id="rId2" Type="http://x/hyperlink" Target="https://example.com" TargetMode="External"/>`,
		),
	}}
	g := Build(entries)
	if len(g.Edges) != 2 {
		t.Fatalf("edges = %d, want 2", len(g.Edges))
	}
	if g.Edges[0].External {
		t.Errorf("internal edge flagged external: %+v", g.Edges[0])
	}
	if e := g.Edges[1]; !e.External || e.TargetMode != "External" {
		t.Errorf("external edge = %+v", e)
	}
}

func TestBuild_Empty(t *testing.T) {
	g := Build(nil)
	if len(g.Nodes) != 0 || len(g.Edges) != 0 {
		t.Errorf("graph = %+v", g)
	}
	if g.Nodes == nil || g.Edges == nil {
		t.Error("empty graph should serialize as empty arrays")
	}
}

func TestNodeLabel(t *testing.T) {
	if got := NodeLabel(Root); got != Root {
		t.Errorf("root label = %q", got)
	}
	if got := NodeLabel("ppt/slides/slide1.xml"); got != "slide1.xml" {
		t.Errorf("label = %q", got)
	}
	exact := "abcdefghijklmnopqrstuvwxyz0123456789" // 36
	if got := NodeLabel("dir/" + exact); got != exact {
		t.Errorf("36-char label should not be truncated: %q", got)
	}
	long := exact + "X"
	want := exact[:33] + "…"
	if got := NodeLabel(long); got != want {
		t.Errorf("label = %q, want %q", got, want)
	}
}
