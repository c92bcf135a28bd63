package rels

import (
	"testing"

	"github.com/starford/relscope/internal/parts"
	"github.com/starford/relscope/internal/testutil"
)

func TestPartRelsPath(t *testing.T) {
	cases := map[string]string{
		"ppt/slides/slide1.xml": "ppt/slides/_rels/slide1.xml.rels",
		"docProps/app.xml":      "docProps/_rels/app.xml.rels",
		"document.xml":          "_rels/document.xml.rels",
		`word\document.xml`:     "word/_rels/document.xml.rels",
	}
	for in, want := range cases {
		if got := PartRelsPath(in); got != want {
			t.Errorf("PartRelsPath(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestOwnerPartFromRelsPath(t *testing.T) {
	cases := map[string]string{
		"ppt/slides/_rels/slide1.xml.rels": "ppt/slides/slide1.xml",
		"_rels/document.xml.rels":          "document.xml",
		"ppt/slides/slide1.xml":            "ppt/slides/slide1.xml",
		"ppt/rels/slide1.xml.rels":         "ppt/rels/slide1.xml.rels",
		"_rels/notrels.xml":                "_rels/notrels.xml",
	}
	for in, want := range cases {
		if got := OwnerPartFromRelsPath(in); got != want {
			t.Errorf("OwnerPartFromRelsPath(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestOwnerRoundTrip(t *testing.T) {
	for _, p := range []string{
		"ppt/slides/slide1.xml",
		"word/document.xml",
		"xl/worksheets/sheet12.xml",
		"[Content_Types].xml",
		"a/b/c/d/e.bin",
	} {
		if got := OwnerPartFromRelsPath(PartRelsPath(p)); got != p {
			t.Errorf("round trip %q -> %q", p, got)
		}
	}
}

func TestResolveTarget(t *testing.T) {
	cases := []struct {
		rels, target, want string
	}{
		{"ppt/slides/_rels/slide1.xml.rels", "../media/image1.png", "ppt/media/image1.png"},
		{"_rels/.rels", "ppt/presentation.xml", "ppt/presentation.xml"},
		{"_rels/.rels", "/word/document.xml", "word/document.xml"},
		{"word/_rels/document.xml.rels", "styles.xml", "word/styles.xml"},
		{"word/_rels/document.xml.rels", "./media/../media/a.png", "word/media/a.png"},
		{"word/_rels/document.xml.rels", " media/a.png?v=2 ", "word/media/a.png"},
		{"ppt/slides/_rels/slide1.xml.rels", "../../customXml/item1.xml", "customXml/item1.xml"},
		{"ppt/slides/_rels/slide1.xml.rels", "../../../../escape.xml", "escape.xml"},
		{"ppt/slides/_rels/slide1.xml.rels", "/ppt/media/image2.png", "ppt/media/image2.png"},
		{"_rels/document.xml.rels", "styles.xml", "styles.xml"},
		{"word/_rels/document.xml.rels", "a//b.xml", "word/a/b.xml"},
	}
	for _, c := range cases {
		if got := ResolveTarget(c.rels, c.target); got != c.want {
			t.Errorf("ResolveTarget(%q, %q) = %q, want %q", c.rels, c.target, got, c.want)
		}
	}
}

func TestResolveTarget_PackageAbsolute(t *testing.T) {
	// A leading slash names a part from the package root, never from the
	// owning part's directory.
	got := ResolveTarget("xl/_rels/workbook.xml.rels", "/xl/worksheets/sheet1.xml")
	if got != "xl/worksheets/sheet1.xml" {
		t.Errorf("ResolveTarget = %q, want xl/worksheets/sheet1.xml", got)
	}
	if got := ResolveTarget("xl/_rels/workbook.xml.rels", "/../xl/styles.xml"); got != "xl/styles.xml" {
		t.Errorf("ResolveTarget above root = %q", got)
	}
}

func TestParse_Namespaced(t *testing.T) {
	xml := testutil.Rels(
		testutil.Rel("rId1", testutil.TypeSlide, "slides/slide1.xml"),
		`<Relationship Id="rId2" Type="`+testutil.TypeImage+`" Target="http://example.com/a.png" TargetMode="External"/>`,
	)
	got := Parse(xml)
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].ID != "rId1" || got[0].Target != "slides/slide1.xml" || got[0].External() {
		t.Errorf("got[0] = %+v", got[0])
	}
	if !got[1].External() {
		t.Errorf("got[1] should be external: %+v", got[1])
	}
}

func TestParse_DropsIncomplete(t *testing.T) {
	xml := testutil.Rels(
		`<Relationship Id="rId1" Type="`+testutil.TypeSlide+`"/>`,
		`<Relationship Id="" Type="`+testutil.TypeSlide+`" Target="x.xml"/>`,
		testutil.Rel("rId3", testutil.TypeSlide, "slides/slide3.xml"),
	)
	got := Parse(xml)
	if len(got) != 1 || got[0].ID != "rId3" {
		t.Errorf("Parse = %+v, want only rId3", got)
	}
}

func TestParse_NamespacelessFallback(t *testing.T) {
	xml := `<Relationships><Relationship Id="rId1" Type="t/x" Target="a.xml"/></Relationships>`
	got := Parse(xml)
	if len(got) != 1 || got[0].Target != "a.xml" {
		t.Errorf("fallback Parse = %+v", got)
	}
}

func TestParse_NamespacedWinsOverFallback(t *testing.T) {
	xml := `<Relationships xmlns="` + Namespace + `">` +
		`<Relationship Id="rId1" Type="t/x" Target="a.xml"/>` +
		`<o:Relationship xmlns:o="urn:other" Id="rId2" Type="t/y" Target="b.xml"/>` +
		`</Relationships>`
	got := Parse(xml)
	if len(got) != 1 || got[0].ID != "rId1" {
		t.Errorf("Parse = %+v, want only the namespaced element", got)
	}
}

func TestParse_Malformed(t *testing.T) {
	if got := Parse("<<<not xml"); len(got) != 0 {
		t.Errorf("Parse(garbage) = %+v", got)
	}
	if got := Parse(""); len(got) != 0 {
		t.Errorf("Parse(empty) = %+v", got)
	}
}

func TestShortType(t *testing.T) {
	if got := ShortType(testutil.TypeSlideLayout); got != "slideLayout" {
		t.Errorf("ShortType = %q", got)
	}
	if got := ShortType("http://x/"); got != "relationship" {
		t.Errorf("ShortType(trailing slash) = %q", got)
	}
	if got := ShortType("plain"); got != "plain" {
		t.Errorf("ShortType(plain) = %q", got)
	}
}

func TestDependencies(t *testing.T) {
	entries := []*parts.Entry{
		{Path: "ppt/slides/slide1.xml", Content: "<p:sld/>"},
		{Path: "ppt/slides/_rels/slide1.xml.rels", Content: testutil.Rels(
			testutil.Rel("rId1", testutil.TypeSlideLayout, "../slideLayouts/slideLayout1.xml"),
			testutil.Rel("rId2", testutil.TypeImage, "../media/image1.png"),
			testutil.Rel("rId3", "t/odd", "_rels/other.xml.rels"),
		)},
	}
	got := Dependencies("ppt/slides/slide1.xml", entries)
	want := []string{"ppt/slideLayouts/slideLayout1.xml", "ppt/media/image1.png"}
	if len(got) != len(want) {
		t.Fatalf("Dependencies = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("dep[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestDependencies_NoRelsPart(t *testing.T) {
	got := Dependencies("ppt/slides/slide2.xml", []*parts.Entry{{Path: "ppt/slides/slide2.xml"}})
	if got == nil || len(got) != 0 {
		t.Errorf("Dependencies = %#v, want empty non-nil slice", got)
	}
}
