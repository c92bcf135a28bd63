// Package testutil builds in-memory OOXML fixtures for tests.
package testutil

import (
	"archive/zip"
	"bytes"
	"testing"
)

// Part is one fixture entry. A trailing slash in Path writes a directory entry.
type Part struct {
	Path string
	Data string
}

// RelsNS is the OPC relationships namespace.
const RelsNS = "http://schemas.openxmlformats.org/package/2006/relationships"

// Zip encodes parts into a ZIP archive in the given order using archive/zip
// directly, so fixtures do not depend on the codec under test.
func Zip(t *testing.T, parts ...Part) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, p := range parts {
		w, err := zw.Create(p.Path)
		if err != nil {
			t.Fatalf("zip create %s: %v", p.Path, err)
		}
		if len(p.Data) > 0 {
			if _, err := w.Write([]byte(p.Data)); err != nil {
				t.Fatalf("zip write %s: %v", p.Path, err)
			}
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	return buf.Bytes()
}

// Rels wraps Relationship elements in a namespaced Relationships document.
func Rels(relationships ...string) string {
	s := `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<Relationships xmlns="` + RelsNS + `">`
	for _, r := range relationships {
		s += r
	}
	return s + `</Relationships>`
}

// Rel renders one Relationship element.
func Rel(id, typ, target string) string {
	return `<Relationship Id="` + id + `" Type="` + typ + `" Target="` + target + `"/>`
}

// Relationship type URIs used by fixtures.
const (
	TypeOfficeDocument = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument"
	TypeSlide          = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/slide"
	TypeSlideLayout    = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/slideLayout"
	TypeImage          = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/image"
	TypeCoreProps      = "http://schemas.openxmlformats.org/package/2006/relationships/metadata/core-properties"
)

// PNG is a minimal PNG signature followed by filler bytes, including bytes
// that are not valid UTF-8.
const PNG = "\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\xff\xfe\x00\x01"

// PresentationParts returns a small but structurally complete .pptx package.
func PresentationParts() []Part {
	return []Part{
		{Path: "[Content_Types].xml", Data: `<?xml version="1.0"?><Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"/>`},
		{Path: "_rels/.rels", Data: Rels(
			Rel("rId1", TypeOfficeDocument, "ppt/presentation.xml"),
			Rel("rId2", TypeCoreProps, "docProps/core.xml"),
		)},
		{Path: "docProps/core.xml", Data: `<cp:coreProperties xmlns:cp="urn:core"/>`},
		{Path: "ppt/presentation.xml", Data: `<p:presentation xmlns:p="urn:p"/>`},
		{Path: "ppt/_rels/presentation.xml.rels", Data: Rels(
			Rel("rId1", TypeSlide, "slides/slide1.xml"),
			Rel("rId2", TypeSlide, "slides/slide2.xml"),
		)},
		{Path: "ppt/slides/slide1.xml", Data: `<p:sld xmlns:p="urn:p">one</p:sld>`},
		{Path: "ppt/slides/_rels/slide1.xml.rels", Data: Rels(
			Rel("rId1", TypeSlideLayout, "../slideLayouts/slideLayout1.xml"),
			Rel("rId2", TypeImage, "../media/image1.png"),
		)},
		{Path: "ppt/slides/slide2.xml", Data: `<p:sld xmlns:p="urn:p">two</p:sld>`},
		{Path: "ppt/slideLayouts/slideLayout1.xml", Data: `<p:sldLayout xmlns:p="urn:p"/>`},
		{Path: "ppt/media/image1.png", Data: PNG},
	}
}

// Presentation returns PresentationParts encoded as a ZIP archive.
func Presentation(t *testing.T) []byte {
	t.Helper()
	return Zip(t, PresentationParts()...)
}
