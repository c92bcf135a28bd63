package rels

import (
	"encoding/xml"
	"io"
	"strings"
)

// Relationship is one accepted Relationship element.
type Relationship struct {
	ID         string `json:"id"`
	Type       string `json:"type"`
	Target     string `json:"target"`
	TargetMode string `json:"targetMode,omitempty"`
}

// External reports whether the relationship points outside the package.
func (r Relationship) External() bool {
	return strings.EqualFold(r.TargetMode, "External")
}

// Parse extracts Relationship elements from a .rels payload. Elements in the
// OPC relationships namespace are preferred; when none are found any element
// named Relationship is accepted. Elements missing Id, Type or Target are
// dropped. Malformed XML yields whatever was read before the error.
func Parse(content string) []Relationship {
	namespaced, fallback := scan(content)
	if len(namespaced) > 0 {
		return namespaced
	}
	return fallback
}

// ShortType returns the last path segment of a relationship type URI.
func ShortType(typeURI string) string {
	s := typeURI
	if i := strings.LastIndex(s, "/"); i >= 0 {
		s = s[i+1:]
	}
	if s == "" {
		return "relationship"
	}
	return s
}

func scan(content string) (namespaced, fallback []Relationship) {
	dec := xml.NewDecoder(strings.NewReader(content))
	dec.Strict = false
	dec.CharsetReader = func(_ string, r io.Reader) (io.Reader, error) { return r, nil }

	for {
		tok, err := dec.Token()
		if err != nil {
			return namespaced, fallback
		}
		se, ok := tok.(xml.StartElement)
		if !ok || se.Name.Local != "Relationship" {
			continue
		}
		r, ok := fromAttrs(se.Attr)
		if !ok {
			continue
		}
		if se.Name.Space == Namespace {
			namespaced = append(namespaced, r)
		}
		fallback = append(fallback, r)
	}
}

func fromAttrs(attrs []xml.Attr) (Relationship, bool) {
	var r Relationship
	for _, a := range attrs {
		if a.Name.Space != "" {
			continue
		}
		switch a.Name.Local {
		case "Id":
			r.ID = a.Value
		case "Type":
			r.Type = a.Value
		case "Target":
			r.Target = a.Value
		case "TargetMode":
			r.TargetMode = a.Value
		}
	}
	return r, r.ID != "" && r.Type != "" && r.Target != ""
}
