package parts

// Placeholder contents for parts that are not shown as text.
const (
	BinaryMarker      = "[Binary file]"
	UndecodableMarker = "[Unable to decode as text]"
)

// Entry is one part of a loaded package. Path is the canonical archive-internal
// identifier. Content is the decoded text for text parts and BinaryMarker for
// binary parts. An editor may replace Content of text parts in place.
type Entry struct {
	Path       string `json:"path"`
	Content    string `json:"content"`
	IsBinary   bool   `json:"isBinary"`
	PreviewRef string `json:"previewRef,omitempty"`

	// Undecodable marks a text part whose bytes were not valid UTF-8. While its
	// Content still holds UndecodableMarker the original bytes are kept on repack.
	Undecodable bool `json:"undecodable,omitempty"`

	// Replacement, when non-nil, supersedes the original bytes of a binary part.
	Replacement []byte `json:"-"`
}

// Clone returns a copy of e that shares no mutable state with it.
func (e *Entry) Clone() *Entry {
	c := *e
	if e.Replacement != nil {
		c.Replacement = append([]byte(nil), e.Replacement...)
	}
	return &c
}
