package ooxml

import "fmt"

// PartDecodeError records a text part whose bytes could not be decoded.
// The load continues and the part shows a placeholder.
type PartDecodeError struct {
	Path string
}

func (e *PartDecodeError) Error() string {
	return fmt.Sprintf("ooxml: part %s is not valid UTF-8", e.Path)
}

// PreviewUnavailableError records a preview-eligible part whose preview could
// not be derived. The part is still loaded, without a preview.
type PreviewUnavailableError struct {
	Path string
	Err  error
}

func (e *PreviewUnavailableError) Error() string {
	return fmt.Sprintf("ooxml: preview for %s unavailable: %v", e.Path, e.Err)
}

func (e *PreviewUnavailableError) Unwrap() error { return e.Err }
