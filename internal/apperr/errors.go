package apperr

import "errors"

var (
	ErrNotFound       = errors.New("not found")
	ErrConflict       = errors.New("conflict")
	ErrAlreadyExists  = errors.New("already exists")
	ErrCorruptArchive = errors.New("corrupt archive")
	ErrBinaryPart     = errors.New("binary part")
	ErrInvalidPath    = errors.New("invalid part path")
	ErrSuperseded     = errors.New("superseded by a newer load")
)
