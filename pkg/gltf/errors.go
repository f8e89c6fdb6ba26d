package gltf

import (
	"errors"
	"fmt"
)

// glTF codec errors.
var (
	// ErrMissingResource is fatal: an index points outside its list.
	ErrMissingResource = errors.New("missing resource")
	// ErrMissingExternalFile is reported as a warning; the resource becomes a placeholder.
	ErrMissingExternalFile = errors.New("missing external file")
	ErrIndexOverflow       = errors.New("vertex count exceeds 16-bit index range")
	ErrInvalidVersion      = errors.New("unsupported glTF version: must be 2.x")
	ErrInvalidGLB          = errors.New("invalid GLB container")
	ErrUnsupportedURI      = errors.New("unsupported URI")
	ErrUnsupportedAccessor = errors.New("unsupported accessor layout")
)

// missing wraps ErrMissingResource with the list name and index.
func missing(kind string, index int) error {
	return fmt.Errorf("%s %d: %w", kind, index, ErrMissingResource)
}
