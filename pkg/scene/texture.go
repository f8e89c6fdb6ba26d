package scene

import (
	"fmt"

	"github.com/google/uuid"
)

// FilterMode is the host texture filtering mode.
type FilterMode uint8

const (
	FilterPoint FilterMode = iota
	FilterBilinear
	FilterTrilinear
)

// WrapMode is the host texture addressing mode.
type WrapMode uint8

const (
	WrapRepeat WrapMode = iota
	WrapClamp
)

var (
	filterModeNames = [...]string{"point", "bilinear", "trilinear"}
	wrapModeNames   = [...]string{"repeat", "clamp"}
)

func (f FilterMode) String() string {
	if int(f) < len(filterModeNames) {
		return filterModeNames[f]
	}
	return fmt.Sprintf("FilterMode(%d)", f)
}

func (w WrapMode) String() string {
	if int(w) < len(wrapModeNames) {
		return wrapModeNames[w]
	}
	return fmt.Sprintf("WrapMode(%d)", w)
}

// ParseFilterMode accepts the names returned by FilterMode.String. Empty means bilinear.
func ParseFilterMode(s string) (FilterMode, error) {
	if s == "" {
		return FilterBilinear, nil
	}
	for i, n := range filterModeNames {
		if n == s {
			return FilterMode(i), nil
		}
	}
	return 0, fmt.Errorf("unknown filter mode %q", s)
}

// ParseWrapMode accepts the names returned by WrapMode.String. Empty means repeat.
func ParseWrapMode(s string) (WrapMode, error) {
	if s == "" {
		return WrapRepeat, nil
	}
	for i, n := range wrapModeNames {
		if n == s {
			return WrapMode(i), nil
		}
	}
	return 0, fmt.Errorf("unknown wrap mode %q", s)
}

// Texture describes an image file plus its sampling state.
type Texture interface {
	ID() uuid.UUID
	Name() string
	// SourcePath is the image file on disk. It may be empty or missing.
	SourcePath() string
	FilterMode() FilterMode
	WrapMode() WrapMode
	MipCount() int
}

// TextureSettings is the data behind a TextureAsset.
type TextureSettings struct {
	Path     string
	Filter   FilterMode
	Wrap     WrapMode
	MipCount int
}

// TextureAsset is the in-memory Texture implementation.
type TextureAsset struct {
	id       uuid.UUID
	name     string
	Settings TextureSettings
}

var _ Texture = (*TextureAsset)(nil)

// NewTexture creates a bilinear, repeating, single-level texture for path.
func NewTexture(name, path string) *TextureAsset {
	return &TextureAsset{
		id:   uuid.New(),
		name: name,
		Settings: TextureSettings{
			Path:     path,
			Filter:   FilterBilinear,
			Wrap:     WrapRepeat,
			MipCount: 1,
		},
	}
}

func (t *TextureAsset) ID() uuid.UUID          { return t.id }
func (t *TextureAsset) Name() string           { return t.name }
func (t *TextureAsset) SourcePath() string     { return t.Settings.Path }
func (t *TextureAsset) FilterMode() FilterMode { return t.Settings.Filter }
func (t *TextureAsset) WrapMode() WrapMode     { return t.Settings.Wrap }
func (t *TextureAsset) MipCount() int          { return t.Settings.MipCount }
