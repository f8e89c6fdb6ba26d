package gltf

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/h2non/filetype"
	"go.uber.org/zap"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// headerSize is the number of bytes filetype needs to recognise a format.
const headerSize = 262

// ImageFile is a texture image to place next to the exported document.
type ImageFile struct {
	URI    string
	Source string
	// Copy writes Source unchanged; Transcode re-encodes it as PNG.
	Copy      bool
	Transcode bool
}

// detectImage identifies image bytes by their magic number.
func detectImage(data []byte) (ext, mime string, ok bool) {
	kind, err := filetype.Match(data)
	if err != nil || kind == filetype.Unknown || !filetype.IsImage(data) {
		return "", "", false
	}
	return kind.Extension, kind.MIME.Value, true
}

func isTGA(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".tga")
}

// canTranscode reports whether path holds an image format that can be decoded.
func canTranscode(path string) bool {
	if isTGA(path) {
		return true
	}
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	head := make([]byte, headerSize)
	n, _ := io.ReadFull(f, head)
	ext, _, ok := detectImage(head[:n])
	if !ok {
		return false
	}
	switch ext {
	case "bmp", "tif", "webp", "jpg", "gif":
		return true
	}
	return false
}

// transcodeToPNG decodes a TGA or any registered image format and encodes it
// as PNG. With colorKey set, magenta pixels become transparent.
func transcodeToPNG(data []byte, tga, colorKey bool) ([]byte, error) {
	var (
		img image.Image
		err error
	)
	if tga {
		img, err = decodeTGA(data)
	} else {
		img, _, err = image.Decode(bytes.NewReader(data))
	}
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}
	if colorKey {
		img = applyColorKey(img)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding png: %w", err)
	}
	return buf.Bytes(), nil
}

// mipLevels returns the full mip chain length of an encoded image, or 0 if its
// dimensions cannot be read.
func mipLevels(data []byte) int {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0
	}
	size := max(cfg.Width, cfg.Height)
	levels := 1
	for size > 1 {
		size >>= 1
		levels++
	}
	return levels
}

func (e *Exporter) writeImages(dir string, images []ImageFile) error {
	for _, img := range images {
		if img.Source == "" || !(img.Copy || img.Transcode) {
			continue
		}
		dst := filepath.Join(dir, img.URI)
		if sameFile(img.Source, dst) {
			continue
		}
		data, err := os.ReadFile(img.Source)
		if err != nil {
			return fmt.Errorf("reading image %s: %w", img.Source, err)
		}
		if img.Transcode {
			if data, err = transcodeToPNG(data, isTGA(img.Source), e.colorKey); err != nil {
				return fmt.Errorf("image %s: %w", img.Source, err)
			}
		}
		if err := os.WriteFile(dst, data, 0644); err != nil {
			return fmt.Errorf("writing image %s: %w", dst, err)
		}
		e.log.Debug("image written", zap.String("src", img.Source), zap.String("dst", dst),
			zap.Bool("transcoded", img.Transcode))
	}
	return nil
}

func sameFile(a, b string) bool {
	sa, err := os.Stat(a)
	if err != nil {
		return false
	}
	sb, err := os.Stat(b)
	if err != nil {
		return false
	}
	return os.SameFile(sa, sb)
}
