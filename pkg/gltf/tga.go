package gltf

import (
	"errors"
	"fmt"
	"image"
	"image/color"
)

// ErrUnsupportedTGA is returned for TGA variants other than 24/32-bit true-color.
var ErrUnsupportedTGA = errors.New("unsupported TGA image")

const tgaHeaderSize = 18

// decodeTGA decodes uncompressed (type 2) and RLE (type 10) true-color TGA
// images. TGA has no magic number, so callers pick it by file extension.
func decodeTGA(data []byte) (*image.RGBA, error) {
	if len(data) < tgaHeaderSize {
		return nil, fmt.Errorf("tga header: %w", errTruncatedImage)
	}
	idLen := int(data[0])
	mapped, kind := data[1], data[2]
	w := int(data[12]) | int(data[13])<<8
	h := int(data[14]) | int(data[15])<<8
	bpp := int(data[16])
	topDown := data[17]&0x20 != 0

	if mapped != 0 || (kind != 2 && kind != 10) {
		return nil, fmt.Errorf("%w: type %d", ErrUnsupportedTGA, kind)
	}
	if bpp != 24 && bpp != 32 {
		return nil, fmt.Errorf("%w: %d bits per pixel", ErrUnsupportedTGA, bpp)
	}
	if tgaHeaderSize+idLen > len(data) {
		return nil, fmt.Errorf("tga id field: %w", errTruncatedImage)
	}

	d := tgaDecoder{
		img:     image.NewRGBA(image.Rect(0, 0, w, h)),
		src:     data[tgaHeaderSize+idLen:],
		stride:  bpp / 8,
		topDown: topDown,
	}
	if kind == 2 {
		if len(d.src) < w*h*d.stride {
			return nil, fmt.Errorf("tga pixels: %w", errTruncatedImage)
		}
		for i := 0; i < w*h; i++ {
			d.put(i, d.pixel())
		}
		return d.img, nil
	}
	if err := d.rle(); err != nil {
		return nil, err
	}
	return d.img, nil
}

var errTruncatedImage = errors.New("truncated image data")

type tgaDecoder struct {
	img     *image.RGBA
	src     []byte
	pos     int
	stride  int
	topDown bool
}

// pixel reads one BGR(A) pixel.
func (d *tgaDecoder) pixel() color.RGBA {
	p := d.src[d.pos : d.pos+d.stride]
	d.pos += d.stride
	c := color.RGBA{R: p[2], G: p[1], B: p[0], A: 255}
	if d.stride == 4 {
		c.A = p[3]
	}
	return c
}

// put stores the i-th pixel in file order. Rows are bottom-up unless the
// descriptor says otherwise.
func (d *tgaDecoder) put(i int, c color.RGBA) {
	w, h := d.img.Rect.Dx(), d.img.Rect.Dy()
	x, y := i%w, i/w
	if !d.topDown {
		y = h - 1 - y
	}
	d.img.SetRGBA(x, y, c)
}

func (d *tgaDecoder) rle() error {
	total := d.img.Rect.Dx() * d.img.Rect.Dy()
	for i := 0; i < total; {
		if d.pos >= len(d.src) {
			return fmt.Errorf("tga packet %d: %w", i, errTruncatedImage)
		}
		header := d.src[d.pos]
		d.pos++
		n := int(header&0x7f) + 1
		repeat := header&0x80 != 0

		var c color.RGBA
		for j := 0; j < n && i < total; j++ {
			if j == 0 || !repeat {
				if d.pos+d.stride > len(d.src) {
					return fmt.Errorf("tga packet %d: %w", i, errTruncatedImage)
				}
				c = d.pixel()
			}
			d.put(i, c)
			i++
		}
	}
	return nil
}

// isMagentaKey matches the colour key used for transparency in old game
// textures. The tolerance absorbs BMP palette rounding.
func isMagentaKey(c color.RGBA) bool {
	return c.R >= 250 && c.G <= 10 && c.B >= 250
}

// applyColorKey converts img to RGBA and makes magenta pixels transparent black.
func applyColorKey(img image.Image) *image.RGBA {
	b := img.Bounds()
	out := image.NewRGBA(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.RGBAModel.Convert(img.At(x, y)).(color.RGBA)
			if isMagentaKey(c) {
				c = color.RGBA{}
			}
			out.SetRGBA(x, y, c)
		}
	}
	return out
}
