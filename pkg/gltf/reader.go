package gltf

import (
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/multierr"
)

// File is a parsed document with its buffers loaded.
type File struct {
	Document *Document
	// Dir resolves relative URIs.
	Dir string
	// Name is the file name without extension.
	Name string
	// Warnings collects buffers whose payload could not be loaded.
	Warnings error

	missingBuffers map[int]bool
}

// ReadFile parses a .gltf or .glb file. A missing external buffer is not an error:
// it is recorded in Warnings and reads from it return empty data.
func ReadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return Parse(data, filepath.Dir(path), name)
}

// Parse decodes a glTF JSON or GLB payload. dir resolves external buffers.
func Parse(data []byte, dir, name string) (*File, error) {
	js := data
	var bin []byte
	if isGLB(data) {
		var err error
		if js, bin, err = ReadGLB(data); err != nil {
			return nil, err
		}
	}

	var doc Document
	if err := json.Unmarshal(js, &doc); err != nil {
		return nil, fmt.Errorf("parsing glTF JSON: %w", err)
	}
	if !strings.HasPrefix(doc.Asset.Version, "2.") {
		return nil, fmt.Errorf("%w: %q", ErrInvalidVersion, doc.Asset.Version)
	}

	f := &File{Document: &doc, Dir: dir, Name: name, missingBuffers: make(map[int]bool)}
	if err := f.loadBuffers(bin); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *File) loadBuffers(glbBin []byte) error {
	for i := range f.Document.Buffers {
		buf := &f.Document.Buffers[i]
		switch {
		case buf.URI == "" && i == 0 && glbBin != nil:
			buf.Data = glbBin
		case buf.URI == "":
			return fmt.Errorf("buffer %d has no URI and no GLB binary chunk: %w", i, ErrMissingResource)
		case strings.HasPrefix(buf.URI, "data:"):
			data, err := decodeDataURI(buf.URI)
			if err != nil {
				return fmt.Errorf("buffer %d: %w", i, err)
			}
			buf.Data = data
		default:
			path := filepath.Join(f.Dir, filepath.FromSlash(buf.URI))
			data, err := os.ReadFile(path)
			if errors.Is(err, os.ErrNotExist) {
				f.missingBuffers[i] = true
				f.Warnings = multierr.Append(f.Warnings,
					fmt.Errorf("buffer %d %s: %w", i, buf.URI, ErrMissingExternalFile))
				continue
			}
			if err != nil {
				return fmt.Errorf("buffer %d: %w", i, err)
			}
			buf.Data = data
		}
		if len(buf.Data) < buf.ByteLength {
			return fmt.Errorf("buffer %d holds %d bytes, expected %d: %w",
				i, len(buf.Data), buf.ByteLength, ErrMissingResource)
		}
	}
	return nil
}

// decodeDataURI decodes a base64 data URI: data:[<mediatype>];base64,<data>
func decodeDataURI(uri string) ([]byte, error) {
	header, payload, ok := strings.Cut(strings.TrimPrefix(uri, "data:"), ",")
	if !ok {
		return nil, fmt.Errorf("%w: malformed data URI", ErrUnsupportedURI)
	}
	if !strings.HasSuffix(header, ";base64") {
		return nil, fmt.Errorf("%w: data URI encoding %q", ErrUnsupportedURI, header)
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("decoding data URI: %w", err)
	}
	return data, nil
}

// BufferMissing reports whether buffer i was referenced but not found on disk.
func (f *File) BufferMissing(i int) bool { return f.missingBuffers[i] }

// ViewBytes returns the bytes of buffer view i. A view over a missing buffer
// returns nil without error.
func (f *File) ViewBytes(i int) ([]byte, error) {
	doc := f.Document
	if i < 0 || i >= len(doc.BufferViews) {
		return nil, missing("bufferView", i)
	}
	bv := doc.BufferViews[i]
	if bv.Buffer < 0 || bv.Buffer >= len(doc.Buffers) {
		return nil, missing("buffer", bv.Buffer)
	}
	if f.missingBuffers[bv.Buffer] {
		return nil, nil
	}
	data := doc.Buffers[bv.Buffer].Data
	end := bv.ByteOffset + bv.ByteLength
	if bv.ByteOffset < 0 || end > len(data) {
		return nil, fmt.Errorf("bufferView %d range [%d,%d) exceeds buffer %d: %w",
			i, bv.ByteOffset, end, bv.Buffer, ErrMissingResource)
	}
	return data[bv.ByteOffset:end], nil
}

// accessorElements returns one byte slice per element of accessor i, honouring the
// view stride. Elements of an accessor over a missing buffer come back empty.
func (f *File) accessorElements(i int) (*Accessor, [][]byte, error) {
	doc := f.Document
	if i < 0 || i >= len(doc.Accessors) {
		return nil, nil, missing("accessor", i)
	}
	acc := &doc.Accessors[i]
	if acc.Sparse != nil {
		return nil, nil, fmt.Errorf("accessor %d is sparse: %w", i, ErrUnsupportedAccessor)
	}
	size := componentSize(acc.ComponentType) * componentCount(acc.Type)
	if size == 0 {
		return nil, nil, fmt.Errorf("accessor %d: %s of %d: %w", i, acc.Type, acc.ComponentType, ErrUnsupportedAccessor)
	}

	out := make([][]byte, acc.Count)
	if acc.BufferView == nil {
		// No view: all zeros.
		zero := make([]byte, size)
		for e := range out {
			out[e] = zero
		}
		return acc, out, nil
	}

	view, err := f.ViewBytes(*acc.BufferView)
	if err != nil {
		return nil, nil, fmt.Errorf("accessor %d: %w", i, err)
	}
	if view == nil {
		return acc, nil, nil
	}
	stride := size
	if bv := doc.BufferViews[*acc.BufferView]; bv.ByteStride != nil && *bv.ByteStride > 0 {
		stride = *bv.ByteStride
	}
	for e := range out {
		start := acc.ByteOffset + e*stride
		if start < 0 || start+size > len(view) {
			return nil, nil, fmt.Errorf("accessor %d element %d outside its bufferView: %w", i, e, ErrMissingResource)
		}
		out[e] = view[start : start+size]
	}
	return acc, out, nil
}

// component decodes component c of an element as a float, normalising integers
// when the accessor says so.
func component(acc *Accessor, elem []byte, c int) float32 {
	switch acc.ComponentType {
	case ComponentFloat:
		return math.Float32frombits(binary.LittleEndian.Uint32(elem[c*4:]))
	case ComponentUnsignedByte:
		v := float32(elem[c])
		if acc.Normalized {
			return v / 255
		}
		return v
	case ComponentUnsignedShort:
		v := float32(binary.LittleEndian.Uint16(elem[c*2:]))
		if acc.Normalized {
			return v / 65535
		}
		return v
	case ComponentUnsignedInt:
		return float32(binary.LittleEndian.Uint32(elem[c*4:]))
	}
	return 0
}

func (f *File) floats(i int, typ string) ([][]float32, error) {
	acc, elems, err := f.accessorElements(i)
	if err != nil {
		return nil, err
	}
	if typ != "" && acc.Type != typ {
		return nil, fmt.Errorf("accessor %d is %s, want %s: %w", i, acc.Type, typ, ErrUnsupportedAccessor)
	}
	n := componentCount(acc.Type)
	out := make([][]float32, len(elems))
	for e, elem := range elems {
		v := make([]float32, n)
		for c := range v {
			v[c] = component(acc, elem, c)
		}
		out[e] = v
	}
	return out, nil
}

// Scalars reads a SCALAR accessor.
func (f *File) Scalars(i int) ([]float32, error) {
	rows, err := f.floats(i, TypeScalar)
	if err != nil {
		return nil, err
	}
	out := make([]float32, len(rows))
	for e, r := range rows {
		out[e] = r[0]
	}
	return out, nil
}

// Flat reads any accessor as a flat component list.
func (f *File) Flat(i int) ([]float32, error) {
	rows, err := f.floats(i, "")
	if err != nil {
		return nil, err
	}
	var out []float32
	for _, r := range rows {
		out = append(out, r...)
	}
	return out, nil
}

// Vec2s reads a VEC2 accessor.
func (f *File) Vec2s(i int) ([]mgl32.Vec2, error) {
	rows, err := f.floats(i, TypeVec2)
	if err != nil {
		return nil, err
	}
	out := make([]mgl32.Vec2, len(rows))
	for e, r := range rows {
		out[e] = mgl32.Vec2{r[0], r[1]}
	}
	return out, nil
}

// Vec3s reads a VEC3 accessor.
func (f *File) Vec3s(i int) ([]mgl32.Vec3, error) {
	rows, err := f.floats(i, TypeVec3)
	if err != nil {
		return nil, err
	}
	out := make([]mgl32.Vec3, len(rows))
	for e, r := range rows {
		out[e] = mgl32.Vec3{r[0], r[1], r[2]}
	}
	return out, nil
}

// Vec4s reads a VEC4 accessor. VEC3 data is widened with w = 1.
func (f *File) Vec4s(i int) ([]mgl32.Vec4, error) {
	rows, err := f.floats(i, "")
	if err != nil {
		return nil, err
	}
	out := make([]mgl32.Vec4, len(rows))
	for e, r := range rows {
		switch len(r) {
		case 3:
			out[e] = mgl32.Vec4{r[0], r[1], r[2], 1}
		case 4:
			out[e] = mgl32.Vec4{r[0], r[1], r[2], r[3]}
		default:
			return nil, fmt.Errorf("accessor %d has %d components, want 3 or 4: %w", i, len(r), ErrUnsupportedAccessor)
		}
	}
	return out, nil
}

// Mat4s reads a column-major MAT4 accessor.
func (f *File) Mat4s(i int) ([]mgl32.Mat4, error) {
	rows, err := f.floats(i, TypeMat4)
	if err != nil {
		return nil, err
	}
	out := make([]mgl32.Mat4, len(rows))
	for e, r := range rows {
		copy(out[e][:], r)
	}
	return out, nil
}

// Indices reads an unsigned integer SCALAR accessor.
func (f *File) Indices(i int) ([]uint32, error) {
	acc, elems, err := f.accessorElements(i)
	if err != nil {
		return nil, err
	}
	if acc.Type != TypeScalar || acc.ComponentType == ComponentFloat {
		return nil, fmt.Errorf("index accessor %d is %s/%d: %w", i, acc.Type, acc.ComponentType, ErrUnsupportedAccessor)
	}
	out := make([]uint32, len(elems))
	for e, elem := range elems {
		switch acc.ComponentType {
		case ComponentUnsignedByte:
			out[e] = uint32(elem[0])
		case ComponentUnsignedShort:
			out[e] = uint32(binary.LittleEndian.Uint16(elem))
		case ComponentUnsignedInt:
			out[e] = binary.LittleEndian.Uint32(elem)
		}
	}
	return out, nil
}

// Joints reads a JOINTS_n accessor of unsigned bytes or shorts.
func (f *File) Joints(i int) ([][4]uint16, error) {
	acc, elems, err := f.accessorElements(i)
	if err != nil {
		return nil, err
	}
	if acc.Type != TypeVec4 || (acc.ComponentType != ComponentUnsignedByte && acc.ComponentType != ComponentUnsignedShort) {
		return nil, fmt.Errorf("joints accessor %d is %s/%d: %w", i, acc.Type, acc.ComponentType, ErrUnsupportedAccessor)
	}
	raw := *acc
	raw.Normalized = false
	out := make([][4]uint16, len(elems))
	for e, elem := range elems {
		for c := 0; c < 4; c++ {
			out[e][c] = uint16(component(&raw, elem, c))
		}
	}
	return out, nil
}
