package gltf

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// GLB container constants.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#glb-file-format-specification
const (
	glbMagic     = 0x46546C67 // "glTF"
	glbVersion   = 2
	glbChunkJSON = 0x4E4F534A // "JSON"
	glbChunkBIN  = 0x004E4942 // "BIN\0"
	glbHeaderLen = 12
	glbChunkLen  = 8
)

type glbHeader struct {
	Magic   uint32
	Version uint32
	Length  uint32
}

type glbChunkHeader struct {
	Length uint32
	Type   uint32
}

// isGLB reports whether data starts with the GLB magic.
func isGLB(data []byte) bool {
	return len(data) >= 4 && binary.LittleEndian.Uint32(data) == glbMagic
}

// ReadGLB splits a GLB container into its JSON and BIN chunks. bin is nil when absent.
func ReadGLB(data []byte) (js, bin []byte, err error) {
	if len(data) < glbHeaderLen {
		return nil, nil, fmt.Errorf("%w: file too small", ErrInvalidGLB)
	}
	r := bytes.NewReader(data)

	var h glbHeader
	if err := binary.Read(r, binary.LittleEndian, &h); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidGLB, err)
	}
	if h.Magic != glbMagic {
		return nil, nil, fmt.Errorf("%w: bad magic", ErrInvalidGLB)
	}
	if h.Version != glbVersion {
		return nil, nil, fmt.Errorf("%w: version %d", ErrInvalidGLB, h.Version)
	}

	for {
		var ch glbChunkHeader
		if err := binary.Read(r, binary.LittleEndian, &ch); err != nil {
			if err == io.EOF {
				break
			}
			return nil, nil, fmt.Errorf("%w: chunk header: %v", ErrInvalidGLB, err)
		}
		chunk := make([]byte, ch.Length)
		if _, err := io.ReadFull(r, chunk); err != nil {
			return nil, nil, fmt.Errorf("%w: chunk data: %v", ErrInvalidGLB, err)
		}
		switch ch.Type {
		case glbChunkJSON:
			js = chunk
		case glbChunkBIN:
			if bin == nil {
				bin = chunk
			}
		}
	}
	if js == nil {
		return nil, nil, fmt.Errorf("%w: missing JSON chunk", ErrInvalidGLB)
	}
	return js, bin, nil
}

// WriteGLB writes a GLB container. The JSON chunk is padded with spaces and the BIN
// chunk with zeros; an empty bin omits the BIN chunk.
func WriteGLB(w io.Writer, js, bin []byte) error {
	jsPad := pad4(len(js))
	binPad := pad4(len(bin))

	total := glbHeaderLen + glbChunkLen + len(js) + jsPad
	if len(bin) > 0 {
		total += glbChunkLen + len(bin) + binPad
	}

	var buf bytes.Buffer
	buf.Grow(total)
	binary.Write(&buf, binary.LittleEndian, glbHeader{Magic: glbMagic, Version: glbVersion, Length: uint32(total)})
	binary.Write(&buf, binary.LittleEndian, glbChunkHeader{Length: uint32(len(js) + jsPad), Type: glbChunkJSON})
	buf.Write(js)
	buf.Write(bytes.Repeat([]byte{' '}, jsPad))
	if len(bin) > 0 {
		binary.Write(&buf, binary.LittleEndian, glbChunkHeader{Length: uint32(len(bin) + binPad), Type: glbChunkBIN})
		buf.Write(bin)
		buf.Write(make([]byte, binPad))
	}

	if _, err := w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("writing glb: %w", err)
	}
	return nil
}

func pad4(n int) int {
	return (Alignment - n%Alignment) % Alignment
}
