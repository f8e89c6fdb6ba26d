package gltf

import (
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Alignment is the byte boundary every appended block starts on.
const Alignment = 4

// Packer is an append-only little-endian byte arena.
// Every Append pads the arena with zeros to the next multiple of Alignment and
// returns the offset and unpadded length of the block it wrote.
type Packer struct {
	buf []byte
}

// Len returns the padded arena size.
func (p *Packer) Len() int { return len(p.buf) }

// Bytes returns the arena. Callers must not modify it.
func (p *Packer) Bytes() []byte { return p.buf }

func (p *Packer) finish(start int) (offset, length int) {
	length = len(p.buf) - start
	for len(p.buf)%Alignment != 0 {
		p.buf = append(p.buf, 0)
	}
	return start, length
}

func (p *Packer) putFloat(f float32) {
	p.buf = binary.LittleEndian.AppendUint32(p.buf, math.Float32bits(f))
}

// AppendFloats writes scalars.
func (p *Packer) AppendFloats(values []float32) (offset, length int) {
	start := len(p.buf)
	for _, v := range values {
		p.putFloat(v)
	}
	return p.finish(start)
}

// AppendVec2 writes x,y pairs.
func (p *Packer) AppendVec2(values []mgl32.Vec2) (offset, length int) {
	start := len(p.buf)
	for _, v := range values {
		p.putFloat(v[0])
		p.putFloat(v[1])
	}
	return p.finish(start)
}

// AppendVec3 writes x,y,z triples.
func (p *Packer) AppendVec3(values []mgl32.Vec3) (offset, length int) {
	start := len(p.buf)
	for _, v := range values {
		p.putFloat(v[0])
		p.putFloat(v[1])
		p.putFloat(v[2])
	}
	return p.finish(start)
}

// AppendVec4 writes x,y,z,w quadruples.
func (p *Packer) AppendVec4(values []mgl32.Vec4) (offset, length int) {
	start := len(p.buf)
	for _, v := range values {
		for c := 0; c < 4; c++ {
			p.putFloat(v[c])
		}
	}
	return p.finish(start)
}

// AppendUint16 writes unsigned shorts.
func (p *Packer) AppendUint16(values []uint16) (offset, length int) {
	start := len(p.buf)
	for _, v := range values {
		p.buf = binary.LittleEndian.AppendUint16(p.buf, v)
	}
	return p.finish(start)
}

// AppendJoints writes four unsigned shorts per vertex.
func (p *Packer) AppendJoints(values [][4]uint16) (offset, length int) {
	start := len(p.buf)
	for _, v := range values {
		for c := 0; c < 4; c++ {
			p.buf = binary.LittleEndian.AppendUint16(p.buf, v[c])
		}
	}
	return p.finish(start)
}

// AppendMat4 writes matrices column-major: output index j*4+i holds row i, column j.
func (p *Packer) AppendMat4(values []mgl32.Mat4) (offset, length int) {
	start := len(p.buf)
	for _, m := range values {
		for j := 0; j < 4; j++ {
			for i := 0; i < 4; i++ {
				p.putFloat(m.At(i, j))
			}
		}
	}
	return p.finish(start)
}
