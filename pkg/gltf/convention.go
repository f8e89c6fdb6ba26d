package gltf

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Convention is the set of axis conversions applied between the host and glTF.
// Each conversion is its own inverse, so the same value converts in both directions.
type Convention struct {
	FlipV       bool `yaml:"flip_v"`
	NegateZ     bool `yaml:"negate_z"`
	FlipWinding bool `yaml:"flip_winding"`
}

var (
	// DefaultExportConvention flips V only; geometry is written as stored.
	DefaultExportConvention = Convention{FlipV: true}
	// DefaultImportConvention mirrors Z, flips V and reverses winding.
	DefaultImportConvention = Convention{FlipV: true, NegateZ: true, FlipWinding: true}
	// SymmetricConvention used on both sides gives byte-identical round trips.
	SymmetricConvention = DefaultImportConvention
)

func (c Convention) uv(v mgl32.Vec2) mgl32.Vec2 {
	if c.FlipV {
		v[1] = 1 - v[1]
	}
	return v
}

func (c Convention) uvs(in []mgl32.Vec2) []mgl32.Vec2 {
	if !c.FlipV || len(in) == 0 {
		return in
	}
	out := make([]mgl32.Vec2, len(in))
	for i, v := range in {
		out[i] = c.uv(v)
	}
	return out
}

func (c Convention) point(v mgl32.Vec3) mgl32.Vec3 {
	if c.NegateZ {
		v[2] = -v[2]
	}
	return v
}

func (c Convention) points(in []mgl32.Vec3) []mgl32.Vec3 {
	if !c.NegateZ || len(in) == 0 {
		return in
	}
	out := make([]mgl32.Vec3, len(in))
	for i, v := range in {
		out[i] = c.point(v)
	}
	return out
}

// tangents mirrors xyz and flips handedness in w.
func (c Convention) tangents(in []mgl32.Vec4) []mgl32.Vec4 {
	if !c.NegateZ || len(in) == 0 {
		return in
	}
	out := make([]mgl32.Vec4, len(in))
	for i, v := range in {
		out[i] = mgl32.Vec4{v[0], v[1], -v[2], -v[3]}
	}
	return out
}

func (c Convention) rotation(q mgl32.Quat) mgl32.Quat {
	if c.NegateZ {
		q.V[0], q.V[1] = -q.V[0], -q.V[1]
	}
	return q
}

// matrix conjugates m with the Z mirror.
func (c Convention) matrix(m mgl32.Mat4) mgl32.Mat4 {
	if !c.NegateZ {
		return m
	}
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			if (i == 2) != (j == 2) {
				m.Set(i, j, -m.At(i, j))
			}
		}
	}
	return m
}

// componentSign returns the sign applied to component comp of an animated path.
func (c Convention) componentSign(path string, comp int) float32 {
	if !c.NegateZ {
		return 1
	}
	switch {
	case path == PathTranslation && comp == 2:
		return -1
	case path == PathRotation && comp < 2:
		return -1
	}
	return 1
}

// triangles returns a copy of the index list with the winding reversed when required.
func (c Convention) triangles(in []uint32) []uint32 {
	if !c.FlipWinding {
		return in
	}
	out := make([]uint32, len(in))
	copy(out, in)
	for i := 0; i+2 < len(out); i += 3 {
		out[i+1], out[i+2] = out[i+2], out[i+1]
	}
	return out
}
