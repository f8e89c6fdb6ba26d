package gltf

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/midgard-gltf/pkg/scene"
)

// Usage decides the stride and target of a registered region.
type Usage uint8

const (
	// UsageVertex is per-vertex data: explicit stride, ARRAY_BUFFER target.
	UsageVertex Usage = iota
	// UsageIndex is a triangle list: no stride, ELEMENT_ARRAY_BUFFER target.
	UsageIndex
	// UsageData is non-GPU data such as animation curves and bind matrices.
	UsageData
)

// Region is a block of the packed buffer.
type Region struct {
	Offset int
	Length int
	Stride int // 0 = tightly packed
	Target int // 0 = none
}

// Layout describes the elements stored in a region.
type Layout struct {
	ComponentType int
	Type          string
	Count         int
	Min, Max      []float32
}

// Registry pairs every packed region with one buffer view and one accessor.
// View index and accessor index are always equal.
type Registry struct {
	packer    *Packer
	views     []BufferView
	accessors []Accessor
}

// NewRegistry creates a registry writing into p.
func NewRegistry(p *Packer) *Registry {
	return &Registry{packer: p}
}

// Register adds a buffer view for r and an accessor for l, returning the accessor index.
func (g *Registry) Register(r Region, l Layout) int {
	view := BufferView{Buffer: 0, ByteOffset: r.Offset, ByteLength: r.Length}
	if r.Stride > 0 {
		view.ByteStride = ptr(r.Stride)
	}
	if r.Target != 0 {
		view.Target = ptr(r.Target)
	}
	g.views = append(g.views, view)

	g.accessors = append(g.accessors, Accessor{
		BufferView:    ptr(len(g.views) - 1),
		ComponentType: l.ComponentType,
		Count:         l.Count,
		Type:          l.Type,
		Min:           l.Min,
		Max:           l.Max,
	})
	return len(g.accessors) - 1
}

// Views returns the registered buffer views.
func (g *Registry) Views() []BufferView { return g.views }

// Accessors returns the registered accessors.
func (g *Registry) Accessors() []Accessor { return g.accessors }

func region(offset, length int, usage Usage, elementSize int) Region {
	r := Region{Offset: offset, Length: length}
	switch usage {
	case UsageVertex:
		r.Stride = elementSize
		r.Target = TargetArrayBuffer
	case UsageIndex:
		r.Target = TargetElementArrayBuffer
	}
	return r
}

// Floats packs and registers a SCALAR float accessor.
func (g *Registry) Floats(values []float32, usage Usage) int {
	off, n := g.packer.AppendFloats(values)
	return g.Register(region(off, n, usage, 4),
		Layout{ComponentType: ComponentFloat, Type: TypeScalar, Count: len(values)})
}

// Times packs animation key times; bounds are the first and last key.
func (g *Registry) Times(times []float32) int {
	off, n := g.packer.AppendFloats(times)
	l := Layout{ComponentType: ComponentFloat, Type: TypeScalar, Count: len(times)}
	if len(times) > 0 {
		l.Min = []float32{times[0]}
		l.Max = []float32{times[len(times)-1]}
	}
	return g.Register(region(off, n, UsageData, 4), l)
}

// Vec2 packs and registers a VEC2 float accessor.
func (g *Registry) Vec2(values []mgl32.Vec2, usage Usage) int {
	off, n := g.packer.AppendVec2(values)
	return g.Register(region(off, n, usage, 8),
		Layout{ComponentType: ComponentFloat, Type: TypeVec2, Count: len(values)})
}

// Vec3 packs and registers a VEC3 float accessor without bounds.
func (g *Registry) Vec3(values []mgl32.Vec3, usage Usage) int {
	off, n := g.packer.AppendVec3(values)
	return g.Register(region(off, n, usage, 12),
		Layout{ComponentType: ComponentFloat, Type: TypeVec3, Count: len(values)})
}

// Positions packs vertex positions with component-wise bounds.
func (g *Registry) Positions(values []mgl32.Vec3) int {
	off, n := g.packer.AppendVec3(values)
	l := Layout{ComponentType: ComponentFloat, Type: TypeVec3, Count: len(values)}
	if lo, hi, ok := scene.Bounds(values); ok {
		l.Min = []float32{lo[0], lo[1], lo[2]}
		l.Max = []float32{hi[0], hi[1], hi[2]}
	}
	return g.Register(region(off, n, UsageVertex, 12), l)
}

// Vec4 packs and registers a VEC4 float accessor.
func (g *Registry) Vec4(values []mgl32.Vec4, usage Usage) int {
	off, n := g.packer.AppendVec4(values)
	return g.Register(region(off, n, usage, 16),
		Layout{ComponentType: ComponentFloat, Type: TypeVec4, Count: len(values)})
}

// Joints packs and registers a VEC4 unsigned short vertex accessor.
func (g *Registry) Joints(values [][4]uint16) int {
	off, n := g.packer.AppendJoints(values)
	return g.Register(region(off, n, UsageVertex, 8),
		Layout{ComponentType: ComponentUnsignedShort, Type: TypeVec4, Count: len(values)})
}

// Indices packs and registers a SCALAR unsigned short index accessor.
func (g *Registry) Indices(values []uint16) int {
	off, n := g.packer.AppendUint16(values)
	return g.Register(region(off, n, UsageIndex, 2),
		Layout{ComponentType: ComponentUnsignedShort, Type: TypeScalar, Count: len(values)})
}

// Matrices packs and registers a MAT4 float accessor with no target.
func (g *Registry) Matrices(values []mgl32.Mat4) int {
	off, n := g.packer.AppendMat4(values)
	return g.Register(region(off, n, UsageData, 64),
		Layout{ComponentType: ComponentFloat, Type: TypeMat4, Count: len(values)})
}
