package scene

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
)

// Mesh exposes vertex streams, submesh index lists and blend shapes.
// Streams that a mesh does not carry are returned empty.
type Mesh interface {
	ID() uuid.UUID
	Name() string
	Positions() []mgl32.Vec3
	Normals() []mgl32.Vec3
	Tangents() []mgl32.Vec4
	// UV returns texture coordinate channel 0 or 1.
	UV(channel int) []mgl32.Vec2
	Colors() []mgl32.Vec4
	BoneWeights() []BoneWeight
	// BindPoses holds one inverse bind matrix per bone.
	BindPoses() []mgl32.Mat4
	SubmeshCount() int
	// Triangles returns the triangle list of a submesh.
	Triangles(submesh int) []uint32
	BlendShapes() []BlendShape
}

// BoneWeight binds a vertex to up to four bones.
type BoneWeight struct {
	Joints  [4]uint16
	Weights [4]float32
}

// IsZero reports whether no weight is set.
func (w BoneWeight) IsZero() bool {
	return w.Weights == [4]float32{}
}

// BlendShape is a named morph channel made of weighted frames.
type BlendShape struct {
	Name   string
	Frames []BlendShapeFrame
}

// BlendShapeFrame stores per-vertex deltas reached at Weight (0..100).
type BlendShapeFrame struct {
	Weight         float32
	DeltaPositions []mgl32.Vec3
	DeltaNormals   []mgl32.Vec3
	DeltaTangents  []mgl32.Vec3
}

// MeshStreams is the raw data behind a MeshAsset.
type MeshStreams struct {
	Positions   []mgl32.Vec3
	Normals     []mgl32.Vec3
	Tangents    []mgl32.Vec4
	UV0         []mgl32.Vec2
	UV1         []mgl32.Vec2
	Colors      []mgl32.Vec4
	BoneWeights []BoneWeight
	BindPoses   []mgl32.Mat4
	Submeshes   [][]uint32
	BlendShapes []BlendShape
}

// MeshAsset is the in-memory Mesh implementation.
type MeshAsset struct {
	id      uuid.UUID
	name    string
	Streams MeshStreams
}

var _ Mesh = (*MeshAsset)(nil)

// NewMesh creates a mesh asset from decoded streams.
func NewMesh(name string, streams MeshStreams) *MeshAsset {
	return &MeshAsset{id: uuid.New(), name: name, Streams: streams}
}

func (m *MeshAsset) ID() uuid.UUID             { return m.id }
func (m *MeshAsset) Name() string              { return m.name }
func (m *MeshAsset) SetName(name string)       { m.name = name }
func (m *MeshAsset) Positions() []mgl32.Vec3   { return m.Streams.Positions }
func (m *MeshAsset) Normals() []mgl32.Vec3     { return m.Streams.Normals }
func (m *MeshAsset) Tangents() []mgl32.Vec4    { return m.Streams.Tangents }
func (m *MeshAsset) Colors() []mgl32.Vec4      { return m.Streams.Colors }
func (m *MeshAsset) BoneWeights() []BoneWeight { return m.Streams.BoneWeights }
func (m *MeshAsset) BindPoses() []mgl32.Mat4   { return m.Streams.BindPoses }
func (m *MeshAsset) SubmeshCount() int         { return len(m.Streams.Submeshes) }
func (m *MeshAsset) BlendShapes() []BlendShape { return m.Streams.BlendShapes }

func (m *MeshAsset) UV(channel int) []mgl32.Vec2 {
	switch channel {
	case 0:
		return m.Streams.UV0
	case 1:
		return m.Streams.UV1
	}
	return nil
}

func (m *MeshAsset) Triangles(submesh int) []uint32 {
	if submesh < 0 || submesh >= len(m.Streams.Submeshes) {
		return nil
	}
	return m.Streams.Submeshes[submesh]
}

// VertexCount returns the number of positions.
func (m *MeshAsset) VertexCount() int { return len(m.Streams.Positions) }

// TriangleCount returns the number of triangles across all submeshes.
func (m *MeshAsset) TriangleCount() int {
	n := 0
	for _, s := range m.Streams.Submeshes {
		n += len(s) / 3
	}
	return n
}

// Bounds returns the component-wise min and max of the positions.
// ok is false for an empty mesh.
func Bounds(positions []mgl32.Vec3) (lo, hi mgl32.Vec3, ok bool) {
	if len(positions) == 0 {
		return lo, hi, false
	}
	lo, hi = positions[0], positions[0]
	for _, p := range positions[1:] {
		for c := 0; c < 3; c++ {
			if p[c] < lo[c] {
				lo[c] = p[c]
			}
			if p[c] > hi[c] {
				hi[c] = p[c]
			}
		}
	}
	return lo, hi, true
}
