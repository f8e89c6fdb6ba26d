// Package scene defines the host scene graph consumed and produced by the glTF codec.
//
// Nodes, meshes, materials and textures are capability interfaces so any engine can
// expose its own objects to the exporter. The concrete types in this package (Object,
// MeshAsset, MaterialAsset, TextureAsset) are what the importer builds.
package scene

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
)

// Transform is a parent-relative translation/rotation/scale.
type Transform struct {
	Translation mgl32.Vec3
	Rotation    mgl32.Quat
	Scale       mgl32.Vec3
}

// IdentityTransform returns a transform with no translation, no rotation and unit scale.
func IdentityTransform() Transform {
	return Transform{
		Rotation: mgl32.QuatIdent(),
		Scale:    mgl32.Vec3{1, 1, 1},
	}
}

// Matrix composes the transform as T * R * S.
func (t Transform) Matrix() mgl32.Mat4 {
	tr := mgl32.Translate3D(t.Translation.X(), t.Translation.Y(), t.Translation.Z())
	s := mgl32.Scale3D(t.Scale.X(), t.Scale.Y(), t.Scale.Z())
	return tr.Mul4(t.Rotation.Normalize().Mat4()).Mul4(s)
}

// Node is one entity of the host scene tree.
type Node interface {
	ID() uuid.UUID
	Name() string
	LocalTransform() Transform
	// Children must be returned in a stable order; exported indices follow it.
	Children() []Node
	// Renderer returns nil for nodes without geometry.
	Renderer() *Renderer
	Animations() []*AnimationClip
	Components() []Component
}

// Renderer pairs a mesh with one material per submesh and an optional skeleton.
type Renderer struct {
	// Mesh must be an untyped nil when absent.
	Mesh Mesh
	// Materials is indexed by submesh; nil entries, including a nil *MaterialAsset,
	// mean no material.
	Materials []Material
	// Bones are the skin joints in bone-index order. Empty for rigid meshes.
	Bones    []Node
	RootBone Node
}

// Skinned reports whether the renderer deforms its mesh with a skeleton.
func (r *Renderer) Skinned() bool {
	return r != nil && len(r.Bones) > 0
}

// MaterialFor returns the material of the given submesh or nil.
func (r *Renderer) MaterialFor(submesh int) Material {
	if r == nil || submesh < 0 || submesh >= len(r.Materials) {
		return nil
	}
	m := r.Materials[submesh]
	if ma, ok := m.(*MaterialAsset); ok && ma == nil {
		return nil
	}
	return m
}

// Component is opaque renderer or gameplay metadata carried through as extras.
type Component struct {
	Type       string         `json:"type" yaml:"type"`
	Properties map[string]any `json:"properties,omitempty" yaml:"properties,omitempty"`
}

// Registrar receives every resource the importer creates.
type Registrar interface {
	RegisterMesh(m *MeshAsset) error
	RegisterMaterial(m *MaterialAsset) error
	RegisterTexture(t *TextureAsset) error
}
