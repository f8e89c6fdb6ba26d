// Package scenefile reads and writes host scenes as YAML documents.
//
// A scene file lists meshes, textures and materials by name and describes the object
// tree under root. Objects reference resources by name and bones by slash path
// relative to the root. Relative texture paths resolve against the file's directory.
package scenefile

import "errors"

// Scene file errors.
var (
	ErrUnknownMesh     = errors.New("unknown mesh")
	ErrUnknownMaterial = errors.New("unknown material")
	ErrUnknownTexture  = errors.New("unknown texture")
	ErrUnknownBone     = errors.New("bone path does not resolve")
	ErrBadVector       = errors.New("wrong number of vector components")
	ErrNoRoot          = errors.New("scene has no root object")
)

// File is the YAML document.
type File struct {
	Name      string        `yaml:"name,omitempty"`
	Meshes    []MeshDoc     `yaml:"meshes,omitempty"`
	Textures  []TextureDoc  `yaml:"textures,omitempty"`
	Materials []MaterialDoc `yaml:"materials,omitempty"`
	Root      *ObjectDoc    `yaml:"root"`
}

// MeshDoc holds the vertex streams of one mesh.
type MeshDoc struct {
	Name        string          `yaml:"name"`
	Positions   [][]float32     `yaml:"positions,flow"`
	Normals     [][]float32     `yaml:"normals,omitempty,flow"`
	Tangents    [][]float32     `yaml:"tangents,omitempty,flow"`
	UV0         [][]float32     `yaml:"uv0,omitempty,flow"`
	UV1         [][]float32     `yaml:"uv1,omitempty,flow"`
	Colors      [][]float32     `yaml:"colors,omitempty,flow"`
	BoneWeights []BoneWeightDoc `yaml:"bone_weights,omitempty"`
	BindPoses   [][]float32     `yaml:"bind_poses,omitempty,flow"`
	Submeshes   [][]uint32      `yaml:"submeshes,omitempty,flow"`
	BlendShapes []BlendShapeDoc `yaml:"blend_shapes,omitempty"`
}

type BoneWeightDoc struct {
	Joints  []uint16  `yaml:"joints,flow"`
	Weights []float32 `yaml:"weights,flow"`
}

type BlendShapeDoc struct {
	Name   string     `yaml:"name"`
	Frames []FrameDoc `yaml:"frames"`
}

// FrameDoc is one blend shape frame. Weight is on the 0..100 scale.
type FrameDoc struct {
	Weight    float32     `yaml:"weight"`
	Positions [][]float32 `yaml:"positions,flow"`
	Normals   [][]float32 `yaml:"normals,omitempty,flow"`
	Tangents  [][]float32 `yaml:"tangents,omitempty,flow"`
}

type TextureDoc struct {
	Name   string `yaml:"name"`
	Path   string `yaml:"path"`
	Filter string `yaml:"filter,omitempty"`
	Wrap   string `yaml:"wrap,omitempty"`
	Mips   int    `yaml:"mips,omitempty"`
}

type MaterialDoc struct {
	Name       string        `yaml:"name"`
	Shader     string        `yaml:"shader"`
	Properties []PropertyDoc `yaml:"properties,omitempty"`
}

// PropertyDoc is a material property; Texture names an entry of the texture list.
type PropertyDoc struct {
	Name    string    `yaml:"name"`
	Type    string    `yaml:"type"`
	Values  []float32 `yaml:"values,omitempty,flow"`
	Texture string    `yaml:"texture,omitempty"`
}

// ObjectDoc is one node of the object tree.
type ObjectDoc struct {
	Name        string         `yaml:"name"`
	Translation []float32      `yaml:"translation,omitempty,flow"`
	Rotation    []float32      `yaml:"rotation,omitempty,flow"` // x, y, z, w
	Scale       []float32      `yaml:"scale,omitempty,flow"`
	Mesh        string         `yaml:"mesh,omitempty"`
	Materials   []string       `yaml:"materials,omitempty,flow"`
	Bones       []string       `yaml:"bones,omitempty,flow"`
	RootBone    *string        `yaml:"root_bone,omitempty"`
	Components  []ComponentDoc `yaml:"components,omitempty"`
	Animations  []ClipDoc      `yaml:"animations,omitempty"`
	Children    []ObjectDoc    `yaml:"children,omitempty"`
}

type ComponentDoc struct {
	Type       string         `yaml:"type"`
	Properties map[string]any `yaml:"properties,omitempty"`
}

type ClipDoc struct {
	Name   string     `yaml:"name"`
	Curves []CurveDoc `yaml:"curves"`
}

// CurveDoc animates one property. Each key is [time, value, in tangent, out tangent];
// missing tangents are derived from the neighbouring keys.
type CurveDoc struct {
	Path     string      `yaml:"path"`
	Property string      `yaml:"property"`
	Keys     [][]float32 `yaml:"keys,flow"`
}
