// Package gltf converts scene graphs to and from glTF 2.0 documents.
//
// Export walks a scene.Node tree and produces a JSON document plus one packed
// binary buffer. Import parses a .gltf/.glb file and rebuilds scene.Object trees.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html
package gltf

// Component types.
const (
	ComponentUnsignedByte  = 5121
	ComponentUnsignedShort = 5123
	ComponentUnsignedInt   = 5125
	ComponentFloat         = 5126
)

// Accessor element shapes.
const (
	TypeScalar = "SCALAR"
	TypeVec2   = "VEC2"
	TypeVec3   = "VEC3"
	TypeVec4   = "VEC4"
	TypeMat4   = "MAT4"
)

// Buffer view targets.
const (
	TargetArrayBuffer        = 34962
	TargetElementArrayBuffer = 34963
)

// Sampler filters and wraps.
const (
	FilterNearest              = 9728
	FilterLinear               = 9729
	FilterNearestMipmapNearest = 9984
	FilterLinearMipmapNearest  = 9985
	FilterNearestMipmapLinear  = 9986
	FilterLinearMipmapLinear   = 9987

	WrapClampToEdge = 33071
	WrapRepeat      = 10497
)

// ModeTriangles is the only primitive mode written.
const ModeTriangles = 4

// Animation channel paths.
const (
	PathTranslation = "translation"
	PathRotation    = "rotation"
	PathScale       = "scale"
	PathWeights     = "weights"
)

// Sampler interpolations.
const (
	InterpolationLinear      = "LINEAR"
	InterpolationStep        = "STEP"
	InterpolationCubicSpline = "CUBICSPLINE"
)

// Primitive attribute semantics.
const (
	AttrPosition  = "POSITION"
	AttrNormal    = "NORMAL"
	AttrTangent   = "TANGENT"
	AttrTexcoord0 = "TEXCOORD_0"
	AttrTexcoord1 = "TEXCOORD_1"
	AttrColor0    = "COLOR_0"
	AttrJoints0   = "JOINTS_0"
	AttrWeights0  = "WEIGHTS_0"
)

// Document is the root of a glTF JSON document. Empty sections are omitted.
type Document struct {
	Asset       Asset        `json:"asset"`
	Scene       *int         `json:"scene,omitempty"`
	Scenes      []Scene      `json:"scenes,omitempty"`
	Nodes       []Node       `json:"nodes,omitempty"`
	Meshes      []Mesh       `json:"meshes,omitempty"`
	Materials   []Material   `json:"materials,omitempty"`
	Textures    []Texture    `json:"textures,omitempty"`
	Images      []Image      `json:"images,omitempty"`
	Samplers    []Sampler    `json:"samplers,omitempty"`
	Accessors   []Accessor   `json:"accessors,omitempty"`
	BufferViews []BufferView `json:"bufferViews,omitempty"`
	Buffers     []Buffer     `json:"buffers,omitempty"`
	Animations  []Animation  `json:"animations,omitempty"`
	Skins       []Skin       `json:"skins,omitempty"`

	ExtensionsUsed     []string `json:"extensionsUsed,omitempty"`
	ExtensionsRequired []string `json:"extensionsRequired,omitempty"`
}

// Asset carries the version and generator.
type Asset struct {
	Version   string `json:"version"`
	Generator string `json:"generator,omitempty"`
	Copyright string `json:"copyright,omitempty"`
}

type Scene struct {
	Name  string `json:"name,omitempty"`
	Nodes []int  `json:"nodes,omitempty"`
}

// Node is one entry of the node list. Export always writes TRS; Matrix is only read.
type Node struct {
	Name        string       `json:"name,omitempty"`
	Children    []int        `json:"children,omitempty"`
	Mesh        *int         `json:"mesh,omitempty"`
	Skin        *int         `json:"skin,omitempty"`
	Matrix      *[16]float32 `json:"matrix,omitempty"`
	Translation *[3]float32  `json:"translation,omitempty"`
	Rotation    *[4]float32  `json:"rotation,omitempty"`
	Scale       *[3]float32  `json:"scale,omitempty"`
	Weights     []float32    `json:"weights,omitempty"`
	Extras      *NodeExtras  `json:"extras,omitempty"`
}

// NodeExtras holds host data with no glTF equivalent.
type NodeExtras struct {
	// Materials overrides the mesh's primitive materials for this node (-1 = none).
	Materials  []int            `json:"materials,omitempty"`
	Components []ComponentExtra `json:"components,omitempty"`
}

// ComponentExtra is an opaque host component.
type ComponentExtra struct {
	Type       string         `json:"type"`
	Properties map[string]any `json:"properties,omitempty"`
}

type Mesh struct {
	Name       string      `json:"name,omitempty"`
	Primitives []Primitive `json:"primitives"`
	Weights    []float32   `json:"weights,omitempty"`
	Extras     *MeshExtras `json:"extras,omitempty"`
}

// MeshExtras records morph target names in target order.
type MeshExtras struct {
	TargetNames []string `json:"targetNames,omitempty"`
}

type Primitive struct {
	Attributes map[string]int   `json:"attributes"`
	Indices    *int             `json:"indices,omitempty"`
	Material   *int             `json:"material,omitempty"`
	Mode       *int             `json:"mode,omitempty"`
	Targets    []map[string]int `json:"targets,omitempty"`
	Extras     *PrimitiveExtras `json:"extras,omitempty"`
}

// PrimitiveExtras marks a submesh without triangles. A primitive without
// indices otherwise draws every vertex in order.
type PrimitiveExtras struct {
	Empty bool `json:"empty,omitempty"`
}

type Accessor struct {
	BufferView    *int      `json:"bufferView,omitempty"`
	ByteOffset    int       `json:"byteOffset,omitempty"`
	ComponentType int       `json:"componentType"`
	Normalized    bool      `json:"normalized,omitempty"`
	Count         int       `json:"count"`
	Type          string    `json:"type"`
	Max           []float32 `json:"max,omitempty"`
	Min           []float32 `json:"min,omitempty"`
	Sparse        *struct {
		Count int `json:"count"`
	} `json:"sparse,omitempty"`
}

type BufferView struct {
	Buffer     int  `json:"buffer"`
	ByteOffset int  `json:"byteOffset,omitempty"`
	ByteLength int  `json:"byteLength"`
	ByteStride *int `json:"byteStride,omitempty"`
	Target     *int `json:"target,omitempty"`
}

// Buffer is a binary blob. Data is filled when a document is read.
type Buffer struct {
	URI        string `json:"uri,omitempty"`
	ByteLength int    `json:"byteLength"`
	Data       []byte `json:"-"`
}

type Material struct {
	Name                 string                `json:"name,omitempty"`
	PBRMetallicRoughness *PBRMetallicRoughness `json:"pbrMetallicRoughness,omitempty"`
	NormalTexture        *NormalTextureInfo    `json:"normalTexture,omitempty"`
	OcclusionTexture     *OcclusionTextureInfo `json:"occlusionTexture,omitempty"`
	EmissiveTexture      *TextureInfo          `json:"emissiveTexture,omitempty"`
	EmissiveFactor       *[3]float32           `json:"emissiveFactor,omitempty"`
	Extras               *MaterialExtras       `json:"extras,omitempty"`
}

type PBRMetallicRoughness struct {
	BaseColorFactor          *[4]float32  `json:"baseColorFactor,omitempty"`
	BaseColorTexture         *TextureInfo `json:"baseColorTexture,omitempty"`
	MetallicFactor           *float32     `json:"metallicFactor,omitempty"`
	RoughnessFactor          *float32     `json:"roughnessFactor,omitempty"`
	MetallicRoughnessTexture *TextureInfo `json:"metallicRoughnessTexture,omitempty"`
}

type TextureInfo struct {
	Index    int `json:"index"`
	TexCoord int `json:"texCoord,omitempty"`
}

type NormalTextureInfo struct {
	TextureInfo
	Scale *float32 `json:"scale,omitempty"`
}

type OcclusionTextureInfo struct {
	TextureInfo
	Strength *float32 `json:"strength,omitempty"`
}

// MaterialExtras keeps the host shader and its full property list.
type MaterialExtras struct {
	Shader     string          `json:"shader,omitempty"`
	Properties []PropertyExtra `json:"properties,omitempty"`
}

// PropertyExtra is one material property. Texture indexes the textures list.
type PropertyExtra struct {
	Name    string    `json:"name"`
	Type    string    `json:"type"`
	Values  []float32 `json:"values,omitempty"`
	Texture *int      `json:"texture,omitempty"`
}

type Texture struct {
	Name    string `json:"name,omitempty"`
	Sampler *int   `json:"sampler,omitempty"`
	Source  *int   `json:"source,omitempty"`
}

type Image struct {
	Name       string `json:"name,omitempty"`
	URI        string `json:"uri,omitempty"`
	MimeType   string `json:"mimeType,omitempty"`
	BufferView *int   `json:"bufferView,omitempty"`
}

type Sampler struct {
	MagFilter *int `json:"magFilter,omitempty"`
	MinFilter *int `json:"minFilter,omitempty"`
	WrapS     *int `json:"wrapS,omitempty"`
	WrapT     *int `json:"wrapT,omitempty"`
}

type Skin struct {
	Name                string `json:"name,omitempty"`
	InverseBindMatrices *int   `json:"inverseBindMatrices,omitempty"`
	Skeleton            *int   `json:"skeleton,omitempty"`
	Joints              []int  `json:"joints"`
}

type Animation struct {
	Name     string             `json:"name,omitempty"`
	Channels []AnimationChannel `json:"channels"`
	Samplers []AnimationSampler `json:"samplers"`
}

type AnimationChannel struct {
	Sampler int           `json:"sampler"`
	Target  ChannelTarget `json:"target"`
}

type ChannelTarget struct {
	Node *int   `json:"node,omitempty"`
	Path string `json:"path"`
}

type AnimationSampler struct {
	Input         int    `json:"input"`
	Output        int    `json:"output"`
	Interpolation string `json:"interpolation,omitempty"`
}

// ptr returns a pointer to v, for optional JSON fields.
func ptr[T any](v T) *T { return &v }

// componentSize returns the byte size of a component type.
func componentSize(componentType int) int {
	switch componentType {
	case ComponentUnsignedByte:
		return 1
	case ComponentUnsignedShort:
		return 2
	case ComponentUnsignedInt, ComponentFloat:
		return 4
	}
	return 0
}

// componentCount returns the number of components of an element shape.
func componentCount(typ string) int {
	switch typ {
	case TypeScalar:
		return 1
	case TypeVec2:
		return 2
	case TypeVec3:
		return 3
	case TypeVec4:
		return 4
	case TypeMat4:
		return 16
	}
	return 0
}
