// Package formats reads Ragnarok Online model files and turns them into scene trees.
package formats

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/Faultbox/midgard-gltf/pkg/encoding"
)

// RSM format errors.
var (
	ErrInvalidRSMMagic       = errors.New("invalid RSM magic: expected 'GRSM'")
	ErrUnsupportedRSMVersion = errors.New("unsupported RSM version")
	ErrTruncatedRSMData      = errors.New("truncated RSM data")
	ErrInvalidNodeCount      = errors.New("invalid RSM node count")
	ErrInvalidRSMCount       = errors.New("invalid RSM element count")
)

// Upper bounds on list lengths; anything larger is a corrupt file.
const (
	maxRSMNodes     = 10000
	maxRSMTextures  = 1000
	maxRSMElements  = 100000
	maxRSMKeyframes = 10000
	maxRSMBoxes     = 1000
	rsmNameLen      = 40
)

// RSMVersion is the file version.
type RSMVersion struct {
	Major uint8
	Minor uint8
}

func (v RSMVersion) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// AtLeast reports whether v >= major.minor.
func (v RSMVersion) AtLeast(major, minor uint8) bool {
	return v.Major > major || (v.Major == major && v.Minor >= minor)
}

// RSMShadingType is the shading mode stored in the header.
type RSMShadingType int32

const (
	RSMShadingNone   RSMShadingType = 0
	RSMShadingFlat   RSMShadingType = 1
	RSMShadingSmooth RSMShadingType = 2
)

func (s RSMShadingType) String() string {
	switch s {
	case RSMShadingNone:
		return "None"
	case RSMShadingFlat:
		return "Flat"
	case RSMShadingSmooth:
		return "Smooth"
	default:
		return fmt.Sprintf("Unknown(%d)", s)
	}
}

// RSMTexCoord is a texture coordinate with its vertex color.
type RSMTexCoord struct {
	Color [4]uint8 // v1.2+, white before
	U, V  float32
}

// RSMFace is one triangle. TextureID indexes the owning node's TextureIDs.
type RSMFace struct {
	VertexIDs   [3]uint16
	TexCoordIDs [3]uint16
	TextureID   uint16
	Padding     uint16
	TwoSide     int32
	SmoothGroup int32 // v1.2+
}

type RSMPosKeyframe struct {
	Frame    int32
	Position [3]float32
}

// RSMRotKeyframe holds an x, y, z, w quaternion.
type RSMRotKeyframe struct {
	Frame      int32
	Quaternion [4]float32
}

type RSMScaleKeyframe struct {
	Frame int32
	Scale [3]float32
}

// RSMNode is one node of the model hierarchy. Nodes reference their parent by name.
type RSMNode struct {
	Name       string
	Parent     string
	TextureIDs []int32

	// Matrix is a column-major 3x3 applied to the vertices before Offset.
	Matrix   [9]float32
	Offset   [3]float32
	Position [3]float32
	RotAngle float32 // radians
	RotAxis  [3]float32
	Scale    [3]float32

	Vertices  [][3]float32
	TexCoords []RSMTexCoord
	Faces     []RSMFace

	PosKeys   []RSMPosKeyframe // before v1.5
	RotKeys   []RSMRotKeyframe
	ScaleKeys []RSMScaleKeyframe // v1.5+
}

type RSMVolumeBox struct {
	Size     [3]float32
	Position [3]float32
	Rotation [3]float32
	Flag     int32 // v1.3+
}

// RSM is a parsed model file.
type RSM struct {
	Version     RSMVersion
	AnimLength  int32 // milliseconds
	Shading     RSMShadingType
	Alpha       float32 // 0..1, v1.4+
	Textures    []string
	RootNode    string
	Nodes       []RSMNode
	VolumeBoxes []RSMVolumeBox
}

// rsmReader wraps a reader and keeps the first error; later reads are no-ops.
type rsmReader struct {
	r   *bytes.Reader
	err error
}

func (rr *rsmReader) read(v any) {
	if rr.err != nil {
		return
	}
	if err := binary.Read(rr.r, binary.LittleEndian, v); err != nil {
		rr.err = ErrTruncatedRSMData
	}
}

// count reads an int32 list length and validates it against limit.
func (rr *rsmReader) count(what string, limit int32) int {
	var n int32
	rr.read(&n)
	if rr.err == nil && (n < 0 || n > limit) {
		rr.err = fmt.Errorf("%w: %d %s", ErrInvalidRSMCount, n, what)
	}
	if rr.err != nil {
		return 0
	}
	return int(n)
}

// name reads a fixed-length EUC-KR name.
func (rr *rsmReader) name() string {
	buf := make([]byte, rsmNameLen)
	if rr.err != nil {
		return ""
	}
	if _, err := io.ReadFull(rr.r, buf); err != nil {
		rr.err = ErrTruncatedRSMData
		return ""
	}
	return encoding.FixedStringToUTF8(buf)
}

func (rr *rsmReader) skip(n int64) {
	if rr.err != nil {
		return
	}
	if int64(rr.r.Len()) < n {
		rr.err = ErrTruncatedRSMData
		return
	}
	rr.r.Seek(n, io.SeekCurrent)
}

// ParseRSM parses an RSM model. Versions 1.1 to 2.3 are accepted.
func ParseRSM(data []byte) (*RSM, error) {
	if len(data) < 6 {
		return nil, ErrTruncatedRSMData
	}
	if string(data[:4]) != "GRSM" {
		return nil, ErrInvalidRSMMagic
	}

	rsm := &RSM{Version: RSMVersion{Major: data[4], Minor: data[5]}, Alpha: 1}
	v := rsm.Version
	if !v.AtLeast(1, 1) || v.AtLeast(2, 4) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedRSMVersion, v)
	}

	rr := &rsmReader{r: bytes.NewReader(data[6:])}
	rr.read(&rsm.AnimLength)
	rr.read(&rsm.Shading)
	if v.AtLeast(1, 4) {
		var alpha uint8
		rr.read(&alpha)
		rsm.Alpha = float32(alpha) / 255
	}
	rr.skip(16) // reserved

	rsm.Textures = make([]string, rr.count("textures", maxRSMTextures))
	for i := range rsm.Textures {
		rsm.Textures[i] = rr.name()
	}
	rsm.RootNode = rr.name()

	var nodeCount int32
	rr.read(&nodeCount)
	if rr.err != nil {
		return nil, rr.err
	}
	if nodeCount < 0 || nodeCount > maxRSMNodes {
		return nil, fmt.Errorf("%w: %d", ErrInvalidNodeCount, nodeCount)
	}

	rsm.Nodes = make([]RSMNode, nodeCount)
	for i := range rsm.Nodes {
		rr.node(&rsm.Nodes[i], v)
		if rr.err != nil {
			return nil, fmt.Errorf("parsing node %d: %w", i, rr.err)
		}
	}

	// Volume boxes are optional trailing data.
	if rr.r.Len() >= 4 {
		rsm.VolumeBoxes = make([]RSMVolumeBox, rr.count("volume boxes", maxRSMBoxes))
		for i := range rsm.VolumeBoxes {
			box := &rsm.VolumeBoxes[i]
			rr.read(&box.Size)
			rr.read(&box.Position)
			rr.read(&box.Rotation)
			if v.AtLeast(1, 3) {
				rr.read(&box.Flag)
			}
		}
		if rr.err != nil {
			return nil, fmt.Errorf("parsing volume boxes: %w", rr.err)
		}
	}
	return rsm, nil
}

func (rr *rsmReader) node(n *RSMNode, v RSMVersion) {
	n.Name = rr.name()
	n.Parent = rr.name()

	n.TextureIDs = make([]int32, rr.count("node textures", maxRSMTextures))
	for i := range n.TextureIDs {
		rr.read(&n.TextureIDs[i])
	}

	rr.read(&n.Matrix)
	rr.read(&n.Offset)
	rr.read(&n.Position)
	rr.read(&n.RotAngle)
	rr.read(&n.RotAxis)
	rr.read(&n.Scale)

	n.Vertices = make([][3]float32, rr.count("vertices", maxRSMElements))
	for i := range n.Vertices {
		rr.read(&n.Vertices[i])
	}

	n.TexCoords = make([]RSMTexCoord, rr.count("texture coordinates", maxRSMElements))
	for i := range n.TexCoords {
		tc := &n.TexCoords[i]
		if v.AtLeast(1, 2) {
			rr.read(&tc.Color)
		} else {
			tc.Color = [4]uint8{255, 255, 255, 255}
		}
		rr.read(&tc.U)
		rr.read(&tc.V)
	}

	n.Faces = make([]RSMFace, rr.count("faces", maxRSMElements))
	for i := range n.Faces {
		f := &n.Faces[i]
		rr.read(&f.VertexIDs)
		rr.read(&f.TexCoordIDs)
		rr.read(&f.TextureID)
		rr.read(&f.Padding)
		rr.read(&f.TwoSide)
		if v.AtLeast(1, 2) {
			rr.read(&f.SmoothGroup)
		}
	}

	if !v.AtLeast(1, 5) {
		n.PosKeys = make([]RSMPosKeyframe, rr.count("position keys", maxRSMKeyframes))
		for i := range n.PosKeys {
			rr.read(&n.PosKeys[i].Frame)
			rr.read(&n.PosKeys[i].Position)
		}
	}

	n.RotKeys = make([]RSMRotKeyframe, rr.count("rotation keys", maxRSMKeyframes))
	for i := range n.RotKeys {
		rr.read(&n.RotKeys[i].Frame)
		rr.read(&n.RotKeys[i].Quaternion)
	}

	if v.AtLeast(1, 5) {
		n.ScaleKeys = make([]RSMScaleKeyframe, rr.count("scale keys", maxRSMKeyframes))
		for i := range n.ScaleKeys {
			rr.read(&n.ScaleKeys[i].Frame)
			rr.read(&n.ScaleKeys[i].Scale)
		}
	}
}

// ParseRSMFile parses an RSM file from disk.
func ParseRSMFile(path string) (*RSM, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading RSM file: %w", err)
	}
	return ParseRSM(data)
}

// VertexCount returns the number of vertices across all nodes.
func (rsm *RSM) VertexCount() int {
	total := 0
	for _, n := range rsm.Nodes {
		total += len(n.Vertices)
	}
	return total
}

// FaceCount returns the number of faces across all nodes.
func (rsm *RSM) FaceCount() int {
	total := 0
	for _, n := range rsm.Nodes {
		total += len(n.Faces)
	}
	return total
}

// Node returns the first node with the given name, or nil.
func (rsm *RSM) Node(name string) *RSMNode {
	for i := range rsm.Nodes {
		if rsm.Nodes[i].Name == name {
			return &rsm.Nodes[i]
		}
	}
	return nil
}

// Root returns the node named by the header, or nil.
func (rsm *RSM) Root() *RSMNode {
	return rsm.Node(rsm.RootNode)
}

// Children returns the nodes whose parent is parentName.
func (rsm *RSM) Children(parentName string) []*RSMNode {
	var children []*RSMNode
	for i := range rsm.Nodes {
		if rsm.Nodes[i].Parent == parentName && rsm.Nodes[i].Name != parentName {
			children = append(children, &rsm.Nodes[i])
		}
	}
	return children
}

// HasAnimation reports whether any node carries keyframes.
func (rsm *RSM) HasAnimation() bool {
	for _, n := range rsm.Nodes {
		if len(n.PosKeys) > 0 || len(n.RotKeys) > 0 || len(n.ScaleKeys) > 0 {
			return true
		}
	}
	return false
}
