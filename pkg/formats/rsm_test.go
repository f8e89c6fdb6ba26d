package formats

import (
	"bytes"
	"encoding/binary"
	"math"
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/midgard-gltf/pkg/encoding"
	"github.com/Faultbox/midgard-gltf/pkg/scene"
)

func TestParseRSM_MagicValidation(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		wantErr error
	}{
		{"valid magic", makeMinimalRSM(1, 5), nil},
		{"invalid magic", makeRSMHeader("XXXX", 1, 5), ErrInvalidRSMMagic},
		{"empty data", []byte{}, ErrTruncatedRSMData},
		{"truncated data", []byte{'G', 'R', 'S'}, ErrTruncatedRSMData},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRSM(tt.data)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestParseRSM_VersionSupport(t *testing.T) {
	tests := []struct {
		name    string
		major   uint8
		minor   uint8
		wantErr bool
	}{
		{"v1.1", 1, 1, false},
		{"v1.2", 1, 2, false},
		{"v1.3", 1, 3, false},
		{"v1.4", 1, 4, false},
		{"v1.5", 1, 5, false},
		{"v2.1", 2, 1, false},
		{"v2.2", 2, 2, false},
		{"v2.3", 2, 3, false},
		{"v0.1 unsupported", 0, 1, true},
		{"v1.0 unsupported", 1, 0, true},
		{"v3.0 unsupported", 3, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRSM(makeMinimalRSM(tt.major, tt.minor))
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnsupportedRSMVersion)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRSMVersion_AtLeast(t *testing.T) {
	tests := []struct {
		version RSMVersion
		major   uint8
		minor   uint8
		want    bool
	}{
		{RSMVersion{1, 5}, 1, 5, true},
		{RSMVersion{1, 5}, 1, 4, true},
		{RSMVersion{1, 5}, 1, 6, false},
		{RSMVersion{1, 5}, 2, 0, false},
		{RSMVersion{2, 3}, 1, 9, true},
		{RSMVersion{2, 3}, 2, 4, false},
	}

	for _, tt := range tests {
		t.Run(tt.version.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.version.AtLeast(tt.major, tt.minor))
		})
	}
}

func TestRSMShadingType_String(t *testing.T) {
	assert.Equal(t, "None", RSMShadingNone.String())
	assert.Equal(t, "Flat", RSMShadingFlat.String())
	assert.Equal(t, "Smooth", RSMShadingSmooth.String())
	assert.Equal(t, "Unknown(99)", RSMShadingType(99).String())
}

func TestParseRSM_V15_Structure(t *testing.T) {
	data := makeMinimalRSMWithNode(1, 5)

	rsm, err := ParseRSM(data)
	require.NoError(t, err)

	assert.Equal(t, "1.5", rsm.Version.String())
	assert.Equal(t, RSMShadingSmooth, rsm.Shading)
	assert.Equal(t, []string{"test.bmp"}, rsm.Textures)
	assert.Equal(t, "root", rsm.RootNode)
	require.Len(t, rsm.Nodes, 1)
	assert.Equal(t, [9]float32{1, 0, 0, 0, 1, 0, 0, 0, 1}, rsm.Nodes[0].Matrix)
	assert.Equal(t, [3]float32{1, 1, 1}, rsm.Nodes[0].Scale)
}

func TestParseRSM_V14_Alpha(t *testing.T) {
	rsm, err := ParseRSM(makeMinimalRSMWithAlpha(1, 4, 128))
	require.NoError(t, err)
	assert.InDelta(t, 128.0/255.0, rsm.Alpha, 1e-6)
}

func TestParseRSM_V13_NoAlpha(t *testing.T) {
	rsm, err := ParseRSM(makeMinimalRSM(1, 3))
	require.NoError(t, err)
	assert.Equal(t, float32(1), rsm.Alpha)
}

func TestParseRSM_Geometry(t *testing.T) {
	for _, v := range []RSMVersion{{1, 1}, {1, 4}, {1, 5}} {
		t.Run(v.String(), func(t *testing.T) {
			model := sampleRSM()
			model.Version = v
			data := encodeRSM(model)

			got, err := ParseRSM(data)
			require.NoError(t, err)
			require.Len(t, got.Nodes, 2)

			root := got.Node("root")
			require.NotNil(t, root)
			assert.Equal(t, []int32{0, 1}, root.TextureIDs)
			assert.Equal(t, model.Nodes[0].Vertices, root.Vertices)
			assert.Equal(t, model.Nodes[0].Faces[1].TwoSide, root.Faces[1].TwoSide)
			assert.Equal(t, [3]uint16{0, 2, 1}, root.Faces[1].VertexIDs)

			if v.AtLeast(1, 2) {
				assert.Equal(t, [4]uint8{255, 0, 0, 255}, root.TexCoords[0].Color)
				assert.Equal(t, int32(3), root.Faces[0].SmoothGroup)
			} else {
				assert.Equal(t, [4]uint8{255, 255, 255, 255}, root.TexCoords[0].Color, "white before 1.2")
				assert.Zero(t, root.Faces[0].SmoothGroup)
			}

			child := got.Node("child")
			require.NotNil(t, child)
			assert.Len(t, child.RotKeys, 2)
			if v.AtLeast(1, 5) {
				assert.Len(t, child.ScaleKeys, 2)
				assert.Empty(t, child.PosKeys)
			} else {
				assert.Len(t, child.PosKeys, 1)
				assert.Empty(t, child.ScaleKeys)
			}

			require.Len(t, got.VolumeBoxes, 1)
			assert.Equal(t, [3]float32{2, 3, 4}, got.VolumeBoxes[0].Size)
		})
	}
}

func TestParseRSM_Truncated(t *testing.T) {
	data := encodeRSM(sampleRSM())
	for _, cut := range []int{10, 40, 120, 200, len(data) - 30} {
		_, err := ParseRSM(data[:cut])
		assert.ErrorIs(t, err, ErrTruncatedRSMData, "cut at %d", cut)
	}
}

func TestParseRSM_BadCounts(t *testing.T) {
	t.Run("negative texture count", func(t *testing.T) {
		b := newRSMEncoder(RSMVersion{1, 5})
		b.put(int32(0))
		b.put(int32(0))
		b.put(uint8(255))
		b.put([16]byte{})
		b.put(int32(-1))
		_, err := ParseRSM(b.buf.Bytes())
		assert.ErrorIs(t, err, ErrInvalidRSMCount)
	})

	t.Run("huge node count", func(t *testing.T) {
		b := newRSMEncoder(RSMVersion{1, 5})
		b.put(int32(0))
		b.put(int32(0))
		b.put(uint8(255))
		b.put([16]byte{})
		b.put(int32(0))
		b.name("root")
		b.put(int32(maxRSMNodes + 1))
		_, err := ParseRSM(b.buf.Bytes())
		assert.ErrorIs(t, err, ErrInvalidNodeCount)
	})
}

func TestRSM_Counts(t *testing.T) {
	rsm := &RSM{
		Nodes: []RSMNode{
			{Vertices: make([][3]float32, 10), Faces: make([]RSMFace, 10)},
			{Vertices: make([][3]float32, 20), Faces: make([]RSMFace, 20)},
			{Vertices: make([][3]float32, 5)},
		},
	}
	assert.Equal(t, 35, rsm.VertexCount())
	assert.Equal(t, 30, rsm.FaceCount())
}

func TestRSM_Hierarchy(t *testing.T) {
	rsm := &RSM{
		RootNode: "root",
		Nodes: []RSMNode{
			{Name: "root", Parent: ""},
			{Name: "child1", Parent: "root"},
			{Name: "child2", Parent: "root"},
			{Name: "grandchild", Parent: "child1"},
		},
	}

	require.NotNil(t, rsm.Root())
	assert.Equal(t, "root", rsm.Root().Name)
	assert.Nil(t, rsm.Node("nonexistent"))
	assert.Len(t, rsm.Children("root"), 2)
	assert.Len(t, rsm.Children("child1"), 1)
	assert.Empty(t, rsm.Children("nonexistent"))
}

func TestRSM_HasAnimation(t *testing.T) {
	tests := []struct {
		name string
		node RSMNode
		want bool
	}{
		{"no animation", RSMNode{Name: "node"}, false},
		{"rotation keys", RSMNode{RotKeys: []RSMRotKeyframe{{Frame: 0}}}, true},
		{"position keys", RSMNode{PosKeys: []RSMPosKeyframe{{Frame: 0}}}, true},
		{"scale keys", RSMNode{ScaleKeys: []RSMScaleKeyframe{{Frame: 0}}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rsm := &RSM{Nodes: []RSMNode{tt.node}}
			assert.Equal(t, tt.want, rsm.HasAnimation())
		})
	}
}

func TestRSMScene(t *testing.T) {
	root, err := sampleRSM().Scene(SceneOptions{TextureDir: "/tex"})
	require.NoError(t, err)

	assert.Equal(t, "root", root.Name())
	require.Len(t, root.ChildObjects(), 1)
	child := root.ChildObjects()[0]
	assert.Equal(t, "child", child.Name())

	tr := root.LocalTransform()
	assert.Equal(t, mgl32.Vec3{5, 0, 0}, tr.Translation)
	want := mgl32.QuatRotate(math.Pi/2, mgl32.Vec3{0, 0, 1})
	assert.True(t, tr.Rotation.ApproxEqualThreshold(want, 1e-6))
	assert.Equal(t, mgl32.QuatIdent(), child.LocalTransform().Rotation, "zero angle")

	r := root.Renderer()
	require.NotNil(t, r)
	mesh := r.Mesh
	assert.Equal(t, []mgl32.Vec3{{0, 1, 0}, {1, 1, 0}, {0, 2, 0}}, mesh.Positions(), "offset baked in")
	assert.Equal(t, []mgl32.Vec2{{0, 0}, {0, 0}, {1, 1}}, mesh.UV(0))
	assert.Equal(t, mgl32.Vec4{1, 0, 0, 1}, mesh.Colors()[0])
	require.Equal(t, 2, mesh.SubmeshCount())
	assert.Equal(t, []uint32{0, 1, 2}, mesh.Triangles(0))
	assert.Equal(t, []uint32{0, 2, 1, 0, 1, 2}, mesh.Triangles(1), "two-sided face emits its back")

	require.Len(t, r.Materials, 2)
	wall := r.Materials[0]
	assert.Equal(t, "wall", wall.Name())
	assert.Equal(t, RSMShader, wall.Shader())
	tex := wall.Properties()[0].Texture
	require.NotNil(t, tex)
	assert.Equal(t, filepath.Join("/tex", "data", "texture", "wall.bmp"), tex.SourcePath())
	assert.Equal(t, "roof", r.Materials[1].Name())

	assert.Nil(t, child.Renderer(), "no faces")

	require.NotEmpty(t, root.Components())
	info := root.Components()[0]
	assert.Equal(t, "RSM", info.Type)
	assert.Equal(t, "1.5", info.Properties["version"])
	assert.Equal(t, "RSMVolumeBox", root.Components()[1].Type)

	clips := root.Animations()
	require.Len(t, clips, 1)
	assert.Equal(t, RSMClipName, clips[0].Name)
	assert.Len(t, clips[0].Curves, 10)
	w := clips[0].Curve("child", scene.TargetOf(scene.GroupRotation, 3))
	require.NotNil(t, w)
	assert.Equal(t, []float32{0, 1}, []float32{w.Keys[0].Time, w.Keys[1].Time})
	assert.Equal(t, float32(-1), w.Keys[0].OutTangent)
	sx := clips[0].Curve("child", scene.TargetOf(scene.GroupScale, 0))
	require.NotNil(t, sx)
	assert.Equal(t, float32(0.5), sx.Keys[1].Time)
	assert.Equal(t, float32(2), sx.Keys[1].Value)
}

func TestRSMScene_ParsedModel(t *testing.T) {
	rsm, err := ParseRSM(encodeRSM(sampleRSM()))
	require.NoError(t, err)

	root, err := rsm.Scene(SceneOptions{})
	require.NoError(t, err)
	assert.Len(t, root.Renderer().Mesh.Positions(), 3)
	tex := root.Renderer().Materials[0].Properties()[0].Texture
	assert.Equal(t, filepath.Join("data", "texture", "wall.bmp"), tex.SourcePath())
}

func TestParseRSM_KoreanNames(t *testing.T) {
	model := sampleRSM()
	model.Textures[1] = `유저인터페이스\지붕.bmp`
	model.Nodes[1].Name = "날개"

	got, err := ParseRSM(encodeRSM(model))
	require.NoError(t, err)
	assert.Equal(t, `유저인터페이스\지붕.bmp`, got.Textures[1])
	assert.NotNil(t, got.Node("날개"))

	root, err := got.Scene(SceneOptions{})
	require.NoError(t, err)
	assert.Equal(t, "지붕", root.Renderer().Materials[1].Name())
	assert.Equal(t, "날개", root.ChildObjects()[0].Name())
}

func TestRSMScene_Roots(t *testing.T) {
	t.Run("several top-level nodes", func(t *testing.T) {
		rsm := &RSM{RootNode: "a", Nodes: []RSMNode{{Name: "a"}, {Name: "b"}}}
		root, err := rsm.Scene(SceneOptions{Name: "model"})
		require.NoError(t, err)
		assert.Equal(t, "model", root.Name())
		assert.Len(t, root.ChildObjects(), 2)
	})

	t.Run("parent cycle", func(t *testing.T) {
		rsm := &RSM{Nodes: []RSMNode{{Name: "a", Parent: "b"}, {Name: "b", Parent: "a"}}}
		root, err := rsm.Scene(SceneOptions{})
		require.NoError(t, err)
		assert.Equal(t, "b", root.Name())
		require.Len(t, root.ChildObjects(), 1)
		assert.Equal(t, "a", root.ChildObjects()[0].Name())
	})

	t.Run("self parent", func(t *testing.T) {
		rsm := &RSM{Nodes: []RSMNode{{Name: "a", Parent: "a"}}}
		root, err := rsm.Scene(SceneOptions{})
		require.NoError(t, err)
		assert.Equal(t, "a", root.Name())
	})
}

func TestRSMScene_BadFace(t *testing.T) {
	rsm := &RSM{Nodes: []RSMNode{{
		Name:      "a",
		Vertices:  [][3]float32{{0, 0, 0}},
		TexCoords: []RSMTexCoord{{}},
		Faces:     []RSMFace{{VertexIDs: [3]uint16{0, 0, 5}}},
	}}}
	_, err := rsm.Scene(SceneOptions{})
	assert.ErrorIs(t, err, ErrInvalidRSMFace)
}

// sampleRSM returns a version 1.5 model with a textured root and an animated child.
func sampleRSM() *RSM {
	return &RSM{
		Version:  RSMVersion{1, 5},
		Shading:  RSMShadingFlat,
		Alpha:    1,
		Textures: []string{`data\texture\wall.bmp`, "roof.bmp"},
		RootNode: "root",
		Nodes: []RSMNode{
			{
				Name:       "root",
				TextureIDs: []int32{0, 1},
				Matrix:     [9]float32{1, 0, 0, 0, 1, 0, 0, 0, 1},
				Offset:     [3]float32{0, 1, 0},
				Position:   [3]float32{5, 0, 0},
				RotAngle:   math.Pi / 2,
				RotAxis:    [3]float32{0, 0, 1},
				Scale:      [3]float32{1, 1, 1},
				Vertices:   [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
				TexCoords: []RSMTexCoord{
					{Color: [4]uint8{255, 0, 0, 255}},
					{Color: [4]uint8{255, 255, 255, 255}, U: 1, V: 1},
				},
				Faces: []RSMFace{
					{VertexIDs: [3]uint16{0, 1, 2}, TexCoordIDs: [3]uint16{0, 0, 1}, SmoothGroup: 3},
					{VertexIDs: [3]uint16{0, 2, 1}, TexCoordIDs: [3]uint16{0, 1, 0}, TextureID: 1, TwoSide: 1},
				},
			},
			{
				Name:    "child",
				Parent:  "root",
				Matrix:  [9]float32{1, 0, 0, 0, 1, 0, 0, 0, 1},
				RotAxis: [3]float32{0, 1, 0},
				Scale:   [3]float32{1, 1, 1},
				PosKeys: []RSMPosKeyframe{{Frame: 0, Position: [3]float32{1, 2, 3}}},
				RotKeys: []RSMRotKeyframe{
					{Frame: 0, Quaternion: [4]float32{0, 0, 0, 1}},
					{Frame: 1000, Quaternion: [4]float32{0, 0, 1, 0}},
				},
				ScaleKeys: []RSMScaleKeyframe{
					{Frame: 0, Scale: [3]float32{1, 1, 1}},
					{Frame: 500, Scale: [3]float32{2, 2, 2}},
				},
			},
		},
		VolumeBoxes: []RSMVolumeBox{{Size: [3]float32{2, 3, 4}}},
	}
}

type rsmEncoder struct {
	buf bytes.Buffer
	v   RSMVersion
}

func newRSMEncoder(v RSMVersion) *rsmEncoder {
	e := &rsmEncoder{v: v}
	e.buf.WriteString("GRSM")
	e.buf.WriteByte(v.Major)
	e.buf.WriteByte(v.Minor)
	return e
}

func (e *rsmEncoder) put(v any) {
	binary.Write(&e.buf, binary.LittleEndian, v)
}

func (e *rsmEncoder) name(s string) {
	e.buf.Write(encoding.UTF8ToFixedString(s, rsmNameLen))
}

// encodeRSM writes rsm in the layout ParseRSM reads. Keyframes not stored by the
// version are skipped.
func encodeRSM(rsm *RSM) []byte {
	v := rsm.Version
	e := newRSMEncoder(v)
	e.put(rsm.AnimLength)
	e.put(rsm.Shading)
	if v.AtLeast(1, 4) {
		e.put(uint8(rsm.Alpha * 255))
	}
	e.put([16]byte{})
	e.put(int32(len(rsm.Textures)))
	for _, tex := range rsm.Textures {
		e.name(tex)
	}
	e.name(rsm.RootNode)
	e.put(int32(len(rsm.Nodes)))

	for _, n := range rsm.Nodes {
		e.name(n.Name)
		e.name(n.Parent)
		e.put(int32(len(n.TextureIDs)))
		e.put(n.TextureIDs)
		e.put(n.Matrix)
		e.put(n.Offset)
		e.put(n.Position)
		e.put(n.RotAngle)
		e.put(n.RotAxis)
		e.put(n.Scale)
		e.put(int32(len(n.Vertices)))
		e.put(n.Vertices)
		e.put(int32(len(n.TexCoords)))
		for _, tc := range n.TexCoords {
			if v.AtLeast(1, 2) {
				e.put(tc.Color)
			}
			e.put(tc.U)
			e.put(tc.V)
		}
		e.put(int32(len(n.Faces)))
		for _, f := range n.Faces {
			e.put(f.VertexIDs)
			e.put(f.TexCoordIDs)
			e.put(f.TextureID)
			e.put(f.Padding)
			e.put(f.TwoSide)
			if v.AtLeast(1, 2) {
				e.put(f.SmoothGroup)
			}
		}
		if !v.AtLeast(1, 5) {
			e.put(int32(len(n.PosKeys)))
			e.put(n.PosKeys)
		}
		e.put(int32(len(n.RotKeys)))
		e.put(n.RotKeys)
		if v.AtLeast(1, 5) {
			e.put(int32(len(n.ScaleKeys)))
			e.put(n.ScaleKeys)
		}
	}

	e.put(int32(len(rsm.VolumeBoxes)))
	for _, box := range rsm.VolumeBoxes {
		e.put(box.Size)
		e.put(box.Position)
		e.put(box.Rotation)
		if v.AtLeast(1, 3) {
			e.put(box.Flag)
		}
	}
	return e.buf.Bytes()
}

func makeRSMHeader(magic string, major, minor uint8) []byte {
	data := make([]byte, 200)
	copy(data[0:4], magic)
	data[4] = major
	data[5] = minor
	return data
}

// makeMinimalRSM returns a zero-padded model with no textures and no nodes.
func makeMinimalRSM(major, minor uint8) []byte {
	data := makeRSMHeader("GRSM", major, minor)
	if major > 1 || (major == 1 && minor >= 4) {
		data[14] = 255
	}
	return data
}

// makeMinimalRSMWithNode returns a smooth-shaded model with one texture and one
// untransformed, empty root node.
func makeMinimalRSMWithNode(major, minor uint8) []byte {
	model := &RSM{
		Version:  RSMVersion{major, minor},
		Shading:  RSMShadingSmooth,
		Alpha:    1,
		Textures: []string{"test.bmp"},
		RootNode: "root",
		Nodes: []RSMNode{{
			Name:       "root",
			TextureIDs: []int32{0},
			Matrix:     [9]float32{1, 0, 0, 0, 1, 0, 0, 0, 1},
			Scale:      [3]float32{1, 1, 1},
		}},
	}
	return encodeRSM(model)
}

func makeMinimalRSMWithAlpha(major, minor, alpha uint8) []byte {
	data := makeMinimalRSM(major, minor)
	// after magic, version, animation length and shading
	data[14] = alpha
	return data
}
