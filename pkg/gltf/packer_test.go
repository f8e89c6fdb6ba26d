package gltf

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/midgard-gltf/pkg/scene"
)

func TestPackerAlignment(t *testing.T) {
	var p Packer

	off, n := p.AppendUint16([]uint16{1, 2, 3})
	assert.Equal(t, 0, off)
	assert.Equal(t, 6, n)
	assert.Equal(t, 8, p.Len(), "padded to 4 bytes")

	off, n = p.AppendFloats([]float32{1.5})
	assert.Equal(t, 8, off)
	assert.Equal(t, 4, n)

	off, n = p.AppendUint16([]uint16{7})
	assert.Equal(t, 12, off)
	assert.Equal(t, 2, n)
	assert.Equal(t, 16, p.Len())

	b := p.Bytes()
	assert.Equal(t, []byte{1, 0, 2, 0, 3, 0, 0, 0}, b[:8])
	assert.Equal(t, float32(1.5), math.Float32frombits(binary.LittleEndian.Uint32(b[8:])))
	assert.Equal(t, []byte{7, 0, 0, 0}, b[12:16])
}

func TestPackerVectorsLittleEndian(t *testing.T) {
	var p Packer
	p.AppendVec3([]mgl32.Vec3{{1, 2, 3}})
	p.AppendVec2([]mgl32.Vec2{{4, 5}})
	p.AppendVec4([]mgl32.Vec4{{6, 7, 8, 9}})
	p.AppendJoints([][4]uint16{{1, 2, 3, 4}})

	b := p.Bytes()
	require.Len(t, b, 12+8+16+8)
	for i, want := range []float32{1, 2, 3, 4, 5, 6, 7, 8, 9} {
		got := math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
		assert.Equal(t, want, got, "float %d", i)
	}
	assert.Equal(t, uint16(4), binary.LittleEndian.Uint16(b[36+6:]))
}

func TestPackerMat4ColumnMajor(t *testing.T) {
	var m mgl32.Mat4
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			m.Set(i, j, float32(i*10+j))
		}
	}

	var p Packer
	_, n := p.AppendMat4([]mgl32.Mat4{m})
	require.Equal(t, 64, n)

	b := p.Bytes()
	for j := 0; j < 4; j++ {
		for i := 0; i < 4; i++ {
			got := math.Float32frombits(binary.LittleEndian.Uint32(b[(j*4+i)*4:]))
			assert.Equal(t, float32(i*10+j), got, "element [%d][%d]", i, j)
		}
	}
}

func TestRegistryUsage(t *testing.T) {
	var p Packer
	r := NewRegistry(&p)

	pos := r.Positions([]mgl32.Vec3{{1, 2, 3}, {-1, 5, 0}})
	idx := r.Indices([]uint16{0, 1, 0})
	tm := r.Times([]float32{0.5, 2})
	ibm := r.Matrices([]mgl32.Mat4{mgl32.Ident4()})

	views, accs := r.Views(), r.Accessors()
	require.Len(t, views, 4)
	require.Len(t, accs, 4)

	for i, a := range accs {
		require.NotNil(t, a.BufferView)
		assert.Equal(t, i, *a.BufferView, "one view per accessor")
		assert.Zero(t, views[i].ByteOffset%Alignment)
	}

	assert.Equal(t, 12, *views[pos].ByteStride)
	assert.Equal(t, TargetArrayBuffer, *views[pos].Target)
	assert.Equal(t, []float32{-1, 2, 0}, accs[pos].Min)
	assert.Equal(t, []float32{1, 5, 3}, accs[pos].Max)

	assert.Nil(t, views[idx].ByteStride)
	assert.Equal(t, TargetElementArrayBuffer, *views[idx].Target)
	assert.Equal(t, 6, views[idx].ByteLength)
	assert.Nil(t, accs[idx].Min)

	assert.Nil(t, views[tm].Target)
	assert.Nil(t, views[tm].ByteStride)
	assert.Equal(t, []float32{0.5}, accs[tm].Min)
	assert.Equal(t, []float32{2}, accs[tm].Max)

	assert.Nil(t, views[ibm].Target)
	assert.Equal(t, TypeMat4, accs[ibm].Type)
}

func TestRegistrySingleVertexBounds(t *testing.T) {
	var p Packer
	r := NewRegistry(&p)
	i := r.Positions([]mgl32.Vec3{{3, -4, 5}})
	a := r.Accessors()[i]
	assert.Equal(t, a.Min, a.Max)
	assert.Equal(t, []float32{3, -4, 5}, a.Min)
}

type fakeTexture struct {
	id uuid.UUID
}

func (f fakeTexture) ID() uuid.UUID                { return f.id }
func (f fakeTexture) Name() string                 { return "fake" }
func (f fakeTexture) SourcePath() string           { return "" }
func (f fakeTexture) FilterMode() scene.FilterMode { return scene.FilterPoint }
func (f fakeTexture) WrapMode() scene.WrapMode     { return scene.WrapClamp }
func (f fakeTexture) MipCount() int                { return 1 }

func TestCacheFirstSeenOrder(t *testing.T) {
	var c Cache
	a, b := scene.NewMesh("a", scene.MeshStreams{}), scene.NewMesh("b", scene.MeshStreams{})

	assert.Equal(t, 0, c.InternMesh(b))
	assert.Equal(t, 1, c.InternMesh(a))
	assert.Equal(t, 0, c.InternMesh(b))
	assert.Len(t, c.Meshes(), 2)

	id := uuid.New()
	assert.Equal(t, 0, c.InternTexture(fakeTexture{id: id}))
	assert.Equal(t, 0, c.InternTexture(fakeTexture{id: id}), "identity, not pointer, decides")
	assert.Equal(t, 1, c.InternTexture(fakeTexture{id: uuid.New()}))
}

func TestSamplerIndex(t *testing.T) {
	tex := scene.NewTexture("t", "t.png")
	assert.Equal(t, 5, samplerIndex(tex))

	tex.Settings = scene.TextureSettings{Filter: scene.FilterPoint, Wrap: scene.WrapClamp, MipCount: 1}
	assert.Equal(t, 0, samplerIndex(tex))

	tex.Settings = scene.TextureSettings{Filter: scene.FilterTrilinear, Wrap: scene.WrapRepeat, MipCount: 9}
	assert.Equal(t, 7, samplerIndex(tex))

	presets := samplerPresets()
	require.Len(t, presets, 8)
	assert.Equal(t, FilterNearest, *presets[0].MagFilter)
	assert.Equal(t, WrapClampToEdge, *presets[0].WrapS)
	assert.Equal(t, FilterLinearMipmapLinear, *presets[7].MinFilter)
	assert.Equal(t, FilterNearestMipmapNearest, *presets[2].MinFilter)
	assert.Equal(t, WrapRepeat, *presets[5].WrapT)
}

func TestConventionInvolution(t *testing.T) {
	c := SymmetricConvention
	m := mgl32.Translate3D(1, 2, 3).Mul4(mgl32.HomogRotate3DY(0.7))
	assert.Equal(t, m, c.matrix(c.matrix(m)))

	q := mgl32.QuatRotate(0.3, mgl32.Vec3{0, 1, 0})
	assert.Equal(t, q, c.rotation(c.rotation(q)))

	tris := []uint32{0, 1, 2, 3, 4, 5}
	assert.Equal(t, []uint32{0, 2, 1, 3, 5, 4}, c.triangles(tris))
	assert.Equal(t, []uint32{0, 1, 2, 3, 4, 5}, tris, "input untouched")

	assert.Equal(t, mgl32.Vec2{0.5, 0.75}, c.uv(mgl32.Vec2{0.5, 0.25}))
	assert.Equal(t, float32(-1), c.componentSign(PathTranslation, 2))
	assert.Equal(t, float32(1), c.componentSign(PathRotation, 3))
}
