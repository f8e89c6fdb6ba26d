package scene

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTarget(t *testing.T) {
	tests := []struct {
		name string
		want Target
	}{
		{"m_LocalPosition.x", Target{Kind: PositionX}},
		{"localPosition.z", Target{Kind: PositionZ}},
		{"m_LocalRotation.w", Target{Kind: RotationW}},
		{"m_LocalScale.y", Target{Kind: ScaleY}},
		{"blendShape.smile", MorphTarget("smile")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTarget(tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseTargetErrors(t *testing.T) {
	for _, name := range []string{"", "m_LocalPosition", "m_LocalPosition.w", "m_Color.r", "blendShape."} {
		_, err := ParseTarget(name)
		assert.Error(t, err, name)
	}
}

func TestTargetStringRoundTrip(t *testing.T) {
	for k := PositionX; k <= ScaleZ; k++ {
		tgt := Target{Kind: k}
		back, err := ParseTarget(tgt.String())
		require.NoError(t, err)
		assert.Equal(t, tgt, back)
	}
	assert.Equal(t, "m_LocalRotation.w", Target{Kind: RotationW}.String())
	assert.Equal(t, "blendShape.blink", MorphTarget("blink").String())
}

func TestTargetGroups(t *testing.T) {
	assert.Equal(t, GroupRotation, Target{Kind: RotationZ}.Group())
	assert.Equal(t, 2, Target{Kind: RotationZ}.Component())
	assert.Equal(t, Target{Kind: ScaleX}, TargetOf(GroupScale, 0))
	assert.Equal(t, GroupMorph, MorphTarget("a").Group())
	assert.Equal(t, 4, GroupRotation.Size())
}

func TestCurveEvaluate(t *testing.T) {
	c := Curve{Keys: []Keyframe{{Time: 0, Value: 0}, {Time: 1, Value: 2}, {Time: 3, Value: 2}}}
	c.SetLinearTangents()

	assert.Equal(t, float32(0), c.Evaluate(-1))
	assert.InDelta(t, 1.0, c.Evaluate(0.5), 1e-5)
	assert.InDelta(t, 2.0, c.Evaluate(2), 1e-5)
	assert.Equal(t, float32(2), c.Evaluate(10))

	assert.Equal(t, float32(0), c.Keys[0].InTangent)
	assert.Equal(t, float32(2), c.Keys[0].OutTangent)
	assert.Equal(t, float32(2), c.Keys[1].InTangent)
	assert.Equal(t, float32(0), c.Keys[1].OutTangent)
}

func TestClipPathsSorted(t *testing.T) {
	clip := &AnimationClip{Curves: []Curve{
		{Path: "b", Target: Target{Kind: PositionX}},
		{Path: "", Target: Target{Kind: PositionX}},
		{Path: "a/c", Target: Target{Kind: PositionY}, Keys: []Keyframe{{Time: 4}}},
		{Path: "b", Target: Target{Kind: PositionY}},
	}}
	assert.Equal(t, []string{"", "a/c", "b"}, clip.Paths())
	assert.Equal(t, float32(4), clip.Length())
	assert.NotNil(t, clip.Curve("b", Target{Kind: PositionY}))
	assert.Nil(t, clip.Curve("b", Target{Kind: PositionZ}))
}

func TestFindAndPathTo(t *testing.T) {
	root := NewObject("root")
	arm := NewObject("arm")
	hand := NewObject("hand")
	root.AddChild(arm)
	arm.AddChild(hand)

	assert.Equal(t, Node(hand), Find(root, "arm/hand"))
	assert.Equal(t, Node(root), Find(root, ""))
	assert.Nil(t, Find(root, "arm/foot"))

	p, ok := PathTo(root, hand)
	require.True(t, ok)
	assert.Equal(t, "arm/hand", p)

	_, ok = PathTo(arm, root)
	assert.False(t, ok)
}

func TestAddChildReparents(t *testing.T) {
	a, b, c := NewObject("a"), NewObject("b"), NewObject("c")
	a.AddChild(c)
	b.AddChild(c)
	assert.Empty(t, a.Children())
	assert.Equal(t, b, c.Parent())
	assert.Len(t, b.ChildObjects(), 1)
}

func TestWalkPreOrder(t *testing.T) {
	root := NewObject("r")
	a, b := NewObject("a"), NewObject("b")
	root.AddChild(a)
	root.AddChild(b)
	a.AddChild(NewObject("a1"))

	var names []string
	Walk(root, func(n Node) bool {
		names = append(names, n.Name())
		return true
	})
	assert.Equal(t, []string{"r", "a", "a1", "b"}, names)
}

func TestBounds(t *testing.T) {
	_, _, ok := Bounds(nil)
	assert.False(t, ok)

	lo, hi, ok := Bounds([]mgl32.Vec3{{1, 2, 3}})
	require.True(t, ok)
	assert.Equal(t, lo, hi)

	lo, hi, _ = Bounds([]mgl32.Vec3{{1, -2, 3}, {-1, 5, 0}})
	assert.Equal(t, mgl32.Vec3{-1, -2, 0}, lo)
	assert.Equal(t, mgl32.Vec3{1, 5, 3}, hi)
}

func TestTransformMatrix(t *testing.T) {
	tr := IdentityTransform()
	tr.Translation = mgl32.Vec3{1, 2, 3}
	m := tr.Matrix()
	assert.Equal(t, float32(1), m.At(0, 3))
	assert.Equal(t, float32(3), m.At(2, 3))
	assert.Equal(t, float32(1), m.At(0, 0))
}

func TestMaterialSetProperty(t *testing.T) {
	m := NewMaterial("m", "Standard")
	m.SetFloat("_Glossiness", 0.5)
	m.SetFloat("_Glossiness", 0.7)
	m.SetColor("_Color", [4]float32{1, 0, 0, 1})
	require.Len(t, m.Properties(), 2)
	p, ok := m.Property("_Glossiness")
	require.True(t, ok)
	assert.Equal(t, []float32{0.7}, p.Values)
	kind, err := ParsePropertyKind(PropertyColor.String())
	require.NoError(t, err)
	assert.Equal(t, PropertyColor, kind)
}

func TestMaterialForTypedNil(t *testing.T) {
	var missing *MaterialAsset
	stone := NewMaterial("stone", "Standard")
	r := &Renderer{Materials: []Material{missing, stone}}

	assert.Nil(t, r.MaterialFor(0))
	assert.Equal(t, stone, r.MaterialFor(1))
	assert.Nil(t, r.MaterialFor(2))
}
