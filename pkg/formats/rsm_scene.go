package formats

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/midgard-gltf/pkg/encoding"
	"github.com/Faultbox/midgard-gltf/pkg/scene"
)

// ErrInvalidRSMFace is returned when a face references a missing vertex or texture coordinate.
var ErrInvalidRSMFace = errors.New("RSM face references missing vertex data")

// RSMShader is the shader name given to materials built from RSM textures.
const RSMShader = "RSM"

// RSMClipName names the animation clip built from node keyframes.
const RSMClipName = "rsm"

// SceneOptions controls how an RSM model is turned into a scene tree.
type SceneOptions struct {
	// Name is used for the container object when the model has several top-level nodes.
	Name string
	// TextureDir is joined with the texture names stored in the model.
	TextureDir string
}

// Scene builds a scene tree from the model. Each node becomes an object with its own
// mesh; faces are grouped into one submesh per node texture slot.
func (rsm *RSM) Scene(opts SceneOptions) (*scene.Object, error) {
	materials := rsm.materials(opts.TextureDir)

	objects := make([]*scene.Object, len(rsm.Nodes))
	byName := make(map[string]*scene.Object, len(rsm.Nodes))
	for i := range rsm.Nodes {
		n := &rsm.Nodes[i]
		obj, err := n.object(materials)
		if err != nil {
			return nil, fmt.Errorf("node %q: %w", n.Name, err)
		}
		objects[i] = obj
		if _, dup := byName[n.Name]; !dup {
			byName[n.Name] = obj
		}
	}

	var tops []*scene.Object
	for i, obj := range objects {
		parent, ok := byName[rsm.Nodes[i].Parent]
		if !ok || parent == obj || isAncestor(obj, parent) {
			tops = append(tops, obj)
			continue
		}
		parent.AddChild(obj)
	}

	root := rsm.pickRoot(tops, opts.Name)
	root.AddComponent(scene.Component{
		Type: "RSM",
		Properties: map[string]any{
			"version":    rsm.Version.String(),
			"shading":    rsm.Shading.String(),
			"alpha":      rsm.Alpha,
			"animLength": rsm.AnimLength,
		},
	})
	for _, box := range rsm.VolumeBoxes {
		root.AddComponent(scene.Component{
			Type: "RSMVolumeBox",
			Properties: map[string]any{
				"size":     box.Size[:],
				"position": box.Position[:],
				"rotation": box.Rotation[:],
				"flag":     box.Flag,
			},
		})
	}

	if clip := rsm.clip(root, objects); clip != nil {
		root.AddAnimation(clip)
	}
	return root, nil
}

// pickRoot returns the single top-level object, or a container holding all of them.
func (rsm *RSM) pickRoot(tops []*scene.Object, name string) *scene.Object {
	if len(tops) == 1 {
		return tops[0]
	}
	if name == "" {
		name = rsm.RootNode
	}
	container := scene.NewObject(name)
	for _, obj := range tops {
		container.AddChild(obj)
	}
	return container
}

func isAncestor(obj, of *scene.Object) bool {
	for p := of; p != nil; p = p.Parent() {
		if p == obj {
			return true
		}
	}
	return false
}

func (rsm *RSM) materials(dir string) []*scene.MaterialAsset {
	mats := make([]*scene.MaterialAsset, len(rsm.Textures))
	for i, name := range rsm.Textures {
		rel := encoding.SlashPath(name)
		base := strings.TrimSuffix(filepath.Base(rel), filepath.Ext(rel))

		path := filepath.FromSlash(rel)
		if dir != "" {
			path = filepath.Join(dir, path)
		}
		m := scene.NewMaterial(base, RSMShader)
		m.SetTexture("_MainTex", scene.NewTexture(base, path))
		m.SetFloat("_Alpha", rsm.Alpha)
		mats[i] = m
	}
	return mats
}

func (n *RSMNode) object(materials []*scene.MaterialAsset) (*scene.Object, error) {
	obj := scene.NewObject(n.Name)

	t := scene.IdentityTransform()
	t.Translation = mgl32.Vec3(n.Position)
	t.Scale = mgl32.Vec3(n.Scale)
	if axis := mgl32.Vec3(n.RotAxis); axis.Len() > 0 && n.RotAngle != 0 {
		t.Rotation = mgl32.QuatRotate(n.RotAngle, axis.Normalize())
	}
	obj.SetTransform(t)

	if len(n.Faces) == 0 {
		return obj, nil
	}
	mesh, err := n.mesh()
	if err != nil {
		return nil, err
	}
	r := &scene.Renderer{Mesh: mesh}
	for s := 0; s < mesh.SubmeshCount(); s++ {
		var m scene.Material
		if s < len(n.TextureIDs) {
			if id := n.TextureIDs[s]; id >= 0 && int(id) < len(materials) {
				m = materials[id]
			}
		}
		r.Materials = append(r.Materials, m)
	}
	obj.SetRenderer(r)
	return obj, nil
}

// mesh bakes the node matrix and offset into the vertices. A vertex is emitted for
// every distinct (vertex, texture coordinate) pair used by the faces.
func (n *RSMNode) mesh() (*scene.MeshAsset, error) {
	basis := mgl32.Mat3(n.Matrix)
	offset := mgl32.Vec3(n.Offset)

	var s scene.MeshStreams
	s.Submeshes = make([][]uint32, max(1, len(n.TextureIDs)))

	type corner struct{ v, tc uint16 }
	index := make(map[corner]uint32)
	vertex := func(c corner) (uint32, error) {
		if i, ok := index[c]; ok {
			return i, nil
		}
		if int(c.v) >= len(n.Vertices) {
			return 0, fmt.Errorf("%w: vertex %d of %d", ErrInvalidRSMFace, c.v, len(n.Vertices))
		}
		if int(c.tc) >= len(n.TexCoords) {
			return 0, fmt.Errorf("%w: texture coordinate %d of %d", ErrInvalidRSMFace, c.tc, len(n.TexCoords))
		}
		tc := n.TexCoords[c.tc]
		i := uint32(len(s.Positions))
		s.Positions = append(s.Positions, basis.Mul3x1(mgl32.Vec3(n.Vertices[c.v])).Add(offset))
		s.UV0 = append(s.UV0, mgl32.Vec2{tc.U, tc.V})
		s.Colors = append(s.Colors, mgl32.Vec4{
			float32(tc.Color[0]) / 255,
			float32(tc.Color[1]) / 255,
			float32(tc.Color[2]) / 255,
			float32(tc.Color[3]) / 255,
		})
		index[c] = i
		return i, nil
	}

	for fi, f := range n.Faces {
		var tri [3]uint32
		for k := range tri {
			i, err := vertex(corner{f.VertexIDs[k], f.TexCoordIDs[k]})
			if err != nil {
				return nil, fmt.Errorf("face %d: %w", fi, err)
			}
			tri[k] = i
		}
		slot := int(f.TextureID)
		if slot >= len(s.Submeshes) {
			slot = 0
		}
		s.Submeshes[slot] = append(s.Submeshes[slot], tri[0], tri[1], tri[2])
		if f.TwoSide != 0 {
			s.Submeshes[slot] = append(s.Submeshes[slot], tri[0], tri[2], tri[1])
		}
	}
	return scene.NewMesh(n.Name, s), nil
}

// clip collects the keyframes of every node. Frames are milliseconds.
func (rsm *RSM) clip(root *scene.Object, objects []*scene.Object) *scene.AnimationClip {
	clip := &scene.AnimationClip{Name: RSMClipName}
	for i := range rsm.Nodes {
		n := &rsm.Nodes[i]
		path, ok := scene.PathTo(root, objects[i])
		if !ok {
			continue
		}
		for c := 0; c < 3 && len(n.PosKeys) > 0; c++ {
			clip.Curves = append(clip.Curves, keyCurve(path, scene.TargetOf(scene.GroupPosition, c), n.PosKeys,
				func(k RSMPosKeyframe) (int32, float32) { return k.Frame, k.Position[c] }))
		}
		for c := 0; c < 4 && len(n.RotKeys) > 0; c++ {
			clip.Curves = append(clip.Curves, keyCurve(path, scene.TargetOf(scene.GroupRotation, c), n.RotKeys,
				func(k RSMRotKeyframe) (int32, float32) { return k.Frame, k.Quaternion[c] }))
		}
		for c := 0; c < 3 && len(n.ScaleKeys) > 0; c++ {
			clip.Curves = append(clip.Curves, keyCurve(path, scene.TargetOf(scene.GroupScale, c), n.ScaleKeys,
				func(k RSMScaleKeyframe) (int32, float32) { return k.Frame, k.Scale[c] }))
		}
	}
	if len(clip.Curves) == 0 {
		return nil
	}
	return clip
}

func keyCurve[K any](path string, target scene.Target, keys []K, sample func(K) (int32, float32)) scene.Curve {
	curve := scene.Curve{Path: path, Target: target, Keys: make([]scene.Keyframe, len(keys))}
	for i, k := range keys {
		frame, v := sample(k)
		curve.Keys[i] = scene.Keyframe{Time: float32(frame) / 1000, Value: v}
	}
	curve.SetLinearTangents()
	return curve
}
