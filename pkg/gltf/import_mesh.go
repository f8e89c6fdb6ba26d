package gltf

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/midgard-gltf/pkg/scene"
)

func (p *importPass) importMeshes() error {
	for i := range p.doc.Meshes {
		m, mats, err := p.importMesh(i)
		if err != nil {
			return fmt.Errorf("mesh %d: %w", i, err)
		}
		if r := p.im.registrar; r != nil {
			if err := r.RegisterMesh(m); err != nil {
				return fmt.Errorf("registering mesh %d: %w", i, err)
			}
		}
		p.res.Meshes = append(p.res.Meshes, m)
		p.primMaterials = append(p.primMaterials, mats)
	}
	return nil
}

// meshBuilder concatenates primitive vertex sets and keeps every non-empty stream
// as long as the position stream.
type meshBuilder struct {
	s     scene.MeshStreams
	names []string
}

// importMesh decodes every primitive of mesh i. Primitives pointing at an already
// decoded POSITION accessor, or with no attributes at all, share that vertex set.
// Others are appended and their indices rebased.
func (p *importPass) importMesh(i int) (*scene.MeshAsset, []int, error) {
	gm := p.doc.Meshes[i]
	conv := p.im.convention
	b := &meshBuilder{}
	if gm.Extras != nil {
		b.names = gm.Extras.TargetNames
	}

	bases := make(map[int]int) // POSITION accessor -> vertex offset
	mats := make([]int, len(gm.Primitives))
	var first map[string]int

	for pi, prim := range gm.Primitives {
		attrs := prim.Attributes
		if len(attrs) == 0 && first != nil {
			attrs = first
		}
		if first == nil && len(attrs) > 0 {
			first = attrs
		}

		base := len(b.s.Positions)
		count := 0
		pos, hasPos := attrs[AttrPosition]
		if shared, ok := bases[pos]; hasPos && ok {
			base = shared
			count = -1
		} else if hasPos {
			n, err := p.appendVertices(b, attrs, prim.Targets)
			if err != nil {
				return nil, nil, fmt.Errorf("primitive %d: %w", pi, err)
			}
			bases[pos] = base
			count = n
		}

		var tris []uint32
		empty := prim.Extras != nil && prim.Extras.Empty
		if empty {
			tris = []uint32{}
		} else if prim.Indices != nil {
			idx, err := p.file.Indices(*prim.Indices)
			if err != nil {
				return nil, nil, fmt.Errorf("primitive %d indices: %w", pi, err)
			}
			tris = make([]uint32, len(idx))
			for k, v := range idx {
				tris[k] = v + uint32(base)
			}
		} else if count > 0 {
			tris = make([]uint32, count)
			for k := range tris {
				tris[k] = uint32(base + k)
			}
		}
		b.s.Submeshes = append(b.s.Submeshes, conv.triangles(tris))

		mats[pi] = -1
		if prim.Material != nil {
			if *prim.Material < 0 || *prim.Material >= len(p.doc.Materials) {
				return nil, nil, fmt.Errorf("primitive %d: %w", pi, missing("material", *prim.Material))
			}
			mats[pi] = *prim.Material
		}
	}
	b.finish()

	name := gm.Name
	if name == "" {
		name = fmt.Sprintf("mesh_%d", i)
	}
	return scene.NewMesh(name, b.s), mats, nil
}

// appendVertices decodes one attribute set plus its morph targets and returns the
// number of vertices added.
func (p *importPass) appendVertices(b *meshBuilder, attrs map[string]int, targets []map[string]int) (int, error) {
	conv := p.im.convention
	f := p.file
	base := len(b.s.Positions)

	positions, err := f.Vec3s(attrs[AttrPosition])
	if err != nil {
		return 0, fmt.Errorf("POSITION: %w", err)
	}
	n := len(positions)
	b.s.Positions = append(b.s.Positions, conv.points(positions)...)

	if a, ok := attrs[AttrNormal]; ok {
		v, err := f.Vec3s(a)
		if err != nil {
			return 0, fmt.Errorf("NORMAL: %w", err)
		}
		b.s.Normals = appendStream(b.s.Normals, conv.points(v), base)
	}
	if a, ok := attrs[AttrTangent]; ok {
		v, err := f.Vec4s(a)
		if err != nil {
			return 0, fmt.Errorf("TANGENT: %w", err)
		}
		b.s.Tangents = appendStream(b.s.Tangents, conv.tangents(v), base)
	}
	if a, ok := attrs[AttrTexcoord0]; ok {
		v, err := f.Vec2s(a)
		if err != nil {
			return 0, fmt.Errorf("TEXCOORD_0: %w", err)
		}
		b.s.UV0 = appendStream(b.s.UV0, conv.uvs(v), base)
	}
	if a, ok := attrs[AttrTexcoord1]; ok {
		v, err := f.Vec2s(a)
		if err != nil {
			return 0, fmt.Errorf("TEXCOORD_1: %w", err)
		}
		b.s.UV1 = appendStream(b.s.UV1, conv.uvs(v), base)
	}
	if a, ok := attrs[AttrColor0]; ok {
		v, err := f.Vec4s(a)
		if err != nil {
			return 0, fmt.Errorf("COLOR_0: %w", err)
		}
		b.s.Colors = appendStream(b.s.Colors, v, base)
	}
	if ja, ok := attrs[AttrJoints0]; ok {
		wa, ok := attrs[AttrWeights0]
		if !ok {
			return 0, fmt.Errorf("JOINTS_0 without WEIGHTS_0: %w", ErrUnsupportedAccessor)
		}
		joints, err := f.Joints(ja)
		if err != nil {
			return 0, fmt.Errorf("JOINTS_0: %w", err)
		}
		weights, err := f.Vec4s(wa)
		if err != nil {
			return 0, fmt.Errorf("WEIGHTS_0: %w", err)
		}
		bw := make([]scene.BoneWeight, min(len(joints), len(weights)))
		for k := range bw {
			bw[k] = scene.BoneWeight{Joints: joints[k], Weights: [4]float32(weights[k])}
		}
		b.s.BoneWeights = appendStream(b.s.BoneWeights, bw, base)
	}

	for t, target := range targets {
		if err := p.appendTarget(b, t, target, base); err != nil {
			return 0, fmt.Errorf("target %d: %w", t, err)
		}
	}
	return n, nil
}

// appendTarget stores morph target t as a single full-weight blend shape frame.
func (p *importPass) appendTarget(b *meshBuilder, t int, target map[string]int, base int) error {
	conv := p.im.convention
	for len(b.s.BlendShapes) <= t {
		k := len(b.s.BlendShapes)
		name := fmt.Sprintf("target_%d", k)
		if k < len(b.names) && b.names[k] != "" {
			name = b.names[k]
		}
		b.s.BlendShapes = append(b.s.BlendShapes, scene.BlendShape{
			Name:   name,
			Frames: []scene.BlendShapeFrame{{Weight: 100}},
		})
	}
	frame := &b.s.BlendShapes[t].Frames[0]

	read := func(attr string, dst []mgl32.Vec3) ([]mgl32.Vec3, error) {
		a, ok := target[attr]
		if !ok {
			return dst, nil
		}
		v, err := p.file.Vec3s(a)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", attr, err)
		}
		return appendStream(dst, conv.points(v), base), nil
	}
	var err error
	if frame.DeltaPositions, err = read(AttrPosition, frame.DeltaPositions); err != nil {
		return err
	}
	if frame.DeltaNormals, err = read(AttrNormal, frame.DeltaNormals); err != nil {
		return err
	}
	frame.DeltaTangents, err = read(AttrTangent, frame.DeltaTangents)
	return err
}

// appendStream zero-fills dst up to base, then appends src.
func appendStream[T any](dst, src []T, base int) []T {
	if len(src) == 0 {
		return dst
	}
	for len(dst) < base {
		var zero T
		dst = append(dst, zero)
	}
	return append(dst, src...)
}

// pad zero-fills a non-empty stream to n elements.
func pad[T any](s []T, n int) []T {
	if len(s) == 0 {
		return s
	}
	for len(s) < n {
		var zero T
		s = append(s, zero)
	}
	return s
}

func (b *meshBuilder) finish() {
	n := len(b.s.Positions)
	b.s.Normals = pad(b.s.Normals, n)
	b.s.Tangents = pad(b.s.Tangents, n)
	b.s.UV0 = pad(b.s.UV0, n)
	b.s.UV1 = pad(b.s.UV1, n)
	b.s.Colors = pad(b.s.Colors, n)
	b.s.BoneWeights = pad(b.s.BoneWeights, n)
	for i := range b.s.BlendShapes {
		f := &b.s.BlendShapes[i].Frames[0]
		f.DeltaPositions = pad(f.DeltaPositions, n)
		f.DeltaNormals = pad(f.DeltaNormals, n)
		f.DeltaTangents = pad(f.DeltaTangents, n)
	}
}
