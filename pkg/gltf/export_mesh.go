package gltf

import (
	"fmt"
	"maps"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/Faultbox/midgard-gltf/pkg/scene"
)

// maxIndexedVertices is the number of vertices addressable with uint16 indices.
const maxIndexedVertices = 1 << 16

// exportMesh packs the vertex streams of m once and emits one primitive per submesh.
// Every primitive shares the attribute and morph target accessors of the first one.
func (p *exportPass) exportMesh(mi int, m scene.Mesh) (Mesh, error) {
	conv := p.e.convention
	reg := p.registry
	log := p.e.log.With(zap.String("mesh", m.Name()))

	positions := m.Positions()
	n := len(positions)

	if err := checkIndexRange(m, n); err != nil {
		return Mesh{}, err
	}

	attrs := make(map[string]int)
	if n > 0 {
		attrs[AttrPosition] = reg.Positions(conv.points(positions))
	}

	// Streams whose length disagrees with the vertex count would break the
	// per-primitive count invariant, so they are skipped.
	usable := func(attr string, l int) bool {
		if l == 0 {
			return false
		}
		if l != n {
			log.Warn("skipping stream with wrong length",
				zap.String("attribute", attr), zap.Int("len", l), zap.Int("vertices", n))
			return false
		}
		return true
	}

	if v := m.Normals(); usable(AttrNormal, len(v)) {
		attrs[AttrNormal] = reg.Vec3(conv.points(v), UsageVertex)
	}
	if v := m.Tangents(); usable(AttrTangent, len(v)) {
		attrs[AttrTangent] = reg.Vec4(conv.tangents(v), UsageVertex)
	}
	if v := m.UV(0); usable(AttrTexcoord0, len(v)) {
		attrs[AttrTexcoord0] = reg.Vec2(conv.uvs(v), UsageVertex)
	}
	if v := m.UV(1); usable(AttrTexcoord1, len(v)) {
		attrs[AttrTexcoord1] = reg.Vec2(conv.uvs(v), UsageVertex)
	}
	if v := m.Colors(); usable(AttrColor0, len(v)) {
		attrs[AttrColor0] = reg.Vec4(v, UsageVertex)
	}
	if bw := m.BoneWeights(); hasWeights(bw) && usable(AttrJoints0, len(bw)) {
		joints := make([][4]uint16, len(bw))
		weights := make([]mgl32.Vec4, len(bw))
		for i, w := range bw {
			joints[i] = w.Joints
			weights[i] = mgl32.Vec4(w.Weights)
		}
		attrs[AttrJoints0] = reg.Joints(joints)
		attrs[AttrWeights0] = reg.Vec4(weights, UsageVertex)
	}

	targets, names := p.exportMorphTargets(m, n)
	p.targetNames[mi] = names

	gm := Mesh{Name: m.Name()}
	if len(names) > 0 {
		gm.Weights = make([]float32, len(names))
		gm.Extras = &MeshExtras{TargetNames: names}
	}

	mats := p.meshMaterials[mi]
	submeshes := m.SubmeshCount()
	if submeshes == 0 {
		// Unindexed point soup: a single primitive drawing the vertices in order.
		gm.Primitives = []Primitive{{Attributes: attrs, Mode: ptr(ModeTriangles), Targets: targets}}
		return gm, nil
	}

	for s := 0; s < submeshes; s++ {
		prim := Primitive{
			Attributes: maps.Clone(attrs),
			Mode:       ptr(ModeTriangles),
			Targets:    targets,
		}
		if tris := m.Triangles(s); len(tris) > 0 {
			tris = conv.triangles(tris)
			idx := make([]uint16, len(tris))
			for i, v := range tris {
				idx[i] = uint16(v)
			}
			prim.Indices = ptr(reg.Indices(idx))
		} else {
			prim.Extras = &PrimitiveExtras{Empty: true}
		}
		if s < len(mats) && mats[s] >= 0 {
			prim.Material = ptr(mats[s])
		}
		gm.Primitives = append(gm.Primitives, prim)
	}
	return gm, nil
}

func checkIndexRange(m scene.Mesh, vertices int) error {
	for s := 0; s < m.SubmeshCount(); s++ {
		tris := m.Triangles(s)
		if len(tris) == 0 {
			continue
		}
		if vertices > maxIndexedVertices {
			return fmt.Errorf("%d vertices: %w", vertices, ErrIndexOverflow)
		}
		for _, v := range tris {
			if v >= maxIndexedVertices {
				return fmt.Errorf("submesh %d index %d: %w", s, v, ErrIndexOverflow)
			}
		}
	}
	return nil
}

func hasWeights(bw []scene.BoneWeight) bool {
	for _, w := range bw {
		if !w.IsZero() {
			return true
		}
	}
	return false
}

// exportMorphTargets collapses every blend shape into one target whose deltas are the
// sum of its frames scaled by frame weight / 100.
func (p *exportPass) exportMorphTargets(m scene.Mesh, n int) ([]map[string]int, []string) {
	shapes := m.BlendShapes()
	if len(shapes) == 0 || n == 0 {
		return nil, nil
	}
	conv := p.e.convention

	var targets []map[string]int
	var names []string
	for _, bs := range shapes {
		dp := make([]mgl32.Vec3, n)
		var dn, dt []mgl32.Vec3
		for _, f := range bs.Frames {
			w := f.Weight / 100
			accumulate(dp, f.DeltaPositions, w)
			if len(f.DeltaNormals) > 0 {
				if dn == nil {
					dn = make([]mgl32.Vec3, n)
				}
				accumulate(dn, f.DeltaNormals, w)
			}
			if len(f.DeltaTangents) > 0 {
				if dt == nil {
					dt = make([]mgl32.Vec3, n)
				}
				accumulate(dt, f.DeltaTangents, w)
			}
		}

		target := map[string]int{AttrPosition: p.registry.Positions(conv.points(dp))}
		if dn != nil {
			target[AttrNormal] = p.registry.Vec3(conv.points(dn), UsageVertex)
		}
		if dt != nil {
			target[AttrTangent] = p.registry.Vec3(conv.points(dt), UsageVertex)
		}
		targets = append(targets, target)
		names = append(names, bs.Name)
	}
	return targets, names
}

func accumulate(dst, deltas []mgl32.Vec3, w float32) {
	for i := 0; i < len(dst) && i < len(deltas); i++ {
		dst[i] = dst[i].Add(deltas[i].Mul(w))
	}
}
