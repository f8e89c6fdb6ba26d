package gltf

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// exportSkins resolves the joints of every skinned node. A skin whose bones are not all
// part of the exported tree is dropped and the node loses its skin reference.
func (p *exportPass) exportSkins() {
	conv := p.e.convention
	for _, ps := range p.skins {
		r := ps.renderer
		node := &p.nodes[ps.node]

		joints := make([]int, 0, len(r.Bones))
		resolved := true
		for b, bone := range r.Bones {
			if bone == nil {
				resolved = false
				p.warn(fmt.Errorf("node %q: bone %d is nil, skin dropped", node.Name, b))
				break
			}
			j, ok := p.nodeIndex[bone.ID()]
			if !ok {
				resolved = false
				p.warn(fmt.Errorf("node %q: bone %q is outside the exported tree, skin dropped",
					node.Name, bone.Name()))
				break
			}
			joints = append(joints, j)
		}
		if !resolved {
			continue
		}

		poses := r.Mesh.BindPoses()
		ibm := make([]mgl32.Mat4, len(joints))
		for j := range ibm {
			if j < len(poses) {
				ibm[j] = conv.matrix(poses[j])
			} else {
				ibm[j] = mgl32.Ident4()
			}
		}

		skin := Skin{
			Name:                node.Name,
			Joints:              joints,
			InverseBindMatrices: ptr(p.registry.Matrices(ibm)),
		}
		if r.RootBone != nil {
			if root, ok := p.nodeIndex[r.RootBone.ID()]; ok {
				skin.Skeleton = ptr(root)
			}
		}
		p.doc.Skins = append(p.doc.Skins, skin)
		node.Skin = ptr(len(p.doc.Skins) - 1)
	}
}
