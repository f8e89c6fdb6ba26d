package gltf

import (
	"go.uber.org/zap"

	"github.com/Faultbox/midgard-gltf/pkg/scene"
)

// Cubic spline outputs hold three values per key and component.
const (
	slotIn = iota
	slotValue
	slotOut
	slotCount
)

// tangentStep is the half width used to differentiate resampled curves.
const tangentStep = 1e-3

var trsGroups = []struct {
	group scene.TargetGroup
	path  string
}{
	{scene.GroupPosition, PathTranslation},
	{scene.GroupRotation, PathRotation},
	{scene.GroupScale, PathScale},
}

// exportAnimations emits one glTF animation per queued clip. Curves whose path does
// not name a node of the exported tree are dropped.
func (p *exportPass) exportAnimations() {
	for _, pc := range p.clips {
		anim := Animation{Name: pc.clip.Name}
		for _, path := range pc.clip.Paths() {
			target := scene.Find(pc.owner, path)
			if target == nil {
				p.e.log.Debug("dropping curves with unresolved path",
					zap.String("clip", pc.clip.Name), zap.String("path", path))
				continue
			}
			ni, ok := p.nodeIndex[target.ID()]
			if !ok {
				p.e.log.Debug("dropping curves for node outside the export",
					zap.String("clip", pc.clip.Name), zap.String("path", path))
				continue
			}
			for _, g := range trsGroups {
				p.exportTRSChannel(&anim, pc.clip, path, g.group, g.path, ni, target)
			}
			p.exportWeightsChannel(&anim, pc.clip, path, ni, target)
		}
		if len(anim.Channels) > 0 {
			p.doc.Animations = append(p.doc.Animations, anim)
		}
	}
}

func (p *exportPass) addChannel(anim *Animation, node int, path string, times, values []float32, shape string) {
	input := p.registry.Times(times)
	off, n := p.packer.AppendFloats(values)
	output := p.registry.Register(region(off, n, UsageData, 4), Layout{
		ComponentType: ComponentFloat,
		Type:          shape,
		Count:         len(values) / componentCount(shape),
	})
	anim.Samplers = append(anim.Samplers, AnimationSampler{
		Input:         input,
		Output:        output,
		Interpolation: InterpolationCubicSpline,
	})
	anim.Channels = append(anim.Channels, AnimationChannel{
		Sampler: len(anim.Samplers) - 1,
		Target:  ChannelTarget{Node: ptr(node), Path: path},
	})
}

// exportTRSChannel samples the component curves of one vector at the key times of the
// first animated component. A component without a curve holds the node's rest value.
func (p *exportPass) exportTRSChannel(anim *Animation, clip *scene.AnimationClip, path string,
	g scene.TargetGroup, channel string, node int, target scene.Node) {
	size := g.Size()
	curves := make([]*scene.Curve, size)
	var ref *scene.Curve
	for c := range curves {
		curves[c] = clip.Curve(path, scene.TargetOf(g, c))
		if ref == nil && curves[c] != nil && len(curves[c].Keys) > 0 {
			ref = curves[c]
		}
	}
	if ref == nil {
		return
	}
	keys := ref.Keys
	rest := restValues(target.LocalTransform(), g)
	conv := p.e.convention

	times := make([]float32, len(keys))
	values := make([]float32, 0, len(keys)*slotCount*size)
	for k, key := range keys {
		times[k] = key.Time
		for slot := 0; slot < slotCount; slot++ {
			for c := 0; c < size; c++ {
				v := sampleSlot(curves[c], k, key.Time, slot, rest[c])
				values = append(values, v*conv.componentSign(channel, c))
			}
		}
	}
	shape := TypeVec3
	if size == 4 {
		shape = TypeVec4
	}
	p.addChannel(anim, node, channel, times, values, shape)
}

// exportWeightsChannel writes one weight per morph target of the node's mesh for
// every key, in target order. Targets without a curve stay at 0.
func (p *exportPass) exportWeightsChannel(anim *Animation, clip *scene.AnimationClip, path string,
	node int, target scene.Node) {
	var morph []*scene.Curve
	for i := range clip.Curves {
		c := &clip.Curves[i]
		if c.Path == path && c.Target.Group() == scene.GroupMorph {
			morph = append(morph, c)
		}
	}
	if len(morph) == 0 {
		return
	}
	names := p.nodeTargetNames(node)
	if len(names) == 0 {
		p.e.log.Debug("dropping weight curves on node without morph targets",
			zap.String("clip", clip.Name), zap.String("path", path))
		return
	}

	curves := make([]*scene.Curve, len(names))
	var ref *scene.Curve
	for t, name := range names {
		curves[t] = clip.Curve(path, scene.MorphTarget(name))
		if ref == nil && curves[t] != nil && len(curves[t].Keys) > 0 {
			ref = curves[t]
		}
	}
	if ref == nil {
		return
	}

	times := make([]float32, len(ref.Keys))
	values := make([]float32, 0, len(ref.Keys)*slotCount*len(names))
	for k, key := range ref.Keys {
		times[k] = key.Time
		for slot := 0; slot < slotCount; slot++ {
			for _, c := range curves {
				values = append(values, sampleSlot(c, k, key.Time, slot, 0)/100)
			}
		}
	}
	p.addChannel(anim, node, PathWeights, times, values, TypeScalar)
}

func (p *exportPass) nodeTargetNames(node int) []string {
	mi := p.nodes[node].Mesh
	if mi == nil {
		return nil
	}
	return p.targetNames[*mi]
}

// sampleSlot returns the in-tangent, value or out-tangent of curve c at key k (time t).
// Curves keyed at other times are evaluated at t.
func sampleSlot(c *scene.Curve, k int, t float32, slot int, rest float32) float32 {
	if c == nil || len(c.Keys) == 0 {
		if slot == slotValue {
			return rest
		}
		return 0
	}
	if k < len(c.Keys) && c.Keys[k].Time == t {
		key := c.Keys[k]
		switch slot {
		case slotIn:
			return key.InTangent
		case slotOut:
			return key.OutTangent
		}
		return key.Value
	}
	if slot == slotValue {
		return c.Evaluate(t)
	}
	return (c.Evaluate(t+tangentStep) - c.Evaluate(t-tangentStep)) / (2 * tangentStep)
}

func restValues(t scene.Transform, g scene.TargetGroup) []float32 {
	switch g {
	case scene.GroupPosition:
		return t.Translation[:]
	case scene.GroupRotation:
		return []float32{t.Rotation.V[0], t.Rotation.V[1], t.Rotation.V[2], t.Rotation.W}
	case scene.GroupScale:
		return t.Scale[:]
	}
	return nil
}
