package gltf

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/midgard-gltf/pkg/scene"
)

// importAnimations turns every glTF animation into one clip on the imported root.
// Channel targets become paths relative to the root; targets outside the imported
// scene are skipped.
func (p *importPass) importAnimations() error {
	for ai, a := range p.doc.Animations {
		name := a.Name
		if name == "" {
			name = fmt.Sprintf("animation_%d", ai)
		}
		clip := &scene.AnimationClip{Name: name}
		for ci, ch := range a.Channels {
			curves, err := p.importChannel(ai, ch, a.Samplers)
			if err != nil {
				return fmt.Errorf("animation %d channel %d: %w", ai, ci, err)
			}
			clip.Curves = append(clip.Curves, curves...)
		}
		if len(clip.Curves) > 0 {
			p.res.Root.AddAnimation(clip)
		}
	}
	return nil
}

func (p *importPass) importChannel(ai int, ch AnimationChannel, samplers []AnimationSampler) ([]scene.Curve, error) {
	if ch.Sampler < 0 || ch.Sampler >= len(samplers) {
		return nil, missing("sampler", ch.Sampler)
	}
	if ch.Target.Node == nil {
		return nil, nil
	}
	ni := *ch.Target.Node
	if ni < 0 || ni >= len(p.doc.Nodes) {
		return nil, missing("node", ni)
	}
	obj := p.nodeObject(ni)
	if obj == nil {
		p.im.log.Debug("skipping channel on node outside the scene", zap.Int("animation", ai), zap.Int("node", ni))
		return nil, nil
	}
	path, ok := scene.PathTo(p.res.Root, obj)
	if !ok {
		return nil, nil
	}

	s := samplers[ch.Sampler]
	times, err := p.file.Scalars(s.Input)
	if err != nil {
		return nil, fmt.Errorf("input: %w", err)
	}
	values, err := p.file.Flat(s.Output)
	if err != nil {
		return nil, fmt.Errorf("output: %w", err)
	}
	if len(times) == 0 {
		return nil, nil
	}

	cubic := s.Interpolation == InterpolationCubicSpline
	slots := 1
	if cubic {
		slots = slotCount
	}

	var targets []scene.Target
	var scale float32 = 1
	switch ch.Target.Path {
	case PathTranslation:
		targets = groupTargets(scene.GroupPosition)
	case PathRotation:
		targets = groupTargets(scene.GroupRotation)
	case PathScale:
		targets = groupTargets(scene.GroupScale)
	case PathWeights:
		scale = 100
		var names []string
		if r := obj.Renderer(); r != nil && r.Mesh != nil {
			for _, bs := range r.Mesh.BlendShapes() {
				names = append(names, bs.Name)
			}
		}
		width := len(values) / (len(times) * slots)
		for t := 0; t < width; t++ {
			name := fmt.Sprintf("target_%d", t)
			if t < len(names) {
				name = names[t]
			}
			targets = append(targets, scene.MorphTarget(name))
		}
	default:
		p.im.log.Debug("skipping unknown channel path", zap.String("path", ch.Target.Path))
		return nil, nil
	}

	size := len(targets)
	if size == 0 || len(values) < len(times)*slots*size {
		return nil, fmt.Errorf("output holds %d values for %d keys of %d components: %w",
			len(values), len(times), size, ErrUnsupportedAccessor)
	}

	conv := p.im.convention
	curves := make([]scene.Curve, size)
	for c := range curves {
		sign := conv.componentSign(ch.Target.Path, c) * scale
		keys := make([]scene.Keyframe, len(times))
		for k, t := range times {
			at := func(slot int) float32 {
				return values[(k*slots+slot)*size+c] * sign
			}
			keys[k].Time = t
			if cubic {
				keys[k].InTangent = at(slotIn)
				keys[k].Value = at(slotValue)
				keys[k].OutTangent = at(slotOut)
			} else {
				keys[k].Value = at(0)
			}
		}
		curves[c] = scene.Curve{Path: path, Target: targets[c], Keys: keys}
		if s.Interpolation == "" || s.Interpolation == InterpolationLinear {
			curves[c].SetLinearTangents()
		}
	}
	return curves, nil
}

// nodeObject returns the object built for node i, or nil when i is not part of the
// imported scene.
func (p *importPass) nodeObject(i int) *scene.Object {
	if i < 0 || i >= len(p.objects) || !p.reached[i] {
		return nil
	}
	return p.objects[i]
}

func groupTargets(g scene.TargetGroup) []scene.Target {
	out := make([]scene.Target, g.Size())
	for c := range out {
		out[c] = scene.TargetOf(g, c)
	}
	return out
}
