package scene

import (
	"fmt"
	"sort"
	"strings"
)

// TargetKind identifies the animated scalar a curve drives.
type TargetKind uint8

const (
	PositionX TargetKind = iota
	PositionY
	PositionZ
	RotationX
	RotationY
	RotationZ
	RotationW
	ScaleX
	ScaleY
	ScaleZ
	MorphWeight
)

// TargetGroup is the vector a TargetKind belongs to.
type TargetGroup uint8

const (
	GroupPosition TargetGroup = iota
	GroupRotation
	GroupScale
	GroupMorph
)

// Size returns the number of components of the group, 0 for morph weights.
func (g TargetGroup) Size() int {
	switch g {
	case GroupPosition, GroupScale:
		return 3
	case GroupRotation:
		return 4
	}
	return 0
}

var groupPrefixes = map[string]TargetGroup{
	"m_LocalPosition": GroupPosition,
	"localPosition":   GroupPosition,
	"m_LocalRotation": GroupRotation,
	"localRotation":   GroupRotation,
	"m_LocalScale":    GroupScale,
	"localScale":      GroupScale,
}

var groupNames = [...]string{"m_LocalPosition", "m_LocalRotation", "m_LocalScale"}

const blendShapePrefix = "blendShape."

// Target is an animated property decided once when a curve is ingested.
// BlendShape is only set for MorphWeight.
type Target struct {
	Kind       TargetKind
	BlendShape string
}

// Group returns the vector the target belongs to.
func (t Target) Group() TargetGroup {
	switch {
	case t.Kind <= PositionZ:
		return GroupPosition
	case t.Kind <= RotationW:
		return GroupRotation
	case t.Kind <= ScaleZ:
		return GroupScale
	}
	return GroupMorph
}

// Component returns the index of the target inside its group.
func (t Target) Component() int {
	switch t.Group() {
	case GroupPosition:
		return int(t.Kind - PositionX)
	case GroupRotation:
		return int(t.Kind - RotationX)
	case GroupScale:
		return int(t.Kind - ScaleX)
	}
	return 0
}

// TargetOf returns the target for component c of group g.
func TargetOf(g TargetGroup, c int) Target {
	switch g {
	case GroupPosition:
		return Target{Kind: PositionX + TargetKind(c)}
	case GroupRotation:
		return Target{Kind: RotationX + TargetKind(c)}
	case GroupScale:
		return Target{Kind: ScaleX + TargetKind(c)}
	}
	return Target{Kind: MorphWeight}
}

// MorphTarget returns the weight target of a blend shape.
func MorphTarget(blendShape string) Target {
	return Target{Kind: MorphWeight, BlendShape: blendShape}
}

// String returns the canonical property name, e.g. "m_LocalPosition.x".
func (t Target) String() string {
	g := t.Group()
	if g == GroupMorph {
		return blendShapePrefix + t.BlendShape
	}
	return groupNames[g] + "." + string("xyzw"[t.Component()])
}

// ParseTarget maps a property name such as "m_LocalRotation.w" or "blendShape.smile"
// to a Target.
func ParseTarget(name string) (Target, error) {
	if strings.HasPrefix(name, blendShapePrefix) {
		shape := strings.TrimPrefix(name, blendShapePrefix)
		if shape == "" {
			return Target{}, fmt.Errorf("empty blend shape name in %q", name)
		}
		return MorphTarget(shape), nil
	}
	prefix, comp, ok := strings.Cut(name, ".")
	if !ok || len(comp) != 1 {
		return Target{}, fmt.Errorf("unknown animated property %q", name)
	}
	g, ok := groupPrefixes[prefix]
	if !ok {
		return Target{}, fmt.Errorf("unknown animated property %q", name)
	}
	c := strings.IndexByte("xyzw", comp[0])
	if c < 0 || c >= g.Size() {
		return Target{}, fmt.Errorf("unknown component %q of %s", comp, prefix)
	}
	return TargetOf(g, c), nil
}

// Keyframe is a Hermite key. Tangents are slopes in value units per second.
type Keyframe struct {
	Time       float32
	Value      float32
	InTangent  float32
	OutTangent float32
}

// Curve animates one scalar of the node at Path, relative to the clip owner.
type Curve struct {
	Path   string
	Target Target
	Keys   []Keyframe
}

// Evaluate samples the curve at t with cubic Hermite interpolation.
// Times outside the key range clamp to the first or last value.
func (c *Curve) Evaluate(t float32) float32 {
	keys := c.Keys
	switch {
	case len(keys) == 0:
		return 0
	case t <= keys[0].Time:
		return keys[0].Value
	case t >= keys[len(keys)-1].Time:
		return keys[len(keys)-1].Value
	}
	i := sort.Search(len(keys), func(i int) bool { return keys[i].Time > t }) - 1
	k0, k1 := keys[i], keys[i+1]
	dt := k1.Time - k0.Time
	if dt <= 0 {
		return k1.Value
	}
	s := (t - k0.Time) / dt
	s2 := s * s
	s3 := s2 * s
	h00 := 2*s3 - 3*s2 + 1
	h10 := s3 - 2*s2 + s
	h01 := -2*s3 + 3*s2
	h11 := s3 - s2
	return h00*k0.Value + h10*dt*k0.OutTangent + h01*k1.Value + h11*dt*k1.InTangent
}

// SetLinearTangents sets every tangent to the secant slope of its segment so the
// curve plays back as straight lines between keys.
func (c *Curve) SetLinearTangents() {
	n := len(c.Keys)
	for i := range c.Keys {
		if i > 0 {
			c.Keys[i].InTangent = slope(c.Keys[i-1], c.Keys[i])
		} else {
			c.Keys[i].InTangent = 0
		}
		if i < n-1 {
			c.Keys[i].OutTangent = slope(c.Keys[i], c.Keys[i+1])
		} else {
			c.Keys[i].OutTangent = 0
		}
	}
}

func slope(a, b Keyframe) float32 {
	dt := b.Time - a.Time
	if dt <= 0 {
		return 0
	}
	return (b.Value - a.Value) / dt
}

// AnimationClip is a named set of curves played by the node that owns it.
type AnimationClip struct {
	Name   string
	Curves []Curve
}

// Length returns the time of the last key over all curves.
func (a *AnimationClip) Length() float32 {
	var end float32
	for _, c := range a.Curves {
		if n := len(c.Keys); n > 0 && c.Keys[n-1].Time > end {
			end = c.Keys[n-1].Time
		}
	}
	return end
}

// Paths returns the distinct curve paths in lexicographic order.
func (a *AnimationClip) Paths() []string {
	seen := make(map[string]bool)
	var paths []string
	for _, c := range a.Curves {
		if !seen[c.Path] {
			seen[c.Path] = true
			paths = append(paths, c.Path)
		}
	}
	sort.Strings(paths)
	return paths
}

// Curve returns the curve for target at path, or nil.
func (a *AnimationClip) Curve(path string, target Target) *Curve {
	for i := range a.Curves {
		if a.Curves[i].Path == path && a.Curves[i].Target == target {
			return &a.Curves[i]
		}
	}
	return nil
}
