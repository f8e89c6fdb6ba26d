package scenefile

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/Faultbox/midgard-gltf/pkg/scene"
)

// Save writes the tree under root to path. Texture paths inside the file's directory
// are stored relative to it.
func Save(path string, root scene.Node) error {
	dir := filepath.Dir(path)
	data, err := Encode(root, dir)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Encode renders the tree under root as YAML.
func Encode(root scene.Node, dir string) ([]byte, error) {
	f, err := Describe(root, dir)
	if err != nil {
		return nil, err
	}
	data, err := yaml.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("encoding scene: %w", err)
	}
	return data, nil
}

// describer names every shared resource once, in first-seen order.
type describer struct {
	root  scene.Node
	dir   string
	f     *File
	names map[uuid.UUID]string
	taken map[string]bool
}

// Describe converts the tree under root into a File.
func Describe(root scene.Node, dir string) (*File, error) {
	d := &describer{
		root:  root,
		dir:   dir,
		f:     &File{Name: root.Name()},
		names: make(map[uuid.UUID]string),
		taken: make(map[string]bool),
	}
	od, err := d.object(root)
	if err != nil {
		return nil, err
	}
	d.f.Root = &od
	return d.f, nil
}

// unique returns the file name of the resource with the given id, assigning a fresh
// one derived from name on first use.
func (d *describer) unique(kind string, id uuid.UUID, name string) (string, bool) {
	if n, ok := d.names[id]; ok {
		return n, false
	}
	if name == "" {
		name = kind
	}
	n := name
	for i := 2; d.taken[kind+"/"+n]; i++ {
		n = fmt.Sprintf("%s_%d", name, i)
	}
	d.taken[kind+"/"+n] = true
	d.names[id] = n
	return n, true
}

func (d *describer) object(n scene.Node) (ObjectDoc, error) {
	t := n.LocalTransform()
	od := ObjectDoc{
		Name:        n.Name(),
		Translation: t.Translation[:],
		Rotation:    []float32{t.Rotation.V[0], t.Rotation.V[1], t.Rotation.V[2], t.Rotation.W},
		Scale:       t.Scale[:],
	}

	if r := n.Renderer(); r != nil && r.Mesh != nil {
		od.Mesh = d.mesh(r.Mesh)
		for s := 0; s < max(r.Mesh.SubmeshCount(), len(r.Materials)); s++ {
			m := r.MaterialFor(s)
			if m == nil {
				od.Materials = append(od.Materials, "")
				continue
			}
			od.Materials = append(od.Materials, d.material(m))
		}
		for i, bone := range r.Bones {
			if bone == nil {
				return od, fmt.Errorf("object %q bone %d: %w", n.Name(), i, ErrUnknownBone)
			}
			path, ok := scene.PathTo(d.root, bone)
			if !ok {
				return od, fmt.Errorf("object %q bone %q: %w", n.Name(), bone.Name(), ErrUnknownBone)
			}
			od.Bones = append(od.Bones, path)
		}
		if r.RootBone != nil {
			if path, ok := scene.PathTo(d.root, r.RootBone); ok {
				od.RootBone = &path
			}
		}
	}

	for _, c := range n.Components() {
		od.Components = append(od.Components, ComponentDoc(c))
	}
	for _, clip := range n.Animations() {
		cd := ClipDoc{Name: clip.Name}
		for _, c := range clip.Curves {
			keys := make([][]float32, len(c.Keys))
			for i, k := range c.Keys {
				keys[i] = []float32{k.Time, k.Value, k.InTangent, k.OutTangent}
			}
			cd.Curves = append(cd.Curves, CurveDoc{Path: c.Path, Property: c.Target.String(), Keys: keys})
		}
		od.Animations = append(od.Animations, cd)
	}

	for _, c := range n.Children() {
		child, err := d.object(c)
		if err != nil {
			return od, err
		}
		od.Children = append(od.Children, child)
	}
	return od, nil
}

func (d *describer) mesh(m scene.Mesh) string {
	name, fresh := d.unique("mesh", m.ID(), m.Name())
	if !fresh {
		return name
	}
	md := MeshDoc{
		Name:      name,
		Positions: flat3(m.Positions()),
		Normals:   flat3(m.Normals()),
		UV0:       flat2(m.UV(0)),
		UV1:       flat2(m.UV(1)),
	}
	for _, v := range m.Tangents() {
		md.Tangents = append(md.Tangents, []float32{v[0], v[1], v[2], v[3]})
	}
	for _, v := range m.Colors() {
		md.Colors = append(md.Colors, []float32{v[0], v[1], v[2], v[3]})
	}
	for _, w := range m.BoneWeights() {
		md.BoneWeights = append(md.BoneWeights, BoneWeightDoc{Joints: w.Joints[:], Weights: w.Weights[:]})
	}
	for _, p := range m.BindPoses() {
		md.BindPoses = append(md.BindPoses, p[:])
	}
	for s := 0; s < m.SubmeshCount(); s++ {
		md.Submeshes = append(md.Submeshes, m.Triangles(s))
	}
	for _, bs := range m.BlendShapes() {
		bd := BlendShapeDoc{Name: bs.Name}
		for _, f := range bs.Frames {
			bd.Frames = append(bd.Frames, FrameDoc{
				Weight:    f.Weight,
				Positions: flat3(f.DeltaPositions),
				Normals:   flat3(f.DeltaNormals),
				Tangents:  flat3(f.DeltaTangents),
			})
		}
		md.BlendShapes = append(md.BlendShapes, bd)
	}
	d.f.Meshes = append(d.f.Meshes, md)
	return name
}

func (d *describer) material(m scene.Material) string {
	name, fresh := d.unique("material", m.ID(), m.Name())
	if !fresh {
		return name
	}
	md := MaterialDoc{Name: name, Shader: m.Shader()}
	for _, p := range m.Properties() {
		pd := PropertyDoc{Name: p.Name, Type: p.Kind.String()}
		if p.Kind == scene.PropertyTexture {
			if p.Texture == nil {
				continue
			}
			pd.Texture = d.texture(p.Texture)
		} else {
			pd.Values = p.Values
		}
		md.Properties = append(md.Properties, pd)
	}
	d.f.Materials = append(d.f.Materials, md)
	return name
}

func (d *describer) texture(t scene.Texture) string {
	name, fresh := d.unique("texture", t.ID(), t.Name())
	if !fresh {
		return name
	}
	d.f.Textures = append(d.f.Textures, TextureDoc{
		Name:   name,
		Path:   d.relative(t.SourcePath()),
		Filter: t.FilterMode().String(),
		Wrap:   t.WrapMode().String(),
		Mips:   t.MipCount(),
	})
	return name
}

func (d *describer) relative(path string) string {
	if path == "" || d.dir == "" {
		return path
	}
	rel, err := filepath.Rel(d.dir, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return path
	}
	return filepath.ToSlash(rel)
}

func flat2[V ~[2]float32](in []V) [][]float32 {
	if len(in) == 0 {
		return nil
	}
	out := make([][]float32, len(in))
	for i, v := range in {
		out[i] = []float32{v[0], v[1]}
	}
	return out
}

func flat3[V ~[3]float32](in []V) [][]float32 {
	if len(in) == 0 {
		return nil
	}
	out := make([][]float32, len(in))
	for i, v := range in {
		out[i] = []float32{v[0], v[1], v[2]}
	}
	return out
}
