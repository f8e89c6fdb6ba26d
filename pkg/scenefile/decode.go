package scenefile

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-gl/mathgl/mgl32"
	"gopkg.in/yaml.v3"

	"github.com/Faultbox/midgard-gltf/pkg/scene"
)

// Load reads a scene file and builds its object tree.
func Load(path string) (*scene.Object, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scene %s: %w", path, err)
	}
	return Decode(data, filepath.Dir(path))
}

// Decode builds the object tree of a YAML scene. dir resolves relative texture paths.
func Decode(data []byte, dir string) (*scene.Object, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing scene: %w", err)
	}
	return f.Build(dir)
}

// builder resolves names while the tree is constructed.
type builder struct {
	dir       string
	meshes    map[string]*scene.MeshAsset
	textures  map[string]*scene.TextureAsset
	materials map[string]*scene.MaterialAsset

	// skins are wired after the whole tree exists.
	skins []pendingSkin
}

type pendingSkin struct {
	obj      *scene.Object
	bones    []string
	rootBone *string
}

// Build creates the scene objects described by f.
func (f *File) Build(dir string) (*scene.Object, error) {
	if f.Root == nil {
		return nil, ErrNoRoot
	}
	b := &builder{
		dir:       dir,
		meshes:    make(map[string]*scene.MeshAsset),
		textures:  make(map[string]*scene.TextureAsset),
		materials: make(map[string]*scene.MaterialAsset),
	}

	for _, md := range f.Meshes {
		m, err := md.build()
		if err != nil {
			return nil, fmt.Errorf("mesh %q: %w", md.Name, err)
		}
		b.meshes[md.Name] = m
	}
	for _, td := range f.Textures {
		t, err := b.texture(td)
		if err != nil {
			return nil, fmt.Errorf("texture %q: %w", td.Name, err)
		}
		b.textures[td.Name] = t
	}
	for _, md := range f.Materials {
		m, err := b.material(md)
		if err != nil {
			return nil, fmt.Errorf("material %q: %w", md.Name, err)
		}
		b.materials[md.Name] = m
	}

	root, err := b.object(*f.Root)
	if err != nil {
		return nil, err
	}

	for _, s := range b.skins {
		r := s.obj.Renderer()
		for _, path := range s.bones {
			bone := scene.Find(root, path)
			if bone == nil {
				return nil, fmt.Errorf("object %q bone %q: %w", s.obj.Name(), path, ErrUnknownBone)
			}
			r.Bones = append(r.Bones, bone)
		}
		if s.rootBone != nil {
			rb := scene.Find(root, *s.rootBone)
			if rb == nil {
				return nil, fmt.Errorf("object %q root bone %q: %w", s.obj.Name(), *s.rootBone, ErrUnknownBone)
			}
			r.RootBone = rb
		}
	}
	return root, nil
}

func (b *builder) texture(td TextureDoc) (*scene.TextureAsset, error) {
	path := td.Path
	if path != "" && !filepath.IsAbs(path) && b.dir != "" {
		path = filepath.Join(b.dir, filepath.FromSlash(path))
	}
	t := scene.NewTexture(td.Name, path)
	var err error
	if t.Settings.Filter, err = scene.ParseFilterMode(td.Filter); err != nil {
		return nil, err
	}
	if t.Settings.Wrap, err = scene.ParseWrapMode(td.Wrap); err != nil {
		return nil, err
	}
	if td.Mips > 0 {
		t.Settings.MipCount = td.Mips
	}
	return t, nil
}

func (b *builder) material(md MaterialDoc) (*scene.MaterialAsset, error) {
	m := scene.NewMaterial(md.Name, md.Shader)
	for _, pd := range md.Properties {
		kind, err := scene.ParsePropertyKind(pd.Type)
		if err != nil {
			return nil, fmt.Errorf("property %q: %w", pd.Name, err)
		}
		prop := scene.MaterialProperty{Name: pd.Name, Kind: kind, Values: pd.Values}
		if kind == scene.PropertyTexture {
			t, ok := b.textures[pd.Texture]
			if !ok {
				return nil, fmt.Errorf("property %q texture %q: %w", pd.Name, pd.Texture, ErrUnknownTexture)
			}
			prop.Texture = t
			prop.Values = nil
		}
		m.SetProperty(prop)
	}
	return m, nil
}

func (b *builder) object(od ObjectDoc) (*scene.Object, error) {
	obj := scene.NewObject(od.Name)

	t := scene.IdentityTransform()
	var err error
	if od.Translation != nil {
		if t.Translation, err = vec3(od.Translation); err != nil {
			return nil, fmt.Errorf("object %q translation: %w", od.Name, err)
		}
	}
	if od.Rotation != nil {
		v, err := vec4(od.Rotation)
		if err != nil {
			return nil, fmt.Errorf("object %q rotation: %w", od.Name, err)
		}
		t.Rotation = mgl32.Quat{W: v[3], V: v.Vec3()}
	}
	if od.Scale != nil {
		if t.Scale, err = vec3(od.Scale); err != nil {
			return nil, fmt.Errorf("object %q scale: %w", od.Name, err)
		}
	}
	obj.SetTransform(t)

	if od.Mesh != "" {
		mesh, ok := b.meshes[od.Mesh]
		if !ok {
			return nil, fmt.Errorf("object %q mesh %q: %w", od.Name, od.Mesh, ErrUnknownMesh)
		}
		r := &scene.Renderer{Mesh: mesh}
		for _, name := range od.Materials {
			if name == "" {
				r.Materials = append(r.Materials, nil)
				continue
			}
			mat, ok := b.materials[name]
			if !ok {
				return nil, fmt.Errorf("object %q material %q: %w", od.Name, name, ErrUnknownMaterial)
			}
			r.Materials = append(r.Materials, mat)
		}
		obj.SetRenderer(r)
		if len(od.Bones) > 0 {
			b.skins = append(b.skins, pendingSkin{obj: obj, bones: od.Bones, rootBone: od.RootBone})
		}
	}

	for _, cd := range od.Components {
		obj.AddComponent(scene.Component{Type: cd.Type, Properties: cd.Properties})
	}

	for _, clip := range od.Animations {
		c, err := clip.build()
		if err != nil {
			return nil, fmt.Errorf("object %q clip %q: %w", od.Name, clip.Name, err)
		}
		obj.AddAnimation(c)
	}

	for _, cd := range od.Children {
		child, err := b.object(cd)
		if err != nil {
			return nil, err
		}
		obj.AddChild(child)
	}
	return obj, nil
}

func (cd ClipDoc) build() (*scene.AnimationClip, error) {
	clip := &scene.AnimationClip{Name: cd.Name}
	for _, c := range cd.Curves {
		target, err := scene.ParseTarget(c.Property)
		if err != nil {
			return nil, err
		}
		curve := scene.Curve{Path: c.Path, Target: target, Keys: make([]scene.Keyframe, len(c.Keys))}
		explicit := true
		for i, k := range c.Keys {
			if len(k) < 2 {
				return nil, fmt.Errorf("curve %s %s key %d: %w", c.Path, c.Property, i, ErrBadVector)
			}
			curve.Keys[i] = scene.Keyframe{Time: k[0], Value: k[1]}
			if len(k) >= 4 {
				curve.Keys[i].InTangent, curve.Keys[i].OutTangent = k[2], k[3]
			} else {
				explicit = false
			}
		}
		if !explicit {
			curve.SetLinearTangents()
		}
		clip.Curves = append(clip.Curves, curve)
	}
	return clip, nil
}

func (md MeshDoc) build() (*scene.MeshAsset, error) {
	var s scene.MeshStreams
	var err error
	if s.Positions, err = vec3s(md.Positions); err != nil {
		return nil, fmt.Errorf("positions: %w", err)
	}
	if s.Normals, err = vec3s(md.Normals); err != nil {
		return nil, fmt.Errorf("normals: %w", err)
	}
	if s.Tangents, err = vec4s(md.Tangents); err != nil {
		return nil, fmt.Errorf("tangents: %w", err)
	}
	if s.UV0, err = vec2s(md.UV0); err != nil {
		return nil, fmt.Errorf("uv0: %w", err)
	}
	if s.UV1, err = vec2s(md.UV1); err != nil {
		return nil, fmt.Errorf("uv1: %w", err)
	}
	if s.Colors, err = vec4s(md.Colors); err != nil {
		return nil, fmt.Errorf("colors: %w", err)
	}
	for i, bw := range md.BoneWeights {
		if len(bw.Joints) > 4 || len(bw.Weights) > 4 {
			return nil, fmt.Errorf("bone weight %d: %w", i, ErrBadVector)
		}
		var w scene.BoneWeight
		copy(w.Joints[:], bw.Joints)
		copy(w.Weights[:], bw.Weights)
		s.BoneWeights = append(s.BoneWeights, w)
	}
	for i, m := range md.BindPoses {
		if len(m) != 16 {
			return nil, fmt.Errorf("bind pose %d: %w", i, ErrBadVector)
		}
		var mat mgl32.Mat4
		copy(mat[:], m)
		s.BindPoses = append(s.BindPoses, mat)
	}
	s.Submeshes = md.Submeshes
	for _, bd := range md.BlendShapes {
		bs := scene.BlendShape{Name: bd.Name}
		for fi, fd := range bd.Frames {
			frame := scene.BlendShapeFrame{Weight: fd.Weight}
			if frame.DeltaPositions, err = vec3s(fd.Positions); err != nil {
				return nil, fmt.Errorf("blend shape %q frame %d: %w", bd.Name, fi, err)
			}
			if frame.DeltaNormals, err = vec3s(fd.Normals); err != nil {
				return nil, fmt.Errorf("blend shape %q frame %d: %w", bd.Name, fi, err)
			}
			if frame.DeltaTangents, err = vec3s(fd.Tangents); err != nil {
				return nil, fmt.Errorf("blend shape %q frame %d: %w", bd.Name, fi, err)
			}
			bs.Frames = append(bs.Frames, frame)
		}
		s.BlendShapes = append(s.BlendShapes, bs)
	}
	return scene.NewMesh(md.Name, s), nil
}

func vec3(v []float32) (mgl32.Vec3, error) {
	if len(v) != 3 {
		return mgl32.Vec3{}, fmt.Errorf("%w: got %d, want 3", ErrBadVector, len(v))
	}
	return mgl32.Vec3{v[0], v[1], v[2]}, nil
}

func vec4(v []float32) (mgl32.Vec4, error) {
	if len(v) != 4 {
		return mgl32.Vec4{}, fmt.Errorf("%w: got %d, want 4", ErrBadVector, len(v))
	}
	return mgl32.Vec4{v[0], v[1], v[2], v[3]}, nil
}

func vec2s(in [][]float32) ([]mgl32.Vec2, error) {
	if len(in) == 0 {
		return nil, nil
	}
	out := make([]mgl32.Vec2, len(in))
	for i, v := range in {
		if len(v) != 2 {
			return nil, fmt.Errorf("element %d: %w: got %d, want 2", i, ErrBadVector, len(v))
		}
		out[i] = mgl32.Vec2{v[0], v[1]}
	}
	return out, nil
}

func vec3s(in [][]float32) ([]mgl32.Vec3, error) {
	if len(in) == 0 {
		return nil, nil
	}
	out := make([]mgl32.Vec3, len(in))
	for i, v := range in {
		var err error
		if out[i], err = vec3(v); err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
	}
	return out, nil
}

func vec4s(in [][]float32) ([]mgl32.Vec4, error) {
	if len(in) == 0 {
		return nil, nil
	}
	out := make([]mgl32.Vec4, len(in))
	for i, v := range in {
		var err error
		if out[i], err = vec4(v); err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
	}
	return out, nil
}
