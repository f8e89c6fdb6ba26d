package gltf

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/Faultbox/midgard-gltf/pkg/scene"
)

// DefaultShader is assigned to materials without recorded provenance.
const DefaultShader = "PBR"

// Importer rebuilds scene trees from glTF documents.
type Importer struct {
	log           *zap.Logger
	convention    Convention
	assetDir      string
	defaultShader string
	registrar     scene.Registrar
}

// ImportOption configures an Importer.
type ImportOption func(*Importer)

func WithImportLogger(l *zap.Logger) ImportOption {
	return func(im *Importer) { im.log = l }
}

func WithImportConvention(c Convention) ImportOption {
	return func(im *Importer) { im.convention = c }
}

// WithAssetDir copies every image into dir and points textures at the copies.
func WithAssetDir(dir string) ImportOption {
	return func(im *Importer) { im.assetDir = dir }
}

func WithDefaultShader(shader string) ImportOption {
	return func(im *Importer) { im.defaultShader = shader }
}

// WithRegistrar hands every created mesh, material and texture to r.
func WithRegistrar(r scene.Registrar) ImportOption {
	return func(im *Importer) { im.registrar = r }
}

// NewImporter creates an importer with the given options.
func NewImporter(opts ...ImportOption) *Importer {
	im := &Importer{
		log:           zap.NewNop(),
		convention:    DefaultImportConvention,
		defaultShader: DefaultShader,
	}
	for _, opt := range opts {
		opt(im)
	}
	return im
}

// Result is an imported scene.
type Result struct {
	Root      *scene.Object
	Nodes     []*scene.Object
	Meshes    []*scene.MeshAsset
	Materials []*scene.MaterialAsset
	Textures  []*scene.TextureAsset
	// Warnings lists missing external files that were replaced by placeholders.
	Warnings error
}

// importPass holds the state of one import.
type importPass struct {
	im   *Importer
	file *File
	doc  *Document
	res  *Result

	// primMaterials holds the material index of every primitive, per mesh.
	primMaterials [][]int
	skinJoints    [][]int
	skinRoots     []int

	// objects is indexed by node; reached marks nodes of the selected scene.
	objects []*scene.Object
	reached []bool
}

// ReadFile parses and imports the document at path.
func (im *Importer) ReadFile(path string) (*Result, error) {
	f, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	return im.Import(f)
}

// Import converts a parsed file into scene objects. Index errors abort the whole
// import; missing files only add warnings.
func (im *Importer) Import(f *File) (*Result, error) {
	p := &importPass{
		im:   im,
		file: f,
		doc:  f.Document,
		res:  &Result{Warnings: f.Warnings},
	}
	for _, w := range multierr.Errors(f.Warnings) {
		im.log.Warn("import warning", zap.Error(w))
	}

	steps := []struct {
		name string
		fn   func() error
	}{
		{"meshes", p.importMeshes},
		{"textures", p.importTextures},
		{"materials", p.importMaterials},
		{"skins", p.importSkins},
		{"nodes", p.importNodes},
		{"animations", p.importAnimations},
	}
	for _, s := range steps {
		if err := s.fn(); err != nil {
			return nil, fmt.Errorf("importing %s: %w", s.name, err)
		}
	}

	im.log.Info("imported",
		zap.String("scene", f.Name),
		zap.Int("nodes", len(p.res.Nodes)),
		zap.Int("meshes", len(p.res.Meshes)),
		zap.Int("materials", len(p.res.Materials)),
		zap.Int("textures", len(p.res.Textures)),
		zap.Int("warnings", len(multierr.Errors(p.res.Warnings))))
	return p.res, nil
}

func (p *importPass) warn(err error) {
	p.im.log.Warn("import warning", zap.Error(err))
	p.res.Warnings = multierr.Append(p.res.Warnings, err)
}

func (p *importPass) importSkins() error {
	for i, s := range p.doc.Skins {
		for _, j := range s.Joints {
			if j < 0 || j >= len(p.doc.Nodes) {
				return fmt.Errorf("skin %d joint: %w", i, missing("node", j))
			}
		}
		root := -1
		if s.Skeleton != nil {
			if *s.Skeleton < 0 || *s.Skeleton >= len(p.doc.Nodes) {
				return fmt.Errorf("skin %d skeleton: %w", i, missing("node", *s.Skeleton))
			}
			root = *s.Skeleton
		}
		p.skinJoints = append(p.skinJoints, s.Joints)
		p.skinRoots = append(p.skinRoots, root)
	}
	return nil
}

// skinBindPoses decodes the inverse bind matrices of skin i.
func (p *importPass) skinBindPoses(i int) ([]mgl32.Mat4, error) {
	s := p.doc.Skins[i]
	if s.InverseBindMatrices == nil {
		return nil, nil
	}
	mats, err := p.file.Mat4s(*s.InverseBindMatrices)
	if err != nil {
		return nil, fmt.Errorf("skin %d: %w", i, err)
	}
	for j := range mats {
		mats[j] = p.im.convention.matrix(mats[j])
	}
	return mats, nil
}

// importNodes builds every node reachable from the selected scene in pre-order and
// picks the root: the only scene root, or a container named after the file.
func (p *importPass) importNodes() error {
	doc := p.doc
	objs := make([]*scene.Object, len(doc.Nodes))
	for i, n := range doc.Nodes {
		name := n.Name
		if name == "" {
			name = fmt.Sprintf("node_%d", i)
		}
		obj := scene.NewObject(name)
		obj.SetTransform(p.nodeTransform(n))
		objs[i] = obj
	}

	roots, err := p.sceneRoots()
	if err != nil {
		return err
	}

	visited := make([]bool, len(doc.Nodes))
	p.objects, p.reached = objs, visited
	var build func(i int) error
	build = func(i int) error {
		if visited[i] {
			return fmt.Errorf("node %d is reachable twice", i)
		}
		visited[i] = true
		p.res.Nodes = append(p.res.Nodes, objs[i])
		if err := p.attachNode(i, objs); err != nil {
			return err
		}
		for _, c := range doc.Nodes[i].Children {
			if c < 0 || c >= len(doc.Nodes) {
				return fmt.Errorf("node %d child: %w", i, missing("node", c))
			}
			objs[i].AddChild(objs[c])
			if err := build(c); err != nil {
				return err
			}
		}
		return nil
	}
	for _, r := range roots {
		if err := build(r); err != nil {
			return err
		}
	}

	switch len(roots) {
	case 0:
		p.res.Root = scene.NewObject(p.file.Name)
	case 1:
		p.res.Root = objs[roots[0]]
	default:
		root := scene.NewObject(p.file.Name)
		for _, r := range roots {
			root.AddChild(objs[r])
		}
		p.res.Root = root
	}

	// Bones are resolved once every object exists.
	for i, n := range doc.Nodes {
		if n.Skin == nil || !visited[i] {
			continue
		}
		r := objs[i].Renderer()
		if r == nil {
			continue
		}
		for _, j := range p.skinJoints[*n.Skin] {
			r.Bones = append(r.Bones, objs[j])
		}
		if root := p.skinRoots[*n.Skin]; root >= 0 {
			r.RootBone = objs[root]
		}
	}
	return nil
}

func (p *importPass) sceneRoots() ([]int, error) {
	doc := p.doc
	var roots []int
	if len(doc.Scenes) > 0 {
		s := 0
		if doc.Scene != nil {
			s = *doc.Scene
		}
		if s < 0 || s >= len(doc.Scenes) {
			return nil, missing("scene", s)
		}
		roots = doc.Scenes[s].Nodes
	} else {
		isChild := make([]bool, len(doc.Nodes))
		for _, n := range doc.Nodes {
			for _, c := range n.Children {
				if c >= 0 && c < len(isChild) {
					isChild[c] = true
				}
			}
		}
		for i := range doc.Nodes {
			if !isChild[i] {
				roots = append(roots, i)
			}
		}
	}
	for _, r := range roots {
		if r < 0 || r >= len(doc.Nodes) {
			return nil, fmt.Errorf("scene root: %w", missing("node", r))
		}
	}
	return roots, nil
}

// attachNode wires the mesh, materials, skin and components of node i.
func (p *importPass) attachNode(i int, objs []*scene.Object) error {
	n := p.doc.Nodes[i]
	obj := objs[i]

	if n.Extras != nil {
		for _, c := range n.Extras.Components {
			obj.AddComponent(scene.Component(c))
		}
	}
	if n.Skin != nil && (*n.Skin < 0 || *n.Skin >= len(p.doc.Skins)) {
		return fmt.Errorf("node %d: %w", i, missing("skin", *n.Skin))
	}
	if n.Mesh == nil {
		return nil
	}
	mi := *n.Mesh
	if mi < 0 || mi >= len(p.res.Meshes) {
		return fmt.Errorf("node %d: %w", i, missing("mesh", mi))
	}
	mesh := p.res.Meshes[mi]

	matIdx := p.primMaterials[mi]
	if n.Extras != nil && len(n.Extras.Materials) > 0 {
		matIdx = n.Extras.Materials
	}
	r := &scene.Renderer{Mesh: mesh, Materials: make([]scene.Material, len(matIdx))}
	for s, m := range matIdx {
		if m < 0 {
			continue
		}
		if m >= len(p.res.Materials) {
			return fmt.Errorf("node %d submesh %d: %w", i, s, missing("material", m))
		}
		r.Materials[s] = p.res.Materials[m]
	}

	if n.Skin != nil && len(mesh.Streams.BindPoses) == 0 {
		poses, err := p.skinBindPoses(*n.Skin)
		if err != nil {
			return err
		}
		mesh.Streams.BindPoses = poses
	}
	obj.SetRenderer(r)
	return nil
}

// nodeTransform reads TRS, or decomposes the matrix when only a matrix is given.
func (p *importPass) nodeTransform(n Node) scene.Transform {
	t := scene.IdentityTransform()
	if n.Matrix != nil && n.Translation == nil && n.Rotation == nil && n.Scale == nil {
		t = decompose(mgl32.Mat4(*n.Matrix))
	}
	if n.Translation != nil {
		t.Translation = mgl32.Vec3(*n.Translation)
	}
	if n.Rotation != nil {
		r := *n.Rotation
		t.Rotation = mgl32.Quat{W: r[3], V: mgl32.Vec3{r[0], r[1], r[2]}}
	}
	if n.Scale != nil {
		t.Scale = mgl32.Vec3(*n.Scale)
	}
	conv := p.im.convention
	t.Translation = conv.point(t.Translation)
	t.Rotation = conv.rotation(t.Rotation)
	return t
}

// decompose splits an affine column-major matrix into TRS.
func decompose(m mgl32.Mat4) scene.Transform {
	t := scene.IdentityTransform()
	t.Translation = m.Col(3).Vec3()
	sx := m.Col(0).Vec3().Len()
	sy := m.Col(1).Vec3().Len()
	sz := m.Col(2).Vec3().Len()
	t.Scale = mgl32.Vec3{sx, sy, sz}
	if sx == 0 || sy == 0 || sz == 0 {
		return t
	}
	rot := mgl32.Ident4()
	rot.SetCol(0, m.Col(0).Mul(1/sx))
	rot.SetCol(1, m.Col(1).Mul(1/sy))
	rot.SetCol(2, m.Col(2).Mul(1/sz))
	rot.SetCol(3, mgl32.Vec4{0, 0, 0, 1})
	t.Rotation = mgl32.Mat4ToQuat(rot).Normalize()
	return t
}
