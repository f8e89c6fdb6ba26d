package gltf

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/Faultbox/midgard-gltf/pkg/scene"
)

// DefaultGenerator is written to asset.generator.
const DefaultGenerator = "midgard-gltf"

// Format selects the container written by Exporter.WriteFile.
type Format string

const (
	FormatGLTF Format = "gltf"
	FormatGLB  Format = "glb"
)

// Exporter turns scene trees into glTF documents.
type Exporter struct {
	log        *zap.Logger
	generator  string
	convention Convention
	format     Format
	copyImages bool
	transcode  bool
	colorKey   bool
	indent     bool
}

// ExportOption configures an Exporter.
type ExportOption func(*Exporter)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) ExportOption {
	return func(e *Exporter) { e.log = l }
}

func WithGenerator(g string) ExportOption {
	return func(e *Exporter) { e.generator = g }
}

func WithExportConvention(c Convention) ExportOption {
	return func(e *Exporter) { e.convention = c }
}

func WithFormat(f Format) ExportOption {
	return func(e *Exporter) { e.format = f }
}

// WithImageCopy controls whether texture images are written next to the document.
func WithImageCopy(enabled bool) ExportOption {
	return func(e *Exporter) { e.copyImages = enabled }
}

// WithImageTranscode controls whether non-PNG images are converted to PNG.
func WithImageTranscode(enabled bool) ExportOption {
	return func(e *Exporter) { e.transcode = enabled }
}

// WithColorKey makes magenta pixels transparent when images are transcoded.
func WithColorKey(enabled bool) ExportOption {
	return func(e *Exporter) { e.colorKey = enabled }
}

// WithIndent pretty-prints the JSON document.
func WithIndent(enabled bool) ExportOption {
	return func(e *Exporter) { e.indent = enabled }
}

// NewExporter creates an exporter with the given options.
func NewExporter(opts ...ExportOption) *Exporter {
	e := &Exporter{
		log:        zap.NewNop(),
		generator:  DefaultGenerator,
		convention: DefaultExportConvention,
		format:     FormatGLTF,
		copyImages: true,
		transcode:  true,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Output is a fully assembled export that has not been written yet.
type Output struct {
	Document *Document
	Binary   []byte
	Images   []ImageFile
	// Warnings lists non-fatal problems such as missing image sources.
	Warnings error
}

type pendingSkin struct {
	node     int
	renderer *scene.Renderer
}

type pendingClip struct {
	owner scene.Node
	clip  *scene.AnimationClip
}

// exportPass holds the state of one export. Nothing in it outlives Encode.
type exportPass struct {
	e        *Exporter
	name     string
	packer   Packer
	registry *Registry
	cache    Cache

	nodes     []Node
	nodeIndex map[uuid.UUID]int
	skins     []pendingSkin
	clips     []pendingClip

	// meshMaterials is the material list of the first node using each mesh.
	meshMaterials map[int][]int
	targetNames   map[int][]string

	doc      *Document
	images   []ImageFile
	usedURIs map[string]bool
	warnings error
}

// Encode exports the tree under root. name is used for the buffer file and the scene.
func (e *Exporter) Encode(root scene.Node, name string) (*Output, error) {
	p := &exportPass{
		e:             e,
		name:          name,
		nodeIndex:     make(map[uuid.UUID]int),
		meshMaterials: make(map[int][]int),
		targetNames:   make(map[int][]string),
		doc: &Document{
			Asset: Asset{Version: "2.0", Generator: e.generator},
		},
	}
	p.registry = NewRegistry(&p.packer)

	rootIndex := p.visit(root)
	p.doc.Scene = ptr(0)
	p.doc.Scenes = []Scene{{Name: name, Nodes: []int{rootIndex}}}

	for i, m := range p.cache.Meshes() {
		gm, err := p.exportMesh(i, m)
		if err != nil {
			return nil, fmt.Errorf("mesh %d %q: %w", i, m.Name(), err)
		}
		p.doc.Meshes = append(p.doc.Meshes, gm)
	}
	p.exportSkins()
	p.exportAnimations()
	p.exportMaterials()

	p.doc.Nodes = p.nodes
	p.doc.Accessors = p.registry.Accessors()
	p.doc.BufferViews = p.registry.Views()
	if p.packer.Len() > 0 {
		p.doc.Buffers = []Buffer{{URI: name + ".bin", ByteLength: p.packer.Len()}}
	}

	e.log.Debug("scene encoded",
		zap.String("scene", name),
		zap.Int("nodes", len(p.doc.Nodes)),
		zap.Int("meshes", len(p.doc.Meshes)),
		zap.Int("materials", len(p.doc.Materials)),
		zap.Int("animations", len(p.doc.Animations)),
		zap.Int("bytes", p.packer.Len()))

	return &Output{
		Document: p.doc,
		Binary:   p.packer.Bytes(),
		Images:   p.images,
		Warnings: p.warnings,
	}, nil
}

// visit emits n and its subtree in pre-order and returns n's index.
func (p *exportPass) visit(n scene.Node) int {
	idx := len(p.nodes)
	p.nodes = append(p.nodes, Node{})
	p.nodeIndex[n.ID()] = idx

	conv := p.e.convention
	t := n.LocalTransform()
	tr := conv.point(t.Translation)
	q := conv.rotation(t.Rotation)
	node := Node{
		Name:        n.Name(),
		Translation: &[3]float32{tr[0], tr[1], tr[2]},
		Rotation:    &[4]float32{q.V[0], q.V[1], q.V[2], q.W},
		Scale:       &[3]float32{t.Scale[0], t.Scale[1], t.Scale[2]},
	}

	if r := n.Renderer(); r != nil && r.Mesh != nil {
		mi := p.cache.InternMesh(r.Mesh)
		node.Mesh = ptr(mi)

		mats := make([]int, r.Mesh.SubmeshCount())
		for s := range mats {
			mats[s] = -1
			if m := r.MaterialFor(s); m != nil {
				mats[s] = p.cache.InternMaterial(m)
			}
		}
		if first, ok := p.meshMaterials[mi]; !ok {
			p.meshMaterials[mi] = mats
		} else if !slices.Equal(first, mats) {
			node.Extras = &NodeExtras{Materials: mats}
		}

		if r.Skinned() {
			p.skins = append(p.skins, pendingSkin{node: idx, renderer: r})
		}
	}

	for _, clip := range n.Animations() {
		p.clips = append(p.clips, pendingClip{owner: n, clip: clip})
	}

	if comps := n.Components(); len(comps) > 0 {
		if node.Extras == nil {
			node.Extras = &NodeExtras{}
		}
		for _, c := range comps {
			node.Extras.Components = append(node.Extras.Components, ComponentExtra(c))
		}
	}

	for _, c := range n.Children() {
		node.Children = append(node.Children, p.visit(c))
	}

	p.nodes[idx] = node
	return idx
}

func (p *exportPass) warn(err error) {
	p.e.log.Warn("export warning", zap.Error(err))
	p.warnings = multierr.Append(p.warnings, err)
}

// MarshalDocument encodes a document as JSON.
func MarshalDocument(doc *Document, indent bool) ([]byte, error) {
	if indent {
		return json.MarshalIndent(doc, "", "  ")
	}
	return json.Marshal(doc)
}

// WriteFile exports root to path. The binary buffer and images are written first and
// the document last, so a failed export never leaves a document behind.
func (e *Exporter) WriteFile(root scene.Node, path string) error {
	ext := filepath.Ext(path)
	name := strings.TrimSuffix(filepath.Base(path), ext)
	dir := filepath.Dir(path)

	format := e.format
	if strings.EqualFold(ext, ".glb") {
		format = FormatGLB
	}

	out, err := e.Encode(root, name)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	if e.copyImages {
		if err := e.writeImages(dir, out.Images); err != nil {
			return err
		}
	}

	if format == FormatGLB {
		if len(out.Document.Buffers) > 0 {
			out.Document.Buffers[0].URI = ""
		}
		js, err := MarshalDocument(out.Document, false)
		if err != nil {
			return fmt.Errorf("encoding document: %w", err)
		}
		var buf bytes.Buffer
		if err := WriteGLB(&buf, js, out.Binary); err != nil {
			return err
		}
		if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
		e.log.Info("exported", zap.String("path", path), zap.Int("bytes", buf.Len()))
		return nil
	}

	if len(out.Binary) > 0 {
		binPath := filepath.Join(dir, out.Document.Buffers[0].URI)
		if err := os.WriteFile(binPath, out.Binary, 0644); err != nil {
			return fmt.Errorf("writing %s: %w", binPath, err)
		}
	}
	js, err := MarshalDocument(out.Document, e.indent)
	if err != nil {
		return fmt.Errorf("encoding document: %w", err)
	}
	if err := os.WriteFile(path, js, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	e.log.Info("exported",
		zap.String("path", path),
		zap.Int("nodes", len(out.Document.Nodes)),
		zap.Int("bin_bytes", len(out.Binary)))
	return nil
}
