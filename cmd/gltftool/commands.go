package main

import (
	"flag"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/Faultbox/midgard-gltf/internal/logger"
	"github.com/Faultbox/midgard-gltf/pkg/encoding"
	"github.com/Faultbox/midgard-gltf/pkg/formats"
	"github.com/Faultbox/midgard-gltf/pkg/gltf"
	"github.com/Faultbox/midgard-gltf/pkg/grf"
	"github.com/Faultbox/midgard-gltf/pkg/scenefile"
)

func cmdExport(args []string) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	cfg := setup(fs, args)
	defer logger.Sync()

	if fs.NArg() != 2 {
		usage("export [options] <scene.yaml> <out.gltf|glb>")
	}

	root, err := scenefile.Load(fs.Arg(0))
	if err != nil {
		fail(err)
	}
	exp := gltf.NewExporter(cfg.ExportOptions(logger.Named("export"))...)
	if err := exp.WriteFile(root, fs.Arg(1)); err != nil {
		fail(err)
	}
	fmt.Printf("Exported %s -> %s\n", fs.Arg(0), fs.Arg(1))
}

func cmdImport(args []string) {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	cfg := setup(fs, args)
	defer logger.Sync()

	if fs.NArg() != 2 {
		usage("import [options] <in.gltf|glb> <scene.yaml>")
	}

	im := gltf.NewImporter(cfg.ImportOptions(logger.Named("import"))...)
	res, err := im.ReadFile(fs.Arg(0))
	if err != nil {
		fail(err)
	}
	for _, w := range multierr.Errors(res.Warnings) {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", w)
	}
	if err := scenefile.Save(fs.Arg(1), res.Root); err != nil {
		fail(err)
	}
	fmt.Printf("Imported %s -> %s (%d nodes, %d meshes, %d materials)\n",
		fs.Arg(0), fs.Arg(1), len(res.Nodes), len(res.Meshes), len(res.Materials))
}

func cmdInfo(args []string) {
	fs := flag.NewFlagSet("info", flag.ExitOnError)
	setup(fs, args)
	defer logger.Sync()

	if fs.NArg() != 1 {
		usage("info <in.gltf|glb>")
	}

	f, err := gltf.ReadFile(fs.Arg(0))
	if err != nil {
		fail(err)
	}
	doc := f.Document

	fmt.Printf("File:       %s\n", fs.Arg(0))
	fmt.Printf("Version:    %s\n", doc.Asset.Version)
	if doc.Asset.Generator != "" {
		fmt.Printf("Generator:  %s\n", doc.Asset.Generator)
	}
	fmt.Printf("Scenes:     %d\n", len(doc.Scenes))
	fmt.Printf("Nodes:      %d\n", len(doc.Nodes))
	fmt.Printf("Meshes:     %d\n", len(doc.Meshes))
	fmt.Printf("Materials:  %d\n", len(doc.Materials))
	fmt.Printf("Textures:   %d (%d images)\n", len(doc.Textures), len(doc.Images))
	fmt.Printf("Skins:      %d\n", len(doc.Skins))
	fmt.Printf("Animations: %d\n", len(doc.Animations))
	fmt.Printf("Accessors:  %d in %d views\n", len(doc.Accessors), len(doc.BufferViews))

	var bytes int
	for _, b := range doc.Buffers {
		bytes += b.ByteLength
	}
	fmt.Printf("Buffers:    %d (%.2f KB)\n", len(doc.Buffers), float64(bytes)/1024)

	if len(doc.Meshes) > 0 {
		fmt.Println()
		fmt.Println("Meshes:")
		for i, m := range doc.Meshes {
			fmt.Printf("  %-4d %-24s %d primitives, %d targets\n", i, m.Name, len(m.Primitives), len(m.Weights))
		}
	}
	for _, w := range multierr.Errors(f.Warnings) {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", w)
	}
}

func cmdRSM(args []string) {
	fs := flag.NewFlagSet("rsm", flag.ExitOnError)
	archive := fs.String("grf", "", "Read the model and its textures from this GRF archive")
	textures := fs.String("textures", "", "Directory holding the model's textures (default data/texture next to the model)")
	cfg := setup(fs, args)
	defer logger.Sync()

	if fs.NArg() != 2 {
		usage("rsm [options] <model.rsm> <out.gltf|glb>")
	}
	modelPath, out := fs.Arg(0), fs.Arg(1)
	log := logger.Named("rsm")

	var (
		model *formats.RSM
		err   error
	)
	texDir := *textures

	if *archive != "" {
		a, err := grf.Open(*archive)
		if err != nil {
			fail(err)
		}
		defer a.Close()

		data, err := a.Read(modelPath)
		if err != nil {
			fail(err)
		}
		if model, err = formats.ParseRSM(data); err != nil {
			fail(err)
		}

		tmp, err := os.MkdirTemp("", "gltftool-rsm-")
		if err != nil {
			fail(err)
		}
		defer os.RemoveAll(tmp)
		texDir = tmp
		extractTextures(a, model, tmp, log)
	} else {
		if model, err = formats.ParseRSMFile(modelPath); err != nil {
			fail(err)
		}
		if texDir == "" {
			texDir = defaultTextureDir(modelPath)
		}
	}

	name := strings.TrimSuffix(filepath.Base(modelPath), filepath.Ext(modelPath))
	root, err := model.Scene(formats.SceneOptions{Name: name, TextureDir: texDir})
	if err != nil {
		fail(err)
	}
	log.Info("model converted",
		zap.String("version", model.Version.String()),
		zap.Int("nodes", len(model.Nodes)),
		zap.Int("vertices", model.VertexCount()),
		zap.Int("faces", model.FaceCount()),
		zap.Bool("animated", model.HasAnimation()))

	// Game textures key transparency on magenta.
	opts := append(cfg.ExportOptions(logger.Named("export")), gltf.WithColorKey(true))
	exp := gltf.NewExporter(opts...)
	if err := exp.WriteFile(root, out); err != nil {
		fail(err)
	}
	fmt.Printf("Converted %s -> %s\n", modelPath, out)
}

func cmdModels(args []string) {
	fs := flag.NewFlagSet("models", flag.ExitOnError)
	limit := fs.Int("n", 0, "Limit output to N models (0 = all)")
	setup(fs, args)
	defer logger.Sync()

	if fs.NArg() < 1 {
		usage("models [options] <file.grf> [pattern]")
	}

	a, err := grf.Open(fs.Arg(0))
	if err != nil {
		fail(err)
	}
	defer a.Close()

	models := matchModels(a.List(), fs.Arg(1))
	if *limit > 0 && len(models) > *limit {
		models = models[:*limit]
	}
	for _, m := range models {
		fmt.Println(m)
	}
	fmt.Fprintf(os.Stderr, "\n(%d models)\n", len(models))
}

// matchModels keeps the .rsm entries whose base name matches the glob pattern
// or whose path contains it. Matching ignores case. An empty pattern keeps all.
func matchModels(names []string, pattern string) []string {
	pattern = strings.ToLower(pattern)
	var out []string
	for _, name := range names {
		lower := strings.ToLower(name)
		if filepath.Ext(lower) != ".rsm" {
			continue
		}
		if pattern != "" {
			matched, _ := filepath.Match(pattern, path.Base(lower))
			if !matched && !strings.Contains(lower, pattern) {
				continue
			}
		}
		out = append(out, name)
	}
	return out
}

// extractTextures copies every texture the model names from data/texture in the
// archive into dir. Missing textures are logged and left for the exporter to report.
func extractTextures(a *grf.Archive, model *formats.RSM, dir string, log *zap.Logger) {
	for _, tex := range model.Textures {
		rel := encoding.SlashPath(tex)
		dest := filepath.Join(dir, filepath.FromSlash(rel))
		if err := a.Extract("data/texture/"+rel, dest); err != nil {
			log.Warn("texture not extracted", zap.String("texture", tex), zap.Error(err))
		}
	}
}

// defaultTextureDir maps data/model/... to data/texture when the model sits in a
// client data tree, and to the model's own directory otherwise.
func defaultTextureDir(modelPath string) string {
	dir := filepath.Dir(modelPath)
	slashed := filepath.ToSlash(dir)
	if i := strings.Index(strings.ToLower(slashed), "data/model"); i >= 0 {
		return filepath.Join(filepath.FromSlash(slashed[:i]), "data", "texture")
	}
	return dir
}
