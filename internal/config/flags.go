package config

import (
	"flag"

	"github.com/Faultbox/midgard-gltf/pkg/gltf"
)

// Flags holds the command-line overrides registered on one FlagSet.
type Flags struct {
	config    *string
	debug     *bool
	logFile   *string
	format    *string
	indent    *bool
	noImages  *bool
	assetDir  *string
	shader    *string
	symmetric *bool
}

// RegisterFlags adds the shared flags to fs. Each subcommand owns its FlagSet.
func RegisterFlags(fs *flag.FlagSet) *Flags {
	return &Flags{
		config:    fs.String("config", "", "Path to config file"),
		debug:     fs.Bool("debug", false, "Enable debug logging"),
		logFile:   fs.String("log", "", "Also write logs to this file"),
		format:    fs.String("format", "", "Output container: gltf or glb"),
		indent:    fs.Bool("indent", false, "Pretty-print the JSON document"),
		noImages:  fs.Bool("no-images", false, "Do not copy texture images next to the output"),
		assetDir:  fs.String("assets", "", "Copy imported images into this directory"),
		shader:    fs.String("shader", "", "Shader name for imported materials"),
		symmetric: fs.Bool("symmetric", false, "Use the same axis convention on export and import"),
	}
}

// ConfigPath returns the explicit config path if provided via -config.
func (f *Flags) ConfigPath() string {
	if f == nil {
		return ""
	}
	return *f.config
}

// apply applies CLI flag overrides to the config.
func (f *Flags) apply(cfg *Config) {
	if f == nil {
		return
	}
	if *f.debug {
		cfg.Logging.Level = "debug"
	}
	if *f.logFile != "" {
		cfg.Logging.LogFile = *f.logFile
	}
	if *f.format != "" {
		cfg.Export.Format = *f.format
	}
	if *f.indent {
		cfg.Export.Indent = true
	}
	if *f.noImages {
		cfg.Export.CopyImages = false
	}
	if *f.assetDir != "" {
		cfg.Import.AssetDir = *f.assetDir
	}
	if *f.shader != "" {
		cfg.Import.DefaultShader = *f.shader
	}
	if *f.symmetric {
		cfg.Export.Convention = gltf.SymmetricConvention
		cfg.Import.Convention = gltf.SymmetricConvention
	}
}
