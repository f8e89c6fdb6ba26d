// Package config handles gltftool configuration loading and management.
package config

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/midgard-gltf/pkg/gltf"
)

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid config")

// Config holds all tool settings.
type Config struct {
	Export  ExportConfig  `yaml:"export"`
	Import  ImportConfig  `yaml:"import"`
	Logging LoggingConfig `yaml:"logging"`
}

// ExportConfig controls scene to glTF conversion.
type ExportConfig struct {
	Generator       string          `yaml:"generator"`
	Format          string          `yaml:"format"` // gltf or glb
	CopyImages      bool            `yaml:"copy_images"`
	TranscodeImages bool            `yaml:"transcode_images"`
	ColorKey        bool            `yaml:"color_key"` // magenta becomes transparent when transcoding
	Indent          bool            `yaml:"indent"`
	Convention      gltf.Convention `yaml:"convention"`
}

// ImportConfig controls glTF to scene conversion.
type ImportConfig struct {
	AssetDir      string          `yaml:"asset_dir"` // empty keeps images where they are
	DefaultShader string          `yaml:"default_shader"`
	Convention    gltf.Convention `yaml:"convention"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Export: ExportConfig{
			Generator:       gltf.DefaultGenerator,
			Format:          string(gltf.FormatGLTF),
			CopyImages:      true,
			TranscodeImages: true,
			Convention:      gltf.DefaultExportConvention,
		},
		Import: ImportConfig{
			DefaultShader: gltf.DefaultShader,
			Convention:    gltf.DefaultImportConvention,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Validate checks values that cannot be represented by the field types alone.
func (c *Config) Validate() error {
	switch gltf.Format(c.Export.Format) {
	case gltf.FormatGLTF, gltf.FormatGLB:
	default:
		return fmt.Errorf("%w: export format %q", ErrInvalidConfig, c.Export.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: log level %q", ErrInvalidConfig, c.Logging.Level)
	}
	if c.Import.DefaultShader == "" {
		return fmt.Errorf("%w: empty default shader", ErrInvalidConfig)
	}
	return nil
}

// ExportOptions translates the export section into exporter options.
func (c *Config) ExportOptions(log *zap.Logger) []gltf.ExportOption {
	return []gltf.ExportOption{
		gltf.WithLogger(log),
		gltf.WithGenerator(c.Export.Generator),
		gltf.WithFormat(gltf.Format(c.Export.Format)),
		gltf.WithImageCopy(c.Export.CopyImages),
		gltf.WithImageTranscode(c.Export.TranscodeImages),
		gltf.WithColorKey(c.Export.ColorKey),
		gltf.WithIndent(c.Export.Indent),
		gltf.WithExportConvention(c.Export.Convention),
	}
}

// ImportOptions translates the import section into importer options.
func (c *Config) ImportOptions(log *zap.Logger) []gltf.ImportOption {
	opts := []gltf.ImportOption{
		gltf.WithImportLogger(log),
		gltf.WithDefaultShader(c.Import.DefaultShader),
		gltf.WithImportConvention(c.Import.Convention),
	}
	if c.Import.AssetDir != "" {
		opts = append(opts, gltf.WithAssetDir(c.Import.AssetDir))
	}
	return opts
}
