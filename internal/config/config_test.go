package config

import (
	"errors"
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/Faultbox/midgard-gltf/pkg/gltf"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Export.Format != "gltf" {
		t.Errorf("expected format gltf, got %s", cfg.Export.Format)
	}
	if !cfg.Export.CopyImages || !cfg.Export.TranscodeImages {
		t.Error("expected image copy and transcode to be enabled by default")
	}
	if cfg.Export.Indent {
		t.Error("expected compact JSON by default")
	}
	if cfg.Export.Convention != gltf.DefaultExportConvention {
		t.Errorf("unexpected export convention %+v", cfg.Export.Convention)
	}
	if cfg.Import.Convention != gltf.DefaultImportConvention {
		t.Errorf("unexpected import convention %+v", cfg.Import.Convention)
	}
	if cfg.Import.DefaultShader != "PBR" {
		t.Errorf("expected default shader PBR, got %s", cfg.Import.DefaultShader)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("expected log level 'info', got %s", cfg.Logging.Level)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config does not validate: %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
export:
  generator: "prontera-baker"
  format: glb
  copy_images: false
  color_key: true
  indent: true
  convention:
    flip_v: true
    negate_z: true
    flip_winding: true

import:
  asset_dir: "assets/imported"
  default_shader: "Standard"

logging:
  level: "debug"
  log_file: "gltftool.log"
`

	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg := Default()
	if err := loadFromFile(cfg, configPath); err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Export.Generator != "prontera-baker" {
		t.Errorf("expected generator prontera-baker, got %s", cfg.Export.Generator)
	}
	if cfg.Export.Format != "glb" {
		t.Errorf("expected format glb, got %s", cfg.Export.Format)
	}
	if cfg.Export.CopyImages {
		t.Error("expected copy_images to be false")
	}
	if !cfg.Export.TranscodeImages {
		t.Error("expected transcode_images to keep its default")
	}
	if !cfg.Export.ColorKey {
		t.Error("expected color_key to be true")
	}
	if cfg.Export.Convention != gltf.SymmetricConvention {
		t.Errorf("expected symmetric export convention, got %+v", cfg.Export.Convention)
	}
	if cfg.Import.AssetDir != "assets/imported" {
		t.Errorf("expected asset dir assets/imported, got %s", cfg.Import.AssetDir)
	}
	if cfg.Import.DefaultShader != "Standard" {
		t.Errorf("expected shader Standard, got %s", cfg.Import.DefaultShader)
	}
	if cfg.Import.Convention != gltf.DefaultImportConvention {
		t.Errorf("expected import convention to keep its default, got %+v", cfg.Import.Convention)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.LogFile != "gltftool.log" {
		t.Errorf("unexpected logging config %+v", cfg.Logging)
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	cfg := Default()
	if err := loadFromFile(cfg, "/nonexistent/path/config.yaml"); err == nil {
		t.Error("expected error loading missing file, got nil")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"unknown format", func(c *Config) { c.Export.Format = "fbx" }},
		{"unknown level", func(c *Config) { c.Logging.Level = "chatty" }},
		{"empty shader", func(c *Config) { c.Import.DefaultShader = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestConfigDir(t *testing.T) {
	dir := ConfigDir()

	if dir == "" {
		t.Error("ConfigDir returned empty string")
	}
	if !filepath.IsAbs(dir) {
		t.Errorf("ConfigDir should return absolute path, got %s", dir)
	}
}

func TestFindConfigFile(t *testing.T) {
	tmpDir := t.TempDir()
	oldWd, err := os.Getwd()
	if err != nil {
		t.Fatalf("failed to get working directory: %v", err)
	}
	if err := os.Chdir(tmpDir); err != nil {
		t.Fatalf("failed to chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(oldWd) })
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tmpDir, "xdg"))

	if path := findConfigFile(); path != "" {
		t.Errorf("expected empty path when no config exists, got %s", path)
	}

	if err := os.WriteFile(filepath.Join(tmpDir, FileName), []byte("export:\n  indent: true\n"), 0644); err != nil {
		t.Fatalf("failed to create test config: %v", err)
	}

	if path := findConfigFile(); path == "" {
		t.Errorf("expected to find %s in current directory", FileName)
	}
}

func TestApplyFlags(t *testing.T) {
	tests := []struct {
		name   string
		args   []string
		verify func(*testing.T, *Config)
	}{
		{
			name: "debug flag",
			args: []string{"-debug"},
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Logging.Level != "debug" {
					t.Errorf("expected log level 'debug', got %s", cfg.Logging.Level)
				}
			},
		},
		{
			name: "format and indent",
			args: []string{"-format", "glb", "-indent"},
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Export.Format != "glb" {
					t.Errorf("expected format glb, got %s", cfg.Export.Format)
				}
				if !cfg.Export.Indent {
					t.Error("expected indent to be enabled")
				}
			},
		},
		{
			name: "no images",
			args: []string{"-no-images"},
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Export.CopyImages {
					t.Error("expected image copy to be disabled")
				}
			},
		},
		{
			name: "import settings",
			args: []string{"-assets", "out/textures", "-shader", "Legacy"},
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Import.AssetDir != "out/textures" {
					t.Errorf("expected asset dir out/textures, got %s", cfg.Import.AssetDir)
				}
				if cfg.Import.DefaultShader != "Legacy" {
					t.Errorf("expected shader Legacy, got %s", cfg.Import.DefaultShader)
				}
			},
		},
		{
			name: "symmetric",
			args: []string{"-symmetric"},
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Export.Convention != cfg.Import.Convention {
					t.Errorf("expected matching conventions, got %+v and %+v", cfg.Export.Convention, cfg.Import.Convention)
				}
			},
		},
		{
			name: "no flags",
			args: nil,
			verify: func(t *testing.T, cfg *Config) {
				if *cfg != *Default() {
					t.Errorf("expected defaults, got %+v", cfg)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := flag.NewFlagSet("test", flag.ContinueOnError)
			flags := RegisterFlags(fs)
			if err := fs.Parse(tt.args); err != nil {
				t.Fatalf("parsing flags: %v", err)
			}

			cfg := Default()
			flags.apply(cfg)
			tt.verify(t, cfg)
		})
	}
}

func TestLoadPriority(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
export:
  format: glb
  generator: from-file
`

	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	flags := RegisterFlags(fs)
	if err := fs.Parse([]string{"-config", configPath, "-format", "gltf"}); err != nil {
		t.Fatalf("parsing flags: %v", err)
	}

	cfg, err := Load(flags)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	// flag beats file
	if cfg.Export.Format != "gltf" {
		t.Errorf("expected format gltf from flag, got %s", cfg.Export.Format)
	}
	// file beats default
	if cfg.Export.Generator != "from-file" {
		t.Errorf("expected generator from file, got %s", cfg.Export.Generator)
	}
}

func TestLoadRejectsInvalidFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("export:\n  format: obj\n"), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	flags := RegisterFlags(fs)
	if err := fs.Parse([]string{"-config", configPath}); err != nil {
		t.Fatalf("parsing flags: %v", err)
	}

	if _, err := Load(flags); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestSaveTo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := Default()
	cfg.Export.Indent = true
	cfg.Import.AssetDir = "textures"
	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("SaveTo failed: %v", err)
	}

	loaded := Default()
	if err := loadFromFile(loaded, path); err != nil {
		t.Fatalf("reading saved config: %v", err)
	}
	if *loaded != *cfg {
		t.Errorf("saved config differs: got %+v, want %+v", loaded, cfg)
	}
}
