package gltf

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/Faultbox/midgard-gltf/pkg/scene"
)

// Property names used for materials that carry no recorded shader properties.
const (
	SlotBaseColor         = "u_BaseColorSampler"
	SlotBaseColorFactor   = "u_BaseColorFactor"
	SlotMetallicRoughness = "u_MetallicRoughnessSampler"
	SlotMetallic          = "u_Metallic"
	SlotRoughness         = "u_Roughness"
	SlotNormal            = "u_NormalSampler"
	SlotNormalScale       = "u_NormalScale"
	SlotOcclusion         = "u_OcclusionSampler"
	SlotOcclusionStrength = "u_OcclusionStrength"
	SlotEmissive          = "u_EmissiveSampler"
	SlotEmissiveFactor    = "u_EmissiveFactor"
)

func (p *importPass) importTextures() error {
	for i, t := range p.doc.Textures {
		tex, err := p.importTexture(i, t)
		if err != nil {
			return fmt.Errorf("texture %d: %w", i, err)
		}
		if r := p.im.registrar; r != nil {
			if err := r.RegisterTexture(tex); err != nil {
				return fmt.Errorf("registering texture %d: %w", i, err)
			}
		}
		p.res.Textures = append(p.res.Textures, tex)
	}
	return nil
}

func (p *importPass) importTexture(i int, t Texture) (*scene.TextureAsset, error) {
	name := t.Name
	if name == "" {
		name = fmt.Sprintf("texture_%d", i)
	}
	tex := scene.NewTexture(name, "")

	var sampler *Sampler
	if t.Sampler != nil {
		if *t.Sampler < 0 || *t.Sampler >= len(p.doc.Samplers) {
			return nil, missing("sampler", *t.Sampler)
		}
		sampler = &p.doc.Samplers[*t.Sampler]
	}
	mipmapped := applySampler(&tex.Settings, sampler)

	if t.Source == nil {
		return tex, nil
	}
	if *t.Source < 0 || *t.Source >= len(p.doc.Images) {
		return nil, missing("image", *t.Source)
	}
	img := p.doc.Images[*t.Source]
	data, path, err := p.locateImage(*t.Source, img, name)
	if err != nil {
		if !errors.Is(err, ErrMissingExternalFile) {
			return nil, err
		}
		p.warn(fmt.Errorf("texture %q: %w", name, err))
		return tex, nil
	}
	tex.Settings.Path = path
	if mipmapped {
		if levels := mipLevels(data); levels > 1 {
			tex.Settings.MipCount = levels
		}
	}
	return tex, nil
}

// applySampler maps sampler state onto texture settings and reports whether the
// sampler uses mipmaps.
func applySampler(s *scene.TextureSettings, sampler *Sampler) bool {
	if sampler == nil {
		return false
	}
	mipmapped := false
	if sampler.MinFilter != nil {
		switch *sampler.MinFilter {
		case FilterNearestMipmapNearest, FilterLinearMipmapNearest, FilterNearestMipmapLinear, FilterLinearMipmapLinear:
			mipmapped = true
		}
	}
	switch {
	case sampler.MagFilter != nil && *sampler.MagFilter == FilterNearest:
		s.Filter = scene.FilterPoint
	case mipmapped:
		s.Filter = scene.FilterTrilinear
	default:
		s.Filter = scene.FilterBilinear
	}
	if mipmapped {
		// At least two levels so the sampler preset survives a re-export.
		s.MipCount = 2
	}
	if sampler.WrapS != nil && *sampler.WrapS == WrapClampToEdge {
		s.Wrap = scene.WrapClamp
	}
	return mipmapped
}

// locateImage loads image idx and returns its bytes and the path the texture should
// point at. With an asset directory the image is copied there.
func (p *importPass) locateImage(idx int, img Image, texName string) ([]byte, string, error) {
	var data []byte
	var srcPath, fileName string
	switch {
	case img.BufferView != nil:
		view, err := p.file.ViewBytes(*img.BufferView)
		if err != nil {
			return nil, "", fmt.Errorf("image %d: %w", idx, err)
		}
		data = view
		fileName = texName
	case strings.HasPrefix(img.URI, "data:"):
		d, err := decodeDataURI(img.URI)
		if err != nil {
			return nil, "", fmt.Errorf("image %d: %w", idx, err)
		}
		data = d
		fileName = texName
	case img.URI == "":
		return nil, "", fmt.Errorf("image %d has no source: %w", idx, ErrMissingExternalFile)
	default:
		srcPath = filepath.Join(p.file.Dir, filepath.FromSlash(img.URI))
		d, err := os.ReadFile(srcPath)
		if errors.Is(err, os.ErrNotExist) {
			return nil, "", fmt.Errorf("image %s: %w", img.URI, ErrMissingExternalFile)
		}
		if err != nil {
			return nil, "", fmt.Errorf("image %d: %w", idx, err)
		}
		data = d
		fileName = filepath.Base(srcPath)
	}
	if len(data) == 0 {
		return nil, "", fmt.Errorf("image %d is empty: %w", idx, ErrMissingExternalFile)
	}

	if filepath.Ext(fileName) == "" {
		ext, _, ok := detectImage(data)
		if !ok {
			ext = "bin"
		}
		fileName += "." + ext
	}

	if p.im.assetDir == "" {
		if srcPath != "" {
			return data, srcPath, nil
		}
		p.im.log.Warn("embedded image dropped: no asset directory", zap.Int("image", idx))
		return data, "", nil
	}

	if err := os.MkdirAll(p.im.assetDir, 0755); err != nil {
		return nil, "", fmt.Errorf("creating asset directory: %w", err)
	}
	dst := filepath.Join(p.im.assetDir, fileName)
	if srcPath == "" || !sameFile(srcPath, dst) {
		if err := os.WriteFile(dst, data, 0644); err != nil {
			return nil, "", fmt.Errorf("copying image %d: %w", idx, err)
		}
	}
	p.im.log.Debug("image copied", zap.String("dst", dst))
	return data, dst, nil
}

func (p *importPass) importMaterials() error {
	for i, m := range p.doc.Materials {
		mat, err := p.importMaterial(i, m)
		if err != nil {
			return fmt.Errorf("material %d: %w", i, err)
		}
		if r := p.im.registrar; r != nil {
			if err := r.RegisterMaterial(mat); err != nil {
				return fmt.Errorf("registering material %d: %w", i, err)
			}
		}
		p.res.Materials = append(p.res.Materials, mat)
	}
	return nil
}

func (p *importPass) texture(i int) (*scene.TextureAsset, error) {
	if i < 0 || i >= len(p.res.Textures) {
		return nil, missing("texture", i)
	}
	return p.res.Textures[i], nil
}

// importMaterial restores the recorded shader and properties, or falls back to
// mapping the PBR fields onto the default shader's slots.
func (p *importPass) importMaterial(i int, m Material) (*scene.MaterialAsset, error) {
	name := m.Name
	if name == "" {
		name = fmt.Sprintf("material_%d", i)
	}

	if x := m.Extras; x != nil && (x.Shader != "" || len(x.Properties) > 0) {
		shader := x.Shader
		if shader == "" {
			shader = p.im.defaultShader
		}
		mat := scene.NewMaterial(name, shader)
		for _, pe := range x.Properties {
			kind, err := scene.ParsePropertyKind(pe.Type)
			if err != nil {
				return nil, err
			}
			prop := scene.MaterialProperty{Name: pe.Name, Kind: kind, Values: pe.Values}
			if kind == scene.PropertyTexture {
				if pe.Texture == nil {
					continue
				}
				tex, err := p.texture(*pe.Texture)
				if err != nil {
					return nil, fmt.Errorf("property %s: %w", pe.Name, err)
				}
				prop.Texture = tex
				prop.Values = nil
			}
			mat.SetProperty(prop)
		}
		return mat, nil
	}

	mat := scene.NewMaterial(name, p.im.defaultShader)
	setTex := func(slot string, info *TextureInfo) error {
		if info == nil {
			return nil
		}
		tex, err := p.texture(info.Index)
		if err != nil {
			return fmt.Errorf("%s: %w", slot, err)
		}
		mat.SetTexture(slot, tex)
		return nil
	}

	metallic, roughness := float32(1), float32(1)
	if pbr := m.PBRMetallicRoughness; pbr != nil {
		if err := setTex(SlotBaseColor, pbr.BaseColorTexture); err != nil {
			return nil, err
		}
		if err := setTex(SlotMetallicRoughness, pbr.MetallicRoughnessTexture); err != nil {
			return nil, err
		}
		if pbr.BaseColorFactor != nil {
			mat.SetColor(SlotBaseColorFactor, *pbr.BaseColorFactor)
		}
		if pbr.MetallicFactor != nil {
			metallic = *pbr.MetallicFactor
		}
		if pbr.RoughnessFactor != nil {
			roughness = *pbr.RoughnessFactor
		}
	}
	mat.SetFloat(SlotMetallic, metallic)
	mat.SetFloat(SlotRoughness, roughness)

	if nt := m.NormalTexture; nt != nil {
		if err := setTex(SlotNormal, &nt.TextureInfo); err != nil {
			return nil, err
		}
		scale := float32(1)
		if nt.Scale != nil {
			scale = *nt.Scale
		}
		mat.SetFloat(SlotNormalScale, scale)
	}
	if ot := m.OcclusionTexture; ot != nil {
		if err := setTex(SlotOcclusion, &ot.TextureInfo); err != nil {
			return nil, err
		}
		strength := float32(1)
		if ot.Strength != nil {
			strength = *ot.Strength
		}
		mat.SetFloat(SlotOcclusionStrength, strength)
	}
	if err := setTex(SlotEmissive, m.EmissiveTexture); err != nil {
		return nil, err
	}
	if ef := m.EmissiveFactor; ef != nil {
		mat.SetColor(SlotEmissiveFactor, [4]float32{ef[0], ef[1], ef[2], 1})
	}
	return mat, nil
}
