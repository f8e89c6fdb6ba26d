package gltf

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Faultbox/midgard-gltf/pkg/scene"
)

// mainTextureSlots are property names recognised as the base color texture, in priority order.
var mainTextureSlots = []string{
	"_MainTex",
	"_BaseMap",
	"_BaseColorMap",
	"u_BaseColorSampler",
	"baseColorTexture",
}

// Sampler presets are indexed by linear<<2 | mip<<1 | repeat.
const samplerPresetCount = 8

func samplerIndex(t scene.Texture) int {
	idx := 0
	if t.FilterMode() != scene.FilterPoint {
		idx |= 4
	}
	if t.MipCount() > 1 {
		idx |= 2
	}
	if t.WrapMode() == scene.WrapRepeat {
		idx |= 1
	}
	return idx
}

func samplerPresets() []Sampler {
	out := make([]Sampler, samplerPresetCount)
	for i := range out {
		linear, mip, repeat := i&4 != 0, i&2 != 0, i&1 != 0

		magF, minF := FilterNearest, FilterNearest
		if linear {
			magF, minF = FilterLinear, FilterLinear
		}
		if mip {
			minF = FilterNearestMipmapNearest
			if linear {
				minF = FilterLinearMipmapLinear
			}
		}
		wrap := WrapClampToEdge
		if repeat {
			wrap = WrapRepeat
		}
		out[i] = Sampler{MagFilter: ptr(magF), MinFilter: ptr(minF), WrapS: ptr(wrap), WrapT: ptr(wrap)}
	}
	return out
}

// exportMaterials writes every interned material with its full property list in
// extras, then the textures those properties reference.
func (p *exportPass) exportMaterials() {
	for i, m := range p.cache.Materials() {
		name := m.Name()
		if name == "" {
			name = fmt.Sprintf("material_%d", i)
		}
		gm := Material{
			Name:   name,
			Extras: &MaterialExtras{Shader: m.Shader()},
		}

		slots := make(map[string]int)
		for _, prop := range m.Properties() {
			pe := PropertyExtra{Name: prop.Name, Type: prop.Kind.String()}
			if prop.Kind == scene.PropertyTexture {
				if prop.Texture == nil {
					continue
				}
				ti := p.cache.InternTexture(prop.Texture)
				pe.Texture = ptr(ti)
				slots[prop.Name] = ti
			} else {
				pe.Values = prop.Values
			}
			gm.Extras.Properties = append(gm.Extras.Properties, pe)
		}

		for _, slot := range mainTextureSlots {
			if ti, ok := slots[slot]; ok {
				gm.PBRMetallicRoughness = &PBRMetallicRoughness{
					BaseColorTexture: &TextureInfo{Index: ti},
				}
				break
			}
		}
		p.doc.Materials = append(p.doc.Materials, gm)
	}

	textures := p.cache.Textures()
	if len(textures) == 0 {
		return
	}
	p.doc.Samplers = samplerPresets()
	for i, t := range textures {
		name := t.Name()
		if name == "" {
			name = fmt.Sprintf("texture_%d", i)
		}
		img := p.exportImage(t, name)
		p.doc.Images = append(p.doc.Images, Image{Name: name, URI: img.URI})
		p.images = append(p.images, img)
		p.doc.Textures = append(p.doc.Textures, Texture{
			Name:    name,
			Sampler: ptr(samplerIndex(t)),
			Source:  ptr(i),
		})
	}
}

// exportImage decides the URI of a texture image and whether it is copied or
// transcoded. A missing source is reported and the URI is still emitted.
func (p *exportPass) exportImage(t scene.Texture, name string) ImageFile {
	img := p.describeImage(t, name)
	img.URI = p.claimURI(img.URI)
	return img
}

func (p *exportPass) describeImage(t scene.Texture, name string) ImageFile {
	src := t.SourcePath()
	if src == "" {
		p.warn(fmt.Errorf("texture %q: no source image: %w", name, ErrMissingExternalFile))
		return ImageFile{URI: name + ".png"}
	}
	base := filepath.Base(src)
	img := ImageFile{URI: base, Source: src}

	if _, err := os.Stat(src); err != nil {
		p.warn(fmt.Errorf("texture %q: %s: %w", name, src, ErrMissingExternalFile))
		img.Source = ""
		return img
	}

	ext := filepath.Ext(base)
	if strings.EqualFold(ext, ".png") {
		img.Copy = true
		return img
	}
	if p.e.transcode && canTranscode(src) {
		img.URI = strings.TrimSuffix(base, ext) + ".png"
		img.Transcode = true
		return img
	}
	img.Copy = true
	return img
}

// claimURI reserves uri for one image, appending _1, _2 ... before the extension
// when another image already uses it. Case is ignored since images share a directory.
func (p *exportPass) claimURI(uri string) string {
	if p.usedURIs == nil {
		p.usedURIs = make(map[string]bool)
	}
	ext := filepath.Ext(uri)
	stem := strings.TrimSuffix(uri, ext)
	candidate := uri
	for i := 1; p.usedURIs[strings.ToLower(candidate)]; i++ {
		candidate = fmt.Sprintf("%s_%d%s", stem, i, ext)
	}
	p.usedURIs[strings.ToLower(candidate)] = true
	return candidate
}
