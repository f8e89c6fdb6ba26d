package scene

import (
	"fmt"

	"github.com/google/uuid"
)

// PropertyKind is the type of a material property.
type PropertyKind uint8

const (
	PropertyTexture PropertyKind = iota
	PropertyFloat
	PropertyVector
	PropertyColor
)

var propertyKindNames = [...]string{"Texture", "Float", "Vector", "Color"}

func (k PropertyKind) String() string {
	if int(k) < len(propertyKindNames) {
		return propertyKindNames[k]
	}
	return fmt.Sprintf("PropertyKind(%d)", k)
}

// ParsePropertyKind converts a kind name back to a PropertyKind.
func ParsePropertyKind(s string) (PropertyKind, error) {
	for i, n := range propertyKindNames {
		if n == s {
			return PropertyKind(i), nil
		}
	}
	return 0, fmt.Errorf("unknown material property kind %q", s)
}

// MaterialProperty is one entry of a shader property bag.
// Texture is set for PropertyTexture, Values otherwise.
type MaterialProperty struct {
	Name    string
	Kind    PropertyKind
	Values  []float32
	Texture Texture
}

// Material is an opaque shader plus its property list.
type Material interface {
	ID() uuid.UUID
	Name() string
	Shader() string
	Properties() []MaterialProperty
}

// MaterialAsset is the in-memory Material implementation.
type MaterialAsset struct {
	id     uuid.UUID
	name   string
	shader string
	props  []MaterialProperty
}

var _ Material = (*MaterialAsset)(nil)

// NewMaterial creates a material for the given shader.
func NewMaterial(name, shader string, props ...MaterialProperty) *MaterialAsset {
	return &MaterialAsset{id: uuid.New(), name: name, shader: shader, props: props}
}

func (m *MaterialAsset) ID() uuid.UUID                  { return m.id }
func (m *MaterialAsset) Name() string                   { return m.name }
func (m *MaterialAsset) Shader() string                 { return m.shader }
func (m *MaterialAsset) Properties() []MaterialProperty { return m.props }

// SetProperty replaces the property with the same name or appends it.
func (m *MaterialAsset) SetProperty(p MaterialProperty) {
	for i := range m.props {
		if m.props[i].Name == p.Name {
			m.props[i] = p
			return
		}
	}
	m.props = append(m.props, p)
}

// Property looks a property up by name.
func (m *MaterialAsset) Property(name string) (MaterialProperty, bool) {
	for _, p := range m.props {
		if p.Name == name {
			return p, true
		}
	}
	return MaterialProperty{}, false
}

// SetTexture is shorthand for a texture property.
func (m *MaterialAsset) SetTexture(name string, t Texture) {
	m.SetProperty(MaterialProperty{Name: name, Kind: PropertyTexture, Texture: t})
}

// SetFloat is shorthand for a float property.
func (m *MaterialAsset) SetFloat(name string, v float32) {
	m.SetProperty(MaterialProperty{Name: name, Kind: PropertyFloat, Values: []float32{v}})
}

// SetColor is shorthand for an RGBA color property.
func (m *MaterialAsset) SetColor(name string, rgba [4]float32) {
	m.SetProperty(MaterialProperty{Name: name, Kind: PropertyColor, Values: rgba[:]})
}
