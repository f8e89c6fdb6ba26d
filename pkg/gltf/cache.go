package gltf

import (
	"github.com/google/uuid"

	"github.com/Faultbox/midgard-gltf/pkg/scene"
)

type identified interface {
	ID() uuid.UUID
}

// interner assigns indices in first-seen order.
type interner[T identified] struct {
	items []T
	index map[uuid.UUID]int
}

func (n *interner[T]) intern(v T) (idx int, added bool) {
	if n.index == nil {
		n.index = make(map[uuid.UUID]int)
	}
	if i, ok := n.index[v.ID()]; ok {
		return i, false
	}
	n.items = append(n.items, v)
	n.index[v.ID()] = len(n.items) - 1
	return len(n.items) - 1, true
}

// Cache deduplicates meshes, materials and textures for one export pass.
type Cache struct {
	meshes    interner[scene.Mesh]
	materials interner[scene.Material]
	textures  interner[scene.Texture]
}

// InternMesh returns the index of m, adding it on first sight.
func (c *Cache) InternMesh(m scene.Mesh) int {
	i, _ := c.meshes.intern(m)
	return i
}

// InternMaterial returns the index of m, adding it on first sight.
func (c *Cache) InternMaterial(m scene.Material) int {
	i, _ := c.materials.intern(m)
	return i
}

// InternTexture returns the index of t, adding it on first sight.
func (c *Cache) InternTexture(t scene.Texture) int {
	i, _ := c.textures.intern(t)
	return i
}

func (c *Cache) Meshes() []scene.Mesh         { return c.meshes.items }
func (c *Cache) Materials() []scene.Material { return c.materials.items }
func (c *Cache) Textures() []scene.Texture   { return c.textures.items }
