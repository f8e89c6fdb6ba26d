package scene

import (
	"strings"

	"github.com/google/uuid"
)

// Object is the in-memory Node implementation.
type Object struct {
	id         uuid.UUID
	name       string
	transform  Transform
	parent     *Object
	children   []*Object
	renderer   *Renderer
	animations []*AnimationClip
	components []Component
}

var _ Node = (*Object)(nil)

// NewObject creates an object with an identity transform.
func NewObject(name string) *Object {
	return &Object{
		id:        uuid.New(),
		name:      name,
		transform: IdentityTransform(),
	}
}

func (o *Object) ID() uuid.UUID             { return o.id }
func (o *Object) Name() string              { return o.name }
func (o *Object) LocalTransform() Transform { return o.transform }
func (o *Object) Renderer() *Renderer       { return o.renderer }
func (o *Object) Components() []Component   { return o.components }

func (o *Object) Animations() []*AnimationClip { return o.animations }

// Children returns the children in insertion order.
func (o *Object) Children() []Node {
	nodes := make([]Node, len(o.children))
	for i, c := range o.children {
		nodes[i] = c
	}
	return nodes
}

// Parent returns the parent object or nil for a root.
func (o *Object) Parent() *Object { return o.parent }

// ChildObjects returns the concrete children.
func (o *Object) ChildObjects() []*Object { return o.children }

func (o *Object) SetName(name string)             { o.name = name }
func (o *Object) SetTransform(t Transform)        { o.transform = t }
func (o *Object) SetRenderer(r *Renderer)         { o.renderer = r }
func (o *Object) AddAnimation(c *AnimationClip)   { o.animations = append(o.animations, c) }
func (o *Object) AddComponent(c Component)        { o.components = append(o.components, c) }
func (o *Object) SetComponents(comps []Component) { o.components = comps }

// AddChild appends child and reparents it.
func (o *Object) AddChild(child *Object) {
	if child.parent != nil {
		child.parent.removeChild(child)
	}
	child.parent = o
	o.children = append(o.children, child)
}

func (o *Object) removeChild(child *Object) {
	for i, c := range o.children {
		if c == child {
			o.children = append(o.children[:i], o.children[i+1:]...)
			return
		}
	}
}

// Find resolves a slash separated path of child names relative to n.
// The empty path resolves to n itself.
func Find(n Node, path string) Node {
	if path == "" {
		return n
	}
	cur := n
	for _, part := range strings.Split(path, "/") {
		var next Node
		for _, c := range cur.Children() {
			if c.Name() == part {
				next = c
				break
			}
		}
		if next == nil {
			return nil
		}
		cur = next
	}
	return cur
}

// PathTo returns the slash separated path from root down to target, or false if
// target is not in root's subtree.
func PathTo(root, target Node) (string, bool) {
	if root.ID() == target.ID() {
		return "", true
	}
	for _, c := range root.Children() {
		if p, ok := PathTo(c, target); ok {
			if p == "" {
				return c.Name(), true
			}
			return c.Name() + "/" + p, true
		}
	}
	return "", false
}

// Walk visits n and its descendants in pre-order until fn returns false.
func Walk(n Node, fn func(Node) bool) bool {
	if !fn(n) {
		return false
	}
	for _, c := range n.Children() {
		if !Walk(c, fn) {
			return false
		}
	}
	return true
}
