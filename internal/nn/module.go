package nn

import (
	"iter"
	"strings"
)

// Capability is a bitmask of markers assigned to a module when it is built.
// Consumers filter on capabilities instead of inspecting concrete types.
type Capability uint8

const (
	// CapAdapter marks a module that wraps a base transform with low-rank adapter weights.
	CapAdapter Capability = 1 << iota
	// CapDetect marks a detection head.
	CapDetect
)

// Parameter is a named, shaped tensor slot. No data is held; only the shape and
// the trainable flag matter to callers.
type Parameter struct {
	Name      string
	Shape     []int
	Trainable bool
}

// Numel returns the number of elements described by the shape.
func (p *Parameter) Numel() int64 {
	if len(p.Shape) == 0 {
		return 0
	}
	n := int64(1)
	for _, d := range p.Shape {
		n *= int64(d)
	}
	return n
}

type namedChild struct {
	name string
	mod  *Module
}

// Module is a node in a model tree. Parameters and children keep insertion order
// so that traversal, and everything derived from it, is deterministic.
type Module struct {
	Type string
	Caps Capability
	// Conv describes the convolution for nn.Conv2d modules; nil otherwise.
	Conv *ConvSpec
	// Rank is the adapter rank of CapAdapter modules.
	Rank int

	params   []*Parameter
	children []namedChild
}

// New returns an empty module of the given type with the given capabilities.
func New(typ string, caps ...Capability) *Module {
	m := &Module{Type: typ}
	for _, c := range caps {
		m.Caps |= c
	}
	return m
}

// Has reports whether every bit of c is set on the module.
func (m *Module) Has(c Capability) bool { return m.Caps&c == c }

// AddParam registers a new trainable parameter on the module and returns it.
func (m *Module) AddParam(name string, shape ...int) *Parameter {
	p := &Parameter{Name: name, Shape: append([]int(nil), shape...), Trainable: true}
	m.params = append(m.params, p)
	return p
}

// AddChild appends a named child and returns it for chaining.
func (m *Module) AddChild(name string, c *Module) *Module {
	m.children = append(m.children, namedChild{name: name, mod: c})
	return c
}

// SetChild replaces the child registered under name. It reports whether a child was replaced.
func (m *Module) SetChild(name string, c *Module) bool {
	for i := range m.children {
		if m.children[i].name == name {
			m.children[i].mod = c
			return true
		}
	}
	return false
}

// Child returns the direct child with the given name, or nil.
func (m *Module) Child(name string) *Module {
	for _, c := range m.children {
		if c.name == name {
			return c.mod
		}
	}
	return nil
}

// Param returns the module's own parameter with the given name, or nil.
func (m *Module) Param(name string) *Parameter {
	for _, p := range m.params {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// Params returns the module's own parameters, excluding those of children.
func (m *Module) Params() []*Parameter { return append([]*Parameter(nil), m.params...) }

// Children yields the direct children in insertion order.
func (m *Module) Children() iter.Seq2[string, *Module] {
	return func(yield func(string, *Module) bool) {
		for _, c := range m.children {
			if !yield(c.name, c.mod) {
				return
			}
		}
	}
}

// Lookup resolves a dotted module path relative to m. The empty path is m itself.
func (m *Module) Lookup(path string) *Module {
	if path == "" {
		return m
	}
	cur := m
	for _, part := range strings.Split(path, ".") {
		cur = cur.Child(part)
		if cur == nil {
			return nil
		}
	}
	return cur
}

// NamedModules yields every module in the tree in pre-order, starting with m
// under the empty name. The sequence can be ranged over any number of times.
func (m *Module) NamedModules() iter.Seq2[string, *Module] {
	return func(yield func(string, *Module) bool) {
		walkModules("", m, yield)
	}
}

func walkModules(prefix string, m *Module, yield func(string, *Module) bool) bool {
	if !yield(prefix, m) {
		return false
	}
	for _, c := range m.children {
		if !walkModules(join(prefix, c.name), c.mod, yield) {
			return false
		}
	}
	return true
}

// NamedParameters yields every parameter under m with its full dotted name.
// A module's own parameters come before those of its children.
func (m *Module) NamedParameters() iter.Seq2[string, *Parameter] {
	return func(yield func(string, *Parameter) bool) {
		for name, mod := range m.NamedModules() {
			for _, p := range mod.params {
				if !yield(join(name, p.Name), p) {
					return
				}
			}
		}
	}
}

func join(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}
