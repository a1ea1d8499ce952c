package engine

import (
	"slices"
	"sort"
)

// Module is a namespace of bindings. Lookups fall back to the exported
// bindings of the modules it uses.
type Module struct {
	Parent    *Module
	bindings  map[string]Value
	exported  map[string]bool
	Name      string
	usings    []*Module
	exportAll bool
}

// NewModule creates an empty module. It does not use Base or Core.
func NewModule(name string, parent *Module) *Module {
	return &Module{
		Name:     name,
		Parent:   parent,
		bindings: make(map[string]Value),
		exported: make(map[string]bool),
	}
}

// FullName returns the dotted path from the root module.
func (m *Module) FullName() string {
	if m.Parent == nil || m.Parent == m {
		return m.Name
	}
	return m.Parent.FullName() + "." + m.Name
}

// Get returns a binding owned by m.
func (m *Module) Get(name string) (Value, bool) {
	v, ok := m.bindings[name]
	return v, ok
}

// Set creates or replaces a binding owned by m.
func (m *Module) Set(name string, v Value) {
	m.bindings[name] = v
}

// Lookup resolves name in m, then in the exports of the modules m uses.
func (m *Module) Lookup(name string) (Value, bool) {
	if v, ok := m.bindings[name]; ok {
		return v, true
	}
	for _, u := range m.usings {
		if !u.IsExported(name) {
			continue
		}
		if v, ok := u.bindings[name]; ok {
			return v, true
		}
	}
	return nil, false
}

// Use makes the exports of u visible in m.
func (m *Module) Use(u *Module) {
	if slices.Contains(m.usings, u) {
		return
	}
	m.usings = append(m.usings, u)
}

// Export marks names as exported.
func (m *Module) Export(names ...string) {
	for _, n := range names {
		m.exported[n] = true
	}
}

// IsExported reports whether name is exported from m.
func (m *Module) IsExported(name string) bool {
	if m.exportAll {
		_, ok := m.bindings[name]
		return ok
	}
	return m.exported[name]
}

// Exports returns the exported names that are bound, sorted.
func (m *Module) Exports() []string {
	var names []string
	if m.exportAll {
		for n := range m.bindings {
			names = append(names, n)
		}
	} else {
		for n := range m.exported {
			if _, ok := m.bindings[n]; ok {
				names = append(names, n)
			}
		}
	}
	sort.Strings(names)
	return names
}

// Names returns every binding owned by m, sorted.
func (m *Module) Names() []string {
	names := make([]string, 0, len(m.bindings))
	for n := range m.bindings {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
