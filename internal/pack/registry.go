package pack

import "sort"

// Factory creates a fresh pack instance per Session.
type Factory func() ScriptPack

// Registry maps pack names to factories. Packs are statically linked; there
// is no discovery from disk.
type Registry struct {
	factories map[string]Factory
}

func NewRegistry() *Registry {
	return &Registry{factories: map[string]Factory{}}
}

// DefaultRegistry returns a registry with the built-in packs.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(JQPackName, func() ScriptPack { return NewJQPack() })
	return r
}

// Register adds or replaces a factory.
func (r *Registry) Register(name string, f Factory) {
	r.factories[name] = f
}

// Names returns registered pack names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve instantiates the named packs in the given order.
func (r *Registry) Resolve(names []string) ([]ScriptPack, error) {
	packs := make([]ScriptPack, 0, len(names))
	for _, name := range names {
		f, ok := r.factories[name]
		if !ok {
			return nil, &NotFoundError{Name: name}
		}
		packs = append(packs, f())
	}
	return packs, nil
}
