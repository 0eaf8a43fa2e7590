package pack

// Manager looks up pack contexts by name.
type Manager struct {
	byName map[string]ScriptPack
}

func newManager(packs []ScriptPack) *Manager {
	m := &Manager{byName: make(map[string]ScriptPack, len(packs))}
	for _, p := range packs {
		// first registration wins
		if _, ok := m.byName[p.Name()]; !ok {
			m.byName[p.Name()] = p
		}
	}
	return m
}

// Require returns the Context of the named pack.
func (m *Manager) Require(name string) (Context, error) {
	p, ok := m.byName[name]
	if !ok {
		return nil, &NotFoundError{Name: name}
	}
	return p.Context(), nil
}

// Host is the binding object every submission sees.
//
// The runtime exposes it to scripts as package "scripthost/host":
//
//	jq, _ := host.Require("jq")
//	fmt.Println(host.Args)
type Host struct {
	Args    []string
	manager *Manager
}

// Require returns the Context of the named pack.
func (h *Host) Require(name string) (Context, error) {
	if h.manager == nil {
		return nil, &NotFoundError{Name: name}
	}
	return h.manager.Require(name)
}

// HostFactory builds the Host for a session's first submission.
type HostFactory func(m *Manager, args []string) *Host

// DefaultHostFactory copies args so later mutation by the caller is not
// visible to scripts.
func DefaultHostFactory(m *Manager, args []string) *Host {
	return &Host{
		Args:    append([]string{}, args...),
		manager: m,
	}
}
