package pack

import (
	"fmt"
	"log/slog"
)

// Session is the pack-session container.
//
// It holds the packs, the references and namespaces they declared, and a
// State map that other components key their own long-lived data into. The
// engine stores its compilation state under engine.SessionKey.
//
// A Session is not safe for concurrent use; callers serialize activity
// against it.
type Session struct {
	id         string
	packs      []ScriptPack
	references []string
	namespaces []string
	manager    *Manager
	logger     *slog.Logger

	// State is free-form storage scoped to the Session's lifetime.
	State map[string]any
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithIDGenerator sets the generator used for the session ID.
// Default is UUIDv7Generator.
func WithIDGenerator(g IDGenerator) SessionOption {
	return func(s *Session) {
		s.id = g.Generate()
	}
}

// WithLogger sets the logger for lifecycle messages. Default is slog.Default().
func WithLogger(l *slog.Logger) SessionOption {
	return func(s *Session) {
		s.logger = l
	}
}

// NewSession creates a Session over packs, in registration order.
func NewSession(packs []ScriptPack, opts ...SessionOption) *Session {
	s := &Session{
		packs:      append([]ScriptPack(nil), packs...),
		references: []string{},
		namespaces: []string{},
		State:      map[string]any{},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.id == "" {
		s.id = UUIDv7Generator{}.Generate()
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.manager = newManager(s.packs)
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Packs returns the packs in registration order.
func (s *Session) Packs() []ScriptPack {
	return append([]ScriptPack(nil), s.packs...)
}

// Contexts returns each pack's Context in registration order.
func (s *Session) Contexts() []Context {
	contexts := make([]Context, 0, len(s.packs))
	for _, p := range s.packs {
		contexts = append(contexts, p.Context())
	}
	return contexts
}

// Manager returns the lookup used by Host.Require.
func (s *Session) Manager() *Manager { return s.manager }

// AddReference records a reference the packs need. Duplicates are kept.
func (s *Session) AddReference(ref string) {
	s.references = append(s.references, ref)
}

// ImportNamespace records a namespace the packs need. Duplicates are kept.
func (s *Session) ImportNamespace(ns string) {
	s.namespaces = append(s.namespaces, ns)
}

// References returns a copy of the declared references.
func (s *Session) References() []string {
	return append([]string(nil), s.references...)
}

// Namespaces returns a copy of the declared namespaces.
func (s *Session) Namespaces() []string {
	return append([]string(nil), s.namespaces...)
}

// InitializePacks runs every pack's Initialize in registration order and
// stops at the first failure.
func (s *Session) InitializePacks() error {
	for _, p := range s.packs {
		s.logger.Debug("initializing pack", "pack", p.Name(), "session", s.id)
		if err := p.Initialize(s); err != nil {
			return fmt.Errorf("initialize pack %q: %w", p.Name(), err)
		}
	}
	return nil
}

// TerminatePacks runs every pack's Terminate in registration order.
// Failures are logged and do not stop the remaining packs.
func (s *Session) TerminatePacks() {
	for _, p := range s.packs {
		if err := p.Terminate(); err != nil {
			s.logger.Error("pack terminate failed", "pack", p.Name(), "session", s.id, "error", err)
		}
	}
}
