// Package pack implements the extension-pack lifecycle.
//
// A ScriptPack contributes references, namespaces and a Context object to a
// pack Session. The Session is the long-lived container the engine anchors
// its compilation state to: one Session per REPL or batch run, shared by
// every submission within it.
//
// Lifecycle:
//
//	packs, _ := registry.Resolve([]string{"jq"})
//	s := pack.NewSession(packs)
//	if err := s.InitializePacks(); err != nil { ... }
//	defer s.TerminatePacks()
package pack

import (
	"errors"
	"fmt"
)

// Context is the object a pack exposes to scripts through Host.Require.
type Context any

// ScriptPack is an extension that participates in a Session.
type ScriptPack interface {
	// Name identifies the pack for Require and for the registry.
	Name() string

	// Initialize runs once per Session, before any script executes.
	// Packs register references and namespaces here.
	Initialize(s *Session) error

	// Context returns the object scripts receive from Require.
	Context() Context

	// Terminate runs once when the Session ends.
	Terminate() error
}

// ErrPackNotFound is returned when Require or Resolve names an unknown pack.
var ErrPackNotFound = errors.New("pack not found")

// NotFoundError names the pack that could not be found.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("pack %q not found", e.Name)
}

func (e *NotFoundError) Unwrap() error {
	return ErrPackNotFound
}
