package gointerp

import (
	"reflect"

	"github.com/traefik/yaegi/interp"

	"github.com/roach88/scripthost/internal/pack"
)

// HostImportPath is the import path scripts use for the binding object.
const HostImportPath = "scripthost/host"

// hostExports builds the symbol table for HostImportPath. The key is
// "<import path>/<package name>" as the interpreter expects.
func hostExports(h *pack.Host) interp.Exports {
	return interp.Exports{
		HostImportPath + "/host": {
			"Args":    reflect.ValueOf(&h.Args).Elem(),
			"Require": reflect.ValueOf(h.Require),
			"JQ":      reflect.ValueOf((*pack.JQ)(nil)),
		},
	}
}
