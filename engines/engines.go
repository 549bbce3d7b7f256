// Package engines assembles the registry of engine adapters compiled into
// this binary. wazero is always present; the cgo engines are added by build
// tags:
//
//	go build -tags wamr,wasmtime ./cmd/wasmbench
package engines

import (
	"github.com/wippyai/wasmbench/backend"
	"github.com/wippyai/wasmbench/backend/wazero"
)

type entry struct {
	factory backend.Factory
	kind    backend.Kind
}

// compiled is appended to by the build-tagged files' init functions.
var compiled = []entry{
	{kind: backend.KindWazero, factory: func() backend.Backend { return wazero.New() }},
}

// NewRegistry returns a registry holding every compiled-in engine.
func NewRegistry() *backend.Registry {
	reg := backend.NewRegistry()
	for _, e := range compiled {
		reg.MustRegister(e.kind, e.factory)
	}
	return reg
}

// Available lists the compiled-in engine names.
func Available() []string {
	names := make([]string, len(compiled))
	for i, e := range compiled {
		names[i] = e.kind.String()
	}
	return names
}
