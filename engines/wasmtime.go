//go:build wasmtime

package engines

import (
	"github.com/wippyai/wasmbench/backend"
	"github.com/wippyai/wasmbench/backend/wasmtime"
)

func init() {
	compiled = append(compiled, entry{kind: backend.KindWasmtime, factory: func() backend.Backend { return wasmtime.New() }})
}
