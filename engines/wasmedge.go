//go:build wasmedge

package engines

import (
	"github.com/wippyai/wasmbench/backend"
	"github.com/wippyai/wasmbench/backend/wasmedge"
)

func init() {
	compiled = append(compiled, entry{kind: backend.KindWasmEdge, factory: func() backend.Backend { return wasmedge.New() }})
}
