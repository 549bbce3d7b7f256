//go:build wasmer

package engines

import (
	"github.com/wippyai/wasmbench/backend"
	"github.com/wippyai/wasmbench/backend/wasmer"
)

func init() {
	compiled = append(compiled, entry{kind: backend.KindWasmer, factory: func() backend.Backend { return wasmer.New() }})
}
