//go:build wamr && cgo

package engines

import (
	"github.com/wippyai/wasmbench/backend"
	"github.com/wippyai/wasmbench/backend/wamr"
)

func init() {
	compiled = append(compiled, entry{kind: backend.KindWAMR, factory: func() backend.Backend { return wamr.New() }})
}
