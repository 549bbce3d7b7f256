//go:build wasmer

package wasmer

import (
	"context"
	"errors"
	"testing"

	"github.com/wippyai/wasmbench/backend"
	"github.com/wippyai/wasmbench/backend/backendtest"
	"github.com/wippyai/wasmbench/config"
	wberrors "github.com/wippyai/wasmbench/errors"
)

func TestConformance(t *testing.T) {
	backendtest.Conformance(t, func() backend.Backend { return New() })
}

func TestLoadModule_CompileError(t *testing.T) {
	ctx := context.Background()
	b := New()
	if err := b.Init(ctx, backend.Env{Limits: config.DefaultLimits()}); err != nil {
		t.Fatal(err)
	}
	defer b.Close(ctx)

	path := backendtest.WriteModule(t, []byte("\x00asm\x01\x00\x00\x00\xff"))
	_, err := backend.LoadModule(ctx, b, path, config.DefaultLimits(), nil)

	var e *wberrors.Error
	if !errors.As(err, &e) || e.Kind != wberrors.KindCompile {
		t.Fatalf("err = %v, want compile error", err)
	}
}
