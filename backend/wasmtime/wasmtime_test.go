//go:build wasmtime

package wasmtime

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

func TestCreateSandbox_InstantiateFailure(t *testing.T) {
	ctx := context.Background()
	b := New()
	if err := b.Init(ctx, backend.Env{Limits: config.DefaultLimits()}); err != nil {
		t.Fatal(err)
	}
	defer b.Close(ctx)

	// Unresolvable import: linking fails after the store and linker exist.
	data := backendtest.MustCompile(`(module
		(import "env" "missing" (func))
		(func (export "event") (param i64) (result i64) (local.get 0)))`)
	tests := []struct {
		name string
		mod  func(t *testing.T) *backend.Module
	}{
		{"adapter loaded", func(t *testing.T) *backend.Module {
			mod, err := backend.LoadModule(ctx, b, backendtest.WriteModule(t, data), config.DefaultLimits(), nil)
			if err != nil {
				t.Fatal(err)
			}
			t.Cleanup(func() { _ = mod.Close(ctx) })
			return mod
		}},
		{"raw bytes", func(*testing.T) *backend.Module {
			return backend.NewModule("guest.wasm", data, config.DefaultLimits())
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mod := tt.mod(t)
			for i := 0; i < 3; i++ {
				sb, err := b.CreateSandbox(ctx, mod, i)
				if sb != nil {
					t.Fatal("failed CreateSandbox returned a context")
				}
				var e *wberrors.Error
				if !errors.As(err, &e) || e.Phase != wberrors.PhaseSandbox || e.Kind != wberrors.KindInstantiation {
					t.Fatalf("err = %v, want sandbox creation error", err)
				}
			}
		})
	}

	good, err := backend.LoadModule(ctx, b, backendtest.WriteModule(t, backendtest.GuestModule()), config.DefaultLimits(), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer good.Close(ctx)
	sb, err := b.CreateSandbox(ctx, good, 0)
	if err != nil {
		t.Fatalf("engine unusable after failed sandboxes: %v", err)
	}
	_ = sb.Close(ctx)
}
