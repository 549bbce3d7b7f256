package wazero

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
	if !errors.As(err, &e) || e.Kind != wberrors.KindCompile || e.Runtime != "wazero" {
		t.Fatalf("err = %v, want compile error", err)
	}
}

func TestCreateSandbox_GenericModule(t *testing.T) {
	ctx := context.Background()
	b := New()
	if err := b.Init(ctx, backend.Env{Limits: config.DefaultLimits()}); err != nil {
		t.Fatal(err)
	}
	defer b.Close(ctx)

	mod := backend.NewModule("guest.wasm", backendtest.GuestModule(), config.DefaultLimits())
	defer mod.Close(ctx)

	for tid := 0; tid < 3; tid++ {
		sb, err := b.CreateSandbox(ctx, mod, tid)
		if err != nil {
			t.Fatalf("CreateSandbox(%d): %v", tid, err)
		}
		v := int64(tid)
		if err := sb.FunctionApply(ctx, "event", tid, &v); err != nil || v != int64(tid)+1 {
			t.Errorf("event = %d, %v", v, err)
		}
		if err := sb.Close(ctx); err != nil {
			t.Fatal(err)
		}
	}
}

func TestCreateSandbox_NotInitialized(t *testing.T) {
	mod := backend.NewModule("guest.wasm", backendtest.GuestModule(), config.DefaultLimits())
	_, err := New().CreateSandbox(context.Background(), mod, 4)

	var e *wberrors.Error
	if !errors.As(err, &e) || e.Phase != wberrors.PhaseSandbox || e.Thread != 4 {
		t.Fatalf("err = %v", err)
	}
}

func TestSandbox_ClosedRejectsCalls(t *testing.T) {
	ctx := context.Background()
	b := New()
	if err := b.Init(ctx, backend.Env{Limits: config.DefaultLimits()}); err != nil {
		t.Fatal(err)
	}
	defer b.Close(ctx)

	mod := backend.NewModule("guest.wasm", backendtest.GuestModule(), config.DefaultLimits())
	sb, err := b.CreateSandbox(ctx, mod, 0)
	if err != nil {
		t.Fatal(err)
	}
	if err := sb.Close(ctx); err != nil {
		t.Fatal(err)
	}
	if err := sb.Close(ctx); err != nil {
		t.Errorf("second Close = %v", err)
	}

	var v int64
	err = sb.FunctionApply(ctx, "event", 0, &v)
	var e *wberrors.Error
	if !errors.As(err, &e) || e.Kind != wberrors.KindNotInitialized {
		t.Errorf("call after close = %v", err)
	}
	if sb.FunctionAvailable("event") {
		t.Error("closed sandbox should expose nothing")
	}
}

func TestInit_MemoryLimit(t *testing.T) {
	ctx := context.Background()
	b := New()
	limits := config.DefaultLimits()
	limits.MemoryPages = 1
	if err := b.Init(ctx, backend.Env{Limits: limits}); err != nil {
		t.Fatal(err)
	}
	defer b.Close(ctx)

	mod, err := backend.LoadModule(ctx, b, backendtest.WriteModule(t, backendtest.GuestModule()), limits, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer mod.Close(ctx)

	if _, err := b.CreateSandbox(ctx, mod, 0); err != nil {
		t.Fatalf("one page module should fit a one page limit: %v", err)
	}
}
