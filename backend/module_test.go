package backend_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/wippyai/wasmbench/backend"
	"github.com/wippyai/wasmbench/backend/backendtest"
	"github.com/wippyai/wasmbench/config"
	wberrors "github.com/wippyai/wasmbench/errors"
)

func writeModule(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "guest.wasm")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadModule_Generic(t *testing.T) {
	ctx := context.Background()
	data := backendtest.MustCompile(`(module
		(func (export "event") (param i64) (result i64) (local.get 0))
		(func (export "thread_init")))`)
	path := writeModule(t, data)

	limits := config.DefaultLimits()
	limits.BufferSize = 128

	mod, err := backend.LoadModule(ctx, backendtest.New(nil), path, limits, nil)
	if err != nil {
		t.Fatalf("LoadModule: %v", err)
	}
	if mod.Size() != len(data) {
		t.Errorf("Size() = %d, want %d", mod.Size(), len(data))
	}
	if mod.Path != path {
		t.Errorf("Path = %q", mod.Path)
	}
	if mod.Limits.BufferSize != 128 {
		t.Errorf("Limits not applied: %+v", mod.Limits)
	}
	if !mod.Scanned() || !mod.HasExport("event") || mod.HasExport("create_buffer") {
		t.Error("export scan mismatch")
	}

	exports := mod.Exports()
	sort.Strings(exports)
	if len(exports) != 2 || exports[0] != "event" || exports[1] != "thread_init" {
		t.Errorf("Exports() = %v", exports)
	}

	sig, ok := mod.Signature("event")
	if !ok || len(sig.Params) != 1 || sig.Params[0] != backend.ValI64 {
		t.Errorf("Signature(event) = %v, %v", sig, ok)
	}
}

func TestNewModule_Exports(t *testing.T) {
	// (rec (type (func))) exporting "event": GC toolchains emit rec groups
	// even for plain function types.
	recGroup := []byte{
		0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00,
		0x01, 0x06, 0x01, 0x4e, 0x01, 0x60, 0x00, 0x00,
		0x03, 0x02, 0x01, 0x00,
		0x07, 0x09, 0x01, 0x05, 'e', 'v', 'e', 'n', 't', 0x00, 0x00,
		0x0a, 0x04, 0x01, 0x02, 0x00, 0x0b,
	}

	tests := []struct {
		name   string
		data   []byte
		export string
		params []backend.ValType
		memory string
	}{
		{
			name:   "guest",
			data:   backendtest.GuestModule(),
			export: "event_tid",
			params: []backend.ValType{backend.ValI32, backend.ValI64},
			memory: "memory",
		},
		{
			name:   "rec group",
			data:   recGroup,
			export: "event",
		},
		{
			name: "imported func shifts index",
			data: backendtest.MustCompile(`(module
				(import "env" "log" (func (param i32)))
				(func (export "event") (param i64) (result i64) (local.get 0)))`),
			export: "event",
			params: []backend.ValType{backend.ValI64},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mod := backend.NewModule("x.wasm", tt.data, config.DefaultLimits())
			if !mod.Scanned() {
				t.Fatal("module should be scanned")
			}
			if !mod.HasExport(tt.export) {
				t.Fatalf("HasExport(%q) = false, exports %v", tt.export, mod.Exports())
			}
			sig, ok := mod.Signature(tt.export)
			if !ok {
				t.Fatalf("Signature(%q) unknown", tt.export)
			}
			if len(sig.Params) != len(tt.params) {
				t.Fatalf("Signature(%q) = %v, want params %v", tt.export, sig, tt.params)
			}
			for i, p := range tt.params {
				if sig.Params[i] != p {
					t.Errorf("param %d = %v, want %v", i, sig.Params[i], p)
				}
			}
			if err := sig.Check(tt.export); err != nil {
				t.Errorf("Check: %v", err)
			}
			if mod.MemoryExport() != tt.memory {
				t.Errorf("MemoryExport() = %q, want %q", mod.MemoryExport(), tt.memory)
			}
		})
	}
}

func TestLoadModule_MissingFile(t *testing.T) {
	_, err := backend.LoadModule(context.Background(), backendtest.New(nil),
		filepath.Join(t.TempDir(), "nope.wasm"), config.DefaultLimits(), nil)

	var e *wberrors.Error
	if !errors.As(err, &e) || e.Phase != wberrors.PhaseLoad {
		t.Fatalf("err = %v, want load error", err)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Error("cause should be os.ErrNotExist")
	}
}

func TestLoadModule_EmptyPath(t *testing.T) {
	_, err := backend.LoadModule(context.Background(), backendtest.New(nil), "", config.DefaultLimits(), nil)
	if !errors.Is(err, wberrors.ErrMissingPath) {
		t.Errorf("err = %v, want ErrMissingPath", err)
	}
}

func TestLoadModule_UnscannableStillLoads(t *testing.T) {
	path := writeModule(t, []byte("not wasm at all"))

	mod, err := backend.LoadModule(context.Background(), backendtest.New(nil), path, config.DefaultLimits(), nil)
	if err != nil {
		t.Fatalf("generic loader must not validate: %v", err)
	}
	if mod.Scanned() || mod.Exports() != nil {
		t.Error("garbage module should not be scanned")
	}
	if _, ok := mod.Signature("event"); ok {
		t.Error("Signature should be unknown")
	}
}

func TestLoadModule_AdapterLoader(t *testing.T) {
	b := backendtest.NewLoader(nil)
	limits := config.DefaultLimits()
	limits.HeapSize = 42

	mod, err := backend.LoadModule(context.Background(), b, "virtual.wasm", limits, nil)
	if err != nil {
		t.Fatalf("LoadModule: %v", err)
	}
	if b.Loads.Load() != 1 {
		t.Errorf("adapter loader called %d times", b.Loads.Load())
	}
	if mod.Native != "virtual.wasm" {
		t.Errorf("Native = %v", mod.Native)
	}
	if mod.Limits.HeapSize != 42 {
		t.Errorf("Limits = %+v", mod.Limits)
	}

	b.LoadErr = wberrors.Compile("wazero", errors.New("bad magic"))
	if _, err := backend.LoadModule(context.Background(), b, "virtual.wasm", limits, nil); err == nil {
		t.Error("adapter loader error should propagate")
	}
}

func TestModule_CloseOnce(t *testing.T) {
	mod := backend.NewModule("x.wasm", []byte{1, 2, 3}, config.DefaultLimits())
	calls := 0
	mod.OnClose(func(context.Context) error {
		calls++
		return nil
	})

	ctx := context.Background()
	if err := mod.Close(ctx); err != nil {
		t.Fatal(err)
	}
	if err := mod.Close(ctx); err != nil {
		t.Fatal(err)
	}
	if calls != 1 {
		t.Errorf("release called %d times, want 1", calls)
	}
	if mod.Size() != 0 {
		t.Error("bytes should be released")
	}
}
