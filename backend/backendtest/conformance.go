package backendtest

import (
	"context"
	"encoding/binary"
	"errors"
	"testing"
	"unsafe"

	"github.com/wippyai/wasmbench"
	"github.com/wippyai/wasmbench/backend"
	"github.com/wippyai/wasmbench/config"
	wberrors "github.com/wippyai/wasmbench/errors"
)

// Conformance runs the adapter contract against a fresh backend from
// newBackend. Every engine adapter's tests call it.
func Conformance(t *testing.T, newBackend func() backend.Backend) {
	t.Helper()
	ctx := context.Background()

	b := newBackend()
	limits := config.DefaultLimits()
	threads := 2
	if b.MaxThreads() == 1 {
		threads = 1
	}
	if err := b.Init(ctx, backend.Env{Limits: limits, Threads: threads}); err != nil {
		t.Fatalf("Init: %v", err)
	}
	defer b.Close(ctx)

	mod, err := backend.LoadModule(ctx, b, WriteModule(t, GuestModule()), limits, nil)
	if err != nil {
		t.Fatalf("LoadModule: %v", err)
	}
	defer mod.Close(ctx)

	sb, err := b.CreateSandbox(ctx, mod, 0)
	if err != nil {
		t.Fatalf("CreateSandbox: %v", err)
	}
	defer sb.Close(ctx)

	t.Run("FunctionAvailable", func(t *testing.T) {
		for _, name := range []string{"event", "create_buffer", "thread_init", "trap"} {
			if !sb.FunctionAvailable(name) {
				t.Errorf("%s should be available", name)
			}
		}
		for _, name := range []string{"missing", "memory", ""} {
			if sb.FunctionAvailable(name) {
				t.Errorf("%q should not be available", name)
			}
		}
	})

	t.Run("Event", func(t *testing.T) {
		v := int64(41)
		if err := sb.FunctionApply(ctx, "event", 0, &v); err != nil {
			t.Fatal(err)
		}
		if v != 42 {
			t.Errorf("event(41) = %d", v)
		}
	})

	t.Run("EngineSignatures", func(t *testing.T) {
		// Same engine module, without the load-time export scan.
		unscanned := &backend.Module{Native: mod.Native, Path: mod.Path, Bytes: mod.Bytes, Limits: mod.Limits}
		if unscanned.Scanned() {
			t.Fatal("copy should not carry scanned exports")
		}
		sb2, err := b.CreateSandbox(ctx, unscanned, 1)
		if err != nil {
			t.Fatalf("CreateSandbox: %v", err)
		}
		defer sb2.Close(ctx)

		v := int64(100)
		if err := sb2.FunctionApply(ctx, "event_tid", 1, &v); err != nil {
			t.Fatal(err)
		}
		if v != 101 {
			t.Errorf("event_tid(1, 100) = %d, want 101", v)
		}
		v = 0
		if err := sb2.FunctionApply(ctx, "neg", 1, &v); err != nil {
			t.Fatal(err)
		}
		if v != -1 {
			t.Errorf("neg() = %d, want -1", v)
		}
	})

	t.Run("CreateBuffer", func(t *testing.T) {
		v := int64(limits.BufferSize)
		if err := sb.FunctionApply(ctx, "create_buffer", 0, &v); err != nil {
			t.Fatal(err)
		}
		h := wasmbench.HandleFromInt64(v)
		if h.Addr != BufferBase || h.Size != limits.BufferSize {
			t.Errorf("handle = %+v", h)
		}
	})

	t.Run("ThreadParam", func(t *testing.T) {
		v := int64(100)
		if err := sb.FunctionApply(ctx, "event_tid", 7, &v); err != nil {
			t.Fatal(err)
		}
		if v != 107 {
			t.Errorf("event_tid(7, 100) = %d", v)
		}

		v = 3
		if err := sb.FunctionApply(ctx, "thread_init", 0, &v); err != nil {
			t.Fatal(err)
		}
		if v != 3 {
			t.Errorf("void call changed value to %d", v)
		}
	})

	t.Run("I32ResultSignExtends", func(t *testing.T) {
		var v int64
		if err := sb.FunctionApply(ctx, "neg", 0, &v); err != nil {
			t.Fatal(err)
		}
		if v != -1 {
			t.Errorf("neg() = %d, want -1", v)
		}
	})

	t.Run("Trap", func(t *testing.T) {
		var v int64
		err := sb.FunctionApply(ctx, "trap", 0, &v)
		var e *wberrors.Error
		if !errors.As(err, &e) || e.Kind != wberrors.KindTrap {
			t.Fatalf("trap err = %v", err)
		}
		if wberrors.IsFatal(err) {
			t.Error("trap should not be fatal")
		}

		v = 1
		if err := sb.FunctionApply(ctx, "event", 0, &v); err != nil || v != 2 {
			t.Errorf("sandbox unusable after trap: %d, %v", v, err)
		}
	})

	t.Run("NotFound", func(t *testing.T) {
		var v int64
		err := sb.FunctionApply(ctx, "missing", 0, &v)
		var e *wberrors.Error
		if !errors.As(err, &e) || e.Kind != wberrors.KindNotFound {
			t.Errorf("missing err = %v", err)
		}
	})

	t.Run("BadSignature", func(t *testing.T) {
		var v int64
		err := sb.FunctionApply(ctx, "float", 0, &v)
		var e *wberrors.Error
		if !errors.As(err, &e) || e.Kind != wberrors.KindBadSignature {
			t.Errorf("float err = %v", err)
		}
	})

	t.Run("Memory", func(t *testing.T) {
		const addr = 64
		v := int64(0x1122334455667788)
		if err := sb.FunctionApply(ctx, "poke", addr, &v); err != nil {
			t.Fatal(err)
		}

		p, err := sb.AddrAppToNative(addr)
		if err != nil {
			t.Fatal(err)
		}
		if got := binary.LittleEndian.Uint64(unsafe.Slice((*byte)(p), 8)); got != 0x1122334455667788 {
			t.Errorf("host read = %#x", got)
		}

		back, err := sb.AddrNativeToApp(p)
		if err != nil || back != addr {
			t.Errorf("AddrNativeToApp = %d, %v", back, err)
		}

		buf, err := backend.GuestSlice(sb, addr, 8)
		if err != nil {
			t.Fatal(err)
		}
		binary.LittleEndian.PutUint64(buf, 99)
		v = 0
		if err := sb.FunctionApply(ctx, "peek", addr, &v); err != nil || v != 99 {
			t.Errorf("peek after host write = %d, %v", v, err)
		}

		if _, err := sb.AddrAppToNative(0xfffffff0); err == nil {
			t.Error("address past memory should fail")
		}
	})

	t.Run("Isolation", func(t *testing.T) {
		if b.MaxThreads() == 1 {
			t.Skip("engine runs a single sandbox")
		}
		other, err := b.CreateSandbox(ctx, mod, 1)
		if err != nil {
			t.Fatal(err)
		}
		defer other.Close(ctx)

		v := int64(5)
		if err := sb.FunctionApply(ctx, "poke", 128, &v); err != nil {
			t.Fatal(err)
		}
		v = -1
		if err := other.FunctionApply(ctx, "peek", 128, &v); err != nil {
			t.Fatal(err)
		}
		if v != 0 {
			t.Errorf("sandboxes share memory: peek = %d", v)
		}
	})
}
