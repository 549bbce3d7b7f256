package backend_test

import (
	"context"
	"errors"
	"testing"
	"unsafe"

	"github.com/wippyai/wasmbench/backend"
	"github.com/wippyai/wasmbench/backend/backendtest"
	"github.com/wippyai/wasmbench/config"
	wberrors "github.com/wippyai/wasmbench/errors"
)

func TestAddressTranslation(t *testing.T) {
	mem := make([]byte, 1024)

	for _, addr := range []uint32{0, 1, 512, 1023} {
		p, err := backend.AppToNative(mem, addr)
		if err != nil {
			t.Fatalf("AppToNative(%d): %v", addr, err)
		}
		if p != unsafe.Pointer(&mem[addr]) {
			t.Errorf("AppToNative(%d) points elsewhere", addr)
		}
		back, err := backend.NativeToApp(mem, p)
		if err != nil || back != addr {
			t.Errorf("NativeToApp = %d, %v; want %d", back, err, addr)
		}
	}
}

func TestAddressTranslation_OutOfBounds(t *testing.T) {
	mem := make([]byte, 16)
	other := make([]byte, 16)

	_, err := backend.AppToNative(mem, 16)
	var e *wberrors.Error
	if !errors.As(err, &e) || e.Kind != wberrors.KindOutOfBounds {
		t.Errorf("AppToNative(16) err = %v", err)
	}

	if _, err := backend.NativeToApp(mem, unsafe.Pointer(&other[0])); err == nil {
		t.Error("pointer outside memory should fail")
	}
	if _, err := backend.NativeToApp(mem, nil); err == nil {
		t.Error("nil pointer should fail")
	}
	if _, err := backend.AppToNative(nil, 0); err == nil {
		t.Error("empty memory should fail")
	}
}

func TestGuestSlice(t *testing.T) {
	ctx := context.Background()
	b := backendtest.New(nil)
	b.MemorySize = 256
	c, err := b.CreateSandbox(ctx, backend.NewModule("m", nil, config.DefaultLimits()), 0)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close(ctx)

	buf, err := backend.GuestSlice(c, 16, 32)
	if err != nil {
		t.Fatal(err)
	}
	copy(buf, "hello")

	mem := c.(*backendtest.Sandbox).Memory
	if string(mem[16:21]) != "hello" {
		t.Errorf("write through guest slice not visible: %q", mem[16:21])
	}

	if _, err := backend.GuestSlice(c, 240, 32); err == nil {
		t.Error("slice past end of memory should fail")
	}
	if buf, err := backend.GuestSlice(c, 9999, 0); err != nil || buf != nil {
		t.Errorf("empty slice = %v, %v", buf, err)
	}
}
