package backend_test

import (
	"errors"
	"testing"

	"github.com/wippyai/wasmbench/backend"
	"github.com/wippyai/wasmbench/backend/backendtest"
	wberrors "github.com/wippyai/wasmbench/errors"
)

func fakeFactory(kind backend.Kind) backend.Factory {
	return func() backend.Backend {
		b := backendtest.New(nil)
		b.KindValue = kind
		return b
	}
}

func TestRegistry_Resolve(t *testing.T) {
	reg := backend.NewRegistry()
	for _, k := range []backend.Kind{backend.KindWAMR, backend.KindWasmEdge, backend.KindWasmer, backend.KindWasmtime} {
		if err := reg.Register(k, fakeFactory(k)); err != nil {
			t.Fatalf("Register(%v): %v", k, err)
		}
	}

	for _, name := range []string{"wamr", "wasmedge", "wasmer", "wasmtime"} {
		t.Run(name, func(t *testing.T) {
			rt, err := reg.Resolve(name)
			if err != nil {
				t.Fatalf("Resolve(%q): %v", name, err)
			}
			if rt.Name() != name {
				t.Errorf("Name() = %q, want %q", rt.Name(), name)
			}
			if rt.Backend().Kind() != rt.Kind() {
				t.Errorf("backend kind %v != runtime kind %v", rt.Backend().Kind(), rt.Kind())
			}
		})
	}
}

func TestRegistry_ResolveUnknown(t *testing.T) {
	reg := backend.NewRegistry()
	reg.MustRegister(backend.KindWazero, fakeFactory(backend.KindWazero))

	for _, name := range []string{"bogus", "", "Wazero", "wasmtime"} {
		t.Run(name, func(t *testing.T) {
			rt, err := reg.Resolve(name)
			if rt != nil {
				t.Errorf("Resolve(%q) returned runtime %v", name, rt.Name())
			}
			if !errors.Is(err, wberrors.ErrUnknownRuntime) {
				t.Errorf("Resolve(%q) err = %v, want ErrUnknownRuntime", name, err)
			}
			if !wberrors.IsFatal(err) {
				t.Error("unknown runtime must be fatal")
			}
		})
	}
}

func TestRegistry_ResolveFreshBackend(t *testing.T) {
	reg := backend.NewRegistry()
	reg.MustRegister(backend.KindWazero, fakeFactory(backend.KindWazero))

	a, _ := reg.Resolve("wazero")
	b, _ := reg.Resolve("wazero")
	if a.Backend() == b.Backend() {
		t.Error("each Resolve should create an independent backend")
	}
}

func TestRegistry_RegisterErrors(t *testing.T) {
	reg := backend.NewRegistry()

	if err := reg.Register(backend.KindUnknown, fakeFactory(backend.KindUnknown)); err == nil {
		t.Error("registering KindUnknown should fail")
	}
	if err := reg.Register(backend.KindWazero, nil); err == nil {
		t.Error("registering nil factory should fail")
	}

	reg.MustRegister(backend.KindWazero, fakeFactory(backend.KindWazero))
	err := reg.Register(backend.KindWazero, fakeFactory(backend.KindWazero))
	var e *wberrors.Error
	if !errors.As(err, &e) || e.Kind != wberrors.KindDuplicate {
		t.Errorf("duplicate Register err = %v", err)
	}

	defer func() {
		if recover() == nil {
			t.Error("MustRegister duplicate should panic")
		}
	}()
	reg.MustRegister(backend.KindWazero, fakeFactory(backend.KindWazero))
}

func TestRegistry_Kinds(t *testing.T) {
	reg := backend.NewRegistry()
	reg.MustRegister(backend.KindWasmtime, fakeFactory(backend.KindWasmtime))
	reg.MustRegister(backend.KindWazero, fakeFactory(backend.KindWazero))

	kinds := reg.Kinds()
	if len(kinds) != 2 || kinds[0] != backend.KindWasmtime || kinds[1] != backend.KindWazero {
		t.Errorf("Kinds() = %v", kinds)
	}
	if !reg.Has(backend.KindWazero) || reg.Has(backend.KindWAMR) {
		t.Error("Has() mismatch")
	}

	kinds[0] = backend.KindWAMR
	if reg.Kinds()[0] != backend.KindWasmtime {
		t.Error("Kinds() should return a copy")
	}
}
