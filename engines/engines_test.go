package engines

import (
	"errors"
	"testing"

	"github.com/wippyai/wasmbench/backend"
	wberrors "github.com/wippyai/wasmbench/errors"
)

func TestNewRegistry_Wazero(t *testing.T) {
	reg := NewRegistry()
	rt, err := reg.Resolve("wazero")
	if err != nil {
		t.Fatalf("Resolve(wazero): %v", err)
	}
	if rt.Kind() != backend.KindWazero || rt.Backend().Kind() != backend.KindWazero {
		t.Errorf("resolved %v", rt.Kind())
	}
}

func TestNewRegistry_Consistent(t *testing.T) {
	reg := NewRegistry()
	names := Available()
	if len(names) != len(reg.Kinds()) {
		t.Fatalf("Available() = %v, registry holds %v", names, reg.Kinds())
	}
	for _, n := range names {
		if _, err := reg.Resolve(n); err != nil {
			t.Errorf("Resolve(%q): %v", n, err)
		}
	}
}

func TestNewRegistry_Unknown(t *testing.T) {
	_, err := NewRegistry().Resolve("v8")
	if !errors.Is(err, wberrors.ErrUnknownRuntime) {
		t.Errorf("err = %v", err)
	}
}
