package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
		excludes []string
	}{
		{
			name: "full error",
			err: &Error{
				Phase:   PhaseInvoke,
				Kind:    KindTrap,
				Runtime: "wazero",
				Export:  "event",
				Thread:  3,
				Detail:  "unreachable",
			},
			contains: []string{"[invoke]", "trap", "runtime=wazero", "export=event", "thread=3", "unreachable"},
		},
		{
			name: "minimal error",
			err: &Error{
				Phase:  PhaseLoad,
				Kind:   KindIO,
				Thread: NoThread,
			},
			contains: []string{"[load]", "io"},
			excludes: []string{"thread="},
		},
		{
			name: "thread zero on sandbox error",
			err: &Error{
				Phase:  PhaseSandbox,
				Kind:   KindInstantiation,
				Thread: 0,
			},
			contains: []string{"thread=0"},
		},
		{
			name: "config error hides thread",
			err: &Error{
				Phase:  PhaseConfig,
				Kind:   KindUnknownRuntime,
				Thread: 0,
			},
			excludes: []string{"thread="},
		},
		{
			name: "error with cause",
			err: &Error{
				Phase:  PhaseResource,
				Kind:   KindAllocation,
				Detail: "sandbox table",
				Cause:  errors.New("underlying error"),
				Thread: NoThread,
			},
			contains: []string{"[resource]", "allocation", "sandbox table", "caused by", "underlying error"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				if !strings.Contains(msg, s) {
					t.Errorf("error message %q does not contain %q", msg, s)
				}
			}
			for _, s := range tt.excludes {
				if strings.Contains(msg, s) {
					t.Errorf("error message %q should not contain %q", msg, s)
				}
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := Load("read module", cause)

	if !errors.Is(err.Unwrap(), cause) {
		t.Error("Unwrap did not return cause")
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is should find cause through chain")
	}
}

func TestError_Is(t *testing.T) {
	err := UnknownRuntime("bogus")

	if !errors.Is(err, ErrUnknownRuntime) {
		t.Error("errors.Is should match sentinel with same phase and kind")
	}
	if errors.Is(err, ErrMissingPath) {
		t.Error("errors.Is should not match different kind")
	}
	if err.Is(&Error{Phase: PhaseLoad, Kind: KindUnknownRuntime}) {
		t.Error("Is should not match different phase")
	}

	wrapped := fmt.Errorf("init: %w", err)
	if !errors.Is(wrapped, ErrUnknownRuntime) {
		t.Error("errors.Is should match through fmt wrapping")
	}
}

func TestError_Fatal(t *testing.T) {
	tests := []struct {
		err   *Error
		name  string
		fatal bool
	}{
		{UnknownRuntime("x"), "config", true},
		{Load("read", nil), "load", true},
		{SandboxCreation("wazero", 1, nil), "sandbox", true},
		{Hook("thread_init", 1, nil), "hook", true},
		{Trap("event", 1, nil), "invoke", false},
		{Resource("table", nil), "resource", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Fatal(); got != tt.fatal {
				t.Errorf("Fatal() = %v, want %v", got, tt.fatal)
			}
			if got := IsFatal(tt.err); got != tt.fatal {
				t.Errorf("IsFatal() = %v, want %v", got, tt.fatal)
			}
		})
	}

	if IsFatal(nil) {
		t.Error("IsFatal(nil) should be false")
	}
	if !IsFatal(errors.New("plain")) {
		t.Error("plain errors should be treated as fatal")
	}
}

func TestBuilder(t *testing.T) {
	cause := errors.New("root")
	err := New(PhaseInvoke, KindBadSignature).
		Runtime("wazero").
		Export("event").
		Thread(2).
		Value(3).
		Cause(cause).
		Detail("expected at most %d params, got %d", 2, 3).
		Build()

	if err.Phase != PhaseInvoke {
		t.Errorf("Phase = %v, want %v", err.Phase, PhaseInvoke)
	}
	if err.Kind != KindBadSignature {
		t.Errorf("Kind = %v, want %v", err.Kind, KindBadSignature)
	}
	if err.Runtime != "wazero" || err.Export != "event" || err.Thread != 2 {
		t.Errorf("Runtime=%q Export=%q Thread=%d", err.Runtime, err.Export, err.Thread)
	}
	if err.Value != 3 {
		t.Errorf("Value = %v, want 3", err.Value)
	}
	if !errors.Is(err.Cause, cause) {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}
	if err.Detail != "expected at most 2 params, got 3" {
		t.Errorf("Detail = %q", err.Detail)
	}
}

func TestBuilder_DefaultThread(t *testing.T) {
	err := New(PhaseLoad, KindCompile).Build()
	if err.Thread != NoThread {
		t.Errorf("Thread = %d, want NoThread", err.Thread)
	}
}

func TestConvenienceConstructors(t *testing.T) {
	t.Run("UnsupportedThreads", func(t *testing.T) {
		err := UnsupportedThreads("wasmedge", 4, 1)
		if !errors.Is(err, ErrUnsupportedThreads) {
			t.Errorf("got %v", err)
		}
		if !strings.Contains(err.Detail, "4 threads") {
			t.Errorf("Detail = %q", err.Detail)
		}
	})

	t.Run("MissingExport", func(t *testing.T) {
		err := MissingExport("event")
		if !errors.Is(err, ErrMissingEvent) {
			t.Errorf("got %v", err)
		}
		if err.Export != "event" {
			t.Errorf("Export = %q", err.Export)
		}
	})

	t.Run("Unsupported", func(t *testing.T) {
		err := Unsupported("wamr", "address translation")
		if !errors.Is(err, ErrUnsupported) {
			t.Errorf("got %v", err)
		}
	})

	t.Run("OutOfBounds", func(t *testing.T) {
		err := OutOfBounds(70000, 65536)
		if err.Kind != KindOutOfBounds {
			t.Errorf("Kind = %v", err.Kind)
		}
		if !strings.Contains(err.Detail, "65536") {
			t.Errorf("Detail = %q", err.Detail)
		}
	})

	t.Run("NotFound", func(t *testing.T) {
		err := NotFound("event", 0)
		if err.Kind != KindNotFound || err.Thread != 0 {
			t.Errorf("got %+v", err)
		}
	})

	t.Run("Wrap", func(t *testing.T) {
		cause := errors.New("boom")
		err := Wrap(PhaseLoad, KindCompile, cause, "compile")
		if !errors.Is(err, cause) || err.Detail != "compile" {
			t.Errorf("got %v", err)
		}
	})
}
