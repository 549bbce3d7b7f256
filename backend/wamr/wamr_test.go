//go:build wamr && cgo

package wamr

import (
	"context"
	"runtime"
	"testing"

	"github.com/wippyai/wasmbench/backend"
	"github.com/wippyai/wasmbench/backend/backendtest"
	"github.com/wippyai/wasmbench/config"
)

// Sandboxes must stay on the OS thread that created them.
func TestConformance(t *testing.T) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	backendtest.Conformance(t, func() backend.Backend { return New() })
}

func TestMaxThreadsFollowsLimits(t *testing.T) {
	b := New()
	b.limits = config.DefaultLimits()
	if got := b.MaxThreads(); got != config.DefaultMaxThreads {
		t.Errorf("MaxThreads() = %d, want %d", got, config.DefaultMaxThreads)
	}
}

func TestLoadModule_NotInitialized(t *testing.T) {
	_, err := New().LoadModule(context.Background(), "guest.wasm", config.DefaultLimits())
	if err == nil {
		t.Fatal("load before init should fail")
	}
}
