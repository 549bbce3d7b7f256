//go:build wasmedge

package wasmedge

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

func TestInit_RejectsThreads(t *testing.T) {
	err := New().Init(context.Background(), backend.Env{Limits: config.DefaultLimits(), Threads: 2})
	if !errors.Is(err, wberrors.ErrUnsupportedThreads) {
		t.Fatalf("err = %v, want ErrUnsupportedThreads", err)
	}
}

func TestMaxThreads(t *testing.T) {
	if got := New().MaxThreads(); got != 1 {
		t.Errorf("MaxThreads() = %d, want 1", got)
	}
}
