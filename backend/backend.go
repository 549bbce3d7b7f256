package backend

import (
	"context"
	"unsafe"

	"go.uber.org/zap"

	"github.com/wippyai/wasmbench/config"
)

// Backend is the capability interface an engine adapter implements.
type Backend interface {
	// Kind identifies the engine.
	Kind() Kind

	// MaxThreads reports how many sandboxes may run concurrently. Engines
	// without thread-safe contexts return 1. 0 means no engine limit.
	MaxThreads() int

	// Init performs engine-global setup. Failure aborts the run.
	Init(ctx context.Context, env Env) error

	// CreateSandbox instantiates mod for exclusive use by one worker.
	CreateSandbox(ctx context.Context, mod *Module, threadID int) (Context, error)

	// Close releases engine-global state. Called once, after every
	// sandbox has been closed.
	Close(ctx context.Context) error
}

// ModuleLoader is implemented by adapters that ingest modules themselves,
// e.g. to compile once at load time instead of per sandbox.
type ModuleLoader interface {
	LoadModule(ctx context.Context, path string, limits config.Limits) (*Module, error)
}

// Context is one sandbox's engine-specific execution context.
type Context interface {
	// FunctionAvailable reports whether the guest exports a function name.
	FunctionAvailable(name string) bool

	// FunctionApply calls the guest export name. value is passed in and
	// receives the result; see the package documentation for accepted
	// signatures. A returned error is an invocation failure.
	FunctionApply(ctx context.Context, name string, threadID int, value *int64) error

	// AddrAppToNative translates a guest address into a host pointer.
	AddrAppToNative(addr uint32) (unsafe.Pointer, error)

	// AddrNativeToApp translates a host pointer into a guest address.
	AddrNativeToApp(p unsafe.Pointer) (uint32, error)

	// Close releases the sandbox. It must be called exactly once.
	Close(ctx context.Context) error
}

// Env is what an adapter receives at Init.
type Env struct {
	Logger  *zap.Logger
	Limits  config.Limits
	Threads int
}

// Log returns the configured logger or a no-op one.
func (e Env) Log() *zap.Logger {
	if e.Logger == nil {
		return zap.NewNop()
	}
	return e.Logger
}

// Runtime is a resolved engine: its kind and the adapter serving it.
type Runtime struct {
	backend Backend
	kind    Kind
}

// NewRuntime pairs an adapter with its kind.
func NewRuntime(kind Kind, b Backend) *Runtime {
	return &Runtime{kind: kind, backend: b}
}

func (r *Runtime) Kind() Kind {
	return r.kind
}

func (r *Runtime) Name() string {
	return r.kind.String()
}

func (r *Runtime) Backend() Backend {
	return r.backend
}
