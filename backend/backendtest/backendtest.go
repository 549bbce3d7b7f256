// Package backendtest provides an in-memory Backend for tests of code that
// drives engines through the backend interfaces.
package backendtest

import (
	"context"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/wippyai/wasmbench/backend"
	"github.com/wippyai/wasmbench/config"
	"github.com/wippyai/wasmbench/errors"
)

// Func is a fake guest export.
type Func func(threadID int, value *int64) error

// Backend is a scripted engine. Guest exports are Go functions; each
// sandbox owns MemorySize bytes of fake linear memory.
type Backend struct {
	Exports    map[string]Func
	InitErr    error
	CreateErr  func(threadID int) error
	sandboxes  []*Sandbox
	KindValue  backend.Kind
	Threads    int
	MemorySize int
	Env        backend.Env
	Created    atomic.Int32
	Closed     atomic.Int32
	mu         sync.Mutex
	Inited     bool
	Shutdown   bool
}

// New creates a fake wazero-kind backend with the given exports.
func New(exports map[string]Func) *Backend {
	if exports == nil {
		exports = make(map[string]Func)
	}
	return &Backend{
		KindValue:  backend.KindWazero,
		Exports:    exports,
		MemorySize: 64 * 1024,
	}
}

func (b *Backend) Kind() backend.Kind {
	return b.KindValue
}

func (b *Backend) MaxThreads() int {
	return b.Threads
}

func (b *Backend) Init(_ context.Context, env backend.Env) error {
	if b.InitErr != nil {
		return b.InitErr
	}
	b.Env = env
	b.Inited = true
	return nil
}

func (b *Backend) CreateSandbox(_ context.Context, mod *backend.Module, threadID int) (backend.Context, error) {
	if b.CreateErr != nil {
		if err := b.CreateErr(threadID); err != nil {
			return nil, err
		}
	}
	sb := &Sandbox{
		backend:  b,
		module:   mod,
		ThreadID: threadID,
		Memory:   make([]byte, b.MemorySize),
		Calls:    make(map[string]int),
	}
	b.mu.Lock()
	b.sandboxes = append(b.sandboxes, sb)
	b.mu.Unlock()
	b.Created.Add(1)
	return sb, nil
}

func (b *Backend) Close(context.Context) error {
	b.Shutdown = true
	return nil
}

// Sandboxes returns every sandbox created so far.
func (b *Backend) Sandboxes() []*Sandbox {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]*Sandbox, len(b.sandboxes))
	copy(out, b.sandboxes)
	return out
}

// Sandbox is a fake per-thread context.
type Sandbox struct {
	backend  *Backend
	module   *backend.Module
	Calls    map[string]int
	Memory   []byte
	ThreadID int
	closes   int
}

func (s *Sandbox) FunctionAvailable(name string) bool {
	_, ok := s.backend.Exports[name]
	return ok
}

func (s *Sandbox) FunctionApply(_ context.Context, name string, threadID int, value *int64) error {
	if s.closes > 0 {
		return errors.NotInitialized(threadID, "sandbox closed")
	}
	fn, ok := s.backend.Exports[name]
	if !ok {
		return errors.NotFound(name, threadID)
	}
	s.Calls[name]++
	if err := fn(threadID, value); err != nil {
		return errors.Trap(name, threadID, err)
	}
	return nil
}

func (s *Sandbox) AddrAppToNative(addr uint32) (unsafe.Pointer, error) {
	return backend.AppToNative(s.Memory, addr)
}

func (s *Sandbox) AddrNativeToApp(p unsafe.Pointer) (uint32, error) {
	return backend.NativeToApp(s.Memory, p)
}

func (s *Sandbox) Close(context.Context) error {
	s.closes++
	s.backend.Closed.Add(1)
	return nil
}

// Closes reports how many times Close was called.
func (s *Sandbox) Closes() int {
	return s.closes
}

// Module returns the module the sandbox was created from.
func (s *Sandbox) Module() *backend.Module {
	return s.module
}

// LoaderBackend is a Backend that also implements backend.ModuleLoader.
type LoaderBackend struct {
	*Backend
	LoadErr error
	Loads   atomic.Int32
}

// NewLoader wraps New with a custom module loader that never touches disk.
func NewLoader(exports map[string]Func) *LoaderBackend {
	return &LoaderBackend{Backend: New(exports)}
}

func (b *LoaderBackend) LoadModule(_ context.Context, path string, limits config.Limits) (*backend.Module, error) {
	b.Loads.Add(1)
	if b.LoadErr != nil {
		return nil, b.LoadErr
	}
	m := backend.NewModule(path, []byte("compiled"), limits)
	m.Native = path
	return m, nil
}
