// Package wazero adapts the pure Go wazero engine. It needs no cgo and is
// compiled into every build, which makes it the reference adapter the
// harness tests run against.
package wazero

import (
	"context"
	"sync"
	"unsafe"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"go.uber.org/zap"

	"github.com/wippyai/wasmbench/backend"
	"github.com/wippyai/wasmbench/config"
	"github.com/wippyai/wasmbench/errors"
)

const name = "wazero"

// Backend implements backend.Backend and backend.ModuleLoader on wazero.
type Backend struct {
	runtime wazero.Runtime
	log     *zap.Logger
	mu      sync.Mutex
}

// New returns an uninitialized adapter.
func New() *Backend {
	return &Backend{log: zap.NewNop()}
}

func (b *Backend) Kind() backend.Kind {
	return backend.KindWazero
}

// MaxThreads is unlimited: each sandbox is an independent module instance.
func (b *Backend) MaxThreads() int {
	return 0
}

func (b *Backend) Init(ctx context.Context, env backend.Env) error {
	b.log = env.Log().With(zap.String("runtime", name))

	cfg := wazero.NewRuntimeConfig()
	if env.Limits.MemoryPages > 0 {
		cfg = cfg.WithMemoryLimitPages(env.Limits.MemoryPages)
	}
	b.runtime = wazero.NewRuntimeWithConfig(ctx, cfg)

	if _, err := wasi_snapshot_preview1.Instantiate(ctx, b.runtime); err != nil {
		_ = b.runtime.Close(ctx)
		b.runtime = nil
		return errors.Wrap(errors.PhaseConfig, errors.KindInstantiation, err, "instantiate WASI")
	}

	b.log.Debug("runtime initialized",
		zap.Uint32("memory_pages", env.Limits.MemoryPages),
		zap.Int("threads", env.Threads))
	return nil
}

// LoadModule reads and compiles the module once; sandboxes instantiate the
// compiled form.
func (b *Backend) LoadModule(ctx context.Context, path string, limits config.Limits) (*backend.Module, error) {
	if b.runtime == nil {
		return nil, errors.NotInitialized(errors.NoThread, "wazero runtime not initialized")
	}
	data, err := backend.ReadModuleFile(path)
	if err != nil {
		return nil, err
	}
	b.log.Debug("load module", zap.Int("bytes", len(data)))

	compiled, err := b.runtime.CompileModule(ctx, data)
	if err != nil {
		return nil, errors.Compile(name, err)
	}

	m := backend.NewModule(path, data, limits)
	m.Native = compiled
	m.OnClose(compiled.Close)
	return m, nil
}

func (b *Backend) compiled(ctx context.Context, mod *backend.Module) (wazero.CompiledModule, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if c, ok := mod.Native.(wazero.CompiledModule); ok {
		return c, nil
	}
	if mod.Native != nil {
		return nil, errors.Unsupported(name, "module compiled by another engine")
	}
	// Loaded through the generic path.
	c, err := b.runtime.CompileModule(ctx, mod.Bytes)
	if err != nil {
		return nil, errors.Compile(name, err)
	}
	mod.Native = c
	mod.OnClose(c.Close)
	return c, nil
}

func (b *Backend) CreateSandbox(ctx context.Context, mod *backend.Module, threadID int) (backend.Context, error) {
	if b.runtime == nil {
		return nil, errors.SandboxCreation(name, threadID, errors.NotInitialized(threadID, "wazero runtime not initialized"))
	}
	compiled, err := b.compiled(ctx, mod)
	if err != nil {
		return nil, errors.SandboxCreation(name, threadID, err)
	}

	// Anonymous so every thread gets its own instance of the same module.
	cfg := wazero.NewModuleConfig().
		WithName("").
		WithStartFunctions("_initialize")

	inst, err := b.runtime.InstantiateModule(ctx, compiled, cfg)
	if err != nil {
		return nil, errors.SandboxCreation(name, threadID, err)
	}

	return &sandbox{
		mod:      inst,
		funcs:    make(map[string]*function),
		threadID: threadID,
	}, nil
}

func (b *Backend) Close(ctx context.Context) error {
	if b.runtime == nil {
		return nil
	}
	err := b.runtime.Close(ctx)
	b.runtime = nil
	return err
}

type function struct {
	fn  api.Function
	sig backend.Signature
}

// sandbox is one module instance. It is owned by a single worker, so the
// function cache and call stack are unsynchronized.
type sandbox struct {
	mod      api.Module
	funcs    map[string]*function
	stack    [2]uint64
	threadID int
	closed   bool
}

func (s *sandbox) lookup(name string) *function {
	if f, ok := s.funcs[name]; ok {
		return f
	}
	var f *function
	if fn := s.mod.ExportedFunction(name); fn != nil {
		def := fn.Definition()
		f = &function{fn: fn, sig: backend.NewSignature(def.ParamTypes(), def.ResultTypes())}
	}
	s.funcs[name] = f
	return f
}

func (s *sandbox) FunctionAvailable(name string) bool {
	if s.closed {
		return false
	}
	return s.lookup(name) != nil
}

func (s *sandbox) FunctionApply(ctx context.Context, name string, threadID int, value *int64) error {
	if s.closed {
		return errors.NotInitialized(threadID, "sandbox closed")
	}
	f := s.lookup(name)
	if f == nil {
		return errors.NotFound(name, threadID)
	}
	if err := f.sig.Check(name); err != nil {
		return err
	}

	n := len(f.sig.RawArgs(s.stack[:], threadID, *value))
	if len(f.sig.Results) > n {
		n = len(f.sig.Results)
	}
	if err := f.fn.CallWithStack(ctx, s.stack[:n]); err != nil {
		return errors.Trap(name, threadID, err)
	}
	f.sig.StoreRaw(s.stack[:], value)
	return nil
}

func (s *sandbox) memory() []byte {
	mem := s.mod.Memory()
	if mem == nil {
		return nil
	}
	buf, _ := mem.Read(0, mem.Size())
	return buf
}

func (s *sandbox) AddrAppToNative(addr uint32) (unsafe.Pointer, error) {
	return backend.AppToNative(s.memory(), addr)
}

func (s *sandbox) AddrNativeToApp(p unsafe.Pointer) (uint32, error) {
	return backend.NativeToApp(s.memory(), p)
}

func (s *sandbox) Close(ctx context.Context) error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.funcs = nil
	return s.mod.Close(ctx)
}
