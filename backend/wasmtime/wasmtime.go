//go:build wasmtime

// Package wasmtime adapts Wasmtime through wasmtime-go. Build with -tags
// wasmtime; the binding links the prebuilt Wasmtime C library.
package wasmtime

import (
	"context"
	"unsafe"

	"github.com/bytecodealliance/wasmtime-go/v25"
	"go.uber.org/zap"

	"github.com/wippyai/wasmbench/backend"
	"github.com/wippyai/wasmbench/config"
	"github.com/wippyai/wasmbench/errors"
)

const name = "wasmtime"

// Backend shares one engine and compiled module; every sandbox gets its own
// store, linker and instance.
type Backend struct {
	engine *wasmtime.Engine
	log    *zap.Logger
	limits config.Limits
}

func New() *Backend {
	return &Backend{log: zap.NewNop()}
}

func (b *Backend) Kind() backend.Kind {
	return backend.KindWasmtime
}

func (b *Backend) MaxThreads() int {
	return 0
}

func (b *Backend) Init(_ context.Context, env backend.Env) error {
	b.log = env.Log().With(zap.String("runtime", name))
	b.limits = env.Limits
	b.engine = wasmtime.NewEngineWithConfig(wasmtime.NewConfig())
	return nil
}

func (b *Backend) LoadModule(_ context.Context, path string, limits config.Limits) (*backend.Module, error) {
	if b.engine == nil {
		return nil, errors.NotInitialized(errors.NoThread, "wasmtime engine not initialized")
	}
	data, err := backend.ReadModuleFile(path)
	if err != nil {
		return nil, err
	}
	b.log.Debug("load module", zap.Int("bytes", len(data)))

	compiled, err := wasmtime.NewModule(b.engine, data)
	if err != nil {
		return nil, errors.Compile(name, err)
	}

	m := backend.NewModule(path, data, limits)
	m.Native = compiled
	m.OnClose(func(context.Context) error {
		compiled.Close()
		return nil
	})
	return m, nil
}

func (b *Backend) CreateSandbox(_ context.Context, mod *backend.Module, threadID int) (backend.Context, error) {
	if b.engine == nil {
		return nil, errors.SandboxCreation(name, threadID, errors.NotInitialized(threadID, "wasmtime engine not initialized"))
	}
	// A module this adapter did not load is compiled per sandbox and owned by it.
	compiled, shared := mod.Native.(*wasmtime.Module)
	if !shared {
		var err error
		if compiled, err = wasmtime.NewModule(b.engine, mod.Bytes); err != nil {
			return nil, errors.SandboxCreation(name, threadID, errors.Compile(name, err))
		}
	}

	store := wasmtime.NewStore(b.engine)
	if pages := b.limits.MemoryPages; pages > 0 {
		store.Limiter(int64(pages)*65536, -1, -1, -1, -1)
	}
	store.SetWasi(wasmtime.NewWasiConfig())
	linker := wasmtime.NewLinker(b.engine)

	fail := func(err error) (backend.Context, error) {
		linker.Close()
		store.Close()
		if !shared {
			compiled.Close()
		}
		return nil, errors.SandboxCreation(name, threadID, err)
	}

	if err := linker.DefineWasi(); err != nil {
		return fail(err)
	}
	inst, err := linker.Instantiate(store, compiled)
	if err != nil {
		return fail(err)
	}

	sb := &sandbox{
		store:    store,
		linker:   linker,
		inst:     inst,
		funcs:    make(map[string]*function),
		threadID: threadID,
	}
	if !shared {
		sb.owned = compiled
	}
	if ext := inst.GetExport(store, backend.ExportMemory); ext != nil {
		sb.mem = ext.Memory()
	}
	return sb, nil
}

func (b *Backend) Close(context.Context) error {
	if b.engine != nil {
		b.engine.Close()
		b.engine = nil
	}
	return nil
}

type function struct {
	fn  *wasmtime.Func
	sig backend.Signature
}

type sandbox struct {
	store    *wasmtime.Store
	linker   *wasmtime.Linker
	inst     *wasmtime.Instance
	owned    *wasmtime.Module
	mem      *wasmtime.Memory
	funcs    map[string]*function
	threadID int
	closed   bool
}

func (s *sandbox) lookup(name string) *function {
	if f, ok := s.funcs[name]; ok {
		return f
	}
	var f *function
	if fn := s.inst.GetFunc(s.store, name); fn != nil {
		ft := fn.Type(s.store)
		f = &function{fn: fn, sig: backend.Signature{Params: valTypes(ft.Params()), Results: valTypes(ft.Results())}}
	}
	s.funcs[name] = f
	return f
}

func (s *sandbox) FunctionAvailable(name string) bool {
	return !s.closed && s.lookup(name) != nil
}

func (s *sandbox) FunctionApply(_ context.Context, name string, threadID int, value *int64) error {
	if s.closed {
		return errors.NotInitialized(threadID, "sandbox closed")
	}
	f := s.lookup(name)
	if f == nil {
		return errors.NotFound(name, threadID)
	}
	args, err := f.sig.Args(name, threadID, *value)
	if err != nil {
		return err
	}
	res, err := f.fn.Call(s.store, args...)
	if err != nil {
		return errors.Trap(name, threadID, err)
	}
	return f.sig.Store(name, res, value)
}

func (s *sandbox) memory() []byte {
	if s.mem == nil || s.closed {
		return nil
	}
	return s.mem.UnsafeData(s.store)
}

func (s *sandbox) AddrAppToNative(addr uint32) (unsafe.Pointer, error) {
	return backend.AppToNative(s.memory(), addr)
}

func (s *sandbox) AddrNativeToApp(p unsafe.Pointer) (uint32, error) {
	return backend.NativeToApp(s.memory(), p)
}

func (s *sandbox) Close(context.Context) error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.funcs = nil
	s.linker.Close()
	s.store.Close()
	if s.owned != nil {
		s.owned.Close()
	}
	return nil
}

func valTypes(types []*wasmtime.ValType) []backend.ValType {
	out := make([]backend.ValType, len(types))
	for i, t := range types {
		switch t.Kind() {
		case wasmtime.KindI32:
			out[i] = backend.ValI32
		case wasmtime.KindI64:
			out[i] = backend.ValI64
		case wasmtime.KindF32:
			out[i] = backend.ValF32
		case wasmtime.KindF64:
			out[i] = backend.ValF64
		case wasmtime.KindFuncref:
			out[i] = backend.ValFuncRef
		default:
			out[i] = backend.ValExternRef
		}
	}
	return out
}
