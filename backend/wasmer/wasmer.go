//go:build wasmer

// Package wasmer adapts Wasmer through wasmer-go. Build with -tags wasmer.
package wasmer

import (
	"context"
	"sync"
	"unsafe"

	"github.com/wasmerio/wasmer-go/wasmer"
	"go.uber.org/zap"

	"github.com/wippyai/wasmbench/backend"
	"github.com/wippyai/wasmbench/config"
	"github.com/wippyai/wasmbench/errors"
)

const name = "wasmer"

// Backend validates the module once against a shared engine. A Wasmer
// store is not safe for concurrent use, so each sandbox compiles the module
// into its own store.
type Backend struct {
	engine *wasmer.Engine
	log    *zap.Logger
	mu     sync.Mutex
}

func New() *Backend {
	return &Backend{log: zap.NewNop()}
}

func (b *Backend) Kind() backend.Kind {
	return backend.KindWasmer
}

func (b *Backend) MaxThreads() int {
	return 0
}

func (b *Backend) Init(_ context.Context, env backend.Env) error {
	b.log = env.Log().With(zap.String("runtime", name))
	b.engine = wasmer.NewEngineWithConfig(wasmer.NewConfig())
	return nil
}

func (b *Backend) LoadModule(_ context.Context, path string, limits config.Limits) (*backend.Module, error) {
	if b.engine == nil {
		return nil, errors.NotInitialized(errors.NoThread, "wasmer engine not initialized")
	}
	data, err := backend.ReadModuleFile(path)
	if err != nil {
		return nil, err
	}
	b.log.Debug("load module", zap.Int("bytes", len(data)))

	b.mu.Lock()
	store := wasmer.NewStore(b.engine)
	err = wasmer.ValidateModule(store, data)
	store.Close()
	b.mu.Unlock()
	if err != nil {
		return nil, errors.Compile(name, err)
	}
	return backend.NewModule(path, data, limits), nil
}

func (b *Backend) CreateSandbox(_ context.Context, mod *backend.Module, threadID int) (backend.Context, error) {
	if b.engine == nil {
		return nil, errors.SandboxCreation(name, threadID, errors.NotInitialized(threadID, "wasmer engine not initialized"))
	}

	store := wasmer.NewStore(b.engine)
	compiled, err := wasmer.NewModule(store, mod.Bytes)
	if err != nil {
		store.Close()
		return nil, errors.SandboxCreation(name, threadID, errors.Compile(name, err))
	}

	imports := wasmer.NewImportObject()
	if wasmer.GetWasiVersion(compiled) != wasmer.WASI_VERSION_INVALID {
		env, err := wasmer.NewWasiStateBuilder("wasmbench").Finalize()
		if err == nil {
			imports, err = env.GenerateImportObject(store, compiled)
		}
		if err != nil {
			compiled.Close()
			store.Close()
			return nil, errors.SandboxCreation(name, threadID, err)
		}
	}

	inst, err := wasmer.NewInstance(compiled, imports)
	if err != nil {
		compiled.Close()
		store.Close()
		return nil, errors.SandboxCreation(name, threadID, err)
	}

	sb := &sandbox{
		store:    store,
		module:   compiled,
		inst:     inst,
		funcs:    make(map[string]*function),
		threadID: threadID,
	}
	if mem, err := inst.Exports.GetMemory(backend.ExportMemory); err == nil {
		sb.mem = mem
	}
	return sb, nil
}

func (b *Backend) Close(context.Context) error {
	b.engine = nil
	return nil
}

type function struct {
	fn  *wasmer.Function
	sig backend.Signature
}

type sandbox struct {
	store    *wasmer.Store
	module   *wasmer.Module
	inst     *wasmer.Instance
	mem      *wasmer.Memory
	funcs    map[string]*function
	threadID int
	closed   bool
}

func (s *sandbox) lookup(name string) *function {
	if f, ok := s.funcs[name]; ok {
		return f
	}
	var f *function
	if fn, err := s.inst.Exports.GetRawFunction(name); err == nil {
		ft := fn.Type()
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
	res, err := f.fn.Call(args...)
	if err != nil {
		return errors.Trap(name, threadID, err)
	}
	return f.sig.Store(name, res, value)
}

func (s *sandbox) memory() []byte {
	if s.mem == nil || s.closed {
		return nil
	}
	return s.mem.Data()
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
	s.inst.Close()
	s.module.Close()
	s.store.Close()
	return nil
}

func valTypes(types []*wasmer.ValueType) []backend.ValType {
	out := make([]backend.ValType, len(types))
	for i, t := range types {
		switch t.Kind() {
		case wasmer.I32:
			out[i] = backend.ValI32
		case wasmer.I64:
			out[i] = backend.ValI64
		case wasmer.F32:
			out[i] = backend.ValF32
		case wasmer.F64:
			out[i] = backend.ValF64
		case wasmer.FuncRef:
			out[i] = backend.ValFuncRef
		default:
			out[i] = backend.ValExternRef
		}
	}
	return out
}
