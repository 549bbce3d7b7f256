//go:build wasmedge

// Package wasmedge adapts WasmEdge through WasmEdge-go. Build with -tags
// wasmedge against an installed libwasmedge.
//
// A WasmEdge VM is not safe to share between OS threads, so the adapter
// runs a single sandbox: MaxThreads reports 1 and the harness rejects any
// larger thread count before a sandbox is created.
package wasmedge

import (
	"context"
	"unsafe"

	"github.com/second-state/WasmEdge-go/wasmedge"
	"go.uber.org/zap"

	"github.com/wippyai/wasmbench/backend"
	"github.com/wippyai/wasmbench/config"
	"github.com/wippyai/wasmbench/errors"
)

const name = "wasmedge"

type Backend struct {
	log    *zap.Logger
	limits config.Limits
}

func New() *Backend {
	return &Backend{log: zap.NewNop()}
}

func (b *Backend) Kind() backend.Kind {
	return backend.KindWasmEdge
}

func (b *Backend) MaxThreads() int {
	return 1
}

func (b *Backend) Init(_ context.Context, env backend.Env) error {
	b.log = env.Log().With(zap.String("runtime", name))
	b.limits = env.Limits
	if env.Threads > 1 {
		return errors.UnsupportedThreads(name, env.Threads, 1)
	}
	wasmedge.SetLogErrorLevel()
	return nil
}

func (b *Backend) newVM() (*wasmedge.VM, *wasmedge.Configure) {
	conf := wasmedge.NewConfigure(wasmedge.WASI)
	if b.limits.MemoryPages > 0 {
		conf.SetMaxMemoryPage(uint(b.limits.MemoryPages))
	}
	return wasmedge.NewVMWithConfig(conf), conf
}

// LoadModule validates the module up front so a bad binary fails at load
// rather than at thread start.
func (b *Backend) LoadModule(_ context.Context, path string, limits config.Limits) (*backend.Module, error) {
	data, err := backend.ReadModuleFile(path)
	if err != nil {
		return nil, err
	}
	b.log.Debug("load module", zap.Int("bytes", len(data)))

	vm, conf := b.newVM()
	defer conf.Release()
	defer vm.Release()

	if err := vm.LoadWasmBuffer(data); err != nil {
		return nil, errors.Compile(name, err)
	}
	if err := vm.Validate(); err != nil {
		return nil, errors.Compile(name, err)
	}
	return backend.NewModule(path, data, limits), nil
}

func (b *Backend) CreateSandbox(_ context.Context, mod *backend.Module, threadID int) (backend.Context, error) {
	vm, conf := b.newVM()
	fail := func(err error) (backend.Context, error) {
		vm.Release()
		conf.Release()
		return nil, errors.SandboxCreation(name, threadID, err)
	}

	if err := vm.LoadWasmBuffer(mod.Bytes); err != nil {
		return fail(err)
	}
	if err := vm.Validate(); err != nil {
		return fail(err)
	}
	if err := vm.Instantiate(); err != nil {
		return fail(err)
	}

	names, types := vm.GetFunctionList()
	funcs := make(map[string]backend.Signature, len(names))
	for i, n := range names {
		if i < len(types) && types[i] != nil {
			funcs[n] = backend.Signature{
				Params:  valTypes(types[i].GetParameters()),
				Results: valTypes(types[i].GetReturns()),
			}
		}
	}

	sb := &sandbox{
		vm:       vm,
		conf:     conf,
		funcs:    funcs,
		threadID: threadID,
	}
	if active := vm.GetActiveModule(); active != nil {
		sb.mem = active.FindMemory(backend.ExportMemory)
	}
	return sb, nil
}

func (b *Backend) Close(context.Context) error {
	return nil
}

type sandbox struct {
	vm       *wasmedge.VM
	conf     *wasmedge.Configure
	mem      *wasmedge.Memory
	funcs    map[string]backend.Signature
	threadID int
	closed   bool
}

func (s *sandbox) FunctionAvailable(name string) bool {
	if s.closed {
		return false
	}
	_, ok := s.funcs[name]
	return ok
}

// FunctionApply takes the signature the VM reports for the export.
func (s *sandbox) FunctionApply(_ context.Context, name string, threadID int, value *int64) error {
	if s.closed {
		return errors.NotInitialized(threadID, "sandbox closed")
	}
	sig, ok := s.funcs[name]
	if !ok {
		return errors.NotFound(name, threadID)
	}
	args, err := sig.Args(name, threadID, *value)
	if err != nil {
		return err
	}
	res, err := s.vm.Execute(name, args...)
	if err != nil {
		return errors.Trap(name, threadID, err)
	}
	return sig.Store(name, res, value)
}

func (s *sandbox) memory() []byte {
	if s.mem == nil || s.closed {
		return nil
	}
	data, err := s.mem.GetData(0, s.mem.GetPageSize()*65536)
	if err != nil {
		return nil
	}
	return data
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
	s.vm.Release()
	s.conf.Release()
	return nil
}

func valTypes(types []wasmedge.ValType) []backend.ValType {
	out := make([]backend.ValType, len(types))
	for i, t := range types {
		switch t {
		case wasmedge.ValType_I32:
			out[i] = backend.ValI32
		case wasmedge.ValType_I64:
			out[i] = backend.ValI64
		case wasmedge.ValType_F32:
			out[i] = backend.ValF32
		case wasmedge.ValType_F64:
			out[i] = backend.ValF64
		case wasmedge.ValType_FuncRef:
			out[i] = backend.ValFuncRef
		default:
			out[i] = backend.ValExternRef
		}
	}
	return out
}
