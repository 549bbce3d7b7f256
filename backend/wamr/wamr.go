//go:build wamr && cgo

// Package wamr adapts the WebAssembly Micro Runtime by calling libiwasm
// directly through cgo. Build with -tags wamr and the WAMR headers and
// library on the compiler search paths.
//
// WAMR keeps per-thread state. CreateSandbox, FunctionApply and Close must
// run on one OS thread per sandbox; callers lock the worker goroutine with
// runtime.LockOSThread for the sandbox lifetime.
package wamr

/*
#cgo LDFLAGS: -liwasm -lm -ldl -lpthread
#include <stdlib.h>
#include <string.h>
#include "wasm_export.h"

static bool wamr_init(uint32_t max_threads) {
	RuntimeInitArgs args;
	memset(&args, 0, sizeof(args));
	args.mem_alloc_type = Alloc_With_System_Allocator;
	args.max_thread_num = max_threads;
	return wasm_runtime_full_init(&args);
}
*/
import "C"

import (
	"context"
	"sync"
	"unsafe"

	"go.uber.org/zap"

	"github.com/wippyai/wasmbench/backend"
	"github.com/wippyai/wasmbench/config"
	"github.com/wippyai/wasmbench/errors"
)

const (
	name       = "wamr"
	errBufSize = 128
)

// Backend owns the process-wide WAMR runtime.
type Backend struct {
	log    *zap.Logger
	limits config.Limits
	inited bool
}

func New() *Backend {
	return &Backend{log: zap.NewNop()}
}

func (b *Backend) Kind() backend.Kind {
	return backend.KindWAMR
}

func (b *Backend) MaxThreads() int {
	return b.limits.MaxThreads
}

func (b *Backend) Init(_ context.Context, env backend.Env) error {
	b.log = env.Log().With(zap.String("runtime", name))
	b.limits = env.Limits
	if !C.wamr_init(C.uint32_t(env.Limits.MaxThreads)) {
		return errors.Wrap(errors.PhaseConfig, errors.KindInstantiation, nil, "init runtime environment failed")
	}
	b.inited = true
	b.log.Debug("runtime initialized",
		zap.String("heap_size", config.FormatSize(env.Limits.HeapSize)),
		zap.String("stack_size", config.FormatSize(env.Limits.StackSize)),
		zap.Int("max_threads", env.Limits.MaxThreads))
	return nil
}

// module is the native form: the loaded WAMR module and the C copy of the
// bytes it references.
type module struct {
	handle C.wasm_module_t
	buf    unsafe.Pointer
}

func (b *Backend) LoadModule(_ context.Context, path string, limits config.Limits) (*backend.Module, error) {
	if !b.inited {
		return nil, errors.NotInitialized(errors.NoThread, "wamr runtime not initialized")
	}
	data, err := backend.ReadModuleFile(path)
	if err != nil {
		return nil, err
	}
	b.log.Debug("load module", zap.Int("bytes", len(data)))

	// WAMR references the buffer for the module lifetime.
	buf := C.CBytes(data)
	var errBuf [errBufSize]C.char
	handle := C.wasm_runtime_load((*C.uint8_t)(buf), C.uint32_t(len(data)), &errBuf[0], errBufSize)
	if handle == nil {
		C.free(buf)
		return nil, errors.Compile(name, errString(&errBuf[0]))
	}

	native := &module{handle: handle, buf: buf}
	m := backend.NewModule(path, data, limits)
	m.Native = native
	m.OnClose(func(context.Context) error {
		C.wasm_runtime_unload(native.handle)
		C.free(native.buf)
		return nil
	})
	return m, nil
}

func (b *Backend) CreateSandbox(_ context.Context, mod *backend.Module, threadID int) (backend.Context, error) {
	native, ok := mod.Native.(*module)
	if !ok {
		return nil, errors.SandboxCreation(name, threadID, errors.Unsupported(name, "module not loaded by wamr"))
	}

	sb := &sandbox{threadID: threadID}
	if !C.wasm_runtime_thread_env_inited() {
		if !C.wasm_runtime_init_thread_env() {
			return nil, errors.SandboxCreation(name, threadID, errors.Resource("init thread environment failed", nil))
		}
		sb.ownsThreadEnv = true
	}

	var errBuf [errBufSize]C.char
	sb.inst = C.wasm_runtime_instantiate(native.handle,
		C.uint32_t(mod.Limits.StackSize), C.uint32_t(mod.Limits.HeapSize),
		&errBuf[0], errBufSize)
	if sb.inst == nil {
		sb.releaseThreadEnv()
		return nil, errors.SandboxCreation(name, threadID, errString(&errBuf[0]))
	}

	sb.env = C.wasm_runtime_create_exec_env(sb.inst, C.uint32_t(mod.Limits.StackSize))
	if sb.env == nil {
		C.wasm_runtime_deinstantiate(sb.inst)
		sb.releaseThreadEnv()
		return nil, errors.SandboxCreation(name, threadID, errors.Resource("create exec env failed", nil))
	}
	sb.funcs = make(map[string]*function)
	return sb, nil
}

func (b *Backend) Close(context.Context) error {
	if b.inited {
		C.wasm_runtime_destroy()
		b.inited = false
	}
	return nil
}

type sandbox struct {
	inst          C.wasm_module_inst_t
	env           C.wasm_exec_env_t
	funcs         map[string]*function
	argv          [4]C.uint32_t
	threadID      int
	ownsThreadEnv bool
	closed        bool
	closeOnce     sync.Once
}

// function is a resolved export with the signature WAMR reports for it.
type function struct {
	inst C.wasm_function_inst_t
	sig  backend.Signature
}

// lookup resolves and caches an export. Missing exports cache as nil.
func (s *sandbox) lookup(name string) *function {
	if fn, ok := s.funcs[name]; ok {
		return fn
	}
	cname := C.CString(name)
	inst := C.wasm_runtime_lookup_function(s.inst, cname)
	C.free(unsafe.Pointer(cname))

	var fn *function
	if inst != nil {
		fn = &function{inst: inst, sig: s.signature(inst)}
	}
	s.funcs[name] = fn
	return fn
}

func (s *sandbox) signature(inst C.wasm_function_inst_t) backend.Signature {
	params := make([]C.wasm_valkind_t, C.wasm_func_get_param_count(inst, s.inst))
	results := make([]C.wasm_valkind_t, C.wasm_func_get_result_count(inst, s.inst))
	if len(params) > 0 {
		C.wasm_func_get_param_types(inst, s.inst, &params[0])
	}
	if len(results) > 0 {
		C.wasm_func_get_result_types(inst, s.inst, &results[0])
	}
	return backend.Signature{Params: valTypes(params), Results: valTypes(results)}
}

func valTypes(kinds []C.wasm_valkind_t) []backend.ValType {
	out := make([]backend.ValType, len(kinds))
	for i, k := range kinds {
		switch k {
		case C.WASM_I32:
			out[i] = backend.ValI32
		case C.WASM_I64:
			out[i] = backend.ValI64
		case C.WASM_F32:
			out[i] = backend.ValF32
		case C.WASM_F64:
			out[i] = backend.ValF64
		case C.WASM_FUNCREF:
			out[i] = backend.ValFuncRef
		default:
			out[i] = backend.ValExternRef
		}
	}
	return out
}

func (s *sandbox) FunctionAvailable(name string) bool {
	return !s.closed && s.lookup(name) != nil
}

// FunctionApply marshals through WAMR's cell array: an i32 takes one 32-bit
// cell, an i64 two, low word first. Signatures come from the runtime.
func (s *sandbox) FunctionApply(_ context.Context, name string, threadID int, value *int64) error {
	if s.closed {
		return errors.NotInitialized(threadID, "sandbox closed")
	}
	fn := s.lookup(name)
	if fn == nil {
		return errors.NotFound(name, threadID)
	}
	sig := fn.sig
	if err := sig.Check(name); err != nil {
		return err
	}

	var raw [2]uint64
	args := sig.RawArgs(raw[:], threadID, *value)
	argc := 0
	for i, a := range args {
		s.argv[argc] = C.uint32_t(a)
		argc++
		if sig.Params[i] == backend.ValI64 {
			s.argv[argc] = C.uint32_t(a >> 32)
			argc++
		}
	}

	// A goroutine that was not pinned may have moved to a fresh OS thread.
	if !C.wasm_runtime_thread_env_inited() && !C.wasm_runtime_init_thread_env() {
		return errors.Trap(name, threadID, wamrError("init thread environment failed"))
	}
	if !C.wasm_runtime_call_wasm(s.env, fn.inst, C.uint32_t(argc), &s.argv[0]) {
		err := errString(C.wasm_runtime_get_exception(s.inst))
		C.wasm_runtime_clear_exception(s.inst)
		return errors.Trap(name, threadID, err)
	}

	if len(sig.Results) == 1 {
		raw[0] = uint64(s.argv[0])
		if sig.Results[0] == backend.ValI64 {
			raw[0] |= uint64(s.argv[1]) << 32
		}
		sig.StoreRaw(raw[:1], value)
	}
	return nil
}

func (s *sandbox) AddrAppToNative(addr uint32) (unsafe.Pointer, error) {
	if s.closed {
		return nil, errors.NotInitialized(s.threadID, "sandbox closed")
	}
	if !C.wasm_runtime_validate_app_addr(s.inst, C.uint64_t(addr), 1) {
		C.wasm_runtime_clear_exception(s.inst)
		return nil, errors.OutOfBounds(uint64(addr), 0)
	}
	return C.wasm_runtime_addr_app_to_native(s.inst, C.uint64_t(addr)), nil
}

func (s *sandbox) AddrNativeToApp(p unsafe.Pointer) (uint32, error) {
	if s.closed {
		return 0, errors.NotInitialized(s.threadID, "sandbox closed")
	}
	if p == nil || !C.wasm_runtime_validate_native_addr(s.inst, p, 1) {
		C.wasm_runtime_clear_exception(s.inst)
		return 0, errors.OutOfBounds(uint64(uintptr(p)), 0)
	}
	return uint32(C.wasm_runtime_addr_native_to_app(s.inst, p)), nil
}

func (s *sandbox) Close(context.Context) error {
	s.closeOnce.Do(func() {
		s.closed = true
		s.funcs = nil
		C.wasm_runtime_destroy_exec_env(s.env)
		C.wasm_runtime_deinstantiate(s.inst)
		s.releaseThreadEnv()
	})
	return nil
}

func (s *sandbox) releaseThreadEnv() {
	if s.ownsThreadEnv {
		C.wasm_runtime_destroy_thread_env()
		s.ownsThreadEnv = false
	}
}

type wamrError string

func (e wamrError) Error() string {
	return string(e)
}

func errString(p *C.char) error {
	if p == nil {
		return wamrError("unknown error")
	}
	msg := C.GoString(p)
	if msg == "" {
		msg = "unknown error"
	}
	return wamrError(msg)
}
