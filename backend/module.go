package backend

import (
	"context"
	"os"
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/wasmbench/config"
	"github.com/wippyai/wasmbench/errors"
	"github.com/wippyai/wasmbench/internal/wasm"
)

// Module is a loaded guest module, shared read-only by every sandbox.
type Module struct {
	// Native is the engine's compiled form when the adapter loaded the
	// module itself, nil otherwise.
	Native any

	funcs     map[string]wasm.FuncType
	memory    string
	release   func(ctx context.Context) error
	Path      string
	Bytes     []byte
	Limits    config.Limits
	closeOnce sync.Once
}

// NewModule wraps raw module bytes. Exported function signatures are decoded
// best-effort as a load-time pre-check; a module the decoder rejects is still
// usable, it just defers introspection to the engine.
func NewModule(path string, data []byte, limits config.Limits) *Module {
	m := &Module{
		Path:   path,
		Bytes:  data,
		Limits: limits,
	}
	if parsed, err := wasm.ParseModule(data); err == nil {
		m.funcs = parsed.FuncExports()
		m.memory, _ = parsed.MemoryExport()
	}
	return m
}

// Size is the module's byte length.
func (m *Module) Size() int {
	return len(m.Bytes)
}

// Scanned reports whether export signatures are known without the engine.
func (m *Module) Scanned() bool {
	return m.funcs != nil
}

// HasExport reports whether the scanned module exports function name.
// It is always false when the module was not scanned.
func (m *Module) HasExport(name string) bool {
	_, ok := m.funcs[name]
	return ok
}

// MemoryExport is the name of the scanned module's exported memory, empty
// when there is none or the module was not scanned.
func (m *Module) MemoryExport() string {
	return m.memory
}

// Signature returns the scanned signature of export name.
func (m *Module) Signature(name string) (Signature, bool) {
	ft, ok := m.funcs[name]
	if !ok {
		return Signature{}, false
	}
	return NewSignature(ft.Params, ft.Results), true
}

// Exports lists the scanned function export names.
func (m *Module) Exports() []string {
	if m.funcs == nil {
		return nil
	}
	names := make([]string, 0, len(m.funcs))
	for name := range m.funcs {
		names = append(names, name)
	}
	return names
}

// OnClose registers the engine-side release for Native.
func (m *Module) OnClose(fn func(ctx context.Context) error) {
	m.release = fn
}

// Close releases the module exactly once. Later calls are no-ops.
func (m *Module) Close(ctx context.Context) error {
	var err error
	m.closeOnce.Do(func() {
		if m.release != nil {
			err = m.release(ctx)
		}
		m.Native = nil
		m.Bytes = nil
	})
	return err
}

// ReadModuleFile reads the whole module file. Reads are not retried.
func ReadModuleFile(path string) ([]byte, error) {
	if path == "" {
		return nil, errors.MissingPath()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Load("load wasm module file["+path+"] into buffer failed", err)
	}
	return data, nil
}

// LoadModule produces the run's Module with exactly one loader: the
// adapter's own when b implements ModuleLoader, the raw-bytes path otherwise.
// limits are recorded on the module either way.
func LoadModule(ctx context.Context, b Backend, path string, limits config.Limits, log *zap.Logger) (*Module, error) {
	if log == nil {
		log = zap.NewNop()
	}

	var (
		m   *Module
		err error
	)
	if ml, ok := b.(ModuleLoader); ok {
		log.Debug("use runtime customized load module", zap.Stringer("runtime", b.Kind()))
		m, err = ml.LoadModule(ctx, path, limits)
	} else {
		var data []byte
		data, err = ReadModuleFile(path)
		if err == nil {
			m = NewModule(path, data, limits)
		}
	}
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, errors.Load("load wasm module failed", nil)
	}

	m.Limits = limits
	if !m.Scanned() {
		log.Debug("module exports not scanned, deferring to engine", zap.String("path", path))
	}
	log.Info("loaded wasm module",
		zap.String("path", path),
		zap.Int("bytes", m.Size()),
		zap.Bool("scanned", m.Scanned()),
		zap.String("memory", m.MemoryExport()))
	return m, nil
}
