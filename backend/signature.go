package backend

import (
	"strings"

	"github.com/wippyai/wasmbench/errors"
	"github.com/wippyai/wasmbench/internal/wasm"
)

// ValType is a core WebAssembly value type, encoded as in the binary format.
type ValType byte

const (
	ValI32       = ValType(wasm.ValI32)
	ValI64       = ValType(wasm.ValI64)
	ValF32       = ValType(wasm.ValF32)
	ValF64       = ValType(wasm.ValF64)
	ValFuncRef   = ValType(wasm.ValFuncRef)
	ValExternRef = ValType(wasm.ValExtern)
)

func (v ValType) String() string {
	switch v {
	case ValI32:
		return "i32"
	case ValI64:
		return "i64"
	case ValF32:
		return "f32"
	case ValF64:
		return "f64"
	case ValFuncRef:
		return "funcref"
	case ValExternRef:
		return "externref"
	}
	return "ref"
}

func (v ValType) integer() bool {
	return v == ValI32 || v == ValI64
}

// Signature is a guest function's parameter and result types.
type Signature struct {
	Params  []ValType
	Results []ValType
}

// NewSignature builds a Signature from binary-encoded value types.
func NewSignature[T ~byte](params, results []T) Signature {
	s := Signature{
		Params:  make([]ValType, len(params)),
		Results: make([]ValType, len(results)),
	}
	for i, p := range params {
		s.Params[i] = ValType(p)
	}
	for i, r := range results {
		s.Results[i] = ValType(r)
	}
	return s
}

func (s Signature) String() string {
	var b strings.Builder
	b.WriteByte('(')
	for i, p := range s.Params {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(p.String())
	}
	b.WriteString(") -> (")
	for i, r := range s.Results {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(r.String())
	}
	b.WriteByte(')')
	return b.String()
}

// Check reports whether FunctionApply can call a function of this shape.
func (s Signature) Check(export string) error {
	bad := func(detail string) error {
		return errors.New(errors.PhaseInvoke, errors.KindBadSignature).
			Export(export).
			Detail("%s: %s", detail, s).
			Build()
	}
	if len(s.Params) > 2 {
		return bad("at most 2 params supported")
	}
	if len(s.Results) > 1 {
		return bad("at most 1 result supported")
	}
	for _, p := range s.Params {
		if !p.integer() {
			return bad("params must be i32 or i64")
		}
	}
	for _, r := range s.Results {
		if !r.integer() {
			return bad("result must be i32 or i64")
		}
	}
	return nil
}

// Args binds the thread id and value to typed Go arguments (int32/int64)
// for engines with a reflective call API.
func (s Signature) Args(export string, threadID int, value int64) ([]any, error) {
	if err := s.Check(export); err != nil {
		return nil, err
	}
	switch len(s.Params) {
	case 0:
		return nil, nil
	case 1:
		return []any{typed(s.Params[0], value)}, nil
	default:
		return []any{typed(s.Params[0], int64(threadID)), typed(s.Params[1], value)}, nil
	}
}

// RawArgs binds the thread id and value into dst as raw 64-bit stack slots,
// for engines with a stack-based call API. dst must hold at least
// max(len(Params), len(Results)) slots.
func (s Signature) RawArgs(dst []uint64, threadID int, value int64) []uint64 {
	switch len(s.Params) {
	case 0:
		return dst[:0]
	case 1:
		dst[0] = raw(s.Params[0], value)
		return dst[:1]
	default:
		dst[0] = raw(s.Params[0], int64(threadID))
		dst[1] = raw(s.Params[1], value)
		return dst[:2]
	}
}

// Store writes a typed call result into value. A signature without results
// leaves value unchanged.
func (s Signature) Store(export string, result any, value *int64) error {
	if len(s.Results) == 0 {
		return nil
	}
	switch r := result.(type) {
	case int32:
		*value = int64(r)
	case int64:
		*value = r
	case uint32:
		*value = int64(int32(r))
	case uint64:
		*value = int64(r)
	case []any:
		if len(r) != 1 {
			return errors.New(errors.PhaseInvoke, errors.KindBadSignature).
				Export(export).
				Detail("expected 1 result, engine returned %d", len(r)).
				Build()
		}
		return s.Store(export, r[0], value)
	default:
		return errors.New(errors.PhaseInvoke, errors.KindBadSignature).
			Export(export).
			Detail("unexpected result type %T", result).
			Build()
	}
	return nil
}

// StoreRaw writes a raw stack result into value.
func (s Signature) StoreRaw(stack []uint64, value *int64) {
	if len(s.Results) == 0 {
		return
	}
	if s.Results[0] == ValI32 {
		*value = int64(int32(uint32(stack[0])))
		return
	}
	*value = int64(stack[0])
}

func typed(t ValType, v int64) any {
	if t == ValI32 {
		return int32(v)
	}
	return v
}

func raw(t ValType, v int64) uint64 {
	if t == ValI32 {
		return uint64(uint32(int32(v)))
	}
	return uint64(v)
}
