package backend

import (
	"errors"
	"testing"

	wberrors "github.com/wippyai/wasmbench/errors"
)

func sig(params, results []ValType) Signature {
	return Signature{Params: params, Results: results}
}

func TestSignature_Check(t *testing.T) {
	tests := []struct {
		name string
		sig  Signature
		ok   bool
	}{
		{"nullary", sig(nil, nil), true},
		{"value", sig([]ValType{ValI64}, []ValType{ValI64}), true},
		{"thread value", sig([]ValType{ValI32, ValI64}, []ValType{ValI64}), true},
		{"i32 result", sig([]ValType{ValI32}, []ValType{ValI32}), true},
		{"three params", sig([]ValType{ValI32, ValI32, ValI32}, nil), false},
		{"two results", sig(nil, []ValType{ValI32, ValI32}), false},
		{"float param", sig([]ValType{ValF64}, nil), false},
		{"float result", sig(nil, []ValType{ValF32}), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.sig.Check("event")
			if tt.ok && err != nil {
				t.Fatalf("Check() = %v", err)
			}
			if !tt.ok {
				var e *wberrors.Error
				if !errors.As(err, &e) || e.Kind != wberrors.KindBadSignature || e.Export != "event" {
					t.Fatalf("Check() = %v, want bad_signature", err)
				}
			}
		})
	}
}

func TestSignature_Args(t *testing.T) {
	args, err := sig(nil, nil).Args("event", 3, 9)
	if err != nil || len(args) != 0 {
		t.Errorf("nullary args = %v, %v", args, err)
	}

	args, err = sig([]ValType{ValI64}, nil).Args("event", 3, 9)
	if err != nil || len(args) != 1 || args[0] != int64(9) {
		t.Errorf("unary args = %v, %v", args, err)
	}

	args, err = sig([]ValType{ValI32, ValI64}, nil).Args("event", 3, -1)
	if err != nil || len(args) != 2 || args[0] != int32(3) || args[1] != int64(-1) {
		t.Errorf("binary args = %v, %v", args, err)
	}

	if _, err := sig([]ValType{ValF32}, nil).Args("event", 0, 0); err == nil {
		t.Error("float param should be rejected")
	}
}

func TestSignature_RawArgs(t *testing.T) {
	stack := make([]uint64, 2)

	got := sig([]ValType{ValI32, ValI64}, nil).RawArgs(stack, 7, -2)
	if len(got) != 2 || got[0] != 7 || got[1] != uint64(0xfffffffffffffffe) {
		t.Errorf("RawArgs = %#x", got)
	}

	got = sig([]ValType{ValI32}, nil).RawArgs(stack, 7, -1)
	if len(got) != 1 || got[0] != 0xffffffff {
		t.Errorf("i32 RawArgs = %#x, want zero-extended 0xffffffff", got)
	}

	if got = sig(nil, nil).RawArgs(stack, 7, 1); len(got) != 0 {
		t.Errorf("nullary RawArgs = %v", got)
	}
}

func TestSignature_Store(t *testing.T) {
	i64 := sig(nil, []ValType{ValI64})
	i32 := sig(nil, []ValType{ValI32})

	tests := []struct {
		name   string
		sig    Signature
		result any
		want   int64
	}{
		{"int64", i64, int64(1 << 40), 1 << 40},
		{"int32 negative", i32, int32(-5), -5},
		{"uint32 sign extends", i32, uint32(0xffffffff), -1},
		{"uint64", i64, uint64(12), 12},
		{"slice", i64, []any{int64(77)}, 77},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var v int64
			if err := tt.sig.Store("event", tt.result, &v); err != nil {
				t.Fatal(err)
			}
			if v != tt.want {
				t.Errorf("Store() = %d, want %d", v, tt.want)
			}
		})
	}

	v := int64(5)
	if err := sig(nil, nil).Store("event", nil, &v); err != nil || v != 5 {
		t.Errorf("void Store changed value: %d, %v", v, err)
	}
	if err := i64.Store("event", "nope", &v); err == nil {
		t.Error("unexpected result type should fail")
	}
	if err := i64.Store("event", []any{int64(1), int64(2)}, &v); err == nil {
		t.Error("two results should fail")
	}
}

func TestSignature_StoreRaw(t *testing.T) {
	var v int64
	sig(nil, []ValType{ValI32}).StoreRaw([]uint64{0xfffffffe}, &v)
	if v != -2 {
		t.Errorf("i32 StoreRaw = %d, want -2", v)
	}

	sig(nil, []ValType{ValI64}).StoreRaw([]uint64{1 << 33}, &v)
	if v != 1<<33 {
		t.Errorf("i64 StoreRaw = %d", v)
	}

	v = 9
	sig(nil, nil).StoreRaw(nil, &v)
	if v != 9 {
		t.Error("void StoreRaw changed value")
	}
}

func TestSignature_String(t *testing.T) {
	got := sig([]ValType{ValI32, ValI64}, []ValType{ValI64}).String()
	if got != "(i32, i64) -> (i64)" {
		t.Errorf("String() = %q", got)
	}
}
