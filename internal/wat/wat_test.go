package wat

import (
	"strings"
	"testing"

	"github.com/wippyai/wasmbench/internal/wasm"
)

func TestCompile_Exports(t *testing.T) {
	tests := []struct {
		name    string
		wat     string
		export  string
		params  []wasm.ValType
		results []wasm.ValType
	}{
		{
			name:    "event",
			wat:     `(module (func (export "event") (param i64) (result i64) (i64.add (local.get 0) (i64.const 1))))`,
			export:  "event",
			params:  []wasm.ValType{wasm.ValI64},
			results: []wasm.ValType{wasm.ValI64},
		},
		{
			name:   "thread init",
			wat:    `(module (func (export "thread_init") (param $tid i32) (param $v i64)))`,
			export: "thread_init",
			params: []wasm.ValType{wasm.ValI32, wasm.ValI64},
		},
		{
			name:    "flat body",
			wat:     `(module (func (export "neg") (result i32) i32.const -1))`,
			export:  "neg",
			results: []wasm.ValType{wasm.ValI32},
		},
		{
			name: "after import",
			wat: `(module
				(import "env" "tick" (func))
				(func (export "event") (param i64) (result i64) (local.get 0)))`,
			export:  "event",
			params:  []wasm.ValType{wasm.ValI64},
			results: []wasm.ValType{wasm.ValI64},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bin, err := Compile(tt.wat)
			if err != nil {
				t.Fatalf("Compile: %v", err)
			}
			mod, err := wasm.ParseModule(bin)
			if err != nil {
				t.Fatalf("ParseModule: %v", err)
			}
			ft, ok := mod.FuncExports()[tt.export]
			if !ok {
				t.Fatalf("export %q missing", tt.export)
			}
			if !sameTypes(ft.Params, tt.params) {
				t.Errorf("params = %v, want %v", ft.Params, tt.params)
			}
			if !sameTypes(ft.Results, tt.results) {
				t.Errorf("results = %v, want %v", ft.Results, tt.results)
			}
		})
	}
}

func TestCompile_MemoryExport(t *testing.T) {
	bin, err := Compile(`(module (memory (export "memory") 1))`)
	if err != nil {
		t.Fatal(err)
	}
	mod, err := wasm.ParseModule(bin)
	if err != nil {
		t.Fatal(err)
	}
	if name, ok := mod.MemoryExport(); !ok || name != "memory" {
		t.Errorf("MemoryExport() = %q, %v", name, ok)
	}
	if len(mod.FuncExports()) != 0 {
		t.Errorf("unexpected func exports: %v", mod.FuncExports())
	}
}

func TestCompile_Errors(t *testing.T) {
	tests := []struct {
		name, wat, wantErr string
	}{
		{"missing_module", "(func)", "expected 'module'"},
		{"unclosed", "(module", "unexpected end"},
		{"unknown_instr", "(module (func (bogus)))", "unknown instruction"},
		{"unknown_type", "(module (func (param bogus)))", "unknown value type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile(tt.wat)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q missing %q", err, tt.wantErr)
			}
		})
	}
}

func sameTypes(got, want []wasm.ValType) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}
