package backend

import "testing"

func TestParseKind(t *testing.T) {
	tests := []struct {
		name string
		want Kind
	}{
		{"wamr", KindWAMR},
		{"wasmedge", KindWasmEdge},
		{"wasmer", KindWasmer},
		{"wasmtime", KindWasmtime},
		{"wazero", KindWazero},
		{"bogus", KindUnknown},
		{"", KindUnknown},
		{"WAMR", KindUnknown},
		{"wasmtime ", KindUnknown},
		{"unknown", KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseKind(tt.name); got != tt.want {
				t.Errorf("ParseKind(%q) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

func TestKind_String(t *testing.T) {
	for _, k := range Kinds() {
		if ParseKind(k.String()) != k {
			t.Errorf("ParseKind(%q) does not round-trip", k)
		}
		if !k.Known() {
			t.Errorf("%v should be known", k)
		}
	}
	if KindUnknown.Known() {
		t.Error("KindUnknown should not be known")
	}
	if Kind(200).String() != "unknown" {
		t.Errorf("out of range kind = %q", Kind(200).String())
	}
	if len(Kinds()) != 5 {
		t.Errorf("Kinds() = %v", Kinds())
	}
}
