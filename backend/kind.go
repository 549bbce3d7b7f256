package backend

// Kind identifies an engine.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindWAMR
	KindWasmEdge
	KindWasmer
	KindWasmtime
	KindWazero
)

var kindNames = [...]string{
	KindUnknown:  "unknown",
	KindWAMR:     "wamr",
	KindWasmEdge: "wasmedge",
	KindWasmer:   "wasmer",
	KindWasmtime: "wasmtime",
	KindWazero:   "wazero",
}

// ParseKind maps an engine name to its Kind. Matching is exact; anything
// unrecognized, including the empty string, is KindUnknown.
func ParseKind(name string) Kind {
	for k := KindWAMR; int(k) < len(kindNames); k++ {
		if kindNames[k] == name {
			return k
		}
	}
	return KindUnknown
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return kindNames[KindUnknown]
}

// Known reports whether k names an engine.
func (k Kind) Known() bool {
	return k != KindUnknown && int(k) < len(kindNames)
}

// Kinds returns every known engine kind.
func Kinds() []Kind {
	out := make([]Kind, 0, len(kindNames)-1)
	for k := KindWAMR; int(k) < len(kindNames); k++ {
		out = append(out, k)
	}
	return out
}
