package wasm

// FuncExports maps each exported function name to its resolved type.
// Exports whose type index does not resolve are skipped.
func (m *Module) FuncExports() map[string]FuncType {
	funcs := make(map[string]FuncType)
	for _, exp := range m.Exports {
		if exp.Kind != KindFunc {
			continue
		}
		if ft := m.GetFuncType(exp.Idx); ft != nil {
			funcs[exp.Name] = *ft
		}
	}
	return funcs
}

// MemoryExport returns the name of the first exported memory.
func (m *Module) MemoryExport() (string, bool) {
	for _, exp := range m.Exports {
		if exp.Kind == KindMemory {
			return exp.Name, true
		}
	}
	return "", false
}
