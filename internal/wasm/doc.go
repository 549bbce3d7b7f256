// Package wasm decodes WebAssembly binary modules far enough to answer
// load-time questions about a guest: which functions it exports, with
// which types, and whether it exports a memory.
//
// The decoder understands the core 2.0 sections plus the GC type forms
// (rec groups, subtypes, struct and array types), so modules produced by
// GC-aware toolchains still resolve their export types:
//
//	mod, err := wasm.ParseModule(data)
//	if err != nil {
//	    return err
//	}
//	ft, ok := mod.FuncExports()["event"]
//
// Engines remain the authority on signatures once a module is
// instantiated; this package only supplies the pre-check.
package wasm
