// Package wat compiles WebAssembly text format into binary modules.
//
// It covers the subset of the text format the test guests are written
// in: module-level funcs, memories, globals and exports, folded and flat
// instructions, and named locals.
//
//	bin, err := wat.Compile(`(module (func (export "event") (param i64) (result i64) local.get 0))`)
package wat
