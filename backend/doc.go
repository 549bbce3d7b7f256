// Package backend defines the capability interface every execution engine
// satisfies, the Module handed to engines, and the Registry that maps engine
// names to the adapters compiled into the binary.
//
// # Adapters
//
// A Backend performs engine-global setup (Init), creates one Context per
// worker thread from a shared Module (CreateSandbox), and tears the engine
// down (Close). A Context is the per-thread execution environment:
//
//	FunctionAvailable  does the guest export a function
//	FunctionApply      call a guest export with one in/out scalar
//	AddrAppToNative    guest address -> host pointer
//	AddrNativeToApp    host pointer -> guest address
//	Close              release per-sandbox engine resources
//
// Capabilities an engine cannot provide return errors.ErrUnsupported.
//
// # Calling Convention
//
// FunctionApply accepts guest exports shaped as:
//
//	()                 -> ()|(i32)|(i64)
//	(value)            -> ()|(i32)|(i64)
//	(thread, value)    -> ()|(i32)|(i64)
//
// where every parameter is i32 or i64. An i32 value parameter receives the
// low 32 bits of the scalar; an i32 result is sign-extended back into it.
// A function with no result leaves the scalar unchanged.
//
// # Module Loading
//
// LoadModule uses the adapter's own ModuleLoader when it implements one
// (typically to compile once up front) and otherwise reads the raw file.
//
// # Thread Safety
//
// Backend and Module are safe for concurrent reads once Init and LoadModule
// have returned. A Context belongs to one worker and is not safe for
// concurrent use.
package backend
