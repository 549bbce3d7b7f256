// Package config resolves the run configuration: which engine, which module,
// how many worker threads, and the resource limits applied to the module.
//
// Every knob has a default and may be overridden, in order, by a TOML file
// and by environment variables:
//
//	WASM_HEAP_SIZE       guest heap size (bytes, "1m", "512KiB")
//	WASM_STACK_SIZE      guest stack size
//	WASM_MAX_THREAD_NUM  maximum worker threads
//	WASM_BUFFER_SIZE     scratch buffer size requested from create_buffer
//	WASM_MEMORY_PAGES    linear memory cap in 64KiB pages
//	WASM_RUNTIME         engine name
//	WASM_THREADS         worker thread count
//
// A TOML file looks like:
//
//	runtime = "wazero"
//	module = "fib.wasm"
//	threads = 4
//
//	[limits]
//	heap_size = 1048576
//	buffer_size = 65536
package config
