// Package wasmbench lets a multi-threaded benchmarking harness drive guest
// WebAssembly modules through one interface while bytecode execution is
// delegated to an interchangeable engine.
//
// # Architecture Overview
//
//	wasmbench/           Root package with the guest buffer Handle codec
//	├── backend/         Backend capability interface, Module loader, Registry
//	│   ├── wazero/      Pure Go reference engine (always built)
//	│   ├── wasmtime/    wasmtime-go engine (build tag wasmtime)
//	│   ├── wasmer/      wasmer-go engine (build tag wasmer)
//	│   ├── wasmedge/    WasmEdge-go engine (build tag wasmedge)
//	│   └── wamr/        WAMR engine via libiwasm (build tag wamr)
//	├── engines/         Registry of the engines compiled into the binary
//	├── bench/           Test descriptor, per-thread sandboxes, event executor
//	├── config/          Resource limits, TOML file and environment overrides
//	├── errors/          Structured error types
//	└── cmd/wasmbench/   Reference harness
//
// # Quick Start
//
//	reg := engines.NewRegistry()
//	cfg := config.Default()
//	cfg.Runtime = "wazero"
//	cfg.Threads = 4
//
//	test, err := bench.Load(reg, "fib.wasm", cfg, bench.WithLogger(logger))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer test.Close()
//
//	ops := test.Ops
//	if err := ops.Init(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	// per worker goroutine:
//	//   ops.ThreadInit(ctx, tid)
//	//   for { ev := ops.NextEvent(tid); ops.ExecuteEvent(ctx, &ev, tid) }
//	//   ops.ThreadDone(ctx, tid)
//	ops.Done(ctx)
//
// # Guest ABI
//
// A guest must export "event", called once per benchmark iteration. Optional
// exports: prepare, cleanup, help, init, done, thread_init, thread_done,
// thread_run, report_intermediate, report_cumulative and create_buffer.
//
// create_buffer receives an encoded Handle carrying the requested size and
// returns a Handle with the guest address and actual size of the buffer it
// allocated. See EncodeHandle.
package wasmbench
