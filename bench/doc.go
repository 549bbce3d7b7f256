// Package bench is the harness-facing side of the runtime layer: the test
// descriptor a benchmark driver registers, and the Suite that owns one run's
// engine, module and per-thread sandboxes.
//
// A driver loads a test, initializes it once, then gives every worker its
// own goroutine:
//
//	test, err := bench.Load(engines.NewRegistry(), "guest.wasm", cfg)
//	if err != nil {
//		return err
//	}
//	defer test.Close()
//
//	if err := test.Ops.Init(ctx); err != nil {
//		return err
//	}
//	// per worker tid, on a goroutine locked to its OS thread:
//	//	test.Ops.ThreadInit(ctx, tid)
//	//	for ... {
//	//		ev := test.Ops.NextEvent(tid)
//	//		err := test.Ops.ExecuteEvent(ctx, &ev, tid)
//	//	}
//	//	test.Ops.ThreadDone(ctx, tid)
//	// after joining every worker:
//	return test.Ops.Done(ctx)
//
// Errors follow the errors package classes. Anything but an
// invocation error on the event path is fatal and is logged at error level
// before it is returned.
package bench
