package bench

import (
	"context"
	stderrors "errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/wippyai/wasmbench"
	"github.com/wippyai/wasmbench/backend"
	"github.com/wippyai/wasmbench/backend/backendtest"
	"github.com/wippyai/wasmbench/config"
	"github.com/wippyai/wasmbench/errors"
)

// guestExporting builds a module that exports a nullary no-op per name, so
// the suite's export scan sees the same names as the fake backend.
func guestExporting(t *testing.T, names ...string) string {
	t.Helper()
	return backendtest.WriteModule(t, backendtest.NopExports(names...))
}

func fakeRegistry(b backend.Backend) *backend.Registry {
	reg := backend.NewRegistry()
	reg.MustRegister(b.Kind(), func() backend.Backend { return b })
	return reg
}

func increment(_ int, v *int64) error {
	*v++
	return nil
}

func testConfig(threads int) config.Config {
	cfg := config.Default()
	cfg.Runtime = "wazero"
	cfg.Threads = threads
	return cfg
}

type fixture struct {
	backend *backendtest.Backend
	test    *Test
	suite   *Suite
	logs    *observer.ObservedLogs
}

func newFixture(t *testing.T, threads int, exports map[string]backendtest.Func, opts ...Option) *fixture {
	t.Helper()
	names := make([]string, 0, len(exports))
	for n := range exports {
		names = append(names, n)
	}
	return newFixtureModule(t, threads, exports, names, opts...)
}

// newFixtureModule lets the module's exports differ from the sandbox's.
func newFixtureModule(t *testing.T, threads int, exports map[string]backendtest.Func, module []string, opts ...Option) *fixture {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	b := backendtest.New(exports)
	opts = append([]Option{WithLogger(zap.New(core))}, opts...)

	test, err := Load(fakeRegistry(b), guestExporting(t, module...), testConfig(threads), opts...)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return &fixture{backend: b, test: test, suite: test.Ops.(*Suite), logs: logs}
}

func (f *fixture) init(t *testing.T) {
	t.Helper()
	if err := f.suite.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}
}

func TestLoad_UnknownRuntime(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	reg := fakeRegistry(backendtest.New(nil))

	for _, name := range []string{"bogus", ""} {
		cfg := testConfig(1)
		cfg.Runtime = name
		test, err := Load(reg, "guest.wasm", cfg, WithLogger(zap.New(core)))
		if test != nil {
			t.Errorf("Load(%q) returned a test", name)
		}
		if !stderrors.Is(err, errors.ErrUnknownRuntime) || !errors.IsFatal(err) {
			t.Errorf("Load(%q) err = %v, want fatal ErrUnknownRuntime", name, err)
		}
	}
	if n := logs.FilterLevelExact(zapcore.ErrorLevel).Len(); n != 2 {
		t.Errorf("logged %d errors, want 2", n)
	}
}

func TestLoad_MissingPath(t *testing.T) {
	test, err := Load(fakeRegistry(backendtest.New(nil)), "", testConfig(1))
	if test != nil {
		t.Error("Load with empty path returned a test")
	}
	if !stderrors.Is(err, errors.ErrMissingPath) {
		t.Errorf("err = %v, want ErrMissingPath", err)
	}
}

func TestLoad_ThreadLimits(t *testing.T) {
	b := backendtest.New(nil)
	b.Threads = 1

	_, err := Load(fakeRegistry(b), "guest.wasm", testConfig(2))
	if !stderrors.Is(err, errors.ErrUnsupportedThreads) {
		t.Errorf("err = %v, want ErrUnsupportedThreads", err)
	}

	if _, err := Load(fakeRegistry(b), "guest.wasm", testConfig(1)); err != nil {
		t.Errorf("single thread should load: %v", err)
	}

	if _, err := Load(fakeRegistry(b), "guest.wasm", testConfig(0)); err == nil {
		t.Error("zero threads should fail")
	}
}

func TestLoad_Descriptor(t *testing.T) {
	test, err := Load(fakeRegistry(backendtest.New(nil)), "/opt/guests/fib.wasm", testConfig(1))
	if err != nil {
		t.Fatal(err)
	}
	if test.ShortName != "fib.wasm" || test.SourcePath != "/opt/guests/fib.wasm" {
		t.Errorf("names = %q, %q", test.ShortName, test.SourcePath)
	}
	if len(test.Args) != 5 {
		t.Errorf("Args = %v", test.Args)
	}
	if _, ok := test.Reporter(); !ok {
		t.Error("suite should provide report hooks")
	}
	if _, ok := test.CommandRunner(); !ok {
		t.Error("suite should provide commands")
	}
	if _, ok := test.ThreadRunner(); !ok {
		t.Error("suite should provide thread_run")
	}
}

func TestInit_TableSizing(t *testing.T) {
	const threads = 4
	f := newFixture(t, threads, map[string]backendtest.Func{"event": increment})
	f.init(t)

	if f.suite.Slots() != threads {
		t.Fatalf("Slots() = %d, want %d", f.suite.Slots(), threads)
	}
	for i := 0; i < threads; i++ {
		if f.suite.Sandbox(i) != nil {
			t.Errorf("slot %d populated before ThreadInit", i)
		}
	}

	if err := f.suite.ThreadInit(context.Background(), 2); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < threads; i++ {
		if populated := f.suite.Sandbox(i) != nil; populated != (i == 2) {
			t.Errorf("slot %d populated = %v", i, populated)
		}
	}
	if f.suite.Sandbox(-1) != nil || f.suite.Sandbox(threads) != nil {
		t.Error("out of range slots should be nil")
	}
}

func TestInit_EngineFailure(t *testing.T) {
	b := backendtest.New(map[string]backendtest.Func{"event": increment})
	b.InitErr = errors.Wrap(errors.PhaseConfig, errors.KindInstantiation, nil, "no engine")

	test, err := Load(fakeRegistry(b), guestExporting(t, "event"), testConfig(1))
	if err != nil {
		t.Fatal(err)
	}
	if err := test.Ops.Init(context.Background()); !errors.IsFatal(err) {
		t.Errorf("Init err = %v, want fatal", err)
	}
}

func TestInit_MissingEventExport(t *testing.T) {
	b := backendtest.New(map[string]backendtest.Func{"event": increment})
	test, err := Load(fakeRegistry(b), guestExporting(t, "create_buffer"), testConfig(1))
	if err != nil {
		t.Fatal(err)
	}

	err = test.Ops.Init(context.Background())
	if !stderrors.Is(err, errors.ErrMissingEvent) {
		t.Errorf("err = %v, want ErrMissingEvent", err)
	}
}

func TestInit_ArgThreadLimit(t *testing.T) {
	tests := []struct {
		name    string
		max     string
		wantErr bool
	}{
		{"below threads", "2", true},
		{"equal threads", "4", false},
		{"engine default", "0", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, 4, map[string]backendtest.Func{"event": increment})
			if err := f.test.SetArg(ArgMaxThreads, tt.max); err != nil {
				t.Fatal(err)
			}

			err := f.suite.Init(context.Background())
			if !tt.wantErr {
				if err != nil {
					t.Fatalf("Init: %v", err)
				}
				return
			}
			if !stderrors.Is(err, errors.ErrUnsupportedThreads) {
				t.Fatalf("err = %v, want ErrUnsupportedThreads", err)
			}
			if f.suite.Slots() != 0 {
				t.Errorf("Slots() = %d, table must not be sized", f.suite.Slots())
			}
			if f.backend.Inited {
				t.Error("engine initialized past the thread limit")
			}
		})
	}
}

func TestLoad_OptionsAppliedOnce(t *testing.T) {
	calls := 0
	counting := func(o *options) { calls++ }
	filler := func(int, []byte) uint32 { return 0 }

	f := newFixture(t, 1, map[string]backendtest.Func{"event": increment},
		counting, WithEventFiller(filler))
	if calls != 1 {
		t.Errorf("option applied %d times, want 1", calls)
	}
	if f.suite.filler == nil {
		t.Error("filler not installed")
	}
	if f.logs.Len() == 0 {
		t.Error("load should log through the configured logger")
	}
}

func TestInit_UnreadableModule(t *testing.T) {
	test, err := Load(fakeRegistry(backendtest.New(nil)), "/nonexistent/guest.wasm", testConfig(1))
	if err != nil {
		t.Fatal(err)
	}
	err = test.Ops.Init(context.Background())
	var e *errors.Error
	if !errors.As(err, &e) || e.Phase != errors.PhaseLoad || !e.Fatal() {
		t.Errorf("err = %v, want fatal load error", err)
	}
}

func TestInit_GuestHooks(t *testing.T) {
	var initValue, doneCalls int64
	f := newFixture(t, 3, map[string]backendtest.Func{
		"event": increment,
		"init": func(_ int, v *int64) error {
			initValue = *v
			return nil
		},
		"done": func(int, *int64) error {
			doneCalls++
			return nil
		},
	})
	f.init(t)
	if initValue != 3 {
		t.Errorf("guest init got %d, want thread count 3", initValue)
	}

	ctx := context.Background()
	if err := f.suite.Done(ctx); err != nil {
		t.Fatal(err)
	}
	if err := f.suite.Done(ctx); err != nil {
		t.Fatal(err)
	}
	if doneCalls != 1 {
		t.Errorf("guest done called %d times", doneCalls)
	}
	if created, closed := f.backend.Created.Load(), f.backend.Closed.Load(); created != closed {
		t.Errorf("control sandboxes leaked: created %d, closed %d", created, closed)
	}
	if !f.backend.Shutdown {
		t.Error("backend not closed")
	}
}

func TestInit_GuestInitFails(t *testing.T) {
	f := newFixture(t, 1, map[string]backendtest.Func{
		"event": increment,
		"init":  func(int, *int64) error { return stderrors.New("boom") },
	})
	err := f.suite.Init(context.Background())
	var e *errors.Error
	if !errors.As(err, &e) || e.Kind != errors.KindHook || !e.Fatal() {
		t.Errorf("err = %v, want fatal hook error", err)
	}
}

func TestThreadInit_CreateBuffer(t *testing.T) {
	const addr = 2048
	f := newFixture(t, 2, map[string]backendtest.Func{
		"event": increment,
		"create_buffer": func(_ int, v *int64) error {
			*v = wasmbench.Handle{Addr: addr, Size: uint32(*v) / 2}.Int64()
			return nil
		},
	})
	f.init(t)

	ctx := context.Background()
	if err := f.suite.ThreadInit(ctx, 1); err != nil {
		t.Fatal(err)
	}

	sb := f.suite.Sandbox(1)
	h, ok := sb.Buffer()
	if !ok {
		t.Fatal("sandbox has no buffer")
	}
	want := wasmbench.Handle{Addr: addr, Size: config.DefaultBufferSize / 2}
	if h != want {
		t.Errorf("buffer = %+v, want %+v", h, want)
	}
	if sb.State() != StateRunning {
		t.Errorf("state = %v", sb.State())
	}

	ev := f.suite.NextEvent(1)
	if ev.Type != EventWasm || ev.ThreadID != 1 || wasmbench.HandleFromInt64(ev.Payload) != want {
		t.Errorf("event = %+v", ev)
	}
}

func TestThreadInit_NoCreateBuffer(t *testing.T) {
	f := newFixture(t, 1, map[string]backendtest.Func{"event": increment})
	f.init(t)

	if err := f.suite.ThreadInit(context.Background(), 0); err != nil {
		t.Fatal(err)
	}
	if _, ok := f.suite.Sandbox(0).Buffer(); ok {
		t.Error("sandbox should have no buffer")
	}
	if f.logs.FilterMessage("'create_buffer' function not found in wasm module").Len() != 1 {
		t.Error("missing create_buffer warning")
	}
	if ev := f.suite.NextEvent(0); ev.Payload != 0 {
		t.Errorf("payload = %d, want thread id", ev.Payload)
	}
}

func TestThreadInit_Failures(t *testing.T) {
	boom := func(int, *int64) error { return stderrors.New("boom") }

	tests := []struct {
		name    string
		exports map[string]backendtest.Func
		kind    errors.Kind
	}{
		{"create_buffer fails", map[string]backendtest.Func{"event": increment, "create_buffer": boom}, errors.KindHook},
		{"thread_init fails", map[string]backendtest.Func{"event": increment, "thread_init": boom}, errors.KindHook},
		{"no event in sandbox", map[string]backendtest.Func{"thread_init": increment}, errors.KindMissingExport},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// The module always passes the load-time scan for event.
			f := newFixtureModule(t, 1, tt.exports, []string{"event"})
			f.init(t)

			err := f.suite.ThreadInit(context.Background(), 0)
			var e *errors.Error
			if !errors.As(err, &e) || e.Kind != tt.kind || !e.Fatal() {
				t.Fatalf("err = %v, want fatal %s", err, tt.kind)
			}
			if sb := f.suite.Sandbox(0); sb == nil || sb.State() != StateClosed {
				t.Error("failed sandbox should be closed")
			}
			if err := f.suite.ThreadDone(context.Background(), 0); err != nil {
				t.Errorf("ThreadDone after failure = %v", err)
			}
			if f.backend.Closed.Load() != f.backend.Created.Load() {
				t.Error("sandbox closed more or less than once")
			}
		})
	}
}

func TestThreadInit_CreateSandboxFails(t *testing.T) {
	f := newFixture(t, 2, map[string]backendtest.Func{"event": increment})
	f.backend.CreateErr = func(tid int) error {
		if tid == 1 {
			return stderrors.New("out of memory")
		}
		return nil
	}
	f.init(t)

	ctx := context.Background()
	if err := f.suite.ThreadInit(ctx, 0); err != nil {
		t.Fatal(err)
	}
	err := f.suite.ThreadInit(ctx, 1)
	var e *errors.Error
	if !errors.As(err, &e) || e.Phase != errors.PhaseSandbox || e.Thread != 1 {
		t.Fatalf("err = %v, want sandbox error for thread 1", err)
	}
	if f.suite.Sandbox(1) != nil {
		t.Error("slot populated after failed create")
	}
	if f.logs.FilterLevelExact(zapcore.ErrorLevel).Len() == 0 {
		t.Error("fatal error not logged")
	}
}

func TestThreadInit_Misuse(t *testing.T) {
	f := newFixture(t, 1, map[string]backendtest.Func{"event": increment})
	ctx := context.Background()

	if err := f.suite.ThreadInit(ctx, 0); err == nil {
		t.Error("ThreadInit before Init should fail")
	}
	f.init(t)
	if err := f.suite.ThreadInit(ctx, 1); err == nil {
		t.Error("out of range thread should fail")
	}
	if err := f.suite.ThreadInit(ctx, 0); err != nil {
		t.Fatal(err)
	}
	if err := f.suite.ThreadInit(ctx, 0); err == nil {
		t.Error("second ThreadInit should fail")
	}
}

func TestExecuteEvent(t *testing.T) {
	f := newFixture(t, 2, map[string]backendtest.Func{
		"event": func(tid int, v *int64) error {
			if *v < 0 {
				return stderrors.New("negative payload")
			}
			*v += int64(tid) * 100
			return nil
		},
	})
	f.init(t)
	ctx := context.Background()
	if err := f.suite.ThreadInit(ctx, 1); err != nil {
		t.Fatal(err)
	}

	ev := f.suite.NextEvent(1)
	if err := f.suite.ExecuteEvent(ctx, &ev, 1); err != nil {
		t.Fatal(err)
	}
	if ev.Payload != 101 {
		t.Errorf("payload after event = %d", ev.Payload)
	}

	ev.Payload = -1
	err := f.suite.ExecuteEvent(ctx, &ev, 1)
	if err == nil || errors.IsFatal(err) {
		t.Errorf("trap err = %v, want recoverable", err)
	}

	ev = f.suite.NextEvent(1)
	if err := f.suite.ExecuteEvent(ctx, &ev, 1); err != nil {
		t.Errorf("run should continue after a failed event: %v", err)
	}

	if err := f.suite.ExecuteEvent(ctx, nil, 1); !stderrors.Is(err, errors.ErrNilEvent) {
		t.Errorf("nil event err = %v", err)
	}

	ev = f.suite.NextEvent(0)
	var e *errors.Error
	if err := f.suite.ExecuteEvent(ctx, &ev, 0); !errors.As(err, &e) || e.Kind != errors.KindNotInitialized {
		t.Errorf("event without sandbox err = %v", err)
	}
}

func TestThreadDone(t *testing.T) {
	var doneCalls int
	f := newFixture(t, 1, map[string]backendtest.Func{
		"event": increment,
		"thread_done": func(int, *int64) error {
			doneCalls++
			return stderrors.New("ignored")
		},
	})
	f.init(t)
	ctx := context.Background()

	if err := f.suite.ThreadDone(ctx, 0); err != nil {
		t.Errorf("ThreadDone without sandbox = %v", err)
	}
	if err := f.suite.ThreadInit(ctx, 0); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 2; i++ {
		if err := f.suite.ThreadDone(ctx, 0); err != nil {
			t.Fatalf("ThreadDone #%d = %v", i, err)
		}
	}

	sb := f.backend.Sandboxes()[0]
	if sb.Closes() != 1 || doneCalls != 1 {
		t.Errorf("closes = %d, thread_done calls = %d", sb.Closes(), doneCalls)
	}
	if f.suite.Sandbox(0).State() != StateClosed || f.suite.Sandbox(0).Context() != nil {
		t.Error("sandbox not closed")
	}

	ev := f.suite.NextEvent(0)
	if err := f.suite.ExecuteEvent(ctx, &ev, 0); err == nil {
		t.Error("event on closed sandbox should fail")
	}
}

func TestDone_ClosesEverything(t *testing.T) {
	f := newFixture(t, 3, map[string]backendtest.Func{"event": increment})
	f.init(t)
	ctx := context.Background()

	for tid := 0; tid < 3; tid++ {
		if err := f.suite.ThreadInit(ctx, tid); err != nil {
			t.Fatal(err)
		}
	}
	if err := f.suite.ThreadDone(ctx, 0); err != nil {
		t.Fatal(err)
	}

	if err := f.suite.Done(ctx); err != nil {
		t.Fatal(err)
	}
	for _, sb := range f.backend.Sandboxes() {
		if sb.Closes() != 1 {
			t.Errorf("sandbox %d closed %d times", sb.ThreadID, sb.Closes())
		}
	}
	if f.suite.Module().Size() != 0 {
		t.Error("module not released")
	}
	if !f.backend.Shutdown {
		t.Error("backend not closed")
	}
}

func TestDone_BeforeInit(t *testing.T) {
	f := newFixture(t, 1, map[string]backendtest.Func{"event": increment})
	if err := f.suite.Done(context.Background()); err != nil {
		t.Fatal(err)
	}
	if f.backend.Shutdown {
		t.Error("backend closed without being initialized")
	}
}

func TestEventFiller(t *testing.T) {
	const addr = 512
	f := newFixture(t, 1, map[string]backendtest.Func{
		"event": increment,
		"create_buffer": func(_ int, v *int64) error {
			*v = int64(wasmbench.EncodeHandle(addr, uint32(*v)))
			return nil
		},
	}, WithEventFiller(func(tid int, buf []byte) uint32 {
		return uint32(copy(buf, "payload"))
	}))
	f.init(t)
	if err := f.suite.ThreadInit(context.Background(), 0); err != nil {
		t.Fatal(err)
	}

	ev := f.suite.NextEvent(0)
	h := wasmbench.HandleFromInt64(ev.Payload)
	if h.Addr != addr || h.Size != 7 {
		t.Errorf("handle = %+v", h)
	}
	mem := f.backend.Sandboxes()[0].Memory
	if string(mem[addr:addr+7]) != "payload" {
		t.Errorf("guest memory = %q", mem[addr:addr+7])
	}
}

func TestThreadRun(t *testing.T) {
	var ran int64
	f := newFixture(t, 1, map[string]backendtest.Func{
		"event": increment,
		"thread_run": func(tid int, v *int64) error {
			ran = *v + 1
			return nil
		},
	})
	f.init(t)
	ctx := context.Background()

	if _, err := f.suite.ThreadRun(ctx, 0); err == nil {
		t.Error("ThreadRun before ThreadInit should fail")
	}
	if err := f.suite.ThreadInit(ctx, 0); err != nil {
		t.Fatal(err)
	}
	ok, err := f.suite.ThreadRun(ctx, 0)
	if !ok || err != nil || ran != 1 {
		t.Errorf("ThreadRun = %v, %v (ran %d)", ok, err, ran)
	}

	g := newFixture(t, 1, map[string]backendtest.Func{"event": increment})
	g.init(t)
	if err := g.suite.ThreadInit(ctx, 0); err != nil {
		t.Fatal(err)
	}
	if ok, err := g.suite.ThreadRun(ctx, 0); ok || err != nil {
		t.Errorf("ThreadRun without export = %v, %v", ok, err)
	}
}

func TestReporter(t *testing.T) {
	var intermediate, cumulative int64
	f := newFixture(t, 1, map[string]backendtest.Func{
		"event": increment,
		"report_intermediate": func(_ int, v *int64) error {
			intermediate = *v
			return nil
		},
		"report_cumulative": func(_ int, v *int64) error {
			cumulative = *v
			return nil
		},
	})
	ctx := context.Background()

	if err := f.suite.ReportIntermediate(ctx, 5); err != nil || intermediate != 0 {
		t.Errorf("report before load = %v, %d", err, intermediate)
	}
	f.init(t)

	if err := f.suite.ReportIntermediate(ctx, 10); err != nil || intermediate != 10 {
		t.Errorf("ReportIntermediate = %v, %d", err, intermediate)
	}
	if err := f.suite.ReportCumulative(ctx, 20); err != nil || cumulative != 20 {
		t.Errorf("ReportCumulative = %v, %d", err, cumulative)
	}

	// Reports get their own instance, never a worker's.
	if err := f.suite.ThreadInit(ctx, 0); err != nil {
		t.Fatal(err)
	}
	if err := f.suite.ReportIntermediate(ctx, 30); err != nil {
		t.Fatal(err)
	}
	open := 0
	for _, sb := range f.backend.Sandboxes() {
		if sb.Closes() > 0 {
			continue
		}
		open++
		if sb.Calls["report_intermediate"] != 0 || sb.Calls["report_cumulative"] != 0 {
			t.Error("report ran in a worker sandbox")
		}
	}
	if open != 1 {
		t.Errorf("%d open sandboxes, want only the worker", open)
	}
}

func TestCommands(t *testing.T) {
	var prepared bool
	f := newFixture(t, 4, map[string]backendtest.Func{
		"event": increment,
		"prepare": func(int, *int64) error {
			prepared = true
			return nil
		},
		"cleanup": func(int, *int64) error { return stderrors.New("cannot clean") },
	})
	ctx := context.Background()

	for _, name := range []string{"prepare", "cleanup", "help"} {
		if !f.suite.CommandDefined(name) {
			t.Errorf("%s should be a command", name)
		}
	}
	if f.suite.CommandDefined("event") {
		t.Error("event is not a command")
	}

	if err := f.suite.RunCommand(ctx, "prepare"); err != nil || !prepared {
		t.Fatalf("prepare = %v, ran %v", err, prepared)
	}
	if f.suite.Slots() != 0 {
		t.Error("commands must not size the sandbox table")
	}

	var e *errors.Error
	if err := f.suite.RunCommand(ctx, "help"); !errors.As(err, &e) || e.Kind != errors.KindNotFound {
		t.Errorf("help without export = %v", err)
	}
	if err := f.suite.RunCommand(ctx, "cleanup"); !errors.IsFatal(err) {
		t.Errorf("failing cleanup = %v, want fatal", err)
	}
	if err := f.suite.RunCommand(ctx, "run"); err == nil {
		t.Error("unknown command should fail")
	}

	if err := f.suite.Done(ctx); err != nil {
		t.Fatal(err)
	}
	if f.backend.Created.Load() != f.backend.Closed.Load() {
		t.Error("control sandboxes leaked")
	}
}

func TestSuites_Independent(t *testing.T) {
	a := newFixture(t, 1, map[string]backendtest.Func{"event": increment})
	b := newFixture(t, 2, map[string]backendtest.Func{"event": increment})
	a.init(t)
	b.init(t)
	ctx := context.Background()

	if err := a.suite.ThreadInit(ctx, 0); err != nil {
		t.Fatal(err)
	}
	if b.suite.Sandbox(0) != nil {
		t.Error("suites share a sandbox table")
	}
	if err := a.suite.Done(ctx); err != nil {
		t.Fatal(err)
	}
	if err := b.suite.ThreadInit(ctx, 1); err != nil {
		t.Errorf("second suite affected by first teardown: %v", err)
	}
}
