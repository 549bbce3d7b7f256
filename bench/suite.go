package bench

import (
	"context"
	goruntime "runtime"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/wippyai/wasmbench"
	"github.com/wippyai/wasmbench/backend"
	"github.com/wippyai/wasmbench/config"
	"github.com/wippyai/wasmbench/errors"
)

// Option configures a Suite.
type Option func(*options)

type options struct {
	log    *zap.Logger
	filler EventFiller
}

func newOptions(opts []Option) options {
	o := options{log: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

// WithEventFiller installs a filler for threads that own a scratch buffer.
func WithEventFiller(f EventFiller) Option {
	return func(o *options) {
		o.filler = f
	}
}

// Suite is the context of one benchmark run: the resolved runtime, the
// shared module and the sandbox table. Independent suites do not share
// state.
type Suite struct {
	rt     *backend.Runtime
	module *backend.Module
	test   *Test
	log    *zap.Logger
	filler EventFiller
	table  []slot
	path   string
	cfg    config.Config

	// loadMu guards engine init and module load, which commands may trigger
	// before Init.
	loadMu   sync.Mutex
	doneOnce sync.Once
	doneErr  error
	loaded   bool
	inited   bool
}

var (
	_ Operations    = (*Suite)(nil)
	_ Reporter      = (*Suite)(nil)
	_ ThreadRunner  = (*Suite)(nil)
	_ CommandRunner = (*Suite)(nil)
)

func newSuite(rt *backend.Runtime, path string, cfg config.Config, o options) *Suite {
	return &Suite{
		rt:     rt,
		path:   path,
		cfg:    cfg,
		log:    o.log.With(zap.String("runtime", rt.Name())),
		filler: o.filler,
	}
}

// Runtime is the resolved engine.
func (s *Suite) Runtime() *backend.Runtime {
	return s.rt
}

// Module is the loaded module, nil before Init.
func (s *Suite) Module() *backend.Module {
	return s.module
}

// Slots is the sandbox table length; 0 before Init.
func (s *Suite) Slots() int {
	return len(s.table)
}

// Sandbox returns thread tid's sandbox, nil while its slot is unpopulated.
func (s *Suite) Sandbox(tid int) *Sandbox {
	if tid < 0 || tid >= len(s.table) {
		return nil
	}
	return s.table[tid].sb
}

func (s *Suite) fatal(msg string, err error, fields ...zap.Field) error {
	s.log.Error(msg, append(fields, zap.Error(err))...)
	return err
}

// load initializes the engine and loads the module once.
func (s *Suite) load(ctx context.Context) error {
	s.loadMu.Lock()
	defer s.loadMu.Unlock()
	if s.loaded {
		return nil
	}

	limits, err := s.test.Limits(s.cfg.Limits)
	if err != nil {
		return s.fatal("invalid test arguments", err)
	}
	if err := limits.Validate(); err != nil {
		return s.fatal("invalid limits", err)
	}
	if limits.MaxThreads > 0 && s.cfg.Threads > limits.MaxThreads {
		return s.fatal("unsupported thread count",
			errors.UnsupportedThreads(s.rt.Name(), s.cfg.Threads, limits.MaxThreads))
	}

	b := s.rt.Backend()
	env := backend.Env{Logger: s.log, Limits: limits, Threads: s.cfg.Threads}
	if err := b.Init(ctx, env); err != nil {
		return s.fatal("init wasm vm failed", err)
	}

	s.log.Info("load wasm module from file", zap.String("path", s.path))
	mod, err := backend.LoadModule(ctx, b, s.path, limits, s.log)
	if err != nil {
		_ = b.Close(ctx)
		return s.fatal("load wasm module failed", err)
	}
	if mod.Scanned() && !mod.HasExport(backend.ExportEvent) {
		_ = mod.Close(ctx)
		_ = b.Close(ctx)
		return s.fatal("load wasm module failed", errors.MissingExport(backend.ExportEvent))
	}

	s.module = mod
	s.loaded = true
	return nil
}

// Init initializes the engine, loads the module, sizes the sandbox table
// and runs the guest's init export when it has one. It must complete before
// any worker starts. init runs in its own control instance: globals and
// memory it writes are not visible to the worker sandboxes.
func (s *Suite) Init(ctx context.Context) error {
	if err := s.load(ctx); err != nil {
		return err
	}
	if s.inited {
		return nil
	}

	s.table = make([]slot, s.cfg.Threads)

	if _, err := s.control(ctx, backend.ExportInit, int64(s.cfg.Threads)); err != nil {
		return s.fatal("guest init failed", errors.Hook(backend.ExportInit, 0, err))
	}
	s.inited = true
	s.log.Debug("suite initialized", zap.Int("threads", s.cfg.Threads))
	return nil
}

// control runs export once in a short-lived sandbox on the calling
// goroutine, pinned to its OS thread for the sandbox lifetime. The sandbox
// is a new instance, so it shares no guest state with the workers. It
// reports false when the guest does not export it.
func (s *Suite) control(ctx context.Context, export string, value int64) (bool, error) {
	if s.module.Scanned() && !s.module.HasExport(export) {
		return false, nil
	}

	goruntime.LockOSThread()
	defer goruntime.UnlockOSThread()

	c, err := s.rt.Backend().CreateSandbox(ctx, s.module, 0)
	if err != nil {
		return false, err
	}
	if !c.FunctionAvailable(export) {
		return false, c.Close(ctx)
	}
	err = c.FunctionApply(ctx, export, 0, &value)
	return true, multierr.Append(err, c.Close(ctx))
}

func (s *Suite) threadError(kind errors.Kind, tid int, detail string, args ...any) error {
	return errors.New(errors.PhaseSandbox, kind).
		Runtime(s.rt.Name()).
		Thread(tid).
		Detail(detail, args...).
		Build()
}

// ThreadInit creates thread tid's sandbox, sets up its scratch buffer and
// runs the guest's thread_init. Every error is fatal to the thread; a
// sandbox that was created is closed again before returning one.
func (s *Suite) ThreadInit(ctx context.Context, tid int) error {
	if !s.inited {
		return s.fatal("create wasm sandbox failed", s.threadError(errors.KindNotInitialized, tid, "suite not initialized"))
	}
	if tid < 0 || tid >= len(s.table) {
		return s.fatal("create wasm sandbox failed",
			s.threadError(errors.KindNotInitialized, tid, "thread id out of range [0, %d)", len(s.table)))
	}
	if s.table[tid].sb != nil {
		return s.fatal("create wasm sandbox failed", s.threadError(errors.KindDuplicate, tid, "sandbox already created"))
	}

	log := s.log.With(zap.Int("thread", tid))

	c, err := s.rt.Backend().CreateSandbox(ctx, s.module, tid)
	if err != nil {
		var e *errors.Error
		if !errors.As(err, &e) || e.Phase != errors.PhaseSandbox {
			err = errors.SandboxCreation(s.rt.Name(), tid, err)
		}
		return s.fatal("create wasm sandbox failed", err, zap.Int("thread", tid))
	}

	sb := &Sandbox{ctx: c, threadID: tid, state: StateCreated}
	s.table[tid].sb = sb

	abort := func(msg string, err error) error {
		s.closeSandbox(ctx, sb)
		return s.fatal(msg, err, zap.Int("thread", tid))
	}

	if !c.FunctionAvailable(backend.ExportEvent) {
		return abort("event function not found in wasm module", errors.MissingExport(backend.ExportEvent))
	}

	if c.FunctionAvailable(backend.ExportCreateBuffer) {
		carrier := wasmbench.Handle{Size: s.module.Limits.BufferSize}.Int64()
		if err := c.FunctionApply(ctx, backend.ExportCreateBuffer, tid, &carrier); err != nil {
			return abort("create buffer for sandbox failed", errors.Hook(backend.ExportCreateBuffer, tid, err))
		}
		sb.buffer = wasmbench.HandleFromInt64(carrier)
		sb.hasBuffer = true
		sb.state = StateBufferReady
		log.Info("created buffer for sandbox",
			zap.Uint32("addr", sb.buffer.Addr),
			zap.Uint32("size", sb.buffer.Size))
	} else {
		log.Warn("'create_buffer' function not found in wasm module")
	}

	if c.FunctionAvailable(backend.ExportThreadInit) {
		v := int64(tid)
		if err := c.FunctionApply(ctx, backend.ExportThreadInit, tid, &v); err != nil {
			return abort("thread init failed", errors.Hook(backend.ExportThreadInit, tid, err))
		}
	}

	sb.state = StateRunning
	return nil
}

// NextEvent builds thread tid's next request. The sequence is unbounded;
// the harness decides when to stop asking.
func (s *Suite) NextEvent(tid int) Event {
	ev := Event{Type: EventWasm, ThreadID: tid, Payload: int64(tid)}

	sb := s.Sandbox(tid)
	if sb == nil || !sb.hasBuffer || sb.state != StateRunning {
		return ev
	}

	h := sb.buffer
	if s.filler != nil {
		buf, err := backend.GuestSlice(sb.ctx, h.Addr, h.Size)
		if err != nil {
			s.log.Debug("scratch buffer unavailable", zap.Int("thread", tid), zap.Error(err))
			return ev
		}
		if n := s.filler(tid, buf); n < h.Size {
			h.Size = n
		}
	}
	ev.Payload = h.Int64()
	return ev
}

// ExecuteEvent runs ev on thread tid's sandbox. Errors are per-event
// invocation failures for the harness to count.
func (s *Suite) ExecuteEvent(ctx context.Context, ev *Event, tid int) error {
	if ev == nil {
		return errors.Invocation(errors.KindNilEvent, backend.ExportEvent, tid, nil)
	}
	sb := s.Sandbox(tid)
	if sb == nil || sb.state != StateRunning {
		return errors.NotInitialized(tid, "no running sandbox for thread")
	}
	return sb.ctx.FunctionApply(ctx, backend.ExportEvent, tid, &ev.Payload)
}

// ThreadRun hands the thread to the guest's own loop. It reports false
// when the guest exports no thread_run.
func (s *Suite) ThreadRun(ctx context.Context, tid int) (bool, error) {
	sb := s.Sandbox(tid)
	if sb == nil || sb.state != StateRunning {
		return false, errors.NotInitialized(tid, "no running sandbox for thread")
	}
	if !sb.ctx.FunctionAvailable(backend.ExportThreadRun) {
		return false, nil
	}
	v := int64(tid)
	return true, sb.ctx.FunctionApply(ctx, backend.ExportThreadRun, tid, &v)
}

// ThreadDone runs the guest's thread_done and closes thread tid's sandbox.
// A guest failure here is logged, not returned. Calling it again is a no-op.
func (s *Suite) ThreadDone(ctx context.Context, tid int) error {
	sb := s.Sandbox(tid)
	if sb == nil || sb.state == StateClosed {
		return nil
	}

	if sb.state == StateRunning && sb.ctx.FunctionAvailable(backend.ExportThreadDone) {
		v := int64(tid)
		if err := sb.ctx.FunctionApply(ctx, backend.ExportThreadDone, tid, &v); err != nil {
			s.log.Warn("thread done failed", zap.Int("thread", tid), zap.Error(err))
		}
	}
	return s.closeSandbox(ctx, sb)
}

func (s *Suite) closeSandbox(ctx context.Context, sb *Sandbox) error {
	if sb.state == StateClosed {
		return nil
	}
	err := sb.ctx.Close(ctx)
	sb.ctx = nil
	sb.state = StateClosed
	if err != nil {
		s.log.Warn("close sandbox failed", zap.Int("thread", sb.threadID), zap.Error(err))
	}
	return err
}

// Done tears the run down once: sandboxes still open are closed, the
// guest's done export runs, then the module and the engine are released.
// The harness must have joined every worker before calling it.
func (s *Suite) Done(ctx context.Context) error {
	s.doneOnce.Do(func() {
		s.doneErr = s.teardown(ctx)
	})
	return s.doneErr
}

func (s *Suite) teardown(ctx context.Context) error {
	if !s.loaded {
		return nil
	}

	var err error
	for i := range s.table {
		if sb := s.table[i].sb; sb != nil && sb.state != StateClosed {
			s.log.Warn("closing sandbox left open", zap.Int("thread", i))
			err = multierr.Append(err, s.closeSandbox(ctx, sb))
		}
	}

	if s.inited {
		if _, derr := s.control(ctx, backend.ExportDone, 0); derr != nil {
			s.log.Warn("guest done failed", zap.Error(derr))
			err = multierr.Append(err, errors.Hook(backend.ExportDone, 0, derr))
		}
	}

	err = multierr.Append(err, s.module.Close(ctx))
	err = multierr.Append(err, s.rt.Backend().Close(ctx))
	s.log.Debug("suite done")
	return err
}

// ReportIntermediate forwards to the guest's report_intermediate with the
// number of events executed so far, in a fresh control instance. Absent
// exports are not an error.
func (s *Suite) ReportIntermediate(ctx context.Context, events int64) error {
	return s.report(ctx, backend.ExportReportIntermediate, events)
}

// ReportCumulative forwards to the guest's report_cumulative.
func (s *Suite) ReportCumulative(ctx context.Context, events int64) error {
	return s.report(ctx, backend.ExportReportCumulative, events)
}

func (s *Suite) report(ctx context.Context, export string, events int64) error {
	if !s.loaded {
		return nil
	}
	_, err := s.control(ctx, export, events)
	return err
}

var commands = map[string]bool{
	backend.ExportPrepare: true,
	backend.ExportCleanup: true,
	backend.ExportHelp:    true,
}

// CommandDefined reports whether name is a custom command guests may
// implement.
func (s *Suite) CommandDefined(name string) bool {
	return commands[name]
}

// RunCommand loads the module if needed and runs the guest's command
// export in a control sandbox. No worker sandboxes are created.
func (s *Suite) RunCommand(ctx context.Context, name string) error {
	if !s.CommandDefined(name) {
		return errors.InvalidConfig("unknown command %q", name)
	}
	if err := s.load(ctx); err != nil {
		return err
	}
	ok, err := s.control(ctx, name, 0)
	if err != nil {
		return s.fatal("command failed", errors.Hook(name, 0, err), zap.String("command", name))
	}
	if !ok {
		return errors.NotFound(name, errors.NoThread)
	}
	return nil
}
