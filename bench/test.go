package bench

import (
	"context"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/wippyai/wasmbench/backend"
	"github.com/wippyai/wasmbench/config"
	"github.com/wippyai/wasmbench/errors"
)

// Operations is the dispatch table a harness drives.
type Operations interface {
	Init(ctx context.Context) error
	ThreadInit(ctx context.Context, tid int) error
	NextEvent(tid int) Event
	ExecuteEvent(ctx context.Context, ev *Event, tid int) error
	ThreadDone(ctx context.Context, tid int) error
	Done(ctx context.Context) error
}

// Reporter is implemented by operations with report hooks. Each report runs
// in a fresh control instance of the module, so the guest sees none of the
// state its worker sandboxes accumulated; a guest that wants to report on
// its own counters must keep them outside linear memory.
type Reporter interface {
	ReportIntermediate(ctx context.Context, events int64) error
	ReportCumulative(ctx context.Context, events int64) error
}

// ThreadRunner is implemented by operations that can hand a worker to the
// guest's own loop.
type ThreadRunner interface {
	ThreadRun(ctx context.Context, tid int) (bool, error)
}

// CommandRunner is implemented by operations with custom commands.
type CommandRunner interface {
	CommandDefined(name string) bool
	RunCommand(ctx context.Context, name string) error
}

// ArgType is the value type of a test argument.
type ArgType uint8

const (
	ArgString ArgType = iota
	ArgInt
	ArgSize
	ArgBool
)

func (t ArgType) String() string {
	switch t {
	case ArgInt:
		return "int"
	case ArgSize:
		return "size"
	case ArgBool:
		return "bool"
	}
	return "string"
}

// Arg is one entry of a test's argument schema.
type Arg struct {
	Validate func(value string) error
	Name     string
	Desc     string
	Value    string
	Type     ArgType
}

// Check validates value against the argument's type and validator.
func (a Arg) Check(value string) error {
	var err error
	switch a.Type {
	case ArgInt:
		_, err = strconv.Atoi(strings.TrimSpace(value))
	case ArgSize:
		_, err = config.ParseSize(value)
	case ArgBool:
		_, err = strconv.ParseBool(value)
	}
	if err == nil && a.Validate != nil {
		err = a.Validate(value)
	}
	if err != nil {
		return errors.New(errors.PhaseConfig, errors.KindInvalidConfig).
			Value(value).
			Cause(err).
			Detail("invalid value for argument %q", a.Name).
			Build()
	}
	return nil
}

// Argument names, mapped onto the environment keys of the same knobs.
const (
	ArgHeapSize    = "heap-size"
	ArgStackSize   = "stack-size"
	ArgMaxThreads  = "max-thread-num"
	ArgBufferSize  = "buffer-size"
	ArgMemoryPages = "memory-pages"
)

var argEnv = map[string]string{
	ArgHeapSize:    config.EnvHeapSize,
	ArgStackSize:   config.EnvStackSize,
	ArgMaxThreads:  config.EnvMaxThreads,
	ArgBufferSize:  config.EnvBufferSize,
	ArgMemoryPages: config.EnvMemoryPages,
}

func positive(value string) error {
	n, err := config.ParseSize(value)
	if err == nil && n == 0 {
		return errors.InvalidConfig("must be positive")
	}
	return err
}

// DefaultArgs describes the resource knobs with l's values as defaults.
func DefaultArgs(l config.Limits) []Arg {
	return []Arg{
		{Name: ArgHeapSize, Desc: "guest heap size", Type: ArgSize, Value: strconv.FormatUint(l.HeapSize, 10)},
		{Name: ArgStackSize, Desc: "guest stack size", Type: ArgSize, Value: strconv.FormatUint(l.StackSize, 10), Validate: positive},
		{Name: ArgMaxThreads, Desc: "maximum number of threads", Type: ArgInt, Value: strconv.Itoa(l.MaxThreads)},
		{Name: ArgBufferSize, Desc: "scratch buffer size requested from create_buffer", Type: ArgSize, Value: strconv.FormatUint(uint64(l.BufferSize), 10), Validate: positive},
		{Name: ArgMemoryPages, Desc: "linear memory limit in 64KiB pages, 0 for the engine default", Type: ArgInt, Value: strconv.FormatUint(uint64(l.MemoryPages), 10)},
	}
}

// Test is the descriptor registered with the harness.
type Test struct {
	Ops        Operations
	ShortName  string
	SourcePath string
	Args       []Arg
}

// Load resolves the configured engine and builds the test for the module at
// path. Nothing is initialized until Ops.Init. On error no test is returned
// and the error, always fatal, has been logged.
func Load(reg *backend.Registry, path string, cfg config.Config, opts ...Option) (*Test, error) {
	o := newOptions(opts)
	log := o.log

	log.Debug("load wasm using runtime", zap.String("runtime", cfg.Runtime))
	rt, err := reg.Resolve(cfg.Runtime)
	if err != nil {
		log.Error("unsupported wasm runtime", zap.String("runtime", cfg.Runtime), zap.Error(err))
		return nil, err
	}
	if path == "" {
		err := errors.MissingPath()
		log.Error("no wasm file name provided", zap.Error(err))
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", zap.Error(err))
		return nil, err
	}
	if max := rt.Backend().MaxThreads(); max > 0 && cfg.Threads > max {
		err := errors.UnsupportedThreads(rt.Name(), cfg.Threads, max)
		log.Error("unsupported thread count", zap.Error(err))
		return nil, err
	}

	suite := newSuite(rt, path, cfg, o)
	t := &Test{
		Ops:        suite,
		ShortName:  filepath.Base(path),
		SourcePath: path,
	}
	t.SetArgs(DefaultArgs(cfg.Limits))
	suite.test = t
	return t, nil
}

// SetArgs replaces the argument schema with a copy of args.
func (t *Test) SetArgs(args []Arg) {
	if args == nil {
		t.Args = nil
		return
	}
	t.Args = make([]Arg, len(args))
	copy(t.Args, args)
}

// Arg returns the argument called name.
func (t *Test) Arg(name string) (Arg, bool) {
	for _, a := range t.Args {
		if a.Name == name {
			return a, true
		}
	}
	return Arg{}, false
}

// SetArg validates and stores value for argument name.
func (t *Test) SetArg(name, value string) error {
	for i := range t.Args {
		if t.Args[i].Name != name {
			continue
		}
		if err := t.Args[i].Check(value); err != nil {
			return err
		}
		t.Args[i].Value = value
		return nil
	}
	return errors.InvalidConfig("unknown argument %q", name)
}

// Limits applies the resource arguments over base.
func (t *Test) Limits(base config.Limits) (config.Limits, error) {
	values := make(map[string]string, len(t.Args))
	for _, a := range t.Args {
		if env, ok := argEnv[a.Name]; ok {
			values[env] = a.Value
		}
	}
	l := base
	err := l.ApplyLookup(func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	})
	return l, err
}

// Reporter returns the report hooks when the operations have them.
func (t *Test) Reporter() (Reporter, bool) {
	r, ok := t.Ops.(Reporter)
	return r, ok
}

// ThreadRunner returns the thread_run hook when the operations have it.
func (t *Test) ThreadRunner() (ThreadRunner, bool) {
	r, ok := t.Ops.(ThreadRunner)
	return r, ok
}

// CommandRunner returns the custom command hooks when the operations have them.
func (t *Test) CommandRunner() (CommandRunner, bool) {
	r, ok := t.Ops.(CommandRunner)
	return r, ok
}

// Close releases the descriptor's names and argument schema. It does not
// tear down the run; that is Ops.Done. Safe to call more than once.
func (t *Test) Close() {
	if t == nil {
		return
	}
	for i := range t.Args {
		t.Args[i] = Arg{}
	}
	t.Args = nil
	t.ShortName = ""
	t.SourcePath = ""
}
