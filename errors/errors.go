package errors

import (
	stderrors "errors"
	"fmt"
	"strconv"
	"strings"
)

// Phase indicates where in the run the error occurred. The phase is also the
// error class the harness reacts to.
type Phase string

const (
	PhaseConfig   Phase = "config"   // engine selection, module path, thread count
	PhaseLoad     Phase = "load"     // module read, engine validate/compile
	PhaseSandbox  Phase = "sandbox"  // per-thread sandbox creation and lifecycle hooks
	PhaseInvoke   Phase = "invoke"   // guest calls on the event path
	PhaseResource Phase = "resource" // allocation of tables and buffers
)

// Kind categorizes the error
type Kind string

const (
	KindUnknownRuntime     Kind = "unknown_runtime"
	KindMissingPath        Kind = "missing_path"
	KindUnsupportedThreads Kind = "unsupported_threads"
	KindInvalidConfig      Kind = "invalid_config"
	KindDuplicate          Kind = "duplicate"
	KindIO                 Kind = "io"
	KindCompile            Kind = "compile"
	KindInstantiation      Kind = "instantiation"
	KindMissingExport      Kind = "missing_export"
	KindNotFound           Kind = "not_found"
	KindTrap               Kind = "trap"
	KindBadSignature       Kind = "bad_signature"
	KindNilEvent           Kind = "nil_event"
	KindNotInitialized     Kind = "not_initialized"
	KindOutOfBounds        Kind = "out_of_bounds"
	KindAllocation         Kind = "allocation"
	KindUnsupported        Kind = "unsupported"
	KindHook               Kind = "hook"
)

// NoThread marks an error that is not tied to a worker thread.
const NoThread = -1

// Error is the structured error type used throughout the module
type Error struct {
	Value   any
	Cause   error
	Phase   Phase
	Kind    Kind
	Runtime string
	Export  string
	Detail  string
	Thread  int
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Runtime != "" {
		b.WriteString(" runtime=")
		b.WriteString(e.Runtime)
	}
	if e.Export != "" {
		b.WriteString(" export=")
		b.WriteString(e.Export)
	}
	if e.Thread != NoThread && e.hasThread() {
		b.WriteString(" thread=")
		b.WriteString(strconv.Itoa(e.Thread))
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// thread 0 is a valid worker; only sandbox and invoke errors carry one.
func (e *Error) hasThread() bool {
	return e.Phase == PhaseSandbox || e.Phase == PhaseInvoke
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Fatal reports whether the error must abort the run (or the owning thread).
// Only invocation errors on the event path are recoverable.
func (e *Error) Fatal() bool {
	return e.Phase != PhaseInvoke
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase:  phase,
			Kind:   kind,
			Thread: NoThread,
		},
	}
}

// Runtime sets the engine name
func (b *Builder) Runtime(name string) *Builder {
	b.err.Runtime = name
	return b
}

// Export sets the guest export involved
func (b *Builder) Export(name string) *Builder {
	b.err.Export = name
	return b
}

// Thread sets the worker thread id
func (b *Builder) Thread(id int) *Builder {
	b.err.Thread = id
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Sentinels for errors.Is. Matching compares phase and kind only.
var (
	ErrUnknownRuntime     = &Error{Phase: PhaseConfig, Kind: KindUnknownRuntime, Thread: NoThread}
	ErrMissingPath        = &Error{Phase: PhaseConfig, Kind: KindMissingPath, Thread: NoThread}
	ErrUnsupportedThreads = &Error{Phase: PhaseConfig, Kind: KindUnsupportedThreads, Thread: NoThread}
	ErrMissingEvent       = &Error{Phase: PhaseConfig, Kind: KindMissingExport, Thread: NoThread}
	ErrNilEvent           = &Error{Phase: PhaseInvoke, Kind: KindNilEvent, Thread: NoThread}
	ErrUnsupported        = &Error{Phase: PhaseInvoke, Kind: KindUnsupported, Thread: NoThread}
)

// Convenience constructors for common error patterns

// UnknownRuntime creates the error for an engine name with no adapter
func UnknownRuntime(name string) *Error {
	return &Error{
		Phase:   PhaseConfig,
		Kind:    KindUnknownRuntime,
		Runtime: name,
		Detail:  fmt.Sprintf("unsupported wasm runtime %q", name),
		Thread:  NoThread,
	}
}

// MissingPath creates the error for an empty module path
func MissingPath() *Error {
	return &Error{
		Phase:  PhaseConfig,
		Kind:   KindMissingPath,
		Detail: "no wasm file name provided",
		Thread: NoThread,
	}
}

// UnsupportedThreads creates the error for a thread count the engine rejects
func UnsupportedThreads(runtime string, threads, max int) *Error {
	return &Error{
		Phase:   PhaseConfig,
		Kind:    KindUnsupportedThreads,
		Runtime: runtime,
		Detail:  fmt.Sprintf("%d threads requested, engine supports at most %d", threads, max),
		Value:   threads,
		Thread:  NoThread,
	}
}

// InvalidConfig creates a configuration validation error
func InvalidConfig(detail string, args ...any) *Error {
	return &Error{
		Phase:  PhaseConfig,
		Kind:   KindInvalidConfig,
		Detail: fmt.Sprintf(detail, args...),
		Thread: NoThread,
	}
}

// MissingExport creates the error for a guest lacking a required export
func MissingExport(name string) *Error {
	return &Error{
		Phase:  PhaseConfig,
		Kind:   KindMissingExport,
		Export: name,
		Detail: fmt.Sprintf("required export %q not found in module", name),
		Thread: NoThread,
	}
}

// Load wraps a module loading failure
func Load(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindIO,
		Detail: detail,
		Cause:  cause,
		Thread: NoThread,
	}
}

// Compile wraps an engine-side validate or compile failure
func Compile(runtime string, cause error) *Error {
	return &Error{
		Phase:   PhaseLoad,
		Kind:    KindCompile,
		Runtime: runtime,
		Detail:  "engine rejected module",
		Cause:   cause,
		Thread:  NoThread,
	}
}

// SandboxCreation wraps a failed create_sandbox for a worker thread
func SandboxCreation(runtime string, thread int, cause error) *Error {
	return &Error{
		Phase:   PhaseSandbox,
		Kind:    KindInstantiation,
		Runtime: runtime,
		Thread:  thread,
		Detail:  "create wasm sandbox failed",
		Cause:   cause,
	}
}

// Hook wraps a failed mandatory lifecycle hook; it is fatal to the thread.
func Hook(export string, thread int, cause error) *Error {
	return &Error{
		Phase:  PhaseSandbox,
		Kind:   KindHook,
		Export: export,
		Thread: thread,
		Detail: fmt.Sprintf("[%s] function failed in module", export),
		Cause:  cause,
	}
}

// Invocation wraps a failed guest call
func Invocation(kind Kind, export string, thread int, cause error) *Error {
	return &Error{
		Phase:  PhaseInvoke,
		Kind:   kind,
		Export: export,
		Thread: thread,
		Cause:  cause,
	}
}

// Trap wraps a guest trap or engine-reported call failure
func Trap(export string, thread int, cause error) *Error {
	return Invocation(KindTrap, export, thread, cause)
}

// NotFound creates an error for a guest export that does not exist
func NotFound(export string, thread int) *Error {
	return &Error{
		Phase:  PhaseInvoke,
		Kind:   KindNotFound,
		Export: export,
		Thread: thread,
		Detail: "function not exported by module",
	}
}

// NotInitialized creates an error for use of a sandbox before creation or after close
func NotInitialized(thread int, detail string) *Error {
	return &Error{
		Phase:  PhaseInvoke,
		Kind:   KindNotInitialized,
		Thread: thread,
		Detail: detail,
	}
}

// OutOfBounds creates an address translation error
func OutOfBounds(addr uint64, length int) *Error {
	return &Error{
		Phase:  PhaseInvoke,
		Kind:   KindOutOfBounds,
		Detail: fmt.Sprintf("address 0x%x out of bounds (memory size %d)", addr, length),
		Value:  addr,
		Thread: NoThread,
	}
}

// Unsupported creates an unsupported capability error
func Unsupported(runtime, what string) *Error {
	return &Error{
		Phase:   PhaseInvoke,
		Kind:    KindUnsupported,
		Runtime: runtime,
		Detail:  what + " not supported",
		Thread:  NoThread,
	}
}

// Resource creates an allocation failure error
func Resource(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseResource,
		Kind:   KindAllocation,
		Detail: detail,
		Cause:  cause,
		Thread: NoThread,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
		Thread: NoThread,
	}
}

// IsFatal reports whether err aborts the run. Errors that are not *Error are
// treated as fatal.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	var e *Error
	if As(err, &e) {
		return e.Fatal()
	}
	return true
}

// Is is errors.Is from the standard library.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As is errors.As from the standard library.
func As(err error, target any) bool {
	return stderrors.As(err, target)
}
