// Package errors provides structured error types for wasmbench.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error
// category). The phase doubles as the error class the harness reacts to:
//
//	PhaseConfig    unknown engine, missing module path, unsupported thread count
//	PhaseLoad      module unreadable, engine validate/compile failure
//	PhaseSandbox   create_sandbox or a mandatory lifecycle hook failed
//	PhaseInvoke    a guest call failed on the event path (recoverable)
//	PhaseResource  allocation failure
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseInvoke, errors.KindTrap).
//		Export("event").
//		Thread(3).
//		Cause(cause).
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.UnknownRuntime("bogus")
//	err := errors.SandboxCreation("wazero", 2, cause)
//
// All errors implement the standard error interface and support errors.Is/As.
// Sentinels such as ErrUnknownRuntime match on phase and kind.
package errors
