package bench

import (
	"golang.org/x/sys/cpu"

	"github.com/wippyai/wasmbench"
	"github.com/wippyai/wasmbench/backend"
)

// State is a sandbox lifecycle state.
type State uint8

const (
	StateUninitialized State = iota
	StateCreated
	StateBufferReady
	StateRunning
	StateClosed
)

var stateNames = [...]string{
	StateUninitialized: "uninitialized",
	StateCreated:       "created",
	StateBufferReady:   "buffer_ready",
	StateRunning:       "running",
	StateClosed:        "closed",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "invalid"
}

// Sandbox is one worker thread's execution environment. After creation only
// its owning thread touches it, until teardown.
type Sandbox struct {
	ctx       backend.Context
	buffer    wasmbench.Handle
	threadID  int
	state     State
	hasBuffer bool
}

func (s *Sandbox) ThreadID() int {
	return s.threadID
}

func (s *Sandbox) State() State {
	return s.state
}

// Context is the engine context, nil once closed.
func (s *Sandbox) Context() backend.Context {
	return s.ctx
}

// Buffer returns the scratch buffer the guest allocated in create_buffer.
func (s *Sandbox) Buffer() (wasmbench.Handle, bool) {
	return s.buffer, s.hasBuffer
}

// slot keeps each table entry on its own cache line.
type slot struct {
	sb *Sandbox
	_  cpu.CacheLinePad
}
