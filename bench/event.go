package bench

// EventType tags the subsystem an event is for.
type EventType uint8

const (
	EventNone EventType = iota
	EventWasm
)

func (t EventType) String() string {
	if t == EventWasm {
		return "wasm"
	}
	return "none"
}

// Event is one benchmark iteration's request for a thread.
type Event struct {
	// Payload is passed to the guest event export by reference and holds
	// its result afterwards: the thread id, or the encoded scratch buffer
	// handle when the sandbox has one.
	Payload  int64
	ThreadID int
	Type     EventType
}

// EventFiller writes request data into a thread's scratch buffer before
// the event is executed. It returns how many bytes it wrote; the event
// payload then carries a handle of that size.
type EventFiller func(threadID int, buf []byte) uint32
