package backendtest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/wippyai/wasmbench/internal/wat"
)

// BufferBase is the guest address create_buffer hands out in GuestModule.
const BufferBase = 1024

var guestSource = fmt.Sprintf(`(module
	(memory (export "memory") 1)

	(func (export "event") (param $v i64) (result i64)
		(i64.add (local.get $v) (i64.const 1)))

	(func (export "create_buffer") (param $v i64) (result i64)
		(i64.or
			(i64.shl (i64.const %d) (i64.const 32))
			(local.get $v)))

	(func (export "thread_init") (param $tid i32) (param $v i64))

	(func (export "event_tid") (param $tid i32) (param $v i64) (result i64)
		(i64.add (local.get $v) (i64.extend_i32_u (local.get $tid))))

	(func (export "poke") (param $tid i32) (param $v i64)
		(i64.store (local.get $tid) (local.get $v)))

	(func (export "peek") (param $tid i32) (param $v i64) (result i64)
		(i64.load (local.get $tid)))

	(func (export "neg") (result i32)
		(i32.const -1))

	(func (export "trap")
		unreachable)

	(func (export "float") (param f64)))`, BufferBase)

// GuestModule compiles the module every adapter is exercised against:
//
//	event(i64) i64                  value + 1
//	create_buffer(i64) i64          BufferBase<<32 | value
//	thread_init(i32, i64)           no-op
//	event_tid(i32, i64) i64         value + thread
//	poke(i32, i64)                  store value at address thread
//	peek(i32, i64) i64              load from address thread
//	neg() i32                       -1
//	trap()                          unreachable
//	float(f64)                      no-op
//
// plus one exported page of memory.
func GuestModule() []byte {
	return MustCompile(guestSource)
}

// NopExports compiles a module exporting a nullary no-op per name.
func NopExports(names ...string) []byte {
	var b strings.Builder
	b.WriteString("(module")
	for _, n := range names {
		fmt.Fprintf(&b, "\n\t(func (export %q))", n)
	}
	b.WriteString(")")
	return MustCompile(b.String())
}

// MustCompile compiles WAT source, panicking on malformed text.
func MustCompile(source string) []byte {
	bin, err := wat.Compile(source)
	if err != nil {
		panic(fmt.Sprintf("compile guest: %v", err))
	}
	return bin
}

// WriteModule writes data to a temporary .wasm file and returns its path.
func WriteModule(t testing.TB, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "guest.wasm")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}
