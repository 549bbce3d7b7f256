package bench

import (
	"testing"

	"github.com/wippyai/wasmbench/backend/backendtest"
	"github.com/wippyai/wasmbench/config"
)

func TestTest_SetArgsCopies(t *testing.T) {
	src := []Arg{{Name: "iterations", Type: ArgInt, Value: "10"}}
	var test Test
	test.SetArgs(src)

	src[0].Value = "99"
	if test.Args[0].Value != "10" {
		t.Error("SetArgs should copy the schema")
	}

	test.SetArgs(nil)
	if test.Args != nil {
		t.Error("SetArgs(nil) should clear the schema")
	}
}

func TestTest_SetArg(t *testing.T) {
	test := &Test{}
	test.SetArgs(DefaultArgs(config.DefaultLimits()))

	tests := []struct {
		name, value string
		ok          bool
	}{
		{ArgHeapSize, "2MiB", true},
		{ArgHeapSize, "lots", false},
		{ArgStackSize, "0", false},
		{ArgStackSize, "16k", true},
		{ArgMaxThreads, "8", true},
		{ArgMaxThreads, "eight", false},
		{ArgBufferSize, "0", false},
		{ArgMemoryPages, "16", true},
		{"unknown", "1", false},
	}

	for _, tt := range tests {
		t.Run(tt.name+"="+tt.value, func(t *testing.T) {
			err := test.SetArg(tt.name, tt.value)
			if (err == nil) != tt.ok {
				t.Fatalf("SetArg(%q, %q) = %v", tt.name, tt.value, err)
			}
			if tt.ok {
				if a, _ := test.Arg(tt.name); a.Value != tt.value {
					t.Errorf("value = %q", a.Value)
				}
			}
		})
	}
}

func TestTest_Limits(t *testing.T) {
	test := &Test{}
	test.SetArgs(DefaultArgs(config.DefaultLimits()))
	for name, value := range map[string]string{
		ArgHeapSize:    "2MiB",
		ArgStackSize:   "16k",
		ArgMaxThreads:  "4",
		ArgBufferSize:  "1k",
		ArgMemoryPages: "32",
	} {
		if err := test.SetArg(name, value); err != nil {
			t.Fatal(err)
		}
	}

	l, err := test.Limits(config.DefaultLimits())
	if err != nil {
		t.Fatal(err)
	}
	want := config.Limits{HeapSize: 2 << 20, StackSize: 16 << 10, MaxThreads: 4, BufferSize: 1 << 10, MemoryPages: 32}
	if l != want {
		t.Errorf("Limits() = %+v, want %+v", l, want)
	}

	var empty Test
	base := config.DefaultLimits()
	if l, err := empty.Limits(base); err != nil || l != base {
		t.Errorf("no args should keep base limits: %+v, %v", l, err)
	}
}

func TestTest_CloseIdempotent(t *testing.T) {
	test, err := Load(fakeRegistry(backendtest.New(nil)), "dir/guest.wasm", testConfig(1))
	if err != nil {
		t.Fatal(err)
	}

	test.Close()
	test.Close()
	if test.Args != nil || test.ShortName != "" || test.SourcePath != "" {
		t.Errorf("Close left %+v", test)
	}

	var nilTest *Test
	nilTest.Close()

	partial := &Test{ShortName: "x"}
	partial.Close()
}

func TestArgType_String(t *testing.T) {
	for typ, want := range map[ArgType]string{ArgString: "string", ArgInt: "int", ArgSize: "size", ArgBool: "bool"} {
		if typ.String() != want {
			t.Errorf("%d.String() = %q", typ, typ.String())
		}
	}
	if err := (Arg{Name: "verbose", Type: ArgBool}).Check("maybe"); err == nil {
		t.Error("bad bool accepted")
	}
}

func TestState_String(t *testing.T) {
	if StateBufferReady.String() != "buffer_ready" || State(99).String() != "invalid" {
		t.Error("state names")
	}
	if EventWasm.String() != "wasm" || EventNone.String() != "none" {
		t.Error("event type names")
	}
}
