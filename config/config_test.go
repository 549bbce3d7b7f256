package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	wberrors "github.com/wippyai/wasmbench/errors"
)

func mapLookup(m map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Threads != 1 {
		t.Errorf("Threads = %d, want 1", cfg.Threads)
	}
	if cfg.Limits.HeapSize != 1024*1024 {
		t.Errorf("HeapSize = %d", cfg.Limits.HeapSize)
	}
	if cfg.Limits.StackSize != 8092 {
		t.Errorf("StackSize = %d", cfg.Limits.StackSize)
	}
	if cfg.Limits.MaxThreads != 16 {
		t.Errorf("MaxThreads = %d", cfg.Limits.MaxThreads)
	}
	if cfg.Limits.BufferSize != 4096 {
		t.Errorf("BufferSize = %d", cfg.Limits.BufferSize)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestApplyLookup(t *testing.T) {
	tests := []struct {
		env   map[string]string
		check func(t *testing.T, c Config)
		name  string
	}{
		{
			name: "empty env keeps defaults",
			env:  map[string]string{},
			check: func(t *testing.T, c Config) {
				if c.Limits != DefaultLimits() {
					t.Errorf("limits = %+v", c.Limits)
				}
			},
		},
		{
			name: "human sizes",
			env: map[string]string{
				EnvHeapSize:   "2m",
				EnvStackSize:  "16KiB",
				EnvBufferSize: "64k",
			},
			check: func(t *testing.T, c Config) {
				if c.Limits.HeapSize != 2*1024*1024 {
					t.Errorf("HeapSize = %d", c.Limits.HeapSize)
				}
				if c.Limits.StackSize != 16*1024 {
					t.Errorf("StackSize = %d", c.Limits.StackSize)
				}
				if c.Limits.BufferSize != 64*1024 {
					t.Errorf("BufferSize = %d", c.Limits.BufferSize)
				}
			},
		},
		{
			name: "plain numbers",
			env: map[string]string{
				EnvHeapSize:    "4096",
				EnvMaxThreads:  "32",
				EnvMemoryPages: "256",
				EnvThreads:     "8",
				EnvRuntime:     "wasmtime",
			},
			check: func(t *testing.T, c Config) {
				if c.Limits.HeapSize != 4096 {
					t.Errorf("HeapSize = %d", c.Limits.HeapSize)
				}
				if c.Limits.MaxThreads != 32 {
					t.Errorf("MaxThreads = %d", c.Limits.MaxThreads)
				}
				if c.Limits.MemoryPages != 256 {
					t.Errorf("MemoryPages = %d", c.Limits.MemoryPages)
				}
				if c.Threads != 8 {
					t.Errorf("Threads = %d", c.Threads)
				}
				if c.Runtime != "wasmtime" {
					t.Errorf("Runtime = %q", c.Runtime)
				}
			},
		},
		{
			name: "only one limit overridden",
			env:  map[string]string{EnvStackSize: "1k"},
			check: func(t *testing.T, c Config) {
				if c.Limits.StackSize != 1024 {
					t.Errorf("StackSize = %d", c.Limits.StackSize)
				}
				if c.Limits.HeapSize != DefaultHeapSize {
					t.Errorf("HeapSize changed to %d", c.Limits.HeapSize)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			if err := cfg.ApplyLookup(mapLookup(tt.env)); err != nil {
				t.Fatalf("ApplyLookup: %v", err)
			}
			tt.check(t, cfg)
		})
	}
}

func TestApplyLookup_Invalid(t *testing.T) {
	tests := []map[string]string{
		{EnvHeapSize: "lots"},
		{EnvMaxThreads: "many"},
		{EnvBufferSize: "8g"},
		{EnvMemoryPages: "-1"},
		{EnvThreads: "x"},
	}

	for _, env := range tests {
		cfg := Default()
		err := cfg.ApplyLookup(mapLookup(env))
		if err == nil {
			t.Errorf("ApplyLookup(%v) should fail", env)
			continue
		}
		var e *wberrors.Error
		if !errors.As(err, &e) || e.Phase != wberrors.PhaseConfig {
			t.Errorf("ApplyLookup(%v) = %v, want config error", env, err)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		mutate func(c *Config)
		name   string
		kind   wberrors.Kind
	}{
		{func(c *Config) { c.Threads = 0 }, "zero threads", wberrors.KindInvalidConfig},
		{func(c *Config) { c.Threads = 17 }, "above max threads", wberrors.KindUnsupportedThreads},
		{func(c *Config) { c.Limits.StackSize = 0 }, "zero stack", wberrors.KindInvalidConfig},
		{func(c *Config) { c.Limits.BufferSize = 0 }, "zero buffer", wberrors.KindInvalidConfig},
		{func(c *Config) { c.Limits.MaxThreads = -1 }, "negative max threads", wberrors.KindInvalidConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			var e *wberrors.Error
			if !errors.As(err, &e) {
				t.Fatalf("Validate() = %v, want *errors.Error", err)
			}
			if e.Kind != tt.kind {
				t.Errorf("Kind = %v, want %v", e.Kind, tt.kind)
			}
		})
	}

	unlimited := Default()
	unlimited.Limits.MaxThreads = 0
	unlimited.Threads = 128
	if err := unlimited.Validate(); err != nil {
		t.Errorf("max threads 0 should mean unlimited: %v", err)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bench.toml")
	content := `
runtime = "wazero"
module = "fib.wasm"
threads = 4

[limits]
heap_size = 2097152
buffer_size = 65536
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Runtime != "wazero" || cfg.ModulePath != "fib.wasm" || cfg.Threads != 4 {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Limits.HeapSize != 2097152 || cfg.Limits.BufferSize != 65536 {
		t.Errorf("limits = %+v", cfg.Limits)
	}
	if cfg.Limits.StackSize != DefaultStackSize {
		t.Errorf("StackSize = %d, want default", cfg.Limits.StackSize)
	}
}

func TestLoadFile_Errors(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Error("missing file should fail")
	}

	path := filepath.Join(t.TempDir(), "bad.toml")
	if err := os.WriteFile(path, []byte("threads = [oops"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFile(path); err == nil {
		t.Error("malformed file should fail")
	}
}

func TestParseSize(t *testing.T) {
	tests := []struct {
		in   string
		want uint64
	}{
		{"0", 0},
		{"8092", 8092},
		{"1k", 1024},
		{"1MiB", 1024 * 1024},
		{" 2m ", 2 * 1024 * 1024},
	}
	for _, tt := range tests {
		got, err := ParseSize(tt.in)
		if err != nil {
			t.Errorf("ParseSize(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseSize(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}

	if _, err := ParseSize("abc"); err == nil {
		t.Error("ParseSize(abc) should fail")
	}
}
