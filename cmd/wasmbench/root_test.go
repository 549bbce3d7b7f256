package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"

	"github.com/wippyai/wasmbench/config"
)

func parse(t *testing.T, args ...string) (*rootOptions, *cobra.Command) {
	t.Helper()
	opts := &rootOptions{}
	cmd, rest, err := newRoot(opts).Find(append([]string{"run"}, args...))
	if err != nil {
		t.Fatal(err)
	}
	if err := cmd.ParseFlags(rest); err != nil {
		t.Fatal(err)
	}
	return opts, cmd
}

func clearEnv(t *testing.T) {
	for _, key := range []string{
		config.EnvRuntime, config.EnvThreads, config.EnvHeapSize, config.EnvStackSize,
		config.EnvMaxThreads, config.EnvBufferSize, config.EnvMemoryPages,
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	clearEnv(t)
	opts, cmd := parse(t, "--env-file", "")

	cfg, err := opts.loadConfig(cmd)
	if err != nil {
		t.Fatal(err)
	}
	if cfg != config.Default() {
		t.Errorf("config = %+v, want defaults", cfg)
	}
}

func TestLoadConfig_Layers(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	file := filepath.Join(dir, "bench.toml")
	toml := "runtime = \"wasmtime\"\nthreads = 2\n\n[limits]\nheap_size = 2048\nstack_size = 16384\nmax_threads = 8\nbuffer_size = 512\n"
	if err := os.WriteFile(file, []byte(toml), 0o644); err != nil {
		t.Fatal(err)
	}
	env := filepath.Join(dir, ".env")
	if err := os.WriteFile(env, []byte("WASM_HEAP_SIZE=64k\nWASM_BUFFER_SIZE=1k\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	opts, cmd := parse(t, "--config", file, "--env-file", env, "--runtime", "wazero", "--buffer-size", "8k", "-v")
	cfg, err := opts.loadConfig(cmd)
	if err != nil {
		t.Fatal(err)
	}

	checks := []struct {
		name string
		got  any
		want any
	}{
		{"runtime from flag", cfg.Runtime, "wazero"},
		{"threads from file", cfg.Threads, 2},
		{"stack from file", cfg.Limits.StackSize, uint64(16384)},
		{"max threads from file", cfg.Limits.MaxThreads, 8},
		{"heap from dotenv", cfg.Limits.HeapSize, uint64(64 * 1024)},
		{"buffer from flag", cfg.Limits.BufferSize, uint32(8 * 1024)},
		{"verbose", cfg.LogLevel, "debug"},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s: got %v, want %v", c.name, c.got, c.want)
		}
	}
}

func TestLoadConfig_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"missing config file", []string{"--config", "/nonexistent/bench.toml"}},
		{"bad buffer size", []string{"--buffer-size", "lots"}},
		{"buffer beyond 32 bits", []string{"--buffer-size", "8GiB"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			opts, cmd := parse(t, append([]string{"--env-file", ""}, tt.args...)...)
			if _, err := opts.loadConfig(cmd); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestNewLogger(t *testing.T) {
	for _, level := range []string{"debug", "info", "bogus"} {
		cfg := config.Default()
		cfg.LogLevel = level
		log, err := newLogger(cfg)
		if err != nil {
			t.Fatalf("%s: %v", level, err)
		}
		_ = log.Sync()
	}
}
