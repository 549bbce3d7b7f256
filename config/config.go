package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/docker/go-units"
	"github.com/pelletier/go-toml/v2"

	"github.com/wippyai/wasmbench/errors"
)

// Defaults for the resource limits.
const (
	DefaultHeapSize   = 1024 * 1024
	DefaultStackSize  = 8092
	DefaultMaxThreads = 16
	DefaultBufferSize = 4096
	DefaultThreads    = 1
)

// Environment variables overriding the configuration.
const (
	EnvHeapSize    = "WASM_HEAP_SIZE"
	EnvStackSize   = "WASM_STACK_SIZE"
	EnvMaxThreads  = "WASM_MAX_THREAD_NUM"
	EnvBufferSize  = "WASM_BUFFER_SIZE"
	EnvMemoryPages = "WASM_MEMORY_PAGES"
	EnvRuntime     = "WASM_RUNTIME"
	EnvThreads     = "WASM_THREADS"
)

// Limits holds the per-module resource limits handed to the engine.
type Limits struct {
	// HeapSize is the guest application heap in bytes (engines with a host
	// managed heap, e.g. WAMR).
	HeapSize uint64 `toml:"heap_size"`

	// StackSize is the guest operand/native stack size in bytes.
	StackSize uint64 `toml:"stack_size"`

	// MaxThreads caps the worker thread count for the run.
	MaxThreads int `toml:"max_threads"`

	// BufferSize is the scratch buffer size requested from create_buffer.
	BufferSize uint32 `toml:"buffer_size"`

	// MemoryPages caps linear memory per sandbox in 64KiB pages.
	// 0 means the engine default.
	MemoryPages uint32 `toml:"memory_pages"`
}

// Config selects the engine and module and carries the limits.
type Config struct {
	Runtime    string `toml:"runtime"`
	ModulePath string `toml:"module"`
	LogLevel   string `toml:"log_level"`
	Limits     Limits `toml:"limits"`
	Threads    int    `toml:"threads"`
}

// DefaultLimits returns the built-in limits.
func DefaultLimits() Limits {
	return Limits{
		HeapSize:   DefaultHeapSize,
		StackSize:  DefaultStackSize,
		MaxThreads: DefaultMaxThreads,
		BufferSize: DefaultBufferSize,
	}
}

// Default returns a configuration with every knob at its default.
func Default() Config {
	return Config{
		Threads:  DefaultThreads,
		LogLevel: "info",
		Limits:   DefaultLimits(),
	}
}

// LoadFile reads a TOML file over the defaults. Keys absent from the file
// keep their default value.
func LoadFile(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrap(errors.PhaseConfig, errors.KindIO, err, "read config file "+path)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrap(errors.PhaseConfig, errors.KindInvalidConfig, err, "parse config file "+path)
	}
	return cfg, nil
}

// LookupFunc resolves an environment variable.
type LookupFunc func(key string) (string, bool)

// ApplyEnv overrides c from the process environment.
func (c *Config) ApplyEnv() error {
	return c.ApplyLookup(os.LookupEnv)
}

// ApplyLookup overrides c from lookup. Size values accept human-readable
// units ("64k", "1MiB"); counts are plain integers.
func (c *Config) ApplyLookup(lookup LookupFunc) error {
	if v, ok := lookup(EnvRuntime); ok && v != "" {
		c.Runtime = v
	}
	if err := lookupInt(lookup, EnvThreads, &c.Threads); err != nil {
		return err
	}
	return c.Limits.ApplyLookup(lookup)
}

// ApplyLookup overrides each limit independently from lookup.
func (l *Limits) ApplyLookup(lookup LookupFunc) error {
	if err := lookupSize(lookup, EnvHeapSize, &l.HeapSize); err != nil {
		return err
	}
	if err := lookupSize(lookup, EnvStackSize, &l.StackSize); err != nil {
		return err
	}
	if err := lookupInt(lookup, EnvMaxThreads, &l.MaxThreads); err != nil {
		return err
	}
	var buf uint64
	if v, ok := lookup(EnvBufferSize); ok && v != "" {
		if err := lookupSize(lookup, EnvBufferSize, &buf); err != nil {
			return err
		}
		if buf > 1<<32-1 {
			return errors.InvalidConfig("%s=%s exceeds 32-bit guest address space", EnvBufferSize, v)
		}
		l.BufferSize = uint32(buf)
	}
	if v, ok := lookup(EnvMemoryPages); ok && v != "" {
		n, err := strconv.ParseUint(strings.TrimSpace(v), 10, 32)
		if err != nil {
			return errors.InvalidConfig("%s=%q: %v", EnvMemoryPages, v, err)
		}
		l.MemoryPages = uint32(n)
	}
	return nil
}

// Validate checks the configuration before any engine work starts.
func (c *Config) Validate() error {
	if c.Threads < 1 {
		return errors.InvalidConfig("thread count must be positive, got %d", c.Threads)
	}
	if c.Limits.MaxThreads > 0 && c.Threads > c.Limits.MaxThreads {
		return errors.New(errors.PhaseConfig, errors.KindUnsupportedThreads).
			Detail("%d threads exceeds max thread num %d", c.Threads, c.Limits.MaxThreads).
			Value(c.Threads).
			Build()
	}
	return c.Limits.Validate()
}

// Validate checks the limits.
func (l *Limits) Validate() error {
	if l.StackSize == 0 {
		return errors.InvalidConfig("stack size must be positive")
	}
	if l.BufferSize == 0 {
		return errors.InvalidConfig("buffer size must be positive")
	}
	if l.MaxThreads < 0 {
		return errors.InvalidConfig("max thread num must not be negative, got %d", l.MaxThreads)
	}
	return nil
}

// ParseSize parses a human-readable byte size such as "8k" or "1MiB".
func ParseSize(s string) (uint64, error) {
	n, err := units.RAMInBytes(strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, errors.InvalidConfig("negative size %q", s)
	}
	return uint64(n), nil
}

// FormatSize renders a byte count for logs and reports.
func FormatSize(n uint64) string {
	return units.BytesSize(float64(n))
}

func lookupSize(lookup LookupFunc, key string, dst *uint64) error {
	v, ok := lookup(key)
	if !ok || v == "" {
		return nil
	}
	n, err := ParseSize(v)
	if err != nil {
		return errors.InvalidConfig("%s=%q: %v", key, v, err)
	}
	*dst = n
	return nil
}

func lookupInt(lookup LookupFunc, key string, dst *int) error {
	v, ok := lookup(key)
	if !ok || v == "" {
		return nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return errors.InvalidConfig("%s=%q: %v", key, v, err)
	}
	*dst = n
	return nil
}
