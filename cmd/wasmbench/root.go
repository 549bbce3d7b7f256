package main

import (
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/wippyai/wasmbench/config"
	"github.com/wippyai/wasmbench/errors"
)

type rootOptions struct {
	args       map[string]string
	configFile string
	envFile    string
	runtime    string
	heapSize   string
	stackSize  string
	bufferSize string
	threads    int
	maxThreads int
	pages      uint32
	verbose    bool
}

func newRootCmd() *cobra.Command {
	return newRoot(&rootOptions{})
}

func newRoot(opts *rootOptions) *cobra.Command {
	root := &cobra.Command{
		Use:           "wasmbench",
		Short:         "Benchmark WebAssembly guests across engines",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	f := root.PersistentFlags()
	f.StringVarP(&opts.configFile, "config", "c", "", "TOML configuration file")
	f.StringVar(&opts.envFile, "env-file", ".env", "dotenv file loaded before reading WASM_* variables")
	f.StringVarP(&opts.runtime, "runtime", "r", "", "engine name (wamr, wasmedge, wasmer, wasmtime, wazero)")
	f.IntVarP(&opts.threads, "threads", "t", config.DefaultThreads, "number of worker threads")
	f.StringVar(&opts.heapSize, "heap-size", "", "guest heap size, e.g. 1MiB")
	f.StringVar(&opts.stackSize, "stack-size", "", "guest stack size")
	f.StringVar(&opts.bufferSize, "buffer-size", "", "scratch buffer size requested from create_buffer")
	f.IntVar(&opts.maxThreads, "max-threads", config.DefaultMaxThreads, "maximum thread count")
	f.Uint32Var(&opts.pages, "memory-pages", 0, "linear memory limit in 64KiB pages")
	f.StringToStringVar(&opts.args, "arg", nil, "test argument override name=value")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(newRunCmd(opts), newCommandCmd(opts), newEnginesCmd())
	return root
}

// loadConfig layers defaults, the config file, the dotenv file, WASM_*
// variables and finally explicitly set flags.
func (o *rootOptions) loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg := config.Default()
	if o.configFile != "" {
		var err error
		if cfg, err = config.LoadFile(o.configFile); err != nil {
			return cfg, err
		}
	}

	if o.envFile != "" {
		if err := godotenv.Load(o.envFile); err != nil && !os.IsNotExist(err) {
			return cfg, err
		}
	}
	if err := cfg.ApplyEnv(); err != nil {
		return cfg, err
	}

	flags := cmd.Flags()
	if flags.Changed("runtime") {
		cfg.Runtime = o.runtime
	}
	if flags.Changed("threads") {
		cfg.Threads = o.threads
	}
	if flags.Changed("max-threads") {
		cfg.Limits.MaxThreads = o.maxThreads
	}
	if flags.Changed("memory-pages") {
		cfg.Limits.MemoryPages = o.pages
	}
	for name, dst := range map[string]*uint64{"heap-size": &cfg.Limits.HeapSize, "stack-size": &cfg.Limits.StackSize} {
		if !flags.Changed(name) {
			continue
		}
		v, _ := flags.GetString(name)
		n, err := config.ParseSize(v)
		if err != nil {
			return cfg, err
		}
		*dst = n
	}
	if flags.Changed("buffer-size") {
		n, err := config.ParseSize(o.bufferSize)
		if err != nil {
			return cfg, err
		}
		if n > 1<<32-1 {
			return cfg, errors.InvalidConfig("buffer size %s exceeds the 32-bit guest address space", o.bufferSize)
		}
		cfg.Limits.BufferSize = uint32(n)
	}
	if o.verbose {
		cfg.LogLevel = "debug"
	}
	return cfg, nil
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil {
		level = zapcore.InfoLevel
	}

	zc := zap.NewProductionConfig()
	if level == zapcore.DebugLevel {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.OutputPaths = []string{"stderr"}

	logger, err := zc.Build()
	if err != nil {
		return nil, err
	}
	return logger.With(zap.String("run_id", uuid.NewString())), nil
}
