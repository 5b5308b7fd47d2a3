package driver

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"fur/runtime-go/pkg/runtime"
	"fur/runtime-go/pkg/vm"
)

// ConfigFileName is the runtime configuration discovered next to programs.
const ConfigFileName = "fur.yml"

// Config holds the runtime settings a thread is created with.
type Config struct {
	Path          string
	PoolSize      int
	StackCapacity int
	LogLevel      slog.Level
	Builtins      []string
}

// DefaultConfig returns the settings used when no fur.yml is present.
func DefaultConfig() *Config {
	return &Config{
		PoolSize:      runtime.DefaultPoolSize,
		StackCapacity: vm.DefaultStackCapacity,
		LogLevel:      slog.LevelWarn,
	}
}

type configDisk struct {
	PoolSize      *int     `yaml:"pool_size"`
	StackCapacity *int     `yaml:"stack_capacity"`
	LogLevel      string   `yaml:"log_level"`
	Builtins      []string `yaml:"builtins"`
}

// LoadConfig parses a fur.yml file.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config: empty path")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("config: resolve %s: %w", path, err)
	}
	file, err := os.Open(abs)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	cfg, err := DecodeConfig(file)
	if err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", abs, err)
	}
	cfg.Path = abs
	return cfg, nil
}

// DecodeConfig reads configuration YAML, rejecting unknown keys. An empty
// document yields the defaults.
func DecodeConfig(r io.Reader) (*Config, error) {
	var raw configDisk
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return raw.toConfig()
}

func (d configDisk) toConfig() (*Config, error) {
	cfg := DefaultConfig()
	if d.PoolSize != nil {
		if *d.PoolSize <= 0 {
			return nil, fmt.Errorf("pool_size must be positive, got %d", *d.PoolSize)
		}
		cfg.PoolSize = *d.PoolSize
	}
	if d.StackCapacity != nil {
		if *d.StackCapacity < 0 {
			return nil, fmt.Errorf("stack_capacity must not be negative, got %d", *d.StackCapacity)
		}
		cfg.StackCapacity = *d.StackCapacity
	}
	if strings.TrimSpace(d.LogLevel) != "" {
		level, err := ParseLogLevel(d.LogLevel)
		if err != nil {
			return nil, err
		}
		cfg.LogLevel = level
	}
	cfg.Builtins = d.Builtins
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) normalize() error {
	if len(c.Builtins) == 0 {
		c.Builtins = nil
		return nil
	}
	known := make(map[string]bool)
	for _, name := range vm.OptionalBuiltinNames() {
		known[name] = true
	}
	seen := make(map[string]bool, len(c.Builtins))
	out := make([]string, 0, len(c.Builtins))
	for _, name := range c.Builtins {
		name = strings.TrimSpace(name)
		if name == "" || seen[name] {
			continue
		}
		if !known[name] {
			return fmt.Errorf("unknown builtin %q (available: %s)", name, strings.Join(vm.OptionalBuiltinNames(), ", "))
		}
		seen[name] = true
		out = append(out, name)
	}
	sort.Strings(out)
	c.Builtins = out
	return nil
}

// ParseLogLevel accepts debug, info, warn or error.
func ParseLogLevel(text string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(text))); err != nil {
		return 0, fmt.Errorf("invalid log level %q", text)
	}
	return level, nil
}

// FindConfig looks for fur.yml in dir and then in the working directory. It
// returns an empty path when neither has one.
func FindConfig(dir string) (string, error) {
	candidates := []string{}
	if dir != "" {
		candidates = append(candidates, filepath.Join(dir, ConfigFileName))
	}
	if cwd, err := os.Getwd(); err == nil {
		candidates = append(candidates, filepath.Join(cwd, ConfigFileName))
	}
	for _, candidate := range candidates {
		info, err := os.Stat(candidate)
		if err == nil && !info.IsDir() {
			return candidate, nil
		}
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("config: stat %s: %w", candidate, err)
		}
	}
	return "", nil
}

// ResolveConfig loads the fur.yml that applies to a program file, falling
// back to the defaults.
func ResolveConfig(programPath string) (*Config, error) {
	path, err := FindConfig(filepath.Dir(programPath))
	if err != nil {
		return nil, err
	}
	if path == "" {
		return DefaultConfig(), nil
	}
	return LoadConfig(path)
}

// ThreadOptions converts the configuration into vm options writing to the
// given streams.
func (c *Config) ThreadOptions(stdout, stderr io.Writer, logger *slog.Logger) vm.Options {
	capacity := c.StackCapacity
	if capacity == 0 {
		capacity = -1
	}
	return vm.Options{
		PoolSize:      c.PoolSize,
		StackCapacity: capacity,
		Builtins:      append([]string(nil), c.Builtins...),
		Stdout:        stdout,
		Stderr:        stderr,
		Logger:        logger,
	}
}

// NewLogger builds the text logger used by the CLI at the configured level.
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
