package driver

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func writeFile(t *testing.T, dir, name, contents string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(strings.TrimSpace(contents)+"\n"), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadConfigBasic(t *testing.T) {
	path := writeFile(t, t.TempDir(), ConfigFileName, `
pool_size: 8
stack_capacity: 0
log_level: DEBUG
builtins: [print, pow, print]
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	want := &Config{
		Path:          cfg.Path,
		PoolSize:      8,
		StackCapacity: 0,
		LogLevel:      slog.LevelDebug,
		Builtins:      []string{"pow", "print"},
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Fatalf("config mismatch (-want +got):\n%s", diff)
	}
	if !filepath.IsAbs(cfg.Path) {
		t.Fatalf("Path not absolute: %q", cfg.Path)
	}

	opts := cfg.ThreadOptions(nil, nil, nil)
	if opts.StackCapacity >= 0 {
		t.Fatalf("stack_capacity 0 should map to unbounded, got %d", opts.StackCapacity)
	}
}

func TestDecodeConfigDefaults(t *testing.T) {
	cfg, err := DecodeConfig(strings.NewReader(""))
	if err != nil {
		t.Fatalf("DecodeConfig: %v", err)
	}
	if diff := cmp.Diff(DefaultConfig(), cfg); diff != "" {
		t.Fatalf("defaults mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeConfigValidation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"unknown key", "pool: 3", "field pool not found"},
		{"zero pool", "pool_size: 0", "pool_size must be positive"},
		{"negative stack", "stack_capacity: -1", "stack_capacity must not be negative"},
		{"bad level", "log_level: loud", "invalid log level"},
		{"unknown builtin", "builtins: [printf]", "unknown builtin"},
		{"operator builtin", "builtins: [__add__]", "unknown builtin"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DecodeConfig(strings.NewReader(tc.yaml))
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("err = %v, want containing %q", err, tc.want)
			}
		})
	}
}

func TestResolveConfigFindsFileBesideProgram(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ConfigFileName, "pool_size: 3")
	program := filepath.Join(dir, "main"+ProgramExtension)

	cfg, err := ResolveConfig(program)
	if err != nil {
		t.Fatalf("ResolveConfig: %v", err)
	}
	if cfg.PoolSize != 3 {
		t.Fatalf("PoolSize = %d, want 3", cfg.PoolSize)
	}
}

func TestResolveConfigDefaultsWithoutFile(t *testing.T) {
	cfg, err := ResolveConfig(filepath.Join(t.TempDir(), "main"+ProgramExtension))
	if err != nil {
		t.Fatalf("ResolveConfig: %v", err)
	}
	if cfg.Path != "" || cfg.PoolSize != DefaultConfig().PoolSize {
		t.Fatalf("expected defaults, got %#v", cfg)
	}
}

func TestParseLogLevel(t *testing.T) {
	for text, want := range map[string]slog.Level{
		"debug": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	} {
		got, err := ParseLogLevel(text)
		if err != nil || got != want {
			t.Fatalf("ParseLogLevel(%q) = %v, %v", text, got, err)
		}
	}
}
