package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/spf13/cobra"
)

// serverOptions mirrors the shape of the server's CLI options.
type serverOptions struct {
	Config string `help:"Config file path"`

	Port            string        `toml:"server.port" env:"SERVER_PORT"`
	ThreadSafe      bool          `toml:"pool.thread_safe" env:"POOL_THREAD_SAFE"`
	TailSize        int           `toml:"spawn.tail_size" env:"SPAWN_TAIL_SIZE"`
	GracefulTimeout time.Duration `toml:"spawn.graceful_timeout" env:"SPAWN_GRACEFUL_TIMEOUT"`
	Preload         []string      `toml:"pool.preload" env:"POOL_PRELOAD"`
	Environment     string        `toml:"spawn.environment" env:"SPAWN_ENVIRONMENT"`
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "apppool.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

const sampleConfig = `
[server]
port = ":9000"

[pool]
thread_safe = true
preload = ["/srv/a", "/srv/b"]

[spawn]
tail_size = 4096
graceful_timeout = "3s"
environment = "staging"
`

func TestLoadConfigFromTOML(t *testing.T) {
	opts := &serverOptions{Config: writeConfig(t, sampleConfig)}

	if err := LoadConfig(opts, nil); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	want := serverOptions{
		Config:          opts.Config,
		Port:            ":9000",
		ThreadSafe:      true,
		TailSize:        4096,
		GracefulTimeout: 3 * time.Second,
		Preload:         []string{"/srv/a", "/srv/b"},
		Environment:     "staging",
	}
	if !reflect.DeepEqual(*opts, want) {
		t.Errorf("LoadConfig = %+v, want %+v", *opts, want)
	}
}

func TestLoadConfigFromEnvVars(t *testing.T) {
	t.Setenv("APPPOOL_SERVER_PORT", ":7000")
	t.Setenv("APPPOOL_POOL_THREAD_SAFE", "true")
	t.Setenv("APPPOOL_SPAWN_TAIL_SIZE", "123")
	t.Setenv("APPPOOL_SPAWN_GRACEFUL_TIMEOUT", "250ms")
	t.Setenv("APPPOOL_POOL_PRELOAD", " /srv/x , /srv/y ")

	opts := &serverOptions{}
	if err := LoadConfig(opts, nil); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if opts.Port != ":7000" || !opts.ThreadSafe || opts.TailSize != 123 {
		t.Errorf("unexpected options %+v", opts)
	}
	if opts.GracefulTimeout != 250*time.Millisecond {
		t.Errorf("GracefulTimeout = %v, want 250ms", opts.GracefulTimeout)
	}
	if want := []string{"/srv/x", "/srv/y"}; !reflect.DeepEqual(opts.Preload, want) {
		t.Errorf("Preload = %v, want %v", opts.Preload, want)
	}
}

func TestLoadConfigEnvOverridesToml(t *testing.T) {
	t.Setenv("APPPOOL_SPAWN_ENVIRONMENT", "development")

	opts := &serverOptions{Config: writeConfig(t, sampleConfig)}
	if err := LoadConfig(opts, nil); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if opts.Environment != "development" {
		t.Errorf("Environment = %q, want env override", opts.Environment)
	}
	if opts.Port != ":9000" {
		t.Errorf("Port = %q, want TOML value", opts.Port)
	}
}

func TestLoadConfigFlagsWin(t *testing.T) {
	t.Setenv("APPPOOL_SERVER_PORT", ":7000")

	opts := &serverOptions{Config: writeConfig(t, sampleConfig)}

	cmd := &cobra.Command{Use: "apppool"}
	cmd.Flags().StringVar(&opts.Port, "port", ":8090", "")
	cmd.Flags().IntVar(&opts.TailSize, "tail-size", 0, "")
	if err := cmd.Flags().Parse([]string{"--port", ":1234"}); err != nil {
		t.Fatal(err)
	}

	if err := LoadConfig(opts, cmd); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if opts.Port != ":1234" {
		t.Errorf("Port = %q, want CLI value", opts.Port)
	}
	// Unchanged flags still take file values.
	if opts.TailSize != 4096 {
		t.Errorf("TailSize = %d, want TOML value", opts.TailSize)
	}
}

func TestLoadConfigInvalidEnvValue(t *testing.T) {
	t.Setenv("APPPOOL_SPAWN_TAIL_SIZE", "lots")

	if err := LoadConfig(&serverOptions{}, nil); err == nil {
		t.Fatal("LoadConfig should fail for a non-numeric integer")
	}
}

func TestLoadConfigTypeMismatch(t *testing.T) {
	path := writeConfig(t, "[server]\nport = 9000\n")

	if err := LoadConfig(&serverOptions{Config: path}, nil); err == nil {
		t.Fatal("LoadConfig should fail when a string field gets an integer")
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	opts := &serverOptions{Config: filepath.Join(t.TempDir(), "missing.toml")}
	if err := LoadConfig(opts, nil); err != nil {
		t.Fatalf("LoadConfig should not fail for missing file: %v", err)
	}
}

func TestLoadConfigInvalidTOML(t *testing.T) {
	opts := &serverOptions{Config: writeConfig(t, "[server\ninvalid toml syntax\n")}
	if err := LoadConfig(opts, nil); err == nil {
		t.Fatal("LoadConfig should fail for invalid TOML")
	}
}

func TestLoadConfigRequiresStructPointer(t *testing.T) {
	if err := LoadConfig(serverOptions{}, nil); err == nil {
		t.Fatal("LoadConfig should reject a non-pointer")
	}
}

func TestGetNestedValue(t *testing.T) {
	data := map[string]any{
		"level1": map[string]any{
			"level2": map[string]any{
				"value": "nested_value",
			},
			"simple": "simple_value",
		},
		"root": "root_value",
	}

	tests := []struct {
		path     string
		expected any
	}{
		{"root", "root_value"},
		{"level1.simple", "simple_value"},
		{"level1.level2.value", "nested_value"},
		{"nonexistent", nil},
		{"level1.nonexistent", nil},
		{"root.child", nil},
	}

	for _, test := range tests {
		result := getNestedValue(data, test.path)
		if result != test.expected {
			t.Errorf("getNestedValue(%q) = %v, expected %v", test.path, result, test.expected)
		}
	}
}

func TestSetFieldValueDuration(t *testing.T) {
	var s struct{ D time.Duration }
	field := reflect.ValueOf(&s).Elem().Field(0)

	if err := setFieldValue(field, "1m30s"); err != nil {
		t.Fatal(err)
	}
	if s.D != 90*time.Second {
		t.Errorf("D = %v, want 1m30s", s.D)
	}

	// Bare integers are milliseconds.
	if err := setFieldValue(field, int64(250)); err != nil {
		t.Fatal(err)
	}
	if s.D != 250*time.Millisecond {
		t.Errorf("D = %v, want 250ms", s.D)
	}

	if err := setFieldValue(field, true); err == nil {
		t.Error("expected error for bool duration")
	}
}

func TestFieldNameToFlag(t *testing.T) {
	tests := map[string]string{
		"Port":                 "port",
		"LoggingLevel":         "logging-level",
		"SpawnGracefulTimeout": "spawn-graceful-timeout",
		"CORSOrigin":           "cors-origin",
		"LoggingAPI":           "logging-api",
	}
	for in, want := range tests {
		if got := fieldNameToFlag(in); got != want {
			t.Errorf("fieldNameToFlag(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestReadLoggingConfig(t *testing.T) {
	path := writeConfig(t, `
[logging]
level = "warn"
format = "json"
pool = "debug"
pipewatch = "error"
`)

	cfg, err := ReadLoggingConfig(path)
	if err != nil {
		t.Fatalf("ReadLoggingConfig failed: %v", err)
	}

	if cfg.Level != "warn" || cfg.Format != "json" {
		t.Errorf("unexpected global settings %+v", cfg)
	}
	want := map[string]string{"pool": "debug", "pipewatch": "error"}
	if !reflect.DeepEqual(cfg.Modules, want) {
		t.Errorf("Modules = %v, want %v", cfg.Modules, want)
	}
}

func TestReadLoggingConfigErrors(t *testing.T) {
	if _, err := ReadLoggingConfig(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Error("expected error for missing file")
	}
	if _, err := ReadLoggingConfig(writeConfig(t, "[logging\n")); err == nil {
		t.Error("expected error for invalid TOML")
	}
}

func TestLoadLoggingConfigDefaults(t *testing.T) {
	cfg := LoadLoggingConfig(filepath.Join(t.TempDir(), "missing.toml"))
	if cfg.Level != "info" || cfg.Format != "text" || len(cfg.Modules) != 0 {
		t.Errorf("unexpected defaults %+v", cfg)
	}
}
