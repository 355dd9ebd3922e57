package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func resetLogging() {
	mutex.Lock()
	defer mutex.Unlock()
	loggers = make(map[string]*slog.Logger)
	levelVars = make(map[string]*slog.LevelVar)
	initialized = false
	current = Config{}
}

func TestModuleLevelOverride(t *testing.T) {
	resetLogging()

	Initialize(Config{
		Level:  "info",
		Format: "text",
		Modules: map[string]string{
			"pool": "debug",
			"app":  "warn",
		},
	})

	tests := []struct {
		module    string
		wantDebug bool
		wantInfo  bool
		wantWarn  bool
	}{
		{"pool", true, true, true},
		{"app", false, false, true},
		{"other", false, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.module, func(t *testing.T) {
			handler := GetLogger(tt.module).Handler()
			ctx := context.Background()

			if got := handler.Enabled(ctx, slog.LevelDebug); got != tt.wantDebug {
				t.Errorf("module %q: Debug enabled = %v, want %v", tt.module, got, tt.wantDebug)
			}
			if got := handler.Enabled(ctx, slog.LevelInfo); got != tt.wantInfo {
				t.Errorf("module %q: Info enabled = %v, want %v", tt.module, got, tt.wantInfo)
			}
			if got := handler.Enabled(ctx, slog.LevelWarn); got != tt.wantWarn {
				t.Errorf("module %q: Warn enabled = %v, want %v", tt.module, got, tt.wantWarn)
			}
		})
	}
}

func TestGetLoggerBeforeInitialize(t *testing.T) {
	resetLogging()

	before := GetLogger("pipewatch")
	if before.Handler().Enabled(context.Background(), slog.LevelDebug) {
		t.Error("logger created before Initialize should default to info")
	}

	Initialize(Config{
		Level:   "info",
		Format:  "text",
		Modules: map[string]string{"pipewatch": "debug"},
	})

	after := GetLogger("pipewatch")
	if before != after {
		t.Error("logger should be cached across Initialize when the format is unchanged")
	}
	if !before.Handler().Enabled(context.Background(), slog.LevelDebug) {
		t.Error("cached logger should pick up the new module level")
	}
}

func TestReinitializeChangesLevels(t *testing.T) {
	resetLogging()

	Initialize(Config{Level: "info"})
	logger := GetLogger("pool")
	if logger.Handler().Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("expected debug disabled at info level")
	}

	Initialize(Config{Level: "info", Modules: map[string]string{"pool": "debug"}})
	if !GetLogger("pool").Handler().Enabled(context.Background(), slog.LevelDebug) {
		t.Error("expected debug enabled after reload")
	}
}

func TestMultiHandlerFansOut(t *testing.T) {
	var debugBuf, infoBuf bytes.Buffer

	multi := NewMultiHandler(
		slog.NewTextHandler(&debugBuf, &slog.HandlerOptions{Level: slog.LevelDebug}),
		slog.NewTextHandler(&infoBuf, &slog.HandlerOptions{Level: slog.LevelInfo}),
	)
	logger := slog.New(multi).With("module", "test")

	logger.Debug("debug only")
	logger.Info("both")

	if !strings.Contains(debugBuf.String(), "debug only") {
		t.Errorf("debug handler missing debug record: %s", debugBuf.String())
	}
	if strings.Contains(infoBuf.String(), "debug only") {
		t.Errorf("info handler should not receive debug record: %s", infoBuf.String())
	}
	if !strings.Contains(infoBuf.String(), "both") || !strings.Contains(infoBuf.String(), "module=test") {
		t.Errorf("info handler missing record or attrs: %s", infoBuf.String())
	}
}

func TestPutFieldFlattensGroups(t *testing.T) {
	fields := map[string]string{}
	putField(fields, "", slog.Group("worker", slog.Int("pid", 42), slog.String("stream", "stdout")))
	putField(fields, "", slog.String("app_root", "/srv/app"))

	want := map[string]string{
		"WORKER_PID":    "42",
		"WORKER_STREAM": "stdout",
		"APP_ROOT":      "/srv/app",
	}
	for k, v := range want {
		if fields[k] != v {
			t.Errorf("fields[%q] = %q, want %q", k, fields[k], v)
		}
	}
}

func TestParseLevelValues(t *testing.T) {
	tests := []struct {
		input  string
		want   slog.Level
		wantOK bool
	}{
		{"debug", slog.LevelDebug, true},
		{"DEBUG", slog.LevelDebug, true},
		{"info", slog.LevelInfo, true},
		{"warn", slog.LevelWarn, true},
		{"warning", slog.LevelWarn, true},
		{"error", slog.LevelError, true},
		{"fatal", slog.LevelError, true},
		{"invalid", slog.LevelInfo, false},
		{"", slog.LevelInfo, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ParseLevel(tt.input)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, %v; want %v, %v", tt.input, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}
