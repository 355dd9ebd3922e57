package pipewatch

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestSlogSinkLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	parser := func(line string) (string, string) {
		if strings.HasPrefix(line, "[") {
			if end := strings.Index(line, "] "); end > 0 {
				return line[1:end], line[end+2:]
			}
		}
		return "", line
	}
	sink := NewSlogSink(logger, parser)

	sink.PrintAppOutput(42, "stderr", []byte("[error] boom"))
	sink.PrintAppOutput(42, "stderr", []byte("[warning] careful"))
	sink.PrintAppOutput(42, "stdout", []byte("plain"))

	out := buf.String()
	for _, want := range []string{
		`level=ERROR msg=boom pid=42 stream=stderr`,
		`level=WARN msg=careful pid=42 stream=stderr`,
		`level=INFO msg=plain pid=42 stream=stdout`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestLineSinkFunc(t *testing.T) {
	var got string
	var sink LineSink = LineSinkFunc(func(pid int, stream string, line []byte) {
		got = stream + ":" + string(line)
	})
	sink.PrintAppOutput(1, "stdout", []byte("x"))
	if got != "stdout:x" {
		t.Errorf("got %q", got)
	}
}
