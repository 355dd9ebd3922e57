package pipewatch

import (
	"log/slog"
)

// LineSink receives every log line parsed from a worker's output.
// The line slice is only valid for the duration of the call.
type LineSink interface {
	PrintAppOutput(pid int, stream string, line []byte)
}

// LineSinkFunc adapts a function to the LineSink interface.
type LineSinkFunc func(pid int, stream string, line []byte)

// PrintAppOutput calls f(pid, stream, line).
func (f LineSinkFunc) PrintAppOutput(pid int, stream string, line []byte) {
	f(pid, stream, line)
}

// OutputHandler receives the raw bytes of one read, unsplit and unmodified.
// buf[:n] is reused by the next read; copy it to retain it.
type OutputHandler func(buf []byte, n int)

// LogParser extracts a level and message from an application output line
// (e.g. "[warn] deprecated" -> "warn", "deprecated"). An empty level means info.
type LogParser func(line string) (level, msg string)

// SlogSink logs application output through slog, one record per line.
type SlogSink struct {
	logger *slog.Logger
	parser LogParser
}

// NewSlogSink returns a sink that logs to logger. parser may be nil.
func NewSlogSink(logger *slog.Logger, parser LogParser) *SlogSink {
	return &SlogSink{logger: logger, parser: parser}
}

// PrintAppOutput implements LineSink.
func (s *SlogSink) PrintAppOutput(pid int, stream string, line []byte) {
	level, msg := "", string(line)
	if s.parser != nil {
		level, msg = s.parser(msg)
	}

	attrs := []any{"pid", pid, "stream", stream}
	switch level {
	case "fatal", "error":
		s.logger.Error(msg, attrs...)
	case "warn", "warning":
		s.logger.Warn(msg, attrs...)
	case "debug", "trace":
		s.logger.Debug(msg, attrs...)
	default:
		s.logger.Info(msg, attrs...)
	}
}
