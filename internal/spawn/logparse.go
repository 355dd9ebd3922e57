package spawn

import "strings"

// ParseBracketLevel reads a leading "[level]" tag from an output line,
// e.g. "[warn] slow query" -> ("warn", "slow query"). Untagged lines are info.
func ParseBracketLevel(line string) (level, msg string) {
	if !strings.HasPrefix(line, "[") {
		return "info", line
	}
	end := strings.IndexByte(line, ']')
	if end < 0 {
		return "info", line
	}

	tag := strings.ToLower(line[1:end])
	switch tag {
	case "fatal", "error", "warn", "warning", "info", "debug", "trace":
		return tag, strings.TrimSpace(line[end+1:])
	default:
		return "info", line
	}
}
