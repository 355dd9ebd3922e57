package spawn

import (
	"fmt"
	"strings"
)

// parseCommand splits a command line into arguments.
// Handles single and double quotes and backslash escapes. Backslashes are
// literal inside single quotes.
func parseCommand(command string) ([]string, error) {
	var args []string
	var current strings.Builder
	inQuote := false
	quoteChar := rune(0)
	quoted := false

	runes := []rune(strings.TrimSpace(command))

	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case r == '"' || r == '\'':
			switch {
			case !inQuote:
				inQuote = true
				quoted = true
				quoteChar = r
			case r == quoteChar:
				inQuote = false
				quoteChar = 0
			default:
				current.WriteRune(r)
			}
		case (r == ' ' || r == '\t') && !inQuote:
			if current.Len() > 0 || quoted {
				args = append(args, current.String())
				current.Reset()
				quoted = false
			}
		case r == '\\' && i+1 < len(runes) && quoteChar != '\'':
			i++
			current.WriteRune(runes[i])
		default:
			current.WriteRune(r)
		}
	}

	if inQuote {
		return nil, fmt.Errorf("unclosed quote in command")
	}

	if current.Len() > 0 || quoted {
		args = append(args, current.String())
	}

	return args, nil
}

// buildArgv combines the interpreter and loader command lines.
func buildArgv(interpreter, command string) ([]string, error) {
	argv, err := parseCommand(command)
	if err != nil {
		return nil, fmt.Errorf("parse command: %w", err)
	}

	if interpreter != "" {
		interp, err := parseCommand(interpreter)
		if err != nil {
			return nil, fmt.Errorf("parse interpreter: %w", err)
		}
		argv = append(interp, argv...)
	}

	if len(argv) == 0 {
		return nil, fmt.Errorf("empty command")
	}
	return argv, nil
}
