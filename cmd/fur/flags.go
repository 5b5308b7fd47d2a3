package main

import (
	"fmt"
	"log/slog"
	"strings"

	"fur/runtime-go/pkg/driver"
)

type runFlags struct {
	logLevel *slog.Level
	stats    bool
}

func parseRunFlags(args []string) (runFlags, []string, error) {
	var flags runFlags
	remaining := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			remaining = append(remaining, args[i+1:]...)
			break
		}
		switch {
		case arg == "--stats":
			flags.stats = true
		case arg == "--log-level":
			if i+1 >= len(args) {
				return flags, nil, fmt.Errorf("--log-level expects a value")
			}
			level, err := driver.ParseLogLevel(args[i+1])
			if err != nil {
				return flags, nil, err
			}
			flags.logLevel = &level
			i++
		case strings.HasPrefix(arg, "--log-level="):
			level, err := driver.ParseLogLevel(strings.TrimPrefix(arg, "--log-level="))
			if err != nil {
				return flags, nil, err
			}
			flags.logLevel = &level
		case strings.HasPrefix(arg, "--"):
			return flags, nil, fmt.Errorf("unknown flag %s", arg)
		default:
			remaining = append(remaining, arg)
		}
	}
	return flags, remaining, nil
}

// level picks the flag over the configured level.
func (f runFlags) level(cfg *driver.Config) slog.Level {
	if f.logLevel != nil {
		return *f.logLevel
	}
	return cfg.LogLevel
}
