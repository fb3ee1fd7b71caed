package logx

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// NewLogger returns a zerolog logger configured for console output on
// stderr, keeping diagnostics out of any data written to stdout or files.
// The level comes from DIRSWEEP_LOG_LEVEL (debug, info, warn, error);
// unset or unrecognized values mean info.
func NewLogger() zerolog.Logger {
	output := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}
	zerolog.CallerMarshalFunc = func(pc uintptr, file string, line int) string {
		// Extract just the filename, not the full path
		short := file
		for i := len(file) - 1; i > 0; i-- {
			if file[i] == '/' {
				short = file[i+1:]
				break
			}
		}
		// Pad to 24 characters for alignment
		return fmt.Sprintf("%-24s", fmt.Sprintf("%s:%d", short, line))
	}
	logger := zerolog.New(output).With().Timestamp().Caller().Logger()
	return logger.Level(levelFromEnv())
}

func levelFromEnv() zerolog.Level {
	switch strings.ToLower(os.Getenv("DIRSWEEP_LOG_LEVEL")) {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
