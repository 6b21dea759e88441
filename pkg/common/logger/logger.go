package logger

import (
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/lmittmann/tint"
)

var (
	once   sync.Once
	logger *slog.Logger
)

type Options struct {
	Level      slog.Leveler // slog.LevelInfo, slog.LevelDebug, etc.
	Writer     *os.File     // default: os.Stdout
	TimeFormat string       // default: time.RFC3339
	NoColor    bool
}

func Init(opts *Options) {
	once.Do(func() {
		writer := opts.Writer
		if writer == nil {
			writer = os.Stdout
		}
		timeFormat := opts.TimeFormat
		if timeFormat == "" {
			timeFormat = time.RFC3339
		}

		handler := tint.NewHandler(writer, &tint.Options{
			Level:      opts.Level,
			TimeFormat: timeFormat,
			NoColor:    opts.NoColor,
		})

		logger = slog.New(handler)
		slog.SetDefault(logger)
	})
}

// ParseLevel maps a LOG_LEVEL string to a slog level. Unknown values
// fall back to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func L() *slog.Logger {
	return logger
}

// Info logs at info level.
func Info(msg string, args ...any) {
	if logger != nil {
		logger.Info(msg, args...)
	} else {
		slog.Info(msg, args...)
	}
}

// Debug logs at debug level.
func Debug(msg string, args ...any) {
	if logger != nil {
		logger.Debug(msg, args...)
	} else {
		slog.Debug(msg, args...)
	}
}

// Warn logs at warn level.
func Warn(msg string, args ...any) {
	if logger != nil {
		logger.Warn(msg, args...)
	} else {
		slog.Warn(msg, args...)
	}
}

// Error logs at error level.
func Error(msg string, args ...any) {
	if logger != nil {
		logger.Error(msg, args...)
	} else {
		slog.Error(msg, args...)
	}
}

// Fatal logs an error then exits.
func Fatal(msg string, args ...any) {
	Error(msg, args...)
	os.Exit(1)
}

func With(args ...any) *slog.Logger {
	if logger == nil {
		return slog.Default().With(args...)
	}
	return logger.With(args...)
}
