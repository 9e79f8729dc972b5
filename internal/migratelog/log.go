// Package migratelog builds the structured logger the engine logs through
// (spec.md §4.5 "per-entry logging carries {migration_name, direction}
// structured fields"). The teacher has no structured logger of its own
// (every cmd/bd file logs with fmt.Printf), but it does depend on
// gopkg.in/natefinch/lumberjack.v2 without ever consuming it in the
// retrieved slice; this package is where that dependency earns its keep,
// as the rotation policy behind a log/slog handler.
package migratelog

import (
	"io"
	"log/slog"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures the logger returned by New.
type Options struct {
	// FilePath, if non-empty, logs are written here (rotated via
	// lumberjack) in addition to being written to Stderr when Verbose.
	FilePath string

	// Verbose mirrors the CLI's --verbose flag: when false and FilePath is
	// set, only the rotating file receives log records. When FilePath is
	// empty, records go to stderr whether or not Verbose is set.
	Verbose bool
}

// New builds a slog.Logger writing JSON records to a rotating file and/or
// stderr (see Options); every destination receives the same JSON records.
func New(opts Options) *slog.Logger {
	var writers []io.Writer

	if opts.FilePath != "" {
		writers = append(writers, &lumberjack.Logger{
			Filename:   opts.FilePath,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
			Compress:   true,
		})
	}

	if opts.Verbose || len(writers) == 0 {
		writers = append(writers, os.Stderr)
	}

	handler := slog.NewJSONHandler(io.MultiWriter(writers...), &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	return slog.New(handler)
}
