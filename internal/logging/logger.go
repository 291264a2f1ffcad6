// Package logging builds the zerolog logger used across serman.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Config holds logging configuration.
type Config struct {
	Level      zerolog.Level
	Format     string // "json" or "console"
	TimeFormat string
	// File, when set, receives a copy of every record and is rotated by size.
	File string
	// Quiet drops the stderr writer, e.g. while a TUI owns the terminal.
	Quiet bool
}

// DefaultConfig returns the defaults used before configuration is loaded.
func DefaultConfig() Config {
	return Config{
		Level:      zerolog.InfoLevel,
		Format:     "console",
		TimeFormat: time.RFC3339,
	}
}

// ParseLevel maps a configured level name to a zerolog level.
func ParseLevel(level string) (zerolog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return zerolog.TraceLevel, nil
	case "debug":
		return zerolog.DebugLevel, nil
	case "", "info":
		return zerolog.InfoLevel, nil
	case "warn", "warning":
		return zerolog.WarnLevel, nil
	case "error":
		return zerolog.ErrorLevel, nil
	default:
		return zerolog.NoLevel, fmt.Errorf("unknown log level %q", level)
	}
}

// New creates a logger from cfg. The returned closer releases the log file,
// if any.
func New(cfg Config) (zerolog.Logger, io.Closer, error) {
	var writers []io.Writer

	if !cfg.Quiet {
		switch cfg.Format {
		case "json":
			writers = append(writers, os.Stderr)
		default:
			writers = append(writers, zerolog.ConsoleWriter{
				Out:        os.Stderr,
				TimeFormat: cfg.TimeFormat,
			})
		}
	}

	var closer io.Closer = nopCloser{}
	if cfg.File != "" {
		file, err := OpenRotatingFile(cfg.File, MaxLogFileSize, MaxLogFiles)
		if err != nil {
			return zerolog.Nop(), nil, fmt.Errorf("failed to open log file: %w", err)
		}
		writers = append(writers, file)
		closer = file
	}

	var output io.Writer
	switch len(writers) {
	case 0:
		output = io.Discard
	case 1:
		output = writers[0]
	default:
		output = zerolog.MultiLevelWriter(writers...)
	}

	logger := zerolog.New(output).
		Level(cfg.Level).
		With().
		Timestamp().
		Logger()

	return logger, closer, nil
}

// NewOrStderr is New, except that a log file that cannot be opened is
// skipped with a warning rather than failing. It suits default log paths
// that an unprivileged user may not be able to write.
func NewOrStderr(cfg Config) (zerolog.Logger, io.Closer) {
	logger, closer, err := New(cfg)
	if err == nil {
		return logger, closer
	}

	file := cfg.File
	cfg.File = ""
	logger, closer, _ = New(cfg)
	logger.Warn().Err(err).Str("file", file).Msg("log file unavailable, logging to stderr only")
	return logger, closer
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
