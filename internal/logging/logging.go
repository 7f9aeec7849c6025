// Package logging builds the process logger for the destination chosen on the command line.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

const (
	Console = "console"
	File    = "file"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// CheckDestination rejects anything but "file" and "console".
func CheckDestination(dest string) error {
	if dest != File && dest != Console {
		return fmt.Errorf("invalid logging type %q: want %q or %q", dest, File, Console)
	}
	return nil
}

// New returns a JSON logger writing to stdout ("console") or appending to
// path ("file"). Any other destination is an error. The closer releases the file.
func New(dest, path, level string) (*slog.Logger, io.Closer, error) {
	if err := CheckDestination(dest); err != nil {
		return nil, nil, err
	}
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, nil, err
	}
	opts := &slog.HandlerOptions{Level: lvl}

	switch dest {
	case Console:
		return slog.New(slog.NewJSONHandler(os.Stdout, opts)), nopCloser{}, nil
	case File:
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		return slog.New(slog.NewJSONHandler(f, opts)), f, nil
	default:
		return nil, nil, CheckDestination(dest)
	}
}

// ParseLevel accepts debug, info, warn/warning and error (case-insensitive).
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level: %s", level)
	}
}
