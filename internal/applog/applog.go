// Package applog opens the log file shared by the command-line and desktop
// front ends.
package applog

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// FileName is the log file created in the working directory.
const FileName = "tdu_gravity_patcher.log"

// DefaultPath returns FileName inside the current working directory.
func DefaultPath() (string, error) {
	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("cannot get working directory: %w", err)
	}
	return filepath.Join(wd, FileName), nil
}

// Open returns a logger appending text records to path. Close the returned
// closer when done.
func Open(path string) (*slog.Logger, io.Closer, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("cannot open %s: %w", path, err)
	}
	return New(f), f, nil
}

// New returns a logger writing text records to w.
func New(w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo}))
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return New(io.Discard)
}
