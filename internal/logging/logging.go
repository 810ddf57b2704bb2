// Package logging sets up the zerolog logger. Output goes to a file because
// the terminal belongs to the UI.
package logging

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/llehouerou/decomposer/internal/config"
)

const (
	appName     = "decomposer"
	logFileName = "decomposer.log"
)

// Setup opens the log file named by cfg (or the default under the XDG state
// dir) and returns a logger writing to it. The logger is also installed as
// the global log.Logger. Close the returned closer on exit.
func Setup(cfg config.LogConfig) (zerolog.Logger, io.Closer, error) {
	path := cfg.File
	if path == "" {
		p, err := defaultPath()
		if err != nil {
			return zerolog.Nop(), nil, err
		}
		path = p
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return zerolog.Nop(), nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return zerolog.Nop(), nil, err
	}

	logger := New(f, cfg.Level)
	log.Logger = logger
	return logger, f, nil
}

// New returns a logger writing JSON lines to w at the named level.
// Unknown or empty levels mean info.
func New(w io.Writer, level string) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	return zerolog.New(w).Level(ParseLevel(level)).With().Timestamp().Logger()
}

// ParseLevel maps a config level name to a zerolog level.
func ParseLevel(level string) zerolog.Level {
	if level == "" {
		return zerolog.InfoLevel
	}
	l, err := zerolog.ParseLevel(level)
	if err != nil || l == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return l
}

func defaultPath() (string, error) {
	return xdg.StateFile(filepath.Join(appName, logFileName))
}
