package logging

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// DefaultLogFile is used in interactive mode when no log file is configured.
var DefaultLogFile = filepath.Join(os.TempDir(), "walletview.log")

// Config holds logger configuration.
type Config struct {
	Level   string
	Output  io.Writer
	Pretty  bool
	Version string
}

// New creates a structured logger.
func New(cfg Config) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339Nano

	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: "15:04:05.000",
			NoColor:    true,
		}
	}

	return zerolog.New(output).
		Level(ParseLevel(cfg.Level)).
		With().
		Timestamp().
		Str("version", cfg.Version).
		Logger()
}

// OpenFile opens path for appending log lines. The terminal belongs to the
// TUI, so interactive runs log here instead of stderr.
func OpenFile(path string) (*os.File, error) {
	if path == "" {
		path = DefaultLogFile
	}
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
}

// ParseLevel maps a configured level name to a zerolog level, defaulting to info.
func ParseLevel(level string) zerolog.Level {
	l, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || l == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return l
}
