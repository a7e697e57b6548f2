package uring

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// LogConfig configures the logger an event loop writes to.
type LogConfig struct {
	// Level is one of trace, debug, info, warn, error or disabled. Empty means disabled.
	Level string `yaml:"level" validate:"omitempty,oneof=trace debug info warn error disabled"`
	// Format is json or console.
	Format string `yaml:"format" validate:"omitempty,oneof=json console"`
	// Output is stdout, stderr or a file path. Empty means stderr.
	Output string `yaml:"output"`
	// Writer overrides Output when set.
	Writer io.Writer `yaml:"-"`
}

// NewLogger builds a zerolog.Logger from cfg.
func NewLogger(cfg LogConfig) (zerolog.Logger, error) {
	level, err := parseLogLevel(cfg.Level)
	if err != nil {
		return zerolog.Nop(), err
	}
	if level == zerolog.Disabled {
		return zerolog.Nop(), nil
	}
	writer := cfg.Writer
	if writer == nil {
		switch cfg.Output {
		case "", "stderr":
			writer = os.Stderr
		case "stdout":
			writer = os.Stdout
		default:
			file, openErr := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
			if openErr != nil {
				return zerolog.Nop(), openErr
			}
			writer = file
		}
	}
	if cfg.Format == "console" {
		writer = zerolog.ConsoleWriter{Out: writer, TimeFormat: time.RFC3339}
	}
	return zerolog.New(writer).With().Timestamp().Str("component", "uring").Logger().Level(level), nil
}

func parseLogLevel(level string) (zerolog.Level, error) {
	switch strings.ToLower(level) {
	case "", "disabled", "off":
		return zerolog.Disabled, nil
	default:
		return zerolog.ParseLevel(strings.ToLower(level))
	}
}
