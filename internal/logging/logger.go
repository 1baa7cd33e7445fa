// Package logging configures zerolog for the toolrouter binaries.
//
// Library packages take a zerolog.Logger (or use the global one from
// github.com/rs/zerolog/log); only main decides where output goes.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
)

// ═══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ═══════════════════════════════════════════════════════════════════════════════

// Config configures the logger behavior.
type Config struct {
	Level   string    `mapstructure:"level" yaml:"level"`       // debug, info, warn, error, disabled
	File    string    `mapstructure:"file" yaml:"file"`         // Optional file for persistent logs
	JSON    bool      `mapstructure:"json" yaml:"json"`         // JSON lines instead of console output
	NoColor bool      `mapstructure:"no_color" yaml:"no_color"` // Disable ANSI colors on the console
	Output  io.Writer `mapstructure:"-" yaml:"-"`               // Console destination (default: stderr)
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() Config {
	return Config{Level: "warn"}
}

// ParseLevel parses a level name. Unknown names map to info.
func ParseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "off", "disabled", "none":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

// ValidLevel reports whether s names a level ParseLevel knows.
func ValidLevel(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace", "debug", "info", "warn", "warning", "error", "off", "disabled", "none":
		return true
	}
	return false
}

// ═══════════════════════════════════════════════════════════════════════════════
// LOGGER
// ═══════════════════════════════════════════════════════════════════════════════

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// New builds a logger from cfg. The returned closer releases the log file,
// if any.
func New(cfg Config) (zerolog.Logger, io.Closer, error) {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	var console io.Writer = out
	if !cfg.JSON {
		console = zerolog.ConsoleWriter{Out: out, NoColor: cfg.NoColor, TimeFormat: time.Kitchen}
	}

	writer := console
	var closer io.Closer = nopCloser{}

	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
			return zerolog.Nop(), nil, fmt.Errorf("create log directory: %w", err)
		}
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return zerolog.Nop(), nil, fmt.Errorf("open log file: %w", err)
		}
		writer = zerolog.MultiLevelWriter(console, zerolog.ConsoleWriter{Out: f, NoColor: true})
		closer = f
	}

	logger := zerolog.New(writer).
		Level(ParseLevel(cfg.Level)).
		With().
		Timestamp().
		Logger()
	return logger, closer, nil
}

// Component returns a child logger tagged with a component name.
func Component(l zerolog.Logger, name string) zerolog.Logger {
	return l.With().Str("component", name).Logger()
}

// SetGlobal makes l the logger behind github.com/rs/zerolog/log and
// zerolog.Ctx. Call it once from main.
func SetGlobal(l zerolog.Logger) {
	zlog.Logger = l
	zerolog.DefaultContextLogger = &l
}
