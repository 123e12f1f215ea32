// Package logging builds the zerolog logger shared by the CLI and the viewer.
package logging

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"

	"gitgutter/internal/config"
)

const (
	defaultMaxSizeMB  = 10
	defaultMaxBackups = 3
)

// Builder assembles a logger from a LogConfig plus the outputs the caller
// owns. The viewer disables the console because it draws on the terminal.
type Builder struct {
	cfg     config.LogConfig
	console io.Writer
	file    bool
}

func NewBuilder(cfg config.LogConfig) *Builder {
	return &Builder{cfg: cfg, console: os.Stderr, file: cfg.File != ""}
}

// WithConsole sets the console destination. Nil disables console output.
func (b *Builder) WithConsole(w io.Writer) *Builder {
	b.console = w
	return b
}

// WithFile toggles the rotating file output.
func (b *Builder) WithFile(enabled bool) *Builder {
	b.file = enabled
	return b
}

func (b *Builder) Build() (zerolog.Logger, error) {
	level, err := ParseLevel(b.cfg.Level)
	if err != nil {
		return zerolog.Nop(), err
	}

	var writers []io.Writer
	if b.console != nil {
		writers = append(writers, b.consoleWriter(b.console, false))
	}
	if b.file {
		w, err := b.fileWriter()
		if err != nil {
			return zerolog.Nop(), err
		}
		writers = append(writers, w)
	}
	if len(writers) == 0 {
		return zerolog.Nop(), nil
	}

	return zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(level).
		With().
		Timestamp().
		Logger(), nil
}

func (b *Builder) consoleWriter(w io.Writer, noColor bool) io.Writer {
	if strings.EqualFold(b.cfg.Format, "json") {
		return w
	}
	return zerolog.ConsoleWriter{Out: w, NoColor: noColor, TimeFormat: time.TimeOnly}
}

func (b *Builder) fileWriter() (io.Writer, error) {
	if b.cfg.File == "" {
		return nil, errors.New("log file path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(b.cfg.File), 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	lj := &lumberjack.Logger{
		Filename:   b.cfg.File,
		MaxSize:    positiveOr(b.cfg.MaxSizeMB, defaultMaxSizeMB),
		MaxBackups: positiveOr(b.cfg.MaxBackups, defaultMaxBackups),
		LocalTime:  true,
	}
	return b.consoleWriter(lj, true), nil
}

// New logs to stderr and, when a file is configured, to that file too.
func New(cfg config.LogConfig) (zerolog.Logger, error) {
	return NewBuilder(cfg).Build()
}

// ParseLevel accepts zerolog level names; empty means info.
func ParseLevel(s string) (zerolog.Level, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return zerolog.InfoLevel, nil
	}
	level, err := zerolog.ParseLevel(s)
	if err != nil {
		return zerolog.InfoLevel, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return level, nil
}

func positiveOr(v, fallback int) int {
	if v <= 0 {
		return fallback
	}
	return v
}
