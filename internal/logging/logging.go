// Package logging provides the leveled logger used across the pipeline,
// backed by zerolog.
package logging

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

type Level int

const (
	LevelError Level = iota
	LevelWarn
	LevelInfo
	LevelDebug
)

type Config struct {
	Level Level
}

type Logger struct {
	logger zerolog.Logger
	level  Level
}

// NewLogger returns a logger writing human-readable output to stderr.
func NewLogger(config Config) *Logger {
	return newLogger(config, zerolog.ConsoleWriter{Out: os.Stderr})
}

// NewLoggerWithWriter is used by tests to capture output.
func NewLoggerWithWriter(config Config, w io.Writer) *Logger {
	return newLogger(config, w)
}

func newLogger(config Config, w io.Writer) *Logger {
	return &Logger{
		logger: zerolog.New(w).Level(zerologLevel(config.Level)).With().Timestamp().Logger(),
		level:  config.Level,
	}
}

func zerologLevel(level Level) zerolog.Level {
	switch level {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelInfo:
		return zerolog.InfoLevel
	case LevelWarn:
		return zerolog.WarnLevel
	default:
		return zerolog.ErrorLevel
	}
}

func (l *Logger) Debugf(format string, args ...any) {
	l.logger.Debug().Msgf(format, args...)
}

func (l *Logger) Infof(format string, args ...any) {
	l.logger.Info().Msgf(format, args...)
}

func (l *Logger) Warnf(format string, args ...any) {
	l.logger.Warn().Msgf(format, args...)
}

func (l *Logger) Errorf(format string, args ...any) {
	l.logger.Error().Msgf(format, args...)
}

// Level returns the configured verbosity.
func (l *Logger) Level() Level {
	return l.level
}
