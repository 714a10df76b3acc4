package logger

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
)

// Logger keeps the printf-style call sites used across the service while
// writing structured zerolog events underneath.
type Logger struct {
	level string
	zl    zerolog.Logger
}

func New(level string) *Logger {
	return NewWithWriter(level, os.Stdout)
}

// NewWithWriter is New with an explicit sink; tests pass io.Discard.
func NewWithWriter(level string, w io.Writer) *Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	return &Logger{
		level: lvl.String(),
		zl:    zerolog.New(w).Level(lvl).With().Timestamp().Logger(),
	}
}

// Nop returns a logger that drops everything.
func Nop() *Logger {
	return &Logger{level: "disabled", zl: zerolog.Nop()}
}

// With returns a child logger carrying an extra field on every event.
func (l *Logger) With(key string, value interface{}) *Logger {
	return &Logger{
		level: l.level,
		zl:    l.zl.With().Interface(key, value).Logger(),
	}
}

// Zerolog exposes the underlying logger for structured call sites.
func (l *Logger) Zerolog() *zerolog.Logger {
	return &l.zl
}

func (l *Logger) Info(msg string, args ...interface{}) {
	l.zl.Info().Msg(format(msg, args))
}

func (l *Logger) Debug(msg string, args ...interface{}) {
	l.zl.Debug().Msg(format(msg, args))
}

func (l *Logger) Warn(msg string, args ...interface{}) {
	l.zl.Warn().Msg(format(msg, args))
}

func (l *Logger) Error(msg string, args ...interface{}) {
	l.zl.Error().Msg(format(msg, args))
}

func (l *Logger) Fatal(msg string, args ...interface{}) {
	l.zl.WithLevel(zerolog.FatalLevel).Msg(format(msg, args))
	os.Exit(1)
}

func format(msg string, args []interface{}) string {
	if len(args) == 0 {
		return msg
	}
	return fmt.Sprintf(msg, args...)
}
