// Package stdlogger adapts the global zerolog logger to the printf style
// logging interfaces of third party clients (amqp091, go-redis, gorm).
package stdlogger

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Logger forwards printf style calls to zerolog.
type Logger struct {
	component string
}

// New returns a Logger tagging every line with component.
func New(component string) *Logger {
	return &Logger{component: component}
}

func (l *Logger) emit(level zerolog.Level, format string, v ...any) {
	log.WithLevel(level).Str("component", l.component).Msg(fmt.Sprintf(format, v...))
}

// Printf logs at info level. It satisfies amqp091.Logging.
func (l *Logger) Printf(format string, v ...any) { l.emit(zerolog.InfoLevel, format, v...) }

// Debugf logs at debug level.
func (l *Logger) Debugf(format string, v ...any) { l.emit(zerolog.DebugLevel, format, v...) }

// Infof logs at info level.
func (l *Logger) Infof(format string, v ...any) { l.emit(zerolog.InfoLevel, format, v...) }

// Warningf logs at warn level.
func (l *Logger) Warningf(format string, v ...any) { l.emit(zerolog.WarnLevel, format, v...) }

// Errorf logs at error level.
func (l *Logger) Errorf(format string, v ...any) { l.emit(zerolog.ErrorLevel, format, v...) }

// ContextLogger is the go-redis flavour taking a context first.
type ContextLogger struct {
	*Logger
}

// NewContext returns a ContextLogger tagging every line with component.
func NewContext(component string) ContextLogger {
	return ContextLogger{Logger: New(component)}
}

// Printf logs at warn level, go-redis only reports connection trouble through it.
func (l ContextLogger) Printf(_ context.Context, format string, v ...any) {
	l.emit(zerolog.WarnLevel, format, v...)
}

// LevelLogger logs every Printf call at one fixed level.
type LevelLogger struct {
	*Logger
	level zerolog.Level
}

// NewLevel returns a LevelLogger for clients that only print problems,
// like gorm's logger running at warn level.
func NewLevel(component string, level zerolog.Level) LevelLogger {
	return LevelLogger{Logger: New(component), level: level}
}

// Printf logs at the configured level. It satisfies gorm's logger.Writer.
func (l LevelLogger) Printf(format string, v ...any) { l.emit(l.level, format, v...) }
