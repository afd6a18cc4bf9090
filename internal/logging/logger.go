package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"reflect"
	"sync"
	"time"
)

// Logger defines a minimal, printf-style logging contract.
//
// Components depend on this interface so tests can swap in a capture or
// no-op implementation without touching the concrete logger.
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

// Nop returns a logger that discards all output.
func Nop() Logger {
	return nopLogger{}
}

// IsNil reports whether logger is nil or wraps a nil pointer receiver.
func IsNil(logger Logger) bool {
	if logger == nil {
		return true
	}
	val := reflect.ValueOf(logger)
	switch val.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Slice, reflect.Map, reflect.Func:
		return val.IsNil()
	default:
		return false
	}
}

// OrNop returns logger when non-nil, otherwise a no-op logger.
func OrNop(logger Logger) Logger {
	if IsNil(logger) {
		return Nop()
	}
	return logger
}

// Level represents the severity of a log message.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

var (
	defaultOutput   io.Writer = os.Stderr
	defaultLevel              = LevelInfo
	defaultOutputMu sync.RWMutex
)

// SetDefaultOutput redirects component logger output, primarily for tests.
func SetDefaultOutput(w io.Writer) {
	defaultOutputMu.Lock()
	defer defaultOutputMu.Unlock()
	if w == nil {
		w = io.Discard
	}
	defaultOutput = w
}

// SetDefaultLevel adjusts the minimum severity emitted by component loggers.
func SetDefaultLevel(level Level) {
	defaultOutputMu.Lock()
	defer defaultOutputMu.Unlock()
	defaultLevel = level
}

type componentLogger struct {
	component string
}

// NewComponentLogger returns the default application logger scoped to a component.
func NewComponentLogger(component string) Logger {
	return &componentLogger{component: component}
}

func (l *componentLogger) emit(level Level, format string, args ...any) {
	defaultOutputMu.RLock()
	out := defaultOutput
	min := defaultLevel
	defaultOutputMu.RUnlock()
	if level < min {
		return
	}
	msg := fmt.Sprintf(format, args...)
	line := fmt.Sprintf("[%s] [%s] [%s] %s\n",
		time.Now().Format("2006-01-02 15:04:05.000"), level, l.component, msg)
	if _, err := io.WriteString(out, line); err != nil {
		log.Printf("logging: write failed: %v", err)
	}
}

func (l *componentLogger) Debug(format string, args ...any) {
	l.emit(LevelDebug, format, args...)
}

func (l *componentLogger) Info(format string, args ...any) {
	l.emit(LevelInfo, format, args...)
}

func (l *componentLogger) Warn(format string, args ...any) {
	l.emit(LevelWarn, format, args...)
}

func (l *componentLogger) Error(format string, args ...any) {
	l.emit(LevelError, format, args...)
}

type multiLogger struct {
	loggers []Logger
}

// Multi returns a logger fan-out that calls every non-nil logger in order.
func Multi(loggers ...Logger) Logger {
	flattened := make([]Logger, 0, len(loggers))
	for _, logger := range loggers {
		if IsNil(logger) {
			continue
		}
		if ml, ok := logger.(*multiLogger); ok {
			flattened = append(flattened, ml.loggers...)
			continue
		}
		flattened = append(flattened, logger)
	}
	if len(flattened) == 0 {
		return Nop()
	}
	if len(flattened) == 1 {
		return flattened[0]
	}
	return &multiLogger{loggers: flattened}
}

func (l *multiLogger) Debug(format string, args ...any) {
	for _, logger := range l.loggers {
		logger.Debug(format, args...)
	}
}

func (l *multiLogger) Info(format string, args ...any) {
	for _, logger := range l.loggers {
		logger.Info(format, args...)
	}
}

func (l *multiLogger) Warn(format string, args ...any) {
	for _, logger := range l.loggers {
		logger.Warn(format, args...)
	}
}

func (l *multiLogger) Error(format string, args ...any) {
	for _, logger := range l.loggers {
		logger.Error(format, args...)
	}
}
