// Package diag renders the timestamped, tagged diagnostic lines described
// in spec.md §6: INFO/DEBUG/TRACE/WARN/ERROR/FATAL/SUCCESS/MESSAGE, filtered
// by a configured level against the ordering Error < Warn < Info < Debug <
// Trace.
package diag

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level is the configured verbosity. Higher is more verbose.
type Level int

const (
	LevelError Level = iota
	LevelWarn
	LevelInfo
	LevelDebug
	LevelTrace
)

// ParseLevel maps the config file's log_level string onto a Level.
func ParseLevel(s string) Level {
	switch s {
	case "Error":
		return LevelError
	case "Warn":
		return LevelWarn
	case "Debug":
		return LevelDebug
	case "Trace":
		return LevelTrace
	default:
		return LevelInfo
	}
}

// Logger gates and renders diagnostic lines. The verb set is shaped after
// leandrodaf-midi's sdk/contracts.Logger; the
// rendered line itself (timestamp + bracketed tag) follows the teacher's
// debug/log.go.
type Logger struct {
	level Level
	zl    *zap.Logger
}

// New builds a Logger at the given level, writing to w (os.Stdout in production).
func New(level Level, w zapcore.WriteSyncer) *Logger {
	encoderCfg := zapcore.EncoderConfig{
		TimeKey:    "ts",
		MessageKey: "msg",
		EncodeTime: zapcore.ISO8601TimeEncoder,
	}
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encoderCfg), w, zapcore.DebugLevel)
	return &Logger{level: level, zl: zap.New(core)}
}

// NewStdout is the production constructor.
func NewStdout(level Level) *Logger {
	return New(level, zapcore.AddSync(os.Stdout))
}

func (l *Logger) enabled(lv Level) bool { return l.level >= lv }

func (l *Logger) emit(tag string, lv Level, zapLevel zapcore.Level, msg string, fields ...zap.Field) {
	if !l.enabled(lv) {
		return
	}
	line := fmt.Sprintf("[%s] %s", tag, msg)
	switch zapLevel {
	case zapcore.ErrorLevel:
		l.zl.Error(line, fields...)
	case zapcore.WarnLevel:
		l.zl.Warn(line, fields...)
	case zapcore.DebugLevel:
		l.zl.Debug(line, fields...)
	default:
		l.zl.Info(line, fields...)
	}
}

func (l *Logger) Error(msg string, fields ...zap.Field) { l.emit("ERROR", LevelError, zapcore.ErrorLevel, msg, fields...) }
func (l *Logger) Warn(msg string, fields ...zap.Field)  { l.emit("WARN", LevelWarn, zapcore.WarnLevel, msg, fields...) }
func (l *Logger) Info(msg string, fields ...zap.Field)  { l.emit("INFO", LevelInfo, zapcore.InfoLevel, msg, fields...) }
func (l *Logger) Debug(msg string, fields ...zap.Field) { l.emit("DEBUG", LevelDebug, zapcore.DebugLevel, msg, fields...) }

// Trace is more verbose than zap's own Debug rung, so it is rendered through
// zap's Debug level but gated on our own, stricter Level.
func (l *Logger) Trace(msg string, fields ...zap.Field) {
	l.emit("TRACE", LevelTrace, zapcore.DebugLevel, msg, fields...)
}

// Success tags a successful dispatch outcome; always shown at Info verbosity.
func (l *Logger) Success(msg string, fields ...zap.Field) {
	l.emit("SUCCESS", LevelInfo, zapcore.InfoLevel, msg, fields...)
}

// Message tags child-process output, always shown at Info verbosity.
func (l *Logger) Message(cmd, text string) {
	l.emit("MESSAGE", LevelInfo, zapcore.InfoLevel, fmt.Sprintf("%s: %s", cmd, text))
}

// Fatal logs at FATAL and terminates the process, per spec.md §7 ("panics
// are reserved for logic errors" — FATAL is a deliberate, logged exit).
func (l *Logger) Fatal(msg string, fields ...zap.Field) {
	line := fmt.Sprintf("[FATAL] %s", msg)
	l.zl.Error(line, fields...)
	l.zl.Sync()
	os.Exit(1)
}

// Sync flushes the underlying zap core.
func (l *Logger) Sync() error { return l.zl.Sync() }
