// Package logger wraps uber-go/zap for leveled, structured logging with
// optional rotating file output. The zero state is safe: before Init the
// package-level functions write through a no-op logger, so library code
// and tests never require setup.
package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config holds the logger configuration.
type Config struct {
	// Level is the minimum log level (debug, info, warn, error)
	Level string `yaml:"level"`
	// Format is the output format (json, text)
	Format string `yaml:"format"`
	// File is the log file path. When set, logs are written to both
	// the console and the file; rotation is handled by lumberjack.
	File string `yaml:"file"`
	// MaxSize is the maximum size in megabytes before rotation
	MaxSize int `yaml:"max_size"`
	// MaxAge is the maximum number of days to retain rotated files
	MaxAge int `yaml:"max_age"`
	// MaxBackups is the maximum number of rotated files to retain
	MaxBackups int `yaml:"max_backups"`
	// Compress gzips rotated files
	Compress bool `yaml:"compress"`
	// AccessLog enables info-level logging of successful HTTP requests
	AccessLog bool `yaml:"access_log"`
}

var (
	global *zap.Logger
	once   sync.Once
)

// Init builds the global logger. Safe to call more than once; only the
// first call takes effect.
func Init(cfg Config) error {
	once.Do(func() {
		global = build(cfg)
	})
	return nil
}

// build assembles a logger from the config. Exposed within the package
// so tests can construct loggers without touching the global.
func build(cfg Config) *zap.Logger {
	cfg = withRotationDefaults(cfg)

	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	cores := []zapcore.Core{
		zapcore.NewCore(newEncoder(cfg.Format, true), zapcore.AddSync(os.Stdout), level),
	}

	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0755); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create log directory: %v, using console only\n", err)
		} else {
			rotated := zapcore.AddSync(&lumberjack.Logger{
				Filename:   cfg.File,
				MaxSize:    cfg.MaxSize,
				MaxAge:     cfg.MaxAge,
				MaxBackups: cfg.MaxBackups,
				Compress:   cfg.Compress,
			})
			// File output never carries ANSI color codes.
			cores = append(cores, zapcore.NewCore(newEncoder(cfg.Format, false), rotated, level))
		}
	}

	return zap.New(zapcore.NewTee(cores...),
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
	)
}

// withRotationDefaults fills unset rotation settings.
func withRotationDefaults(cfg Config) Config {
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = 100 // MB
	}
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = 7 // days
	}
	if cfg.MaxBackups <= 0 {
		cfg.MaxBackups = 5
	}
	return cfg
}

// newEncoder returns a JSON encoder for "json" format and a console
// encoder otherwise. Color only applies to the console text encoder.
func newEncoder(format string, color bool) zapcore.Encoder {
	if format == "json" {
		ec := zapcore.EncoderConfig{
			TimeKey:        "timestamp",
			LevelKey:       "level",
			NameKey:        "logger",
			CallerKey:      "caller",
			MessageKey:     "msg",
			StacktraceKey:  "stacktrace",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.LowercaseLevelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.SecondsDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		}
		return zapcore.NewJSONEncoder(ec)
	}

	levelEncoder := zapcore.CapitalLevelEncoder
	if color {
		levelEncoder = zapcore.CapitalColorLevelEncoder
	}
	ec := zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		CallerKey:      "caller",
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    levelEncoder,
		EncodeTime:     zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05"),
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
	return zapcore.NewConsoleEncoder(ec)
}

// Get returns the global logger, or a no-op logger before Init.
func Get() *zap.Logger {
	if global == nil {
		return zap.NewNop()
	}
	return global
}

// With creates a child logger with additional fields.
func With(fields ...zap.Field) *zap.Logger {
	return Get().With(fields...)
}

// Debug logs a debug message.
func Debug(msg string, fields ...zap.Field) {
	Get().WithOptions(zap.AddCallerSkip(1)).Debug(msg, fields...)
}

// Info logs an info message.
func Info(msg string, fields ...zap.Field) {
	Get().WithOptions(zap.AddCallerSkip(1)).Info(msg, fields...)
}

// Warn logs a warning message.
func Warn(msg string, fields ...zap.Field) {
	Get().WithOptions(zap.AddCallerSkip(1)).Warn(msg, fields...)
}

// Error logs an error message.
func Error(msg string, fields ...zap.Field) {
	Get().WithOptions(zap.AddCallerSkip(1)).Error(msg, fields...)
}

// Fatal logs a fatal message and exits.
func Fatal(msg string, fields ...zap.Field) {
	Get().WithOptions(zap.AddCallerSkip(1)).Fatal(msg, fields...)
}

// Sync flushes buffered log entries.
func Sync() error {
	if global != nil {
		return global.Sync()
	}
	return nil
}
