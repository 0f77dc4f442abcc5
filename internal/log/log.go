package log

import (
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

var (
	mu     sync.RWMutex
	level  = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	logger *zap.SugaredLogger
)

// Configure rebuilds the process-wide logger for the given environment
// ("production", "development" or "test") and minimum level.
func Configure(environment string, l Level) error {
	cfg, err := zapConfig(environment)
	if err != nil {
		return err
	}
	lvl, err := parseLevel(l)
	if err != nil {
		return err
	}
	level.SetLevel(lvl)
	cfg.Level = level
	cfg.EncoderConfig.TimeKey = "time"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	z, err := cfg.Build()
	if err != nil {
		return err
	}
	Use(z)
	return nil
}

// Use replaces the process-wide logger. Tests hand in an observer core here.
func Use(z *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	logger = z.Sugar()
}

// Sync flushes buffered entries; call it before exit.
func Sync() {
	_ = current().Sync()
}

func Debug(msg string, kv ...any) {
	current().Debugw(msg, kv...)
}

func Info(msg string, kv ...any) {
	current().Infow(msg, kv...)
}

func Warn(msg string, kv ...any) {
	current().Warnw(msg, kv...)
}

func Error(msg string, err error, kv ...any) {
	// Error always leads the key-value list.
	extended := append([]any{zap.Error(err)}, kv...)
	current().Errorw(msg, extended...)
}

func current() *zap.SugaredLogger {
	mu.RLock()
	l := logger
	mu.RUnlock()
	if l != nil {
		return l
	}

	mu.Lock()
	defer mu.Unlock()
	if logger == nil {
		cfg := zap.NewProductionConfig()
		cfg.Level = level
		cfg.EncoderConfig.TimeKey = "time"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		z, err := cfg.Build()
		if err != nil {
			z = zap.NewNop()
		}
		logger = z.Sugar()
	}
	return logger
}

func zapConfig(environment string) (zap.Config, error) {
	switch environment {
	case "production", "test", "":
		return zap.NewProductionConfig(), nil
	case "development":
		return zap.NewDevelopmentConfig(), nil
	default:
		return zap.Config{}, fmt.Errorf("unsupported environment: %s", environment)
	}
}

func parseLevel(l Level) (zapcore.Level, error) {
	switch Level(strings.ToUpper(string(l))) {
	case LevelDebug:
		return zapcore.DebugLevel, nil
	case LevelInfo, "":
		return zapcore.InfoLevel, nil
	case LevelWarn:
		return zapcore.WarnLevel, nil
	case LevelError:
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("unsupported log level: %s", l)
	}
}
