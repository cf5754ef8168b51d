// Package logging builds the zap logger shared by every component.
package logging

import (
	"errors"
	"fmt"
	"os"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"nfe/internal/config"
)

// New creates a logger from config. Output goes to cfg.File when set,
// otherwise to stderr. The returned func closes the log file.
func New(cfg config.LoggingConfig) (*zap.Logger, func(), error) {
	level, err := zapcore.ParseLevel(levelOrDefault(cfg.Level))
	if err != nil {
		return nil, nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	sink, closeSink := zapcore.Lock(os.Stderr), func() {}
	if cfg.File != "" {
		sink, closeSink, err = zap.Open(cfg.File)
		if err != nil {
			return nil, nil, fmt.Errorf("opening log file: %w", err)
		}
	}

	core := zapcore.NewCore(newEncoder(cfg.Format), sink, level)
	return zap.New(core, zap.AddCaller()), closeSink, nil
}

// ForTerminalUI returns the logger for the interactive menu, which owns the
// terminal: logging is disabled unless a file is configured.
func ForTerminalUI(cfg config.LoggingConfig) (*zap.Logger, func(), error) {
	if cfg.File == "" {
		return zap.NewNop(), func() {}, nil
	}
	return New(cfg)
}

// Sync flushes the logger, ignoring the harmless errors returned when the
// sink is a terminal.
func Sync(l *zap.Logger) error {
	err := l.Sync()
	if err != nil && isStdoutSyncError(err) {
		return nil
	}
	return err
}

func newEncoder(format string) zapcore.Encoder {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	if format == "json" {
		return zapcore.NewJSONEncoder(encoderCfg)
	}
	encoderCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	return zapcore.NewConsoleEncoder(encoderCfg)
}

func levelOrDefault(level string) string {
	if level == "" {
		return "info"
	}
	return level
}

func isStdoutSyncError(err error) bool {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno == syscall.EINVAL || errno == syscall.ENOTTY
	}
	return false
}
