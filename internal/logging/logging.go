// Package logging builds the zap loggers used across restorm and carries the
// per-request warnings sink.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config controls logger construction
type Config struct {
	// Level is a zap level name: debug, info, warn, error
	Level string `mapstructure:"level" yaml:"level"`
	// Development switches to the console encoder with stack traces on warn
	Development bool `mapstructure:"development" yaml:"development,omitempty"`
	// OutputPaths defaults to stderr
	OutputPaths []string `mapstructure:"output_paths" yaml:"output_paths,omitempty"`
}

// New builds a logger from cfg
func New(cfg Config) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if cfg.Level != "" {
		parsed, err := zapcore.ParseLevel(cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("failed to parse log level: %w", err)
		}
		level = parsed
	}

	var z zap.Config
	if cfg.Development {
		z = zap.NewDevelopmentConfig()
	} else {
		z = zap.NewProductionConfig()
	}
	z.Level = zap.NewAtomicLevelAt(level)
	if len(cfg.OutputPaths) > 0 {
		z.OutputPaths = cfg.OutputPaths
	}

	logger, err := z.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}

// OrNop returns logger, or a no-op logger when it is nil
func OrNop(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}
