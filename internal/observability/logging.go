// Package observability builds the service's structured logger and
// Prometheus metrics registry, the two ambient concerns threaded through
// every other component by constructor injection.
package observability

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger builds a *zap.Logger from the logging.level/logging.profile
// config keys. profile "CONSOLE" selects a human-readable development
// encoder; anything else (including the default "STRUCTURED") selects
// JSON production output.
func NewLogger(level, profile string) (*zap.Logger, error) {
	var cfg zap.Config
	if profile == "CONSOLE" {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		cfg = zap.NewProductionConfig()
	}

	zapLevel, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("observability: parse log level %q: %w", level, err)
	}
	cfg.Level = zap.NewAtomicLevelAt(zapLevel)

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("observability: build logger: %w", err)
	}
	return logger, nil
}
