// Package logging configures the process-wide zap logger.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a logger and installs it as the zap global. The returned
// function flushes buffered entries and restores the previous global.
func New(debug bool) (*zap.Logger, func(), error) {
	var cfg zap.Config
	if debug {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "ts"
		cfg.EncoderConfig.EncodeTime = zapcore.RFC3339NanoTimeEncoder
	}

	logger, err := cfg.Build()
	if err != nil {
		return nil, func() {}, fmt.Errorf("failed to build logger: %w", err)
	}

	restore := zap.ReplaceGlobals(logger)
	return logger, func() {
		_ = logger.Sync()
		restore()
	}, nil
}

// Must is New for command entry points that cannot continue without logging
func Must(debug bool) func() {
	_, cleanup, err := New(debug)
	if err != nil {
		panic(err)
	}
	return cleanup
}
