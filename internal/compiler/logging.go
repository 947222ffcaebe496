package compiler

import (
	"time"

	"go.uber.org/zap"
)

// NewLogger builds the structured logger every compilation stage writes
// through. verbose selects zap's development encoder (human-readable,
// colorized level names); otherwise production JSON is used so the
// driver's logs are easy to pipe into log aggregation.
func NewLogger(verbose bool) *zap.Logger {
	var logger *zap.Logger
	var err error
	if verbose {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		// zap's own constructors only fail on a broken encoder config,
		// which never happens with the built-in presets above.
		logger = zap.NewNop()
	}
	return logger
}

// stageTimer logs how long a single pipeline stage took, the way a build
// tool reports its phase breakdown.
func stageTimer(logger *zap.Logger, stage string) func() {
	start := time.Now()
	return func() {
		logger.Debug("stage complete", zap.String("stage", stage), zap.Duration("elapsed", time.Since(start)))
	}
}
