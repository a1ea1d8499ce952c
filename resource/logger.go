package resource

import "go.uber.org/zap"

var logger = zap.NewNop()

// SetLogger sets the package logger.
func SetLogger(l *zap.Logger) {
	if l != nil {
		logger = l
	}
}
