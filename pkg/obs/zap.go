package obs

import "go.uber.org/zap"

// ZapLogger adapts a zap logger to the engine's Logger contract. Key/value
// pairs pass through as sugared fields.
type ZapLogger struct {
	sugar *zap.SugaredLogger
}

// NewZapLogger wraps logger; nil wraps a no-op zap logger.
func NewZapLogger(logger *zap.Logger) *ZapLogger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ZapLogger{sugar: logger.Sugar()}
}

// NewCLILogger builds a logger for command-line binaries: zap's production
// config, or the development config at debug level when verbose. Both write
// to stderr. The returned flush drains buffered entries and must run before
// exit.
func NewCLILogger(verbose bool) (*ZapLogger, func(), error) {
	cfg := zap.NewProductionConfig()
	if verbose {
		cfg = zap.NewDevelopmentConfig()
	}
	logger, err := cfg.Build()
	if err != nil {
		return nil, nil, err
	}
	flush := func() { _ = logger.Sync() }
	return NewZapLogger(logger), flush, nil
}

// Debug implements engine.Logger.
func (l *ZapLogger) Debug(msg string, args ...any) {
	l.sugar.Debugw(msg, args...)
}

// Info implements engine.Logger.
func (l *ZapLogger) Info(msg string, args ...any) {
	l.sugar.Infow(msg, args...)
}

// Warn implements engine.Logger.
func (l *ZapLogger) Warn(msg string, args ...any) {
	l.sugar.Warnw(msg, args...)
}

// Error implements engine.Logger.
func (l *ZapLogger) Error(msg string, args ...any) {
	l.sugar.Errorw(msg, args...)
}
