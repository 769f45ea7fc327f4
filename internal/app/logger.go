package app

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/rook-computer/confetti/internal/config"
)

// Logger interface and implementations
type Logger interface {
	Infof(component string, format string, args ...interface{})
	Errorf(component string, format string, args ...interface{})
}

type NoopLogger struct{}

func (NoopLogger) Infof(component, format string, args ...interface{})  {}
func (NoopLogger) Errorf(component, format string, args ...interface{}) {}

// ZapLogger tags every line with the component as the logger name.
type ZapLogger struct {
	log *zap.SugaredLogger
}

// NewZapLogger builds a development-style console logger. When file is set,
// output goes there instead of stderr.
func NewZapLogger(level config.Level, file string) (*ZapLogger, error) {
	cfg := zap.NewDevelopmentConfig()
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	switch level {
	case config.LevelDebug:
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	case config.LevelError:
		cfg.Level = zap.NewAtomicLevelAt(zapcore.ErrorLevel)
	default:
		cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}
	cfg.EncoderConfig.StacktraceKey = ""
	cfg.EncoderConfig.CallerKey = ""
	if file != "" {
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		cfg.OutputPaths = []string{file}
		cfg.ErrorOutputPaths = []string{file}
	}

	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return &ZapLogger{log: logger.Sugar()}, nil
}

// NewZapLoggerFrom wraps an existing zap logger.
func NewZapLoggerFrom(logger *zap.Logger) *ZapLogger {
	return &ZapLogger{log: logger.Sugar()}
}

func (l *ZapLogger) Infof(component string, format string, args ...interface{}) {
	l.log.Named(component).Infof(format, args...)
}

func (l *ZapLogger) Errorf(component string, format string, args ...interface{}) {
	l.log.Named(component).Errorf(format, args...)
}

// Sync flushes buffered output.
func (l *ZapLogger) Sync() error { return l.log.Sync() }
