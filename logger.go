package ormlite

import (
	"fmt"

	"go.uber.org/zap"
)

type LogLevel int

const (
	LogLevelDev LogLevel = iota
	LogLevelProd
	LogLevelNone
)

// LogLevelByName resolves the names accepted in configuration files.
func LogLevelByName(name string) LogLevel {
	switch name {
	case "prod", "production":
		return LogLevelProd
	case "none", "off", "":
		return LogLevelNone
	}
	return LogLevelDev
}

type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

type zapLogger struct {
	l *zap.SugaredLogger
}

func newZapLogger(env LogLevel) (*zapLogger, error) {
	switch env {
	case LogLevelDev:
		l, err := zap.NewDevelopmentConfig().Build()
		if err != nil {
			return nil, err
		}
		return &zapLogger{l.Sugar()}, nil
	case LogLevelProd:
		l, err := zap.NewProductionConfig().Build()
		if err != nil {
			return nil, err
		}
		return &zapLogger{l.Sugar()}, nil
	case LogLevelNone:
		return &zapLogger{zap.NewNop().Sugar()}, nil
	}
	return nil, fmt.Errorf("log level should be one of LogLevelDev, LogLevelProd or LogLevelNone")
}

var nopLogger Logger = &zapLogger{zap.NewNop().Sugar()}

// NewLogger wraps a zap logger the caller already configured.
func NewLogger(l *zap.Logger) Logger {
	return &zapLogger{l.Sugar()}
}

func (z *zapLogger) Debugf(format string, args ...any) {
	format = fmt.Sprintf("[DEBUG] %s", format)
	z.l.Debugf(format, args...)
}
func (z *zapLogger) Warnf(format string, args ...any) {
	format = fmt.Sprintf("[WARNF] %s", format)
	z.l.Warnf(format, args...)

}
func (z *zapLogger) Errorf(format string, args ...any) {
	format = fmt.Sprintf("[ERROR] %s", format)
	z.l.Errorf(format, args...)
}

func (z *zapLogger) Infof(format string, args ...any) {
	format = fmt.Sprintf("[INFO] %s", format)
	z.l.Infof(format, args...)
}
