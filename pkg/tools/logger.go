package tools

import (
	"os"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	LoggerConsole = "console"
	LoggerJSON    = "json"
)

func SetupZapLogger(logLevel, loggerType string) (*zap.Logger, *zap.AtomicLevel, error) {
	level, err := zapcore.ParseLevel(logLevel)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "invalid log level '%s'", logLevel)
	}
	var encoder zapcore.Encoder
	switch loggerType {
	case LoggerConsole:
		encoder = zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	case LoggerJSON:
		encoder = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	default:
		return nil, nil, errors.Errorf("invalid logger type '%s'", loggerType)
	}
	atom := zap.NewAtomicLevelAt(level)
	core := zapcore.NewCore(encoder, zapcore.Lock(os.Stdout), atom)
	logger := zap.New(core)
	zap.ReplaceGlobals(logger)

	return logger, &atom, nil
}
