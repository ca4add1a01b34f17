package logger

import (
	"os"

	"github.com/genaker/agento/internal/config"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var logger *zap.Logger

// NewLogger builds a logger for the configured environment. Every variant
// writes to stderr so command output on stdout stays machine readable.
func NewLogger(cfg *config.Config) (*zap.Logger, error) {
	switch cfg.Environment {
	case "prod":
		zc := zap.NewProductionConfig()
		if cfg.Verbose {
			zc.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
		}
		return zc.Build()
	case "test":
		return newExampleLogger(zapcore.Lock(os.Stderr)), nil
	default:
		zc := zap.NewDevelopmentConfig()
		if !cfg.Verbose {
			zc.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
		}
		return zc.Build()
	}
}

func InitLogger(cfg *config.Config) (*zap.Logger, error) {
	var err error
	logger, err = NewLogger(cfg)
	if err != nil {
		return nil, err
	}

	return logger, nil
}

func GetLogger() *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}

	return logger
}

// newExampleLogger mirrors zap.NewExample, which is hard-wired to stdout.
func newExampleLogger(ws zapcore.WriteSyncer) *zap.Logger {
	encoderCfg := zapcore.EncoderConfig{
		MessageKey:     "msg",
		LevelKey:       "level",
		NameKey:        "logger",
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
	}
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderCfg), ws, zap.DebugLevel)
	return zap.New(core)
}
