// Package logging builds the zap logger used across the server and carries
// it, with the request id, through request contexts.
package logging

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config selects the log level, the encoder and an optional GELF sink.
type Config struct {
	Level       string
	Development bool
	GelfAddr    string
	Service     string
}

// New builds a logger writing to stderr and, when GelfAddr is set, teeing
// every entry to a GELF UDP endpoint. The returned func flushes and closes
// the sinks.
func New(cfg Config) (*zap.Logger, func(), error) {
	level := zapcore.InfoLevel
	if cfg.Level != "" {
		if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
			return nil, nil, fmt.Errorf("logging: invalid level %q: %w", cfg.Level, err)
		}
	}

	var encoder zapcore.Encoder
	if cfg.Development {
		encCfg := zap.NewDevelopmentEncoderConfig()
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encCfg)
	} else {
		encoder = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	}

	cores := []zapcore.Core{
		zapcore.NewCore(encoder, zapcore.Lock(os.Stderr), level),
	}

	closers := []func(){}
	if cfg.GelfAddr != "" {
		w, err := NewGelfWriter(cfg.GelfAddr, cfg.Service)
		if err != nil {
			return nil, nil, fmt.Errorf("logging: gelf: %w", err)
		}
		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(gelfEncoderConfig()),
			w,
			level,
		))
		closers = append(closers, func() { _ = w.Close() })
	}

	logger := zap.New(zapcore.NewTee(cores...), zap.AddCaller())
	if cfg.Service != "" {
		logger = logger.With(zap.String("service", cfg.Service))
	}

	cleanup := func() {
		_ = logger.Sync()
		for _, c := range closers {
			c()
		}
	}
	return logger, cleanup, nil
}

// gelfEncoderConfig produces one flat JSON object per entry with the keys
// the GELF writer maps onto GELF fields.
func gelfEncoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		MessageKey:     "msg",
		CallerKey:      "caller",
		StacktraceKey:  "stacktrace",
		LineEnding:     "\n",
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.EpochTimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
}
