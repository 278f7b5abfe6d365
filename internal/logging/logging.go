// Package logging builds the zap loggers used by the servant command and
// its workers.
package logging

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// EnvLevel overrides the configured level when set
const EnvLevel = "SERVANT_LOG_LEVEL"

// Config describes where and how much to log
type Config struct {
	Level      string
	File       string // rotated by size, empty for console only
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int

	// Console receives the console copy, stderr when nil
	Console io.Writer
}

// New builds a JSON logger writing to the console and, when File is set, to
// a rotating log file.
func New(cfg Config) (*zap.Logger, error) {
	level, err := Level(cfg.Level)
	if err != nil {
		return nil, err
	}

	enc := zap.NewProductionEncoderConfig()
	enc.EncodeTime = zapcore.ISO8601TimeEncoder

	var console zapcore.WriteSyncer = zapcore.Lock(os.Stderr)
	if cfg.Console != nil {
		console = zapcore.AddSync(cfg.Console)
	}

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewJSONEncoder(enc), console, level),
	}
	if cfg.File != "" {
		w := zapcore.AddSync(&lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB, // MB
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays, // days
		})
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(enc), w, level))
	}

	return zap.New(zapcore.NewTee(cores...)), nil
}

// Level resolves the effective level: SERVANT_LOG_LEVEL, then configured,
// then info.
func Level(configured string) (zapcore.Level, error) {
	if v := os.Getenv(EnvLevel); v != "" {
		configured = v
	}
	if configured == "" {
		return zapcore.InfoLevel, nil
	}
	return zapcore.ParseLevel(configured)
}
