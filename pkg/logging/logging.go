// Package logging builds the zap loggers used across tourhub.
package logging

import (
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options selects the logger's sinks and format.
type Options struct {
	// Level is one of "debug", "info", "warn", "error". Unknown values mean info.
	Level string
	// JSON selects JSON output instead of the console encoder.
	JSON bool
	// Mirror, when set, also receives every entry in console format.
	Mirror io.Writer
}

// ParseLevel parses a level name, falling back to info.
func ParseLevel(level string) zapcore.Level {
	lvl, err := zapcore.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		return zapcore.InfoLevel
	}
	return lvl
}

// New builds a logger writing to w.
func New(w io.Writer, opts Options) *zap.Logger {
	level := zap.NewAtomicLevelAt(ParseLevel(opts.Level))

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "time"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var enc zapcore.Encoder
	if opts.JSON {
		enc = zapcore.NewJSONEncoder(encCfg)
	} else {
		enc = zapcore.NewConsoleEncoder(encCfg)
	}
	core := zapcore.NewCore(enc, zapcore.AddSync(w), level)

	if opts.Mirror != nil {
		mirrorCfg := zap.NewDevelopmentEncoderConfig()
		mirrorCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		core = zapcore.NewTee(core, zapcore.NewCore(zapcore.NewConsoleEncoder(mirrorCfg), zapcore.AddSync(opts.Mirror), level))
	}
	return zap.New(core, zap.AddCaller())
}

// OpenFile opens path for appending log entries, creating it if needed.
func OpenFile(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600) // #nosec G304
}
