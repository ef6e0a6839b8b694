// Package logging builds the zap logger shared by every component.
package logging

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options selects level, encoding and output of the logger.
type Options struct {
	Level   string // debug, info, warn, error
	Format  string // console, json
	File    string // optional, in addition to stderr
	Verbose bool   // forces debug
	// NoStderr keeps the terminal clean for full-screen UIs. Without a File
	// the logger discards everything.
	NoStderr bool
}

// New builds a logger from opts, starting from zap's production config.
func New(opts Options) (*zap.Logger, error) {
	config := zap.NewProductionConfig()

	level := zapcore.InfoLevel
	if opts.Level != "" {
		if err := level.UnmarshalText([]byte(strings.ToLower(opts.Level))); err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
		}
	}
	if opts.Verbose {
		level = zapcore.DebugLevel
	}
	config.Level = zap.NewAtomicLevelAt(level)

	switch opts.Format {
	case "", "console":
		config.Encoding = "console"
		config.EncoderConfig = zap.NewDevelopmentEncoderConfig()
	case "json":
		config.Encoding = "json"
	default:
		return nil, fmt.Errorf("invalid log format %q", opts.Format)
	}

	config.OutputPaths = outputPaths(opts)
	if len(config.OutputPaths) == 0 {
		return zap.NewNop(), nil
	}

	logger, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}

func outputPaths(opts Options) []string {
	var paths []string
	if !opts.NoStderr {
		paths = append(paths, "stderr")
	}
	if opts.File != "" {
		paths = append(paths, opts.File)
	}
	return paths
}
