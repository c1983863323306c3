// Package logging builds the structured logger shared by all uvman
// components. Events are appended as JSON lines to a user-scoped log file;
// warnings and errors are mirrored to stderr so interactive runs surface
// failures without tailing the file.
package logging

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New opens (creating parent directories as needed) the append-only log file
// at path and returns a logger writing JSON to it. The console core logs at
// WarnLevel, or InfoLevel when verbose is set.
func New(path string, verbose bool) (*zap.Logger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	fileEnc := zap.NewProductionEncoderConfig()
	fileEnc.TimeKey = "ts"
	fileEnc.EncodeTime = zapcore.ISO8601TimeEncoder

	consoleEnc := zap.NewDevelopmentEncoderConfig()
	consoleEnc.TimeKey = ""

	consoleLevel := zapcore.WarnLevel
	if verbose {
		consoleLevel = zapcore.InfoLevel
	}

	core := zapcore.NewTee(
		zapcore.NewCore(zapcore.NewJSONEncoder(fileEnc), zapcore.Lock(file), zapcore.DebugLevel),
		zapcore.NewCore(zapcore.NewConsoleEncoder(consoleEnc), zapcore.Lock(os.Stderr), consoleLevel),
	)

	return zap.New(core), nil
}

// NewNop returns a logger that discards everything. Used by tests.
func NewNop() *zap.Logger {
	return zap.NewNop()
}
