package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var debugFileSeq atomic.Int64

// DebugFile is a debug-level log file scoped to one simulation run. Files
// are named pmsim-debug-N.log with N counting up within the process.
type DebugFile struct {
	path   string
	writer *lumberjack.Logger
	logger *zap.Logger
}

// OpenDebugFile creates the next debug file in dir.
func OpenDebugFile(dir string) (*DebugFile, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("debug log: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("pmsim-debug-%d.log", debugFileSeq.Add(1)))
	w := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    64,
		MaxBackups: 1,
	}
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
		zapcore.AddSync(w),
		zap.DebugLevel,
	)
	return &DebugFile{path: path, writer: w, logger: zap.New(core)}, nil
}

func (d *DebugFile) Path() string { return d.path }

// Tee returns a logger writing to base and to the file.
func (d *DebugFile) Tee(base *zap.Logger) *zap.Logger {
	if base == nil {
		return d.logger
	}
	return zap.New(zapcore.NewTee(base.Core(), d.logger.Core()))
}

func (d *DebugFile) Close() error {
	_ = d.logger.Sync()
	return d.writer.Close()
}
