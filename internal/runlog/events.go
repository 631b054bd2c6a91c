// Package runlog writes a run's append-only event log and its checkpoint
// and fix-attempt artifacts.
package runlog

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// EventLogName is the append-only structured event log inside a run
// directory, one JSON record per line.
const EventLogName = "events.jsonl"

// EventLog appends structured event records to a run's events.jsonl.
// Each record carries at least level, step, message, and timestamp.
type EventLog struct {
	lg   *zap.Logger
	file *os.File
}

// OpenEventLog opens (creating if needed) the event log for a run
// directory in append mode.
func OpenEventLog(runDir string) (*EventLog, error) {
	path := filepath.Join(runDir, EventLogName)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("open event log: %w", err)
	}

	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		MessageKey:     "message",
		EncodeTime:     zapcore.RFC3339NanoTimeEncoder,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
	}
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		zapcore.AddSync(f),
		zapcore.DebugLevel,
	)

	return &EventLog{lg: zap.New(core), file: f}, nil
}

// Info appends an info-level event for step.
func (l *EventLog) Info(step, msg string, fields ...zap.Field) {
	l.lg.Info(msg, withStep(step, fields)...)
}

// Warn appends a warn-level event for step.
func (l *EventLog) Warn(step, msg string, fields ...zap.Field) {
	l.lg.Warn(msg, withStep(step, fields)...)
}

// Error appends an error-level event for step.
func (l *EventLog) Error(step, msg string, fields ...zap.Field) {
	l.lg.Error(msg, withStep(step, fields)...)
}

// Close flushes and closes the underlying file.
func (l *EventLog) Close() error {
	_ = l.lg.Sync()
	return l.file.Close()
}

func withStep(step string, fields []zap.Field) []zap.Field {
	return append([]zap.Field{zap.String("step", step)}, fields...)
}
