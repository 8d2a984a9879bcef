// Package logging contains the structured logger used by every control task.
package logging

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// Logger is the logging interface handed to every component.
type Logger interface {
	Debug(args ...interface{})
	Debugf(template string, args ...interface{})
	Debugw(msg string, keysAndValues ...interface{})
	Info(args ...interface{})
	Infof(template string, args ...interface{})
	Infow(msg string, keysAndValues ...interface{})
	Warn(args ...interface{})
	Warnf(template string, args ...interface{})
	Warnw(msg string, keysAndValues ...interface{})
	Error(args ...interface{})
	Errorf(template string, args ...interface{})
	Errorw(msg string, keysAndValues ...interface{})

	// Sublogger returns a logger named "<parent>.<subname>" sharing the parent's
	// appenders and fields. Its level starts at the parent's and is then its own.
	Sublogger(subname string) Logger
	// WithFields returns a logger that attaches the given key/value pairs to every entry.
	WithFields(keysAndValues ...interface{}) Logger
	SetLevel(level Level)
	// Sync flushes every appender.
	Sync() error
}

// NewLogger returns a logger that writes Info+ entries to stdout in UTC. Every
// entry carries the given key/value pairs, such as the id of the run.
func NewLogger(name string, keysAndValues ...interface{}) Logger {
	return &impl{
		name:      name,
		level:     NewAtomicLevelAt(INFO),
		inUTC:     true,
		appenders: []Appender{NewStdoutAppender()},
		fields:    toFields(keysAndValues),
	}
}

// NewTestLogger returns a logger that writes Debug+ entries to tb in local time.
func NewTestLogger(tb testing.TB) Logger {
	logger, _ := NewObservedTestLogger(tb)
	return logger
}

// NewObservedTestLogger is like NewTestLogger but also keeps every entry in memory
// so tests can assert on what was logged.
func NewObservedTestLogger(tb testing.TB) (Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zap.LevelEnablerFunc(zapcore.DebugLevel.Enabled))
	return &impl{
		level:     NewAtomicLevelAt(DEBUG),
		appenders: []Appender{NewTestAppender(tb), core},
	}, logs
}
