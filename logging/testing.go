package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

type testAppender struct {
	tb testing.TB
}

// NewTestAppender returns an appender that logs through tb.Log, so each line is
// reported under the test that wrote it, even for parallel tests.
func NewTestAppender(tb testing.TB) Appender {
	return testAppender{tb}
}

func (tapp testAppender) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	// Helper keeps tb.Log from prefixing every line with this file.
	tapp.tb.Helper()
	line, err := formatLine(entry, fields)
	tapp.tb.Log(line)
	return err
}

// Sync is a no-op.
func (tapp testAppender) Sync() error {
	return nil
}
