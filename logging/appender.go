package logging

import (
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"go.uber.org/zap/zapcore"
)

// DefaultTimeFormatStr is the time layout of every appender line.
const DefaultTimeFormatStr = "2006-01-02T15:04:05.000Z0700"

// Appender is an output for log entries. It is a subset of zapcore.Core, so a zap
// observer core can be used as an appender directly.
type Appender interface {
	Write(zapcore.Entry, []zapcore.Field) error
	// Sync flushes anything buffered by Write.
	Sync() error
}

// ConsoleAppender writes tab separated lines for people to read.
type ConsoleAppender struct {
	io.Writer
}

// NewStdoutAppender returns an appender writing to stdout.
func NewStdoutAppender() ConsoleAppender {
	return ConsoleAppender{os.Stdout}
}

// NewWriterAppender returns an appender writing to w.
func NewWriterAppender(w io.Writer) ConsoleAppender {
	return ConsoleAppender{w}
}

func (appender ConsoleAppender) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	line, err := formatLine(entry, fields)
	if _, werr := fmt.Fprintln(appender.Writer, line); werr != nil {
		return werr
	}
	return err
}

// Sync is a no-op.
func (appender ConsoleAppender) Sync() error {
	return nil
}

// formatLine renders time, level, logger name, caller and message separated by
// tabs, then the fields as one json object. When the fields cannot be encoded the
// line is returned without them along with the error.
func formatLine(entry zapcore.Entry, fields []zapcore.Field) (string, error) {
	parts := []string{entry.Time.Format(DefaultTimeFormatStr), strings.ToUpper(entry.Level.String())}
	if entry.LoggerName != "" {
		parts = append(parts, entry.LoggerName)
	}
	if entry.Caller.Defined {
		parts = append(parts, shortCaller(entry.Caller))
	}
	parts = append(parts, entry.Message)
	if len(fields) == 0 {
		return strings.Join(parts, "\t"), nil
	}

	// an empty entry keeps time, level and message out of the json
	enc := zapcore.NewJSONEncoder(zapcore.EncoderConfig{SkipLineEnding: true})
	buf, err := enc.EncodeEntry(zapcore.Entry{}, fields)
	if err != nil {
		return strings.Join(parts, "\t"), err
	}
	defer buf.Free()
	return strings.Join(append(parts, buf.String()), "\t"), nil
}

// shortCaller keeps the last directory and the file name, as in "observer/observer.go:120".
func shortCaller(c zapcore.EntryCaller) string {
	dir, file := path.Split(c.File)
	return fmt.Sprintf("%s:%d", path.Join(path.Base(dir), file), c.Line)
}
