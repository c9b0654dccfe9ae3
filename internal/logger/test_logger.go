package logger

import (
	"fmt"
	"maps"
	"sync"
)

// TestLogger records entries in memory. Loggers derived with WithField(s)
// share the same record.
type TestLogger struct {
	record *testRecord
	fields Fields
}

type testRecord struct {
	mu      sync.Mutex
	entries []TestLogEntry
}

type TestLogEntry struct {
	Level   string
	Message string
	Fields  Fields
}

func NewTestLogger() *TestLogger {
	return &TestLogger{record: &testRecord{}, fields: Fields{}}
}

func (l *TestLogger) log(level string, args []any) {
	l.record.mu.Lock()
	defer l.record.mu.Unlock()
	l.record.entries = append(l.record.entries, TestLogEntry{
		Level:   level,
		Message: fmt.Sprint(args...),
		Fields:  maps.Clone(l.fields),
	})
}

func (l *TestLogger) Trace(args ...any) { l.log("trace", args) }
func (l *TestLogger) Debug(args ...any) { l.log("debug", args) }
func (l *TestLogger) Info(args ...any)  { l.log("info", args) }
func (l *TestLogger) Warn(args ...any)  { l.log("warn", args) }
func (l *TestLogger) Error(args ...any) { l.log("error", args) }
func (l *TestLogger) Fatal(args ...any) { l.log("fatal", args) }

func (l *TestLogger) WithFields(fields Fields) Logger {
	merged := maps.Clone(l.fields)
	maps.Copy(merged, fields)
	return &TestLogger{record: l.record, fields: merged}
}

func (l *TestLogger) WithField(key string, value any) Logger {
	return l.WithFields(Fields{key: value})
}

func (l *TestLogger) WithError(err error) Logger {
	return l.WithFields(Fields{"error": err})
}

func (l *TestLogger) Entries() []TestLogEntry {
	l.record.mu.Lock()
	defer l.record.mu.Unlock()
	return append([]TestLogEntry(nil), l.record.entries...)
}

func (l *TestLogger) HasEntry(level, message string) bool {
	_, ok := l.FindEntry(level, message)
	return ok
}

func (l *TestLogger) FindEntry(level, message string) (TestLogEntry, bool) {
	for _, e := range l.Entries() {
		if e.Level == level && e.Message == message {
			return e, true
		}
	}
	return TestLogEntry{}, false
}

func (l *TestLogger) CountLevel(level string) int {
	n := 0
	for _, e := range l.Entries() {
		if e.Level == level {
			n++
		}
	}
	return n
}
