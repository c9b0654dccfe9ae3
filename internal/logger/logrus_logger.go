package logger

import (
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/muratoffalex/memebot/internal/config"
)

const timestampFormat = "2006-01-02 15:04:05"

type logrusLogger struct {
	entry logrus.Ext1FieldLogger
}

// NewLogrusLogger writes to stdout and, when enabled, to the configured log
// file as well.
func NewLogrusLogger(cfg *config.LoggingConfig) Logger {
	var out io.Writer = os.Stdout
	var fileErr error
	if cfg.WriteInFile && cfg.FilePath != "" {
		file, err := openLogFile(cfg.FilePath)
		if err == nil {
			out = io.MultiWriter(os.Stdout, file)
		} else {
			fileErr = err
		}
	}

	l := newLogrusLogger(cfg, out)
	if fileErr != nil {
		l.WithError(fileErr).WithField("path", cfg.FilePath).Warn("Failed to open log file, logging to stdout only")
	}
	return l
}

func newLogrusLogger(cfg *config.LoggingConfig, out io.Writer) Logger {
	l := logrus.New()
	l.SetOutput(out)
	if cfg.IsJSON() {
		l.SetFormatter(&logrus.JSONFormatter{TimestampFormat: timestampFormat})
	} else {
		l.SetFormatter(&logrus.TextFormatter{
			DisableQuote:    true,
			FullTimestamp:   true,
			TimestampFormat: timestampFormat,
		})
	}

	level, err := logrus.ParseLevel(cfg.Level())
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)
	if err != nil && cfg.Level() != "" {
		l.WithField("log_level", cfg.Level()).Warn("Unknown log level, falling back to info")
	}

	return &logrusLogger{entry: l}
}

func openLogFile(path string) (*os.File, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
}

func (l *logrusLogger) Trace(args ...any) { l.entry.Trace(args...) }
func (l *logrusLogger) Debug(args ...any) { l.entry.Debug(args...) }
func (l *logrusLogger) Info(args ...any)  { l.entry.Info(args...) }
func (l *logrusLogger) Warn(args ...any)  { l.entry.Warn(args...) }
func (l *logrusLogger) Error(args ...any) { l.entry.Error(args...) }
func (l *logrusLogger) Fatal(args ...any) { l.entry.Fatal(args...) }

func (l *logrusLogger) WithFields(fields Fields) Logger {
	return &logrusLogger{entry: l.entry.WithFields(logrus.Fields(fields))}
}

func (l *logrusLogger) WithField(key string, value any) Logger {
	return &logrusLogger{entry: l.entry.WithField(key, value)}
}

func (l *logrusLogger) WithError(err error) Logger {
	return &logrusLogger{entry: l.entry.WithError(err)}
}
