// Package logging configures the process-wide logrus logger. Console
// output is optional because the interactive TUI owns the terminal
// during a run; the rotated file under the state directory is always
// written.
package logging

import (
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

var log *logrus.Logger

// Options controls where and how verbosely the logger writes.
type Options struct {
	// Level is a logrus level name. Unknown names fall back to info.
	Level string

	// FilePath is the rotated log file. Empty disables file output.
	FilePath string

	// Console mirrors log lines to stderr. Disabled while the TUI is
	// drawing, otherwise log lines tear the frames apart.
	Console bool
}

// Init builds the shared logger. Safe to call once at startup before
// any goroutine logs.
func Init(opts Options) error {
	log = logrus.New()

	level, err := logrus.ParseLevel(opts.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	var writers []io.Writer
	if opts.Console {
		writers = append(writers, os.Stderr)
	}
	if opts.FilePath != "" {
		if err := os.MkdirAll(filepath.Dir(opts.FilePath), 0o755); err != nil {
			return err
		}
		writers = append(writers, &lumberjack.Logger{
			Filename:   opts.FilePath,
			MaxSize:    10,
			MaxBackups: 5,
			MaxAge:     30,
			Compress:   true,
		})
	}
	if len(writers) == 0 {
		writers = append(writers, io.Discard)
	}
	log.SetOutput(io.MultiWriter(writers...))
	return nil
}

// L returns the shared logger, initializing a plain one when Init has
// not run, so library code can log unconditionally.
func L() *logrus.Logger {
	if log == nil {
		log = logrus.New()
	}
	return log
}

// WithField returns an entry tagged with a single field.
func WithField(key string, value any) *logrus.Entry {
	return L().WithField(key, value)
}

// WithFields returns an entry tagged with several fields.
func WithFields(fields logrus.Fields) *logrus.Entry {
	return L().WithFields(fields)
}
