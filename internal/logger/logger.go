// Package logger configures the diagnostic logger. User-facing status lines
// are printed with fatih/color by the commands; this logger carries the
// debug trail (requests, skipped stages, tool diagnostics).
package logger

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config selects the level and an optional rotating log file.
type Config struct {
	Level string
	File  string
}

// Rotation limits for the log file.
const (
	maxSizeMB  = 10
	maxBackups = 3
)

var base = newDiscard()

func newDiscard() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// Init replaces the package logger. Output goes to stderr and, when
// cfg.File is set, to a lumberjack-rotated file as well.
func Init(cfg Config) error {
	level := cfg.Level
	if level == "" {
		level = "warn"
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level: %v", err)
	}

	l := logrus.New()
	l.SetLevel(lvl)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
		PadLevelText:    true,
	})

	var out io.Writer = os.Stderr
	if cfg.File != "" {
		out = io.MultiWriter(os.Stderr, &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    maxSizeMB,
			MaxBackups: maxBackups,
		})
	}
	l.SetOutput(out)

	base = l
	For("logger").WithField("file", cfg.File).Debugf("log level set to %s", lvl)
	return nil
}

// For returns an entry tagged with the component name.
func For(component string) *logrus.Entry {
	return base.WithField("component", component)
}

// SetOutput redirects the package logger, mainly for tests.
func SetOutput(w io.Writer) {
	base.SetOutput(w)
}
