// Package logger is the process-wide leveled logger. Output goes to stderr so
// the stdio transport keeps stdout for protocol frames.
package logger

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

var log = newLogger(os.Stderr)

func newLogger(out io.Writer) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(out)
	l.SetLevel(logrus.InfoLevel)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	return l
}

// SetLevel parses and applies a level name (debug, info, warn, error).
// Unknown names leave the current level untouched and return the parse error.
func SetLevel(level string) error {
	lvl, err := logrus.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return err
	}
	log.SetLevel(lvl)
	return nil
}

// SetVerbose switches debug output on or off.
func SetVerbose(verbose bool) {
	if verbose {
		log.SetLevel(logrus.DebugLevel)
		return
	}
	log.SetLevel(logrus.InfoLevel)
}

// SetOutput redirects log output, mostly for tests.
func SetOutput(out io.Writer) {
	log.SetOutput(out)
}

// IsDebug reports whether debug output is enabled.
func IsDebug() bool {
	return log.IsLevelEnabled(logrus.DebugLevel)
}

// WithFields returns an entry carrying structured fields.
func WithFields(fields map[string]interface{}) *logrus.Entry {
	return log.WithFields(logrus.Fields(fields))
}

func Debugf(format string, args ...interface{}) { log.Debugf(format, args...) }

func Infof(format string, args ...interface{}) { log.Infof(format, args...) }

func Warnf(format string, args ...interface{}) { log.Warnf(format, args...) }

func Errorf(format string, args ...interface{}) { log.Errorf(format, args...) }
