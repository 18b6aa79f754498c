package persist

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
)

// Logger wraps logrus with the startup/shutdown banner convention: every
// log file opens with a STARTUP line and closes with a SHUTDOWN line, so an
// operator scanning a log segment can tell a cleanly-closed engine apart
// from one that is still running or crashed.
type Logger struct {
	*logrus.Logger
	file *os.File
}

// NewFileLogger creates a Logger appending to filename, tagging every
// entry with release. debug raises the level to logrus.DebugLevel.
func NewFileLogger(release string, filename string, debug bool) (*Logger, error) {
	f, err := os.OpenFile(filename, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}

	base := logrus.New()
	base.SetOutput(f)
	base.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	level := logrus.InfoLevel
	if debug {
		level = logrus.DebugLevel
	}
	base.SetLevel(level)

	l := &Logger{Logger: base, file: f}
	l.WithField("release", release).Println("STARTUP: storage engine log opened")
	return l, nil
}

// Close writes the shutdown banner and closes the underlying file.
func (l *Logger) Close() error {
	l.Println("SHUTDOWN: storage engine log closed")
	return l.file.Close()
}

// Critical logs a fatal condition and panics. Unlike build.Severe, which
// only panics in a debug build, it panics in every build.
func (l *Logger) Critical(args ...interface{}) {
	l.Error(args...)
	panic(fmt.Sprint(args...))
}
