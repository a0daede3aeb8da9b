// Package logging points logrus at a file. The terminal belongs to the TUI,
// so nothing may be written to stdout or stderr while it runs.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/mitchellh/go-homedir"
	"github.com/sirupsen/logrus"
)

// DefaultPath returns ~/.config/basstrainer/basstrainer.log
func DefaultPath() (string, error) {
	home, err := homedir.Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "basstrainer", "basstrainer.log"), nil
}

// Setup sends logrus output to path (the default path when empty) at Info,
// or Debug when debug is set. The returned closer flushes and closes the file.
func Setup(path string, debug bool) (io.Closer, error) {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	path, err := homedir.Expand(path)
	if err != nil {
		return nil, fmt.Errorf("expanding log path: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}

	Configure(f, debug)
	logrus.WithField("path", path).Info("logging started")
	return f, nil
}

// Configure sets the logrus output and level.
func Configure(w io.Writer, debug bool) {
	logrus.SetOutput(w)
	logrus.SetFormatter(&logrus.TextFormatter{
		DisableColors:   true,
		FullTimestamp:   true,
		TimestampFormat: "15:04:05.000",
	})
	if debug {
		logrus.SetLevel(logrus.DebugLevel)
	} else {
		logrus.SetLevel(logrus.InfoLevel)
	}
}

// Discard silences logging entirely, for commands that write to stdout.
func Discard() {
	logrus.SetOutput(io.Discard)
}
