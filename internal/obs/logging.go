// Package obs holds the process-wide logger and Prometheus collectors.
package obs

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Logger is the structured logger shared by every package.
var Logger = newLogger(os.Stdout, logrus.InfoLevel)

// Init replaces Logger with a JSON logger at the given level. Unknown levels fall back to info.
func Init(level string) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	Logger = newLogger(os.Stdout, lvl)
}

// Discard silences logging; used by tests.
func Discard() {
	Logger = newLogger(io.Discard, logrus.PanicLevel)
}

// Component returns an entry tagged with the component name.
func Component(name string) *logrus.Entry {
	return Logger.WithField("component", name)
}

func newLogger(w io.Writer, lvl logrus.Level) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(w)
	l.SetLevel(lvl)
	l.SetFormatter(&logrus.JSONFormatter{})
	return l
}
