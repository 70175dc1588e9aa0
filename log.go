package pff

import (
	"os"

	"github.com/sirupsen/logrus"
)

// defaultLogger returns a quiet, error-level stderr logger: callers may
// inject their own logrus.FieldLogger via Options, otherwise this is used.
func defaultLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetLevel(logrus.ErrorLevel)
	return l
}
