// Package testutil provides small shared helpers for unit tests.
package testutil

import (
	"io"

	"github.com/sirupsen/logrus"
)

// NewTestLogger returns a logger that discards output, keeping test output
// readable. Raise the level locally when debugging a test.
func NewTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	return logger
}
