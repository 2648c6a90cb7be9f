// Package logging wires up the logrus.Entry shared by every s3m component.
//
// Usage:
//
//	log := logging.New(logging.Quiet)
//	log.WithField("bucket", bucket).Info("upload complete")
package logging

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Verbosity selects the logrus level New configures.
type Verbosity int

const (
	// Normal logs Info and above. This is the default when neither
	// --quiet nor --verbose is given.
	Normal Verbosity = iota
	// Quiet suppresses everything but Warn and above, for --quiet.
	Quiet
	// Verbose enables Debug output, for --verbose.
	Verbose
)

// New builds a logrus.Entry writing text-formatted lines to stderr, so
// stdout stays free for data a command may pipe (e.g. `s3m get ... -`).
// It never receives credentials, request signatures, or presigned URLs;
// callers are responsible for keeping those out of logged fields.
func New(v Verbosity) *logrus.Entry {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "15:04:05",
	})
	log.SetOutput(os.Stderr)
	log.SetLevel(levelFor(v))
	return logrus.NewEntry(log)
}

func levelFor(v Verbosity) logrus.Level {
	switch v {
	case Quiet:
		return logrus.WarnLevel
	case Verbose:
		return logrus.DebugLevel
	default:
		return logrus.InfoLevel
	}
}
