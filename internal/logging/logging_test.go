package logging

import (
	"os"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestNew_LevelsByVerbosity(t *testing.T) {
	tests := []struct {
		v    Verbosity
		want logrus.Level
	}{
		{Normal, logrus.InfoLevel},
		{Quiet, logrus.WarnLevel},
		{Verbose, logrus.DebugLevel},
	}
	for _, tt := range tests {
		entry := New(tt.v)
		if entry.Logger.GetLevel() != tt.want {
			t.Errorf("New(%v) level = %v, want %v", tt.v, entry.Logger.GetLevel(), tt.want)
		}
	}
}

func TestNew_WritesToStderr(t *testing.T) {
	entry := New(Normal)
	if entry.Logger.Out != os.Stderr {
		t.Error("New() did not configure stderr as the output")
	}
}
