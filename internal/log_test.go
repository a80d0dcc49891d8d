package internal

import (
	"bytes"
	"log"
	"strings"
	"testing"
)

func TestLogger_LevelsAndComponent(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(LogLevelInfo).With("CWMH")
	l.SetOutput(log.New(&buf, "", 0))

	l.Info("sample %d / %d", 500, 1000)
	l.Debug("hidden")

	out := buf.String()
	if !strings.Contains(out, "[INFO] [CWMH] sample 500 / 1000") {
		t.Errorf("unexpected output %q", out)
	}
	if strings.Contains(out, "hidden") {
		t.Error("debug line should be filtered at INFO")
	}
}

func TestParseLogLevel(t *testing.T) {
	if ParseLogLevel("debug") != LogLevelDebug || ParseLogLevel("") != LogLevelInfo || ParseLogLevel("ERROR") != LogLevelError {
		t.Error("unexpected level mapping")
	}
}
