package logger

import (
	"bytes"
	"os"
	"strings"
	"testing"
)

func TestInitAndLevelString(t *testing.T) {
	defer Init("info")
	Init("debug")
	if got := LevelString(); got != "debug" {
		t.Fatalf("LevelString() = %q, want %q", got, "debug")
	}
	Init("WARNING")
	if got := LevelString(); got != "warn" {
		t.Fatalf("LevelString() = %q, want %q", got, "warn")
	}
	Init(" Error ")
	if got := LevelString(); got != "error" {
		t.Fatalf("LevelString() = %q, want %q", got, "error")
	}
	Init("nonsense")
	if got := LevelString(); got != "info" {
		t.Fatalf("LevelString() = %q, want %q for unknown input", got, "info")
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stdout)
	defer Init("info")

	Init("warn")
	Debugf("debug-msg")
	Infof("info-msg")
	Warnf("warn-msg")
	Errorf("error-msg")

	out := buf.String()
	if strings.Contains(out, "debug-msg") || strings.Contains(out, "info-msg") {
		t.Fatalf("debug/info messages should be suppressed at warn level: %q", out)
	}
	if !strings.Contains(out, "[WARN] warn-msg") {
		t.Fatalf("warn message missing: %q", out)
	}
	if !strings.Contains(out, "[ERROR] error-msg") {
		t.Fatalf("error message missing: %q", out)
	}
}

func TestComponentPrefix(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stdout)
	Init("debug")
	defer Init("info")

	For("store").Infof("assigned %s", "alice-bob")
	if !strings.Contains(buf.String(), "[INFO] store: assigned alice-bob") {
		t.Fatalf("component prefix missing: %q", buf.String())
	}
}
