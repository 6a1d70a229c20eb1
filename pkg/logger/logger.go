package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
	"time"
)

// Leveled logger shared by the diary service.
// Init(level) once at startup; packages that want their lines tagged take a
// Component from For("name").

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

var (
	mu     sync.RWMutex
	logger *log.Logger = log.New(os.Stdout, "", 0)
	level  Level       = LevelInfo
)

// Init sets the global log level (case-insensitive: debug, info, warn, error, fatal).
// Call early during startup. Default level is Info.
func Init(l string) {
	mu.Lock()
	defer mu.Unlock()
	level = ParseLevel(l)
}

// ParseLevel maps a level name to a Level, defaulting to Info.
func ParseLevel(l string) Level {
	switch strings.ToLower(strings.TrimSpace(l)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	case "fatal":
		return LevelFatal
	}
	return LevelInfo
}

// SetOutput redirects all log output; tests use it to capture lines.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	logger = log.New(w, "", 0)
}

func header(lvl, component string) string {
	h := fmt.Sprintf("%s [%s] ", time.Now().Format(time.RFC3339), strings.ToUpper(lvl))
	if component != "" {
		h += component + ": "
	}
	return h
}

func shouldLog(l Level) bool {
	mu.RLock()
	defer mu.RUnlock()
	return l >= level
}

func output(l Level, lvl, component, format string, v ...interface{}) {
	if !shouldLog(l) {
		return
	}
	mu.RLock()
	lg := logger
	mu.RUnlock()
	lg.Printf(header(lvl, component)+format, v...)
}

func Debugf(format string, v ...interface{}) { output(LevelDebug, "debug", "", format, v...) }
func Infof(format string, v ...interface{})  { output(LevelInfo, "info", "", format, v...) }
func Warnf(format string, v ...interface{})  { output(LevelWarn, "warn", "", format, v...) }
func Errorf(format string, v ...interface{}) { output(LevelError, "error", "", format, v...) }

func Fatalf(format string, v ...interface{}) {
	output(LevelFatal, "fatal", "", format, v...)
	os.Exit(1)
}

// Component prefixes every line with its name.
type Component struct {
	name string
}

// For returns a logger tagged with name, e.g. "store" or "http".
func For(name string) Component { return Component{name: name} }

func (c Component) Debugf(format string, v ...interface{}) {
	output(LevelDebug, "debug", c.name, format, v...)
}

func (c Component) Infof(format string, v ...interface{}) {
	output(LevelInfo, "info", c.name, format, v...)
}

func (c Component) Warnf(format string, v ...interface{}) {
	output(LevelWarn, "warn", c.name, format, v...)
}

func (c Component) Errorf(format string, v ...interface{}) {
	output(LevelError, "error", c.name, format, v...)
}

// LevelString returns the current level as text.
func LevelString() string {
	mu.RLock()
	defer mu.RUnlock()
	switch level {
	case LevelDebug:
		return "debug"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	case LevelFatal:
		return "fatal"
	}
	return "info"
}
