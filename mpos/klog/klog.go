// Package klog is the kernel's leveled line logger.
//
// Lines go to a hal.Logger sink and, optionally, to any number of tee
// functions (the console). The zero-value and nil *Logger drop everything.
package klog

import (
	"fmt"
	"strings"
	"sync"

	"kos/hal"
)

// Level orders log verbosity. Higher levels include all lower ones.
type Level uint8

const (
	Off Level = iota
	Error
	Warn
	Info
	Debug
	Trace
)

func (l Level) String() string {
	switch l {
	case Off:
		return "OFF"
	case Error:
		return "ERROR"
	case Warn:
		return "WARN"
	case Info:
		return "INFO"
	case Debug:
		return "DEBUG"
	case Trace:
		return "TRACE"
	default:
		return "UNKNOWN"
	}
}

// Parse maps a level name (case-insensitive) to a Level.
// The empty string parses as Info.
func Parse(s string) (Level, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "":
		return Info, true
	case "OFF":
		return Off, true
	case "ERROR":
		return Error, true
	case "WARN", "WARNING":
		return Warn, true
	case "INFO":
		return Info, true
	case "DEBUG":
		return Debug, true
	case "TRACE":
		return Trace, true
	default:
		return Off, false
	}
}

// Logger writes "[kernel] LEVEL msg" lines.
type Logger struct {
	mu    sync.Mutex
	out   hal.Logger
	level Level
	tees  []func(line string)
}

// New returns a logger writing to out at the given level.
func New(out hal.Logger, level Level) *Logger {
	return &Logger{out: out, level: level}
}

// SetLevel changes the verbosity.
func (l *Logger) SetLevel(level Level) {
	if l == nil {
		return
	}
	l.mu.Lock()
	l.level = level
	l.mu.Unlock()
}

// Level returns the current verbosity.
func (l *Logger) Level() Level {
	if l == nil {
		return Off
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.level
}

// Tee registers fn to receive every emitted line.
func (l *Logger) Tee(fn func(line string)) {
	if l == nil || fn == nil {
		return
	}
	l.mu.Lock()
	l.tees = append(l.tees, fn)
	l.mu.Unlock()
}

// Enabled reports whether lines at lv are emitted.
func (l *Logger) Enabled(lv Level) bool {
	if l == nil || lv == Off {
		return false
	}
	return lv <= l.Level()
}

func (l *Logger) Errorf(format string, args ...any) { l.logf(Error, format, args...) }
func (l *Logger) Warnf(format string, args ...any)  { l.logf(Warn, format, args...) }
func (l *Logger) Infof(format string, args ...any)  { l.logf(Info, format, args...) }
func (l *Logger) Debugf(format string, args ...any) { l.logf(Debug, format, args...) }
func (l *Logger) Tracef(format string, args ...any) { l.logf(Trace, format, args...) }

func (l *Logger) logf(lv Level, format string, args ...any) {
	if !l.Enabled(lv) {
		return
	}
	line := fmt.Sprintf("[kernel] %-5s %s", lv, fmt.Sprintf(format, args...))

	l.mu.Lock()
	out := l.out
	tees := l.tees
	l.mu.Unlock()

	if out != nil {
		out.WriteLineString(line)
	}
	for _, fn := range tees {
		fn(line)
	}
}
