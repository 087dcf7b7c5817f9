// Package logging provides a small scoped logger threaded through the
// orchestrator and its stages instead of a process-global logger.
package logging

import (
	"fmt"
	"log"
	"os"
)

// Logger wraps the standard library logger with leveled helpers matching
// the plain-text, marker-prefixed style used throughout the pipeline.
type Logger struct {
	prefix string
	std    *log.Logger
}

// New returns a root logger writing to stderr.
func New(prefix string) *Logger {
	return &Logger{
		prefix: prefix,
		std:    log.New(os.Stderr, "", log.LstdFlags),
	}
}

// With returns a child logger with an additional prefix segment, letting a
// caller scope a logger to a phase or stage name without mutating globals.
func (l *Logger) With(segment string) *Logger {
	p := segment
	if l.prefix != "" {
		p = l.prefix + "." + segment
	}
	return &Logger{prefix: p, std: l.std}
}

func (l *Logger) line(level, format string, args ...any) string {
	msg := fmt.Sprintf(format, args...)
	if l.prefix != "" {
		return fmt.Sprintf("[%s] %s %s", l.prefix, level, msg)
	}
	return fmt.Sprintf("%s %s", level, msg)
}

func (l *Logger) Info(format string, args ...any) {
	l.std.Println(l.line("INFO", format, args...))
}

func (l *Logger) Warn(format string, args ...any) {
	l.std.Println(l.line("WARN", format, args...))
}

func (l *Logger) Error(format string, args ...any) {
	l.std.Println(l.line("ERROR", format, args...))
}

func (l *Logger) Success(format string, args ...any) {
	l.std.Println(l.line("OK", format, args...))
}
