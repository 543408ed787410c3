package logging

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
)

// Level controls which messages a Logger emits
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	}
	return "UNKNOWN"
}

// Field is a single structured key/value attached to a log line
type Field struct {
	values map[string]interface{}
}

// WithField attaches one key/value pair to a log call
func WithField(key string, value interface{}) Field {
	return Field{values: map[string]interface{}{key: value}}
}

// WithFields attaches multiple key/value pairs to a log call
func WithFields(values map[string]interface{}) Field {
	return Field{values: values}
}

// Logger is a minimal leveled logger writing key=value lines to stderr
type Logger struct {
	mu    sync.Mutex
	level Level
}

// New creates a logger that emits messages at or above level
func New(level Level) *Logger {
	return &Logger{level: level}
}

func (l *Logger) Debug(msg string, fields ...Field) { l.log(LevelDebug, msg, fields) }
func (l *Logger) Info(msg string, fields ...Field)  { l.log(LevelInfo, msg, fields) }
func (l *Logger) Warn(msg string, fields ...Field)  { l.log(LevelWarn, msg, fields) }
func (l *Logger) Error(msg string, fields ...Field) { l.log(LevelError, msg, fields) }

func (l *Logger) log(level Level, msg string, fields []Field) {
	if level < l.level {
		return
	}

	merged := make(map[string]interface{})
	for _, f := range fields {
		for k, v := range f.values {
			merged[k] = v
		}
	}

	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	fmt.Fprintf(&b, "%s %-5s %s", time.Now().Format(time.RFC3339), level, msg)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, merged[k])
	}

	l.mu.Lock()
	fmt.Fprintln(os.Stderr, b.String())
	l.mu.Unlock()
}
