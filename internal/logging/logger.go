package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

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
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "INFO"
	}
}

// ParseLevel maps a case-insensitive level name to a Level, defaulting to info.
func ParseLevel(s string) Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return LevelDebug
	case "WARN", "WARNING":
		return LevelWarn
	case "ERROR":
		return LevelError
	default:
		return LevelInfo
	}
}

// Options configures a Logger.
type Options struct {
	// Console receives every line; nil means os.Stderr.
	Console io.Writer
	// File, when set, also writes to a size-rotated log file.
	File       string
	MaxSizeMB  int
	MaxBackups int
	Level      Level
}

// Logger writes "[timestamp] [LEVEL] message" lines. A nil *Logger discards
// everything, so components can take one without checking.
type Logger struct {
	mu      sync.Mutex
	out     *log.Logger
	file    *lumberjack.Logger
	level   Level
	enabled bool
	now     func() time.Time
}

func New(opts Options) *Logger {
	console := opts.Console
	if console == nil {
		console = os.Stderr
	}
	w := console
	var file *lumberjack.Logger
	if strings.TrimSpace(opts.File) != "" {
		maxSize := opts.MaxSizeMB
		if maxSize <= 0 {
			maxSize = 15
		}
		backups := opts.MaxBackups
		if backups <= 0 {
			backups = 3
		}
		file = &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    maxSize, // megabytes
			MaxBackups: backups,
			MaxAge:     28, // days
		}
		w = io.MultiWriter(console, file)
	}
	return &Logger{
		out:     log.New(w, "", 0),
		file:    file,
		level:   opts.Level,
		enabled: true,
		now:     time.Now,
	}
}

// Discard returns a logger that drops every line.
func Discard() *Logger {
	return New(Options{Console: io.Discard})
}

func (l *Logger) Debug(format string, v ...any) { l.logf(LevelDebug, format, v...) }
func (l *Logger) Info(format string, v ...any)  { l.logf(LevelInfo, format, v...) }
func (l *Logger) Warn(format string, v ...any)  { l.logf(LevelWarn, format, v...) }
func (l *Logger) Error(format string, v ...any) { l.logf(LevelError, format, v...) }

// SetEnabled toggles output without closing the sinks.
func (l *Logger) SetEnabled(on bool) {
	if l == nil {
		return
	}
	l.mu.Lock()
	l.enabled = on
	l.mu.Unlock()
}

// Std exposes the underlying *log.Logger for libraries that want one.
func (l *Logger) Std() *log.Logger {
	if l == nil {
		return log.New(io.Discard, "", 0)
	}
	return l.out
}

func (l *Logger) Close() error {
	if l == nil || l.file == nil {
		return nil
	}
	return l.file.Close()
}

func (l *Logger) logf(level Level, format string, v ...any) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.enabled || level < l.level {
		return
	}
	ts := l.now().UTC().Format(time.RFC3339Nano)
	l.out.Printf("[%s] [%s] %s", ts, level, fmt.Sprintf(format, v...))
}
