package utils

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Logger provides leveled logging throughout the application. Errors are also
// appended to a plain-text error log when one is attached.
type Logger struct {
	info  *log.Logger
	warn  *log.Logger
	err   *log.Logger
	debug *log.Logger

	debugEnabled bool

	mu      sync.Mutex
	errSink io.WriteCloser
	now     func() time.Time
}

// NewLogger creates a new Logger writing to stdout/stderr.
func NewLogger() *Logger {
	flags := 0
	return &Logger{
		info:  log.New(os.Stdout, "", flags),
		warn:  log.New(os.Stdout, "", flags),
		err:   log.New(os.Stderr, "", flags),
		debug: log.New(os.Stdout, "", flags),
		now:   time.Now,
	}
}

// NewLoggerTo creates a Logger that writes every level to w. Used by tests and
// by the report command when output is redirected.
func NewLoggerTo(w io.Writer) *Logger {
	return &Logger{
		info:  log.New(w, "", 0),
		warn:  log.New(w, "", 0),
		err:   log.New(w, "", 0),
		debug: log.New(w, "", 0),
		now:   time.Now,
	}
}

// SetLevel enables debug output for "debug"; any other value leaves it off.
func (l *Logger) SetLevel(level string) {
	l.debugEnabled = strings.EqualFold(strings.TrimSpace(level), "debug")
}

// AttachErrorLog opens path in append mode and mirrors every Error call into it
// as "timestamp - ERROR - message".
func (l *Logger) AttachErrorLog(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("logger: create log dir: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("logger: open error log %q: %w", path, err)
	}
	l.AttachErrorSink(f)
	return nil
}

// AttachErrorSink mirrors every Error call into w.
func (l *Logger) AttachErrorSink(w io.WriteCloser) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errSink = w
}

// Close releases the error log, if any.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.errSink == nil {
		return nil
	}
	err := l.errSink.Close()
	l.errSink = nil
	return err
}

func (l *Logger) timestamp() string {
	return l.now().Format("2006-01-02 15:04:05")
}

func (l *Logger) Info(format string, args ...any) {
	l.info.Printf(fmt.Sprintf("[%s] \033[32mINFO\033[0m  %s\n", l.timestamp(), format), args...)
}

func (l *Logger) Warn(format string, args ...any) {
	l.warn.Printf(fmt.Sprintf("[%s] \033[33mWARN\033[0m  %s\n", l.timestamp(), format), args...)
}

func (l *Logger) Error(format string, args ...any) {
	l.err.Printf(fmt.Sprintf("[%s] \033[31mERROR\033[0m %s\n", l.timestamp(), format), args...)
	l.writeErrorLine(fmt.Sprintf(format, args...))
}

func (l *Logger) Debug(format string, args ...any) {
	if !l.debugEnabled {
		return
	}
	l.debug.Printf(fmt.Sprintf("[%s] \033[36mDEBUG\033[0m %s\n", l.timestamp(), format), args...)
}

func (l *Logger) writeErrorLine(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.errSink == nil {
		return
	}
	// one line per failure
	msg = strings.ReplaceAll(msg, "\n", " ")
	ts := l.now()
	line := fmt.Sprintf("%s,%03d - ERROR - %s\n", ts.Format("2006-01-02 15:04:05"), ts.Nanosecond()/int(time.Millisecond), msg)
	_, _ = io.WriteString(l.errSink, line)
}
