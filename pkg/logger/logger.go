// Package logger records application events in an append-only JSON log file
// and mirrors them to the console.
//
// Every call appends one pretty-printed record to <dir>/app.log and prints a
// one-line summary to stdout (info, debug, success) or stderr (warn, error).
// Debug entries are dropped unless the logger runs in development mode.
// A failed append never panics: it is reported once on stderr and returned
// as a *WriteError that callers are free to ignore.
package logger

import (
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	// DefaultDir is the log directory used when Config.Dir is empty.
	DefaultDir = "logs"
	fileName   = "app.log"
)

// Config holds logger settings resolved once at startup.
type Config struct {
	Dir string
	// Dev enables debug entries.
	Dev bool

	Stdout io.Writer
	Stderr io.Writer
}

// Logger appends entries to <dir>/app.log and mirrors them to the console.
// It is safe for concurrent use.
type Logger struct {
	dir string
	dev bool

	stdout *log.Logger
	stderr *log.Logger

	mu  sync.Mutex
	now func() time.Time
}

// New creates the log directory with any missing parents and returns a logger
// writing into it. The directory is not re-checked on later writes.
func New(cfg Config) (*Logger, error) {
	dir := cfg.Dir
	if dir == "" {
		dir = DefaultDir
	}
	dir, err := filepath.Abs(dir)
	if err != nil {
		return nil, &WriteError{Op: "resolve", Path: cfg.Dir, Err: err}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, &WriteError{Op: "mkdir", Path: dir, Err: err}
	}

	stdout, stderr := cfg.Stdout, cfg.Stderr
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}

	return &Logger{
		dir:    dir,
		dev:    cfg.Dev,
		stdout: newConsole(stdout),
		stderr: newConsole(stderr),
		now:    time.Now,
	}, nil
}

// Path returns the absolute path of the log file.
func (l *Logger) Path() string {
	return filepath.Join(l.dir, fileName)
}

// Dev reports whether debug entries are recorded.
func (l *Logger) Dev() bool {
	return l.dev
}

func (l *Logger) Info(message string, data any) error {
	return l.Log(LevelInfo, message, data)
}

func (l *Logger) Warn(message string, data any) error {
	return l.Log(LevelWarn, message, data)
}

func (l *Logger) Error(message string, data any) error {
	return l.Log(LevelError, message, data)
}

func (l *Logger) Success(message string, data any) error {
	return l.Log(LevelSuccess, message, data)
}

// Debug records the entry only in development mode; otherwise it does nothing.
func (l *Logger) Debug(message string, data any) error {
	if !l.dev {
		return nil
	}
	return l.Log(LevelDebug, message, data)
}

// Log appends an entry of the given level to the log file and prints it to
// the console. The returned error only reports the file append.
func (l *Logger) Log(level Level, message string, data any) error {
	entry := newEntry(l.now(), level, message, data)

	err := l.write(entry)
	l.print(level, message, entry.Data)

	return err
}

func (l *Logger) write(entry Entry) error {
	b, err := entry.format()
	if err != nil {
		return l.fail(&WriteError{Op: "marshal", Path: l.Path(), Err: err})
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.Path(), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return l.fail(&WriteError{Op: "open", Path: l.Path(), Err: err})
	}
	defer f.Close()

	if _, err := f.Write(b); err != nil {
		return l.fail(&WriteError{Op: "write", Path: l.Path(), Err: err})
	}
	return nil
}

// fail reports a write failure once on the error stream.
func (l *Logger) fail(err *WriteError) error {
	l.stderr.WithField(levelField, LevelError).
		Error("Failed to write to log file: " + err.Err.Error())
	return err
}

func (l *Logger) print(level Level, message string, data any) {
	c := l.stdout
	if level.toStderr() {
		c = l.stderr
	}

	fields := log.Fields{levelField: level}
	if data != nil {
		fields[dataField] = data
	}
	c.WithFields(fields).Log(level.logrusLevel(), message)
}
