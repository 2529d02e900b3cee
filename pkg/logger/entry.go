package logger

import (
	"encoding/json"
	"reflect"
	"strings"
	"time"
)

// Level is the severity of a log entry.
type Level string

const (
	LevelInfo    Level = "info"
	LevelError   Level = "error"
	LevelWarn    Level = "warn"
	LevelDebug   Level = "debug"
	LevelSuccess Level = "success"
)

// timestampLayout is ISO-8601 in UTC with millisecond precision.
const timestampLayout = "2006-01-02T15:04:05.000Z"

// Entry is a single record of the log file.
type Entry struct {
	Timestamp string `json:"timestamp"`
	Level     string `json:"level"`
	Message   string `json:"message"`
	Data      any    `json:"data,omitempty"`
}

func newEntry(t time.Time, level Level, message string, data any) Entry {
	e := Entry{
		Timestamp: t.UTC().Format(timestampLayout),
		Level:     strings.ToUpper(string(level)),
		Message:   message,
	}
	if !isNil(data) {
		e.Data = data
	}
	return e
}

// format renders the entry as 2-space indented JSON terminated by a newline.
func (e Entry) format() ([]byte, error) {
	b, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}

// glyph returns the console marker of the level.
func (l Level) glyph() string {
	switch l {
	case LevelInfo:
		return "📘"
	case LevelError:
		return "🔴"
	case LevelWarn:
		return "🟡"
	case LevelDebug:
		return "🔍"
	case LevelSuccess:
		return "✅"
	}
	return "•"
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map, reflect.Slice, reflect.Pointer, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
