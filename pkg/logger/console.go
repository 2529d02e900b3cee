package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	log "github.com/sirupsen/logrus"
)

const (
	levelField = "app_level"
	dataField  = "data"
)

// consoleFormatter renders "<glyph> <LEVEL>: <message>" followed by the
// optional data value as compact JSON.
type consoleFormatter struct{}

func (consoleFormatter) Format(e *log.Entry) ([]byte, error) {
	lvl, _ := e.Data[levelField].(Level)

	var sb strings.Builder
	sb.WriteString(lvl.glyph())
	sb.WriteByte(' ')
	sb.WriteString(strings.ToUpper(string(lvl)))
	sb.WriteString(": ")
	sb.WriteString(e.Message)

	if d, ok := e.Data[dataField]; ok {
		sb.WriteByte(' ')
		if b, err := json.Marshal(d); err == nil {
			sb.Write(b)
		} else {
			fmt.Fprintf(&sb, "%+v", d)
		}
	}
	sb.WriteByte('\n')

	return []byte(sb.String()), nil
}

func newConsole(out io.Writer) *log.Logger {
	c := log.New()
	c.Out = out
	c.Formatter = consoleFormatter{}
	c.Level = log.TraceLevel
	return c
}

// logrusLevel maps the entry level onto the console logger level.
func (l Level) logrusLevel() log.Level {
	switch l {
	case LevelError:
		return log.ErrorLevel
	case LevelWarn:
		return log.WarnLevel
	case LevelDebug:
		return log.DebugLevel
	}
	return log.InfoLevel
}

// toStderr reports whether the level is printed to the error stream.
func (l Level) toStderr() bool {
	return l == LevelError || l == LevelWarn
}
