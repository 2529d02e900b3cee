package logger

import (
	"net/http"
	"sync"
)

// ResponseLogger decorates a http.ResponseWriter and calls onSend once, with
// the final status code, right before the response starts going out.
type ResponseLogger struct {
	w      http.ResponseWriter
	status int
	onSend func(status int)
	once   sync.Once
}

// NewResponseLogger wraps w. onSend may be nil.
func NewResponseLogger(w http.ResponseWriter, onSend func(status int)) *ResponseLogger {
	return &ResponseLogger{w: w, status: http.StatusOK, onSend: onSend}
}

func (l *ResponseLogger) send(code int) {
	l.once.Do(func() {
		l.status = code
		if l.onSend != nil {
			l.onSend(code)
		}
	})
}

func (l *ResponseLogger) WriteHeader(code int) {
	l.send(code)
	l.w.WriteHeader(code)
}

func (l *ResponseLogger) Write(b []byte) (int, error) {
	l.send(http.StatusOK)
	return l.w.Write(b)
}

func (l *ResponseLogger) Header() http.Header {
	return l.w.Header()
}

// Finalize fires onSend for handlers that returned without writing anything,
// in which case net/http replies with 200.
func (l *ResponseLogger) Finalize() {
	l.send(http.StatusOK)
}

func (l *ResponseLogger) Status() int {
	return l.status
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (l *ResponseLogger) Unwrap() http.ResponseWriter {
	return l.w
}
