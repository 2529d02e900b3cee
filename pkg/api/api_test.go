package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	log "github.com/sirupsen/logrus"

	"applog/pkg/models"
)

const testRequestID = "9b4f6c5d-1a32-4d8f-b5a6-23c9e1f7d2a1"

func TestMain(m *testing.M) {
	log.SetLevel(log.PanicLevel)
	exitCode := m.Run()
	os.Exit(exitCode)
}

type fakeWriter struct {
	msgs chan kafka.Message
	err  error
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	for _, m := range msgs {
		f.msgs <- m
	}
	return f.err
}

func TestNew_nilLogger(t *testing.T) {
	if _, err := New("svc", nil, nil); err == nil {
		t.Error("want error for nil logger, got nil")
	}
}

func TestAPI_health(t *testing.T) {
	l := newTestLogger(t)
	api, err := New("svc", l, nil)
	if err != nil {
		t.Fatalf("failed to create API: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-Id", testRequestID)
	rr := httptest.NewRecorder()
	api.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("want status code %v, got status code %v", http.StatusOK, rr.Code)
	}
	if got := rr.Header().Get("Content-Type"); got != "application/json" {
		t.Errorf("want Content-Type %q, got %q", "application/json", got)
	}
	if got := rr.Header().Get("X-Request-Id"); got != testRequestID {
		t.Errorf("want X-Request-Id %q, got %q", testRequestID, got)
	}

	var body map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("want status %q, got %q", "ok", body["status"])
	}

	// debug entry of the handler is dropped outside development mode
	records := readRecords(t, l.Path())
	if len(records) != 2 {
		t.Fatalf("want 2 records, got %d", len(records))
	}
	if records[0].Message != "GET /health" || records[1].Message != "GET /health - 200" {
		t.Errorf("want request and response records, got %q and %q", records[0].Message, records[1].Message)
	}
}

func TestAPI_accessLog(t *testing.T) {
	l := newTestLogger(t)
	kw := &fakeWriter{msgs: make(chan kafka.Message, 1)}
	api, err := New("svc", l, kw)
	if err != nil {
		t.Fatalf("failed to create API: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-Id", testRequestID)
	req.RemoteAddr = "10.0.0.5:4000"
	api.Handler().ServeHTTP(httptest.NewRecorder(), req)

	var msg kafka.Message
	select {
	case msg = <-kw.msgs:
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for access entry")
	}

	var entry models.AccessEntry
	if err := json.Unmarshal(msg.Value, &entry); err != nil {
		t.Fatalf("failed to unmarshal access entry: %v", err)
	}
	if entry.RequestID != testRequestID {
		t.Errorf("want request_id %q, got %q", testRequestID, entry.RequestID)
	}
	if entry.StatusCode != http.StatusOK {
		t.Errorf("want status_code %d, got %d", http.StatusOK, entry.StatusCode)
	}
	if entry.Method != http.MethodGet || entry.Path != "/health" {
		t.Errorf("want GET /health, got %s %s", entry.Method, entry.Path)
	}
	if entry.IP != "10.0.0.5" {
		t.Errorf("want ip %q, got %q", "10.0.0.5", entry.IP)
	}
	if entry.Service != "svc" {
		t.Errorf("want service %q, got %q", "svc", entry.Service)
	}
}

func TestAPI_accessLogFailure(t *testing.T) {
	l := newTestLogger(t)
	kw := &fakeWriter{msgs: make(chan kafka.Message, 1), err: errors.New("broker down")}
	api, err := New("svc", l, kw)
	if err != nil {
		t.Fatalf("failed to create API: %v", err)
	}

	rr := httptest.NewRecorder()
	api.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rr.Code != http.StatusOK {
		t.Errorf("want status code %v, got status code %v", http.StatusOK, rr.Code)
	}
	select {
	case <-kw.msgs:
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for access entry")
	}
}

func TestAPI_unmatchedRoutes(t *testing.T) {
	tests := []struct {
		name   string
		method string
		path   string
		status int
	}{
		{"method not allowed", http.MethodPost, "/health", http.StatusMethodNotAllowed},
		{"not found", http.MethodGet, "/missing", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := newTestLogger(t)
			kw := &fakeWriter{msgs: make(chan kafka.Message, 1)}
			api, err := New("svc", l, kw)
			if err != nil {
				t.Fatalf("failed to create API: %v", err)
			}

			rr := httptest.NewRecorder()
			api.Handler().ServeHTTP(rr, httptest.NewRequest(tt.method, tt.path, nil))

			if rr.Code != tt.status {
				t.Errorf("want status code %v, got status code %v", tt.status, rr.Code)
			}
			if rr.Header().Get("X-Request-Id") == "" {
				t.Error("want X-Request-Id header on unmatched route")
			}

			records := readRecords(t, l.Path())
			if len(records) != 2 {
				t.Fatalf("want 2 records, got %d", len(records))
			}
			wantStart := tt.method + " " + tt.path
			wantEnd := fmt.Sprintf("%s - %d", wantStart, tt.status)
			if records[0].Message != wantStart {
				t.Errorf("want message %q, got %q", wantStart, records[0].Message)
			}
			if records[1].Message != wantEnd {
				t.Errorf("want message %q, got %q", wantEnd, records[1].Message)
			}

			select {
			case msg := <-kw.msgs:
				var entry models.AccessEntry
				if err := json.Unmarshal(msg.Value, &entry); err != nil {
					t.Fatalf("failed to unmarshal access entry: %v", err)
				}
				if entry.StatusCode != tt.status {
					t.Errorf("want status_code %d, got %d", tt.status, entry.StatusCode)
				}
			case <-time.After(2 * time.Second):
				t.Fatal("timeout waiting for access entry")
			}
		})
	}
}
