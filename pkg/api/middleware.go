package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gofrs/uuid"
	"github.com/gorilla/mux"
	"github.com/segmentio/kafka-go"
	log "github.com/sirupsen/logrus"

	"applog/pkg/logger"
	"applog/pkg/models"
)

const unknownIP = "unknown"

type ctxKeyRequestID struct{}

var RequestIDKey = ctxKeyRequestID{}

type requestData struct {
	IP        string `json:"ip"`
	UserAgent string `json:"userAgent"`
}

type responseData struct {
	Duration string `json:"duration"`
	IP       string `json:"ip"`
}

// RequestLogging records an INFO entry when a request arrives and another one
// when its response is sent, before any byte of it reaches the client.
// With trustProxy the client address is read from the proxy headers.
func RequestLogging(l *logger.Logger, trustProxy bool) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			method, url, ip := r.Method, r.URL.RequestURI(), getClientIP(r, trustProxy)

			l.Info(method+" "+url, requestData{IP: ip, UserAgent: r.UserAgent()})

			lw := logger.NewResponseLogger(w, func(status int) {
				l.Info(fmt.Sprintf("%s %s - %d", method, url, status), responseData{
					Duration: fmt.Sprintf("%dms", time.Since(start).Milliseconds()),
					IP:       ip,
				})
			})

			next.ServeHTTP(lw, r)
			lw.Finalize()
		})
	}
}

func (api *API) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get("X-Request-Id")
		if reqID == "" {
			id, err := uuid.NewV4()
			if err != nil {
				log.Errorf("[requestIDMiddleware] failed to generate request ID for %v: %v", r.RemoteAddr, err)
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				return
			}
			reqID = id.String()
			log.Debugf("[requestIDMiddleware] generated request ID:%s for %v", reqID, r.RemoteAddr)
		}

		w.Header().Set("X-Request-Id", reqID)
		ctx := context.WithValue(r.Context(), RequestIDKey, reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (api *API) headerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

// accessLogMiddleware ships an access entry to Kafka once the handler returns.
// The write runs in its own goroutine so it never delays the response.
func (api *API) accessLogMiddleware(kw MessageWriter) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			lw := logger.NewResponseLogger(w, nil)
			defer func() {
				lw.Finalize()
				entry := models.AccessEntry{
					Timestamp:  time.Now(),
					IP:         getClientIP(r, api.TrustProxy),
					StatusCode: lw.Status(),
					RequestID:  GetRequestID(r.Context()),
					Method:     r.Method,
					Path:       r.URL.Path,
					Duration:   time.Since(start).Seconds(),
					Service:    api.ServiceName,
				}

				go func() {
					jsonEntry, err := json.Marshal(entry)
					if err != nil {
						log.Errorf("[accessLogMiddleware] failed to marshal log entry for request %s", entry.RequestID)
						return
					}
					ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
					defer cancel()
					err = kw.WriteMessages(ctx, kafka.Message{Value: jsonEntry})
					if err != nil {
						log.Errorf("[accessLogMiddleware] failed to write log to Kafka: %v", err)
						return
					}
					log.Debugf("[accessLogMiddleware] log entry sent to Kafka request_id:%s", entry.RequestID)
				}()
			}()

			next.ServeHTTP(lw, r)
		})
	}
}

// getClientIP returns the host of the transport address. X-Forwarded-For and
// X-Real-Ip are set by the client, so they are only consulted with trustProxy.
func getClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if ip := proxyIP(r); ip != "" {
			return ip
		}
	}
	if r.RemoteAddr == "" {
		return unknownIP
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	if host == "" {
		return unknownIP
	}
	return host
}

func proxyIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	return strings.TrimSpace(r.Header.Get("X-Real-Ip"))
}
