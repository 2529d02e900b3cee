package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/segmentio/kafka-go"
	log "github.com/sirupsen/logrus"

	"applog/pkg/logger"
)

// MessageWriter is the part of *kafka.Writer used to ship access entries.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

type API struct {
	ServiceName string
	// TrustProxy makes the client address come from X-Forwarded-For and
	// X-Real-Ip. Enable it only behind a proxy that sets them.
	TrustProxy bool

	r  *mux.Router
	l  *logger.Logger
	kw MessageWriter
}

// New returns the API of the service. kw may be nil, then access entries are
// not shipped to Kafka.
func New(name string, l *logger.Logger, kw MessageWriter) (*API, error) {
	if l == nil {
		return nil, errors.New("nil logger")
	}

	api := API{
		ServiceName: name,
		r:           mux.NewRouter(),
		l:           l,
		kw:          kw,
	}
	api.endpoints()

	return &api, nil
}

func (api *API) Router() *mux.Router {
	return api.r
}

// Handler returns the router wrapped in the request ID, request logging and
// access log middleware. Unlike middleware added with Router().Use, they also
// run for requests that match no route (404, 405).
func (api *API) Handler() http.Handler {
	var h http.Handler = api.r
	if api.kw != nil {
		h = api.accessLogMiddleware(api.kw)(h)
	}
	h = RequestLogging(api.l, api.TrustProxy)(h)
	return api.requestIDMiddleware(h)
}

func (api *API) endpoints() {
	api.r.Use(api.headerMiddleware)

	api.r.HandleFunc("/health", api.health).Methods(http.MethodGet)
}

func (api *API) health(w http.ResponseWriter, r *http.Request) {
	sID := shorten(GetRequestID(r.Context()))
	api.l.Debug("health check", map[string]string{"request_id": sID})

	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(map[string]string{"status": "ok"}); err != nil {
		log.Errorf("[health][%s] failed to encode response: %v", sID, err)
	}
}

// GetRequestID returns the request ID stored by requestIDMiddleware.
func GetRequestID(ctx context.Context) string {
	if v, ok := ctx.Value(RequestIDKey).(string); ok {
		return v
	}
	return ""
}

// shorten truncates a string to 6 characters if it is longer than 6, appends '...' at the end,
// otherwise it returns the string unchanged.
func shorten(s string) string {
	if len(s) > 6 {
		return s[:6] + "..."
	}
	return s
}
