package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/obsidianstack/statusbot/internal/dispatch"
	"github.com/obsidianstack/statusbot/internal/metrics"
)

const requestIDHeader = "X-Request-Id"

// Dispatcher is the part of *dispatch.Dispatcher the handler needs.
type Dispatcher interface {
	Handle(ctx context.Context, ev dispatch.Event) (dispatch.Outcome, error)
	Live() bool
}

// Options configures New. Zero values are valid.
type Options struct {
	// Auth wraps the alert intake routes; nil means no authentication.
	Auth func(http.Handler) http.Handler

	// Metrics is served on /metrics and counts decode errors.
	Metrics *metrics.Metrics

	// Overrides is reported by the health endpoint.
	Overrides int
}

// Handler serves the alert intake, health and metrics routes.
type Handler struct {
	dispatcher Dispatcher
	metrics    *metrics.Metrics
	validate   *validator.Validate
	overrides  int
	router     *mux.Router
	chain      http.Handler
}

// New creates a Handler and registers all routes.
func New(d Dispatcher, opts Options) http.Handler {
	h := &Handler{
		dispatcher: d,
		metrics:    opts.Metrics,
		validate:   newValidator(),
		overrides:  opts.Overrides,
		router:     mux.NewRouter(),
	}

	authed := opts.Auth
	if authed == nil {
		authed = func(next http.Handler) http.Handler { return next }
	}
	intake := authed(http.HandlerFunc(h.alert))

	h.router.Handle("/", intake).Methods(http.MethodPost)
	h.router.Handle("/api/v1/alerts", intake).Methods(http.MethodPost)
	h.router.HandleFunc("/api/v1/health", h.health).Methods(http.MethodGet)
	h.router.Handle("/metrics", opts.Metrics.Handler()).Methods(http.MethodGet)

	h.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		jsonErr(w, r, http.StatusNotFound, "not found")
	})
	h.router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		jsonErr(w, r, http.StatusMethodNotAllowed, "method not allowed")
	})

	// Wrapped outside the router so unmatched requests get an id too.
	h.chain = withRequestID(logRequests(h.router))
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.chain.ServeHTTP(w, r)
}

// --- route handlers ---------------------------------------------------------

// alert handles POST / and POST /api/v1/alerts.
func (h *Handler) alert(w http.ResponseWriter, r *http.Request) {
	reqID := requestID(r)

	ev, err := h.decodeAlert(w, r)
	if err != nil {
		h.metrics.DecodeError()
		slog.Warn("api: failed reading in request", "request_id", reqID, "err", err)
		jsonErr(w, r, http.StatusBadRequest, err.Error())
		return
	}
	ev.RequestID = reqID

	out, err := h.dispatcher.Handle(r.Context(), ev)
	if err != nil {
		msg := "failed handling alert"
		var de *dispatch.Error
		if errors.As(err, &de) {
			switch de.Stage {
			case dispatch.StageRender:
				msg = "failed rendering template"
			case dispatch.StagePublish:
				msg = "failed publishing post"
			}
		}
		jsonErr(w, r, http.StatusInternalServerError, msg)
		return
	}

	jsonResp(w, http.StatusOK, AlertResponse{
		Status:    out.Status.String(),
		Text:      out.Text,
		RequestID: reqID,
	})
}

// health handles GET /api/v1/health.
func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	jsonResp(w, http.StatusOK, HealthResponse{
		Status:    "ok",
		Live:      h.dispatcher.Live(),
		Overrides: h.overrides,
	})
}

// --- middleware -------------------------------------------------------------

type ctxKey struct{}

// withRequestID makes sure every request has an id, echoed in the response.
func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, id)))
	})
}

func requestID(r *http.Request) string {
	id, _ := r.Context().Value(ctxKey{}).(string)
	return id
}

type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.code = code
	s.ResponseWriter.WriteHeader(code)
}

// logRequests logs one line per request at debug level.
func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(rec, r)
		slog.Debug("api: request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.code,
			"duration", time.Since(start),
			"request_id", requestID(r),
		)
	})
}

// --- helpers ----------------------------------------------------------------

func jsonResp(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, r *http.Request, code int, msg string) {
	jsonResp(w, code, errorResponse{Error: msg, RequestID: requestID(r)})
}
