package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/livehost/internal/logging"
	"github.com/aretw0/livehost/pkg/diagnostic"
	"github.com/aretw0/livehost/pkg/domain"
	"github.com/aretw0/livehost/pkg/registry"
	"github.com/aretw0/livehost/pkg/supervisor"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Controller is the part of the host the HTTP surface drives.
// *livehost.Host satisfies it.
type Controller interface {
	Status() domain.Status
	Diagnostics() []diagnostic.Error
	Modules() []string
	LoadModule(ctx context.Context, name string) (domain.State, error)
	Play(ctx context.Context) (domain.State, error)
	Pause(ctx context.Context) (domain.State, error)
	Stop(ctx context.Context) (domain.State, error)
	Abandon(ctx context.Context) (domain.State, error)
	Subscribe(h supervisor.Hooks) (unsubscribe func())
}

// Server exposes a Controller over HTTP.
type Server struct {
	Host    Controller
	Streams *StreamManager

	router      chi.Router
	logger      *slog.Logger
	gatherer    prometheus.Gatherer
	version     string
	unsubscribe func()
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request and stream logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithGatherer serves GET /metrics from g.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) { s.gatherer = g }
}

// WithVersion sets the version reported by GET /info.
func WithVersion(v string) Option {
	return func(s *Server) { s.version = strings.TrimSpace(v) }
}

// NewHandler creates the HTTP surface for host and subscribes it to host events.
// Call Close to unsubscribe.
func NewHandler(host Controller, opts ...Option) *Server {
	s := &Server{Host: host, logger: logging.NewNop(), version: "dev"}
	for _, opt := range opts {
		opt(s)
	}
	s.Streams = NewStreamManager(s.logger)
	s.unsubscribe = host.Subscribe(s.Streams.Hooks())

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(enableCORS)

	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	r.Get("/status", s.GetStatus)
	r.Get("/diagnostics", s.GetDiagnostics)
	r.Get("/modules", s.GetModules)
	r.Get("/events", s.SubscribeEvents)
	r.Post("/load", s.Load)
	r.Post("/play", s.control("play", host.Play))
	r.Post("/pause", s.control("pause", host.Pause))
	r.Post("/stop", s.control("stop", host.Stop))
	r.Post("/abandon", s.control("abandon", host.Abandon))
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	s.router = r
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Close unsubscribes from the host.
func (s *Server) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// StateResponse is returned by every control route.
type StateResponse struct {
	State       domain.State       `json:"state"`
	Error       string             `json:"error,omitempty"`
	Diagnostics []diagnostic.Error `json:"diagnostics,omitempty"`
}

// LoadRequest is the body of POST /load.
type LoadRequest struct {
	Name string `json:"name"`
}

// GetHealth handles GET /health.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles GET /info.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"app":     "livehost-http",
		"version": s.version,
	})
}

// GetStatus handles GET /status.
func (s *Server) GetStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.Host.Status())
}

// GetDiagnostics handles GET /diagnostics.
func (s *Server) GetDiagnostics(w http.ResponseWriter, r *http.Request) {
	diags := s.Host.Diagnostics()
	if diags == nil {
		diags = []diagnostic.Error{}
	}
	s.writeJSON(w, http.StatusOK, diags)
}

// GetModules handles GET /modules.
func (s *Server) GetModules(w http.ResponseWriter, r *http.Request) {
	names := s.Host.Modules()
	if names == nil {
		names = []string{}
	}
	s.writeJSON(w, http.StatusOK, names)
}

// Load handles POST /load.
func (s *Server) Load(w http.ResponseWriter, r *http.Request) {
	var body LoadRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeJSON(w, http.StatusBadRequest, StateResponse{State: s.Host.Status().State, Error: "invalid request body"})
		s.logger.Warn("Load: invalid request body", "err", err)
		return
	}
	if body.Name == "" {
		s.writeJSON(w, http.StatusBadRequest, StateResponse{State: s.Host.Status().State, Error: "name is required"})
		return
	}

	st, err := s.Host.LoadModule(r.Context(), body.Name)
	s.respond(w, "load", st, err)
}

func (s *Server) control(op string, fn func(context.Context) (domain.State, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, err := fn(r.Context())
		s.respond(w, op, st, err)
	}
}

func (s *Server) respond(w http.ResponseWriter, op string, st domain.State, err error) {
	if err == nil {
		s.writeJSON(w, http.StatusOK, StateResponse{State: st})
		return
	}

	code := statusCode(err)
	resp := StateResponse{State: st, Error: err.Error()}
	if errors.Is(err, supervisor.ErrDiagnosticsGate) {
		resp.Diagnostics = s.Host.Diagnostics()
	}
	if code >= http.StatusInternalServerError {
		s.logger.Error("Control operation failed", "op", op, "state", st, "err", err)
	} else {
		s.logger.Info("Control operation rejected", "op", op, "state", st, "err", err)
	}
	s.writeJSON(w, code, resp)
}

// statusCode maps host errors to HTTP statuses.
func statusCode(err error) int {
	switch {
	case errors.Is(err, supervisor.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, supervisor.ErrDiagnosticsGate), errors.Is(err, supervisor.ErrNoModule):
		return http.StatusUnprocessableEntity
	case errors.Is(err, supervisor.ErrStuckModule):
		return http.StatusGatewayTimeout
	case errors.Is(err, registry.ErrModuleNotFound):
		return http.StatusNotFound
	case errors.Is(err, supervisor.ErrClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Response encode failed", "err", err)
	}
}

// SubscribeEvents handles GET /events (SSE). The optional "events" query parameter
// is a comma separated filter, e.g. ?events=state,diagnostics.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		s.logger.Error("SubscribeEvents: streaming not supported")
		return
	}

	var filter map[string]bool
	if raw := r.URL.Query().Get("events"); raw != "" {
		filter = make(map[string]bool)
		for _, name := range strings.Split(raw, ",") {
			filter[strings.TrimSpace(name)] = true
		}
	}

	events, cancel := s.Streams.Subscribe()
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	// The current status first, so a client never starts from nothing.
	status, _ := json.Marshal(s.Host.Status())
	fmt.Fprintf(w, "event: ping\ndata: %s\n\n", status)
	flusher.Flush()
	s.logger.Info("SSE client connected", "filter", r.URL.Query().Get("events"))

	ticker := time.NewTicker(keepAlive)
	defer ticker.Stop()
	for {
		select {
		case <-r.Context().Done():
			s.logger.Info("SSE client disconnected")
			return
		case <-ticker.C:
			fmt.Fprint(w, ": keep-alive\n\n")
			flusher.Flush()
		case ev, ok := <-events:
			if !ok {
				return
			}
			if filter != nil && !filter[ev.Name] {
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Name, ev.Data)
			flusher.Flush()
		}
	}
}
