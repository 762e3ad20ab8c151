package http

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/botflow"
	"github.com/aretw0/botflow/internal/logging"
	"github.com/aretw0/botflow/internal/metrics"
	"github.com/aretw0/botflow/pkg/domain"
	"github.com/aretw0/botflow/pkg/runner"
	"github.com/aretw0/botflow/pkg/session"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// RequestTimeout bounds every non-streaming request.
const RequestTimeout = 60 * time.Second

// Server serves the editor API and the test bot.
type Server struct {
	workspace *botflow.Workspace
	sessions  *session.Manager
	metrics   *metrics.Metrics
	streams   *StreamManager
	policy    runner.InputPolicy
	logger    *slog.Logger

	allowAllOrigins bool
}

// Option configures the Server.
type Option func(*Server)

// WithMetrics counts requests and serves /metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithLogger sets the request and error logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithAllowAllOrigins accepts cross-origin requests from anywhere instead of
// localhost only.
func WithAllowAllOrigins(allow bool) Option {
	return func(s *Server) {
		s.allowAllOrigins = allow
	}
}

// WithInputPolicy overrides the limits applied to submitted answers.
func WithInputPolicy(p runner.InputPolicy) Option {
	return func(s *Server) {
		s.policy = p
	}
}

// NewServer wires the API over a workspace and a session manager.
func NewServer(workspace *botflow.Workspace, sessions *session.Manager, opts ...Option) *Server {
	s := &Server{
		workspace: workspace,
		sessions:  sessions,
		policy:    runner.DefaultInputPolicy(),
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.streams = NewStreamManager(s.logger)
	return s
}

// Streams exposes the SSE fan-out, mostly for tests.
func (s *Server) Streams() *StreamManager {
	return s.streams
}

// Handler builds the chi router with every route and middleware.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	corsOpts := cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "http://127.0.0.1:*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}
	if s.allowAllOrigins {
		corsOpts.AllowedOrigins = []string{"*"}
		corsOpts.AllowCredentials = false
	}
	r.Use(cors.Handler(corsOpts))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/info", s.getInfo)
	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/yaml")
		w.Write(RawSpec())
	})
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(RequestTimeout))

			r.Get("/flow", s.getLatestFlow)
			r.Post("/flow", s.saveFlow)
			r.Get("/flows", s.listFlows)
			r.Get("/flow/{id}", s.getFlow)
			r.Get("/flow/{id}/mermaid", s.getFlowMermaid)

			r.Get("/sessions", s.listSessions)
			r.Post("/sessions", s.startSession)
			r.Get("/sessions/{id}", s.getSession)
			r.Delete("/sessions/{id}", s.deleteSession)
			r.Post("/sessions/{id}/input", s.submitInput)
		})

		r.Get("/sessions/{id}/events", s.subscribeSession)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	return r
}

// requestLogger logs one line per request and feeds the request counter.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		defer func() {
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			route := ""
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				route = rctx.RoutePattern()
			}
			if s.metrics != nil {
				s.metrics.ObserveRequest(route, status)
			}
			s.logger.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"route", route,
				"status", status,
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		}()

		next.ServeHTTP(ww, r)
	})
}

func (s *Server) getInfo(w http.ResponseWriter, r *http.Request) {
	apiVersion := "unknown"
	if doc, err := Spec(); err == nil && doc.Info != nil {
		apiVersion = doc.Info.Version
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"app":         "botflow",
		"version":     strings.TrimSpace(botflow.Version),
		"api_version": apiVersion,
	})
}

// -- Helpers --

type errorBody struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Message: msg})
}

// internalError logs err and writes the generic 500 body.
func (s *Server) internalError(w http.ResponseWriter, r *http.Request, op string, err error) {
	s.logger.ErrorContext(r.Context(), op+" failed", "error", err, "request_id", middleware.GetReqID(r.Context()))
	writeError(w, http.StatusInternalServerError, "Internal server error")
}

// decodeJSON decodes the body into v. An empty body leaves v untouched when
// allowEmpty is set.
func decodeJSON(r *http.Request, v any, allowEmpty bool) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		if allowEmpty && errors.Is(err, io.EOF) {
			return nil
		}
		return &domain.ValidationError{Reason: "malformed JSON body"}
	}
	return nil
}
