package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/depscope/pkg/buildinfo"
	"github.com/matzehuels/depscope/pkg/config"
	"github.com/matzehuels/depscope/pkg/engine"
	"github.com/matzehuels/depscope/pkg/export"
	"github.com/matzehuels/depscope/pkg/observability"
)

// shutdownTimeout bounds graceful shutdown in Serve.
const shutdownTimeout = 5 * time.Second

// Options configures a Server.
type Options struct {
	Root    string        // project root analysed by every request
	Config  config.Config // analysis and server settings
	Runner  *engine.Runner
	Metrics http.Handler // mounted at /metrics when non-nil
	Logger  *log.Logger  // request logs (default: discard)
}

// Server is the HTTP surface of depscope.
type Server struct {
	opts   Options
	router chi.Router
}

// New creates a server. A nil Runner runs without a cache.
func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	if opts.Runner == nil {
		opts.Runner = engine.NewRunner(nil, nil, opts.Logger)
	}
	opts.Config = opts.Config.WithDefaults()

	s := &Server{opts: opts}
	s.router = s.routes()
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.instrument)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	if s.opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.opts.Metrics)
	}
	r.Route("/api", func(r chi.Router) {
		r.Get("/graph", s.handleGraph)
		r.Get("/stats", s.handleStats)
		r.Get("/export.{format}", s.handleExport)
	})
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: errorDetail{Code: "NOT_FOUND", Message: "no route for " + r.URL.Path}})
	})
	return r
}

// Serve listens on the configured address until ctx is cancelled, then
// shuts down gracefully.
func (s *Server) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.opts.Config.Server.Addr,
		Handler:      s.router,
		ReadTimeout:  s.opts.Config.Server.ReadTimeout,
		WriteTimeout: s.opts.Config.Server.WriteTimeout,
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.opts.Logger.Info("listening", "addr", srv.Addr, "root", s.opts.Root)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.opts.Logger.Info("server stopped")
	return nil
}

// =============================================================================
// Handlers
// =============================================================================

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"build":  buildinfo.Get(),
	})
}

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	an, ok := s.analyze(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, an.Graph)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	an, ok := s.analyze(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, an.Stats)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format := chi.URLParam(r, "format")
	if format != export.FormatDOT && format != export.FormatSVG {
		writeError(w, r, s.opts.Logger, errUnknownFormat(format))
		return
	}
	an, ok := s.analyze(w, r)
	if !ok {
		return
	}
	detailed, _ := strconv.ParseBool(r.URL.Query().Get("detailed"))
	data, err := export.Render(r.Context(), an.Graph, format, export.Options{
		Detailed: detailed,
		Clusters: len(an.Graph.Workspaces) > 1,
	})
	if err != nil {
		writeError(w, r, s.opts.Logger, err)
		return
	}
	if format == export.FormatSVG {
		w.Header().Set("Content-Type", "image/svg+xml")
	} else {
		w.Header().Set("Content-Type", "text/vnd.graphviz; charset=utf-8")
	}
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// analyze runs the request's analysis and sets the run headers. On failure
// the error response is written and ok is false.
func (s *Server) analyze(w http.ResponseWriter, r *http.Request) (*engine.Analysis, bool) {
	refresh, _ := strconv.ParseBool(r.URL.Query().Get("refresh"))
	an, err := s.opts.Runner.Analyze(r.Context(), engine.Request{
		Root:    s.opts.Root,
		Config:  s.opts.Config,
		Refresh: refresh,
	})
	if err != nil {
		writeError(w, r, s.opts.Logger, err)
		return nil, false
	}
	w.Header().Set("X-Depscope-Run", an.RunID)
	if an.Cached {
		w.Header().Set("X-Depscope-Cache", "hit")
	} else {
		w.Header().Set("X-Depscope-Cache", "miss")
	}
	return an, true
}

// instrument logs each request and reports it to the HTTP hooks under its
// route pattern.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		d := time.Since(start)
		observability.HTTP().OnRequest(r.Context(), r.Method, route)
		observability.HTTP().OnResponse(r.Context(), r.Method, route, status, d)
		s.opts.Logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"bytes", ww.BytesWritten(),
			"duration", d,
			"request_id", middleware.GetReqID(r.Context()))
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
