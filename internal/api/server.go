package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"

	"SurgeScreener/internal/metrics"
	"SurgeScreener/internal/pipeline"
	"SurgeScreener/internal/recorder"
)

// Server exposes screening history and on-demand runs over HTTP.
type Server struct {
	runner  *pipeline.Runner
	metrics *metrics.Metrics
}

func NewServer(runner *pipeline.Runner, m *metrics.Metrics) *Server {
	return &Server{runner: runner, metrics: m}
}

type errorResponse struct {
	Error string `json:"error"`
}

// Router builds the HTTP routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(hlog.NewHandler(log.Logger))
	r.Use(hlog.AccessHandler(func(r *http.Request, status, size int, d time.Duration) {
		hlog.FromRequest(r).Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Dur("elapsed", d).
			Msg("http request")
	}))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	if reg := s.metrics.Registry(); reg != nil {
		r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/screens", func(r chi.Router) {
		r.Get("/latest", s.handleLatest)
		r.Post("/", s.handleRun)
	})
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]string{"status": "ok"})
}

func (s *Server) handleLatest(w http.ResponseWriter, r *http.Request) {
	snap, err := s.runner.Recorder().LatestRun()
	switch {
	case errors.Is(err, recorder.ErrNoRuns):
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, errorResponse{Error: err.Error()})
	case err != nil:
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, errorResponse{Error: err.Error()})
	default:
		render.JSON(w, r, snap)
	}
}

// handleRun screens synchronously and returns the new snapshot. The run is
// detached from the request so a client disconnect cannot cut it short.
func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	snap, err := s.runner.Run(context.WithoutCancel(r.Context()))
	switch {
	case errors.Is(err, pipeline.ErrRunInProgress):
		render.Status(r, http.StatusConflict)
		render.JSON(w, r, errorResponse{Error: err.Error()})
	case err != nil:
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, errorResponse{Error: err.Error()})
	default:
		render.Status(r, http.StatusCreated)
		render.JSON(w, r, snap)
	}
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("http server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	log.Info().Msg("http server stopped")
	return nil
}
