// Package server exposes run history over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/verte-zerg/adalan/internal/export"
	"github.com/verte-zerg/adalan/internal/metrics"
	"github.com/verte-zerg/adalan/internal/model"
	"github.com/verte-zerg/adalan/internal/store"
)

const (
	shutdownTimeout = 5 * time.Second
	requestTimeout  = 30 * time.Second
)

// Store is the read side of the history store.
type Store interface {
	ListRuns(ctx context.Context, cfg model.StatsConfig) ([]model.RunAggregate, error)
	GetRun(ctx context.Context, id string) (model.RunAggregate, error)
	ListAnswers(ctx context.Context, runID string) ([]model.AnswerRecord, error)
}

// Server serves run history and metrics.
type Server struct {
	store    Store
	logger   *zap.Logger
	registry *prometheus.Registry
	http     *metrics.HTTP
}

// New constructs a Server. Request metrics are registered on reg.
func New(st Store, logger *zap.Logger, reg *prometheus.Registry) *Server {
	return &Server{
		store:    st,
		logger:   logger,
		registry: reg,
		http:     metrics.NewHTTP(reg),
	}
}

// Routes builds the chi router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, s.instrument, middleware.Recoverer, middleware.Timeout(requestTimeout))

	r.Get("/healthz", s.health)
	r.Get("/api/runs", s.listRuns)
	r.Get("/api/runs/{id}", s.getRun)
	r.Method(http.MethodGet, "/metrics", metrics.Handler(s.registry))
	return r
}

// Run serves handler on addr until ctx is cancelled.
func Run(ctx context.Context, addr string, handler http.Handler, logger *zap.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      requestTimeout + 5*time.Second,
	}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting history server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down history server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		elapsed := time.Since(start)
		s.http.Observe(r.Method, route, status, elapsed)
		s.logger.Info("request",
			zap.String("method", r.Method),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Duration("elapsed", elapsed),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) listRuns(w http.ResponseWriter, r *http.Request) {
	cfg, err := statsConfigFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	runs, err := s.store.ListRuns(r.Context(), cfg)
	if err != nil {
		s.logger.Error("failed to list runs", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}
	out := make([]export.Run, 0, len(runs))
	for _, run := range runs {
		out = append(out, export.FromAggregate(run, nil))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	run, err := s.store.GetRun(r.Context(), id)
	if errors.Is(err, store.ErrRunNotFound) {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	if err != nil {
		s.logger.Error("failed to load run", zap.String("run_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load run")
		return
	}
	answers, err := s.store.ListAnswers(r.Context(), id)
	if err != nil {
		s.logger.Error("failed to load answers", zap.String("run_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load answers")
		return
	}
	writeJSON(w, http.StatusOK, export.FromAggregate(run, answers))
}

func statsConfigFromQuery(r *http.Request) (model.StatsConfig, error) {
	q := r.URL.Query()
	var cfg model.StatsConfig
	if raw := strings.TrimSpace(q.Get("operator")); raw != "" {
		op, ok := model.ParseOperator(raw)
		if !ok {
			return cfg, fmt.Errorf("unknown operator %q", raw)
		}
		cfg.Operator = op
	}
	if raw := strings.TrimSpace(q.Get("last")); raw != "" {
		last, err := strconv.Atoi(raw)
		if err != nil || last < 0 {
			return cfg, fmt.Errorf("last must be a non-negative integer")
		}
		cfg.Last = last
	}
	if raw := strings.TrimSpace(q.Get("since")); raw != "" {
		since, err := time.ParseInLocation("2006-01-02", raw, time.Local)
		if err != nil {
			return cfg, fmt.Errorf("since must be YYYY-MM-DD")
		}
		cfg.Since = &since
	}
	return cfg, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
