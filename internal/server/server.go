// Package server exposes roadmaps over HTTP: JSON for the roadmap, its
// layout and progress, SVG snapshots, and a progress write endpoint that
// mirrors the viewer's optimistic toggle.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vanderheijden86/roadwork/internal/datasource"
	"github.com/vanderheijden86/roadwork/pkg/export"
	"github.com/vanderheijden86/roadwork/pkg/layout"
	"github.com/vanderheijden86/roadwork/pkg/model"
	"github.com/vanderheijden86/roadwork/pkg/progress"
	"github.com/vanderheijden86/roadwork/pkg/scene"
)

// SourceHeader reports whether a response came from the store or demo data.
const SourceHeader = "X-Roadwork-Source"

const shutdownTimeout = 5 * time.Second

// Config configures the HTTP server.
type Config struct {
	Addr           string
	AllowedOrigins []string
}

// Server serves roadmaps from a fallback-wrapped store.
type Server struct {
	store    *datasource.Fallback
	logger   *zap.Logger
	metrics  *Metrics
	cfg      Config
	instance string
	started  time.Time
	router   http.Handler
}

// New wires routes and middleware. The store's OnFallback hook is taken over
// to count demo fallbacks.
func New(store *datasource.Fallback, logger *zap.Logger, cfg Config) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		store:    store,
		logger:   logger,
		metrics:  NewMetrics(),
		cfg:      cfg,
		instance: uuid.NewString(),
		started:  time.Now(),
	}
	store.OnFallback = func(id string, cause error) {
		s.metrics.Fallbacks.WithLabelValues(fallbackReason(cause)).Inc()
		if cause != nil {
			s.logger.Warn("serving demo data", zap.String("roadmap", id), zap.Error(cause))
		}
	}
	s.router = s.routes()
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

// Metrics returns the server's collectors.
func (s *Server) Metrics() *Metrics { return s.metrics }

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(Logger(s.logger))
	r.Use(s.metrics.Middleware)

	origins := s.cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID", SourceHeader},
		MaxAge:         300,
	}))

	r.Get("/health", s.health)
	r.Handle("/metrics", s.metrics.Handler())

	r.Route("/api/roadmaps", func(r chi.Router) {
		r.Get("/", s.listRoadmaps)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.getRoadmap)
			r.Get("/layout", s.getLayout)
			r.Get("/progress", s.getProgress)
			r.Get("/snapshot.svg", s.getSnapshot)
			r.Get("/mermaid", s.getMermaid)
			r.Post("/nodes/{nodeID}/progress", s.updateProgress)
		})
	})
	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", zap.String("addr", s.cfg.Addr), zap.String("instance", s.instance))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen %s: %w", s.cfg.Addr, err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	s.logger.Info("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

type healthResponse struct {
	Status   string `json:"status"`
	Instance string `json:"instance"`
	Uptime   string `json:"uptime"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, healthResponse{
		Status:   "ok",
		Instance: s.instance,
		Uptime:   time.Since(s.started).Round(time.Second).String(),
	})
}

func (s *Server) listRoadmaps(w http.ResponseWriter, r *http.Request) {
	infos, err := s.store.List(r.Context())
	if err != nil {
		s.respondError(w, http.StatusBadGateway, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, infos)
}

type roadmapResponse struct {
	Roadmap  *model.Roadmap   `json:"roadmap"`
	Demo     bool             `json:"demo"`
	Progress progress.Summary `json:"progress"`
}

// fetch loads the {id} roadmap and tags the response with its source.
func (s *Server) fetch(w http.ResponseWriter, r *http.Request) datasource.Loaded {
	loaded := s.store.Fetch(r.Context(), chi.URLParam(r, "id"))
	source := "store"
	if loaded.Demo {
		source = "demo"
	}
	w.Header().Set(SourceHeader, source)
	return loaded
}

func (s *Server) getRoadmap(w http.ResponseWriter, r *http.Request) {
	loaded := s.fetch(w, r)
	s.respondJSON(w, http.StatusOK, roadmapResponse{
		Roadmap:  loaded.Roadmap,
		Demo:     loaded.Demo,
		Progress: progress.ForRoadmap(loaded.Roadmap),
	})
}

func (s *Server) getProgress(w http.ResponseWriter, r *http.Request) {
	loaded := s.fetch(w, r)
	s.respondJSON(w, http.StatusOK, progress.ForRoadmap(loaded.Roadmap))
}

// buildScene parses ?mode=, ?preset= and ?selected= and lays out rm.
func buildScene(rm *model.Roadmap, r *http.Request) (scene.Scene, error) {
	q := r.URL.Query()
	mode, err := layout.ParseMode(q.Get("mode"))
	if err != nil {
		return scene.Scene{}, err
	}
	res := layout.Compute(rm, mode, layout.Preset(q.Get("preset")))
	return scene.Build(rm, res, scene.Options{Selected: q.Get("selected")}), nil
}

func (s *Server) getLayout(w http.ResponseWriter, r *http.Request) {
	loaded := s.fetch(w, r)
	sc, err := buildScene(loaded.Roadmap, r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, sc)
}

func (s *Server) getSnapshot(w http.ResponseWriter, r *http.Request) {
	loaded := s.fetch(w, r)
	sc, err := buildScene(loaded.Roadmap, r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	err = export.WriteSVG(w, sc, export.SnapshotOptions{
		Title:    loaded.Roadmap.Title,
		Progress: progress.ForRoadmap(loaded.Roadmap),
	})
	if err != nil {
		s.logger.Error("render snapshot", zap.Error(err))
	}
}

func (s *Server) getMermaid(w http.ResponseWriter, r *http.Request) {
	loaded := s.fetch(w, r)
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(export.Mermaid(loaded.Roadmap)))
}

type progressResponse struct {
	Node     model.Node       `json:"node"`
	Progress progress.Summary `json:"progress"`
}

func (s *Server) updateProgress(w http.ResponseWriter, r *http.Request) {
	nodeID := chi.URLParam(r, "nodeID")

	var req progressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := validateStruct(req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	loaded := s.fetch(w, r)
	if loaded.Demo {
		s.metrics.ProgressUpdates.WithLabelValues("read_only").Inc()
		s.respondError(w, http.StatusForbidden, datasource.ErrReadOnlyDemo.Error())
		return
	}
	rm := loaded.Roadmap
	if rm.NodeByID(nodeID) == nil {
		s.respondError(w, http.StatusNotFound, fmt.Sprintf("node %q not found", nodeID))
		return
	}

	err := s.store.UpdateProgress(r.Context(), rm.ID, nodeID, *req.Completed, req.Notes)
	switch {
	case err == nil:
	case datasource.IsReadOnly(err):
		s.metrics.ProgressUpdates.WithLabelValues("read_only").Inc()
		s.respondError(w, http.StatusForbidden, err.Error())
		return
	case errors.Is(err, datasource.ErrNotFound):
		s.metrics.ProgressUpdates.WithLabelValues("not_found").Inc()
		s.respondError(w, http.StatusNotFound, err.Error())
		return
	default:
		s.metrics.ProgressUpdates.WithLabelValues("error").Inc()
		s.logger.Error("update progress",
			zap.String("roadmap", rm.ID),
			zap.String("node", nodeID),
			zap.Error(err),
		)
		s.respondError(w, http.StatusBadGateway, "failed to save progress")
		return
	}

	_ = rm.SetCompleted(nodeID, *req.Completed)
	_ = rm.SetNotes(nodeID, req.Notes)
	s.metrics.ProgressUpdates.WithLabelValues("ok").Inc()
	s.respondJSON(w, http.StatusOK, progressResponse{
		Node:     *rm.NodeByID(nodeID),
		Progress: progress.ForRoadmap(rm),
	})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("Failed to encode response", zap.Error(err))
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]any{
		"error":   true,
		"message": strings.TrimSpace(message),
		"code":    status,
	})
}
