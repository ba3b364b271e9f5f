// CLAUDE:SUMMARY Read-only status HTTP API on chi: health, live page sessions, stored overlay events and reports.
// Package api serves a read-only status surface for a running adcover.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/hazyhaar/adcover/internal/store"
)

// PageStatus describes one live page session.
type PageStatus struct {
	ID      string `json:"id"`
	URL     string `json:"url"`
	State   string `json:"state"`
	Covered int    `json:"covered"`
	Batches uint64 `json:"batches"`
}

// Config for creating a Server.
type Config struct {
	// Store backs the history endpoints. Nil disables them.
	Store *store.Store
	// Status lists live sessions. Nil reports none.
	Status func() []PageStatus
	Logger *slog.Logger
}

// Server is the status API.
type Server struct {
	store   *store.Store
	status  func() []PageStatus
	logger  *slog.Logger
	started time.Time
}

// New creates a Server.
func New(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Status == nil {
		cfg.Status = func() []PageStatus { return nil }
	}
	return &Server{store: cfg.Store, status: cfg.Status, logger: cfg.Logger, started: time.Now()}
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	s.RegisterHTTP(r)
	return r
}

// RegisterHTTP mounts the endpoints on r.
func (s *Server) RegisterHTTP(r chi.Router) {
	r.Get("/health", s.handleHealth)
	r.Get("/pages", s.handlePages)
	r.Get("/pages/{id}/overlays", s.handleOverlays)
	r.Get("/reports", s.handleReports)
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutCtx)
	}()

	s.logger.Info("api: listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"uptime": time.Since(s.started).Round(time.Second).String(),
		"pages":  len(s.status()),
	})
}

func (s *Server) handlePages(w http.ResponseWriter, r *http.Request) {
	resp := struct {
		Live   []PageStatus        `json:"live"`
		Stored []store.PageSummary `json:"stored,omitempty"`
	}{Live: s.status()}
	if resp.Live == nil {
		resp.Live = []PageStatus{}
	}

	if s.store != nil {
		stored, err := s.store.Pages(r.Context())
		if err != nil {
			s.logger.Error("api: list pages", "error", err)
			http.Error(w, "store error", http.StatusInternalServerError)
			return
		}
		resp.Stored = stored
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleOverlays(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		http.Error(w, "store disabled", http.StatusServiceUnavailable)
		return
	}
	id, err := url.PathUnescape(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid page id", http.StatusBadRequest)
		return
	}
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}

	events, err := s.store.ListOverlays(r.Context(), id, limit)
	if err != nil {
		s.logger.Error("api: list overlays", "page", id, "error", err)
		http.Error(w, "store error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

func (s *Server) handleReports(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		http.Error(w, "store disabled", http.StatusServiceUnavailable)
		return
	}
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}
	reports, err := s.store.RecentReports(r.Context(), limit)
	if err != nil {
		s.logger.Error("api: recent reports", "error", err)
		http.Error(w, "store error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, reports)
}

// parseLimit reads ?limit=N, 0 when absent.
func parseLimit(w http.ResponseWriter, r *http.Request) (int, bool) {
	v := r.URL.Query().Get("limit")
	if v == "" {
		return 0, true
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 || n > 1000 {
		http.Error(w, "limit must be 0..1000", http.StatusBadRequest)
		return 0, false
	}
	return n, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
