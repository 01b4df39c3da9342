package http

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/site-fueling-service/internal/adapter/xlsx"
	"github.com/couchcryptid/site-fueling-service/internal/domain"
	"github.com/couchcryptid/site-fueling-service/internal/pipeline"
)

// SnapshotService is the pipeline as seen by the HTTP layer.
type SnapshotService interface {
	sharedobs.ReadinessChecker
	Snapshot() *pipeline.Snapshot
	Refresh(ctx context.Context) (*pipeline.Snapshot, error)
}

// Server exposes the dashboard API plus health, readiness, and metrics endpoints.
type Server struct {
	httpServer *http.Server
	service    SnapshotService
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics and /api routes.
func NewServer(addr string, service SnapshotService, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		service: service,
		logger:  logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(service))
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /api/sites", s.withSnapshot(s.handleSites))
	mux.HandleFunc("GET /api/sites/{category}", s.withSnapshot(s.handleCategory))
	mux.HandleFunc("GET /api/map", s.withSnapshot(s.handleMap))
	mux.HandleFunc("GET /api/export.csv", s.withSnapshot(s.handleExportCSV))
	mux.HandleFunc("GET /api/export.xlsx", s.withSnapshot(s.handleExportXLSX))
	mux.HandleFunc("POST /api/refresh", s.handleRefresh)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

type snapshotHandler func(w http.ResponseWriter, r *http.Request, snap *pipeline.Snapshot)

// withSnapshot answers 503 until the first snapshot is committed.
func (s *Server) withSnapshot(h snapshotHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap := s.service.Snapshot()
		if snap == nil {
			writeError(w, http.StatusServiceUnavailable, "no snapshot available yet")
			return
		}
		h(w, r, snap)
	}
}

func (s *Server) handleSites(w http.ResponseWriter, _ *http.Request, snap *pipeline.Snapshot) {
	sharedobs.WriteJSON(w, http.StatusOK, newSitesResponse(snap))
}

func (s *Server) handleCategory(w http.ResponseWriter, r *http.Request, snap *pipeline.Snapshot) {
	category, ok := domain.ParseCategory(r.PathValue("category"))
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("unknown category %q", r.PathValue("category")))
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, categoryResponse{
		Category: category,
		Sites:    snap.Result[category],
	})
}

func (s *Server) handleMap(w http.ResponseWriter, _ *http.Request, snap *pipeline.Snapshot) {
	sharedobs.WriteJSON(w, http.StatusOK, mapResponse{
		Generation: snap.Generation,
		Points:     domain.MapPoints(snap.All()),
	})
}

func (s *Server) handleExportCSV(w http.ResponseWriter, _ *http.Request, snap *pipeline.Snapshot) {
	var buf bytes.Buffer
	if err := domain.ExportCSV(&buf, snap.All()); err != nil {
		s.logger.Error("csv export failed", "error", err, "generation", snap.Generation)
		writeError(w, http.StatusInternalServerError, "export failed")
		return
	}
	writeAttachment(w, "text/csv; charset=utf-8", exportFilename(snap, "csv"), buf.Bytes())
}

func (s *Server) handleExportXLSX(w http.ResponseWriter, _ *http.Request, snap *pipeline.Snapshot) {
	var buf bytes.Buffer
	if err := xlsx.Write(&buf, snap.All()); err != nil {
		s.logger.Error("xlsx export failed", "error", err, "generation", snap.Generation)
		writeError(w, http.StatusInternalServerError, "export failed")
		return
	}
	writeAttachment(w, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", exportFilename(snap, "xlsx"), buf.Bytes())
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	snap, err := s.service.Refresh(r.Context())
	switch {
	case errors.Is(err, pipeline.ErrStalePass):
		writeError(w, http.StatusConflict, "refresh superseded by a newer one")
		return
	case err != nil:
		s.logger.Warn("manual refresh aborted", "error", err)
		writeError(w, http.StatusServiceUnavailable, "refresh aborted")
		return
	}
	s.logger.Info("manual refresh", "generation", snap.Generation, "source", snap.Source)
	sharedobs.WriteJSON(w, http.StatusOK, refreshResponse{
		Generation: snap.Generation,
		Source:     snap.Source,
		Advisory:   snap.Advisory,
		Summary:    snap.Summary,
	})
}

func exportFilename(snap *pipeline.Snapshot, ext string) string {
	return fmt.Sprintf("fueling-sites-%s.%s", snap.Today.Format(domain.DateLayout), ext)
}

func writeAttachment(w http.ResponseWriter, contentType, filename string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	sharedobs.WriteJSON(w, status, map[string]string{"error": msg})
}
