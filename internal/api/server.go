package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/stphegia-org/intv-comp/internal/metrics"
	"github.com/stphegia-org/intv-comp/internal/store"
)

// Server exposes service health, run history, and metrics over HTTP.
// The store may be nil when auditing is disabled; run endpoints then
// answer 503.
type Server struct {
	router *chi.Mux
	http   *http.Server
	store  *store.Store
	logger *slog.Logger
}

func NewServer(addr string, st *store.Store, m *metrics.Metrics, logger *slog.Logger) *Server {
	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	s := &Server{
		router: router,
		http: &http.Server{
			Addr:              addr,
			Handler:           router,
			ReadHeaderTimeout: 5 * time.Second,
		},
		store:  st,
		logger: logger,
	}

	router.Get("/health", s.health)
	router.Get("/api/v1/analysis/status", s.status)
	router.Get("/api/v1/analysis/runs", s.listRuns)
	router.Get("/api/v1/analysis/runs/{id}", s.getRun)
	router.Handle("/metrics", m.Handler())

	return s
}

// Start serves requests until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("api server starting", "addr", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

type runResponse struct {
	ID                string     `json:"id"`
	Mode              string     `json:"mode"`
	PolicyID          string     `json:"policy_id,omitempty"`
	StartedAt         time.Time  `json:"started_at"`
	FinishedAt        *time.Time `json:"finished_at,omitempty"`
	TotalMessages     int        `json:"total_messages"`
	KeptMessages      int        `json:"kept_messages"`
	ExcludedMessages  int        `json:"excluded_messages"`
	Chunks            int        `json:"chunks"`
	Reports           int        `json:"reports"`
	ResolvedCitations int        `json:"resolved_citations"`
	FallbackCitations int        `json:"fallback_citations"`
	Status            string     `json:"status"`
	Error             string     `json:"error,omitempty"`
}

type reportResponse struct {
	ID        string    `json:"id"`
	Unit      string    `json:"unit"`
	FilePath  string    `json:"file_path"`
	Citations int       `json:"citations"`
	Fallbacks int       `json:"fallbacks"`
	CreatedAt time.Time `json:"created_at"`
}

type runDetailResponse struct {
	Run     runResponse      `json:"run"`
	Reports []reportResponse `json:"reports"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("ok")); err != nil {
		s.logger.Error("failed to write health response", "error", err)
	}
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{
		"service": "intv-comp",
		"status":  "ok",
	})
}

func (s *Server) listRuns(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.respondError(w, http.StatusServiceUnavailable, "run auditing is disabled, set DATABASE_URL")
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			s.respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	runs, err := s.store.ListRuns(r.Context(), limit)
	if err != nil {
		s.logger.Error("failed to list runs", "error", err)
		s.respondError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}

	out := make([]runResponse, len(runs))
	for i, rec := range runs {
		out[i] = toRunResponse(rec)
	}
	s.respondJSON(w, http.StatusOK, out)
}

func (s *Server) getRun(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid run id")
		return
	}

	if s.store == nil {
		s.respondError(w, http.StatusServiceUnavailable, "run auditing is disabled, set DATABASE_URL")
		return
	}

	run, err := s.store.GetRun(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			s.respondError(w, http.StatusNotFound, "run not found")
			return
		}
		s.logger.Error("failed to load run", "run_id", id, "error", err)
		s.respondError(w, http.StatusInternalServerError, "failed to load run")
		return
	}

	reports, err := s.store.ListReports(r.Context(), id)
	if err != nil {
		s.logger.Error("failed to list run reports", "run_id", id, "error", err)
		s.respondError(w, http.StatusInternalServerError, "failed to list run reports")
		return
	}

	detail := runDetailResponse{
		Run:     toRunResponse(*run),
		Reports: make([]reportResponse, len(reports)),
	}
	for i, rec := range reports {
		detail.Reports[i] = reportResponse{
			ID:        rec.ID.String(),
			Unit:      rec.Unit,
			FilePath:  rec.FilePath,
			Citations: rec.Citations,
			Fallbacks: rec.Fallbacks,
			CreatedAt: rec.CreatedAt,
		}
	}
	s.respondJSON(w, http.StatusOK, detail)
}

func toRunResponse(rec store.RunRecord) runResponse {
	return runResponse{
		ID:                rec.ID.String(),
		Mode:              rec.Mode,
		PolicyID:          rec.PolicyID,
		StartedAt:         rec.StartedAt,
		FinishedAt:        rec.FinishedAt,
		TotalMessages:     rec.TotalMessages,
		KeptMessages:      rec.KeptMessages,
		ExcludedMessages:  rec.ExcludedMessages,
		Chunks:            rec.Chunks,
		Reports:           rec.Reports,
		ResolvedCitations: rec.ResolvedCitations,
		FallbackCitations: rec.FallbackCitations,
		Status:            rec.Status,
		Error:             rec.ErrorText,
	}
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, msg string) {
	s.respondJSON(w, status, map[string]string{"error": msg})
}
