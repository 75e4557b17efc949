// Package server exposes submissions and their analyses over a JSON HTTP API.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"artifact_dashboard/internal/analysis"
	"artifact_dashboard/internal/db"
	"artifact_dashboard/internal/ingest"
	"artifact_dashboard/internal/similarity"
	"artifact_dashboard/internal/workspace"
)

type Store interface {
	GetSubmission(ctx context.Context, id string) (db.Submission, error)
	ListSubmissions(ctx context.Context, limit int) ([]db.Submission, error)
	GetAnalysis(ctx context.Context, submissionID string) (db.Analysis, error)
	RecentAnalyses(ctx context.Context, limit int) ([]db.AnalysisRow, error)
	Stats(ctx context.Context) (db.Stats, error)
}

type Analyzer interface {
	Submit(ctx context.Context, in analysis.NewSubmission) (analysis.Record, error)
	Analyze(ctx context.Context, submissionID string) (analysis.Record, error)
}

type Options struct {
	MaxUploadBytes int64
	// UploadRoot is the workspace root that receives original uploads.
	UploadRoot string
}

type Server struct {
	store    Store
	analyzer Analyzer
	logger   *zap.Logger
	opts     Options
}

func New(store Store, analyzer Analyzer, logger *zap.Logger, opts Options) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 10 << 20
	}
	return &Server{store: store, analyzer: analyzer, logger: logger, opts: opts}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("POST /api/submissions", s.handleCreate)
	mux.HandleFunc("GET /api/submissions", s.handleList)
	mux.HandleFunc("GET /api/submissions/{id}", s.handleGet)
	mux.HandleFunc("POST /api/submissions/{id}/analyze", s.handleAnalyze)
	mux.HandleFunc("GET /api/dashboard", s.handleDashboard)
	return s.logRequests(mux)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type createRequest struct {
	Title   string `json:"title"`
	Kind    string `json:"kind"`
	Content string `json:"content"`
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		s.handleUpload(w, r)
		return
	}

	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, badRequest("decode request: "+err.Error(), err))
		return
	}
	kind := strings.TrimSpace(req.Kind)
	if kind == "" {
		kind = ingest.KindFor(req.Title)
	}
	rec, err := s.analyzer.Submit(r.Context(), analysis.NewSubmission{
		Title:   req.Title,
		Kind:    kind,
		Content: req.Content,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(s.opts.MaxUploadBytes); err != nil {
		s.writeError(w, r, badRequest("parse upload: "+err.Error(), err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, r, badRequest("missing file field", err))
		return
	}
	defer file.Close()
	raw, err := io.ReadAll(file)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	parsed, err := ingest.ParseBytes(header.Filename, raw)
	if err != nil {
		s.writeError(w, r, badRequest(err.Error(), err))
		return
	}
	title := r.FormValue("title")
	if strings.TrimSpace(title) == "" {
		title = parsed.Title
	}
	rec, err := s.analyzer.Submit(r.Context(), analysis.NewSubmission{
		Title:      title,
		Kind:       parsed.Kind,
		SourceName: parsed.SourceName,
		Content:    parsed.Text,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if s.opts.UploadRoot != "" {
		if _, err := workspace.StoreUpload(s.opts.UploadRoot, rec.SubmissionID, parsed.SourceName, raw); err != nil {
			s.logger.Warn("store upload", zap.String("submission_id", rec.SubmissionID), zap.Error(err))
		}
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			s.writeError(w, r, badRequest("limit must be a positive integer", err))
			return
		}
		limit = min(n, 500)
	}
	subs, err := s.store.ListSubmissions(r.Context(), limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"submissions": subs})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	sub, err := s.store.GetSubmission(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	resp := struct {
		Submission db.Submission `json:"submission"`
		Analysis   *db.Analysis  `json:"analysis"`
	}{Submission: sub}

	a, err := s.store.GetAnalysis(r.Context(), id)
	switch {
	case errors.Is(err, db.ErrNotFound):
	case err != nil:
		s.writeError(w, r, err)
		return
	default:
		resp.Analysis = &a
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	rec, err := s.analyzer.Analyze(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Stats(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	recent, err := s.store.RecentAnalyses(r.Context(), 10)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"stats": stats, "recent": recent})
}

type requestError struct {
	msg string
	err error
}

func (e *requestError) Error() string { return e.msg }
func (e *requestError) Unwrap() error { return e.err }

func badRequest(msg string, err error) error {
	return &requestError{msg: msg, err: err}
}

func statusFor(err error) int {
	var tooLarge *http.MaxBytesError
	var invalid *similarity.InvalidInputError
	var reqErr *requestError
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, db.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, analysis.ErrEmptySubmission),
		errors.Is(err, ingest.ErrUnsupported),
		errors.As(err, &invalid),
		errors.As(err, &reqErr):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
		msg = "internal error"
	}
	if status == http.StatusRequestEntityTooLarge {
		msg = "upload exceeds size limit"
	}
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("elapsed", time.Since(started)),
		)
	})
}
