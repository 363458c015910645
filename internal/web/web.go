package web

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"rsjpcal/internal/config"
	appLog "rsjpcal/internal/log"
	"rsjpcal/internal/model"
	"rsjpcal/internal/store"
	"rsjpcal/internal/vocab"
)

// Planner is the part of the planner service the HTTP surface reads from.
type Planner interface {
	Programs(ctx context.Context) ([]model.Program, error)
	Program(ctx context.Context, id string) (model.Program, error)
	Events(ctx context.Context, programID string) ([]model.Event, error)
	ExportCSV(ctx context.Context, programID string, w io.Writer) error
	ExportFeed(ctx context.Context, programID string, lang vocab.Lang, w io.Writer) error
	ExportGrid(ctx context.Context, programID string, lang vocab.Lang, w io.Writer) error
}

// Server exposes programs, events and exports over HTTP.
type Server struct {
	planner Planner
	auth    *config.BasicAuthConfig
	mux     *http.ServeMux
}

// NewServer constructs a Server. A nil or incomplete auth disables basic
// auth.
func NewServer(p Planner, auth *config.BasicAuthConfig) *Server {
	s := &Server{
		planner: p,
		auth:    auth,
		mux:     http.NewServeMux(),
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := logRequests(s.mux)
	if s.basicAuthEnabled() {
		return s.basicAuthMiddleware(h)
	}
	return h
}

// Serve listens on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+addr, "basic_auth", s.basicAuthEnabled())
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		appLog.Info("shutting down HTTP server")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) basicAuthEnabled() bool {
	return s.auth != nil && s.auth.Username != "" && s.auth.Password != ""
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.auth.Username
	password := s.auth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="rsjpcal", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /api/programs", s.handlePrograms)
	s.mux.HandleFunc("GET /api/programs/{id}", s.handleProgram)
	s.mux.HandleFunc("GET /api/programs/{id}/events", s.handleEvents)
	s.mux.HandleFunc("GET /export/{id}/schedule.csv", s.handleCSV)
	s.mux.HandleFunc("GET /export/{id}/schedule.ics", s.handleFeed)
	s.mux.HandleFunc("GET /export/{id}/grid.html", s.handleGrid)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

type programSummary struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Kind      model.ProgramKind `json:"kind"`
	StartDate string            `json:"start_date"`
	EndDate   string            `json:"end_date"`
	UpdatedAt time.Time         `json:"updated_at"`
}

func (s *Server) handlePrograms(w http.ResponseWriter, r *http.Request) {
	programs, err := s.planner.Programs(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	out := make([]programSummary, 0, len(programs))
	for _, p := range programs {
		out = append(out, programSummary{
			ID:        p.ID,
			Name:      p.Name,
			Kind:      p.Kind,
			StartDate: p.StartDate,
			EndDate:   p.EndDate,
			UpdatedAt: p.UpdatedAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleProgram(w http.ResponseWriter, r *http.Request) {
	p, err := s.planner.Program(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

type eventsResponse struct {
	ProgramID string        `json:"program_id"`
	Events    []model.Event `json:"events"`
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	events, err := s.planner.Events(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if date := r.URL.Query().Get("date"); date != "" {
		filtered := make([]model.Event, 0)
		for _, e := range events {
			if e.Date == date {
				filtered = append(filtered, e)
			}
		}
		events = filtered
	}
	writeJSON(w, http.StatusOK, eventsResponse{ProgramID: id, Events: events})
}

func (s *Server) handleCSV(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	s.writeExport(w, "text/csv; charset=utf-8", id+".csv", func(buf io.Writer) error {
		return s.planner.ExportCSV(r.Context(), id, buf)
	})
}

func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	lang := requestLang(r)
	s.writeExport(w, "text/calendar; charset=utf-8", "", func(buf io.Writer) error {
		return s.planner.ExportFeed(r.Context(), id, lang, buf)
	})
}

func (s *Server) handleGrid(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	lang := requestLang(r)
	s.writeExport(w, "text/html; charset=utf-8", "", func(buf io.Writer) error {
		return s.planner.ExportGrid(r.Context(), id, lang, buf)
	})
}

// writeExport renders into memory first so failures still get a proper
// status code.
func (s *Server) writeExport(w http.ResponseWriter, contentType, attachment string, render func(io.Writer) error) {
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		writeServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", contentType)
	if attachment != "" {
		w.Header().Set("Content-Disposition", `attachment; filename="`+attachment+`"`)
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// requestLang reads ?lang=; an absent value leaves the configured default.
func requestLang(r *http.Request) vocab.Lang {
	v := r.URL.Query().Get("lang")
	if v == "" {
		return ""
	}
	return vocab.ParseLang(v)
}

func writeServiceError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	appLog.Error("request failed", err)
	writeError(w, http.StatusInternalServerError, "internal error")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		appLog.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"took", time.Since(started).String(),
		)
	})
}
