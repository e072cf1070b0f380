// Package server exposes the backup triggers over HTTP.
package server

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"flickrbackup/pkg/catalog"
	"flickrbackup/pkg/errors"
	"flickrbackup/pkg/logger"
	"flickrbackup/pkg/pipeline"
	"flickrbackup/pkg/syncstate"
	"flickrbackup/pkg/ui"
)

// Backup is the set of triggers the server can fire
type Backup interface {
	Full(ctx context.Context) (pipeline.FanOutReport, error)
	Set(ctx context.Context, setID string) (int, error)
	NotInSet(ctx context.Context) (int, error)
	Recent(ctx context.Context) (syncstate.Report, error)
	Year(ctx context.Context, year int) (string, int, error)
	Dump(ctx context.Context, path string) (catalog.Dump, error)
	ByYear(ctx context.Context, path string, year int) (int, error)
	Summary(command string, elapsed time.Duration) ui.RunSummary
}

// Server is a thin wrapper over chi and http.Server
type Server struct {
	backup   Backup
	dumpPath string
	started  time.Time
	logger   logger.Logger
	srv      *http.Server
}

// New creates a server listening on addr. dumpPath is where /backup/all
// writes and /backup/byYear reads the library listing.
func New(addr, dumpPath string, backup Backup, log logger.Logger) *Server {
	if log == nil {
		log = logger.GetLogger()
	}
	s := &Server{
		backup:   backup,
		dumpPath: dumpPath,
		started:  time.Now(),
		logger:   log.WithField("component", "http"),
	}
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Router configures all routes. Triggers answer to GET as well as POST so
// they can be fired from a browser or curl alike.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})
	r.Get("/stats", s.handleStats)

	r.Route("/backup", func(r chi.Router) {
		trigger := func(pattern string, h http.HandlerFunc) {
			r.Get(pattern, h)
			r.Post(pattern, h)
		}
		trigger("/full", s.handleFull)
		trigger("/notinset", s.handleNotInSet)
		trigger("/recent", s.handleRecent)
		trigger("/set/{setID}", s.handleSet)
		trigger("/year/{year}", s.handleYear)
		trigger("/all", s.handleAll)
		trigger("/byYear/{year}", s.handleByYear)
	})

	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", s.srv.Addr).Info("HTTP listening")
		errCh <- s.srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if stderrors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleFull(w http.ResponseWriter, r *http.Request) {
	report, err := s.backup.Full(r.Context())
	if err != nil {
		s.writeFailure(w, "full", err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{
		"sets":      report.Sets,
		"pages":     report.Pages,
		"downloads": report.Downloads,
	})
}

func (s *Server) handleNotInSet(w http.ResponseWriter, r *http.Request) {
	n, err := s.backup.NotInSet(r.Context())
	if err != nil {
		s.writeFailure(w, "notinset", err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"downloads": n})
}

func (s *Server) handleRecent(w http.ResponseWriter, r *http.Request) {
	report, err := s.backup.Recent(r.Context())
	if err != nil {
		s.writeFailure(w, "recent", err)
		return
	}
	body := map[string]any{
		"published":  report.Published,
		"new_cursor": report.NewCursor,
		"persisted":  report.Persisted,
	}
	if report.Since != nil {
		body["since"] = *report.Since
	}
	writeJSON(w, http.StatusAccepted, body)
}

func (s *Server) handleSet(w http.ResponseWriter, r *http.Request) {
	setID := chi.URLParam(r, "setID")
	pages, err := s.backup.Set(r.Context(), setID)
	if err != nil {
		s.writeFailure(w, "set", err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"set_id": setID, "pages": pages})
}

func (s *Server) handleYear(w http.ResponseWriter, r *http.Request) {
	year, ok := parseYear(w, r)
	if !ok {
		return
	}
	setID, n, err := s.backup.Year(r.Context(), year)
	if err != nil {
		s.writeFailure(w, "year", err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"year": year, "set_id": setID, "assignments": n})
}

func (s *Server) handleAll(w http.ResponseWriter, r *http.Request) {
	dump, err := s.backup.Dump(r.Context(), s.dumpPath)
	if err != nil {
		s.writeFailure(w, "all", err)
		return
	}
	writeJSON(w, http.StatusOK, dump)
}

func (s *Server) handleByYear(w http.ResponseWriter, r *http.Request) {
	year, ok := parseYear(w, r)
	if !ok {
		return
	}
	if s.dumpPath == "" {
		writeError(w, http.StatusConflict, "no dump path configured")
		return
	}
	n, err := s.backup.ByYear(r.Context(), s.dumpPath, year)
	if err != nil {
		s.writeFailure(w, "byYear", err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"year": year, "downloads": n})
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	summary := s.backup.Summary("serve", time.Since(s.started))
	writeJSON(w, http.StatusOK, map[string]any{
		"uptime_seconds": int64(summary.Elapsed.Seconds()),
		"saved":          summary.Saved,
		"dead_letters":   summary.DeadLetters,
		"topics":         summary.Topics,
	})
}

func parseYear(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := chi.URLParam(r, "year")
	year, err := strconv.Atoi(raw)
	if err != nil || year < 1800 || year > 9999 {
		writeError(w, http.StatusBadRequest, "invalid year %q", raw)
		return 0, false
	}
	return year, true
}

func (s *Server) writeFailure(w http.ResponseWriter, trigger string, err error) {
	status := statusFor(err)
	s.logger.WithError(err).WithFields(map[string]interface{}{
		"trigger": trigger,
		"status":  status,
	}).Error("Trigger failed")
	writeError(w, status, "%s", err.Error())
}

// statusFor maps pipeline errors onto HTTP statuses
func statusFor(err error) int {
	if stderrors.Is(err, pipeline.ErrNoPhotos) {
		return http.StatusNotFound
	}
	switch errors.TypeOf(err) {
	case errors.ErrorTypeNotFound:
		return http.StatusNotFound
	case errors.ErrorTypeRateLimit:
		return http.StatusTooManyRequests
	case errors.ErrorTypeRemoteTransport, errors.ErrorTypeMalformedResponse, errors.ErrorTypeAuth:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.DebugWithFields("Request served", map[string]interface{}{
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     ww.Status(),
			"duration":   time.Since(start),
			"request_id": middleware.GetReqID(r.Context()),
		})
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(payload)
}

func writeError(w http.ResponseWriter, status int, format string, args ...any) {
	writeJSON(w, status, map[string]any{
		"error": map[string]any{
			"message": fmt.Sprintf(format, args...),
			"status":  status,
		},
	})
}
