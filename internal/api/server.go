package api

import (
	"errors"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/banshee-data/rinkspeed/internal/db"
	"github.com/banshee-data/rinkspeed/internal/httputil"
	"github.com/banshee-data/rinkspeed/internal/monitoring"
	"github.com/banshee-data/rinkspeed/internal/pipeline"
	"github.com/banshee-data/rinkspeed/internal/security"
	"github.com/banshee-data/rinkspeed/internal/units"
)

// ANSI escape codes for cyan and reset
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

// Server exposes stored runs and their output files over HTTP.
type Server struct {
	db        *db.DB
	outputDir string
}

// NewServer returns a Server reading runs from d. Files under outputDir are
// served at /files/.
func NewServer(d *db.DB, outputDir string) *Server {
	return &Server{db: d, outputDir: outputDir}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, query, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		monitoring.Logf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/runs", s.listRuns)
	mux.HandleFunc("/api/runs/{id}", s.runHandler)
	mux.HandleFunc("/api/runs/{id}/frames", s.listFrames)
	mux.HandleFunc("/api/runs/{id}/players", s.playerStats)
	mux.HandleFunc("/api/runs/{id}/export", s.exportRun)
	mux.HandleFunc("/api/runs/{id}/recompute", s.recomputeRun)
	mux.HandleFunc("/files/", s.serveFile)
	return mux
}

func (s *Server) listRuns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	runs, err := s.db.ListRuns(r.Context())
	if err != nil {
		httputil.InternalServerError(w, "Failed to list runs")
		return
	}
	if runs == nil {
		runs = []db.Run{}
	}
	httputil.WriteJSONOK(w, runs)
}

func (s *Server) runHandler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	switch r.Method {
	case http.MethodGet:
		run, err := s.db.GetRun(r.Context(), id)
		if s.lookupFailed(w, err) {
			return
		}
		httputil.WriteJSONOK(w, run)
	case http.MethodDelete:
		if err := s.db.DeleteRun(r.Context(), id); s.lookupFailed(w, err) {
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		httputil.MethodNotAllowed(w)
	}
}

func (s *Server) listFrames(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	frames, err := s.db.GetFrames(r.Context(), r.PathValue("id"))
	if s.lookupFailed(w, err) {
		return
	}

	q := r.URL.Query()
	from, err := intParam(q.Get("from"), 0)
	if err != nil {
		httputil.BadRequest(w, "Invalid 'from' parameter")
		return
	}
	to, err := intParam(q.Get("to"), -1)
	if err != nil {
		httputil.BadRequest(w, "Invalid 'to' parameter")
		return
	}
	out := frames[:0]
	for _, f := range frames {
		if f.FrameIndex < from || (to >= 0 && f.FrameIndex > to) {
			continue
		}
		out = append(out, f)
	}
	httputil.WriteJSONOK(w, out)
}

func (s *Server) playerStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	id := r.PathValue("id")
	if _, err := s.db.GetRun(r.Context(), id); s.lookupFailed(w, err) {
		return
	}
	stats, err := s.db.PlayerStats(r.Context(), id)
	if err != nil {
		httputil.InternalServerError(w, "Failed to aggregate players")
		return
	}
	if stats == nil {
		stats = []db.PlayerStats{}
	}
	httputil.WriteJSONOK(w, stats)
}

// exportRun returns the run as a tracking data document.
func (s *Server) exportRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	id := r.PathValue("id")
	data, err := s.db.LoadTrackingData(r.Context(), id)
	if s.lookupFailed(w, err) {
		return
	}
	name := security.SanitizeFilename(id)
	w.Header().Set("Content-Disposition", `attachment; filename="run_`+name+`.json"`)
	httputil.WriteJSONOK(w, data)
}

// recomputeRun re-derives a run's metrics with optional parameter overrides
// (units, window, scale, fps). The stored run is not changed.
func (s *Server) recomputeRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	data, err := s.db.LoadTrackingData(r.Context(), r.PathValue("id"))
	if s.lookupFailed(w, err) {
		return
	}

	p := data.Params.Params()
	q := r.URL.Query()
	if u := q.Get("units"); u != "" {
		if !units.IsValid(u) {
			httputil.BadRequest(w, "Invalid 'units' parameter. Must be one of: "+units.GetValidUnitsString())
			return
		}
		p.SpeedUnits = u
	}
	if v := q.Get("window"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			httputil.BadRequest(w, "Invalid 'window' parameter")
			return
		}
		p.WindowSize = n
	}
	if v := q.Get("scale"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			httputil.BadRequest(w, "Invalid 'scale' parameter")
			return
		}
		p.SpatialScale = f
	}
	if v := q.Get("fps"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			httputil.BadRequest(w, "Invalid 'fps' parameter")
			return
		}
		p.FPS = f
	}

	out, err := pipeline.Recompute(data, &p)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	httputil.WriteJSONOK(w, out)
}

// serveFile serves run artifacts from the output directory.
func (s *Server) serveFile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		httputil.MethodNotAllowed(w)
		return
	}
	if s.outputDir == "" {
		httputil.NotFound(w, "No output directory configured")
		return
	}
	rel := strings.TrimPrefix(r.URL.Path, "/files/")
	path := filepath.Join(s.outputDir, filepath.FromSlash(rel))
	if err := security.ValidatePathWithinDirectory(path, s.outputDir); err != nil {
		monitoring.Debugf("rejected file request %q: %v", r.URL.Path, err)
		httputil.Forbidden(w)
		return
	}
	http.ServeFile(w, r, path)
}

// lookupFailed writes the response for a failed run lookup and reports
// whether one was written.
func (s *Server) lookupFailed(w http.ResponseWriter, err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, db.ErrNotFound):
		httputil.NotFound(w, "Run not found")
	default:
		monitoring.Logf("run lookup: %v", err)
		httputil.InternalServerError(w, "Failed to load run")
	}
	return true
}

func intParam(v string, def int) (int, error) {
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}
