// Package api serves overlap runs and queries over HTTP.
package api

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/banshee-data/overlap/internal/camera"
	"github.com/banshee-data/overlap/internal/httputil"
	"github.com/banshee-data/overlap/internal/query"
	"github.com/banshee-data/overlap/internal/storage/sqlite"
	"github.com/banshee-data/overlap/internal/version"
)

// ANSI escape codes for cyan and reset
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

// Server answers overlap queries against runs held in a Store.
type Server struct {
	store  *sqlite.Store
	engine *query.Engine
	rig    *camera.Rig

	// RecordQueries persists every successful query when set.
	RecordQueries bool
}

// NewServer creates a Server. rig supplies image sizes for the debug
// charts and may be nil.
func NewServer(store *sqlite.Store, engine *query.Engine, rig *camera.Rig) *Server {
	return &Server{
		store:         store,
		engine:        engine,
		rig:           rig,
		RecordQueries: true,
	}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
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
		log.Printf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

// ServeMux returns a mux with every API and debug route registered.
func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/version", s.showVersion)
	mux.HandleFunc("/api/overlap/runs", s.listRuns)
	mux.HandleFunc("/api/overlap/relation", s.showRelation)
	mux.HandleFunc("/api/overlap/strips", s.showStrips)
	mux.HandleFunc("/api/overlap/query", s.runQuery)
	mux.HandleFunc("/api/overlap/queries", s.listQueries)
	mux.HandleFunc("/debug/overlap/chart", s.handleStripChart)
	mux.HandleFunc("/debug/overlap/overlay.png", s.handleOverlay)
	return mux
}

func (s *Server) showVersion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	httputil.WriteJSONOK(w, version.Info())
}
