// Package httpapi implements the HTTP boundary: the bulk JSON, plain-text,
// live-stream, and streaming-HTML operations composed on top of
// internal/query, plus the shared-secret auth gate common to all of them.
package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/coffersTech/logtail/internal/filter"
	"github.com/coffersTech/logtail/internal/query"
)

// Server holds the wiring the teacher's IngestServer held: a query engine,
// a process-wide secret, and an *http.Server whose lifecycle the caller
// drives explicitly (Start/Shutdown), rather than anything it starts
// itself in a constructor.
type Server struct {
	engine  *query.Engine
	secret  string
	logPath string
	srv     *http.Server
}

// NewServer builds a Server serving engine's log file at addr, gated on
// secret.
func NewServer(engine *query.Engine, logPath, secret, addr string) *Server {
	s := &Server{engine: engine, secret: secret, logPath: logPath}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/api/logs", s.handleBulk)
	mux.HandleFunc("/api/logs/raw", s.handleRaw)
	mux.HandleFunc("/api/logs/stream", s.handleStream)
	mux.HandleFunc("/healthz", s.handleHealthz)

	s.srv = &http.Server{Addr: addr, Handler: mux}
	return s
}

// Start runs the HTTP server until it is shut down or fails to bind.
func (s *Server) Start() error {
	log.Printf("httpapi: listening on %s", s.srv.Addr)
	return s.srv.ListenAndServe()
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// authorize checks the pwd query parameter against the configured secret,
// writing the 401/500 response itself on failure.
func (s *Server) authorize(w http.ResponseWriter, r *http.Request) bool {
	if s.secret == "" {
		http.Error(w, `{"error":"server misconfigured: no password set"}`, http.StatusInternalServerError)
		return false
	}
	if !checkSecret(r.URL.Query().Get("pwd"), s.secret) {
		http.Error(w, "", http.StatusUnauthorized)
		return false
	}
	return true
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if s.logPath == "" {
		http.Error(w, "log file path not configured", http.StatusInternalServerError)
		return
	}
	if _, err := os.Stat(s.logPath); err != nil {
		http.Error(w, "log file not accessible", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

type bulkResponse struct {
	Logs    []map[string]any `json:"logs"`
	Count   int              `json:"count"`
	Total   int              `json:"total"`
	HasMore bool             `json:"hasMore"`
}

func (s *Server) handleBulk(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(w, r) {
		return
	}
	spec := parseSpec(r)
	page, err := s.engine.Bulk(spec)
	if err != nil {
		writeJSONError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	out, closeOut := gzipWriter(w, r)
	defer closeOut()

	resp := bulkResponse{
		Logs:    toWireMaps(page.Records),
		Count:   len(page.Records),
		Total:   page.Total,
		HasMore: page.HasMore,
	}
	if err := json.NewEncoder(out).Encode(resp); err != nil {
		log.Printf("httpapi: bulk encode error: %v", err)
	}
}

func (s *Server) handleRaw(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(w, r) {
		return
	}
	spec := parseSpec(r)
	page, err := s.engine.Bulk(spec)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	out, closeOut := gzipWriter(w, r)
	defer closeOut()

	io.WriteString(out, formatHeader(page, spec))
	for _, rec := range page.Records {
		io.WriteString(out, formatPlainLine(rec))
		io.WriteString(out, "\n")
	}
}

func formatHeader(page query.Page, spec filter.Spec) string {
	return fmt.Sprintf("# total=%d count=%d offset=%d hasMore=%v\n",
		page.Total, len(page.Records), spec.Offset, page.HasMore)
}

func writeJSONError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

func gzipWriter(w http.ResponseWriter, r *http.Request) (io.Writer, func()) {
	if !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
		return w, func() {}
	}
	w.Header().Set("Content-Encoding", "gzip")
	gz := gzip.NewWriter(w)
	return gz, func() { gz.Close() }
}
