// Package health serves the /healthz endpoint for the bot process.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"
)

// Check reports whether one dependency is usable. A nil error means healthy.
type Check func(ctx context.Context) error

// Server provides an HTTP health check endpoint.
// Every registered check must pass for the process to report healthy.
type Server struct {
	server *http.Server

	mu     sync.RWMutex
	checks map[string]Check
}

// Response represents the JSON response from the /healthz endpoint.
type Response struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// NewServer creates a health server listening on all interfaces at port.
func NewServer(port int) *Server {
	mux := http.NewServeMux()
	s := &Server{
		server: &http.Server{
			Addr:         fmt.Sprintf(":%d", port),
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 5 * time.Second,
		},
		checks: make(map[string]Check),
	}

	mux.HandleFunc("/healthz", s.handleHealthz)

	return s
}

// AddCheck registers a named dependency check. Re-using a name replaces it.
func (s *Server) AddCheck(name string, check Check) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checks[name] = check
}

// Start binds the port and serves in a background goroutine.
// Returns an error if the port cannot be bound.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.server.Addr, err)
	}

	go func() {
		log.Printf("[DEBUG] Health server starting on %s", s.server.Addr)
		if err := s.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			log.Printf("[ERROR] Health server error: %v", err)
		}
		log.Printf("[DEBUG] Health server stopped")
	}()

	return nil
}

// Shutdown gracefully stops the server, waiting for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Printf("[DEBUG] Shutting down health server...")
	return s.server.Shutdown(ctx)
}

// Handler exposes the mux for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// handleHealthz returns 200 {"status":"healthy"} when every check passes,
// otherwise 503 with the failing checks listed in error.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	failures := s.runChecks(ctx)

	response := Response{Status: "healthy"}
	statusCode := http.StatusOK
	if len(failures) > 0 {
		response = Response{Status: "unhealthy", Error: strings.Join(failures, "; ")}
		statusCode = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.Printf("[ERROR] Failed to encode health response: %v", err)
	}
}

func (s *Server) runChecks(ctx context.Context) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var failures []string
	for name, check := range s.checks {
		if err := check(ctx); err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", name, err))
		}
	}
	sort.Strings(failures)
	return failures
}
