// Package statusapi exposes a reduced, read-only operational HTTP surface:
// process liveness and a point-in-time snapshot of risk state, circuit
// breaker state, and crunch-time game membership. There is no graphical
// dashboard, no SSE/websocket push, and no mutating endpoint.
//
// Adapted from the teacher's dashboard API server: the same net/http
// ServeMux-plus-http.Server lifecycle (timeouts, ListenAndServe/Shutdown),
// reduced from a live-streaming UI backend to two GET handlers for
// operators and orchestration probes.
package statusapi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/guaranteebettor/tradebot/internal/riskstate"
)

// AgentHealth reports whether a long-lived agent goroutine is still running.
type AgentHealth struct {
	Name  string `json:"name"`
	Alive bool   `json:"alive"`
}

// Status is the body returned by GET /status.
type Status struct {
	Timestamp       time.Time          `json:"timestamp"`
	Risk            riskstate.Snapshot `json:"risk"`
	BreakerOpen     bool               `json:"breaker_open"`
	CrunchTimeGames []string           `json:"crunch_time_games"`
	Agents          []AgentHealth      `json:"agents"`
}

// Provider supplies the live state Status is built from. cmd/tradebot wires
// this to the actual risk state, breaker, gate and agent liveness flags.
type Provider interface {
	RiskSnapshot() riskstate.Snapshot
	BreakerOpen() bool
	CrunchTimeGames() []string
	AgentHealth() []AgentHealth
}

// Server runs the status HTTP endpoint.
type Server struct {
	provider Provider
	server   *http.Server
	logger   *slog.Logger
}

// New builds a status server listening on port, backed by provider.
func New(port int, provider Provider, logger *slog.Logger) *Server {
	logger = logger.With("component", "status-api")
	mux := http.NewServeMux()

	s := &Server{provider: provider, logger: logger}
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/status", s.handleStatus)

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Start runs the server until Stop is called or it fails to bind. Intended
// to be launched in its own goroutine.
func (s *Server) Start() error {
	s.logger.Info("status server starting", "addr", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("status server: %w", err)
	}
	return nil
}

// Stop gracefully shuts the server down.
func (s *Server) Stop() error {
	s.logger.Info("stopping status server")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := Status{
		Timestamp:       time.Now(),
		Risk:            s.provider.RiskSnapshot(),
		BreakerOpen:     s.provider.BreakerOpen(),
		CrunchTimeGames: s.provider.CrunchTimeGames(),
		Agents:          s.provider.AgentHealth(),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(status); err != nil {
		s.logger.Error("failed to encode status", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
