package status

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
)

// Snapshot is the JSON document served by /status.
type Snapshot struct {
	Devices    []string `json:"devices"`
	Experiment string   `json:"experiment,omitempty"`
	RunID      string   `json:"run_id,omitempty"`
	Step       int      `json:"step"`
	Total      int      `json:"total"`
	State      string   `json:"state"`
}

// Server is the instrument's HTTP surface. Stop requests cancel the current
// run context through the stop callback.
type Server struct {
	logger *slog.Logger
	hub    *Hub
	stop   func()

	mu       sync.Mutex
	snapshot Snapshot

	httpServer *http.Server
}

// NewServer creates a Server publishing live data from hub. stop is invoked
// on POST /stop and may be nil.
func NewServer(logger *slog.Logger, hub *Hub, stop func()) *Server {
	return &Server{logger: logger, hub: hub, stop: stop, snapshot: Snapshot{State: "idle"}}
}

// SetSnapshot replaces the /status document.
func (s *Server) SetSnapshot(snap Snapshot) {
	s.mu.Lock()
	s.snapshot = snap
	s.mu.Unlock()
}

// UpdateSnapshot applies fn to the current /status document.
func (s *Server) UpdateSnapshot(fn func(*Snapshot)) {
	s.mu.Lock()
	fn(&s.snapshot)
	s.mu.Unlock()
}

// Start runs the HTTP server on the given port until Shutdown is called.
func (s *Server) Start(port int) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("GET /live", s.handleLive)
	mux.HandleFunc("POST /stop", s.handleStop)

	addr := fmt.Sprintf(":%d", port)
	s.httpServer = &http.Server{Addr: addr, Handler: mux}

	go func() {
		s.logger.Info("Status server starting.", "address", fmt.Sprintf("http://localhost%s/status", addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Status server failed unexpectedly.", "error", err)
		}
	}()
}

// Shutdown stops the HTTP server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.logger.Debug("Health check endpoint hit.", "remote_addr", r.RemoteAddr)
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "OK")
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	snap := s.snapshot
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(snap); err != nil {
		s.logger.Warn("Failed to write status response.", "error", err)
	}
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	s.logger.Info("Stop requested over HTTP.", "remote_addr", r.RemoteAddr)
	if s.stop != nil {
		s.stop()
	}
	w.WriteHeader(http.StatusAccepted)
	fmt.Fprintln(w, "stopping")
}

// handleLive upgrades to a websocket and forwards hub events until the
// client goes away.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.logger.Warn("Websocket accept failed.", "error", err)
		return
	}
	defer conn.CloseNow()

	ch := s.hub.subscribe()
	defer s.hub.unsubscribe(ch)
	s.logger.Debug("Live stream subscriber attached.", "remote_addr", r.RemoteAddr)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "server shutting down")
			return
		case raw := <-ch:
			if err := conn.Write(ctx, websocket.MessageText, raw); err != nil {
				return
			}
		}
	}
}
