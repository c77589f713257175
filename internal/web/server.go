// Package web provides an HTTP status server for the plant-light daemon.
package web

import (
	"context"
	"net"
	"net/http"

	"github.com/sweeney/plant-light/internal/status"
)

// Command is a manual request forwarded to the control loop.
type Command int

const (
	// CommandEnable turns automatic control back on.
	CommandEnable Command = iota
	// CommandDisable turns automatic control off and forces the lamp off.
	CommandDisable
	// CommandEvaluate runs a decision tick immediately.
	CommandEvaluate
)

func (c Command) String() string {
	switch c {
	case CommandEnable:
		return "enable"
	case CommandDisable:
		return "disable"
	case CommandEvaluate:
		return "evaluate"
	}
	return "unknown"
}

// Server serves the status page over HTTP.
type Server struct {
	httpServer *http.Server
	tracker    *status.Tracker
	commands   chan<- Command
}

// New creates a Server that reads state from the given tracker. metrics is
// mounted at /metrics when non-nil. commands receives manual control
// requests; when nil the control endpoints are not registered.
func New(addr string, tracker *status.Tracker, metrics http.Handler, commands chan<- Command) *Server {
	s := &Server{tracker: tracker, commands: commands}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/index.html", s.handleIndex)
	mux.HandleFunc("/index.json", s.handleJSON)
	if metrics != nil {
		mux.Handle("/metrics", metrics)
	}
	if commands != nil {
		mux.HandleFunc("/control/enable", s.handleCommand(CommandEnable))
		mux.HandleFunc("/control/disable", s.handleCommand(CommandDisable))
		mux.HandleFunc("/control/evaluate", s.handleCommand(CommandEvaluate))
	}

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: mux,
	}
	return s
}

// ListenAndServe starts listening. It blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on the given listener. Useful for tests.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" && r.URL.Path != "/index.html" {
		http.NotFound(w, r)
		return
	}
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	renderHTML(w, snap)
}

func (s *Server) handleJSON(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	w.Write(status.FormatJSON(snap))
}

// handleCommand queues c for the control loop. The send never blocks: a
// full queue answers 503 so the HTTP goroutine cannot stall the loop.
func (s *Server) handleCommand(c Command) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		select {
		case s.commands <- c:
			w.WriteHeader(http.StatusAccepted)
		default:
			http.Error(w, "control loop busy", http.StatusServiceUnavailable)
		}
	}
}
