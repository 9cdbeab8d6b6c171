// Package web provides the HTTP status and control server for the robot daemon.
package web

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/sweeney/robot-subsystems/internal/feeder"
	"github.com/sweeney/robot-subsystems/internal/launcher"
	"github.com/sweeney/robot-subsystems/internal/robot"
	"github.com/sweeney/robot-subsystems/internal/status"
)

// RequestTimeout bounds how long a control request waits for the loop.
const RequestTimeout = 2 * time.Second

// Server serves the status page and forwards control requests to the loop.
type Server struct {
	httpServer *http.Server
	tracker    *status.Tracker
	requests   chan<- robot.Request
	logger     *zap.SugaredLogger
}

// New creates a Server that reads state from tracker and submits commands
// on requests. With a nil requests channel the control endpoints answer 503.
func New(addr string, tracker *status.Tracker, requests chan<- robot.Request, logger *zap.SugaredLogger) *Server {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	s := &Server{tracker: tracker, requests: requests, logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/index.html", s.handleIndex)
	mux.HandleFunc("/index.json", s.handleJSON)
	mux.HandleFunc("POST /command", s.handleCommand)
	mux.HandleFunc("POST /mode", s.handleMode)
	mux.Handle("/metrics", promhttp.Handler())

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler returns the server's root handler. Useful for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// ListenAndServe starts listening. It blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on the given listener.
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
	if err := renderHTML(w, snap); err != nil {
		s.logger.Warnw("render status page", "error", err)
	}
}

func (s *Server) handleJSON(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	w.Write(status.FormatJSON(snap))
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	var cmd robot.Command
	if !decodeBody(w, r, &cmd) {
		return
	}
	s.submit(w, r, robot.NewCommandRequest(cmd))
}

func (s *Server) handleMode(w http.ResponseWriter, r *http.Request) {
	var body modeRequest
	if !decodeBody(w, r, &body) {
		return
	}
	mode, err := robot.ParseMode(body.Mode)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	s.submit(w, r, robot.NewModeRequest(mode))
}

func (s *Server) submit(w http.ResponseWriter, r *http.Request, req robot.Request) {
	if s.requests == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("control is disabled"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), RequestTimeout)
	defer cancel()

	resp, err := robot.Submit(ctx, s.requests, req)
	if err != nil {
		s.logger.Warnw("control request not handled", "error", err)
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	if resp.Err != nil {
		writeError(w, statusFor(resp.Err), resp.Err)
		return
	}
	writeJSON(w, http.StatusOK, controlResponse{Changed: resp.Changed})
}

// statusFor maps control errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, robot.ErrDisabled), errors.Is(err, robot.ErrModeTransition):
		return http.StatusConflict
	case errors.Is(err, robot.ErrUnknownSubsystem),
		errors.Is(err, robot.ErrUnknownMode),
		errors.Is(err, feeder.ErrUnknownState),
		errors.Is(err, launcher.ErrUnknownState):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
