package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"i4.energy/across/tellogw/tello"
)

// Server handles incoming HTTP requests for controlling the drone through
// the configured bridge
type Server struct {
	Logger *slog.Logger
	Bridge *Bridge
	// Metrics serves /metrics when set
	Metrics http.Handler
}

// ServeHTTP implements the http.Handler interface for the Server struct
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /connect", s.handleConnect)
	mux.HandleFunc("GET /wifi", s.handleWiFi)
	mux.HandleFunc("POST /command", s.handleCommand)
	mux.HandleFunc("POST /motion/start", s.handleMotionStart)
	mux.HandleFunc("POST /motion/stop", s.handleMotionStop)
	mux.HandleFunc("GET /status", s.handleStatus)
	if s.Metrics != nil {
		mux.Handle("GET /metrics", s.Metrics)
	}
	mux.ServeHTTP(w, r)
}

func (s *Server) sendError(w http.ResponseWriter, message string, statusCode int) {
	if message == "" {
		w.WriteHeader(statusCode)
		return
	}

	type ErrorResponse struct {
		Message string `json:"message"`
	}
	resp := ErrorResponse{Message: message}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(resp)

}

func (s *Server) sendJSON(w http.ResponseWriter, v any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(v)
}

// errorStatus maps bridge errors to HTTP status codes
func errorStatus(err error) int {
	switch {
	case errors.Is(err, ErrBusy):
		return http.StatusConflict
	case errors.Is(err, ErrNoSensor):
		return http.StatusServiceUnavailable
	case errors.Is(err, tello.ErrInvalidState):
		return http.StatusConflict
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// handleConnect runs the connection sequence, or a single step of it
func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	type ConnectRequest struct {
		Step    bool `json:"step"`
		Restart bool `json:"restart"`
	}
	type ConnectResponse struct {
		State tello.ConnectionState `json:"state"`
		Steps []tello.StepResult    `json:"steps"`
	}

	var req ConnectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		s.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	state, steps, err := s.Bridge.Connect(r.Context(), req.Step, req.Restart)
	if errors.Is(err, tello.ErrSequenceComplete) {
		s.sendJSON(w, ConnectResponse{State: state, Steps: steps}, http.StatusOK)
		return
	}
	if err != nil {
		s.Logger.Error("Connection sequence failed", "error", err, "state", state)
		s.sendError(w, err.Error(), errorStatus(err))
		return
	}

	s.Logger.Info("Connection sequence advanced", "state", state, "steps", len(steps))
	s.sendJSON(w, ConnectResponse{State: state, Steps: steps}, http.StatusOK)
}

// handleWiFi reports whether the modem is associated with an access point
func (s *Server) handleWiFi(w http.ResponseWriter, r *http.Request) {
	type WiFiResponse struct {
		Connected bool   `json:"connected"`
		Reply     string `json:"reply"`
	}

	connected, reply, err := s.Bridge.WiFi(r.Context())
	if err != nil {
		s.Logger.Error("Wi-Fi check failed", "error", err)
		s.sendError(w, err.Error(), errorStatus(err))
		return
	}
	s.sendJSON(w, WiFiResponse{Connected: connected, Reply: reply}, http.StatusOK)
}

// handleCommand sends one drone command. A timed out or rejected command is
// reported with 504 or 502 and the same body as a successful one.
func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	type CommandRequest struct {
		Command string `json:"command"`
	}
	type CommandResponse struct {
		Command string        `json:"command"`
		Status  string        `json:"status"`
		Reply   string        `json:"reply,omitempty"`
		Display tello.Display `json:"display"`
	}

	var req CommandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	if req.Command == "" {
		s.sendError(w, "'command' field is required", http.StatusBadRequest)
		return
	}

	cmd, err := tello.ParseCommand(req.Command)
	if err != nil {
		s.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	res, err := s.Bridge.Execute(r.Context(), cmd)
	if err != nil {
		s.Logger.Error("Failed to execute drone command", "error", err, "command", cmd.String())
		s.sendError(w, err.Error(), errorStatus(err))
		return
	}

	code := http.StatusOK
	switch res.Status {
	case tello.Timeout:
		code = http.StatusGatewayTimeout
	case tello.Rejected:
		code = http.StatusBadGateway
	}

	s.Logger.Info("Drone command executed", "command", cmd.String(), "status", res.Status)
	s.sendJSON(w, CommandResponse{
		Command: cmd.String(),
		Status:  res.Status.String(),
		Reply:   res.Text,
		Display: tello.DisplayFor(res),
	}, code)
}

func (s *Server) handleMotionStart(w http.ResponseWriter, r *http.Request) {
	if err := s.Bridge.StartMotion(); err != nil {
		s.sendError(w, err.Error(), errorStatus(err))
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleMotionStop(w http.ResponseWriter, r *http.Request) {
	if !s.Bridge.StopMotion() {
		s.sendError(w, "motion control is not running", http.StatusConflict)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.sendJSON(w, s.Bridge.Status(), http.StatusOK)
}
