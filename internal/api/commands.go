package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/nerrad567/gray-logic-firecracker/internal/bridges/firecracker"
)

// commandRequest is the body of POST /commands.
type commandRequest struct {
	House   string `json:"house"`
	Unit    int    `json:"unit"`
	Command string `json:"command"`
}

// handleDeviceCommand switches a registered device: POST /devices/{id}/{on|off}.
func (s *Server) handleDeviceCommand(w http.ResponseWriter, r *http.Request) {
	on, ok := parseOnOff(chi.URLParam(r, "command"))
	if !ok {
		writeError(w, r, ErrCodeBadRequest, "command must be \"on\" or \"off\"")
		return
	}

	s.execute(w, r, firecracker.CommandRequest{
		DeviceID: chi.URLParam(r, "id"),
		On:       on,
	})
}

// handleCommand switches a module by raw address.
func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	var req commandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	on, ok := parseOnOff(req.Command)
	if !ok {
		writeError(w, r, ErrCodeBadRequest, "command must be \"on\" or \"off\"")
		return
	}
	if strings.TrimSpace(req.House) == "" {
		writeError(w, r, ErrCodeBadRequest, "house is required")
		return
	}

	s.execute(w, r, firecracker.CommandRequest{
		House: req.House,
		Unit:  req.Unit,
		On:    on,
	})
}

// execute runs the command synchronously; the response is sent once the
// frame is on the lines.
func (s *Server) execute(w http.ResponseWriter, r *http.Request, req firecracker.CommandRequest) {
	req.ID = uuid.NewString()
	req.Source = requestSource(r)

	result, err := s.bridge.Execute(r.Context(), req)
	if err != nil {
		s.logger.Warn("command failed",
			"command_id", req.ID,
			"device_id", req.DeviceID,
			"error", err,
			"request_id", requestIDFrom(r.Context()),
		)
		writeCommandError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// writeCommandError maps transmitter errors to HTTP responses.
func writeCommandError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, firecracker.ErrUnknownDevice):
		writeError(w, r, ErrCodeNotFound, "device not found")
	case errors.Is(err, firecracker.ErrInvalidHouse),
		errors.Is(err, firecracker.ErrInvalidModule),
		errors.Is(err, firecracker.ErrInvalidCommand):
		writeError(w, r, ErrCodeValidation, err.Error())
	case errors.Is(err, firecracker.ErrNotOpen):
		writeError(w, r, ErrCodeUnavailable, "serial port is not open")
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, r, ErrCodeTimeout, "timed out waiting for the transmitter")
	default:
		writeError(w, r, ErrCodeInternal, "command failed")
	}
}

func parseOnOff(s string) (on, ok bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "on":
		return true, true
	case "off":
		return false, true
	default:
		return false, false
	}
}
