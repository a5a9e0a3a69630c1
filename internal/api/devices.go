package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-firecracker/internal/device"
)

// deviceRequest is the body of POST /devices and PUT /devices/{id}.
type deviceRequest struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name"`
	House string `json:"house"`
	Unit  int    `json:"unit"`
}

// handleListDevices returns all registered devices.
func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := s.registry.ListDevices(r.Context())
	if err != nil {
		writeError(w, r, ErrCodeInternal, "failed to list devices")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"devices": devices, "count": len(devices)})
}

// handleGetDevice returns a single device by ID.
func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	dev, err := s.registry.GetDevice(r.Context(), id)
	if err != nil {
		if errors.Is(err, device.ErrDeviceNotFound) {
			writeError(w, r, ErrCodeNotFound, "device not found")
			return
		}
		writeError(w, r, ErrCodeInternal, "failed to get device")
		return
	}

	writeJSON(w, http.StatusOK, dev)
}

// handleCreateDevice registers a new device. An omitted ID is generated.
func (s *Server) handleCreateDevice(w http.ResponseWriter, r *http.Request) {
	var req deviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	dev := &device.Device{
		ID:    req.ID,
		Name:  req.Name,
		House: req.House,
		Unit:  req.Unit,
	}
	if err := s.registry.CreateDevice(r.Context(), dev); err != nil {
		switch {
		case isValidationError(err):
			writeError(w, r, ErrCodeValidation, err.Error())
		case errors.Is(err, device.ErrDeviceExists):
			writeError(w, r, ErrCodeConflict, "device already exists")
		default:
			writeError(w, r, ErrCodeInternal, "failed to create device")
		}
		return
	}

	writeJSON(w, http.StatusCreated, dev)
}

// handleUpdateDevice replaces the name and address of a device. The ID in
// the path wins over any ID in the body.
func (s *Server) handleUpdateDevice(w http.ResponseWriter, r *http.Request) {
	var req deviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	dev, err := s.registry.GetDevice(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, device.ErrDeviceNotFound) {
			writeError(w, r, ErrCodeNotFound, "device not found")
			return
		}
		writeError(w, r, ErrCodeInternal, "failed to get device")
		return
	}

	dev.Name, dev.House, dev.Unit = req.Name, req.House, req.Unit
	if err := s.registry.UpdateDevice(r.Context(), dev); err != nil {
		switch {
		case isValidationError(err):
			writeError(w, r, ErrCodeValidation, err.Error())
		case errors.Is(err, device.ErrDeviceNotFound):
			writeError(w, r, ErrCodeNotFound, "device not found")
		default:
			writeError(w, r, ErrCodeInternal, "failed to update device")
		}
		return
	}

	writeJSON(w, http.StatusOK, dev)
}

// handleDeleteDevice removes a device by ID.
func (s *Server) handleDeleteDevice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.registry.DeleteDevice(r.Context(), id); err != nil {
		if errors.Is(err, device.ErrDeviceNotFound) {
			writeError(w, r, ErrCodeNotFound, "device not found")
			return
		}
		writeError(w, r, ErrCodeInternal, "failed to delete device")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func isValidationError(err error) bool {
	return errors.Is(err, device.ErrInvalidDevice) ||
		errors.Is(err, device.ErrInvalidAddress)
}
