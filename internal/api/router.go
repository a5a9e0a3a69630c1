package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-firecracker/internal/auth"
	"github.com/nerrad567/gray-logic-firecracker/internal/bridges/firecracker"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		// Health check (no auth required)
		r.Get("/health", s.handleHealth)

		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			r.With(s.require(auth.PermDeviceRead)).Get("/ports", s.handleListPorts)

			r.Route("/devices", func(r chi.Router) {
				r.With(s.require(auth.PermDeviceRead)).Get("/", s.handleListDevices)
				r.With(s.require(auth.PermDeviceConfigure)).Post("/", s.handleCreateDevice)

				r.Route("/{id}", func(r chi.Router) {
					r.With(s.require(auth.PermDeviceRead)).Get("/", s.handleGetDevice)
					r.With(s.require(auth.PermDeviceConfigure)).Put("/", s.handleUpdateDevice)
					r.With(s.require(auth.PermDeviceConfigure)).Delete("/", s.handleDeleteDevice)
					r.With(s.require(auth.PermDeviceOperate)).Post("/{command}", s.handleDeviceCommand)
				})
			})

			r.With(s.require(auth.PermDeviceOperate)).Post("/commands", s.handleCommand)
		})
	})

	return r
}

// handleHealth returns bridge health and counters.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	health := s.bridge.Health()

	status := http.StatusOK
	if health.Status == firecracker.HealthUnhealthy {
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, status, map[string]any{
		"status":  health.Status,
		"reason":  health.Reason,
		"version": s.version,
		"health":  health,
		"metrics": s.bridge.GetMetrics(),
	})
}

// handleListPorts lists the host's serial ports.
func (s *Server) handleListPorts(w http.ResponseWriter, r *http.Request) {
	ports, err := firecracker.ListPorts(r.Context(), s.ports)
	if err != nil {
		s.logger.Error("listing serial ports", "error", err)
		writeError(w, r, ErrCodeInternal, "failed to list serial ports")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ports": ports, "count": len(ports)})
}
