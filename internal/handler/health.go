package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/credits-api/internal/response"
)

// MiscHandler answers liveness and version probes.
type MiscHandler struct {
	ServiceName string
	AppVersion  string
}

// Health is used by load balancers and monitoring to verify the service is
// running. It does not touch the database.
func (h *MiscHandler) Health(c echo.Context) error {
	return response.Success(c, http.StatusOK, "Health check successful.",
		map[string]string{"status": "healthy", "service": h.ServiceName})
}

func (h *MiscHandler) Version(c echo.Context) error {
	return response.Success(c, http.StatusOK, "Version check successful.",
		map[string]string{"version": h.AppVersion})
}
