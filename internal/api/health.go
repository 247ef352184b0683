package api

import (
	"net/http"
	"time"

	"github.com/snarg/prosody-engine/internal/prosody"
)

type HealthResponse struct {
	Status        string   `json:"status"`
	Version       string   `json:"version"`
	UptimeSeconds int64    `json:"uptime_seconds"`
	Providers     []string `json:"providers"`
}

type HealthHandler struct {
	reg       *prosody.Registry
	version   string
	startTime time.Time
}

func NewHealthHandler(reg *prosody.Registry, version string, startTime time.Time) *HealthHandler {
	return &HealthHandler{reg: reg, version: version, startTime: startTime}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, HealthResponse{
		Status:        "healthy",
		Version:       h.version,
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
		Providers:     h.reg.List(),
	})
}
