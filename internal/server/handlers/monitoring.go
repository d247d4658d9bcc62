package handlers

import (
	"net/http"
	"time"

	"git.home.luguber.info/inful/lobserver/internal/bootstrap"
	"git.home.luguber.info/inful/lobserver/internal/server/responses"
)

// StatusProvider exposes the bootstrapper status.
type StatusProvider interface {
	Status() bootstrap.Status
}

// MonitoringHandlers serves the health endpoint.
type MonitoringHandlers struct {
	status    StatusProvider
	startTime time.Time
	now       func() time.Time
}

func NewMonitoringHandlers(status StatusProvider) *MonitoringHandlers {
	return &MonitoringHandlers{status: status, startTime: time.Now(), now: time.Now}
}

// HandleHealth returns 200 once ready (also when degraded) and 503 before.
func (h *MonitoringHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	st := h.status.Status()
	now := h.now()

	resp := responses.HealthResponse{
		Status:    responses.HealthOK,
		Timestamp: now.UTC(),
		Uptime:    now.Sub(h.startTime).Seconds(),
		State:     st,
	}
	code := http.StatusOK
	switch {
	case !st.Ready:
		resp.Status = responses.HealthStarting
		code = http.StatusServiceUnavailable
	case st.Degraded():
		resp.Status = responses.HealthDegraded
	}

	_ = writeJSON(w, code, resp)
}
