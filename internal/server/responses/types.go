// Package responses defines API response types used by lobserver HTTP handlers.
package responses

import (
	"time"

	"git.home.luguber.info/inful/lobserver/internal/bootstrap"
)

// UpdateResponse is returned by POST /update on success.
type UpdateResponse struct {
	Success bool `json:"success"`
}

// Health status values.
const (
	HealthOK       = "ok"
	HealthDegraded = "degraded"
	HealthStarting = "starting"
)

// HealthResponse represents the health check API response.
type HealthResponse struct {
	Status    string           `json:"status"`
	Timestamp time.Time        `json:"timestamp"`
	Uptime    float64          `json:"uptime"`
	State     bootstrap.Status `json:"state"`
}
