package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/secondlook/secondlook/internal/api/middleware"
	"github.com/secondlook/secondlook/internal/scoring"
)

// BackendChecker reports the scoring backend's health. *scoring.Client
// implements it.
type BackendChecker interface {
	Health(ctx context.Context) (*scoring.Health, error)
}

// Landing is the summary served at GET /.
type Landing struct {
	Name      string            `json:"name"`
	Steps     []string          `json:"steps"`
	Endpoints map[string]string `json:"endpoints"`
}

var landing = Landing{
	Name: "M-Pesa AI Analyzer",
	Steps: []string{
		"Upload your M-Pesa statement in PDF or CSV format.",
		"The statement is analyzed for transaction patterns, income consistency and spending habits.",
		"Receive a credit score, insights and loan eligibility status.",
	},
	Endpoints: map[string]string{
		"upload":       "POST /api/assessments",
		"current":      "GET /api/assessments/current",
		"transactions": "GET /api/assessments/current/transactions",
		"history":      "GET /api/history",
	},
}

// HealthHandler serves the landing, server health and backend health routes.
type HealthHandler struct {
	backend BackendChecker
	log     zerolog.Logger
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(backend BackendChecker, log zerolog.Logger) *HealthHandler {
	return &HealthHandler{backend: backend, log: log}
}

// Landing handles GET /
func (h *HealthHandler) Landing(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, landing)
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// BackendHealth handles GET /api/backend/health
func (h *HealthHandler) BackendHealth(w http.ResponseWriter, r *http.Request) {
	health, err := h.backend.Health(r.Context())
	if err != nil {
		h.log.Warn().Err(err).Msg("Backend health check failed")
		middleware.WriteError(w, http.StatusBadGateway, "Scoring backend unavailable")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, health)
}
