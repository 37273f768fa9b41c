package handlers

import (
	"net/http"

	"github.com/rs/zerolog"
	"github.com/secondlook/secondlook/internal/api/middleware"
	"github.com/secondlook/secondlook/internal/decision"
	"github.com/secondlook/secondlook/internal/history"
)

// HistoryHandler serves past analyses.
type HistoryHandler struct {
	repo history.Repository
	log  zerolog.Logger
}

// NewHistoryHandler creates a new history handler.
func NewHistoryHandler(repo history.Repository, log zerolog.Logger) *HistoryHandler {
	return &HistoryHandler{repo: repo, log: log}
}

// List handles GET /api/history
func (h *HistoryHandler) List(w http.ResponseWriter, r *http.Request) {
	records, err := h.repo.Load(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to load history")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to load history")
		return
	}

	cards := make([]decision.HistoryCard, 0, len(records))
	for _, rec := range records {
		cards = append(cards, decision.RenderHistory(rec))
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"history": cards,
		"count":   len(cards),
	})
}

// Clear handles DELETE /api/history?confirm=true
func (h *HistoryHandler) Clear(w http.ResponseWriter, r *http.Request) {
	confirmed := r.URL.Query().Get("confirm") == "true"
	cleared, err := history.ClearWithConfirmation(r.Context(), h.repo, history.ConfirmFunc(func(string) bool {
		return confirmed
	}))
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to clear history")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to clear history")
		return
	}
	if !cleared {
		middleware.WriteError(w, http.StatusBadRequest, history.ErrConfirmationRequired.Error()+": "+history.ClearPrompt)
		return
	}

	h.log.Info().Msg("History cleared")
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"cleared": true,
	})
}
