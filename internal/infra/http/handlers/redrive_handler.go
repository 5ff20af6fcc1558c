package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/xavierca1/ligue-leads/internal/entity"
	"github.com/xavierca1/ligue-leads/internal/usecase"
)

type RedriveHandler struct {
	RedriveUC *usecase.RedriveLeadUseCase
}

func NewRedriveHandler(redriveUC *usecase.RedriveLeadUseCase) *RedriveHandler {
	return &RedriveHandler{RedriveUC: redriveUC}
}

// Handle é o POST /leads/{id}/redrive — reenfileira dead-letters e
// leads parados em NEW.
func (h *RedriveHandler) Handle(w http.ResponseWriter, r *http.Request) {
	leadID := chi.URLParam(r, "id")

	err := h.RedriveUC.Execute(r.Context(), leadID)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]string{"id": leadID, "status": entity.StatusNew})
	case errors.Is(err, entity.ErrLeadNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "lead not found"})
	case errors.Is(err, entity.ErrNotRedrivable):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "lead is not eligible for redrive"})
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "redrive failed"})
	}
}
