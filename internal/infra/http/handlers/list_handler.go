package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/xavierca1/ligue-leads/internal/entity"
	"github.com/xavierca1/ligue-leads/internal/usecase"
)

type ListHandler struct {
	ListUC *usecase.ListLeadsUseCase
}

func NewListHandler(listUC *usecase.ListLeadsUseCase) *ListHandler {
	return &ListHandler{ListUC: listUC}
}

// Handle é o GET /leads: cursor, limit, source, status, email,
// dateFrom, dateTo. Autenticação fica no middleware de API key.
func (h *ListHandler) Handle(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	input := usecase.ListLeadsInput{
		Source: q.Get("source"),
		Status: q.Get("status"),
		Email:  q.Get("email"),
		Cursor: q.Get("cursor"),
	}

	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a positive integer"})
			return
		}
		input.Limit = n
	}

	var badParam string
	input.DateFrom, badParam = parseTimeParam(q.Get("dateFrom"), "dateFrom", badParam)
	input.DateTo, badParam = parseTimeParam(q.Get("dateTo"), "dateTo", badParam)
	if badParam != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": badParam + " must be RFC3339 or YYYY-MM-DD",
		})
		return
	}

	output, err := h.ListUC.Execute(r.Context(), input)
	if err != nil {
		var verrs usecase.ValidationErrors
		switch {
		case errors.Is(err, entity.ErrInvalidCursor):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid cursor"})
		case errors.As(err, &verrs):
			writeJSON(w, http.StatusBadRequest, captureErrorResponse{
				Error:  "invalid filter",
				Fields: verrs.Fields(),
				Detail: verrs,
			})
		default:
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list leads"})
		}
		return
	}

	if output.Leads == nil {
		output.Leads = []entity.Lead{}
	}
	writeJSON(w, http.StatusOK, output)
}

// parseTimeParam aceita RFC3339 ou data pura (meia-noite UTC).
func parseTimeParam(value, name, alreadyBad string) (*time.Time, string) {
	if alreadyBad != "" || value == "" {
		return nil, alreadyBad
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return &t, ""
	}
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return &t, ""
	}
	return nil, name
}
