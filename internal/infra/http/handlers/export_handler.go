package handlers

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/xavierca1/ligue-leads/internal/entity"
	"github.com/xavierca1/ligue-leads/internal/usecase"
)

type ExportHandler struct {
	ExportUC *usecase.ExportLeadsUseCase
}

func NewExportHandler(exportUC *usecase.ExportLeadsUseCase) *ExportHandler {
	return &ExportHandler{ExportUC: exportUC}
}

// Handle é o GET /leads/export: varre a janela pedida paginando por
// dentro e escreve o stream direto na resposta.
func (h *ExportHandler) Handle(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	input := usecase.ExportLeadsInput{
		Format: strings.ToUpper(q.Get("format")),
	}
	if input.Format == "" {
		input.Format = usecase.FormatCSV
	}

	var badParam string
	input.DateFrom, badParam = parseTimeParam(q.Get("dateFrom"), "dateFrom", badParam)
	input.DateTo, badParam = parseTimeParam(q.Get("dateTo"), "dateTo", badParam)
	input.Since, badParam = parseTimeParam(q.Get("since"), "since", badParam)
	if badParam != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": badParam + " must be RFC3339 or YYYY-MM-DD",
		})
		return
	}

	switch input.Format {
	case usecase.FormatCSV:
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="leads.csv"`)
	case usecase.FormatJSON:
		w.Header().Set("Content-Type", "application/json")
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "format must be csv or json"})
		return
	}

	if err := h.ExportUC.Execute(r.Context(), input, w); err != nil {
		// Headers já foram; se o stream começou, só resta logar.
		var verrs usecase.ValidationErrors
		if errors.As(err, &verrs) || errors.Is(err, entity.ErrInvalidCursor) {
			log.Printf("⚠️ Export abortado por entrada inválida: %v", err)
			return
		}
		log.Printf("❌ Export falhou: %v", err)
	}
}
