package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/xavierca1/ligue-leads/internal/entity"
	"github.com/xavierca1/ligue-leads/internal/infra/http/middleware"
	"github.com/xavierca1/ligue-leads/internal/usecase"
)

const maxBodyBytes = 64 * 1024

type LeadHandler struct {
	CaptureUC *usecase.CaptureLeadUseCase
}

func NewLeadHandler(captureUC *usecase.CaptureLeadUseCase) *LeadHandler {
	return &LeadHandler{CaptureUC: captureUC}
}

type captureErrorResponse struct {
	Error  string                    `json:"error"`
	Fields []string                  `json:"fields,omitempty"`
	Detail []usecase.ValidationError `json:"detail,omitempty"`
}

// Capture é o POST /leads: corpo JSON com os campos allow-listed do
// formulário. Replays idempotentes respondem 200 com created=false.
func (h *LeadHandler) Capture(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var raw map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		writeJSON(w, http.StatusBadRequest, captureErrorResponse{Error: "invalid JSON body"})
		return
	}

	input := usecase.CaptureLeadInput{
		Fields:    flattenFields(raw),
		ClientIP:  getClientIP(r),
		UserAgent: r.Header.Get("User-Agent"),
	}

	output, err := h.CaptureUC.Execute(r.Context(), input)
	if err != nil {
		var verrs usecase.ValidationErrors
		switch {
		case errors.As(err, &verrs):
			middleware.RecordLeadRejected("validation")
			writeJSON(w, http.StatusBadRequest, captureErrorResponse{
				Error:  "validation failed",
				Fields: verrs.Fields(),
				Detail: verrs,
			})
		case errors.Is(err, entity.ErrRateLimited):
			middleware.RecordLeadRejected("rate_limit")
			// Deliberadamente seco: não vaza threshold nem contagem.
			writeJSON(w, http.StatusTooManyRequests, map[string]string{
				"error": "too many requests",
			})
		default:
			writeJSON(w, http.StatusInternalServerError, map[string]string{
				"error": "failed to capture lead",
			})
		}
		return
	}

	middleware.RecordLeadCaptured(output.Created)
	writeJSON(w, http.StatusOK, output)
}

// flattenFields achata o objeto JSON em map de string. Valores escalares
// não-string são convertidos; objetos/arrays aninhados são descartados
// como campos desconhecidos.
func flattenFields(raw map[string]interface{}) map[string]string {
	fields := make(map[string]string, len(raw))
	for k, v := range raw {
		switch value := v.(type) {
		case string:
			fields[k] = value
		case float64:
			fields[k] = trimFloat(value)
		case bool:
			fields[k] = fmt.Sprintf("%t", value)
		}
	}
	return fields
}

func trimFloat(f float64) string {
	if f == float64(int64(f)) {
		return fmt.Sprintf("%d", int64(f))
	}
	return fmt.Sprintf("%v", f)
}

func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		// Primeiro hop da cadeia de proxies.
		if i := strings.Index(xff, ","); i >= 0 {
			return strings.TrimSpace(xff[:i])
		}
		return strings.TrimSpace(xff)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
