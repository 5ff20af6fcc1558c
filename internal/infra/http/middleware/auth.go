package middleware

import (
	"encoding/json"
	"net/http"
)

const APIKeyHeader = "X-API-Key"

// APIKeyAuth protege as rotas de leitura (listagem, export, redrive).
// A resposta é deliberadamente seca: nada de dica sobre qual credencial
// seria aceita.
func APIKeyAuth(keys map[string]struct{}) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(APIKeyHeader)
			if key == "" {
				unauthorized(w)
				return
			}
			if _, ok := keys[key]; !ok {
				unauthorized(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized"})
}
