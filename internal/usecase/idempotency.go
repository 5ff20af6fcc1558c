package usecase

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/xavierca1/ligue-leads/internal/entity"
)

// DeriveIdempotencyKey produz a chave que colapsa submissões duplicadas:
// SHA-256 de (source, email, payload normalizado, bucket grosso de tempo).
// Dois submits iguais dentro do mesmo bucket convergem no mesmo lead.
func DeriveIdempotencyKey(draft *entity.LeadDraft, now time.Time, bucket time.Duration) string {
	parts := []string{
		draft.Source,
		draft.Email,
		draft.Name,
		draft.Company,
		draft.Phone,
		draft.Details,
	}

	// Mapa iterado em ordem estável, senão a chave não é determinística.
	keys := make([]string, 0, len(draft.CustomFields))
	for k := range draft.CustomFields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		parts = append(parts, k+"="+draft.CustomFields[k])
	}

	parts = append(parts, fmt.Sprintf("%d", now.UnixNano()/int64(bucket)))

	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}
