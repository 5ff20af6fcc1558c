package usecase

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/xavierca1/ligue-leads/internal/entity"
)

// cursorToken é o conteúdo do cursor opaco. Carrega a posição do keyset
// e um checksum do filtro — cursor de um filtro não vale em outro.
type cursorToken struct {
	CreatedAt time.Time `json:"t"`
	ID        string    `json:"id"`
	Filter    string    `json:"f"`
}

func EncodeCursor(pos entity.Position, filter entity.ListFilter) string {
	token := cursorToken{
		CreatedAt: pos.CreatedAt,
		ID:        pos.ID,
		Filter:    filterChecksum(filter),
	}
	raw, _ := json.Marshal(token)
	return base64.RawURLEncoding.EncodeToString(raw)
}

func DecodeCursor(cursor string, filter entity.ListFilter) (*entity.Position, error) {
	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return nil, entity.ErrInvalidCursor
	}
	var token cursorToken
	if err := json.Unmarshal(raw, &token); err != nil {
		return nil, entity.ErrInvalidCursor
	}
	if token.ID == "" || token.CreatedAt.IsZero() {
		return nil, entity.ErrInvalidCursor
	}
	if token.Filter != filterChecksum(filter) {
		// Cursor aponta para dados fora do filtro atual.
		return nil, entity.ErrInvalidCursor
	}
	return &entity.Position{CreatedAt: token.CreatedAt, ID: token.ID}, nil
}

func filterChecksum(filter entity.ListFilter) string {
	canonical := filter.Source + "|" + filter.Status + "|" + filter.Email + "|"
	if filter.DateFrom != nil {
		canonical += filter.DateFrom.UTC().Format(time.RFC3339Nano)
	}
	canonical += "|"
	if filter.DateTo != nil {
		canonical += filter.DateTo.UTC().Format(time.RFC3339Nano)
	}
	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:8])
}
