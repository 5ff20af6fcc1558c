package entity

import (
	"context"
	"errors"
	"time"
)

// Status de notificação do lead. Independente da visibilidade na
// listagem: um lead é consultável em qualquer status.
const (
	StatusNew          = "NEW"
	StatusNotifying    = "NOTIFYING"
	StatusNotified     = "NOTIFIED"
	StatusDeadLettered = "DEAD_LETTERED"
	StatusExported     = "EXPORTED"
)

var (
	ErrLeadNotFound   = errors.New("lead not found")
	ErrNotRedrivable  = errors.New("lead is not eligible for redrive")
	ErrRateLimited    = errors.New("rate limit exceeded")
	ErrUnauthorized   = errors.New("invalid or missing credential")
	ErrInvalidCursor  = errors.New("invalid pagination cursor")
	ErrStatusConflict = errors.New("lead is not in the expected status")
)

// StorageError marca falha transiente de infraestrutura. O chamador pode
// retentar; o componente que detectou nunca retenta sozinho.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return "storage: " + e.Op + ": " + e.Err.Error()
}

func (e *StorageError) Unwrap() error { return e.Err }

func NewStorageError(op string, err error) *StorageError {
	return &StorageError{Op: op, Err: err}
}

type Lead struct {
	ID             string            `json:"id"`
	IdempotencyKey string            `json:"-"`
	Email          string            `json:"email"`
	Name           string            `json:"name,omitempty"`
	Company        string            `json:"company,omitempty"`
	Phone          string            `json:"phone,omitempty"`
	Details        string            `json:"details,omitempty"`
	Source         string            `json:"source,omitempty"`
	CustomFields   map[string]string `json:"custom_fields,omitempty"`
	Status         string            `json:"status"`
	CreatedAt      time.Time         `json:"created_at"`
	TTLAt          *time.Time        `json:"ttl_at,omitempty"`
}

// LeadDraft é a submissão já validada e sanitizada, antes do insert.
// ID e CreatedAt são atribuídos pelo repositório no put condicional.
type LeadDraft struct {
	IdempotencyKey string
	Email          string
	Name           string
	Company        string
	Phone          string
	Details        string
	Source         string
	CustomFields   map[string]string
	TTLAt          *time.Time
}

// ListFilter restringe a listagem. Ponteiros nil = sem restrição.
// Email é a busca pelo índice secundário e não combina com os demais.
type ListFilter struct {
	DateFrom *time.Time
	DateTo   *time.Time
	Source   string
	Status   string
	Email    string
}

// Position é a posição do keyset na ordenação (created_at, id).
type Position struct {
	CreatedAt time.Time
	ID        string
}

type LeadRepositoryInterface interface {
	// Put faz o insert condicional pela chave de idempotência. Se a chave
	// já existe, devolve o id original com created=false (não é erro).
	Put(ctx context.Context, draft *LeadDraft) (id string, created bool, err error)

	GetByID(ctx context.Context, id string) (*Lead, error)
	FindByEmail(ctx context.Context, email string, after *Position, limit int) ([]Lead, error)
	FindBySource(ctx context.Context, source string, from, to *time.Time, after *Position, limit int) ([]Lead, error)
	List(ctx context.Context, filter ListFilter, after *Position, limit int) ([]Lead, error)

	// UpdateStatus só aplica a transição se o lead estiver em um dos
	// status de origem. Devolve ErrStatusConflict caso contrário.
	UpdateStatus(ctx context.Context, id, to string, from ...string) error

	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
