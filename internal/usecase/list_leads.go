package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/xavierca1/ligue-leads/internal/entity"
)

type ListLeadsInput struct {
	DateFrom *time.Time
	DateTo   *time.Time
	Source   string
	Status   string
	Email    string
	Cursor   string
	Limit    int
}

type ListLeadsOutput struct {
	Leads      []entity.Lead `json:"leads"`
	NextCursor string        `json:"next_cursor,omitempty"`
}

var knownStatuses = map[string]bool{
	entity.StatusNew:          true,
	entity.StatusNotifying:    true,
	entity.StatusNotified:     true,
	entity.StatusDeadLettered: true,
	entity.StatusExported:     true,
}

// ListLeadsUseCase é a leitura paginada. Keyset por (created_at, id)
// ascendente: itens já devolvidos nunca somem nem repetem durante uma
// travessia, mesmo com inserções concorrentes.
type ListLeadsUseCase struct {
	Repo        entity.LeadRepositoryInterface
	MaxPageSize int
}

func NewListLeadsUseCase(repo entity.LeadRepositoryInterface, maxPageSize int) *ListLeadsUseCase {
	return &ListLeadsUseCase{Repo: repo, MaxPageSize: maxPageSize}
}

func (uc *ListLeadsUseCase) Execute(ctx context.Context, input ListLeadsInput) (*ListLeadsOutput, error) {
	if input.Status != "" && !knownStatuses[input.Status] {
		return nil, ValidationErrors{{Field: "status", Message: "is not a known status"}}
	}
	if input.DateFrom != nil && input.DateTo != nil && input.DateTo.Before(*input.DateFrom) {
		return nil, ValidationErrors{{Field: "dateTo", Message: "must not precede dateFrom"}}
	}
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email != "" && (input.Source != "" || input.Status != "" || input.DateFrom != nil || input.DateTo != nil) {
		return nil, ValidationErrors{{Field: "email", Message: "cannot be combined with other filters"}}
	}

	limit := input.Limit
	if limit <= 0 || limit > uc.MaxPageSize {
		limit = uc.MaxPageSize
	}

	filter := entity.ListFilter{
		DateFrom: input.DateFrom,
		DateTo:   input.DateTo,
		Source:   input.Source,
		Status:   input.Status,
		Email:    email,
	}

	var after *entity.Position
	if input.Cursor != "" {
		pos, err := DecodeCursor(input.Cursor, filter)
		if err != nil {
			return nil, err
		}
		after = pos
	}

	// Um a mais para saber se existe próxima página. Email e source puro
	// vão pelos índices secundários dedicados.
	var leads []entity.Lead
	var err error
	switch {
	case email != "":
		leads, err = uc.Repo.FindByEmail(ctx, email, after, limit+1)
	case filter.Source != "" && filter.Status == "":
		leads, err = uc.Repo.FindBySource(ctx, filter.Source, filter.DateFrom, filter.DateTo, after, limit+1)
	default:
		leads, err = uc.Repo.List(ctx, filter, after, limit+1)
	}
	if err != nil {
		return nil, err
	}

	out := &ListLeadsOutput{}
	if len(leads) > limit {
		leads = leads[:limit]
		last := leads[len(leads)-1]
		out.NextCursor = EncodeCursor(entity.Position{CreatedAt: last.CreatedAt, ID: last.ID}, filter)
	}
	out.Leads = leads
	return out, nil
}
