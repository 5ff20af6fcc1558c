package usecase

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/xavierca1/ligue-leads/internal/entity"
	"github.com/xavierca1/ligue-leads/internal/infra/queue"
)

// MockLeadRepository - Mock para LeadRepositoryInterface
type MockLeadRepository struct {
	mock.Mock
}

func (m *MockLeadRepository) Put(ctx context.Context, draft *entity.LeadDraft) (string, bool, error) {
	args := m.Called(ctx, draft)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *MockLeadRepository) GetByID(ctx context.Context, id string) (*entity.Lead, error) {
	args := m.Called(ctx, id)
	if lead, ok := args.Get(0).(*entity.Lead); ok {
		return lead, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockLeadRepository) FindByEmail(ctx context.Context, email string, after *entity.Position, limit int) ([]entity.Lead, error) {
	args := m.Called(ctx, email, after, limit)
	leads, _ := args.Get(0).([]entity.Lead)
	return leads, args.Error(1)
}

func (m *MockLeadRepository) FindBySource(ctx context.Context, source string, from, to *time.Time, after *entity.Position, limit int) ([]entity.Lead, error) {
	args := m.Called(ctx, source, from, to, after, limit)
	leads, _ := args.Get(0).([]entity.Lead)
	return leads, args.Error(1)
}

func (m *MockLeadRepository) List(ctx context.Context, filter entity.ListFilter, after *entity.Position, limit int) ([]entity.Lead, error) {
	args := m.Called(ctx, filter, after, limit)
	leads, _ := args.Get(0).([]entity.Lead)
	return leads, args.Error(1)
}

func (m *MockLeadRepository) UpdateStatus(ctx context.Context, id, to string, from ...string) error {
	args := m.Called(ctx, id, to, from)
	return args.Error(0)
}

func (m *MockLeadRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

// MockProducer - Mock para o fan-out de lead.created
type MockProducer struct {
	mock.Mock
}

func (m *MockProducer) PublishLeadCreated(ctx context.Context, payload queue.LeadCreatedPayload) error {
	args := m.Called(ctx, payload)
	return args.Error(0)
}

// fakeLeadStore é um Lead Store em memória com a mesma semântica de
// ordenação e keyset do repositório Postgres. Usado nos testes de
// listagem e export.
type fakeLeadStore struct {
	mu    sync.Mutex
	leads []entity.Lead
	byKey map[string]string
}

func newFakeLeadStore() *fakeLeadStore {
	return &fakeLeadStore{byKey: make(map[string]string)}
}

func (s *fakeLeadStore) add(lead entity.Lead) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.leads = append(s.leads, lead)
}

func (s *fakeLeadStore) Put(_ context.Context, draft *entity.LeadDraft) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.byKey[draft.IdempotencyKey]; ok {
		return id, false, nil
	}
	id := uuid.New().String()
	s.byKey[draft.IdempotencyKey] = id
	s.leads = append(s.leads, entity.Lead{
		ID:             id,
		IdempotencyKey: draft.IdempotencyKey,
		Email:          draft.Email,
		Name:           draft.Name,
		Source:         draft.Source,
		Status:         entity.StatusNew,
		CreatedAt:      time.Now(),
	})
	return id, true, nil
}

func (s *fakeLeadStore) GetByID(_ context.Context, id string) (*entity.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.leads {
		if s.leads[i].ID == id {
			lead := s.leads[i]
			return &lead, nil
		}
	}
	return nil, entity.ErrLeadNotFound
}

func (s *fakeLeadStore) FindByEmail(ctx context.Context, email string, after *entity.Position, limit int) ([]entity.Lead, error) {
	return s.List(ctx, entity.ListFilter{Email: email}, after, limit)
}

func (s *fakeLeadStore) FindBySource(ctx context.Context, source string, from, to *time.Time, after *entity.Position, limit int) ([]entity.Lead, error) {
	return s.List(ctx, entity.ListFilter{Source: source, DateFrom: from, DateTo: to}, after, limit)
}

func (s *fakeLeadStore) List(_ context.Context, filter entity.ListFilter, after *entity.Position, limit int) ([]entity.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []entity.Lead
	for _, l := range s.leads {
		if filter.Email != "" && l.Email != filter.Email {
			continue
		}
		if filter.Source != "" && l.Source != filter.Source {
			continue
		}
		if filter.Status != "" && l.Status != filter.Status {
			continue
		}
		if filter.DateFrom != nil && l.CreatedAt.Before(*filter.DateFrom) {
			continue
		}
		if filter.DateTo != nil && l.CreatedAt.After(*filter.DateTo) {
			continue
		}
		out = append(out, l)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})

	if after != nil {
		idx := 0
		for idx < len(out) {
			l := out[idx]
			if l.CreatedAt.After(after.CreatedAt) ||
				(l.CreatedAt.Equal(after.CreatedAt) && l.ID > after.ID) {
				break
			}
			idx++
		}
		out = out[idx:]
	}

	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *fakeLeadStore) UpdateStatus(_ context.Context, id, to string, from ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.leads {
		if s.leads[i].ID != id {
			continue
		}
		if len(from) > 0 {
			ok := false
			for _, f := range from {
				if s.leads[i].Status == f {
					ok = true
					break
				}
			}
			if !ok {
				return entity.ErrStatusConflict
			}
		}
		s.leads[i].Status = to
		return nil
	}
	return entity.ErrLeadNotFound
}

func (s *fakeLeadStore) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var kept []entity.Lead
	var n int64
	for _, l := range s.leads {
		if l.TTLAt != nil && !l.TTLAt.After(now) {
			n++
			continue
		}
		kept = append(kept, l)
	}
	s.leads = kept
	return n, nil
}

// noopCounter admite tudo.
type noopCounter struct{}

func (noopCounter) IncrAndCount(context.Context, string, time.Time) (int64, error) { return 1, nil }
