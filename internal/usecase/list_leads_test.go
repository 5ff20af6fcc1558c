package usecase

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xavierca1/ligue-leads/internal/entity"
)

func seedLeads(store *fakeLeadStore, n int, base time.Time) {
	for i := 0; i < n; i++ {
		store.add(entity.Lead{
			ID:        fmt.Sprintf("lead-%03d", i),
			Email:     fmt.Sprintf("l%d@example.com", i),
			Source:    "landing",
			Status:    entity.StatusNew,
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		})
	}
}

func TestListLeads_PaginatesWithoutGapsOrDuplicates(t *testing.T) {
	store := newFakeLeadStore()
	base := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	seedLeads(store, 25, base)

	uc := NewListLeadsUseCase(store, 100)

	var collected []string
	input := ListLeadsInput{Limit: 10}
	pages := 0
	for {
		out, err := uc.Execute(context.Background(), input)
		require.NoError(t, err)
		pages++
		for _, l := range out.Leads {
			collected = append(collected, l.ID)
		}
		if out.NextCursor == "" {
			break
		}
		input.Cursor = out.NextCursor
	}

	assert.Equal(t, 3, pages)
	require.Len(t, collected, 25)
	seen := make(map[string]bool)
	for i, id := range collected {
		assert.False(t, seen[id], "lead %s repetido", id)
		seen[id] = true
		assert.Equal(t, fmt.Sprintf("lead-%03d", i), id, "ordem por (created_at, id)")
	}
}

func TestListLeads_SurvivesConcurrentInserts(t *testing.T) {
	store := newFakeLeadStore()
	base := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	seedLeads(store, 10, base)

	uc := NewListLeadsUseCase(store, 100)

	out, err := uc.Execute(context.Background(), ListLeadsInput{Limit: 5})
	require.NoError(t, err)
	require.NotEmpty(t, out.NextCursor)

	// Inserções entre páginas não fazem itens já vistos sumir ou repetir.
	store.add(entity.Lead{ID: "lead-new", CreatedAt: base.Add(20 * time.Second), Status: entity.StatusNew})

	out2, err := uc.Execute(context.Background(), ListLeadsInput{Limit: 100, Cursor: out.NextCursor})
	require.NoError(t, err)

	firstPage := make(map[string]bool)
	for _, l := range out.Leads {
		firstPage[l.ID] = true
	}
	for _, l := range out2.Leads {
		assert.False(t, firstPage[l.ID], "lead %s veio em duas páginas", l.ID)
	}
	assert.Len(t, out2.Leads, 6) // 5 restantes + o inserido no meio
}

func TestListLeads_FilterBySourceAndStatus(t *testing.T) {
	store := newFakeLeadStore()
	base := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	store.add(entity.Lead{ID: "a", Source: "landing", Status: entity.StatusNew, CreatedAt: base})
	store.add(entity.Lead{ID: "b", Source: "newsletter", Status: entity.StatusNotified, CreatedAt: base.Add(time.Second)})
	store.add(entity.Lead{ID: "c", Source: "landing", Status: entity.StatusNotified, CreatedAt: base.Add(2 * time.Second)})

	uc := NewListLeadsUseCase(store, 100)

	out, err := uc.Execute(context.Background(), ListLeadsInput{Source: "landing", Status: entity.StatusNotified})
	require.NoError(t, err)
	require.Len(t, out.Leads, 1)
	assert.Equal(t, "c", out.Leads[0].ID)
}

func TestListLeads_FilterByEmailUsesSecondaryIndex(t *testing.T) {
	store := newFakeLeadStore()
	base := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	store.add(entity.Lead{ID: "a", Email: "joao@example.com", Status: entity.StatusNew, CreatedAt: base})
	store.add(entity.Lead{ID: "b", Email: "ana@example.com", Status: entity.StatusNew, CreatedAt: base.Add(time.Second)})
	store.add(entity.Lead{ID: "c", Email: "joao@example.com", Status: entity.StatusNotified, CreatedAt: base.Add(2 * time.Second)})

	uc := NewListLeadsUseCase(store, 100)

	// E-mail é canônico em minúsculas no store; o filtro normaliza.
	out, err := uc.Execute(context.Background(), ListLeadsInput{Email: "Joao@Example.COM"})
	require.NoError(t, err)
	require.Len(t, out.Leads, 2)
	assert.Equal(t, "a", out.Leads[0].ID)
	assert.Equal(t, "c", out.Leads[1].ID)
}

func TestListLeads_EmailFilterPaginates(t *testing.T) {
	store := newFakeLeadStore()
	base := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		store.add(entity.Lead{
			ID:        fmt.Sprintf("dup-%d", i),
			Email:     "joao@example.com",
			Status:    entity.StatusNew,
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		})
	}
	store.add(entity.Lead{ID: "other", Email: "ana@example.com", Status: entity.StatusNew, CreatedAt: base})

	uc := NewListLeadsUseCase(store, 100)

	out, err := uc.Execute(context.Background(), ListLeadsInput{Email: "joao@example.com", Limit: 3})
	require.NoError(t, err)
	require.Len(t, out.Leads, 3)
	require.NotEmpty(t, out.NextCursor)

	out2, err := uc.Execute(context.Background(), ListLeadsInput{Email: "joao@example.com", Cursor: out.NextCursor, Limit: 3})
	require.NoError(t, err)
	require.Len(t, out2.Leads, 2)
	assert.Empty(t, out2.NextCursor)
}

func TestListLeads_EmailDoesNotCombineWithOtherFilters(t *testing.T) {
	uc := NewListLeadsUseCase(newFakeLeadStore(), 100)

	_, err := uc.Execute(context.Background(), ListLeadsInput{Email: "a@b.com", Source: "landing"})

	var verrs ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Equal(t, "email", verrs[0].Field)
}

func TestListLeads_UnknownStatusRejected(t *testing.T) {
	uc := NewListLeadsUseCase(newFakeLeadStore(), 100)

	_, err := uc.Execute(context.Background(), ListLeadsInput{Status: "BANANA"})

	var verrs ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Equal(t, "status", verrs[0].Field)
}

func TestListLeads_DateRangeInverted(t *testing.T) {
	uc := NewListLeadsUseCase(newFakeLeadStore(), 100)
	from := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	to := from.Add(-time.Hour)

	_, err := uc.Execute(context.Background(), ListLeadsInput{DateFrom: &from, DateTo: &to})

	var verrs ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Equal(t, "dateTo", verrs[0].Field)
}

func TestListLeads_CursorFromOtherFilterRejected(t *testing.T) {
	store := newFakeLeadStore()
	seedLeads(store, 5, time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC))
	uc := NewListLeadsUseCase(store, 100)

	out, err := uc.Execute(context.Background(), ListLeadsInput{Source: "landing", Limit: 2})
	require.NoError(t, err)
	require.NotEmpty(t, out.NextCursor)

	_, err = uc.Execute(context.Background(), ListLeadsInput{Source: "newsletter", Cursor: out.NextCursor, Limit: 2})
	assert.ErrorIs(t, err, entity.ErrInvalidCursor)
}

func TestListLeads_LimitClampedToMaxPageSize(t *testing.T) {
	store := newFakeLeadStore()
	seedLeads(store, 30, time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC))
	uc := NewListLeadsUseCase(store, 10)

	out, err := uc.Execute(context.Background(), ListLeadsInput{Limit: 500})
	require.NoError(t, err)
	assert.Len(t, out.Leads, 10)
	assert.NotEmpty(t, out.NextCursor)
}
