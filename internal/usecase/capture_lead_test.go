package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/xavierca1/ligue-leads/internal/entity"
)

func captureUseCase(repo entity.LeadRepositoryInterface, producer LeadEventProducerInterface) *CaptureLeadUseCase {
	guard := NewSpamGuard(noopCounter{}, SpamGuardConfig{
		HoneypotField: "website_url",
		MinFillTime:   3 * time.Second,
		Threshold:     10,
	})
	return NewCaptureLeadUseCase(repo, guard, producer, testValidationConfig(), 5*time.Minute, 0)
}

func TestCaptureLead_PersistsAndPublishes(t *testing.T) {
	repo := new(MockLeadRepository)
	producer := new(MockProducer)
	uc := captureUseCase(repo, producer)

	repo.On("Put", mock.Anything, mock.MatchedBy(func(d *entity.LeadDraft) bool {
		return d.Email == "joao@example.com" && d.IdempotencyKey != ""
	})).Return("lead-123", true, nil)
	producer.On("PublishLeadCreated", mock.Anything, mock.Anything).Return(nil)

	out, err := uc.Execute(context.Background(), CaptureLeadInput{
		Fields: map[string]string{
			"email":  "joao@example.com",
			"name":   "João",
			"source": "landing",
		},
		ClientIP:  "203.0.113.9",
		UserAgent: "Mozilla/5.0",
	})

	require.NoError(t, err)
	assert.Equal(t, "lead-123", out.ID)
	assert.True(t, out.Created)
	repo.AssertExpectations(t)
	producer.AssertExpectations(t)
}

func TestCaptureLead_DuplicateDoesNotPublish(t *testing.T) {
	repo := new(MockLeadRepository)
	producer := new(MockProducer)
	uc := captureUseCase(repo, producer)

	repo.On("Put", mock.Anything, mock.Anything).Return("lead-123", false, nil)

	out, err := uc.Execute(context.Background(), CaptureLeadInput{
		Fields: map[string]string{"email": "joao@example.com"},
	})

	require.NoError(t, err)
	assert.Equal(t, "lead-123", out.ID)
	assert.False(t, out.Created, "replay devolve o lead original")
	producer.AssertNotCalled(t, "PublishLeadCreated", mock.Anything, mock.Anything)
}

func TestCaptureLead_ValidationFailureNeverTouchesStore(t *testing.T) {
	repo := new(MockLeadRepository)
	producer := new(MockProducer)
	uc := captureUseCase(repo, producer)

	out, err := uc.Execute(context.Background(), CaptureLeadInput{
		Fields: map[string]string{"email": "broken", "name": "   "},
	})

	assert.Nil(t, out)
	var verrs ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Len(t, verrs, 2)
	repo.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
}

func TestCaptureLead_RateLimitedPropagates(t *testing.T) {
	repo := new(MockLeadRepository)
	producer := new(MockProducer)
	counter := newFakeCounter(time.Minute, 10)
	guard := NewSpamGuard(counter, SpamGuardConfig{
		HoneypotField: "website_url",
		MinFillTime:   3 * time.Second,
		Threshold:     0,
	})
	uc := NewCaptureLeadUseCase(repo, guard, producer, testValidationConfig(), 5*time.Minute, 0)

	out, err := uc.Execute(context.Background(), CaptureLeadInput{
		Fields:    map[string]string{"email": "joao@example.com"},
		ClientIP:  "203.0.113.9",
		UserAgent: "curl/8.0",
	})

	assert.Nil(t, out)
	assert.ErrorIs(t, err, entity.ErrRateLimited)
	repo.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
}

func TestCaptureLead_HoneypotFakeSuccess(t *testing.T) {
	repo := new(MockLeadRepository)
	producer := new(MockProducer)
	uc := captureUseCase(repo, producer)

	out, err := uc.Execute(context.Background(), CaptureLeadInput{
		Fields: map[string]string{
			"email":       "bot@example.com",
			"website_url": "http://spam.example",
		},
	})

	// O bot recebe um sucesso indistinguível do real.
	require.NoError(t, err)
	assert.True(t, out.Created)
	assert.NotEmpty(t, out.ID)
	repo.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
	producer.AssertNotCalled(t, "PublishLeadCreated", mock.Anything, mock.Anything)
}

func TestCaptureLead_ConcurrentSameSubmissionConvergesOnOneLead(t *testing.T) {
	const workers = 16

	store := newFakeLeadStore()
	producer := new(MockProducer)
	producer.On("PublishLeadCreated", mock.Anything, mock.Anything).Return(nil)

	// Bucket largo para todas as goroutines caírem na mesma chave.
	uc := NewCaptureLeadUseCase(store, testGuard(noopCounter{}, workers+1), producer,
		testValidationConfig(), time.Hour, 0)

	input := CaptureLeadInput{
		Fields: map[string]string{
			"email":  "joao@example.com",
			"name":   "João",
			"source": "landing",
		},
	}

	var wg sync.WaitGroup
	outputs := make([]*CaptureLeadOutput, workers)
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outputs[i], errs[i] = uc.Execute(context.Background(), input)
		}(i)
	}
	wg.Wait()

	created := 0
	ids := make(map[string]bool)
	for i := 0; i < workers; i++ {
		require.NoError(t, errs[i])
		require.NotNil(t, outputs[i])
		if outputs[i].Created {
			created++
		}
		ids[outputs[i].ID] = true
	}

	assert.Equal(t, 1, created, "exatamente um vencedor")
	assert.Len(t, ids, 1, "todos recebem o id do vencedor")
	producer.AssertNumberOfCalls(t, "PublishLeadCreated", 1)
}

func TestCaptureLead_TTLStamped(t *testing.T) {
	repo := new(MockLeadRepository)
	producer := new(MockProducer)
	guard := NewSpamGuard(noopCounter{}, SpamGuardConfig{
		HoneypotField: "website_url",
		MinFillTime:   3 * time.Second,
		Threshold:     10,
	})
	uc := NewCaptureLeadUseCase(repo, guard, producer, testValidationConfig(), 5*time.Minute, 24*time.Hour)

	repo.On("Put", mock.Anything, mock.MatchedBy(func(d *entity.LeadDraft) bool {
		return d.TTLAt != nil && d.TTLAt.After(time.Now().Add(23*time.Hour))
	})).Return("lead-123", true, nil)
	producer.On("PublishLeadCreated", mock.Anything, mock.Anything).Return(nil)

	_, err := uc.Execute(context.Background(), CaptureLeadInput{
		Fields: map[string]string{"email": "joao@example.com"},
	})

	require.NoError(t, err)
	repo.AssertExpectations(t)
}
