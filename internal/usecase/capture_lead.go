package usecase

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/xavierca1/ligue-leads/internal/entity"
	"github.com/xavierca1/ligue-leads/internal/infra/queue"
)

type CaptureLeadInput struct {
	Fields    map[string]string
	ClientIP  string
	UserAgent string
}

type CaptureLeadOutput struct {
	ID      string `json:"id"`
	Created bool   `json:"created"`
}

// CaptureLeadUseCase é o caminho de ingestão: validação → spam guard →
// put idempotente → fan-out assíncrono. Falha rápido e síncrono em
// erro de validação/guard/store; o webhook nunca derruba a submissão.
type CaptureLeadUseCase struct {
	Repo              entity.LeadRepositoryInterface
	Guard             *SpamGuard
	Producer          LeadEventProducerInterface
	Validation        ValidationConfig
	IdempotencyBucket time.Duration
	LeadTTL           time.Duration
}

func NewCaptureLeadUseCase(
	repo entity.LeadRepositoryInterface,
	guard *SpamGuard,
	producer LeadEventProducerInterface,
	validation ValidationConfig,
	idempotencyBucket time.Duration,
	leadTTL time.Duration,
) *CaptureLeadUseCase {
	return &CaptureLeadUseCase{
		Repo:              repo,
		Guard:             guard,
		Producer:          producer,
		Validation:        validation,
		IdempotencyBucket: idempotencyBucket,
		LeadTTL:           leadTTL,
	}
}

func (uc *CaptureLeadUseCase) Execute(ctx context.Context, input CaptureLeadInput) (*CaptureLeadOutput, error) {
	draft, verrs := ValidateSubmission(input.Fields, uc.Validation)
	if verrs != nil {
		return nil, verrs
	}

	now := time.Now()

	fingerprint := Fingerprint(input.ClientIP, input.UserAgent)
	if err := uc.Guard.Check(ctx, input.Fields, fingerprint, now); err != nil {
		if errors.Is(err, ErrSpamSuspected) {
			// Sucesso fake com id descartável. Nada é persistido.
			log.Printf("🪤 Lead descartado por heurística de spam (fingerprint=%s...)", fingerprint[:8])
			return &CaptureLeadOutput{ID: uuid.New().String(), Created: true}, nil
		}
		return nil, err
	}

	draft.IdempotencyKey = DeriveIdempotencyKey(draft, now, uc.IdempotencyBucket)
	if uc.LeadTTL > 0 {
		expiry := now.Add(uc.LeadTTL)
		draft.TTLAt = &expiry
	}

	id, created, err := uc.Repo.Put(ctx, draft)
	if err != nil {
		return nil, err
	}

	if created {
		payload := queue.LeadCreatedPayload{
			LeadID: id,
			Email:  draft.Email,
			Source: draft.Source,
		}
		// Fan-out é desacoplado: falha aqui não derruba a submissão já
		// persistida. O redrive manual cobre o evento perdido.
		if err := uc.Producer.PublishLeadCreated(ctx, payload); err != nil {
			log.Printf("❌ Falha ao publicar lead.created (lead=%s): %v", id, err)
		}
	}

	return &CaptureLeadOutput{ID: id, Created: created}, nil
}
