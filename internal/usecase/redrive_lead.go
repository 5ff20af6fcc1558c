package usecase

import (
	"context"
	"log"

	"github.com/xavierca1/ligue-leads/internal/entity"
	"github.com/xavierca1/ligue-leads/internal/infra/queue"
)

// RedriveLeadUseCase reenfileira um lead para nova rodada de
// notificação: a saída do DEAD_LETTERED e também o resgate de um lead
// parado em NEW cujo evento lead.created se perdeu na publicação.
type RedriveLeadUseCase struct {
	Repo     entity.LeadRepositoryInterface
	Producer LeadEventProducerInterface
}

func NewRedriveLeadUseCase(repo entity.LeadRepositoryInterface, producer LeadEventProducerInterface) *RedriveLeadUseCase {
	return &RedriveLeadUseCase{Repo: repo, Producer: producer}
}

func (uc *RedriveLeadUseCase) Execute(ctx context.Context, leadID string) error {
	lead, err := uc.Repo.GetByID(ctx, leadID)
	if err != nil {
		return err
	}
	if lead.Status != entity.StatusDeadLettered && lead.Status != entity.StatusNew {
		return entity.ErrNotRedrivable
	}

	if err := uc.Repo.UpdateStatus(ctx, leadID, entity.StatusNew,
		entity.StatusDeadLettered, entity.StatusNew); err != nil {
		return err
	}

	payload := queue.LeadCreatedPayload{
		LeadID: lead.ID,
		Email:  lead.Email,
		Source: lead.Source,
	}
	if err := uc.Producer.PublishLeadCreated(ctx, payload); err != nil {
		return err
	}

	log.Printf("🔁 Lead %s reenfileirado para notificação (redrive)", leadID)
	return nil
}
