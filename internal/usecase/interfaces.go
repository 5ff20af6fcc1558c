package usecase

import (
	"context"
	"time"

	"github.com/xavierca1/ligue-leads/internal/infra/queue"
)

// RateCounter é o contador compartilhado do spam guard. Implementado
// sobre Redis; qualquer handler stateless enxerga a mesma contagem.
type RateCounter interface {
	// IncrAndCount incrementa o bucket corrente do fingerprint e devolve
	// o total observado na janela deslizante.
	IncrAndCount(ctx context.Context, fingerprint string, now time.Time) (int64, error)
}

// LeadEventProducerInterface publica o evento lead.created para o
// dispatcher assíncrono. A ingestão nunca espera o downstream.
type LeadEventProducerInterface interface {
	PublishLeadCreated(ctx context.Context, payload queue.LeadCreatedPayload) error
}
