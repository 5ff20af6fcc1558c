package entity

import (
	"context"
	"time"
)

// Resultado de uma tentativa de entrega do webhook. Estado interno do
// dispatcher, nunca exposto na API.
const (
	OutcomeSuccess   = "SUCCESS"
	OutcomeRetryable = "RETRYABLE_FAILURE"
	OutcomeFatal     = "FATAL_FAILURE"
)

// DeliveryAttempt registra uma tentativa (executada ou agendada) de
// notificar o downstream sobre um lead. AttemptNumber começa em 1.
type DeliveryAttempt struct {
	ID            string
	LeadID        string
	AttemptNumber int
	ScheduledAt   time.Time
	ExecutedAt    *time.Time
	Outcome       string
	Error         string
}

type AttemptRepositoryInterface interface {
	Insert(ctx context.Context, attempt *DeliveryAttempt) error

	// Claim marca a tentativa como em execução (executed_at) de forma
	// atômica. Devolve false se outra invocação já a reivindicou.
	Claim(ctx context.Context, attemptID string, now time.Time) (bool, error)

	RecordOutcome(ctx context.Context, attemptID, outcome, errMsg string) error

	// Due lista tentativas pendentes com scheduled_at vencido, mais
	// antigas primeiro, limitadas ao teto de concorrência.
	Due(ctx context.Context, now time.Time, limit int) ([]DeliveryAttempt, error)

	// Compact remove o histórico de tentativas de um lead que chegou a
	// um status terminal. O resumo sobrevive no status do lead.
	Compact(ctx context.Context, leadID string) error
}
