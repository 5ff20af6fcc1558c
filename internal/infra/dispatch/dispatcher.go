package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/xavierca1/ligue-leads/internal/entity"
	"github.com/xavierca1/ligue-leads/internal/infra/http/middleware"
)

// AlertSenderInterface avisa um operador quando um lead vira dead-letter.
// Opcional: nil desliga o alerta.
type AlertSenderInterface interface {
	SendDeadLetterAlert(leadID, email, lastError string) error
}

// Dispatcher é a máquina de estados de notificação por lead:
// NEW → NOTIFYING → {NOTIFIED | retry... | DEAD_LETTERED}.
// Cada tentativa é uma linha persistida; o agendamento de retry é só um
// scheduled_at no banco, disparado pelo poller — nenhum timer em
// memória precisa sobreviver entre invocações.
type Dispatcher struct {
	Leads    entity.LeadRepositoryInterface
	Attempts entity.AttemptRepositoryInterface
	Sender   WebhookSenderInterface
	Alerts   AlertSenderInterface

	MaxAttempts int
	BackoffBase time.Duration
	BackoffMax  time.Duration
}

func NewDispatcher(
	leads entity.LeadRepositoryInterface,
	attempts entity.AttemptRepositoryInterface,
	sender WebhookSenderInterface,
	maxAttempts int,
	backoffBase, backoffMax time.Duration,
) *Dispatcher {
	return &Dispatcher{
		Leads:       leads,
		Attempts:    attempts,
		Sender:      sender,
		MaxAttempts: maxAttempts,
		BackoffBase: backoffBase,
		BackoffMax:  backoffMax,
	}
}

func (d *Dispatcher) WithAlerts(alerts AlertSenderInterface) *Dispatcher {
	d.Alerts = alerts
	return d
}

// Notify tira o lead de NEW e dispara a primeira tentativa. Replays do
// evento lead.created são inofensivos: a transição condicional e o
// insert condicional da tentativa absorvem a duplicata.
func (d *Dispatcher) Notify(ctx context.Context, leadID string) error {
	err := d.Leads.UpdateStatus(ctx, leadID, entity.StatusNotifying, entity.StatusNew, entity.StatusNotifying)
	if errors.Is(err, entity.ErrStatusConflict) {
		// Já notificado, exportado ou dead-letter. Replay, ignora.
		log.Printf("ℹ️ Lead %s já saiu de NEW, ignorando evento duplicado", leadID)
		return nil
	}
	if err != nil {
		return err
	}

	attempt := &entity.DeliveryAttempt{
		ID:            uuid.New().String(),
		LeadID:        leadID,
		AttemptNumber: 1,
		ScheduledAt:   time.Now(),
	}
	if err := d.Attempts.Insert(ctx, attempt); err != nil {
		return err
	}

	// Caminho normal executa inline. Se outra invocação inseriu a
	// tentativa 1 primeiro, o Claim falha e o poller assume.
	return d.Execute(ctx, *attempt)
}

// Execute leva uma tentativa agendada até a classificação do resultado.
// Depois do Claim a tentativa sempre termina em SUCCESS, RETRYABLE ou
// FATAL — nunca fica pela metade.
func (d *Dispatcher) Execute(ctx context.Context, attempt entity.DeliveryAttempt) error {
	claimed, err := d.Attempts.Claim(ctx, attempt.ID, time.Now())
	if err != nil {
		return err
	}
	if !claimed {
		return nil
	}

	lead, err := d.Leads.GetByID(ctx, attempt.LeadID)
	if err != nil {
		if errors.Is(err, entity.ErrLeadNotFound) {
			// Lead expirou (TTL) entre o agendamento e a execução.
			log.Printf("⚠️ Tentativa %d descartada: lead %s não existe mais", attempt.AttemptNumber, attempt.LeadID)
			return nil
		}
		return err
	}

	result := d.Sender.Send(ctx, PayloadFromLead(lead))
	outcome := result.Outcome()
	middleware.RecordWebhookAttempt(outcome)

	if err := d.Attempts.RecordOutcome(ctx, attempt.ID, outcome, result.ErrorMessage()); err != nil {
		log.Printf("⚠️ Falha ao registrar resultado da tentativa %s: %v", attempt.ID, err)
	}

	switch outcome {
	case entity.OutcomeSuccess:
		log.Printf("✅ Lead %s notificado na tentativa %d", lead.ID, attempt.AttemptNumber)
		if err := d.Leads.UpdateStatus(ctx, lead.ID, entity.StatusNotified, entity.StatusNotifying); err != nil &&
			!errors.Is(err, entity.ErrStatusConflict) {
			return err
		}
		return d.Attempts.Compact(ctx, lead.ID)

	case entity.OutcomeFatal:
		log.Printf("❌ Lead %s: falha não retentável (status=%d), dead-letter direto", lead.ID, result.StatusCode)
		return d.deadLetter(ctx, lead, result.ErrorMessage())

	default: // RETRYABLE_FAILURE
		if attempt.AttemptNumber >= d.MaxAttempts {
			log.Printf("❌ Lead %s: esgotou as %d tentativas, dead-letter", lead.ID, d.MaxAttempts)
			return d.deadLetter(ctx, lead, result.ErrorMessage())
		}

		delay := Backoff(d.BackoffBase, d.BackoffMax, attempt.AttemptNumber)
		next := &entity.DeliveryAttempt{
			ID:            uuid.New().String(),
			LeadID:        lead.ID,
			AttemptNumber: attempt.AttemptNumber + 1,
			ScheduledAt:   time.Now().Add(delay),
		}
		log.Printf("🔁 Lead %s: tentativa %d falhou (status=%d), próxima em %s",
			lead.ID, attempt.AttemptNumber, result.StatusCode, delay.Round(time.Second))
		return d.Attempts.Insert(ctx, next)
	}
}

func (d *Dispatcher) deadLetter(ctx context.Context, lead *entity.Lead, lastError string) error {
	if err := d.Leads.UpdateStatus(ctx, lead.ID, entity.StatusDeadLettered, entity.StatusNotifying); err != nil &&
		!errors.Is(err, entity.ErrStatusConflict) {
		return err
	}
	if err := d.Attempts.Compact(ctx, lead.ID); err != nil {
		return err
	}
	middleware.RecordDeadLetter()

	if d.Alerts != nil {
		if err := d.Alerts.SendDeadLetterAlert(lead.ID, lead.Email, lastError); err != nil {
			log.Printf("⚠️ Falha ao enviar alerta de dead-letter do lead %s: %v", lead.ID, err)
		}
	}
	return nil
}

// RunDue executa em paralelo as tentativas vencidas, no máximo
// maxInFlight por tick. O excedente espera o próximo tick do poller em
// vez de paralelismo sem teto.
func (d *Dispatcher) RunDue(ctx context.Context, now time.Time, maxInFlight int) (int, error) {
	due, err := d.Attempts.Due(ctx, now, maxInFlight)
	if err != nil {
		return 0, fmt.Errorf("buscar tentativas vencidas: %w", err)
	}

	var wg sync.WaitGroup
	for _, attempt := range due {
		wg.Add(1)
		go func(a entity.DeliveryAttempt) {
			defer wg.Done()
			if err := d.Execute(ctx, a); err != nil {
				log.Printf("❌ Erro ao executar tentativa %d do lead %s: %v", a.AttemptNumber, a.LeadID, err)
			}
		}(attempt)
	}
	wg.Wait()
	return len(due), nil
}
