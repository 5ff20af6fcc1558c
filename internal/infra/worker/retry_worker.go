package worker

import (
	"context"
	"log"
	"time"

	"github.com/xavierca1/ligue-leads/internal/infra/dispatch"
)

// RetryWorker é o gatilho de tempo do dispatcher: varre tentativas com
// scheduled_at vencido e as executa. É o substituto de qualquer timer
// em memória — se o processo cair, o agendamento sobrevive no banco.
type RetryWorker struct {
	dispatcher   *dispatch.Dispatcher
	tickInterval time.Duration
	maxInFlight  int
}

func NewRetryWorker(d *dispatch.Dispatcher, tickInterval time.Duration, maxInFlight int) *RetryWorker {
	return &RetryWorker{
		dispatcher:   d,
		tickInterval: tickInterval,
		maxInFlight:  maxInFlight,
	}
}

func (w *RetryWorker) Start(ctx context.Context) {
	log.Printf("🕒 Retry Worker iniciado (tick=%s, max_in_flight=%d)", w.tickInterval, w.maxInFlight)

	ticker := time.NewTicker(w.tickInterval)
	defer ticker.Stop()

	w.runOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			log.Println("⚠️ Retry Worker encerrado")
			return
		case <-ticker.C:
			w.runOnce(ctx)
		}
	}
}

func (w *RetryWorker) runOnce(ctx context.Context) {
	n, err := w.dispatcher.RunDue(ctx, time.Now(), w.maxInFlight)
	if err != nil {
		log.Printf("❌ Retry Worker: %v", err)
		return
	}
	if n > 0 {
		log.Printf("⚙️ Retry Worker: %d tentativa(s) executada(s)", n)
	}
}
