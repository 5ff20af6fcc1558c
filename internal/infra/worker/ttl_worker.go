package worker

import (
	"context"
	"log"
	"time"

	"github.com/xavierca1/ligue-leads/internal/entity"
)

// TTLWorker apaga leads cujo ttl_at venceu (retenção por compliance).
type TTLWorker struct {
	repo         entity.LeadRepositoryInterface
	tickInterval time.Duration
}

func NewTTLWorker(repo entity.LeadRepositoryInterface) *TTLWorker {
	return &TTLWorker{
		repo:         repo,
		tickInterval: 10 * time.Minute,
	}
}

func (w *TTLWorker) Start(ctx context.Context) {
	log.Println("🕒 TTL Worker iniciado")

	ticker := time.NewTicker(w.tickInterval)
	defer ticker.Stop()

	w.purge(ctx)

	for {
		select {
		case <-ctx.Done():
			log.Println("⚠️ TTL Worker encerrado")
			return
		case <-ticker.C:
			w.purge(ctx)
		}
	}
}

func (w *TTLWorker) purge(ctx context.Context) {
	n, err := w.repo.DeleteExpired(ctx, time.Now())
	if err != nil {
		log.Printf("❌ Erro ao apagar leads expirados: %v", err)
		return
	}
	if n > 0 {
		log.Printf("🧹 %d lead(s) expirados removidos", n)
	}
}
