package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/xavierca1/ligue-leads/internal/entity"
)

// ErrSpamSuspected sinaliza honeypot preenchido ou preenchimento rápido
// demais para um humano. O handler responde sucesso fake — o bot não
// aprende nada.
var ErrSpamSuspected = errors.New("submission flagged as spam")

// Campo opcional que o widget envia com o instante de renderização do
// formulário, em epoch millis.
const renderedAtField = "form_rendered_at"

type SpamGuardConfig struct {
	HoneypotField string
	MinFillTime   time.Duration
	Threshold     int
}

// SpamGuard decide ADMIT ou rejeição antes do lead chegar ao store.
// Os sinais heurísticos (honeypot, tempo de preenchimento) falham
// abertos: sinal ausente ou ilegível nunca bloqueia tráfego legítimo.
type SpamGuard struct {
	Counter RateCounter
	Config  SpamGuardConfig
}

func NewSpamGuard(counter RateCounter, config SpamGuardConfig) *SpamGuard {
	return &SpamGuard{Counter: counter, Config: config}
}

func (g *SpamGuard) Check(ctx context.Context, raw map[string]string, fingerprint string, now time.Time) error {
	if g.Config.HoneypotField != "" {
		if v, ok := raw[g.Config.HoneypotField]; ok && strings.TrimSpace(v) != "" {
			return ErrSpamSuspected
		}
	}

	if g.Config.MinFillTime > 0 {
		if v, ok := raw[renderedAtField]; ok {
			if ms, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil && ms > 0 {
				renderedAt := time.UnixMilli(ms)
				elapsed := now.Sub(renderedAt)
				if elapsed >= 0 && elapsed < g.Config.MinFillTime {
					return ErrSpamSuspected
				}
			}
			// Valor ilegível ou no futuro: sinal heurístico, admite.
		}
	}

	count, err := g.Counter.IncrAndCount(ctx, fingerprint, now)
	if err != nil {
		// Falha no contador nunca admite nem bloqueia em silêncio.
		return entity.NewStorageError("rate counter", err)
	}
	if count > int64(g.Config.Threshold) {
		return entity.ErrRateLimited
	}

	return nil
}

// Fingerprint deriva o identificador de origem: IP + assinatura grossa
// do user-agent. Serve para defesa de abuso, não para identidade.
func Fingerprint(ip, userAgent string) string {
	ua := strings.ToLower(strings.TrimSpace(userAgent))
	if len(ua) > 32 {
		ua = ua[:32]
	}
	sum := sha256.Sum256([]byte(ip + "|" + ua))
	return hex.EncodeToString(sum[:])
}
