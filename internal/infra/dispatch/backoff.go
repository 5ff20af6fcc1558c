package dispatch

import (
	"math/rand"
	"time"
)

// Backoff calcula o atraso até a próxima tentativa depois da falha da
// tentativa attempt (1-based): min(max, base * 2^attempt) + jitter em
// [0, base). O jitter quebra tempestades de retry sincronizadas e a
// progressão continua estritamente crescente até o teto.
func Backoff(base, max time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	// Trava o expoente para não estourar int64.
	if attempt > 20 {
		attempt = 20
	}

	delay := base * (1 << uint(attempt))
	if delay > max || delay <= 0 {
		delay = max
	}

	jitter := time.Duration(rand.Int63n(int64(base)))
	return delay + jitter
}
