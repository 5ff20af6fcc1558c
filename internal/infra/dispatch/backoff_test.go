package dispatch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackoff_GrowsExponentiallyUntilCap(t *testing.T) {
	base := time.Second
	max := time.Hour

	prev := time.Duration(0)
	for attempt := 1; attempt <= 10; attempt++ {
		delay := Backoff(base, max, attempt)

		floor := base * (1 << uint(attempt))
		if floor > max {
			floor = max
		}
		assert.GreaterOrEqual(t, delay, floor, "tentativa %d", attempt)
		assert.Less(t, delay, floor+base, "jitter é limitado a [0, base)")
		assert.Greater(t, delay, prev-base, "progressão não regride além do jitter")
		prev = delay
	}
}

func TestBackoff_CappedAtMax(t *testing.T) {
	base := time.Minute
	max := 5 * time.Minute

	delay := Backoff(base, max, 10) // 2^10 min sem teto
	assert.GreaterOrEqual(t, delay, max)
	assert.Less(t, delay, max+base)
}

func TestBackoff_LargeAttemptDoesNotOverflow(t *testing.T) {
	delay := Backoff(time.Hour, 24*time.Hour, 500)
	assert.GreaterOrEqual(t, delay, 24*time.Hour)
	assert.Less(t, delay, 25*time.Hour)
}

func TestBackoff_AttemptBelowOneClamped(t *testing.T) {
	delay := Backoff(time.Second, time.Hour, 0)
	assert.GreaterOrEqual(t, delay, 2*time.Second)
	assert.Less(t, delay, 3*time.Second)
}
