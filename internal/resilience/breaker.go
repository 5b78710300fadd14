package resilience

import (
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// ErrBreakerOpen is returned when a call is rejected because the breaker is
// open. It is not transient: retrying immediately would defeat the breaker.
var ErrBreakerOpen = eris.New("resilience: breaker open")

// Breaker is a minimal circuit breaker guarding one upstream service.
// Consecutive transient failures open it; after the cooldown a single probe
// is allowed through and a success closes it again.
type Breaker struct {
	threshold int
	cooldown  time.Duration

	mu       sync.Mutex
	failures int
	openedAt time.Time
	now      func() time.Time
}

// NewBreaker creates a breaker that opens after threshold consecutive
// failures and stays open for cooldown.
func NewBreaker(threshold int, cooldown time.Duration) *Breaker {
	if threshold <= 0 {
		threshold = 5
	}
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}
	return &Breaker{threshold: threshold, cooldown: cooldown, now: time.Now}
}

// Allow reports whether a call may proceed. When the cooldown has elapsed the
// breaker lets one probe through.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.failures < b.threshold {
		return nil
	}
	if b.now().Sub(b.openedAt) >= b.cooldown {
		// Half-open: permit a probe; its outcome decides the next state.
		return nil
	}
	return ErrBreakerOpen
}

// Record feeds a call outcome back into the breaker. Only transient errors
// count toward opening it.
func (b *Breaker) Record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err == nil || !IsTransient(err) {
		b.failures = 0
		return
	}

	b.failures++
	if b.failures == b.threshold {
		b.openedAt = b.now()
		zap.L().Warn("breaker opened",
			zap.Int("failures", b.failures),
			zap.Duration("cooldown", b.cooldown),
		)
	} else if b.failures > b.threshold {
		// Failed probe: restart the cooldown.
		b.openedAt = b.now()
	}
}
