package translation

import (
	"context"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"

	"github.com/socialchef/recipebot/internal/errors"
)

const (
	breakerTimeout          = 30 * time.Second
	breakerInterval         = time.Minute
	breakerFailureThreshold = 5
)

// BreakerProvider stops calling a failing translation API for a while after
// several consecutive failures, so a dead upstream costs one fast error per
// ingredient instead of a full timeout.
type BreakerProvider struct {
	next Provider
	cb   *gobreaker.CircuitBreaker
}

// NewBreakerProvider wraps next with a circuit breaker.
func NewBreakerProvider(next Provider) *BreakerProvider {
	return newBreakerProvider(next, breakerTimeout)
}

func newBreakerProvider(next Provider, timeout time.Duration) *BreakerProvider {
	settings := gobreaker.Settings{
		Name:        "translation",
		MaxRequests: 1,
		Interval:    breakerInterval,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerFailureThreshold
		},
		// Rejected input says nothing about the health of the API.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.KindOf(err) == errors.ErrorTypeValidation
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("Circuit breaker state changed",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	}

	return &BreakerProvider{
		next: next,
		cb:   gobreaker.NewCircuitBreaker(settings),
	}
}

// Translate implements Provider.
func (p *BreakerProvider) Translate(ctx context.Context, text string, pair LangPair) (string, error) {
	result, err := p.cb.Execute(func() (interface{}, error) {
		return p.next.Translate(ctx, text, pair)
	})
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return "", errors.NewNetworkError("translation temporarily disabled", "TRANSLATION_CIRCUIT_OPEN", err)
		}
		return "", err
	}
	return result.(string), nil
}

// State reports the breaker state, mostly for tests and debug logs.
func (p *BreakerProvider) State() gobreaker.State {
	return p.cb.State()
}
