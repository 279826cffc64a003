package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/terra-clan/daywise/internal/agent"
	"github.com/terra-clan/daywise/internal/metrics"
)

// ErrBusy is returned when no model slot frees up within the wait budget
var ErrBusy = errors.New("too many generations in progress")

// Limiter caps the number of concurrent model calls
type Limiter struct {
	next    agent.Completer
	sem     *semaphore.Weighted
	maxWait time.Duration
}

// NewLimiter wraps next so at most maxConcurrent calls run at once.
// Callers wait up to maxWait for a slot; zero waits as long as ctx allows.
func NewLimiter(next agent.Completer, maxConcurrent int, maxWait time.Duration) *Limiter {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	return &Limiter{
		next:    next,
		sem:     semaphore.NewWeighted(int64(maxConcurrent)),
		maxWait: maxWait,
	}
}

// Complete acquires a slot and delegates to the wrapped client
func (l *Limiter) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	acquireCtx := ctx
	if l.maxWait > 0 {
		var cancel context.CancelFunc
		acquireCtx, cancel = context.WithTimeout(ctx, l.maxWait)
		defer cancel()
	}

	if err := l.sem.Acquire(acquireCtx, 1); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("%w: waited %s", ErrBusy, l.maxWait)
	}
	metrics.LLMSlotAcquired()
	defer func() {
		l.sem.Release(1)
		metrics.LLMSlotReleased()
	}()

	return l.next.Complete(ctx, systemPrompt, userPrompt)
}
