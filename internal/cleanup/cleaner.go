package cleanup

import (
	"context"
	"log/slog"
	"time"
)

// Expirer resets generation attempts that have been running too long
type Expirer interface {
	ExpireStaleGeneration(maxAge time.Duration) bool
}

// Refresher reloads cached roadmaps from shared storage. Expirers that also
// implement it are refreshed on every cycle, which picks up roadmaps saved by
// other processes such as the generate command.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Cleaner periodically expires stuck generation attempts so observers never
// wait on Generating forever
type Cleaner struct {
	expirer  Expirer
	interval time.Duration
	maxAge   time.Duration
	done     chan struct{}
}

// NewCleaner creates a new cleanup worker
func NewCleaner(expirer Expirer, interval, maxAge time.Duration) *Cleaner {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if maxAge <= 0 {
		maxAge = 10 * time.Minute
	}

	return &Cleaner{
		expirer:  expirer,
		interval: interval,
		maxAge:   maxAge,
		done:     make(chan struct{}),
	}
}

// Start begins the cleanup worker in a goroutine. It stops when ctx is done.
func (c *Cleaner) Start(ctx context.Context) {
	go c.run(ctx)
}

// Done is closed once the worker has stopped
func (c *Cleaner) Done() <-chan struct{} {
	return c.done
}

func (c *Cleaner) run(ctx context.Context) {
	defer close(c.done)
	slog.Info("cleanup worker started", "interval", c.interval, "max_age", c.maxAge)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.cleanup(ctx)

	for {
		select {
		case <-ctx.Done():
			slog.Info("cleanup worker stopped")
			return
		case <-ticker.C:
			c.cleanup(ctx)
		}
	}
}

func (c *Cleaner) cleanup(ctx context.Context) {
	slog.Debug("running cleanup cycle")

	if c.expirer.ExpireStaleGeneration(c.maxAge) {
		slog.Info("expired stale generation attempt", "max_age", c.maxAge)
	}

	if r, ok := c.expirer.(Refresher); ok {
		if err := r.Refresh(ctx); err != nil && ctx.Err() == nil {
			slog.Warn("failed to refresh roadmaps", "error", err)
		}
	}
}
