package session

// janitor.go evicts idle sessions in the background.
//
// The janitor is long-running and context-aware for graceful shutdown. Each
// sweep drops sessions not seen within the idle timeout, releasing their
// cached base tables.

import (
	"context"
	"log/slog"
	"time"
)

// RunJanitor sweeps the store every interval until ctx is cancelled.
func (st *Store) RunJanitor(ctx context.Context, idleTimeout, interval time.Duration) {
	slog.Info("session janitor started",
		"idle_timeout", idleTimeout,
		"interval", interval,
	)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("session janitor stopped")
			return
		case now := <-ticker.C:
			st.sweepOnce(now, idleTimeout)
		}
	}
}

func (st *Store) sweepOnce(now time.Time, idleTimeout time.Duration) {
	start := time.Now()
	evicted := st.Sweep(now.Add(-idleTimeout))
	if evicted > 0 {
		slog.Info("idle sessions evicted",
			"evicted", evicted,
			"remaining", st.Len(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}
