package core

// scheduler.go provides the background sweep that expires idle sessions.
//
// The sweeper is designed to be long-running and context-aware for graceful
// shutdown. It runs once on start, then every interval, and logs how many
// sessions each pass removed.

import (
	"context"
	"log/slog"
	"time"
)

// DefaultSweepInterval is how often idle sessions are looked for.
const DefaultSweepInterval = time.Minute

// RunSweeper removes expired sessions until ctx is cancelled.
// It always returns nil so it can run inside an errgroup.
func (st *SessionStore) RunSweeper(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	slog.Info("session sweeper started",
		"interval", interval.String(),
		"ttl", st.ttl.String(),
	)

	st.runSweep()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("session sweeper stopped")
			return nil
		case <-ticker.C:
			st.runSweep()
		}
	}
}

// runSweep performs one expiry pass.
func (st *SessionStore) runSweep() {
	start := time.Now()
	removed := st.Sweep()
	if removed > 0 {
		slog.Info("expired idle sessions",
			"sessions_removed", removed,
			"sessions_active", st.Len(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return
	}
	slog.Debug("session sweep found nothing to expire", "sessions_active", st.Len())
}
