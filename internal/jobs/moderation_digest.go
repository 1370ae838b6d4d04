// Package jobs runs periodic background work.
package jobs

import (
	"context"
	"log/slog"
	"time"
)

// PendingCounter counts reports awaiting moderation.
type PendingCounter interface {
	CountPendingReports(ctx context.Context) (int, error)
}

// DigestNotifier delivers the pending-moderation reminder.
type DigestNotifier interface {
	NotifyPendingDigest(ctx context.Context, pending int)
}

// ModerationDigest periodically reminds administrators about the moderation queue.
type ModerationDigest struct {
	counter  PendingCounter
	notifier DigestNotifier
	interval time.Duration
}

// NewModerationDigest creates a digest job. A non-positive interval disables it.
func NewModerationDigest(counter PendingCounter, notifier DigestNotifier, interval time.Duration) *ModerationDigest {
	return &ModerationDigest{
		counter:  counter,
		notifier: notifier,
		interval: interval,
	}
}

// Enabled reports whether Start will do any work.
func (m *ModerationDigest) Enabled() bool {
	return m.interval > 0
}

// Start runs the digest loop until ctx is cancelled. The first digest is sent
// one interval after start.
func (m *ModerationDigest) Start(ctx context.Context) {
	if !m.Enabled() {
		slog.Info("moderation digest disabled")
		return
	}
	slog.Info("moderation digest started", "interval", m.interval)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("moderation digest stopped")
			return
		case <-ticker.C:
			m.runOnce(ctx)
		}
	}
}

func (m *ModerationDigest) runOnce(ctx context.Context) {
	pending, err := m.counter.CountPendingReports(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "moderation digest: failed to count pending reports", "error", err)
		return
	}
	if pending == 0 {
		return
	}

	slog.InfoContext(ctx, "moderation digest: reports awaiting moderation", "pending", pending)
	m.notifier.NotifyPendingDigest(ctx, pending)
}
