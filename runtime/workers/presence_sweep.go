package workers

import (
	"context"
	"log/slog"
	"time"

	"support-chat/contract"
	"support-chat/presence"
)

var _ contract.Worker = (*PresenceSweep)(nil)

// PresenceSweep periodically deletes expired typing indicators.
// Reads already filter by age, so this only bounds memory; it runs on its
// own timer and never blocks a write.
type PresenceSweep struct {
	log      *slog.Logger
	tracker  presence.ITracker
	interval time.Duration
}

func NewPresenceSweep(log *slog.Logger, tracker presence.ITracker, interval time.Duration) *PresenceSweep {
	return &PresenceSweep{log: log, tracker: tracker, interval: interval}
}

func (w *PresenceSweep) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if removed := w.tracker.Sweep(); removed > 0 {
				w.log.Debug("Swept expired typing indicators", "removed", removed)
			}
		}
	}
}
