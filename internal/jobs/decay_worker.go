package jobs

import (
	"context"
	"time"

	"github.com/yungbote/shellmastery-backend/internal/logger"
	"github.com/yungbote/shellmastery-backend/internal/services"
)

// DecayWorker periodically recomputes decayed scores across all practiced
// records. The batch is idempotent, so an overlapping or repeated run is
// harmless.
type DecayWorker struct {
	log      *logger.Logger
	decay    services.DecayService
	interval time.Duration
}

func NewDecayWorker(baseLog *logger.Logger, decay services.DecayService, interval time.Duration) *DecayWorker {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	return &DecayWorker{
		log:      baseLog.With("component", "DecayWorker"),
		decay:    decay,
		interval: interval,
	}
}

func (w *DecayWorker) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				w.runOnce(ctx)
			}
		}
	}()
}

func (w *DecayWorker) runOnce(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			w.log.Error("Decay batch panic", "panic", r)
		}
	}()

	start := time.Now()
	report, err := w.decay.ApplyDecayBatch(ctx)
	if err != nil {
		w.log.Warn("Decay batch failed", "error", err)
		return
	}
	w.log.Info("Decay batch finished",
		"scanned", report.Scanned,
		"decayed", report.Decayed,
		"took", time.Since(start).String(),
	)
}
