// Package scheduler
package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/amirphl/Kusanagi/repository"
	"github.com/amirphl/Kusanagi/utils"
)

// RetentionSweeper periodically deletes visit events older than the
// retention horizon. Aggregates are untouched; they keep the lifetime
// totals after their raw events age out.
type RetentionSweeper struct {
	eventRepo     repository.VisitEventRepository
	logger        *log.Logger
	retentionDays int
	interval      time.Duration
}

func NewRetentionSweeper(eventRepo repository.VisitEventRepository, logger *log.Logger, retentionDays int, interval time.Duration) *RetentionSweeper {
	if retentionDays <= 0 {
		retentionDays = utils.DefaultRetentionDays
	}
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	if logger == nil {
		logger = log.Default()
	}
	return &RetentionSweeper{
		eventRepo:     eventRepo,
		logger:        logger,
		retentionDays: retentionDays,
		interval:      interval,
	}
}

// Start launches the sweep loop and returns a stop function.
func (s *RetentionSweeper) Start(parent context.Context) func() {
	ctx, cancel := context.WithCancel(parent)

	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.runOnce(ctx)

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.runOnce(ctx)
			}
		}
	}()

	return cancel
}

func (s *RetentionSweeper) runOnce(ctx context.Context) {
	cutoff := utils.UTCNow().AddDate(0, 0, -s.retentionDays)

	sweepCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	deleted, err := s.eventRepo.DeleteOlderThan(sweepCtx, cutoff)
	if err != nil {
		s.logger.Printf("retention sweep failed: %v", err)
		return
	}
	if deleted > 0 {
		s.logger.Printf("retention sweep removed %d visit events older than %s", deleted, cutoff.Format(time.RFC3339))
	}
}
