package booking

import (
	"context"
	"time"

	"tutorslot/internal/logger"
	"tutorslot/internal/metrics"
)

// Sweeper drives every time-based transition: approval and payment windows
// expiring, ended sessions entering their confirmation window, and unclaimed
// confirmations auto-completing.
type Sweeper struct {
	service  Service
	interval time.Duration
}

func NewSweeper(service Service, interval time.Duration) *Sweeper {
	return &Sweeper{service: service, interval: interval}
}

// Run blocks until ctx is cancelled, sweeping once per interval.
func (s *Sweeper) Run(ctx context.Context) {
	logger.Info("booking sweeper started", "interval", s.interval)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("booking sweeper stopped")
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs each pass independently so one failing query never starves the
// others.
func (s *Sweeper) Sweep(ctx context.Context) {
	start := time.Now()

	if n, err := s.service.ExpireApprovals(ctx); err != nil {
		logger.Error("sweep: expire approvals failed", "error", err)
		metrics.RecordSweepError()
	} else if n > 0 {
		logger.Info("sweep: expired unapproved bookings", "count", n)
	}

	if n, err := s.service.ExpirePayments(ctx); err != nil {
		logger.Error("sweep: expire payments failed", "error", err)
		metrics.RecordSweepError()
	} else if n > 0 {
		logger.Info("sweep: expired unpaid bookings", "count", n)
	}

	if n, err := s.service.StartConfirmations(ctx); err != nil {
		logger.Error("sweep: start confirmations failed", "error", err)
		metrics.RecordSweepError()
	} else if n > 0 {
		logger.Info("sweep: sessions awaiting confirmation", "count", n)
	}

	if n, err := s.service.AutoComplete(ctx); err != nil {
		logger.Error("sweep: auto-complete failed", "error", err)
		metrics.RecordSweepError()
	} else if n > 0 {
		logger.Info("sweep: auto-completed sessions", "count", n)
	}

	metrics.RecordSweep(time.Since(start))
}
