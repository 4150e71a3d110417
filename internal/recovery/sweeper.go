package recovery

import (
	"context"
	"time"

	"github.com/safarides/safar-backend/pkg/logger"
	"github.com/safarides/safar-backend/pkg/models"
	"go.uber.org/zap"
)

const (
	timeoutSweepInterval = 15 * time.Second
	pauseSweepInterval   = time.Minute
	timeoutSweepBatch    = 50
)

// TimedOutSource lists bookings past their SEARCHING deadline.
type TimedOutSource interface {
	TimedOut(ctx context.Context, limit int) ([]models.Booking, error)
}

// PauseResumer clears lapsed provider pauses.
type PauseResumer interface {
	ResumeExpiredPauses(ctx context.Context) (int64, error)
}

// Sweeper runs the periodic maintenance loops: failing timed-out bookings
// and resuming providers whose pause lapsed.
type Sweeper struct {
	recovery *Service
	bookings TimedOutSource
	pauses   PauseResumer
	done     chan struct{}
}

// NewSweeper creates a new sweeper
func NewSweeper(recovery *Service, bookings TimedOutSource, pauses PauseResumer) *Sweeper {
	return &Sweeper{
		recovery: recovery,
		bookings: bookings,
		pauses:   pauses,
		done:     make(chan struct{}),
	}
}

// Start launches the sweep loops. Call Stop to terminate them.
func (s *Sweeper) Start() {
	go s.timeoutLoop()
	go s.pauseLoop()
	logger.Info("recovery sweeper started",
		zap.Duration("timeout_interval", timeoutSweepInterval),
		zap.Duration("pause_interval", pauseSweepInterval),
	)
}

// Stop terminates the sweep loops.
func (s *Sweeper) Stop() {
	close(s.done)
}

func (s *Sweeper) timeoutLoop() {
	ticker := time.NewTicker(timeoutSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.sweepTimeouts()
		case <-s.done:
			return
		}
	}
}

func (s *Sweeper) pauseLoop() {
	ticker := time.NewTicker(pauseSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.sweepPauses()
		case <-s.done:
			return
		}
	}
}

func (s *Sweeper) sweepTimeouts() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	timedOut, err := s.bookings.TimedOut(ctx, timeoutSweepBatch)
	if err != nil {
		logger.Error("timeout sweep query failed", zap.Error(err))
		return
	}

	for i := range timedOut {
		booking := timedOut[i]
		bctx := logger.ContextWithBookingID(ctx, booking.ID.String())
		if err := s.recovery.FailTimedOut(bctx, &booking); err != nil {
			logger.ErrorContext(bctx, "failed to escalate timed-out booking", zap.Error(err))
		}
	}

	if len(timedOut) > 0 {
		logger.Info("timeout sweep completed", zap.Int("escalated", len(timedOut)))
	}
}

func (s *Sweeper) sweepPauses() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	resumed, err := s.pauses.ResumeExpiredPauses(ctx)
	if err != nil {
		logger.Error("pause sweep failed", zap.Error(err))
		return
	}
	if resumed > 0 {
		logger.Info("providers resumed from expired pauses", zap.Int64("count", resumed))
	}
}
