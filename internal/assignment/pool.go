package assignment

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/safarides/safar-backend/internal/bookings"
	"github.com/safarides/safar-backend/pkg/logger"
	"go.uber.org/zap"
)

// DefaultWorkers is the assignment pool size when configuration is silent.
const DefaultWorkers = 4

// taskBuffer bounds the dispatch queue. A full queue drops the dispatch; the
// timeout sweeper picks the booking up later.
const taskBuffer = 256

// Pool runs provider assignment concurrently. One booking is in flight at
// most once (single-flight), and a user cancellation aborts its assignment
// mid-run.
type Pool struct {
	assigner *Service
	tasks    chan bookings.AssignmentRequest
	workers  int

	mu       sync.Mutex
	inFlight map[uuid.UUID]context.CancelFunc

	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewPool creates an assignment pool with the given concurrency.
func NewPool(assigner *Service, workers int) *Pool {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		assigner: assigner,
		tasks:    make(chan bookings.AssignmentRequest, taskBuffer),
		workers:  workers,
		inFlight: make(map[uuid.UUID]context.CancelFunc),
		baseCtx:  ctx,
		cancel:   cancel,
	}
}

// Start launches the workers.
func (p *Pool) Start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	logger.Info("assignment pool started", zap.Int("workers", p.workers))
}

// Stop aborts in-flight assignments and waits for the workers to drain.
func (p *Pool) Stop() {
	p.cancel()
	close(p.tasks)
	p.wg.Wait()
}

// Dispatch queues a booking for assignment. A booking already queued or
// running is not queued twice.
func (p *Pool) Dispatch(req bookings.AssignmentRequest) {
	p.mu.Lock()
	if _, running := p.inFlight[req.BookingID]; running {
		p.mu.Unlock()
		logger.Debug("assignment already in flight",
			zap.String("booking_id", req.BookingID.String()))
		return
	}
	// Reserve the slot before queueing; the worker swaps in its own cancel.
	p.inFlight[req.BookingID] = func() {}
	p.mu.Unlock()

	select {
	case p.tasks <- req:
	default:
		p.clear(req.BookingID)
		logger.Warn("assignment queue full, dropping dispatch",
			zap.String("booking_id", req.BookingID.String()))
	}
}

// CancelInFlight aborts a running assignment for the booking, if any.
func (p *Pool) CancelInFlight(bookingID uuid.UUID) {
	p.mu.Lock()
	cancel, ok := p.inFlight[bookingID]
	p.mu.Unlock()
	if ok {
		cancel()
	}
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for req := range p.tasks {
		p.process(req)
	}
}

func (p *Pool) process(req bookings.AssignmentRequest) {
	ctx, cancel := context.WithCancel(p.baseCtx)
	p.mu.Lock()
	p.inFlight[req.BookingID] = cancel
	p.mu.Unlock()

	defer func() {
		cancel()
		p.clear(req.BookingID)
	}()

	ctx = logger.ContextWithBookingID(ctx, req.BookingID.String())
	if err := p.assigner.Assign(ctx, req); err != nil && ctx.Err() == nil {
		logger.ErrorContext(ctx, "assignment failed", zap.Error(err))
	}
}

func (p *Pool) clear(bookingID uuid.UUID) {
	p.mu.Lock()
	delete(p.inFlight, bookingID)
	p.mu.Unlock()
}

var _ bookings.Dispatcher = (*Pool)(nil)
