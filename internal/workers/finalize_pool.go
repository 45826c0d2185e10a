package workers

import (
	"context"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	ErrQueueFull    = errors.New("finalize queue is full")
	ErrPoolStopped  = errors.New("finalize pool is stopped")
	ErrPoolNotReady = errors.New("finalize pool is not started")
)

// FinalizePool runs finalizations on in-process goroutines fed by a bounded
// channel. Dispatch never blocks: a full queue is reported as ErrQueueFull.
type FinalizePool struct {
	Runner     Runner
	NumWorkers int
	QueueSize  int
	Logger     *logrus.Logger

	mu      sync.RWMutex
	queue   chan string
	stopped bool
	wg      sync.WaitGroup
}

func (p *FinalizePool) Start(ctx context.Context) error {
	if p.Runner == nil {
		return errors.New("FinalizePool missing dependency: Runner must be set")
	}
	if p.NumWorkers <= 0 {
		p.NumWorkers = 4
	}
	if p.QueueSize <= 0 {
		p.QueueSize = 256
	}
	if p.Logger == nil {
		p.Logger = logrus.New()
	}

	p.mu.Lock()
	p.queue = make(chan string, p.QueueSize)
	p.mu.Unlock()

	for i := 0; i < p.NumWorkers; i++ {
		p.wg.Add(1)
		go p.runWorker(ctx, i+1)
	}
	return nil
}

func (p *FinalizePool) Dispatch(_ context.Context, callID string) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.stopped {
		return ErrPoolStopped
	}
	if p.queue == nil {
		return ErrPoolNotReady
	}
	select {
	case p.queue <- callID:
		return nil
	default:
		return ErrQueueFull
	}
}

// Stop closes the queue and waits for queued calls to finish.
func (p *FinalizePool) Stop() {
	p.mu.Lock()
	if p.stopped || p.queue == nil {
		p.stopped = true
		p.mu.Unlock()
		return
	}
	p.stopped = true
	close(p.queue)
	p.mu.Unlock()

	p.wg.Wait()
}

func (p *FinalizePool) runWorker(ctx context.Context, n int) {
	defer p.wg.Done()

	log := p.Logger.WithField("worker", n)
	for callID := range p.queue {
		// Finalization outlives the request that queued it but not shutdown of the
		// queue, which drains first.
		if err := p.Runner.Run(context.WithoutCancel(ctx), callID); err != nil {
			log.WithError(err).WithField("call_id", callID).Warn("finalization returned error")
		}
	}
}
