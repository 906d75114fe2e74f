package studio

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// TrainingPoller refreshes training jobs on a ticker while any job is active.
// The loop stops itself after the first tick that finds nothing active; a
// later Ensure starts it again. After Stop, Ensure is a no-op.
type TrainingPoller struct {
	interval time.Duration
	refresh  func(ctx context.Context)
	active   func() bool
	logger   *slog.Logger

	mu      sync.Mutex
	running bool
	stopped bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewTrainingPoller creates a stopped poller.
func NewTrainingPoller(interval time.Duration, refresh func(context.Context), active func() bool, logger *slog.Logger) *TrainingPoller {
	if logger == nil {
		logger = slog.Default()
	}
	return &TrainingPoller{
		interval: interval,
		refresh:  refresh,
		active:   active,
		logger:   logger,
	}
}

// Ensure starts the loop if it is not running and there is work to poll.
func (p *TrainingPoller) Ensure() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped || p.running || !p.active() {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	p.running = true
	p.cancel = cancel
	p.wg.Add(1)
	go p.loop(ctx)
}

func (p *TrainingPoller) loop(ctx context.Context) {
	defer p.wg.Done()
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	p.logger.Info("training poller started", "interval", p.interval)

	for {
		select {
		case <-ticker.C:
			p.refresh(ctx)

			p.mu.Lock()
			if ctx.Err() == nil && !p.active() {
				p.running = false
				p.cancel()
				p.mu.Unlock()
				p.logger.Info("training poller idle, stopping")
				return
			}
			p.mu.Unlock()
		case <-ctx.Done():
			p.logger.Info("training poller shutting down", "reason", ctx.Err())
			return
		}
	}
}

// Running reports whether the loop is active.
func (p *TrainingPoller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Stop cancels the loop and waits for it to exit.
func (p *TrainingPoller) Stop() {
	p.mu.Lock()
	p.stopped = true
	if p.cancel != nil {
		p.cancel()
	}
	p.running = false
	p.mu.Unlock()
	p.wg.Wait()
}
