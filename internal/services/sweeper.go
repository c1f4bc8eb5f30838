package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/unicatolica/registro-huellas/internal/clock"
)

// Sweeper periodically removes expired visitors. It runs once on Start and
// then every interval until Stop.
type Sweeper struct {
	visitors *Visitors
	clock    clock.Clock
	interval time.Duration
	logger   *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewSweeper(visitors *Visitors, clk clock.Clock, interval time.Duration, logger *slog.Logger) *Sweeper {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	return &Sweeper{visitors: visitors, clock: clk, interval: interval, logger: logger}
}

// Start launches the sweep loop. Calling Start twice is a no-op.
func (s *Sweeper) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	s.logger.Info("🕐 Visitor sweeper started", "interval", s.interval)
	go s.loop(ctx, s.done)
}

// Stop ends the loop and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
	s.logger.Info("🛑 Visitor sweeper stopped")
}

func (s *Sweeper) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := s.clock.NewTicker(s.interval)
	defer ticker.Stop()

	s.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	n, err := s.visitors.SweepExpired(ctx)
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Error("❌ Error deleting expired visitors", "error", err)
		}
		return
	}
	if n > 0 {
		s.logger.Info("✅ Expired visitors deleted", "count", n)
	}
}
