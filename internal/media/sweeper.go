package media

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Sweeper periodically reclaims trashed assets whose retention window has
// elapsed. It runs independently of request handlers; the per-asset locking
// inside SweepExpired keeps the two safe against each other.
type Sweeper struct {
	lifecycle *LifecycleService
	interval  time.Duration
	logger    *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// NewSweeper constructs a sweeper ticking at the provided interval.
func NewSweeper(lifecycle *LifecycleService, interval time.Duration, logger *slog.Logger) *Sweeper {
	if interval <= 0 {
		interval = time.Hour
	}
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Sweeper{
		lifecycle: lifecycle,
		interval:  interval,
		logger:    logger,
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
	}
}

// Start launches the sweep loop in the background.
func (s *Sweeper) Start() {
	go s.run()
}

func (s *Sweeper) run() {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			reclaimed, err := s.lifecycle.SweepExpired(s.ctx)
			if err != nil {
				s.logger.Error("trash sweep failed", "reclaimed", reclaimed, "error", err)
				continue
			}
			if reclaimed > 0 {
				s.logger.Info("trash sweep completed", "reclaimed", reclaimed)
			}
		}
	}
}

// Shutdown stops the loop and waits for an in-flight sweep to finish.
func (s *Sweeper) Shutdown(ctx context.Context) error {
	s.once.Do(s.cancel)

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-s.done:
		return nil
	}
}
