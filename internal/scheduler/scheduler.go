package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/flowrank/flowrank/internal/collector"
	"github.com/flowrank/flowrank/pkg/keypool"
)

// Scheduler runs periodic collection cycles and the daily credential reset.
type Scheduler struct {
	collector  *collector.Collector
	pool       *keypool.Pool
	refreshInt time.Duration
	resetInt   time.Duration
}

// New creates a new scheduler.
func New(c *collector.Collector, pool *keypool.Pool, refreshInt, resetInt time.Duration) *Scheduler {
	if refreshInt <= 0 {
		refreshInt = 24 * time.Hour
	}
	if resetInt <= 0 {
		resetInt = 24 * time.Hour
	}
	return &Scheduler{
		collector:  c,
		pool:       pool,
		refreshInt: refreshInt,
		resetInt:   resetInt,
	}
}

// Run starts the scheduler loop. Blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	refreshTicker := time.NewTicker(s.refreshInt)
	resetTicker := time.NewTicker(s.resetInt)
	defer refreshTicker.Stop()
	defer resetTicker.Stop()

	// Collect immediately on start so the API has data to serve.
	log.Printf("scheduler: initial collection...")
	s.refresh(ctx)

	log.Printf("scheduler: running (refresh every %s, credential reset every %s)", s.refreshInt, s.resetInt)

	for {
		select {
		case <-ctx.Done():
			log.Printf("scheduler: stopped")
			return ctx.Err()
		case <-refreshTicker.C:
			s.refresh(ctx)
		case <-resetTicker.C:
			log.Printf("scheduler: resetting credential pool")
			s.pool.Reset()
		}
	}
}

func (s *Scheduler) refresh(ctx context.Context) {
	if _, err := s.collector.TryRun(ctx); err != nil {
		log.Printf("scheduler: refresh: %v", err)
	}
}
