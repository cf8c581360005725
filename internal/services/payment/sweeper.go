package payment

import (
	"context"
	"log"
	"time"
)

// Sweeper periodically re-applies FAILED payment events that are still under
// the retry budget.
type Sweeper struct {
	service  Service
	interval time.Duration
	batch    int
	stop     chan struct{}
	done     chan struct{}
}

// NewSweeper creates a sweeper over the ingestion service. interval defaults
// to 2 minutes and batch to 50 when non-positive.
func NewSweeper(service Service, interval time.Duration, batch int) *Sweeper {
	if service == nil {
		panic("payment service is required")
	}
	if interval <= 0 {
		interval = 2 * time.Minute
	}
	if batch <= 0 {
		batch = 50
	}
	return &Sweeper{
		service:  service,
		interval: interval,
		batch:    batch,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start runs the retry loop until Stop is called or ctx is cancelled.
func (s *Sweeper) Start(ctx context.Context) {
	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stop:
				return
			case <-ticker.C:
				processed, err := s.service.RetryFailed(ctx, s.batch)
				if err != nil {
					log.Printf("payment retry sweep failed: %v", err)
					continue
				}
				if processed > 0 {
					log.Printf("payment retry sweep: processed %d failed events", processed)
				}
			}
		}
	}()
}

// Stop halts the loop and waits for the current sweep to finish.
func (s *Sweeper) Stop() {
	close(s.stop)
	<-s.done
}
