package dispute

import (
	"context"
	"log"
	"time"
)

// Sweeper periodically closes DECIDED disputes whose appeal window has
// expired.
type Sweeper struct {
	service  Service
	interval time.Duration
	batch    int
	stop     chan struct{}
	done     chan struct{}
}

// NewSweeper creates a sweeper over the dispute service. interval defaults to
// 5 minutes and batch to 50 when non-positive.
func NewSweeper(service Service, interval time.Duration, batch int) *Sweeper {
	if service == nil {
		panic("dispute service is required")
	}
	if interval <= 0 {
		interval = 5 * time.Minute
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

// Start runs the sweep loop until Stop is called or ctx is cancelled.
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
				closed, err := s.service.CloseExpired(ctx, s.batch)
				if err != nil {
					log.Printf("dispute close sweep failed: %v", err)
					continue
				}
				if closed > 0 {
					log.Printf("dispute close sweep: closed %d expired disputes", closed)
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
