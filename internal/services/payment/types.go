package payment

import (
	"context"

	"github.com/rekberkan/kahade-sub000/internal/models"
)

// Provider statuses fold into four internal outcomes.
const (
	statusSuccess = "success"
	statusPending = "pending"
	statusExpired = "expired"
	statusFailed  = "failed"
)

// Config tunes the ingestion service.
type Config struct {
	// MaxRetries caps how many times a FAILED event is re-applied by the
	// retry sweep.
	MaxRetries int
}

// DefaultConfig allows three retries per failed event.
func DefaultConfig() Config {
	return Config{MaxRetries: 3}
}

// IngestInput is one provider callback delivery: the raw body plus the
// authenticity value from the provider's header.
type IngestInput struct {
	Provider  string
	Signature string
	Payload   []byte
}

// Service ingests provider callbacks. Ingest records the true outcome in the
// audit trail and never needs a non-success HTTP response; a duplicate
// delivery returns the original PROCESSED record with ErrDuplicateEvent.
type Service interface {
	Ingest(ctx context.Context, input IngestInput) (*models.PaymentEvent, error)
	// RetryFailed re-applies FAILED events still under the retry budget.
	// Driven by the sweeper; returns how many were processed.
	RetryFailed(ctx context.Context, limit int) (int, error)
}
