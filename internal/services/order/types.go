package order

import (
	"context"

	"github.com/rekberkan/kahade-sub000/internal/models"
	"github.com/rekberkan/kahade-sub000/internal/repositories"
)

// CreateInput carries everything needed to open an order.
type CreateInput struct {
	InitiatorID    uint
	CounterpartyID *uint
	InitiatorRole  string
	Title          string
	Description    string
	AmountMinor    int64
	FeeMinor       int64
	FeePayer       string
	Currency       string
}

// Service is the order lifecycle API. The party-facing methods each perform
// one guarded transition and return the updated order or a typed error; the
// Disputed/Finalize pair is reserved for the dispute engine and is not
// routed.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.Order, error)
	Get(ctx context.Context, orderID, callerID uint) (*models.Order, error)
	List(ctx context.Context, callerID uint, limit int) ([]models.Order, error)

	Accept(ctx context.Context, orderID, callerID uint) (*models.Order, error)
	Cancel(ctx context.Context, orderID, callerID uint) (*models.Order, error)
	Pay(ctx context.Context, orderID, callerID uint) (*models.Order, error)
	ConfirmDelivery(ctx context.Context, orderID, callerID uint) (*models.Order, error)
	ConfirmReceipt(ctx context.Context, orderID, callerID uint) (*models.Order, error)

	// MarkDisputed flips a disputable order to DISPUTED inside the dispute
	// engine's transaction.
	MarkDisputed(ctx context.Context, uow repositories.UnitOfWork, orderID, callerID uint) (*models.Order, error)
	// FinalizeDisputed moves a DISPUTED order to its resolution status
	// inside the dispute engine's transaction.
	FinalizeDisputed(ctx context.Context, uow repositories.UnitOfWork, orderID uint, target string) (*models.Order, error)
	// ReopenDisputed returns a resolved order to DISPUTED when a decision is
	// appealed, inside the dispute engine's transaction.
	ReopenDisputed(ctx context.Context, uow repositories.UnitOfWork, orderID uint) (*models.Order, error)

	// MarkPaidFromProvider applies an external payment settlement: deposits
	// and locks the buyer's funds and flips the order to PAID, inside the
	// ingestion transaction.
	MarkPaidFromProvider(ctx context.Context, uow repositories.UnitOfWork, orderID uint) (*models.Order, error)
	// CancelFromProvider cancels an unpaid order whose invoice expired or
	// failed, inside the ingestion transaction.
	CancelFromProvider(ctx context.Context, uow repositories.UnitOfWork, orderID uint) (*models.Order, error)
}
