package order

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rekberkan/kahade-sub000/internal/models"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from    string
		to      string
		allowed bool
	}{
		{models.OrderStatusPendingAccept, models.OrderStatusAccepted, true},
		{models.OrderStatusPendingAccept, models.OrderStatusCancelled, true},
		{models.OrderStatusPendingAccept, models.OrderStatusPaid, false},
		{models.OrderStatusPendingAccept, models.OrderStatusDisputed, false},
		{models.OrderStatusAccepted, models.OrderStatusPaid, true},
		{models.OrderStatusAccepted, models.OrderStatusCancelled, true},
		{models.OrderStatusAccepted, models.OrderStatusDisputed, true},
		{models.OrderStatusAccepted, models.OrderStatusDelivered, false},
		{models.OrderStatusPaid, models.OrderStatusDelivered, true},
		{models.OrderStatusPaid, models.OrderStatusDisputed, true},
		{models.OrderStatusPaid, models.OrderStatusCancelled, false},
		{models.OrderStatusPaid, models.OrderStatusCompleted, false},
		{models.OrderStatusDelivered, models.OrderStatusCompleted, true},
		{models.OrderStatusDelivered, models.OrderStatusDisputed, true},
		{models.OrderStatusDelivered, models.OrderStatusCancelled, false},
		{models.OrderStatusDisputed, models.OrderStatusCompleted, true},
		{models.OrderStatusDisputed, models.OrderStatusCancelled, true},
		{models.OrderStatusDisputed, models.OrderStatusRefunded, true},
		{models.OrderStatusDisputed, models.OrderStatusPaid, false},
		{models.OrderStatusCompleted, models.OrderStatusDisputed, false},
		{models.OrderStatusCancelled, models.OrderStatusAccepted, false},
		{models.OrderStatusRefunded, models.OrderStatusCompleted, false},
	}

	for _, tt := range tests {
		assert.Equalf(t, tt.allowed, CanTransition(tt.from, tt.to),
			"%s -> %s", tt.from, tt.to)
	}
}
