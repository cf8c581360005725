package order

import "github.com/rekberkan/kahade-sub000/internal/models"

// transitions is the full lifecycle table. A requested status not listed
// under the current one is illegal, whoever asks. Terminal states have no
// entries at all.
var transitions = map[string][]string{
	models.OrderStatusPendingAccept: {
		models.OrderStatusAccepted,
		models.OrderStatusCancelled,
	},
	models.OrderStatusAccepted: {
		models.OrderStatusPaid,
		models.OrderStatusCancelled,
		models.OrderStatusDisputed,
	},
	models.OrderStatusPaid: {
		models.OrderStatusDelivered,
		models.OrderStatusDisputed,
	},
	models.OrderStatusDelivered: {
		models.OrderStatusCompleted,
		models.OrderStatusDisputed,
	},
	models.OrderStatusDisputed: {
		models.OrderStatusCompleted,
		models.OrderStatusCancelled,
		models.OrderStatusRefunded,
	},
}

// CanTransition reports whether the lifecycle table allows from -> to.
func CanTransition(from, to string) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}
