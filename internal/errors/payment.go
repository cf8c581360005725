package errors

import "net/http"

var (
	ErrInvalidSignature = &DomainError{
		Code:    "SIGNATURE_INVALID",
		Message: "payment event failed authenticity verification",
		Status:  http.StatusUnauthorized,
	}
	ErrUnknownProvider = &DomainError{
		Code:    "UNKNOWN_PROVIDER",
		Message: "no verifier configured for this payment provider",
		Status:  http.StatusNotFound,
	}
	ErrEventUnlinked = &DomainError{
		Code:    "EVENT_UNLINKED",
		Message: "payment event references no known order or withdrawal",
		Status:  http.StatusUnprocessableEntity,
	}
	ErrWithdrawalNotFound = &DomainError{
		Code:    "WITHDRAWAL_NOT_FOUND",
		Message: "withdrawal not found",
		Status:  http.StatusNotFound,
	}
)

// ErrDuplicateEvent marks re-delivery of an already processed event. It is a
// short-circuit success, not a failure: callers acknowledge and apply nothing.
var ErrDuplicateEvent = &DomainError{
	Code:    "DUPLICATE_EVENT",
	Message: "event already processed",
	Status:  http.StatusOK,
}
