package errors

import "net/http"

var (
	ErrDisputeNotFound = &DomainError{
		Code:    "DISPUTE_NOT_FOUND",
		Message: "dispute not found",
		Status:  http.StatusNotFound,
	}
	ErrDisputeExists = &DomainError{
		Code:    "DISPUTE_EXISTS",
		Message: "order already has an open dispute",
		Status:  http.StatusConflict,
	}
	ErrDisputeWrongStatus = &DomainError{
		Code:    "DISPUTE_WRONG_STATUS",
		Message: "action not allowed in the dispute's current status",
		Status:  http.StatusConflict,
	}
	ErrNotDisputeParty = &DomainError{
		Code:    "NOT_DISPUTE_PARTY",
		Message: "caller is not a party to this dispute",
		Status:  http.StatusForbidden,
	}
	ErrDeadlinePassed = &DomainError{
		Code:    "DEADLINE_PASSED",
		Message: "the deadline for this action has passed",
		Status:  http.StatusConflict,
	}
	ErrInvalidDecision = &DomainError{
		Code:    "INVALID_DECISION",
		Message: "unknown dispute decision",
		Status:  http.StatusBadRequest,
	}
)
