package errors

import "net/http"

var (
	ErrOrderNotFound = &DomainError{
		Code:    "ORDER_NOT_FOUND",
		Message: "order not found",
		Status:  http.StatusNotFound,
	}
	ErrNotOrderParty = &DomainError{
		Code:    "NOT_ORDER_PARTY",
		Message: "caller is not a party to this order",
		Status:  http.StatusForbidden,
	}
	ErrWrongRole = &DomainError{
		Code:    "WRONG_ROLE",
		Message: "caller's role cannot perform this action",
		Status:  http.StatusForbidden,
	}
	ErrOrderTerminal = &DomainError{
		Code:    "ORDER_TERMINAL",
		Message: "order is in a terminal state",
		Status:  http.StatusConflict,
	}
)
