package services

import "errors"

// Service-level error taxonomy. Handlers map these onto HTTP statuses;
// anything unmatched is an upstream failure.
var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrForbidden         = errors.New("forbidden")
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrPaymentIncomplete = errors.New("payment not completed")
)
