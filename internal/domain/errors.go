package domain

import "errors"

var (
	// ErrDocumentNotFound is the store-level miss for keyed lookups.
	ErrDocumentNotFound = errors.New("document not found")
	// ErrStoreUnavailable wraps network/store-level failures. Retryable.
	ErrStoreUnavailable = errors.New("document store unavailable")

	ErrValidation           = errors.New("validation failed")
	ErrCardNotFound         = errors.New("saved card not found")
	ErrPendingOrderNotFound = errors.New("pending order not found")
	ErrOrderNotFound        = errors.New("order not found")
	ErrOrderWriteFailed     = errors.New("failed to write order")
)
