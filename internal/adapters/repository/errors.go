package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrStorage        = errors.New("storage failure")
	ErrKeyExists      = errors.New("idempotency key already stored")
	ErrUnknownDriver  = errors.New("unknown store driver")
	ErrInvalidCatalog = errors.New("invalid catalog")
	ErrClosed         = errors.New("store closed")
)
