package service

import "errors"

// Sentinel kinds for supervisor failures that surface as INTERNAL.
var (
	ErrNotStarted = errors.New("service not started")
	ErrPanic      = errors.New("panic while handling event")
)
