package cli

import "errors"

// Sentinel kinds for command errors.
var (
	ErrNotFound     = errors.New("not found")
	ErrEventsFailed = errors.New("events returned errors")
)
