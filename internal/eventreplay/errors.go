package eventreplay

import "errors"

// Sentinel kinds for replay errors.
var (
	ErrInput     = errors.New("unreadable event input")
	ErrTransport = errors.New("event transport failed")
)
