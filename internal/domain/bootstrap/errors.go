package bootstrap

import "errors"

// ErrUnknownRole is returned when the requested role has no requirements.
var ErrUnknownRole = errors.New("unknown role")
