package dedupe

import "errors"

// ErrUnhashable is returned when a payload cannot be serialized for hashing.
var ErrUnhashable = errors.New("payload cannot be hashed")
