// Package dedupe decides whether an event carrying an idempotency key has
// already been applied.
package dedupe

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/okian/upskill/internal/domain/model"
)

// Decision is the outcome of checking a key against its stored record.
type Decision int

const (
	// Unseen means the key has no record yet; the event should be dispatched.
	Unseen Decision = iota
	// Replay means the same payload was already applied under this key.
	Replay
	// Conflict means the key was used before with a different payload.
	Conflict
)

func (d Decision) String() string {
	switch d {
	case Unseen:
		return "unseen"
	case Replay:
		return "replay"
	case Conflict:
		return "conflict"
	}
	return fmt.Sprintf("decision(%d)", int(d))
}

// PayloadHash returns the hex sha256 of the payload serialized as JSON with
// keys sorted at every level. json.Number values keep their literal text.
func PayloadHash(payload map[string]any) (string, error) {
	// encoding/json sorts map keys, nested maps included.
	b, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnhashable, err)
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}

// Classify compares a stored record (nil when the key is new) to hash.
func Classify(rec *model.IdempotencyRecord, hash string) Decision {
	switch {
	case rec == nil:
		return Unseen
	case rec.PayloadHash == hash:
		return Replay
	default:
		return Conflict
	}
}
