package model

// Outcome of one supervisor call, as recorded in the audit log.
const (
	OutcomeApplied  = "applied"
	OutcomeRejected = "rejected"
	OutcomeReplayed = "replayed"
	OutcomeFailed   = "failed"
)

// AuditEntry is one append-only record of a supervisor call.
type AuditEntry struct {
	ID        string       `json:"id"`
	TS        string       `json:"ts"`
	EventType string       `json:"event_type"`
	Outcome   string       `json:"outcome"`
	ErrorCode string       `json:"error_code,omitempty"`
	Payload   AuditPayload `json:"payload"`
}

// AuditPayload carries the submitted event and what was done with it.
type AuditPayload struct {
	Payload        map[string]any `json:"payload"`
	Deltas         []SkillDelta   `json:"deltas,omitempty"`
	ReceivedAt     string         `json:"received_at"`
	IdempotencyKey string         `json:"idempotency_key,omitempty"`
}
