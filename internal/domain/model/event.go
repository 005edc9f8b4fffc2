package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/okian/upskill/internal/domain/types"
)

// EventType tags the learning event variants.
type EventType string

// Known event types.
const (
	EventUserCreated         EventType = "user_created"
	EventModuleCompleted     EventType = "module_completed"
	EventAssessmentSubmitted EventType = "assessment_submitted"
)

// Completion types with special meaning; anything else is neutral.
const (
	CompletionPassed = "passed"
	CompletionFailed = "failed"
)

// Envelope keys that are not part of any variant's body.
const (
	FieldType           = "type"
	FieldUserID         = "user_id"
	FieldIdempotencyKey = "idempotency_key"
)

// derivedFields are filled in by the service and stripped from submitted payloads.
var derivedFields = []string{"deltas", "received_at"}

// requiredFields lists, per event type, the fields that must be present and non-empty.
var requiredFields = map[EventType][]string{
	EventUserCreated:         {"user_id", "role_id", "resume_text"},
	EventModuleCompleted:     {"user_id", "skill", "target_level", "completion_type"},
	EventAssessmentSubmitted: {"user_id", "assessment_id", "score"},
}

// Event is implemented by the three event variants only.
type Event interface {
	Type() EventType
	Subject() string
	isEvent()
}

// UserCreated bootstraps a skill profile from a resume.
type UserCreated struct {
	UserID     string
	RoleID     string
	ResumeText string
}

// ModuleCompleted moves the skills a module covers toward their targets.
type ModuleCompleted struct {
	UserID         string
	ModuleID       string
	Skill          string
	TargetLevel    float64
	CompletionType string
	Score          *float64
	HasAssessment  *bool
	PassThreshold  *float64
	Weight         *float64
}

// AssessmentSubmitted records an assessment score.
type AssessmentSubmitted struct {
	UserID       string
	AssessmentID string
	Score        float64
	Skill        string
}

func (UserCreated) Type() EventType         { return EventUserCreated }
func (ModuleCompleted) Type() EventType     { return EventModuleCompleted }
func (AssessmentSubmitted) Type() EventType { return EventAssessmentSubmitted }

func (e UserCreated) Subject() string         { return e.UserID }
func (e ModuleCompleted) Subject() string     { return e.UserID }
func (e AssessmentSubmitted) Subject() string { return e.UserID }

func (UserCreated) isEvent()         {}
func (ModuleCompleted) isEvent()     {}
func (AssessmentSubmitted) isEvent() {}

// Envelope is a decoded event record. Fields always holds what was submitted
// (numbers as json.Number), Event is set only when validation passed.
type Envelope struct {
	Type           EventType
	UserID         string
	IdempotencyKey string
	Fields         map[string]any
	Event          Event
}

// HashedFields is the payload minus the idempotency key.
func (e *Envelope) HashedFields() map[string]any {
	out := make(map[string]any, len(e.Fields))
	for k, v := range e.Fields {
		if k == FieldIdempotencyKey {
			continue
		}
		out[k] = v
	}
	return out
}

// AuditFields is the payload minus service-derived keys.
func (e *Envelope) AuditFields() map[string]any {
	out := make(map[string]any, len(e.Fields))
	for k, v := range e.Fields {
		out[k] = v
	}
	for _, k := range derivedFields {
		delete(out, k)
	}
	return out
}

// ValidationError describes why an event was rejected before dispatch.
type ValidationError struct {
	Code    types.Code
	Message string
	Missing []string
	Field   string
}

func (v *ValidationError) Error() string { return string(v.Code) + ": " + v.Message }

// AsError converts to the result error shape.
func (v *ValidationError) AsError() *types.Error {
	details := map[string]any{}
	if len(v.Missing) > 0 {
		details["missing"] = v.Missing
	}
	if v.Field != "" {
		details["field"] = v.Field
	}
	return types.NewError(v.Code, v.Message, details)
}

// DecodeEvent parses a JSON event record. The returned envelope is never nil,
// so rejected events can still be audited.
func DecodeEvent(raw []byte) (*Envelope, *ValidationError) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var fields map[string]any
	if err := dec.Decode(&fields); err != nil || fields == nil {
		env := &Envelope{Fields: map[string]any{"raw": string(raw)}}
		msg := "event must be a JSON object"
		if err != nil {
			msg = "malformed event: " + err.Error()
		}
		return env, &ValidationError{Code: types.CodeInvalidPayload, Message: msg}
	}
	if dec.More() {
		env := &Envelope{Fields: fields}
		return env, &ValidationError{Code: types.CodeInvalidPayload, Message: "trailing data after event object"}
	}
	return DecodeFields(fields)
}

// DecodeFields validates an already-parsed event record.
func DecodeFields(fields map[string]any) (*Envelope, *ValidationError) {
	if fields == nil {
		fields = map[string]any{}
	}
	env := &Envelope{Fields: fields}
	env.Type = EventType(stringField(fields, FieldType))
	env.UserID = strings.TrimSpace(stringField(fields, FieldUserID))
	env.IdempotencyKey = strings.TrimSpace(stringField(fields, FieldIdempotencyKey))

	if env.Type == "" {
		return env, &ValidationError{Code: types.CodeMissingField, Message: "missing required fields: type", Missing: []string{FieldType}}
	}
	required, ok := requiredFields[env.Type]
	if !ok {
		return env, &ValidationError{Code: types.CodeUnknownEventType, Message: fmt.Sprintf("unknown event type %q", env.Type), Field: FieldType}
	}

	var missing []string
	for _, name := range required {
		if isMissing(fields[name]) {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return env, &ValidationError{
			Code:    types.CodeMissingField,
			Message: "missing required fields: " + strings.Join(missing, ", "),
			Missing: missing,
		}
	}

	p := parser{fields: fields}
	var ev Event
	switch env.Type {
	case EventUserCreated:
		ev = UserCreated{
			UserID:     p.str(FieldUserID),
			RoleID:     p.str("role_id"),
			ResumeText: p.str("resume_text"),
		}
	case EventModuleCompleted:
		ev = ModuleCompleted{
			UserID:         p.str(FieldUserID),
			ModuleID:       p.optStr("module_id"),
			Skill:          p.str("skill"),
			TargetLevel:    p.num("target_level", 1, 5),
			CompletionType: p.str("completion_type"),
			Score:          p.optNum("score", 0, 1),
			HasAssessment:  p.optBool("has_assessment"),
			PassThreshold:  p.optNum("pass_threshold", 0, 1),
			Weight:         p.optPositive("weight"),
		}
	case EventAssessmentSubmitted:
		ev = AssessmentSubmitted{
			UserID:       p.str(FieldUserID),
			AssessmentID: p.str("assessment_id"),
			Score:        p.num("score", 0, 1),
			Skill:        p.optStr("skill"),
		}
	}
	if p.err != nil {
		return env, p.err
	}
	if key, present := fields[FieldIdempotencyKey]; present && key != nil {
		if _, ok := key.(string); !ok {
			return env, invalid(FieldIdempotencyKey, "must be a string")
		}
	}
	env.Event = ev
	return env, nil
}

func isMissing(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	}
	return false
}

func stringField(fields map[string]any, name string) string {
	s, _ := fields[name].(string)
	return s
}

func invalid(field, reason string) *ValidationError {
	return &ValidationError{
		Code:    types.CodeInvalidField,
		Message: fmt.Sprintf("field %s %s", field, reason),
		Field:   field,
	}
}

// parser reads typed fields and keeps the first type error.
type parser struct {
	fields map[string]any
	err    *ValidationError
}

func (p *parser) fail(field, reason string) {
	if p.err == nil {
		p.err = invalid(field, reason)
	}
}

func (p *parser) str(name string) string {
	s, ok := p.fields[name].(string)
	if !ok {
		p.fail(name, "must be a string")
		return ""
	}
	return strings.TrimSpace(s)
}

func (p *parser) optStr(name string) string {
	v, ok := p.fields[name]
	if !ok || v == nil {
		return ""
	}
	return p.str(name)
}

func (p *parser) num(name string, lo, hi float64) float64 {
	f, ok := toFloat(p.fields[name])
	if !ok {
		p.fail(name, "must be a number")
		return 0
	}
	if f < lo || f > hi {
		p.fail(name, fmt.Sprintf("must be within [%g, %g]", lo, hi))
		return 0
	}
	return f
}

func (p *parser) optNum(name string, lo, hi float64) *float64 {
	v, ok := p.fields[name]
	if !ok || v == nil {
		return nil
	}
	f := p.num(name, lo, hi)
	return &f
}

func (p *parser) optPositive(name string) *float64 {
	v, ok := p.fields[name]
	if !ok || v == nil {
		return nil
	}
	f, ok := toFloat(v)
	if !ok {
		p.fail(name, "must be a number")
		return nil
	}
	if f <= 0 {
		p.fail(name, "must be positive")
		return nil
	}
	return &f
}

func (p *parser) optBool(name string) *bool {
	v, ok := p.fields[name]
	if !ok || v == nil {
		return nil
	}
	b, ok := v.(bool)
	if !ok {
		p.fail(name, "must be a boolean")
		return nil
	}
	return &b
}

func toFloat(v any) (float64, bool) {
	var f float64
	switch t := v.(type) {
	case json.Number:
		parsed, err := t.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
