package service

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/okian/upskill/internal/domain/model"
	"github.com/okian/upskill/internal/domain/types"
)

// Result is what HandleEvent returns. Exactly one shape is populated: an
// error, a profile with its focus points, or an acknowledgement.
type Result struct {
	Profile *model.UserSkillProfile
	Focus   []model.FocusPoint
	OK      bool
	Todo    string
	Error   *types.Error

	// Replayed is set when the result was served from an idempotency record.
	Replayed bool

	raw json.RawMessage
}

type stateShape struct {
	Profile *model.UserSkillProfile `json:"profile"`
	Focus   []model.FocusPoint      `json:"focus"`
}

type ackShape struct {
	OK   bool   `json:"ok"`
	Todo string `json:"todo,omitempty"`
}

type errorShape struct {
	Error *types.Error `json:"error"`
}

// Failed reports whether the result carries an error.
func (r Result) Failed() bool { return r.Error != nil }

// Code is the error code, or empty on success.
func (r Result) Code() types.Code {
	if r.Error == nil {
		return ""
	}
	return r.Error.Code
}

// MarshalJSON renders the populated shape. A replayed result is written back
// exactly as it was first stored.
func (r Result) MarshalJSON() ([]byte, error) {
	if len(r.raw) > 0 {
		return r.raw, nil
	}
	switch {
	case r.Error != nil:
		return json.Marshal(errorShape{Error: r.Error})
	case r.Profile != nil:
		focus := r.Focus
		if focus == nil {
			focus = []model.FocusPoint{}
		}
		return json.Marshal(stateShape{Profile: r.Profile, Focus: focus})
	default:
		return json.Marshal(ackShape{OK: r.OK, Todo: r.Todo})
	}
}

// UnmarshalJSON accepts any of the three shapes and keeps the input bytes.
func (r *Result) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("decode result: %w", err)
	}
	dec := func(v any) error {
		d := json.NewDecoder(bytes.NewReader(data))
		d.UseNumber()
		return d.Decode(v)
	}
	var out Result
	switch {
	case fields["error"] != nil:
		var e errorShape
		if err := dec(&e); err != nil {
			return fmt.Errorf("decode error result: %w", err)
		}
		out.Error = e.Error
	case fields["profile"] != nil:
		var s stateShape
		if err := dec(&s); err != nil {
			return fmt.Errorf("decode state result: %w", err)
		}
		out.Profile, out.Focus = s.Profile, s.Focus
	default:
		var a ackShape
		if err := dec(&a); err != nil {
			return fmt.Errorf("decode ack result: %w", err)
		}
		out.OK, out.Todo = a.OK, a.Todo
	}
	out.raw = append(json.RawMessage(nil), data...)
	*r = out
	return nil
}

func errorResult(code types.Code, msg string, details map[string]any) Result {
	return Result{Error: types.NewError(code, msg, details)}
}
