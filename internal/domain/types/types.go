// Package types contains common types used across the application
package types

// Code classifies a domain error returned across the supervisor boundary.
type Code string

// Error codes. Validation codes are caller errors; NOT_FOUND is strictly
// "referenced entity does not exist"; INTERNAL covers everything unexpected.
const (
	CodeMissingField     Code = "MISSING_FIELD"
	CodeInvalidField     Code = "INVALID_FIELD"
	CodeInvalidPayload   Code = "INVALID_PAYLOAD"
	CodeUnknownEventType Code = "UNKNOWN_EVENT_TYPE"
	CodeNotFound         Code = "NOT_FOUND"
	CodeConflict         Code = "CONFLICT"
	CodeInternal         Code = "INTERNAL"
)

// IsClientError reports whether the code describes a malformed request.
func (c Code) IsClientError() bool {
	switch c {
	case CodeMissingField, CodeInvalidField, CodeInvalidPayload, CodeUnknownEventType:
		return true
	}
	return false
}

// Error is the structured error value carried in results.
type Error struct {
	Code    Code           `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details"`
}

// NewError builds an Error, always with a non-nil details object.
func NewError(code Code, message string, details map[string]any) *Error {
	if details == nil {
		details = map[string]any{}
	}
	return &Error{Code: code, Message: message, Details: details}
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return string(e.Code) + ": " + e.Message
}
