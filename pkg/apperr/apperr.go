// Package apperr defines the error taxonomy shared by the search client,
// the LLM providers, and the insight pipeline, as a typed,
// errors.Is/As-compatible model rather than string matching.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error into the taxonomy the pipeline branches on.
type Kind int

const (
	KindUnknown Kind = iota
	KindTransient
	KindRateLimited
	KindQuotaExhausted
	KindSessionExpired
	KindSafetyFiltered
	KindDimensionMismatch
	KindTimeout
	KindAuthInvalid
	KindFatal
)

func (k Kind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindRateLimited:
		return "rate_limited"
	case KindQuotaExhausted:
		return "quota_exhausted"
	case KindSessionExpired:
		return "session_expired"
	case KindSafetyFiltered:
		return "safety_filtered"
	case KindDimensionMismatch:
		return "dimension_mismatch"
	case KindTimeout:
		return "timeout"
	case KindAuthInvalid:
		return "auth_invalid"
	case KindFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Error wraps an underlying cause with a classification and a
// user-facing message. The message for KindSessionExpired must carry the
// literal "session expired" marker the front-end keys its re-login
// prompt on.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func New(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Err: cause}
}

// KindOf extracts the Kind of err, returning KindUnknown if err does not
// wrap an *Error.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindUnknown
}

// IsFatal reports whether a Kind should fail the enclosing task
// outright. Candidate-level errors never fail the task; only session
// expiry, quota exhaustion, keyword-generation failure (callers wrap
// that case as KindFatal directly) and dimension mismatch do.
func IsFatal(k Kind) bool {
	switch k {
	case KindSessionExpired, KindQuotaExhausted, KindDimensionMismatch, KindFatal:
		return true
	default:
		return false
	}
}
