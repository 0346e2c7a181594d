package models

import (
	"errors"
	"fmt"
)

// ErrorType classifies engine errors for type switches at the boundaries.
type ErrorType int

const (
	ErrorTypeUnknown ErrorType = iota
	// ErrorTypeRateUnavailable covers network failures, non-2xx responses
	// and malformed payloads from the rate source. Never fatal; the
	// affected pair is simply absent for this cycle.
	ErrorTypeRateUnavailable
	// ErrorTypeThrottled marks a fetch skipped by the minimum-interval
	// throttle with no previous value to fall back on. Not a failure of
	// the upstream; a later cycle will retry.
	ErrorTypeThrottled
	// ErrorTypeInvalidBinding marks a binding rejected at registration
	// (non-positive amount or unknown currency).
	ErrorTypeInvalidBinding
	// ErrorTypePreferencePersist marks a failed preference-store write.
	// The in-memory currency switch still stands.
	ErrorTypePreferencePersist
)

func (t ErrorType) String() string {
	switch t {
	case ErrorTypeRateUnavailable:
		return "rate unavailable"
	case ErrorTypeThrottled:
		return "throttled"
	case ErrorTypeInvalidBinding:
		return "invalid binding"
	case ErrorTypePreferencePersist:
		return "preference persist failed"
	default:
		return "unknown"
	}
}

// EngineError is the single error type crossing package boundaries inside
// the engine.
type EngineError struct {
	Type    ErrorType
	Message string
	Cause   error
}

func (e *EngineError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *EngineError) Unwrap() error {
	return e.Cause
}

// NewError builds an EngineError with a formatted message.
func NewError(t ErrorType, cause error, format string, args ...interface{}) *EngineError {
	return &EngineError{
		Type:    t,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// TypeOf extracts the ErrorType from an error chain.
func TypeOf(err error) ErrorType {
	var engineError *EngineError
	if errors.As(err, &engineError) {
		return engineError.Type
	}
	return ErrorTypeUnknown
}
