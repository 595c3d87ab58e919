package core

import (
	"errors"
	"fmt"
)

var (
	// ErrNotSupported means the device lacks world-tracking capability.
	// Terminal for the session instance.
	ErrNotSupported = errors.New("world tracking is not supported on this device")

	// ErrMissingConfiguration means no location usage description is
	// configured, so authorization can never be requested.
	ErrMissingConfiguration = errors.New("no location usage description configured")

	// ErrAccessDenied means the user denied or restricted location access.
	// Recoverable when authorization later changes.
	ErrAccessDenied = errors.New("location access denied")

	// ErrInvalidLocationFix marks a fix with negative horizontal accuracy.
	// Such fixes are discarded and never surfaced.
	ErrInvalidLocationFix = errors.New("invalid location fix")
)

// TrackingDomain is the error domain reported by the tracking subsystem.
const TrackingDomain = "tracking"

// TrackingError is an error delivered through the tracker's failure
// callback. Domain identifies the subsystem that raised it.
type TrackingError struct {
	Domain  string
	Code    int
	Message string
}

func (e *TrackingError) Error() string {
	return fmt.Sprintf("%s error %d: %s", e.Domain, e.Code, e.Message)
}

// SessionFailureError wraps a tracking failure that moved the session to
// Failed. It is recoverable by reset or restart.
type SessionFailureError struct {
	Reason string
	Err    error
}

func (e *SessionFailureError) Error() string {
	if e.Err == nil {
		return "tracking session failed: " + e.Reason
	}
	return fmt.Sprintf("tracking session failed: %s: %v", e.Reason, e.Err)
}

func (e *SessionFailureError) Unwrap() error { return e.Err }

// ErrorPolicy decides whether a tracker failure is fatal for the session.
// Errors it rejects are ignored.
type ErrorPolicy func(err error) bool

// TrackingDomainPolicy accepts only *TrackingError values from the
// tracking domain. Other errors share the notification channel but come
// from unrelated subsystems.
func TrackingDomainPolicy(err error) bool {
	return DomainPolicy(TrackingDomain)(err)
}

// DomainPolicy accepts *TrackingError values whose Domain is one of domains.
func DomainPolicy(domains ...string) ErrorPolicy {
	return func(err error) bool {
		var te *TrackingError
		if !errors.As(err, &te) {
			return false
		}
		for _, d := range domains {
			if te.Domain == d {
				return true
			}
		}
		return false
	}
}

// NotificationResult classifies a start-or-fail notification for metrics.
func NotificationResult(err error) string {
	var failure *SessionFailureError
	switch {
	case err == nil:
		return "started"
	case errors.Is(err, ErrNotSupported):
		return "not_supported"
	case errors.Is(err, ErrMissingConfiguration):
		return "missing_configuration"
	case errors.Is(err, ErrAccessDenied):
		return "access_denied"
	case errors.As(err, &failure):
		return "session_failure"
	default:
		return "error"
	}
}
