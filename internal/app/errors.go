package app

import "errors"

var (
	// ErrMalformedEvent marks an inbound event with a missing or invalid required field.
	ErrMalformedEvent = errors.New("malformed event")

	// ErrUnauthenticated marks an event that needs a bound identity on an anonymous connection.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrUnauthorized marks a voice channel join rejected by the membership check.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrPersistence wraps durable presence write failures.
	ErrPersistence = errors.New("presence persistence failed")

	ErrRateLimited  = errors.New("rate limited")
	ErrUnknownEvent = errors.New("unknown event")
)

// ErrorCode is the short machine-readable reason sent back in error events.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrMalformedEvent):
		return "malformed_event"
	case errors.Is(err, ErrUnauthenticated):
		return "unauthenticated"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrPersistence):
		return "persistence"
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, ErrUnknownEvent):
		return "unknown_event"
	default:
		return "internal"
	}
}
