package errs

import "strings"

// Classify determines the kind of an arbitrary error. Errors created by this
// package carry their kind; anything else is classified by keyword matching
// on the message, defaulting to the deterministic BadValue bucket, so an
// unclassifiable error gets cached rather than retried forever.
func Classify(err error) Kind {
	if err == nil {
		return BadValue
	}
	if e, ok := err.(*Error); ok {
		return e.K
	}
	msg := strings.ToLower(err.Error())
	switch {
	case containsAny(msg, "network", "connection refused", "connection reset", "no such host", "unreachable"):
		return NetworkFailure
	case containsAny(msg, "timeout", "timed out", "deadline exceeded"):
		return Timeout
	case containsAny(msg, "unavailable", "not available", "not ready", "temporarily"):
		return Unavailable
	case containsAny(msg, "permission", "denied", "forbidden", "unauthorized"):
		return PermissionDenied
	case containsAny(msg, "server error", "service", "bad gateway", "internal error"):
		return ExternalFailure
	default:
		return BadValue
	}
}

// Deterministic reports whether err classifies into a deterministic kind.
func Deterministic(err error) bool {
	return Classify(err).Deterministic()
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
