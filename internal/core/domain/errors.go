package domain

import (
	"errors"
	"fmt"
)

// ErrorKind is the caller-visible routing error taxonomy. The first two
// are decided before any network call; the last two can only occur once a
// chain has started executing.
type ErrorKind string

const (
	KindNoCapabilityMatch   ErrorKind = "no_capability_match"
	KindAllCandidatesCapped ErrorKind = "all_candidates_capped"
	KindChainExhausted      ErrorKind = "chain_exhausted"
	KindTerminal            ErrorKind = "terminal"
)

// RouteError is the single error shape the engine surfaces. It carries
// enough context (last attempted step, last failure class) for callers to
// log a useful outcome without inspecting breaker internals.
type RouteError struct {
	Kind    ErrorKind
	Message string

	LastVendor     string
	LastModel      string
	LastErrorType  ErrorType
	LastStatusCode int

	// Log carries the internal cause for server-side logging.
	Log error
}

func (e *RouteError) Error() string {
	if e.LastVendor != "" {
		return fmt.Sprintf("%s: %s (last step %s/%s, error_type=%s, status=%d)",
			e.Kind, e.Message, e.LastVendor, e.LastModel, e.LastErrorType, e.LastStatusCode)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *RouteError) Unwrap() error { return e.Log }

// NoCapabilityMatch reports that hard filters eliminated every candidate
// and no fallback chain was named.
func NoCapabilityMatch(msg string) *RouteError {
	return &RouteError{Kind: KindNoCapabilityMatch, Message: msg}
}

// AllCandidatesCapped reports that strategy hard caps emptied the set.
func AllCandidatesCapped(msg string) *RouteError {
	return &RouteError{Kind: KindAllCandidatesCapped, Message: msg}
}

// ChainExhausted reports that every step was unavailable or retried out.
func ChainExhausted(msg string, lastVendor, lastModel string, et ErrorType, status int) *RouteError {
	return &RouteError{
		Kind:           KindChainExhausted,
		Message:        msg,
		LastVendor:     lastVendor,
		LastModel:      lastModel,
		LastErrorType:  et,
		LastStatusCode: status,
	}
}

// Terminal reports a non-retryable application failure from a specific
// step, passed through verbatim.
func Terminal(msg string, vendor, model string, et ErrorType, status int) *RouteError {
	return &RouteError{
		Kind:           KindTerminal,
		Message:        msg,
		LastVendor:     vendor,
		LastModel:      model,
		LastErrorType:  et,
		LastStatusCode: status,
	}
}

// KindOf extracts the routing error kind, or "" for foreign errors.
func KindOf(err error) ErrorKind {
	var re *RouteError
	if errors.As(err, &re) {
		return re.Kind
	}
	return ""
}
