package core

import (
	"errors"
	"fmt"
	"strings"
)

// TaxonomyKind enumerates the error taxonomy from the error handling
// design: the Loop Engine never throws, it only produces structured events
// or a terminal RunResult (which records a RunStatus, not one of these
// kinds). Returned errors carry a kind inside a TaxonomyError.
type TaxonomyKind string

const (
	KindProviderUnavailable  TaxonomyKind = "provider_unavailable"
	KindProviderTimeout      TaxonomyKind = "provider_backend_timeout"
	KindProviderRejected     TaxonomyKind = "provider_backend_rejected"
	KindProviderMalformed    TaxonomyKind = "provider_backend_malformed"
	KindToolMissing          TaxonomyKind = "tool_missing"
	KindToolFailedInternal   TaxonomyKind = "tool_failed_internal"
	KindToolFailedTimeout    TaxonomyKind = "tool_failed_timeout"
	KindToolFailedCancelled  TaxonomyKind = "tool_failed_cancelled"
	KindCoordinationPartial  TaxonomyKind = "coordination_partial"
	KindSessionStale         TaxonomyKind = "session_stale"
	KindParseMalformed       TaxonomyKind = "parse_malformed"
	KindBudgetExceeded       TaxonomyKind = "budget_exceeded"
	KindCancelled            TaxonomyKind = "cancelled"
)

// TaxonomyError is the structured error type carried by taxonomy entries.
// It wraps an optional underlying cause for errors.Is/As chains.
type TaxonomyError struct {
	Kind    TaxonomyKind
	Message string
	Cause   error
}

func (e *TaxonomyError) Error() string {
	if e.Message == "" {
		if e.Cause != nil {
			return fmt.Sprintf("[%s] %s", e.Kind, e.Cause.Error())
		}
		return string(e.Kind)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

func (e *TaxonomyError) Unwrap() error { return e.Cause }

// NewTaxonomyError builds a TaxonomyError of the given kind.
func NewTaxonomyError(kind TaxonomyKind, message string, cause error) *TaxonomyError {
	return &TaxonomyError{Kind: kind, Message: message, Cause: cause}
}

// KindOf returns the TaxonomyKind carried by err, found through
// errors.As, and false when err wraps no TaxonomyError.
func KindOf(err error) (TaxonomyKind, bool) {
	var te *TaxonomyError
	if errors.As(err, &te) {
		return te.Kind, true
	}
	return "", false
}

// ClassifyBackendError inspects a raw provider backend error and returns
// the matching sub-reason. Grounded on the teacher's substring
// classification approach (ClassifyError in the provider errors package):
// providers rarely expose structured error types over the wire, so
// string-matching the message is the practical way to recover a taxonomy
// kind from an arbitrary backend client error.
func ClassifyBackendError(err error) TaxonomyKind {
	if err == nil {
		return KindProviderMalformed
	}
	s := strings.ToLower(err.Error())
	switch {
	case strings.Contains(s, "timeout") || strings.Contains(s, "deadline exceeded"):
		return KindProviderTimeout
	case strings.Contains(s, "malformed") || strings.Contains(s, "parse") || strings.Contains(s, "unmarshal"):
		return KindProviderMalformed
	default:
		return KindProviderRejected
	}
}
