package sentry_sender

import (
	"fmt"
)

// ErrConfigurationAbsent is returned by ParseDSN when no DSN was given.
// The sender treats it as "reporting disabled", not as a failure.
var ErrConfigurationAbsent = &configurationAbsentError{}

type configurationAbsentError struct{}

func (*configurationAbsentError) Error() string {
	return "sentry DSN is not configured"
}

// DSNErrorKind classifies DSN failures
type DSNErrorKind string

const (
	MalformedURL         DSNErrorKind = "malformed_url"
	MalformedCredentials DSNErrorKind = "malformed_credentials"
)

// DSNError represents a DSN or endpoint that could not be used
type DSNError struct {
	Kind    DSNErrorKind
	Message string
	Err     error
}

func (e *DSNError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DSNError) Unwrap() error {
	return e.Err
}

// SerializationError represents a payload that could not be encoded as JSON
type SerializationError struct {
	EventID string
	Err     error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("failed to encode event %s: %v", e.EventID, e.Err)
}

func (e *SerializationError) Unwrap() error {
	return e.Err
}

// TransportError represents a failed HTTP exchange with the Sentry server
type TransportError struct {
	URL        string
	StatusCode int // zero when no response was received
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("request to %s failed with HTTP %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("request to %s failed: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ReportSenderError is the single failure signal returned by Sender.Send.
// The underlying cause is one of DSNError, SerializationError or TransportError.
type ReportSenderError struct {
	Err error
}

func (e *ReportSenderError) Error() string {
	return fmt.Sprintf("Error while sending report to Sentry: %v", e.Err)
}

func (e *ReportSenderError) Unwrap() error {
	return e.Err
}
