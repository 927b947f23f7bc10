package model

import (
	"errors"
	"fmt"
)

// TransportError covers connection failures, timeouts and non-success HTTP
// statuses. StatusCode is zero when no response was received.
type TransportError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("transport: %s: status %d", e.URL, e.StatusCode)
	}
	if e.Err != nil {
		return fmt.Sprintf("transport: %s: %v", e.URL, e.Err)
	}
	return "transport: " + e.URL
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ParseError reports a payload that did not have the expected shape.
type ParseError struct {
	Source string
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	msg := "parse"
	if e.Source != "" {
		msg += " " + e.Source
	}
	msg += ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// UnknownSourceError is returned for a requested source name that is not
// registered.
type UnknownSourceError struct {
	Name string
}

func (e *UnknownSourceError) Error() string {
	return fmt.Sprintf("unknown source %q", e.Name)
}

// IsTransportError reports whether err has a TransportError in its chain.
func IsTransportError(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// IsParseError reports whether err has a ParseError in its chain.
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}

// IsUnknownSource reports whether err has an UnknownSourceError in its chain.
func IsUnknownSource(err error) bool {
	var ue *UnknownSourceError
	return errors.As(err, &ue)
}
