package genstream

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure modes.
var (
	// ErrValidation indicates a request failed validation.
	ErrValidation = errors.New("validation error")

	// ErrStreamClosed indicates an operation on a stream closed by the caller.
	ErrStreamClosed = errors.New("stream closed")

	// ErrInvalidEncoding indicates streamed bytes are not valid UTF-8.
	ErrInvalidEncoding = errors.New("invalid utf-8 in stream")
)

// TransportError reports a failure of the byte source: a connection reset,
// a TLS failure or a non-success HTTP status. It is fatal for the stream.
type TransportError struct {
	Provider   string
	StatusCode int    // 0 when no HTTP response was received
	Body       string // response body for non-success statuses
	Err        error
}

func (e *TransportError) Error() string {
	prefix := "transport"
	if e.Provider != "" {
		prefix = e.Provider
	}
	switch {
	case e.StatusCode != 0 && e.Body != "":
		return fmt.Sprintf("%s: HTTP %d: %s", prefix, e.StatusCode, e.Body)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s: HTTP %d", prefix, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", prefix, e.Err)
	default:
		return prefix + ": transport failure"
	}
}

func (e *TransportError) Unwrap() error { return e.Err }

// DecodeError reports a complete message that could not be decoded into a
// Unit. A malformed payload mid-stream signals a backend anomaly, so it is
// fatal for the stream rather than skipped.
type DecodeError struct {
	Provider string
	Data     string // the offending message
	Err      error
}

func (e *DecodeError) Error() string {
	prefix := "decode"
	if e.Provider != "" {
		prefix = e.Provider + ": decode"
	}
	return fmt.Sprintf("%s: %v", prefix, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
