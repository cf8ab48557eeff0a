package cloudmsg

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidArgument = errors.New("cloudmsg: invalid argument")
	ErrNotConfigured   = errors.New("cloudmsg: not configured")
)

// ConfigError reports missing or invalid dispatch configuration (unknown
// cloud type, absent API key). Never retried.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string { return "cloudmsg: " + e.Reason }

// TransportError wraps a network, HTTP-status or body-decode failure.
// It is not gateway-result data and carries no per-recipient outcomes.
type TransportError struct {
	Op     string
	Status int
	Body   string
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("cloudmsg: %s: http %d: %s", e.Op, e.Status, e.Body)
	}
	return fmt.Sprintf("cloudmsg: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// GatewayError reports that at least one recipient in a chunk failed with an
// error code other than the deactivation codes. It is returned only after
// every registry mutation for the chunk has been applied, and carries the
// full response for caller inspection.
type GatewayError struct {
	Response *Response
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("cloudmsg: gateway reported %d failed recipients", e.Response.Failure)
}
