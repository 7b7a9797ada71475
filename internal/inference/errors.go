package inference

import (
	"errors"
	"fmt"
)

// ErrNetwork matches every NetworkError via errors.Is.
var ErrNetwork = errors.New("inference: request failed")

// Kind classifies a NetworkError.
type Kind int

const (
	BadStatus Kind = iota + 1
	Transport
	MalformedResponse
)

func (k Kind) String() string {
	switch k {
	case BadStatus:
		return "bad_status"
	case Transport:
		return "transport"
	case MalformedResponse:
		return "malformed_response"
	default:
		return "unknown"
	}
}

// NetworkError is returned for every failed submission.
type NetworkError struct {
	Kind     Kind
	Endpoint string
	// Status is set for BadStatus.
	Status int
	Err    error
}

func (e *NetworkError) Error() string {
	switch e.Kind {
	case BadStatus:
		return fmt.Sprintf("inference: %s returned HTTP %d", e.Endpoint, e.Status)
	case MalformedResponse:
		return fmt.Sprintf("inference: malformed response from %s: %v", e.Endpoint, e.Err)
	default:
		return fmt.Sprintf("inference: post %s: %v", e.Endpoint, e.Err)
	}
}

func (e *NetworkError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrNetwork}
	}
	return []error{ErrNetwork, e.Err}
}
