package client

import (
	"errors"
	"fmt"

	"gridedit/internal/model"
)

// ErrInvalidResponse marks a response body that is not the expected JSON.
var ErrInvalidResponse = errors.New("invalid response")

// ErrNotLoaded is returned by mutating calls before a page config is known.
var ErrNotLoaded = errors.New("client: grid not loaded")

// ServerError is a parsed response whose ok flag is false.
type ServerError struct {
	Result model.Result
}

func (e *ServerError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return e.Result.ErrorMessage()
}

// TransportError means no response was received at all.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%s: network error: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// InvalidResponseError carries the raw response for diagnostics.
type InvalidResponseError struct {
	StatusCode int
	Body       []byte
	Err        error
}

func (e *InvalidResponseError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("invalid response: status=%d: %v", e.StatusCode, e.Err)
}

func (e *InvalidResponseError) Is(target error) bool { return target == ErrInvalidResponse }

func (e *InvalidResponseError) Unwrap() error { return e.Err }
